// Package store is the terminal's local database: an embedded sqlite
// file standing in for the browser's durable storage. It holds the two
// auth tokens under fixed names and a journal of submitted receipts.
// Catalog, settings and all sale records of consequence live on the
// backend, never here.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Fixed token names, mirroring the storage keys the dashboard used.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// TokenRecord - One persisted token, keyed by a fixed name.
type TokenRecord struct {
	Name      string    `gorm:"primaryKey;size:32"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time
}

// Receipt - A local journal entry for a submitted sale. Total is the
// backend's authoritative total, not our preview.
type Receipt struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Reference     string `gorm:"uniqueIndex;size:64" json:"reference"`
	SaleID        uint   `json:"sale_id"`
	Total         string `gorm:"size:32" json:"total"`
	PaymentMethod string `gorm:"size:16" json:"payment_method"`
	Operator      string `gorm:"size:50" json:"operator"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store wraps the terminal database.
type Store struct {
	db *gorm.DB
}

// Open connects to (or creates) the sqlite file and syncs the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open terminal db: %w", err)
	}

	if err := db.AutoMigrate(&TokenRecord{}, &Receipt{}); err != nil {
		return nil, fmt.Errorf("migrate terminal db: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveTokens upserts both tokens in one shot.
func (s *Store) SaveTokens(access, refresh string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for name, value := range map[string]string{
			KeyAccessToken:  access,
			KeyRefreshToken: refresh,
		} {
			record := TokenRecord{Name: name, Value: value}
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadToken returns the stored value for a fixed name, or "" when it
// was never stored or has been cleared.
func (s *Store) LoadToken(name string) (string, error) {
	var record TokenRecord
	err := s.db.First(&record, "name = ?", name).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return record.Value, nil
}

// ClearTokens removes both tokens. Removing nothing is fine.
func (s *Store) ClearTokens() error {
	return s.db.Where("name IN ?", []string{KeyAccessToken, KeyRefreshToken}).
		Delete(&TokenRecord{}).Error
}

// AppendReceipt journals a confirmed sale.
func (s *Store) AppendReceipt(r Receipt) error {
	return s.db.Create(&r).Error
}

// Receipts returns the journal, newest first.
func (s *Store) Receipts(limit int) ([]Receipt, error) {
	var receipts []Receipt
	err := s.db.Order("created_at desc").Limit(limit).Find(&receipts).Error
	return receipts, err
}
