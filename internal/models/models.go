package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valid operator roles as the backend reports them.
const (
	RoleAdmin            = "admin"
	RoleCashier          = "cashier"
	RoleInventoryManager = "inventory_manager"
)

// User - The operator signed in at this terminal.
// The profile comes from GET /user/profile/ on the backend; Role may be
// empty for an account that was created but never assigned one.
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// TokenPair - What POST /token/ hands back.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Product - A catalog snapshot row from the backend. Quantity is the
// stock the backend knew about when we last fetched; it is the upper
// bound for cart quantities until the next refresh.
type Product struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Quantity int             `json:"quantity"`
	Category string          `json:"category"`
}

// Discount kinds accepted by the cart.
const (
	DiscountNone       = "none"
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Discount - Percentage is a fraction of the pre-tax subtotal in
// [0,100]; Fixed is an absolute amount clamped to the subtotal when
// totals are computed.
type Discount struct {
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// CartLine - One product in the in-progress sale.
type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
	Available int             `json:"available"`
}

// Totals - The full checkout breakdown. Derived, never stored: the
// backend recomputes all of this authoritatively at submit time.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Settings - Shop-wide settings from GET /settings/. TaxRate is a
// percentage (8 means 8%).
type Settings struct {
	TaxRate  decimal.Decimal `json:"tax_rate"`
	ShopName string          `json:"shop_name"`
	Currency string          `json:"currency"`
}

// SaleItem - One normalized line of the sale payload.
type SaleItem struct {
	Product   uint            `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleRequest - What we POST to /sales/.
type SaleRequest struct {
	Items         []SaleItem      `json:"items"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	PaymentMethod string          `json:"payment_method"`
}

// Sale - The backend's confirmation of a persisted sale. TotalAmount
// is the authoritative total and may differ from our local preview.
type Sale struct {
	ID          uint            `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Supplier - Read-only listing for the suppliers screen.
type Supplier struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// RestockRecord - One entry of the restock history tab.
type RestockRecord struct {
	ID        uint      `json:"id"`
	ProductID uint      `json:"product"`
	Quantity  int       `json:"quantity"`
	Supplier  string    `json:"supplier"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer - Read-only listing for the customers screen.
type Customer struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	AnimalType string `json:"animal_type"`
}

// NewUserRequest - Payload for creating a staff account via the admin
// settings screen. The backend owns password handling entirely.
type NewUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}
