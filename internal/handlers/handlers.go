// Package handlers exposes the terminal's operations to the dashboard
// UI. Handlers hold no business rules: the session manager and the
// checkout engine do, and everything authoritative lives on the
// backend.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vetpos/internal/apperr"
	"vetpos/internal/backend"
	"vetpos/internal/checkout"
	"vetpos/internal/models"
	"vetpos/internal/session"
	"vetpos/internal/store"
)

// Handlers wires the HTTP surface to the terminal's components.
type Handlers struct {
	Session *session.Manager
	Engine  *checkout.Engine
	Client  *backend.Client
	Store   *store.Store
	Log     zerolog.Logger

	// Last-write-wins snapshots of backend reads. Concurrent fetches
	// are fine; whoever returns last owns the slot.
	mu       sync.Mutex
	products []models.Product
	settings *models.Settings
}

// New builds the handler set.
func New(mgr *session.Manager, engine *checkout.Engine, client *backend.Client, st *store.Store, log zerolog.Logger) *Handlers {
	return &Handlers{
		Session: mgr,
		Engine:  engine,
		Client:  client,
		Store:   st,
		Log:     log.With().Str("component", "http").Logger(),
	}
}

// RefreshProducts refetches the catalog and reconciles the cart's
// availability bounds against it.
func (h *Handlers) RefreshProducts(ctx context.Context) ([]models.Product, error) {
	products, err := h.Client.Products(ctx, h.Session.AccessToken())
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.products = products
	h.mu.Unlock()

	h.Engine.ReconcileStock(products)
	return products, nil
}

// cachedProduct finds a product in the last fetched snapshot.
func (h *Handlers) cachedProduct(id uint) (models.Product, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// taxRate returns the current tax rate, fetching settings when we have
// none yet. A fetch failure falls back to the last good snapshot so a
// flaky backend does not freeze the register mid-sale.
func (h *Handlers) taxRate(ctx context.Context) (models.Settings, error) {
	settings, err := h.Client.Settings(ctx, h.Session.AccessToken())
	if err == nil {
		h.mu.Lock()
		h.settings = settings
		h.mu.Unlock()
		return *settings, nil
	}

	h.mu.Lock()
	cached := h.settings
	h.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}
	return models.Settings{}, err
}

// writeError translates the error taxonomy into an HTTP response.
// Every branch leaves the components in a previously valid state;
// nothing here is ever fatal.
func writeError(c *gin.Context, err error) {
	var validation *apperr.ValidationError
	var conflict *apperr.ConflictError

	switch {
	case errors.Is(err, apperr.ErrAuthentication):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials or expired session", "code": "authentication"})
	case errors.Is(err, apperr.ErrStockLimit):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "stock_constraint"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "code": "transaction_conflict"})
	case errors.Is(err, apperr.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "A previous request is still being processed", "code": "in_flight"})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Message, "code": "validation"})
	case errors.Is(err, apperr.ErrCartEmpty),
		errors.Is(err, apperr.ErrInsufficientTender),
		errors.Is(err, apperr.ErrBadState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "validation"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach the server. Please try again.", "code": "network"})
	}
}
