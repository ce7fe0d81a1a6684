// Package checkout owns the in-progress sale: the cart lines, their
// stock bounds, the discount, and the one-way trip through checkout to
// the backend. All arithmetic lives in ComputeTotals; the engine is
// the state machine around it.
package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vetpos/internal/apperr"
	"vetpos/internal/backend"
	"vetpos/internal/models"
	"vetpos/internal/store"
)

// State of the current transaction.
type State string

const (
	StateEmpty        State = "empty"
	StateBuilding     State = "building"
	StateCheckoutOpen State = "checkout_open"
	StateSubmitting   State = "submitting"
)

// Payment methods the checkout accepts.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

// TokenSource supplies the bearer token for the sale submission.
// The session manager satisfies this.
type TokenSource interface {
	AccessToken() string
	CurrentUser() *models.User
}

// Journal records confirmed sales locally. The terminal store
// satisfies this.
type Journal interface {
	AppendReceipt(r store.Receipt) error
}

// SubmitResult is what a successful submission hands back to the UI.
type SubmitResult struct {
	Sale *models.Sale `json:"sale"`
	// LocalTotal is our preview at submit time. The backend's
	// Sale.TotalAmount wins whenever the two disagree.
	LocalTotal decimal.Decimal `json:"local_total"`
	// Change is only meaningful for cash payments; nil otherwise.
	Change    *decimal.Decimal `json:"change,omitempty"`
	Reference string           `json:"reference"`
}

// Engine runs one sale at a time for this terminal.
type Engine struct {
	client  *backend.Client
	tokens  TokenSource
	journal Journal
	log     zerolog.Logger

	// onSaleComplete fires after a confirmed sale so the catalog can
	// be refetched (server-side stock just changed).
	onSaleComplete func()

	mu       sync.Mutex
	state    State
	lines    []models.CartLine
	discount models.Discount
}

// NewEngine builds an empty-cart engine. onSaleComplete may be nil.
func NewEngine(client *backend.Client, tokens TokenSource, journal Journal, log zerolog.Logger, onSaleComplete func()) *Engine {
	return &Engine{
		client:         client,
		tokens:         tokens,
		journal:        journal,
		log:            log.With().Str("component", "checkout").Logger(),
		onSaleComplete: onSaleComplete,
		state:          StateEmpty,
		discount:       models.Discount{Kind: models.DiscountNone},
	}
}

// State returns the current transaction state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Lines returns a copy of the cart.
func (e *Engine) Lines() []models.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.CartLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// Discount returns the current discount.
func (e *Engine) Discount() models.Discount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discount
}

// AddToCart puts one unit of the product in the cart, or bumps an
// existing line by one. The line never exceeds the product's known
// available stock; an add that would is rejected with ErrStockLimit
// and changes nothing.
func (e *Engine) AddToCart(p models.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return err
	}

	for i := range e.lines {
		if e.lines[i].ProductID == p.ID {
			if e.lines[i].Quantity+1 > e.lines[i].Available {
				return apperr.ErrStockLimit
			}
			e.lines[i].Quantity++
			return nil
		}
	}

	if p.Quantity < 1 {
		return apperr.ErrStockLimit
	}
	e.lines = append(e.lines, models.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
		Unit:      p.Unit,
		Available: p.Quantity,
	})
	e.state = StateBuilding
	return nil
}

// UpdateQuantity applies a delta to a line, clamped to
// [0, available]. A result of 0 removes the line; removing the last
// line empties the cart. Unknown product ids are a no-op.
func (e *Engine) UpdateQuantity(productID uint, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return err
	}

	for i := range e.lines {
		if e.lines[i].ProductID != productID {
			continue
		}
		q := e.lines[i].Quantity + delta
		if q > e.lines[i].Available {
			q = e.lines[i].Available
		}
		if q <= 0 {
			e.removeAt(i)
			return nil
		}
		e.lines[i].Quantity = q
		return nil
	}
	return nil
}

// RemoveFromCart drops a line. Removing a product that is not in the
// cart is fine.
func (e *Engine) RemoveFromCart(productID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return err
	}

	for i := range e.lines {
		if e.lines[i].ProductID == productID {
			e.removeAt(i)
			return nil
		}
	}
	return nil
}

// removeAt deletes a line and fixes up the state. Caller holds the
// lock.
func (e *Engine) removeAt(i int) {
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	if len(e.lines) == 0 {
		e.state = StateEmpty
	}
}

// SetDiscount replaces the discount. Switching kinds resets the value
// to zero first, so a percentage can never be silently reread as a
// fixed amount: set the kind, then set the value.
func (e *Engine) SetDiscount(kind string, value decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return err
	}

	switch kind {
	case models.DiscountNone, models.DiscountPercentage, models.DiscountFixed:
	default:
		return &apperr.ValidationError{Message: fmt.Sprintf("unknown discount kind %q", kind)}
	}
	if value.IsNegative() {
		return &apperr.ValidationError{Message: "discount value cannot be negative"}
	}
	if kind == models.DiscountPercentage && value.GreaterThan(hundred) {
		return &apperr.ValidationError{Message: "percentage discount cannot exceed 100"}
	}

	if kind != e.discount.Kind {
		e.discount = models.Discount{Kind: kind}
		return nil
	}
	e.discount.Value = value
	return nil
}

// Totals computes the current breakdown. Read-only; any state.
func (e *Engine) Totals(taxRatePercent decimal.Decimal) models.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeTotals(e.lines, e.discount, taxRatePercent)
}

// OpenCheckout moves a non-empty cart to the checkout dialog.
func (e *Engine) OpenCheckout() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateEmpty:
		return apperr.ErrCartEmpty
	case StateBuilding:
		e.state = StateCheckoutOpen
		return nil
	case StateCheckoutOpen:
		return nil
	default:
		return apperr.ErrBadState
	}
}

// Cancel backs out of the checkout dialog, cart intact. A submission
// already in flight cannot be cancelled; it has to resolve.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitting:
		return apperr.ErrBadState
	case StateCheckoutOpen:
		e.state = StateBuilding
	}
	return nil
}

// Submit confirms the sale and posts it to the backend. Exactly one
// submission can be in flight; a second call while one is outstanding
// fails with ErrInFlight and sends nothing. For cash, the amount
// tendered must cover the locally previewed total before anything
// leaves the terminal.
//
// On success the cart is cleared and the catalog refresh is kicked; on
// failure the cart and discount are preserved exactly as they were and
// the state returns to checkout-open so the operator can retry.
func (e *Engine) Submit(ctx context.Context, paymentMethod string, amountTendered, taxRatePercent decimal.Decimal) (*SubmitResult, error) {
	e.mu.Lock()
	switch e.state {
	case StateSubmitting:
		e.mu.Unlock()
		return nil, apperr.ErrInFlight
	case StateCheckoutOpen:
	default:
		e.mu.Unlock()
		return nil, apperr.ErrBadState
	}

	totals := ComputeTotals(e.lines, e.discount, taxRatePercent)
	if paymentMethod == PaymentCash && amountTendered.LessThan(totals.Total) {
		e.mu.Unlock()
		return nil, apperr.ErrInsufficientTender
	}

	req := models.SaleRequest{
		Items:         make([]models.SaleItem, 0, len(e.lines)),
		DiscountType:  e.discount.Kind,
		DiscountValue: e.discount.Value,
		PaymentMethod: paymentMethod,
	}
	for _, line := range e.lines {
		req.Items = append(req.Items, models.SaleItem{
			Product:   line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	e.state = StateSubmitting
	e.mu.Unlock()

	sale, err := e.client.CreateSale(ctx, e.tokens.AccessToken(), req)
	if err != nil {
		e.mu.Lock()
		e.state = StateCheckoutOpen
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("sale submission failed, cart preserved")
		return nil, err
	}

	result := &SubmitResult{
		Sale:       sale,
		LocalTotal: totals.Total,
		Reference:  uuid.NewString(),
	}
	if paymentMethod == PaymentCash {
		// Change is computed against the backend's total: that is the
		// amount that actually got charged.
		change := amountTendered.Sub(sale.TotalAmount)
		result.Change = &change
	}

	operator := ""
	if user := e.tokens.CurrentUser(); user != nil {
		operator = user.Username
	}
	if e.journal != nil {
		err := e.journal.AppendReceipt(store.Receipt{
			Reference:     result.Reference,
			SaleID:        sale.ID,
			Total:         sale.TotalAmount.StringFixed(2),
			PaymentMethod: paymentMethod,
			Operator:      operator,
		})
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to journal receipt")
		}
	}

	e.mu.Lock()
	e.lines = nil
	e.discount = models.Discount{Kind: models.DiscountNone}
	e.state = StateEmpty
	e.mu.Unlock()

	e.log.Info().
		Uint("sale_id", sale.ID).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Str("payment", paymentMethod).
		Msg("sale completed")

	if e.onSaleComplete != nil {
		e.onSaleComplete()
	}
	return result, nil
}

// ReconcileStock folds a fresh catalog snapshot into the cart's
// availability bounds. Quantities already in the cart are clamped down
// if the server-side stock shrank; a line whose product vanished or
// hit zero stock is dropped.
func (e *Engine) ReconcileStock(products []models.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSubmitting {
		// Refresh raced a submission; the post-sale refresh will land
		// right after it resolves.
		return
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	kept := e.lines[:0]
	for _, line := range e.lines {
		p, ok := byID[line.ProductID]
		if !ok || p.Quantity < 1 {
			continue
		}
		line.Available = p.Quantity
		if line.Quantity > p.Quantity {
			line.Quantity = p.Quantity
		}
		kept = append(kept, line)
	}
	e.lines = kept
	if len(e.lines) == 0 && e.state == StateBuilding {
		e.state = StateEmpty
	}
}

// mutable guards cart mutations: only valid before checkout opens.
// Caller holds the lock.
func (e *Engine) mutable() error {
	if e.state == StateCheckoutOpen || e.state == StateSubmitting {
		return apperr.ErrBadState
	}
	return nil
}
