package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"vetpos/internal/store"
)

// GetCart returns the cart lines, the discount and the machine state.
func (h *Handlers) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":    h.Engine.State(),
		"items":    h.Engine.Lines(),
		"discount": h.Engine.Discount(),
	})
}

type addItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// AddCartItem puts one unit of a product in the cart. The product must
// exist in the most recent catalog snapshot; a stale or unknown id is
// a 404, a stock-bound violation is a 409 and never touches the
// network.
func (h *Handlers) AddCartItem(c *gin.Context) {
	var input addItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	product, ok := h.cachedProduct(input.ProductID)
	if !ok {
		// Maybe we simply never fetched; one refresh before giving up.
		if _, err := h.RefreshProducts(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
		if product, ok = h.cachedProduct(input.ProductID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
	}

	if err := h.Engine.AddToCart(product); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.Engine.Lines(), "state": h.Engine.State()})
}

type quantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// UpdateCartItem applies a +/- delta to a line. The engine clamps to
// the known stock and removes the line if it hits zero.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var input quantityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.Engine.UpdateQuantity(uint(id), input.Delta); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.Engine.Lines(), "state": h.Engine.State()})
}

// RemoveCartItem drops a line. Removing something already gone is OK.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	if err := h.Engine.RemoveFromCart(uint(id)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.Engine.Lines(), "state": h.Engine.State()})
}

type discountRequest struct {
	Kind  string          `json:"kind" binding:"required"`
	Value decimal.Decimal `json:"value"`
}

// SetDiscount replaces the cart discount.
func (h *Handlers) SetDiscount(c *gin.Context) {
	var input discountRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.Engine.SetDiscount(input.Kind, input.Value); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discount": h.Engine.Discount()})
}

// GetTotals previews the checkout breakdown with the current tax rate.
// Preview only: the backend recomputes everything at submit time.
func (h *Handlers) GetTotals(c *gin.Context) {
	settings, err := h.taxRate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.Engine.Totals(settings.TaxRate))
}

// OpenCheckout moves the cart into the checkout dialog.
func (h *Handlers) OpenCheckout(c *gin.Context) {
	if err := h.Engine.OpenCheckout(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Engine.State()})
}

// CancelCheckout backs out with the cart intact.
func (h *Handlers) CancelCheckout(c *gin.Context) {
	if err := h.Engine.Cancel(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Engine.State()})
}

type submitRequest struct {
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
}

// SubmitSale confirms the sale. The backend's total is authoritative;
// for cash we also return the change against that total. On any
// failure the cart is preserved for retry.
func (h *Handlers) SubmitSale(c *gin.Context) {
	var input submitRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	settings, err := h.taxRate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.Engine.Submit(c.Request.Context(), input.PaymentMethod, input.AmountTendered, settings.TaxRate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReceipts lists the terminal's local journal, newest first.
func (h *Handlers) GetReceipts(c *gin.Context) {
	receipts, err := h.Store.Receipts(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read receipts"})
		return
	}
	if receipts == nil {
		receipts = []store.Receipt{}
	}
	c.JSON(http.StatusOK, receipts)
}
