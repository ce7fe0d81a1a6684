package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vetpos/internal/models"
)

// GetProducts refetches the catalog from the backend. Each fetch also
// re-bounds the cart: stock sold from another terminal shrinks what
// this one may add.
func (h *Handlers) GetProducts(c *gin.Context) {
	products, err := h.RefreshProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetSettings returns shop settings (tax rate included).
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.taxRate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetSuppliers proxies the supplier listing.
func (h *Handlers) GetSuppliers(c *gin.Context) {
	suppliers, err := h.Client.Suppliers(c.Request.Context(), h.Session.AccessToken())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// GetRestockHistory proxies past restocking activity.
func (h *Handlers) GetRestockHistory(c *gin.Context) {
	records, err := h.Client.RestockHistory(c.Request.Context(), h.Session.AccessToken())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type restockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Supplier string `json:"supplier"`
}

// RestockProduct adds stock to a product on the backend, then
// refreshes the catalog so the new availability reaches the cart
// bounds immediately.
func (h *Handlers) RestockProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var input restockRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	product, err := h.Client.Restock(c.Request.Context(), h.Session.AccessToken(), uint(id), input.Quantity, input.Supplier)
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := h.RefreshProducts(c.Request.Context()); err != nil {
		h.Log.Warn().Err(err).Msg("catalog refresh failed after restock")
	}
	c.JSON(http.StatusOK, product)
}

// GetCustomers proxies the customer listing.
func (h *Handlers) GetCustomers(c *gin.Context) {
	customers, err := h.Client.Customers(c.Request.Context(), h.Session.AccessToken())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetUsers lists staff accounts.
func (h *Handlers) GetUsers(c *gin.Context) {
	users, err := h.Client.Users(c.Request.Context(), h.Session.AccessToken())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser creates a staff account. Field rejections (duplicate
// email and friends) come back as validation errors with the backend's
// own message so the form can show them inline.
func (h *Handlers) CreateUser(c *gin.Context) {
	var input models.NewUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.Client.CreateUser(c.Request.Context(), h.Session.AccessToken(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// DeleteUser removes a staff account.
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.Client.DeleteUser(c.Request.Context(), h.Session.AccessToken(), uint(id)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
