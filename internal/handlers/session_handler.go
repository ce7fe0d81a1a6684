package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login signs the operator in. Fails closed: a rejected sign-in leaves
// no token anywhere, in memory or on disk.
func (h *Handlers) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.Session.SignIn(c.Request.Context(), input.Username, input.Password); err != nil {
		writeError(c, err)
		return
	}

	// Warm the catalog so the sales screen opens with live stock.
	// Failure is not a sign-in failure; the first GET /products will
	// try again.
	if _, err := h.RefreshProducts(c.Request.Context()); err != nil {
		h.Log.Warn().Err(err).Msg("catalog warm-up failed after sign-in")
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  h.Session.CurrentUser(),
		"views": h.Session.PermittedViews(),
	})
}

// Logout clears the session. Already signed out is fine.
func (h *Handlers) Logout(c *gin.Context) {
	h.Session.SignOut()
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// GetSession reports who is signed in, whether bootstrap is still
// running, and which views the operator may open. The UI renders
// nothing protected while loading is true.
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"loading": h.Session.Loading(),
		"user":    h.Session.CurrentUser(),
		"views":   h.Session.PermittedViews(),
	})
}
