package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vetpos/internal/session"
)

// RequireSession blocks requests until an operator is signed in.
// While the session bootstrap is still running the auth state is
// unknown, so we answer 503 rather than a misleading 401: the UI must
// neither render protected data nor bounce to the login screen yet.
func RequireSession(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if mgr.Loading() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session is still initializing"})
			c.Abort()
			return
		}

		user := mgr.CurrentUser()
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not signed in"})
			c.Abort()
			return
		}

		// Stash the operator for the handlers downstream.
		c.Set("user", user)
		c.Next()
	}
}

// RequireRole guards a route group behind one or more roles. The check
// goes through the session manager's single predicate, so the HTTP
// surface can never disagree with the permitted-views set.
func RequireRole(mgr *session.Manager, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mgr.HasRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			c.Abort()
			return
		}
		c.Next()
	}
}
