package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vetpos/internal/middleware"
	"vetpos/internal/models"
)

// NewRouter assembles the terminal's HTTP surface. Route groups mirror
// the dashboard's tabs: sales for admin+cashier, inventory and
// suppliers for admin+inventory_manager, everything else admin only.
func NewRouter(h *Handlers, allowedOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{allowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })

	// Session endpoints are open: login obviously, and GET /session so
	// the UI can poll the bootstrap state before anyone is signed in.
	r.POST("/session/login", h.Login)
	r.POST("/session/logout", h.Logout)
	r.GET("/session", h.GetSession)

	api := r.Group("/api")
	api.Use(middleware.RequireSession(h.Session))
	{
		// Any signed-in operator: the overview screen's reads.
		api.GET("/products", h.GetProducts)
		api.GET("/settings", h.GetSettings)

		// SALES: admin + cashier.
		sales := api.Group("/cart")
		sales.Use(middleware.RequireRole(h.Session, models.RoleAdmin, models.RoleCashier))
		{
			sales.GET("", h.GetCart)
			sales.GET("/totals", h.GetTotals)
			sales.POST("/items", h.AddCartItem)
			sales.PATCH("/items/:id", h.UpdateCartItem)
			sales.DELETE("/items/:id", h.RemoveCartItem)
			sales.PUT("/discount", h.SetDiscount)
			sales.POST("/checkout", h.OpenCheckout)
			sales.POST("/cancel", h.CancelCheckout)
			sales.POST("/submit", h.SubmitSale)
		}
		api.GET("/receipts",
			middleware.RequireRole(h.Session, models.RoleAdmin, models.RoleCashier),
			h.GetReceipts)

		// INVENTORY: admin + inventory_manager.
		inventory := api.Group("/")
		inventory.Use(middleware.RequireRole(h.Session, models.RoleAdmin, models.RoleInventoryManager))
		{
			inventory.GET("/suppliers", h.GetSuppliers)
			inventory.GET("/restock-history", h.GetRestockHistory)
			inventory.POST("/products/:id/restock", h.RestockProduct)
		}

		// ADMIN ONLY.
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(h.Session, models.RoleAdmin))
		{
			admin.GET("/customers", h.GetCustomers)
			admin.GET("/users", h.GetUsers)
			admin.POST("/users", h.CreateUser)
			admin.DELETE("/users/:id", h.DeleteUser)
		}
	}

	// Serve the dashboard build. SPA catch-all: a refresh on /sales
	// still gets index.html so the client router can take over.
	r.Static("/assets", "./web/assets")
	r.NoRoute(func(c *gin.Context) {
		c.File("./web/index.html")
	})

	return r
}
