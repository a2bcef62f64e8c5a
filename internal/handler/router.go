package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/foodville/marketplace-api/internal/middleware"
)

// Handlers groups every resource handler mounted under /api/v1.
type Handlers struct {
	Account  *AccountHandler
	Store    *StoreHandler
	Category *CategoryHandler
	Product  *ProductHandler
	Cart     *CartHandler
	Order    *OrderHandler
	Feedback *FeedbackHandler
	Feed     *FeedHandler
	Health   *HealthHandler
}

// Guards are the per-route middlewares. RateLimit runs after authentication
// so it can key on the user.
type Guards struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	RateLimit    gin.HandlerFunc
}

// Register mounts the ops endpoints and the versioned API on router.
func Register(router gin.IRouter, h Handlers, g Guards) {
	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)
	router.GET("/ws/orders", middleware.TokenFromQuery(), g.Auth, h.Feed.Orders)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth", g.RateLimit)
		auth.POST("/register", h.Account.Register)
		auth.POST("/login", h.Account.Login)

		public := v1.Group("", g.OptionalAuth, g.RateLimit)
		public.GET("/stores", h.Store.List)
		public.GET("/stores/:id", h.Store.Get)
		public.GET("/products", h.Product.List)
		public.GET("/products/:id", h.Product.Get)

		api := v1.Group("", g.Auth, g.RateLimit)

		api.GET("/users/me", h.Account.Me)
		api.PATCH("/users/me", h.Account.UpdateMe)

		api.GET("/stores/me", h.Store.MyStore)
		api.POST("/stores", h.Store.Create)
		api.PATCH("/stores/:id", h.Store.Update)
		api.DELETE("/stores/:id", h.Store.Delete)
		api.PUT("/stores/:id/image", h.Store.SetImage)

		api.GET("/categories", h.Category.List)
		api.POST("/categories", h.Category.Create)
		api.GET("/categories/:id", h.Category.Get)
		api.PATCH("/categories/:id", h.Category.Update)
		api.DELETE("/categories/:id", h.Category.Delete)

		api.GET("/products/mine", h.Product.Mine)
		api.GET("/products/mine/export", h.Product.Export)
		api.POST("/products", h.Product.Create)
		api.PATCH("/products/:id", h.Product.Update)
		api.DELETE("/products/:id", h.Product.Delete)
		api.PUT("/products/:id/image", h.Product.SetImage)

		api.GET("/cart", h.Cart.GetCart)
		api.GET("/cartitems", h.Cart.ListItems)
		api.POST("/cartitems", h.Cart.AddItem)
		api.GET("/cartitems/:id", h.Cart.GetItem)
		api.PATCH("/cartitems/:id", h.Cart.UpdateItem)
		api.DELETE("/cartitems/:id", h.Cart.DeleteItem)

		api.POST("/orders", h.Order.Checkout)
		api.GET("/orders/mine", h.Order.MyOrders)
		api.GET("/orders/store", h.Order.MyStoreOrders)
		api.GET("/orders/:id", h.Order.Get)
		api.PATCH("/orders/:id/status", h.Order.UpdateStatus)

		api.GET("/feedbacks", h.Feedback.List)
		api.POST("/feedbacks", h.Feedback.Create)
	}
}
