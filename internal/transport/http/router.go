package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/handlers"
	"github.com/goldenfragrance/shop/internal/handlers/auth"
	"github.com/goldenfragrance/shop/internal/handlers/cart"
	"github.com/goldenfragrance/shop/internal/handlers/orders"
	"github.com/goldenfragrance/shop/internal/service"
)

type Deps struct {
	DB              *gorm.DB
	ProductHandler  *handlers.ProductHandler
	AuthHandler     *auth.AuthHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *orders.OrderHandler
	WishlistHandler *handlers.WishlistHandler
	ReviewHandler   *handlers.ReviewHandler
	ServiceHandler  *service.TokenService
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)
	v1.GET("/home", d.ProductHandler.Home)

	products := v1.Group("/products")

	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.GetReviews)

	v1.GET("/categories", d.ProductHandler.GetCategories)
	v1.GET("/collections", d.ProductHandler.GetCollections)

	// The payment gateway calls this; signature verification replaces auth.
	v1.POST("/orders/webhook", d.OrderHandler.Webhook)

	cartGroup := v1.Group("/cart")

	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("/add/:id", d.CartHandler.AddToCart)
	cartGroup.POST("/update/:id", d.CartHandler.UpdateCart)
	cartGroup.POST("/remove/:id", d.CartHandler.RemoveFromCart)
	cartGroup.POST("/clear", d.CartHandler.ClearCart)

	authed := v1.Group("", d.ServiceHandler.AutoRefreshMiddleware)

	authed.GET("/profile", d.AuthHandler.GetProfile)
	authed.PATCH("/profile", d.AuthHandler.UpdateProfile)

	authed.GET("/wishlist", d.WishlistHandler.GetWishlist)
	authed.POST("/wishlist/toggle/:id", d.WishlistHandler.Toggle)
	authed.POST("/wishlist/add/:id", d.WishlistHandler.Add)
	authed.POST("/wishlist/remove/:id", d.WishlistHandler.Remove)

	authed.POST("/products/:id/reviews", d.ReviewHandler.SubmitReview)

	ordersGroup := v1.Group("/orders", d.ServiceHandler.AutoRefreshMiddleware)

	ordersGroup.POST("/checkout", d.OrderHandler.Checkout)
	ordersGroup.GET("/payment-success/:id", d.OrderHandler.PaymentSuccess)
	ordersGroup.GET("/payment-cancel/:id", d.OrderHandler.PaymentCancel)
	ordersGroup.GET("/history", d.OrderHandler.OrderHistory)
	ordersGroup.GET("/:id", d.OrderHandler.OrderDetail)

	admin := v1.Group("/admin", d.ServiceHandler.AutoRefreshMiddlewareAdmin)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.ProductHandler.CreateCategory)
	admin.POST("/collections", d.ProductHandler.CreateCollection)
	admin.PATCH("/orders/:id/status", d.OrderHandler.SetStatus)
}
