package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/fulfillment-service/controllers"
	"github.com/yashrajoria/fulfillment-service/middleware"
)

// Controllers groups every HTTP handler set the service exposes.
type Controllers struct {
	Cart          *controllers.CartController
	Orders        *controllers.OrderController
	Inventory     *controllers.InventoryController
	Notifications *controllers.NotificationController
	Reviews       *controllers.ReviewController
	Payments      *controllers.PaymentController
}

// RegisterRoutes registers all fulfillment service routes
func RegisterRoutes(r *gin.Engine, ctrl Controllers, webhookSecret string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	cart := r.Group("/cart", middleware.AuthMiddleware())
	{
		cart.GET("", ctrl.Cart.GetCart)
		cart.DELETE("", ctrl.Cart.ClearCart)
		cart.POST("/items", ctrl.Cart.AddItem)
		cart.PATCH("/items/:id", ctrl.Cart.UpdateItem)
		cart.DELETE("/items/:id", ctrl.Cart.RemoveItem)
		cart.POST("/voucher", ctrl.Cart.ApplyVoucher)
		cart.DELETE("/voucher", ctrl.Cart.RemoveVoucher)
	}

	orders := r.Group("/orders", middleware.AuthMiddleware())
	{
		orders.POST("", ctrl.Orders.CreateOrder)
		orders.GET("", ctrl.Orders.GetOrders) // User's own orders
		orders.GET("/:id", ctrl.Orders.GetOrderByID)
		orders.POST("/:id/cancel", ctrl.Orders.CancelOrder)
	}

	notifications := r.Group("/notifications", middleware.AuthMiddleware())
	{
		notifications.GET("", ctrl.Notifications.GetNotifications)
		notifications.PATCH("/:id/read", ctrl.Notifications.MarkRead)
	}

	r.POST("/products/:id/reviews", middleware.AuthMiddleware(), ctrl.Reviews.CreateReview)

	admin := r.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.GET("/orders", ctrl.Orders.GetAllOrders)
		admin.GET("/orders/:id", ctrl.Orders.AdminGetOrder)
		admin.PATCH("/orders/:id/status", ctrl.Orders.UpdateOrderStatus)
		admin.POST("/orders/:id/cancel", ctrl.Orders.AdminCancelOrder)

		admin.GET("/inventory/variants/:variant_id", ctrl.Inventory.GetVariantStock)
		admin.PUT("/inventory/variants/:variant_id", ctrl.Inventory.SyncStock)
		admin.PUT("/inventory/stocks", ctrl.Inventory.UpsertStock)
		admin.PATCH("/inventory/stocks/:id", ctrl.Inventory.AdjustStock)
		admin.POST("/inventory/transfers", ctrl.Inventory.TransferStock)
		admin.GET("/inventory/logs", ctrl.Inventory.GetHistory)
	}

	// Called by the payment provider, not by users
	r.POST("/webhooks/payments", middleware.WebhookSecret(webhookSecret), ctrl.Payments.HandleWebhook)
}
