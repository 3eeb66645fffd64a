package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", handlers.Register)
		public.POST("/auth/login", handlers.Login)

		// Dishes & promotions (no auth needed)
		public.GET("/dishes", handlers.ListDishes)
		public.GET("/dishes/:id", handlers.GetDish)
		public.GET("/dishes/:id/promotions", handlers.GetDishPromotions)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/profile", handlers.GetProfile)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleCustomer))
	{
		// Cart
		customer.GET("/cart", handlers.GetCart)
		customer.GET("/cart/count", handlers.CartCount)
		customer.POST("/cart", handlers.AddToCart)
		customer.PUT("/cart/:id", handlers.UpdateCartLine)
		customer.DELETE("/cart/:id", handlers.RemoveCartLine)
		customer.DELETE("/cart", handlers.ClearCart)

		// Orders
		customer.POST("/orders", handlers.PlaceOrder)
		customer.GET("/orders", handlers.GetMyOrders)
		customer.GET("/orders/:id", handlers.GetOrderDetail)
		customer.POST("/orders/:id/cancel", handlers.CancelOrder)
	}

	// ── Chef routes ────────────────────────────────────────────────
	chef := r.Group("/api/chef")
	chef.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleChef))
	{
		// Dish management
		chef.POST("/dishes", handlers.CreateDish)
		chef.GET("/dishes", handlers.ListMyDishes)
		chef.PUT("/dishes/:id", handlers.UpdateDish)
		chef.DELETE("/dishes/:id", handlers.DeleteDish)

		// Promotion management
		chef.POST("/dishes/:id/promotions", handlers.CreatePromotion)
		chef.DELETE("/promotions/:promoId", handlers.DeletePromotion)

		// Order management
		chef.GET("/orders", handlers.GetChefOrders)
		chef.PATCH("/orders/:id/status", handlers.UpdateOrderStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", handlers.AdminGetAllOrders)
		admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus)
		admin.POST("/orders/:id/price", handlers.AdminAdjustPrice)
		admin.GET("/users", handlers.AdminGetAllUsers)
	}
}
