package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PlaceOrderRequest struct {
	DishID          uuid.UUID   `json:"dish_id" binding:"required"`
	Quantity        int         `json:"quantity" binding:"required,min=1"`
	Notes           string      `json:"notes"`
	DeliveryAddress string      `json:"delivery_address" binding:"required"`
	IngredientIDs   []uuid.UUID `json:"ingredient_ids"`
}

// PlaceOrder creates a new order (customer only)
func PlaceOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}

	order, err := orderSvc.Create(c.Request.Context(), customerID, orders.CreateInput{
		DishID:          req.DishID,
		Quantity:        req.Quantity,
		Notes:           req.Notes,
		DeliveryAddress: req.DeliveryAddress,
		IngredientIDs:   req.IngredientIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	list, err := orderSvc.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "orders": list})
}

// GetOrderDetail returns a single order's full detail with history
func GetOrderDetail(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := orderSvc.GetForUser(c.Request.Context(), userID, middleware.GetRole(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	elapsed := time.Since(order.CreatedAt).Minutes()
	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"minutes_elapsed": int(elapsed),
	})
}

// CancelOrder cancels an order (customer can cancel PENDING or CONFIRMED)
func CancelOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := orderSvc.Cancel(c.Request.Context(), customerID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}
