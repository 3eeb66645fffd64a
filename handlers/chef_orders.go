package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/orders"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetChefOrders returns all incoming orders for the calling chef
func GetChefOrders(c *gin.Context) {
	chefID := middleware.GetUserID(c)

	list, err := orderSvc.ListForChef(c.Request.Context(), chefID, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}

	// Group counts by status — dashboard summary
	summary := map[string]int{}
	for _, o := range list {
		summary[string(o.Status)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(list),
		"orders":        list,
	})
}

type UpdateOrderStatusRequest struct {
	Status              models.OrderStatus `json:"status" binding:"required"`
	Note                string             `json:"note"`
	EstimatedDeliveryAt *time.Time         `json:"estimated_delivery_at"`
}

// UpdateOrderStatus handles the chef's (or an admin's) state transitions
func UpdateOrderStatus(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}

	order, err := orderSvc.Transition(c.Request.Context(), actorID, middleware.GetRole(c), orderID, orders.TransitionInput{
		To:                  req.Status,
		Note:                req.Note,
		EstimatedDeliveryAt: req.EstimatedDeliveryAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Order status updated",
		"order":             order,
		"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
	})
}
