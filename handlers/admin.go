package handlers

import (
	"net/http"

	"food-marketplace-api/config"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminGetAllOrders returns all orders with full detail — admin only
func AdminGetAllOrders(c *gin.Context) {
	var orders []models.Order
	query := config.DB.Preload("Dish").Preload("Customer").Preload("StatusHistory")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if chefID := c.Query("chef_id"); chefID != "" {
		query = query.Where("chef_id = ?", chefID)
	}

	query.Order("created_at desc").Find(&orders)

	// Admin dashboard: aggregate by status
	summary := map[string]int{}
	totalRevenue := decimal.Zero
	for _, o := range orders {
		summary[string(o.Status)]++
		if o.Status == models.StatusCompleted {
			totalRevenue = totalRevenue.Add(o.TotalPrice)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"total_revenue": totalRevenue,
		"count":         len(orders),
		"orders":        orders,
	})
}

// AdminGetAllUsers returns all users — admin only
func AdminGetAllUsers(c *gin.Context) {
	var users []models.User
	query := config.DB
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	query.Find(&users)
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

type AdjustPriceRequest struct {
	TotalPrice decimal.Decimal `json:"total_price" binding:"required"`
	Reason     string          `json:"reason" binding:"required"`
}

// AdminAdjustPrice corrects an order's total price with an audit trail.
// Kept separate from status updates on purpose.
func AdminAdjustPrice(c *gin.Context) {
	adminID := middleware.GetUserID(c)
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req AdjustPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}

	order, err := orderSvc.AdjustPrice(c.Request.Context(), adminID, orderID, req.TotalPrice, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order price adjusted", "order": order})
}
