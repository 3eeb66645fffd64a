package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/models"
	"food-marketplace-api/pricing"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListDishes returns all available dishes (public)
func ListDishes(c *gin.Context) {
	var dishes []models.Dish
	query := config.DB.Preload("Chef")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if c.Query("available") == "true" {
		query = query.Where("is_available = ?", true)
	}

	query.Find(&dishes)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(dishes),
		"dishes": dishes,
	})
}

// GetDish returns a single dish with its ingredients and the effective
// price as of now
func GetDish(c *gin.Context) {
	dishID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var dish models.Dish
	if err := config.DB.Preload("Ingredients").First(&dish, "id = ?", dishID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found", "kind": "not_found"})
		return
	}

	var promos []models.Promotion
	now := time.Now()
	config.DB.Where("dish_id = ? AND active = ? AND starts_at <= ? AND ends_at > ?",
		dish.ID, true, now, now).Find(&promos)
	quote := pricing.QuoteDish(&dish, promos, now)

	resp := gin.H{
		"dish":            dish,
		"effective_price": quote.UnitPrice,
	}
	if quote.Promotion != nil {
		resp["promotion"] = quote.Promotion
	}
	c.JSON(http.StatusOK, resp)
}

// GetDishPromotions lists the promotions attached to a dish (public)
func GetDishPromotions(c *gin.Context) {
	dishID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var dish models.Dish
	if err := config.DB.First(&dish, "id = ?", dishID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found", "kind": "not_found"})
		return
	}

	var promos []models.Promotion
	query := config.DB.Where("dish_id = ?", dishID)
	if c.Query("active") == "true" {
		query = query.Where("active = ?", true)
	}
	query.Order("starts_at desc").Find(&promos)

	c.JSON(http.StatusOK, gin.H{
		"dish":       dish.Name,
		"count":      len(promos),
		"promotions": promos,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	var info []gin.H
	for _, t := range statemachine.GetAllTransitions() {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": []models.OrderStatus{models.StatusCompleted, models.StatusCancelled, models.StatusRejected},
		"description":     "Food Marketplace Order Lifecycle State Machine",
	})
}
