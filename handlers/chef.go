package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DishRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	IsAvailable *bool           `json:"is_available"`
	Ingredients []struct {
		Name   string          `json:"name" binding:"required"`
		Price  decimal.Decimal `json:"price"`
		IsFree bool            `json:"is_free"`
	} `json:"ingredients"`
}

// CreateDish adds a new dish owned by the calling chef
func CreateDish(c *gin.Context) {
	chefID := middleware.GetUserID(c)

	var req DishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price cannot be negative", "kind": "invalid_argument"})
		return
	}

	dish := models.Dish{
		ChefID:      chefID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		IsAvailable: true,
	}
	for _, ing := range req.Ingredients {
		dish.Ingredients = append(dish.Ingredients, models.Ingredient{
			Name:   ing.Name,
			Price:  ing.Price,
			IsFree: ing.IsFree,
		})
	}

	if err := config.DB.Create(&dish).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create dish", "kind": "internal"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Dish created", "dish": dish})
}

// ListMyDishes returns the calling chef's dishes
func ListMyDishes(c *gin.Context) {
	chefID := middleware.GetUserID(c)
	var dishes []models.Dish
	config.DB.Preload("Ingredients").Where("chef_id = ?", chefID).Find(&dishes)
	c.JSON(http.StatusOK, gin.H{"count": len(dishes), "dishes": dishes})
}

// UpdateDish mutates a dish's price/description/category — owning chef only
func UpdateDish(c *gin.Context) {
	chefID := middleware.GetUserID(c)
	dish, ok := ownedDish(c, chefID)
	if !ok {
		return
	}

	var req DishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price cannot be negative", "kind": "invalid_argument"})
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"price":       req.Price,
		"image_url":   req.ImageURL,
		"category":    req.Category,
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if err := config.DB.Model(dish).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update dish", "kind": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dish updated", "dish": dish})
}

// DeleteDish removes a dish — owning chef only
func DeleteDish(c *gin.Context) {
	chefID := middleware.GetUserID(c)
	dish, ok := ownedDish(c, chefID)
	if !ok {
		return
	}
	if err := config.DB.Delete(dish).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dish", "kind": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dish deleted"})
}

type PromotionRequest struct {
	DiscountPct float64   `json:"discount_pct" binding:"required"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
}

// CreatePromotion attaches a time-bounded discount to an owned dish
func CreatePromotion(c *gin.Context) {
	chefID := middleware.GetUserID(c)
	dish, ok := ownedDish(c, chefID)
	if !ok {
		return
	}

	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}
	if req.DiscountPct < 0 || req.DiscountPct > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Discount must be between 0 and 100", "kind": "invalid_argument"})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time", "kind": "invalid_argument"})
		return
	}

	promo := models.Promotion{
		DishID:      dish.ID,
		DiscountPct: req.DiscountPct,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Active:      true,
	}
	if err := config.DB.Create(&promo).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promotion", "kind": "internal"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Promotion created", "promotion": promo})
}

// DeletePromotion deactivates a promotion on an owned dish
func DeletePromotion(c *gin.Context) {
	chefID := middleware.GetUserID(c)
	promoID, ok := pathUUID(c, "promoId")
	if !ok {
		return
	}

	var promo models.Promotion
	if err := config.DB.First(&promo, "id = ?", promoID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found", "kind": "not_found"})
		return
	}
	var dish models.Dish
	if err := config.DB.First(&dish, "id = ?", promo.DishID).Error; err != nil || dish.ChefID != chefID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This promotion does not belong to one of your dishes", "kind": "forbidden"})
		return
	}

	config.DB.Model(&promo).Update("active", false)
	c.JSON(http.StatusOK, gin.H{"message": "Promotion deactivated"})
}

func ownedDish(c *gin.Context, chefID uuid.UUID) (*models.Dish, bool) {
	dishID, ok := pathUUID(c, "id")
	if !ok {
		return nil, false
	}
	var dish models.Dish
	if err := config.DB.First(&dish, "id = ?", dishID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found", "kind": "not_found"})
		return nil, false
	}
	if dish.ChefID != chefID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This dish does not belong to you", "kind": "forbidden"})
		return nil, false
	}
	return &dish, true
}
