package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AddToCartRequest struct {
	DishID   uuid.UUID `json:"dish_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required"`
}

type UpdateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart renders the customer's cart with live prices
func GetCart(c *gin.Context) {
	userID := middleware.GetUserID(c)
	summary, err := cartSvc.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": summary})
}

// AddToCart adds a dish to the cart, merging into an existing line
func AddToCart(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}

	line, err := cartSvc.Add(c.Request.Context(), userID, req.DishID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Added to cart", "line": line})
}

// UpdateCartLine changes the quantity of an owned line
func UpdateCartLine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	lineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_argument"})
		return
	}

	line, err := cartSvc.Update(c.Request.Context(), userID, lineID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart line updated", "line": line})
}

// RemoveCartLine deletes an owned line
func RemoveCartLine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	lineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := cartSvc.Remove(c.Request.Context(), userID, lineID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart line removed"})
}

// ClearCart removes every line for the customer (idempotent)
func ClearCart(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := cartSvc.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// CartCount returns the total quantity across the cart, for UI badges
func CartCount(c *gin.Context) {
	userID := middleware.GetUserID(c)
	count, err := cartSvc.Count(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
