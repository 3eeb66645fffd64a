package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

type Order struct {
	ID                  uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	DishID              uuid.UUID       `json:"dish_id" gorm:"type:uuid;not null;index"`
	Dish                Dish            `json:"dish,omitempty" gorm:"foreignKey:DishID"`
	CustomerID          uuid.UUID       `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer            User            `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	ChefID              uuid.UUID       `json:"chef_id" gorm:"type:uuid;not null;index"`
	Status              OrderStatus     `json:"status" gorm:"not null;default:'PENDING';index"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	Notes               string          `json:"notes"`
	DeliveryAddress     string          `json:"delivery_address" gorm:"not null"`
	DeliveryLat         *float64        `json:"delivery_lat,omitempty"`
	DeliveryLon         *float64        `json:"delivery_lon,omitempty"`
	EstimatedDeliveryAt *time.Time      `json:"estimated_delivery_at,omitempty"`
	DeliveredAt         *time.Time      `json:"delivered_at,omitempty"`
	// TotalPrice is captured once at creation and never recomputed from the
	// dish — the deliberate opposite of the cart's live-pricing model.
	TotalPrice         decimal.Decimal      `json:"total_price" gorm:"type:numeric;not null"`
	AppliedPromotionID *uuid.UUID           `json:"applied_promotion_id,omitempty" gorm:"type:uuid"`
	Ingredients        []OrderIngredient    `json:"ingredients,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory      []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderIngredient is a denormalized snapshot of an ingredient selection at
// order time, so historical orders stay accurate if the catalog changes.
type OrderIngredient struct {
	ID      uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	Name    string          `json:"name" gorm:"not null"`
	Price   decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	IsFree  bool            `json:"is_free"`
}

func (i *OrderIngredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// OrderStatusHistory tracks every status change — audit trail
type OrderStatusHistory struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uuid.UUID   `json:"changed_by" gorm:"type:uuid"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
