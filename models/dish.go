package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dish is a menu item owned by exactly one chef.
type Dish struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ChefID      uuid.UUID       `json:"chef_id" gorm:"type:uuid;not null;index"`
	Chef        User            `json:"chef,omitempty" gorm:"foreignKey:ChefID"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	IsAvailable bool            `json:"is_available" gorm:"default:true"`
	Ingredients []Ingredient    `json:"ingredients,omitempty" gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (d *Dish) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Ingredient is an optional extra a customer can select with a dish.
type Ingredient struct {
	ID     uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	DishID uuid.UUID       `json:"dish_id" gorm:"type:uuid;not null;index"`
	Name   string          `json:"name" gorm:"not null"`
	Price  decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	IsFree bool            `json:"is_free" gorm:"default:false"`
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Promotion is a time-bounded percentage discount attached to a dish.
// The [StartsAt, EndsAt) interval plus the Active flag decide whether it
// applies at a given instant.
type Promotion struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DishID      uuid.UUID `json:"dish_id" gorm:"type:uuid;not null;index"`
	DiscountPct float64   `json:"discount_pct" gorm:"not null"`
	StartsAt    time.Time `json:"starts_at" gorm:"not null"`
	EndsAt      time.Time `json:"ends_at" gorm:"not null;index"`
	Active      bool      `json:"active" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
