package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartLine is one pending (user, dish) selection. The unique index enforces
// at most one line per pair; quantity lives here, price never does — cart
// prices are resolved live at read time.
type CartLine struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:ux_cart_lines_user_dish"`
	DishID    uuid.UUID `json:"dish_id" gorm:"type:uuid;not null;uniqueIndex:ux_cart_lines_user_dish"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *CartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
