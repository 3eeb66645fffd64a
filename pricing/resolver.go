// Package pricing resolves the effective unit price of a dish at a point in
// time, applying at most one active promotion.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-marketplace-api/errs"
	"food-marketplace-api/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Quote is the result of resolving a dish price.
type Quote struct {
	UnitPrice decimal.Decimal
	Promotion *models.Promotion
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve loads the dish and its promotions and returns the effective unit
// price as of the given instant. The only error condition is a missing dish.
func (r *Resolver) Resolve(ctx context.Context, dishID uuid.UUID, asOf time.Time) (Quote, error) {
	var dish models.Dish
	if err := r.db.WithContext(ctx).First(&dish, "id = ?", dishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, fmt.Errorf("%w: dish %s", errs.ErrNotFound, dishID)
		}
		return Quote{}, err
	}

	var promos []models.Promotion
	if err := r.db.WithContext(ctx).
		Where("dish_id = ? AND active = ? AND starts_at <= ? AND ends_at > ?", dishID, true, asOf, asOf).
		Find(&promos).Error; err != nil {
		return Quote{}, err
	}

	return QuoteDish(&dish, promos, asOf), nil
}

// QuoteDish is the pure core of the resolver. The candidate promotions must
// already be filtered to active rows; interval containment is re-checked so
// the function is safe on unfiltered input too. When several promotions
// overlap, the highest discount wins and creation time breaks ties.
func QuoteDish(dish *models.Dish, promos []models.Promotion, asOf time.Time) Quote {
	var best *models.Promotion
	for i := range promos {
		p := &promos[i]
		if !p.Active || asOf.Before(p.StartsAt) || !asOf.Before(p.EndsAt) {
			continue
		}
		if best == nil ||
			p.DiscountPct > best.DiscountPct ||
			(p.DiscountPct == best.DiscountPct && p.CreatedAt.After(best.CreatedAt)) {
			best = p
		}
	}
	if best == nil {
		return Quote{UnitPrice: dish.Price}
	}
	return Quote{UnitPrice: Discounted(dish.Price, best.DiscountPct), Promotion: best}
}

// Discounted applies a percentage discount to a price, rounded to currency
// precision (2 decimals, half-up).
func Discounted(price decimal.Decimal, pct float64) decimal.Decimal {
	discount := price.Mul(decimal.NewFromFloat(pct)).Div(hundred)
	return price.Sub(discount).Round(2)
}
