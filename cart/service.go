// Package cart implements the customer's cart: one line per (user, dish)
// pair, live-priced at read time.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-marketplace-api/errs"
	"food-marketplace-api/models"
	"food-marketplace-api/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	pricing *pricing.Resolver
	log     *zap.Logger
}

func NewService(db *gorm.DB, pr *pricing.Resolver, log *zap.Logger) *Service {
	return &Service{db: db, pricing: pr, log: log}
}

// LineView is one cart line rendered with its live price.
type LineView struct {
	LineID      uuid.UUID       `json:"line_id"`
	DishID      uuid.UUID       `json:"dish_id"`
	DishName    string          `json:"dish_name"`
	Unavailable bool            `json:"unavailable,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct float64         `json:"discount_pct,omitempty"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Summary struct {
	Lines      []LineView      `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}

// Get renders the user's cart with prices resolved at read time. A line
// whose dish no longer exists is rendered as a zero-priced placeholder
// rather than failing the whole read.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Summary, error) {
	var lines []models.CartLine
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&lines).Error; err != nil {
		return Summary{}, err
	}

	now := time.Now()
	summary := Summary{Lines: make([]LineView, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		view := LineView{LineID: line.ID, DishID: line.DishID, Quantity: line.Quantity}
		quote, err := s.pricing.Resolve(ctx, line.DishID, now)
		if err != nil {
			if !errors.Is(err, errs.ErrNotFound) {
				return Summary{}, err
			}
			view.DishName = "(no longer available)"
			view.Unavailable = true
			view.UnitPrice = decimal.Zero
			view.LineTotal = decimal.Zero
		} else {
			var dish models.Dish
			if err := s.db.WithContext(ctx).Select("name").First(&dish, "id = ?", line.DishID).Error; err == nil {
				view.DishName = dish.Name
			}
			view.UnitPrice = quote.UnitPrice
			if quote.Promotion != nil {
				view.DiscountPct = quote.Promotion.DiscountPct
			}
			view.LineTotal = quote.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}
		summary.Subtotal = summary.Subtotal.Add(view.LineTotal)
		summary.TotalItems += line.Quantity
		summary.Lines = append(summary.Lines, view)
	}
	return summary, nil
}

// Add creates a line for (userID, dishID) or increments the existing one.
// Increment first, insert on miss, retry as increment on a unique violation:
// two racing first adds collapse into one line via the unique index.
func (s *Service) Add(ctx context.Context, userID, dishID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", errs.ErrInvalidArgument)
	}

	var dish models.Dish
	if err := s.db.WithContext(ctx).First(&dish, "id = ?", dishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: dish %s", errs.ErrNotFound, dishID)
		}
		return nil, err
	}

	if ok, err := s.increment(ctx, userID, dishID, quantity); err != nil {
		return nil, err
	} else if !ok {
		line := models.CartLine{UserID: userID, DishID: dishID, Quantity: quantity}
		err := s.db.WithContext(ctx).Create(&line).Error
		if err == nil {
			return &line, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Lost the insert race: another request created the line first.
		if _, err := s.increment(ctx, userID, dishID, quantity); err != nil {
			return nil, fmt.Errorf("%w: concurrent cart update", errs.ErrConflict)
		}
	}

	var line models.CartLine
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND dish_id = ?", userID, dishID).
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The line was removed out from under us after the write.
			return nil, fmt.Errorf("%w: concurrent cart update", errs.ErrConflict)
		}
		return nil, err
	}
	return &line, nil
}

func (s *Service) increment(ctx context.Context, userID, dishID uuid.UUID, quantity int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("user_id = ? AND dish_id = ?", userID, dishID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Update sets the quantity of an owned line. Quantity below 1 is rejected,
// never clamped.
func (s *Service) Update(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", errs.ErrInvalidArgument)
	}

	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}

	line.Quantity = quantity
	if err := s.db.WithContext(ctx).Model(line).Update("quantity", quantity).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// Remove deletes an owned line. A line owned by someone else fails with
// Forbidden, a missing line with NotFound — the two are never conflated.
func (s *Service) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(line).Error
}

// Clear drops every line for the user. Idempotent.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLine{}).Error
}

// Count returns the sum of quantities across the user's lines.
func (s *Service) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

func (s *Service) ownedLine(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	if err := s.db.WithContext(ctx).First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: cart line %s", errs.ErrNotFound, lineID)
		}
		return nil, err
	}
	if line.UserID != userID {
		return nil, fmt.Errorf("%w: cart line %s belongs to another user", errs.ErrForbidden, lineID)
	}
	return &line, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
