// Package orders owns the order aggregate: creation with an immutable price
// snapshot and the status state machine with its audit trail and
// notification fan-out.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-marketplace-api/errs"
	"food-marketplace-api/geocode"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"
	"food-marketplace-api/pricing"
	"food-marketplace-api/statemachine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	pricing    *pricing.Resolver
	dispatcher *notify.Dispatcher
	geo        *geocode.Service
	log        *zap.Logger
	now        func() time.Time
}

func NewService(db *gorm.DB, pr *pricing.Resolver, dispatcher *notify.Dispatcher, geo *geocode.Service, log *zap.Logger) *Service {
	return &Service{
		db:         db,
		pricing:    pr,
		dispatcher: dispatcher,
		geo:        geo,
		log:        log,
		now:        time.Now,
	}
}

type CreateInput struct {
	DishID          uuid.UUID
	Quantity        int
	Notes           string
	DeliveryAddress string
	IngredientIDs   []uuid.UUID
}

// Create places a new order. The effective price is resolved once, at now,
// and frozen into TotalPrice; later dish-price or promotion changes never
// touch it. Orders always start PENDING.
func (s *Service) Create(ctx context.Context, customerID uuid.UUID, in CreateInput) (*models.Order, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", errs.ErrInvalidArgument)
	}
	if in.DeliveryAddress == "" {
		return nil, fmt.Errorf("%w: delivery address is required", errs.ErrInvalidArgument)
	}

	now := s.now()
	quote, err := s.pricing.Resolve(ctx, in.DishID, now)
	if err != nil {
		return nil, err
	}

	var dish models.Dish
	if err := s.db.WithContext(ctx).Preload("Ingredients").First(&dish, "id = ?", in.DishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: dish %s", errs.ErrNotFound, in.DishID)
		}
		return nil, err
	}
	if !dish.IsAvailable {
		return nil, fmt.Errorf("%w: dish %q is not available", errs.ErrInvalidArgument, dish.Name)
	}

	snapshots, extras, err := snapshotIngredients(&dish, in.IngredientIDs)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(int64(in.Quantity))
	total := quote.UnitPrice.Add(extras).Mul(qty).Round(2)

	order := models.Order{
		DishID:          dish.ID,
		CustomerID:      customerID,
		ChefID:          dish.ChefID,
		Status:          models.StatusPending,
		Quantity:        in.Quantity,
		Notes:           in.Notes,
		DeliveryAddress: in.DeliveryAddress,
		TotalPrice:      total,
		Ingredients:     snapshots,
	}
	if quote.Promotion != nil {
		promoID := quote.Promotion.ID
		order.AppliedPromotionID = &promoID
	}
	if s.geo != nil {
		if coords, err := s.geo.Lookup(ctx, in.DeliveryAddress); err != nil {
			s.log.Warn("geocoding delivery address failed", zap.Error(err))
		} else {
			order.DeliveryLat = &coords.Lat
			order.DeliveryLon = &coords.Lon
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: customerID,
			Note:      "Order placed by customer",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.OrderCreated(&order)
	return &order, nil
}

// TransitionInput carries the optional fields a status change may set.
type TransitionInput struct {
	To                  models.OrderStatus
	Note                string
	EstimatedDeliveryAt *time.Time
}

// Transition moves an order forward through the state machine on behalf of
// its chef or an admin. Each successful transition appends a history row and
// dispatches exactly one notification; the dispatch never blocks or fails
// the transition.
func (s *Service) Transition(ctx context.Context, actorID uuid.UUID, role models.UserRole, orderID uuid.UUID, in TransitionInput) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var actor string
	switch role {
	case models.RoleChef:
		if order.ChefID != actorID {
			return nil, fmt.Errorf("%w: order %s belongs to another chef", errs.ErrForbidden, orderID)
		}
		actor = "chef"
	case models.RoleAdmin:
		actor = "admin"
	default:
		return nil, fmt.Errorf("%w: only the order's chef or an admin may update its status", errs.ErrForbidden)
	}

	if err := statemachine.CanTransition(order.Status, in.To, actor); err != nil {
		return nil, err
	}

	return s.apply(ctx, order, actorID, in)
}

// Cancel lets the owning customer back out of an order before preparation
// starts.
func (s *Service) Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, fmt.Errorf("%w: order %s belongs to another customer", errs.ErrForbidden, orderID)
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCancelled, "customer"); err != nil {
		return nil, err
	}
	return s.apply(ctx, order, customerID, TransitionInput{
		To:   models.StatusCancelled,
		Note: "Order cancelled by customer",
	})
}

func (s *Service) apply(ctx context.Context, order *models.Order, actorID uuid.UUID, in TransitionInput) (*models.Order, error) {
	from := order.Status
	now := s.now()

	updates := map[string]interface{}{
		"status":     in.To,
		"updated_at": now,
	}
	if in.Note != "" {
		updates["notes"] = in.Note
	}
	if in.EstimatedDeliveryAt != nil {
		updates["estimated_delivery_at"] = *in.EstimatedDeliveryAt
	}
	if in.To == models.StatusCompleted {
		updates["delivered_at"] = now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-set on the status read at validation time: a racing
		// transition that committed in between affects zero rows here, and
		// the loser never writes a history row or dispatches.
		res := tx.Model(order).Where("status = ?", from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s is no longer %s", errs.ErrConflict, order.ID, from)
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   in.To,
			ChangedBy:  actorID,
			Note:       in.Note,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	order.Status = in.To
	order.UpdatedAt = now
	if in.Note != "" {
		order.Notes = in.Note
	}
	if in.EstimatedDeliveryAt != nil {
		order.EstimatedDeliveryAt = in.EstimatedDeliveryAt
	}
	if in.To == models.StatusCompleted {
		deliveredAt := now
		order.DeliveredAt = &deliveredAt
	}
	s.dispatcher.StatusChanged(order, from, in.To)
	return order, nil
}

// AdjustPrice is the explicit, audited price-correction operation. It is
// deliberately separate from status transitions and restricted to admins at
// the route layer.
func (s *Service) AdjustPrice(ctx context.Context, adminID, orderID uuid.UUID, newTotal decimal.Decimal, reason string) (*models.Order, error) {
	if newTotal.IsNegative() {
		return nil, fmt.Errorf("%w: total price cannot be negative", errs.ErrInvalidArgument)
	}
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot adjust price of a %s order", errs.ErrInvalidTransition, order.Status)
	}

	previous := order.TotalPrice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Update("total_price", newTotal.Round(2)).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   order.Status,
			ChangedBy:  adminID,
			Note: fmt.Sprintf("[PRICE ADJUSTMENT] %s → %s: %s",
				previous.StringFixed(2), newTotal.StringFixed(2), reason),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	order.TotalPrice = newTotal.Round(2)
	return order, nil
}

// GetForUser loads an order visible to the given user: its customer, its
// chef, or an admin. Anyone else gets Forbidden, not a silent NotFound.
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID, role models.UserRole, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Dish").
		Preload("Ingredients").
		Preload("StatusHistory").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", errs.ErrNotFound, orderID)
		}
		return nil, err
	}
	if role != models.RoleAdmin && order.CustomerID != userID && order.ChefID != userID {
		return nil, fmt.Errorf("%w: order %s", errs.ErrForbidden, orderID)
	}
	return &order, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Dish").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

// ListForChef returns the chef's incoming orders, optionally filtered by status.
func (s *Service) ListForChef(ctx context.Context, chefID uuid.UUID, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	query := s.db.WithContext(ctx).
		Preload("Dish").
		Preload("Customer").
		Where("chef_id = ?", chefID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at desc").Find(&orders).Error
	return orders, err
}

func (s *Service) get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", errs.ErrNotFound, orderID)
		}
		return nil, err
	}
	return &order, nil
}

// snapshotIngredients copies the selected catalog ingredients into
// denormalized order rows and sums the per-unit extra charge.
func snapshotIngredients(dish *models.Dish, ids []uuid.UUID) ([]models.OrderIngredient, decimal.Decimal, error) {
	extras := decimal.Zero
	if len(ids) == 0 {
		return nil, extras, nil
	}

	byID := make(map[uuid.UUID]*models.Ingredient, len(dish.Ingredients))
	for i := range dish.Ingredients {
		byID[dish.Ingredients[i].ID] = &dish.Ingredients[i]
	}

	snapshots := make([]models.OrderIngredient, 0, len(ids))
	for _, id := range ids {
		ing, ok := byID[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: ingredient %s does not belong to dish %q", errs.ErrInvalidArgument, id, dish.Name)
		}
		snapshots = append(snapshots, models.OrderIngredient{
			Name:   ing.Name,
			Price:  ing.Price,
			IsFree: ing.IsFree,
		})
		if !ing.IsFree {
			extras = extras.Add(ing.Price)
		}
	}
	return snapshots, extras, nil
}
