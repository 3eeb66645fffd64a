package orders_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/errs"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"
	"food-marketplace-api/orders"
	"food-marketplace-api/pricing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func setup(t *testing.T) (*gorm.DB, *orders.Service, *recordingPublisher) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	pub := &recordingPublisher{}
	svc := orders.NewService(db, pricing.NewResolver(db), notify.NewDispatcher(pub, zap.NewNop()), nil, zap.NewNop())
	return db, svc, pub
}

func createDish(t *testing.T, db *gorm.DB, price string) *models.Dish {
	t.Helper()
	dish := &models.Dish{
		ChefID:      uuid.New(),
		Name:        "Mafé de boeuf",
		Price:       decimal.RequireFromString(price),
		IsAvailable: true,
	}
	require.NoError(t, db.Create(dish).Error)
	return dish
}

func placeOrder(t *testing.T, svc *orders.Service, dishID uuid.UUID) (*models.Order, uuid.UUID) {
	t.Helper()
	customerID := uuid.New()
	order, err := svc.Create(context.Background(), customerID, orders.CreateInput{
		DishID:          dishID,
		Quantity:        1,
		DeliveryAddress: "12 rue des Lilas, Paris",
	})
	require.NoError(t, err)
	return order, customerID
}

func TestCreate_SnapshotsPromotionalPrice(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	now := time.Now()
	require.NoError(t, db.Create(&models.Promotion{
		DishID:      dish.ID,
		DiscountPct: 10,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(time.Hour),
		Active:      true,
	}).Error)

	order, _ := placeOrder(t, svc, dish.ID)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("18.00")), "got %s", order.TotalPrice)
	assert.NotNil(t, order.AppliedPromotionID)

	// Later price changes never touch the snapshot
	require.NoError(t, db.Model(dish).Update("price", decimal.RequireFromString("99.00")).Error)
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.True(t, reloaded.TotalPrice.Equal(decimal.RequireFromString("18.00")))
}

func TestCreate_Validation(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), orders.CreateInput{DishID: dish.ID, Quantity: 0, DeliveryAddress: "x"})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = svc.Create(ctx, uuid.New(), orders.CreateInput{DishID: dish.ID, Quantity: 1})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = svc.Create(ctx, uuid.New(), orders.CreateInput{DishID: uuid.New(), Quantity: 1, DeliveryAddress: "x"})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCreate_IngredientSnapshotSurvivesCatalogChanges(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "10.00")
	paid := models.Ingredient{DishID: dish.ID, Name: "Extra cheese", Price: decimal.RequireFromString("1.50")}
	free := models.Ingredient{DishID: dish.ID, Name: "Harissa", Price: decimal.Zero, IsFree: true}
	require.NoError(t, db.Create(&paid).Error)
	require.NoError(t, db.Create(&free).Error)

	order, err := svc.Create(context.Background(), uuid.New(), orders.CreateInput{
		DishID:          dish.ID,
		Quantity:        2,
		DeliveryAddress: "3 avenue Jean Jaurès, Lyon",
		IngredientIDs:   []uuid.UUID{paid.ID, free.ID},
	})
	require.NoError(t, err)

	// (10.00 + 1.50) * 2
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("23.00")), "got %s", order.TotalPrice)

	require.NoError(t, db.Model(&paid).Update("name", "Renamed").Error)

	var snaps []models.OrderIngredient
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&snaps).Error)
	require.Len(t, snaps, 2)
	names := []string{snaps[0].Name, snaps[1].Name}
	assert.Contains(t, names, "Extra cheese", "snapshot is decoupled from the catalog")
}

func TestCreate_RejectsForeignIngredient(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "10.00")
	other := createDish(t, db, "10.00")
	foreign := models.Ingredient{DishID: other.ID, Name: "Olives", Price: decimal.Zero, IsFree: true}
	require.NoError(t, db.Create(&foreign).Error)

	_, err := svc.Create(context.Background(), uuid.New(), orders.CreateInput{
		DishID:          dish.ID,
		Quantity:        1,
		DeliveryAddress: "x",
		IngredientIDs:   []uuid.UUID{foreign.ID},
	})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestTransition_CannotSkipStates(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)

	_, err := svc.Transition(context.Background(), dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{
		To: models.StatusReady,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusPending, reloaded.Status)
}

func TestTransition_FullLifecycleWithAudit(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)
	ctx := context.Background()

	for _, to := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusCompleted,
	} {
		updated, err := svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{To: to})
		require.NoError(t, err, "transition to %s", to)
		assert.Equal(t, to, updated.Status)
	}

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.DeliveredAt)

	// One history row per transition plus the creation row
	var history []models.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", order.ID).Order("created_at asc").Find(&history).Error)
	assert.Len(t, history, 5)
}

func TestTransition_ForeignChefForbidden(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)

	_, err := svc.Transition(context.Background(), uuid.New(), models.RoleChef, order.ID, orders.TransitionInput{
		To: models.StatusConfirmed,
	})
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}

func TestTransition_AdminMayDriveAnyOrder(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)

	updated, err := svc.Transition(context.Background(), uuid.New(), models.RoleAdmin, order.ID, orders.TransitionInput{
		To: models.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
}

func TestCancel_OnlyBeforePreparing(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	// PENDING: cancellable
	dish := createDish(t, db, "20.00")
	order, customerID := placeOrder(t, svc, dish.ID)
	cancelled, err := svc.Cancel(ctx, customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// PREPARING: too late
	order, customerID = placeOrder(t, svc, dish.ID)
	_, err = svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{To: models.StatusConfirmed})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{To: models.StatusPreparing})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, customerID, order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
}

func TestCancel_ForeignCustomerForbidden(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)

	_, err := svc.Cancel(context.Background(), uuid.New(), order.ID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}

func TestTransitions_NotifyChefAndCustomer(t *testing.T) {
	db, svc, pub := setup(t)
	dish := createDish(t, db, "20.00")
	order, customerID := placeOrder(t, svc, dish.ID)

	// creation fans out to both parties
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 10*time.Millisecond)

	_, err := svc.Transition(context.Background(), dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{
		To: models.StatusConfirmed,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return pub.count() == 4 }, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Contains(t, pub.topics, notify.ChefTopic(dish.ChefID))
	assert.Contains(t, pub.topics, notify.UserTopic(customerID))
}

func TestTransition_ResponseCarriesUpdatedFields(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)
	ctx := context.Background()

	eta := time.Now().Add(45 * time.Minute)
	updated, err := svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{
		To:                  models.StatusConfirmed,
		Note:                "Ready in 45 minutes",
		EstimatedDeliveryAt: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ready in 45 minutes", updated.Notes)
	require.NotNil(t, updated.EstimatedDeliveryAt)
	assert.True(t, updated.EstimatedDeliveryAt.Equal(eta))

	for _, to := range []models.OrderStatus{models.StatusPreparing, models.StatusReady} {
		_, err = svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{To: to})
		require.NoError(t, err)
	}
	completed, err := svc.Transition(ctx, dish.ChefID, models.RoleChef, order.ID, orders.TransitionInput{
		To: models.StatusCompleted,
	})
	require.NoError(t, err)
	assert.NotNil(t, completed.DeliveredAt, "completion stamps the returned order")
}

func TestAdjustPrice_AuditedAndBounded(t *testing.T) {
	db, svc, _ := setup(t)
	dish := createDish(t, db, "20.00")
	order, _ := placeOrder(t, svc, dish.ID)
	adminID := uuid.New()
	ctx := context.Background()

	_, err := svc.AdjustPrice(ctx, adminID, order.ID, decimal.RequireFromString("-1"), "oops")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	updated, err := svc.AdjustPrice(ctx, adminID, order.ID, decimal.RequireFromString("17.50"), "goodwill discount")
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.Equal(decimal.RequireFromString("17.50")))

	var history []models.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&history).Error)
	found := false
	for _, h := range history {
		if h.ChangedBy == adminID {
			assert.Contains(t, h.Note, "[PRICE ADJUSTMENT]")
			found = true
		}
	}
	assert.True(t, found, "price adjustment must leave an audit row")
}
