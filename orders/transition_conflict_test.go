package orders

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/errs"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"
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

// A rival transition that commits between validation and the write must make
// the second writer lose: the status update is a compare-and-set on the
// status the writer validated against.
func TestCancel_LosesAgainstConcurrentlyCommittedTransition(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	svc := NewService(db, pricing.NewResolver(db), notify.NewDispatcher(nil, zap.NewNop()), nil, zap.NewNop())

	dish := &models.Dish{
		ChefID:      uuid.New(),
		Name:        "Pad thaï",
		Price:       decimal.RequireFromString("14.00"),
		IsAvailable: true,
	}
	require.NoError(t, db.Create(dish).Error)

	customerID := uuid.New()
	order, err := svc.Create(context.Background(), customerID, CreateInput{
		DishID:          dish.ID,
		Quantity:        1,
		DeliveryAddress: "8 rue Oberkampf, Paris",
	})
	require.NoError(t, err)

	// Cancel validates against PENDING, then reads the clock before writing.
	// Commit a rival CONFIRMED exactly in that window.
	var raced bool
	svc.now = func() time.Time {
		if !raced {
			raced = true
			require.NoError(t, db.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("status", models.StatusConfirmed).Error)
		}
		return time.Now()
	}

	_, err = svc.Cancel(context.Background(), customerID, order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConflict))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusConfirmed, reloaded.Status, "the committed transition stands")

	var history []models.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&history).Error)
	for _, h := range history {
		assert.NotEqual(t, models.StatusCancelled, h.ToStatus, "the losing write leaves no audit row")
	}
}
