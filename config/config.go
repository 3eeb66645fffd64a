package config

import (
	"os"

	"food-marketplace-api/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB  *gorm.DB
	Log *zap.Logger
)

// JWTSecret used to sign tokens — read from env or fallback
var JWTSecret []byte

// Load reads .env (if present) and initializes secrets. Call before InitLogger/InitDB.
func Load() {
	_ = godotenv.Load()
	JWTSecret = []byte(GetEnv("JWT_SECRET", "food_marketplace_super_secret_2026"))
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitLogger sets up the global zap logger. Development encoder when ENV=development.
func InitLogger() {
	var err error
	if os.Getenv("ENV") == "development" {
		Log, err = zap.NewDevelopment()
	} else {
		Log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
}

// InitDB connects to Postgres when DATABASE_URL is set, otherwise falls back
// to a local sqlite file, then auto-migrates all models.
func InitDB() {
	var (
		db  *gorm.DB
		err error
	)
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(GetEnv("SQLITE_PATH", "food_marketplace.db")), gormCfg)
	}
	if err != nil {
		Log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := Migrate(db); err != nil {
		Log.Fatal("failed to migrate database", zap.Error(err))
	}

	DB = db
	Log.Info("database connected and migrated")
}

// Migrate runs auto-migration for every model. Exposed so tests can build
// a schema-complete database from scratch.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Dish{},
		&models.Ingredient{},
		&models.Promotion{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderIngredient{},
		&models.OrderStatusHistory{},
	)
}
