package database

import (
	"fmt"
	"time"

	"registration-service/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

func (c Config) validate() error {
	if c.User == "" {
		return fmt.Errorf("POSTGRES_USER not set")
	}
	if c.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD not set")
	}
	if c.Name == "" {
		return fmt.Errorf("POSTGRES_DB not set")
	}
	return nil
}

// Connect opens the database with retries, configures the pool and migrates
// the registration schema.
func Connect(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			logger.Info("Connected to PostgreSQL successfully")

			if err := db.AutoMigrate(&models.Form{}, &models.Submission{}, &models.Payment{}); err != nil {
				return nil, fmt.Errorf("AutoMigrate failed: %w", err)
			}
			if err := createPartialIndexes(db); err != nil {
				return nil, fmt.Errorf("create indexes: %w", err)
			}
			return db, nil
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// partialIndexes cannot be expressed in struct tags. At most one payment per
// submission may be successful.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_submission_success ON payments (submission_id) WHERE status = 'success'`,
}

func createPartialIndexes(db *gorm.DB) error {
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
