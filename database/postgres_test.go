package database

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "app", Password: "secret", Name: "registrations", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=app password=secret dbname=registrations port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestConnect_RejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no user", Config{Password: "p", Name: "n"}, "POSTGRES_USER not set"},
		{"no password", Config{User: "u", Name: "n"}, "POSTGRES_PASSWORD not set"},
		{"no database", Config{User: "u", Password: "p"}, "POSTGRES_DB not set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(tt.cfg, zap.NewNop())
			assert.Nil(t, db)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}

func TestCreatePartialIndexes(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	assert.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_submission_success ON payments (submission_id) WHERE status = 'success'`,
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, createPartialIndexes(db))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("CREATE UNIQUE INDEX").WillReturnError(errors.New("permission denied"))
	assert.EqualError(t, createPartialIndexes(db), "permission denied")
}
