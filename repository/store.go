package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories groups the repositories bound to one database handle, either
// the pool or an open transaction.
type Repositories struct {
	Forms       FormRepository
	Submissions SubmissionRepository
	Payments    PaymentRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by GORM.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Repos() Repositories {
	return newRepositories(s.db)
}

// Transaction runs fn inside a database transaction. Returning an error from
// fn rolls back every write made through the supplied repositories.
func (s *gormStore) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Forms:       NewGormFormRepository(db),
		Submissions: NewGormSubmissionRepository(db),
		Payments:    NewGormPaymentRepository(db),
	}
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
