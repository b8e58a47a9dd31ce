package repository

import (
	"context"
	"time"

	"registration-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormRepository defines data access for forms. Form metadata is managed by
// the admin tooling; this service only reads it.
type FormRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	ListOpen(ctx context.Context, now time.Time) ([]models.Form, error)
	Count(ctx context.Context) (int64, error)
}

// GormFormRepository implements FormRepository using GORM.
type GormFormRepository struct {
	db *gorm.DB
}

// NewGormFormRepository creates a new GormFormRepository.
func NewGormFormRepository(db *gorm.DB) FormRepository {
	return &GormFormRepository{db: db}
}

func (r *GormFormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	var form models.Form
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&form).Error; err != nil {
		return nil, translate(err)
	}
	return &form, nil
}

// LockByID loads a form with SELECT ... FOR UPDATE. Held for the rest of the
// transaction, the row lock serializes every submission for the form.
func (r *GormFormRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	var form models.Form
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&form).Error
	if err != nil {
		return nil, translate(err)
	}
	return &form, nil
}

// ListOpen returns active forms whose window contains now. Capacity is not
// considered here.
func (r *GormFormRepository) ListOpen(ctx context.Context, now time.Time) ([]models.Form, error) {
	var forms []models.Form
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("start_date ASC").
		Find(&forms).Error
	if err != nil {
		return nil, err
	}
	return forms, nil
}

func (r *GormFormRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Form{}).Count(&total).Error
	return total, err
}
