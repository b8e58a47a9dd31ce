package repository

import (
	"context"
	"time"

	"registration-service/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrder(ctx context.Context, gateway models.Gateway, orderID string) (*models.Payment, error)
	LockByOrder(ctx context.Context, gateway models.Gateway, orderID string) (*models.Payment, error)
	HasSuccessful(ctx context.Context, submissionID uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, providerPaymentID string, response []byte, paidAt time.Time) (bool, error)
	MarkDuplicate(ctx context.Context, id uuid.UUID, providerPaymentID string, response []byte) (bool, error)
	SetReceiptKey(ctx context.Context, id uuid.UUID, key string) error
	RevenueByCurrency(ctx context.Context) (map[string]int64, error)
	ListRecentSucceeded(ctx context.Context, limit int) ([]models.Payment, error)
}

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByOrder(ctx context.Context, gateway models.Gateway, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND order_id = ?", gateway, orderID).
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// LockByOrder loads the payment for a provider order with a row lock so
// concurrent confirmations of the same order are applied one at a time.
func (r *GormPaymentRepository) LockByOrder(ctx context.Context, gateway models.Gateway, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway = ? AND order_id = ?", gateway, orderID).
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) HasSuccessful(ctx context.Context, submissionID uuid.UUID) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("submission_id = ? AND status = ?", submissionID, models.PaymentStatusSuccess).
		Count(&total).Error
	return total > 0, err
}

// MarkSucceeded flips a pending payment to success. It returns false without
// error when the payment had already left the pending state.
func (r *GormPaymentRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, providerPaymentID string, response []byte, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":              models.PaymentStatusSuccess,
			"provider_payment_id": providerPaymentID,
			"gateway_response":    datatypes.JSON(response),
			"paid_at":             paidAt,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkDuplicate records a provider capture on a pending payment whose
// submission was already paid by another payment.
func (r *GormPaymentRepository) MarkDuplicate(ctx context.Context, id uuid.UUID, providerPaymentID string, response []byte) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":              models.PaymentStatusDuplicate,
			"provider_payment_id": providerPaymentID,
			"gateway_response":    datatypes.JSON(response),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormPaymentRepository) SetReceiptKey(ctx context.Context, id uuid.UUID, key string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("receipt_key", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevenueByCurrency sums successful payments per currency. Amounts in
// different currencies are never added together.
func (r *GormPaymentRepository) RevenueByCurrency(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Currency string
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.PaymentStatusSuccess).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	revenue := make(map[string]int64, len(rows))
	for _, row := range rows {
		revenue[row.Currency] = row.Total
	}
	return revenue, nil
}

func (r *GormPaymentRepository) ListRecentSucceeded(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", models.PaymentStatusSuccess).
		Order("paid_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
