package repository

import (
	"context"

	"registration-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository defines data access for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	FindByUserAndForm(ctx context.Context, userID, formID uuid.UUID) (*models.Submission, error)
	CountByForm(ctx context.Context, formID uuid.UUID) (int64, error)
	CountByForms(ctx context.Context, formIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Submission, int64, error)
	ListByForm(ctx context.Context, formID uuid.UUID, page, limit int) ([]models.Submission, int64, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// GormSubmissionRepository implements SubmissionRepository using GORM.
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormSubmissionRepository creates a new GormSubmissionRepository.
func NewGormSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

// Create inserts a submission. A second row for the same (user, form) pair is
// rejected by idx_submission_user_form and reported as ErrDuplicate.
func (r *GormSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return translate(r.db.WithContext(ctx).Create(submission).Error)
}

func (r *GormSubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return nil, translate(err)
	}
	return &submission, nil
}

func (r *GormSubmissionRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&submission).Error
	if err != nil {
		return nil, translate(err)
	}
	return &submission, nil
}

func (r *GormSubmissionRepository) FindByUserAndForm(ctx context.Context, userID, formID uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND form_id = ?", userID, formID).
		First(&submission).Error
	if err != nil {
		return nil, translate(err)
	}
	return &submission, nil
}

func (r *GormSubmissionRepository) CountByForm(ctx context.Context, formID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("form_id = ?", formID).
		Count(&total).Error
	return total, err
}

func (r *GormSubmissionRepository) CountByForms(ctx context.Context, formIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(formIDs))
	if len(formIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		FormID uuid.UUID
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("form_id, COUNT(*) AS total").
		Where("form_id IN ?", formIDs).
		Group("form_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.FormID] = row.Total
	}
	return counts, nil
}

// ListByUser returns the user's submissions, newest first, with their form
// and payments.
func (r *GormSubmissionRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Submission, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("user_id = ?", userID).Preload("Form"), page, limit)
}

func (r *GormSubmissionRepository) ListByForm(ctx context.Context, formID uuid.UUID, page, limit int) ([]models.Submission, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("form_id = ?", formID), page, limit)
}

func (r *GormSubmissionRepository) list(ctx context.Context, query *gorm.DB, page, limit int) ([]models.Submission, int64, error) {
	var submissions []models.Submission
	var total int64

	if err := query.Session(&gorm.Session{}).Model(&models.Submission{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Payments").
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

// MarkCompleted moves a pending submission to completed. It reports false
// when the submission was not pending.
func (r *GormSubmissionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusPending).
		Update("status", models.SubmissionStatusCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormSubmissionRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Count(&total).Error
	return total, err
}
