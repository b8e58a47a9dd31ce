package services

import (
	"context"
	"errors"
	"time"

	"registration-service/models"
	"registration-service/repository"

	awspkg "registration-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Clock returns the current time.
type Clock func() time.Time

// SubmissionService defines the interface for form registration logic.
type SubmissionService interface {
	ListAvailableForms(ctx context.Context) ([]models.FormSummary, *ServiceError)
	GetForm(ctx context.Context, formID uuid.UUID) (*models.FormSummary, *ServiceError)
	Submit(ctx context.Context, formID, userID uuid.UUID, data map[string]interface{}) (*models.Submission, *ServiceError)
	ListUserSubmissions(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Submission, int64, *ServiceError)
	ListFormSubmissions(ctx context.Context, formID uuid.UUID, page, limit int) ([]models.Submission, int64, *ServiceError)
}

type submissionServiceImpl struct {
	store   repository.Store
	cache   FormsCache
	metrics awspkg.MetricsRecorder
	now     Clock
	logger  *zap.Logger
}

// NewSubmissionService creates a new SubmissionService. cache and metrics
// may be nil.
func NewSubmissionService(
	store repository.Store,
	cache FormsCache,
	metrics awspkg.MetricsRecorder,
	now Clock,
	logger *zap.Logger,
) SubmissionService {
	if cache == nil {
		cache = noopFormsCache{}
	}
	if now == nil {
		now = time.Now
	}
	return &submissionServiceImpl{
		store:   store,
		cache:   cache,
		metrics: metrics,
		now:     now,
		logger:  logger,
	}
}

// ListAvailableForms returns the forms currently accepting submissions.
func (s *submissionServiceImpl) ListAvailableForms(ctx context.Context) ([]models.FormSummary, *ServiceError) {
	if cached, ok := s.cache.GetOpenForms(ctx); ok {
		return cached, nil
	}

	repos := s.store.Repos()
	now := s.now()

	forms, err := repos.Forms.ListOpen(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list open forms", zap.Error(err))
		return nil, internalError()
	}

	ids := make([]uuid.UUID, len(forms))
	for i := range forms {
		ids[i] = forms[i].ID
	}
	counts, err := repos.Submissions.CountByForms(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to count submissions", zap.Error(err))
		return nil, internalError()
	}

	summaries := make([]models.FormSummary, 0, len(forms))
	for i := range forms {
		if !IsAvailable(&forms[i], now, counts[forms[i].ID]) {
			continue
		}
		summaries = append(summaries, summarize(forms[i], counts[forms[i].ID]))
	}

	s.cache.SetOpenForms(ctx, summaries)
	return summaries, nil
}

// GetForm returns a form only while it is available.
func (s *submissionServiceImpl) GetForm(ctx context.Context, formID uuid.UUID) (*models.FormSummary, *ServiceError) {
	repos := s.store.Repos()

	form, err := repos.Forms.FindByID(ctx, formID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "Form not found")
		}
		s.logger.Error("Failed to load form", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, internalError()
	}

	count, err := repos.Submissions.CountByForm(ctx, formID)
	if err != nil {
		s.logger.Error("Failed to count submissions", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, internalError()
	}
	if !IsAvailable(form, s.now(), count) {
		return nil, newError(KindNotFound, "Form is not available")
	}

	summary := summarize(*form, count)
	return &summary, nil
}

// Submit registers userID for formID. The form row stays locked from the
// capacity check until the insert commits, so concurrent submits for the same
// form are applied one at a time and can never overfill it.
func (s *submissionServiceImpl) Submit(ctx context.Context, formID, userID uuid.UUID, data map[string]interface{}) (*models.Submission, *ServiceError) {
	var created *models.Submission

	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		form, err := repos.Forms.LockByID(ctx, formID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, "Form not found")
			}
			return err
		}

		count, err := repos.Submissions.CountByForm(ctx, formID)
		if err != nil {
			return err
		}
		if !IsAvailable(form, s.now(), count) {
			return newError(KindFormUnavailable, "Form is not available for submission")
		}

		if _, err := repos.Submissions.FindByUserAndForm(ctx, userID, formID); err == nil {
			return duplicateSubmission()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		clean, verr := ValidateFieldData(form.Fields, data)
		if verr != nil {
			return verr
		}

		submission := &models.Submission{
			ID:     uuid.New(),
			UserID: userID,
			FormID: formID,
			Data:   datatypes.JSONMap(clean),
			Status: models.SubmissionStatusPending,
		}
		if err := repos.Submissions.Create(ctx, submission); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return duplicateSubmission()
			}
			return err
		}
		created = submission
		return nil
	})
	if err != nil {
		var serr *ServiceError
		if errors.As(err, &serr) {
			return nil, serr
		}
		s.logger.Error("Failed to create submission",
			zap.String("form_id", formID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, internalError()
	}

	s.cache.Invalidate(ctx)
	awspkg.RecordCountAsync(s.metrics, awspkg.MetricSubmissionsCreated, map[string]string{"FormID": formID.String()})
	s.logger.Info("Submission created",
		zap.String("submission_id", created.ID.String()),
		zap.String("form_id", formID.String()),
		zap.String("user_id", userID.String()),
	)
	return created, nil
}

func (s *submissionServiceImpl) ListUserSubmissions(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Submission, int64, *ServiceError) {
	submissions, total, err := s.store.Repos().Submissions.ListByUser(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list user submissions", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, 0, internalError()
	}
	return submissions, total, nil
}

func (s *submissionServiceImpl) ListFormSubmissions(ctx context.Context, formID uuid.UUID, page, limit int) ([]models.Submission, int64, *ServiceError) {
	repos := s.store.Repos()
	if _, err := repos.Forms.FindByID(ctx, formID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, newError(KindNotFound, "Form not found")
		}
		s.logger.Error("Failed to load form", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, 0, internalError()
	}

	submissions, total, err := repos.Submissions.ListByForm(ctx, formID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list form submissions", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, 0, internalError()
	}
	return submissions, total, nil
}

func duplicateSubmission() *ServiceError {
	return newError(KindDuplicateSubmission, "You have already submitted this form")
}

func summarize(form models.Form, count int64) models.FormSummary {
	summary := models.FormSummary{Form: form, SubmissionCount: count}
	if form.MaxSubmissions != nil {
		remaining := int64(*form.MaxSubmissions) - count
		if remaining < 0 {
			remaining = 0
		}
		summary.RemainingSlots = &remaining
	}
	return summary
}
