package services

import (
	"context"

	"registration-service/models"
	"registration-service/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentPaymentsLimit = 5

// AdminService defines reporting operations for administrators.
type AdminService interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, *ServiceError)
}

type adminServiceImpl struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAdminService(store repository.Store, logger *zap.Logger) AdminService {
	return &adminServiceImpl{store: store, logger: logger}
}

// Dashboard reports totals and revenue. Revenue stays split by currency.
func (s *adminServiceImpl) Dashboard(ctx context.Context) (*models.DashboardStats, *ServiceError) {
	repos := s.store.Repos()
	stats := &models.DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := repos.Forms.Count(gctx)
		stats.TotalForms = n
		return err
	})
	g.Go(func() error {
		n, err := repos.Submissions.Count(gctx)
		stats.TotalSubmissions = n
		return err
	})
	g.Go(func() error {
		revenue, err := repos.Payments.RevenueByCurrency(gctx)
		stats.RevenueByCurrency = revenue
		return err
	})
	g.Go(func() error {
		recent, err := repos.Payments.ListRecentSucceeded(gctx, recentPaymentsLimit)
		stats.RecentPayments = recent
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build dashboard", zap.Error(err))
		return nil, internalError()
	}
	return stats, nil
}
