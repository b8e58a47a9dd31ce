// Package memory is an in-process repository.Store for tests. Transactions are
// fully serialized and roll back by restoring a snapshot. Lock methods are
// plain reads, so concurrency tests on this store check service logic only;
// the row-lock SQL is covered by the repository package tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"registration-service/models"
	"registration-service/repository"

	"github.com/google/uuid"
)

type tables struct {
	forms       map[uuid.UUID]models.Form
	submissions map[uuid.UUID]models.Submission
	payments    map[uuid.UUID]models.Payment
}

func (t *tables) clone() *tables {
	c := &tables{
		forms:       make(map[uuid.UUID]models.Form, len(t.forms)),
		submissions: make(map[uuid.UUID]models.Submission, len(t.submissions)),
		payments:    make(map[uuid.UUID]models.Payment, len(t.payments)),
	}
	for k, v := range t.forms {
		c.forms[k] = v
	}
	for k, v := range t.submissions {
		c.submissions[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu     sync.Mutex
	data   *tables
	faults map[string]error
}

func NewStore() *Store {
	return &Store{
		data: &tables{
			forms:       map[uuid.UUID]models.Form{},
			submissions: map[uuid.UUID]models.Submission{},
			payments:    map[uuid.UUID]models.Payment{},
		},
		faults: map[string]error{},
	}
}

// FailOn makes the named repository method (e.g. "Submissions.MarkCompleted")
// return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

func (s *Store) Repos() repository.Repositories {
	return s.repositories(true)
}

func (s *Store) Transaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repositories(false)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) repositories(locking bool) repository.Repositories {
	return repository.Repositories{
		Forms:       &formRepo{s: s, locking: locking},
		Submissions: &submissionRepo{s: s, locking: locking},
		Payments:    &paymentRepo{s: s, locking: locking},
	}
}

// enter acquires the store for a single statement outside a transaction and
// reports an injected fault for method.
func (s *Store) enter(locking bool, method string) (func(), error) {
	release := func() {}
	if locking {
		s.mu.Lock()
		release = s.mu.Unlock
	}
	if err, ok := s.faults[method]; ok {
		release()
		return func() {}, err
	}
	return release, nil
}

// SeedForm inserts a form directly.
func (s *Store) SeedForm(form models.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.forms[form.ID] = form
}

// Submissions returns a copy of every stored submission.
func (s *Store) Submissions() []models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Submission, 0, len(s.data.submissions))
	for _, v := range s.data.submissions {
		out = append(out, v)
	}
	return out
}

// Payments returns a copy of every stored payment.
func (s *Store) Payments() []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Payment, 0, len(s.data.payments))
	for _, v := range s.data.payments {
		out = append(out, v)
	}
	return out
}

// ---- forms ----

type formRepo struct {
	s       *Store
	locking bool
}

func (r *formRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Form, error) {
	done, err := r.s.enter(r.locking, "Forms.FindByID")
	if err != nil {
		return nil, err
	}
	defer done()
	form, ok := r.s.data.forms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &form, nil
}

func (r *formRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	return r.FindByID(ctx, id)
}

func (r *formRepo) ListOpen(_ context.Context, now time.Time) ([]models.Form, error) {
	done, err := r.s.enter(r.locking, "Forms.ListOpen")
	if err != nil {
		return nil, err
	}
	defer done()
	var out []models.Form
	for _, f := range r.s.data.forms {
		if f.IsActive && !now.Before(f.StartDate) && !now.After(f.EndDate) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *formRepo) Count(_ context.Context) (int64, error) {
	done, err := r.s.enter(r.locking, "Forms.Count")
	if err != nil {
		return 0, err
	}
	defer done()
	return int64(len(r.s.data.forms)), nil
}

// ---- submissions ----

type submissionRepo struct {
	s       *Store
	locking bool
}

func (r *submissionRepo) Create(_ context.Context, sub *models.Submission) error {
	done, err := r.s.enter(r.locking, "Submissions.Create")
	if err != nil {
		return err
	}
	defer done()
	for _, existing := range r.s.data.submissions {
		if existing.UserID == sub.UserID && existing.FormID == sub.FormID {
			return fmt.Errorf("%w: idx_submission_user_form", repository.ErrDuplicate)
		}
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := time.Now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	stored := *sub
	stored.Form, stored.Payments = nil, nil
	r.s.data.submissions[sub.ID] = stored
	return nil
}

func (r *submissionRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	done, err := r.s.enter(r.locking, "Submissions.FindByID")
	if err != nil {
		return nil, err
	}
	defer done()
	sub, ok := r.s.data.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

func (r *submissionRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return r.FindByID(ctx, id)
}

func (r *submissionRepo) FindByUserAndForm(_ context.Context, userID, formID uuid.UUID) (*models.Submission, error) {
	done, err := r.s.enter(r.locking, "Submissions.FindByUserAndForm")
	if err != nil {
		return nil, err
	}
	defer done()
	for _, sub := range r.s.data.submissions {
		if sub.UserID == userID && sub.FormID == formID {
			return &sub, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *submissionRepo) CountByForm(_ context.Context, formID uuid.UUID) (int64, error) {
	done, err := r.s.enter(r.locking, "Submissions.CountByForm")
	if err != nil {
		return 0, err
	}
	defer done()
	var n int64
	for _, sub := range r.s.data.submissions {
		if sub.FormID == formID {
			n++
		}
	}
	return n, nil
}

func (r *submissionRepo) CountByForms(_ context.Context, formIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	done, err := r.s.enter(r.locking, "Submissions.CountByForms")
	if err != nil {
		return nil, err
	}
	defer done()
	wanted := make(map[uuid.UUID]bool, len(formIDs))
	for _, id := range formIDs {
		wanted[id] = true
	}
	counts := make(map[uuid.UUID]int64, len(formIDs))
	for _, sub := range r.s.data.submissions {
		if wanted[sub.FormID] {
			counts[sub.FormID]++
		}
	}
	return counts, nil
}

func (r *submissionRepo) ListByUser(_ context.Context, userID uuid.UUID, page, limit int) ([]models.Submission, int64, error) {
	done, err := r.s.enter(r.locking, "Submissions.ListByUser")
	if err != nil {
		return nil, 0, err
	}
	defer done()
	return r.list(func(sub models.Submission) bool { return sub.UserID == userID }, true, page, limit)
}

func (r *submissionRepo) ListByForm(_ context.Context, formID uuid.UUID, page, limit int) ([]models.Submission, int64, error) {
	done, err := r.s.enter(r.locking, "Submissions.ListByForm")
	if err != nil {
		return nil, 0, err
	}
	defer done()
	return r.list(func(sub models.Submission) bool { return sub.FormID == formID }, false, page, limit)
}

func (r *submissionRepo) list(match func(models.Submission) bool, withForm bool, page, limit int) ([]models.Submission, int64, error) {
	var all []models.Submission
	for _, sub := range r.s.data.submissions {
		if !match(sub) {
			continue
		}
		if withForm {
			if form, ok := r.s.data.forms[sub.FormID]; ok {
				sub.Form = &form
			}
		}
		for _, p := range r.s.data.payments {
			if p.SubmissionID == sub.ID {
				sub.Payments = append(sub.Payments, p)
			}
		}
		all = append(all, sub)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Submission{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *submissionRepo) MarkCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	done, err := r.s.enter(r.locking, "Submissions.MarkCompleted")
	if err != nil {
		return false, err
	}
	defer done()
	sub, ok := r.s.data.submissions[id]
	if !ok || sub.Status != models.SubmissionStatusPending {
		return false, nil
	}
	sub.Status = models.SubmissionStatusCompleted
	sub.UpdatedAt = time.Now()
	r.s.data.submissions[id] = sub
	return true, nil
}

func (r *submissionRepo) Count(_ context.Context) (int64, error) {
	done, err := r.s.enter(r.locking, "Submissions.Count")
	if err != nil {
		return 0, err
	}
	defer done()
	return int64(len(r.s.data.submissions)), nil
}

// ---- payments ----

type paymentRepo struct {
	s       *Store
	locking bool
}

func (r *paymentRepo) Create(_ context.Context, p *models.Payment) error {
	done, err := r.s.enter(r.locking, "Payments.Create")
	if err != nil {
		return err
	}
	defer done()
	for _, existing := range r.s.data.payments {
		if existing.Gateway == p.Gateway && existing.OrderID == p.OrderID {
			return fmt.Errorf("%w: idx_payment_gateway_order", repository.ErrDuplicate)
		}
		if existing.ReceiptNumber == p.ReceiptNumber {
			return fmt.Errorf("%w: receipt_number", repository.ErrDuplicate)
		}
		if p.ProviderPaymentID != nil && existing.ProviderPaymentID != nil && *existing.ProviderPaymentID == *p.ProviderPaymentID {
			return fmt.Errorf("%w: provider_payment_id", repository.ErrDuplicate)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	done, err := r.s.enter(r.locking, "Payments.FindByID")
	if err != nil {
		return nil, err
	}
	defer done()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *paymentRepo) FindByOrder(_ context.Context, gateway models.Gateway, orderID string) (*models.Payment, error) {
	done, err := r.s.enter(r.locking, "Payments.FindByOrder")
	if err != nil {
		return nil, err
	}
	defer done()
	for _, p := range r.s.data.payments {
		if p.Gateway == gateway && p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *paymentRepo) LockByOrder(ctx context.Context, gateway models.Gateway, orderID string) (*models.Payment, error) {
	return r.FindByOrder(ctx, gateway, orderID)
}

func (r *paymentRepo) HasSuccessful(_ context.Context, submissionID uuid.UUID) (bool, error) {
	done, err := r.s.enter(r.locking, "Payments.HasSuccessful")
	if err != nil {
		return false, err
	}
	defer done()
	for _, p := range r.s.data.payments {
		if p.SubmissionID == submissionID && p.Status == models.PaymentStatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (r *paymentRepo) MarkSucceeded(_ context.Context, id uuid.UUID, providerPaymentID string, response []byte, paidAt time.Time) (bool, error) {
	done, err := r.s.enter(r.locking, "Payments.MarkSucceeded")
	if err != nil {
		return false, err
	}
	defer done()
	p, ok := r.s.data.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	for otherID, other := range r.s.data.payments {
		if otherID == id {
			continue
		}
		if other.ProviderPaymentID != nil && *other.ProviderPaymentID == providerPaymentID {
			return false, fmt.Errorf("%w: provider_payment_id", repository.ErrDuplicate)
		}
		if other.SubmissionID == p.SubmissionID && other.Status == models.PaymentStatusSuccess {
			return false, fmt.Errorf("%w: idx_payment_submission_success", repository.ErrDuplicate)
		}
	}
	p.Status = models.PaymentStatusSuccess
	p.ProviderPaymentID = &providerPaymentID
	p.GatewayResponse = response
	p.PaidAt = &paidAt
	p.UpdatedAt = time.Now()
	r.s.data.payments[id] = p
	return true, nil
}

func (r *paymentRepo) SetReceiptKey(_ context.Context, id uuid.UUID, key string) error {
	done, err := r.s.enter(r.locking, "Payments.SetReceiptKey")
	if err != nil {
		return err
	}
	defer done()
	p, ok := r.s.data.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ReceiptKey = &key
	r.s.data.payments[id] = p
	return nil
}

func (r *paymentRepo) MarkDuplicate(_ context.Context, id uuid.UUID, providerPaymentID string, response []byte) (bool, error) {
	done, err := r.s.enter(r.locking, "Payments.MarkDuplicate")
	if err != nil {
		return false, err
	}
	defer done()
	p, ok := r.s.data.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusDuplicate
	p.ProviderPaymentID = &providerPaymentID
	p.GatewayResponse = response
	p.UpdatedAt = time.Now()
	r.s.data.payments[id] = p
	return true, nil
}

func (r *paymentRepo) RevenueByCurrency(_ context.Context) (map[string]int64, error) {
	done, err := r.s.enter(r.locking, "Payments.RevenueByCurrency")
	if err != nil {
		return nil, err
	}
	defer done()
	revenue := map[string]int64{}
	for _, p := range r.s.data.payments {
		if p.Status == models.PaymentStatusSuccess {
			revenue[p.Currency] += p.Amount
		}
	}
	return revenue, nil
}

func (r *paymentRepo) ListRecentSucceeded(_ context.Context, limit int) ([]models.Payment, error) {
	done, err := r.s.enter(r.locking, "Payments.ListRecentSucceeded")
	if err != nil {
		return nil, err
	}
	defer done()
	var out []models.Payment
	for _, p := range r.s.data.payments {
		if p.Status == models.PaymentStatusSuccess {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(*out[j].PaidAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
