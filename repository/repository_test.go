package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"registration-service/models"
	"registration-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func TestSubmissionCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	sub := &models.Submission{
		ID:     uuid.New(),
		UserID: uuid.New(),
		FormID: uuid.New(),
		Data:   datatypes.JSONMap{"name": "Asha"},
		Status: models.SubmissionStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "submissions"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Create(context.Background(), sub))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionCreate_UniqueViolation(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "submissions"`)).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_submission_user_form" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Submission{ID: uuid.New(), Status: models.SubmissionStatusPending})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestSubmissionFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "submissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	sub, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, sub)
}

func TestSubmissionMarkCompleted(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "submissions" SET "status"=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MarkCompleted(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "submissions"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = repo.MarkCompleted(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmissionCountByForms(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	a, b := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"form_id", "total"}).AddRow(a.String(), 3)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT form_id, COUNT(*) AS total FROM "submissions"`)).
		WillReturnRows(rows)

	counts, err := repo.CountByForms(context.Background(), []uuid.UUID{a, b})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), counts[a])
	assert.Equal(t, int64(0), counts[b])

	empty, err := repo.CountByForms(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFormLockByID_UsesRowLock(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormFormRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "fields", "amount", "start_date", "end_date", "is_active", "max_submissions"}).
		AddRow(id.String(), "Hackathon", "", []byte(`[{"name":"team","type":"text","label":"Team","required":true}]`), 50000, now, now.Add(time.Hour), true, 10)

	mock.ExpectQuery(`SELECT \* FROM "forms" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	form, err := repo.LockByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "Hackathon", form.Title)
	if assert.NotNil(t, form.MaxSubmissions) {
		assert.Equal(t, 10, *form.MaxSubmissions)
	}
	assert.Len(t, form.Fields, 1)
}

func TestPaymentMarkSucceeded(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MarkSucceeded(context.Background(), uuid.New(), "pay_1", []byte(`{}`), time.Now())
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = repo.MarkSucceeded(context.Background(), uuid.New(), "pay_1", []byte(`{}`), time.Now())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionLockByID_UsesRowLock(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubmissionRepository(gormDB)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "user_id", "form_id", "status"}).
		AddRow(id.String(), uuid.NewString(), uuid.NewString(), "completed")
	mock.ExpectQuery(`SELECT \* FROM "submissions" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	sub, err := repo.LockByID(context.Background(), id)
	assert.NoError(t, err)
	assert.True(t, sub.IsCompleted())

	mock.ExpectQuery(`SELECT \* FROM "submissions" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnError(gorm.ErrRecordNotFound)
	_, err = repo.LockByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentMarkDuplicate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET .*"provider_payment_id".*"status".*WHERE .*id = .*status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MarkDuplicate(context.Background(), uuid.New(), "ch_2", []byte(`{}`))
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_payments_provider_payment_id" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	_, err = repo.MarkDuplicate(context.Background(), uuid.New(), "ch_2", []byte(`{}`))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSetReceiptKey_Missing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET "receipt_key"=`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SetReceiptKey(context.Background(), uuid.New(), "receipts/RCP-1.html")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentFindByOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "submission_id", "user_id", "gateway", "order_id", "amount", "currency", "status", "receipt_number"}).
		AddRow(id.String(), uuid.NewString(), uuid.NewString(), "razorpay", "order_1", 50000, "INR", "pending", "RCP-0000000000000001")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE gateway = $1 AND order_id = $2`)).
		WillReturnRows(rows)

	p, err := repo.FindByOrder(context.Background(), models.GatewayRazorpay, "order_1")
	assert.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
}

func TestPaymentRevenueByCurrency(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	rows := sqlmock.NewRows([]string{"currency", "total"}).
		AddRow("INR", 150000).
		AddRow("USD", 2000)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT currency, COALESCE(SUM(amount), 0) AS total FROM "payments"`)).
		WillReturnRows(rows)

	revenue, err := repo.RevenueByCurrency(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, map[string]int64{"INR": 150000, "USD": 2000}, revenue)
}

func TestStoreTransaction_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "submissions"`)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(repos repository.Repositories) error {
		if _, err := repos.Payments.MarkSucceeded(context.Background(), uuid.New(), "pay_1", nil, time.Now()); err != nil {
			return err
		}
		_, err := repos.Submissions.MarkCompleted(context.Background(), uuid.New())
		return err
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTransaction_Commits(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "submissions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(repos repository.Repositories) error {
		if _, err := repos.Payments.MarkSucceeded(context.Background(), uuid.New(), "pay_1", nil, time.Now()); err != nil {
			return err
		}
		_, err := repos.Submissions.MarkCompleted(context.Background(), uuid.New())
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
