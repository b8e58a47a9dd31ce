package receipts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"registration-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func successfulPayment() models.Payment {
	paidAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	providerID := "pay_29QQoUBi66xm2f"
	return models.Payment{
		ID:                uuid.New(),
		SubmissionID:      uuid.New(),
		UserID:            uuid.New(),
		Gateway:           models.GatewayRazorpay,
		OrderID:           "order_9A33XWu170gUtm",
		ProviderPaymentID: &providerID,
		Amount:            50000,
		Currency:          "INR",
		Status:            models.PaymentStatusSuccess,
		PaidAt:            &paidAt,
		ReceiptNumber:     "RCP-0A1B2C3D4E5F6789",
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{50000, "INR", "INR 500.00"},
		{1999, "USD", "USD 19.99"},
		{5, "USD", "USD 0.05"},
		{0, "INR", "INR 0.00"},
		{-250, "USD", "USD -2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.currency))
	}
}

func TestRender(t *testing.T) {
	receipt := &Receipt{Payment: successfulPayment(), FormTitle: "Chess <Open>", IssuedAt: time.Now()}

	body, err := Render(receipt)
	assert.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, "RCP-0A1B2C3D4E5F6789")
	assert.Contains(t, html, "INR 500.00")
	assert.Contains(t, html, "pay_29QQoUBi66xm2f")
	assert.Contains(t, html, "14 Mar 2026 09:30 UTC")
	assert.Contains(t, html, "Chess &lt;Open&gt;")
	assert.NotContains(t, html, "<Open>")
}

func TestRender_PendingPaymentOmitsTransaction(t *testing.T) {
	payment := successfulPayment()
	payment.ProviderPaymentID = nil
	payment.PaidAt = nil

	body, err := Render(&Receipt{Payment: payment})
	assert.NoError(t, err)
	assert.NotContains(t, string(body), "Transaction")
}

type fakeObjectStore struct {
	key         string
	contentType string
	body        []byte
	err         error
	presigned   int
}

func (p *fakeObjectStore) Put(_ context.Context, key, contentType string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.key, p.contentType, p.body = key, contentType, body
	return nil
}

func (p *fakeObjectStore) PresignGet(_ context.Context, key string) (string, error) {
	p.presigned++
	return fmt.Sprintf("https://receipts.example.com/%s?X-Amz-Signature=sig%d", key, p.presigned), nil
}

func TestS3Emitter(t *testing.T) {
	putter := &fakeObjectStore{}
	emitter := NewS3Emitter(putter, "/receipts/")

	key, err := emitter.Emit(context.Background(), &Receipt{Payment: successfulPayment()})
	assert.NoError(t, err)
	assert.Equal(t, "receipts/RCP-0A1B2C3D4E5F6789.html", key)
	assert.Equal(t, key, putter.key)
	assert.Equal(t, "text/html; charset=utf-8", putter.contentType)
	assert.Contains(t, string(putter.body), "Payment Receipt")

	first, err := emitter.Link(context.Background(), key)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "https://receipts.example.com/receipts/"))
	second, err := emitter.Link(context.Background(), key)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	putter.err = errors.New("access denied")
	_, err = emitter.Emit(context.Background(), &Receipt{Payment: successfulPayment()})
	assert.Error(t, err)
}

func TestDiskEmitter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "receipts")
	emitter := NewDiskEmitter(dir, "http://localhost:8080/receipts/")

	key, err := emitter.Emit(context.Background(), &Receipt{Payment: successfulPayment()})
	assert.NoError(t, err)
	assert.Equal(t, "RCP-0A1B2C3D4E5F6789.html", key)
	url, err := emitter.Link(context.Background(), key)
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/receipts/RCP-0A1B2C3D4E5F6789.html", url)

	body, err := os.ReadFile(filepath.Join(dir, "RCP-0A1B2C3D4E5F6789.html"))
	assert.NoError(t, err)
	assert.Contains(t, string(body), "INR 500.00")
}
