package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registration-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRazorpayOpenOrder_Success(t *testing.T) {
	var gotBody razorpayOrderRequest
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_X1","entity":"order","amount":50000,"currency":"INR","receipt":"RCP-1","status":"created"}`))
	}))
	defer srv.Close()

	gw := NewRazorpayGateway("rzp_key", "rzp_secret", srv.URL, 5*time.Second)
	submissionID := uuid.New()

	order, err := gw.OpenOrder(context.Background(), OrderRequest{
		SubmissionID: submissionID,
		UserID:       uuid.New(),
		Amount:       50000,
		Receipt:      "RCP-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "order_X1", order.OrderID)
	assert.Equal(t, models.PaymentStatusPending, order.Status)
	assert.Equal(t, "rzp_key", order.ClientData["key_id"])
	assert.Contains(t, string(order.Raw), "order_X1")

	assert.Equal(t, "rzp_key", gotUser)
	assert.Equal(t, "rzp_secret", gotPass)
	assert.Equal(t, int64(50000), gotBody.Amount)
	assert.Equal(t, "INR", gotBody.Currency)
	assert.Equal(t, submissionID.String(), gotBody.Notes["submission_id"])
}

func TestRazorpayOpenOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	gw := NewRazorpayGateway("k", "s", srv.URL, 5*time.Second)
	order, err := gw.OpenOrder(context.Background(), OrderRequest{Amount: 1})

	assert.Nil(t, order)
	assert.ErrorContains(t, err, "amount too small")
	assert.False(t, IsTimeout(err))
}

func TestRazorpayOpenOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	gw := NewRazorpayGateway("k", "s", srv.URL, 50*time.Millisecond)
	_, err := gw.OpenOrder(context.Background(), OrderRequest{Amount: 100})

	assert.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestRazorpayVerify(t *testing.T) {
	gw := NewRazorpayGateway("k", "secret", "", time.Second)
	valid := gw.Sign("order_1", "pay_1")

	verified, err := gw.Verify(context.Background(), Proof{OrderID: "order_1", PaymentID: "pay_1", Signature: valid})
	assert.NoError(t, err)
	assert.Equal(t, "pay_1", verified.ProviderPaymentID)
	assert.Contains(t, string(verified.Raw), "razorpay_signature")
	assert.False(t, verified.Captured)

	tests := []struct {
		name  string
		proof Proof
	}{
		{"signature over other payment", Proof{OrderID: "order_1", PaymentID: "pay_2", Signature: valid}},
		{"signature over other order", Proof{OrderID: "order_2", PaymentID: "pay_1", Signature: valid}},
		{"garbage signature", Proof{OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef"}},
		{"missing signature", Proof{OrderID: "order_1", PaymentID: "pay_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.Verify(context.Background(), tt.proof)
			assert.ErrorIs(t, err, ErrSignatureMismatch)
		})
	}
}

func TestRazorpaySign_DependsOnSecret(t *testing.T) {
	gw := NewRazorpayGateway("k", "secret", "", time.Second)
	sig := gw.Sign("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, gw.Sign("order_1", "pay_1"))
	assert.NotEqual(t, sig, NewRazorpayGateway("k", "other", "", time.Second).Sign("order_1", "pay_1"))
}
