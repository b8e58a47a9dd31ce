package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"registration-service/models"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayGateway implements Gateway against the Razorpay Orders API.
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewRazorpayGateway creates a RazorpayGateway. An empty baseURL selects the
// production API.
func NewRazorpayGateway(keyID, keySecret, baseURL string, timeout time.Duration) *RazorpayGateway {
	if baseURL == "" {
		baseURL = razorpayBaseURL
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ---- Razorpay API request/response structs ----

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// ---- Gateway implementation ----

func (r *RazorpayGateway) Name() models.Gateway { return models.GatewayRazorpay }

func (r *RazorpayGateway) Currency() string { return "INR" }

// OpenOrder creates a Razorpay order. The order starts out unpaid; the
// browser completes checkout and returns a signed proof.
func (r *RazorpayGateway) OpenOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := razorpayOrderRequest{
		Amount:   req.Amount,
		Currency: r.Currency(),
		Receipt:  req.Receipt,
		Notes: map[string]string{
			"submission_id": req.SubmissionID.String(),
			"user_id":       req.UserID.String(),
		},
	}

	raw, err := r.doRequest(ctx, http.MethodPost, "/v1/orders", body)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	var resp razorpayOrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("razorpay create order: decode response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("razorpay create order: response has no order id")
	}

	return &Order{
		OrderID: resp.ID,
		Status:  models.PaymentStatusPending,
		Raw:     raw,
		ClientData: map[string]interface{}{
			"key_id":   r.keyID,
			"order_id": resp.ID,
			"amount":   resp.Amount,
			"currency": resp.Currency,
			"receipt":  resp.Receipt,
		},
	}, nil
}

// Verify checks the checkout signature locally. No network call is made.
func (r *RazorpayGateway) Verify(_ context.Context, proof Proof) (*VerifiedPayment, error) {
	if proof.OrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return nil, ErrSignatureMismatch
	}

	expected := r.Sign(proof.OrderID, proof.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(proof.Signature))) {
		return nil, ErrSignatureMismatch
	}

	raw, err := json.Marshal(map[string]string{
		"razorpay_order_id":   proof.OrderID,
		"razorpay_payment_id": proof.PaymentID,
		"razorpay_signature":  proof.Signature,
	})
	if err != nil {
		return nil, err
	}
	return &VerifiedPayment{OrderID: proof.OrderID, ProviderPaymentID: proof.PaymentID, Raw: raw}, nil
}

// Sign returns hex(HMAC-SHA256(secret, orderID|paymentID)), the signature
// Razorpay Checkout hands to the browser.
func (r *RazorpayGateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ---- HTTP helper ----

func (r *RazorpayGateway) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr razorpayErrorResponse
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay API error (status %d): %s", resp.StatusCode, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("razorpay API error (status %d): %s", resp.StatusCode, string(respBytes))
	}
	return respBytes, nil
}
