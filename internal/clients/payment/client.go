// Package payment is the client for the external payment processor. It owns
// the decimal-to-minor-unit conversion at the API boundary and the webhook
// signature check; nothing else in the backend talks to the processor.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/archdemone/jewelry-backend/internal/httpx"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/pricing"
)

// IntentRequest is the internal shape of a charge attempt. Amount is a
// major-unit decimal; the client converts to integer minor units.
type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// Intent mirrors the processor's payment-intent object.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// RequiresNoFurtherAction reports whether the intent has progressed far
// enough for checkout to treat the order as placed. The authoritative paid
// status still arrives later via webhook.
func (i *Intent) RequiresNoFurtherAction() bool {
	switch i.Status {
	case "succeeded", "processing", "requires_capture":
		return true
	}
	return false
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	UpdateIntent(ctx context.Context, intentID string, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Gateway, error) {
	secretKey := strings.TrimSpace(os.Getenv("PAYMENT_SECRET_KEY"))
	if secretKey == "" {
		return nil, fmt.Errorf("missing PAYMENT_SECRET_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("PAYMENT_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 15
	if v := os.Getenv("PAYMENT_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:        log.With("service", "PaymentClient"),
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

func (c *client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	form, err := intentForm(req)
	if err != nil {
		return nil, err
	}
	// The order id doubles as the idempotency key so checkout retries on
	// transient failures reuse the intent instead of opening a second charge.
	idempotencyKey := req.Metadata["order_id"]
	return c.do(ctx, http.MethodPost, "/v1/payment_intents", form, idempotencyKey)
}

func (c *client) UpdateIntent(ctx context.Context, intentID string, req IntentRequest) (*Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, &GatewayError{Code: "invalid_request", Message: "intent id required"}
	}
	form, err := intentForm(req)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/v1/payment_intents/"+url.PathEscape(intentID), form, "")
}

func (c *client) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, &GatewayError{Code: "invalid_request", Message: "intent id required"}
	}
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, "")
}

// intentForm validates the request and converts the amount to minor units,
// rounding half up so a fractional cent never under- or over-charges.
func intentForm(req IntentRequest) (url.Values, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, &GatewayError{Code: "invalid_request", Message: "currency required"}
	}
	minor := pricing.MinorUnits(req.Amount)
	if minor <= 0 {
		return nil, &GatewayError{Code: "invalid_request", Message: fmt.Sprintf("amount must be positive, got %s", req.Amount)}
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minor, 10))
	form.Set("currency", currency)
	for k, v := range req.Metadata {
		if v != "" {
			form.Set(fmt.Sprintf("metadata[%s]", k), v)
		}
	}
	return form, nil
}

func (c *client) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string) (*Intent, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A transport error after the request left is ambiguous: the intent
		// may exist remotely. Callers reconcile via RetrieveIntent rather
		// than retrying blindly.
		return nil, &GatewayError{
			Code:      "network_error",
			Message:   err.Error(),
			retryable: true,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Code: "network_error", Message: err.Error(), retryable: true}
	}

	if resp.StatusCode >= 400 {
		gerr := parseErrorResponse(resp.StatusCode, raw)
		c.log.Warn("Payment processor returned an error",
			"status", resp.StatusCode, "code", gerr.Code, "retryable", gerr.Retryable())
		return nil, gerr
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("payment intent response missing id")
	}
	return &intent, nil
}

func parseErrorResponse(status int, raw []byte) *GatewayError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &envelope)
	code := envelope.Error.Code
	if code == "" {
		code = "api_error"
	}
	msg := envelope.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &GatewayError{
		Status:    status,
		Code:      code,
		Message:   msg,
		retryable: httpx.IsRetryableHTTPStatus(status),
	}
}
