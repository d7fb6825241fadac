package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/logger"
)

const webhookTestSecret = "whsec_test"

type fakeReconciliation struct {
	events []*payment.Event
	err    error
}

func (f *fakeReconciliation) HandleEvent(ctx context.Context, event *payment.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func webhookTestRouter(t *testing.T, recon *fakeReconciliation) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	handler := NewWebhookHandler(log, webhookTestSecret, recon)
	router := gin.New()
	router.POST("/webhooks/payment", handler.HandlePaymentEvent)
	return router
}

func eventBody(id string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "payment_intent.succeeded",
		"created": %d,
		"data": {"object": {
			"id": "pi_1",
			"amount": 25740,
			"currency": "usd",
			"metadata": {"order_id": "JW-AB12CD34EF"}
		}}
	}`, id, time.Now().Unix()))
}

func deliver(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookValidSignatureReachesReconciliation(t *testing.T) {
	recon := &fakeReconciliation{}
	router := webhookTestRouter(t, recon)

	body := eventBody("evt_1")
	rec := deliver(router, body, payment.SignPayload(body, webhookTestSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(recon.events) != 1 {
		t.Fatalf("events handled: want=1 got=%d", len(recon.events))
	}
	event := recon.events[0]
	if event.ID != "evt_1" || event.OrderID != "JW-AB12CD34EF" || event.Amount != 25740 {
		t.Fatalf("parsed event: %+v", event)
	}
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	recon := &fakeReconciliation{}
	router := webhookTestRouter(t, recon)

	body := eventBody("evt_1")
	rec := deliver(router, body, payment.SignPayload(body, "whsec_wrong", time.Now()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", rec.Code)
	}
	if len(recon.events) != 0 {
		t.Fatalf("unverified event must never reach reconciliation")
	}
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	recon := &fakeReconciliation{}
	router := webhookTestRouter(t, recon)

	rec := deliver(router, eventBody("evt_1"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", rec.Code)
	}
}

func TestWebhookTamperedBodyRejected(t *testing.T) {
	recon := &fakeReconciliation{}
	router := webhookTestRouter(t, recon)

	body := eventBody("evt_1")
	signature := payment.SignPayload(body, webhookTestSecret, time.Now())
	tampered := bytes.Replace(body, []byte("25740"), []byte("1"), 1)
	rec := deliver(router, tampered, signature)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", rec.Code)
	}
}

func TestWebhookMalformedPayloadRejected(t *testing.T) {
	recon := &fakeReconciliation{}
	router := webhookTestRouter(t, recon)

	body := []byte(`{"created": 1}`)
	rec := deliver(router, body, payment.SignPayload(body, webhookTestSecret, time.Now()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}

func TestWebhookHandlerFailureSignalsRetry(t *testing.T) {
	recon := &fakeReconciliation{err: fmt.Errorf("db unavailable")}
	router := webhookTestRouter(t, recon)

	body := eventBody("evt_1")
	rec := deliver(router, body, payment.SignPayload(body, webhookTestSecret, time.Now()))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", rec.Code)
	}
}
