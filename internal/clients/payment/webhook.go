package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how stale a signed webhook timestamp may
// be before the delivery is rejected outright.
const DefaultSignatureTolerance = 5 * time.Minute

// Event is a payment lifecycle event delivered by the processor. OrderID
// comes from the intent metadata and may be empty, in which case the event
// cannot be reconciled.
type Event struct {
	ID         string
	Type       string
	OccurredAt time.Time
	ObjectID   string
	OrderID    string
	Amount     int64
	Currency   string
	Raw        json.RawMessage
}

type webhookPayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID             string            `json:"id"`
			Amount         int64             `json:"amount"`
			AmountRefunded int64             `json:"amount_refunded"`
			Currency       string            `json:"currency"`
			Metadata       map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook body into an Event. Refund events
// carry the refunded amount; everything else carries the object amount.
func ParseEvent(body []byte) (*Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload.ID == "" || payload.Type == "" {
		return nil, fmt.Errorf("webhook payload missing id or type")
	}
	// Without a real timestamp the event cannot participate in ordering
	// decisions; a zero Created would decode to 1970.
	if payload.Created <= 0 {
		return nil, fmt.Errorf("webhook payload missing created timestamp")
	}
	amount := payload.Data.Object.Amount
	if payload.Data.Object.AmountRefunded > 0 {
		amount = payload.Data.Object.AmountRefunded
	}
	return &Event{
		ID:         payload.ID,
		Type:       payload.Type,
		OccurredAt: time.Unix(payload.Created, 0).UTC(),
		ObjectID:   payload.Data.Object.ID,
		OrderID:    payload.Data.Object.Metadata["order_id"],
		Amount:     amount,
		Currency:   payload.Data.Object.Currency,
		Raw:        json.RawMessage(body),
	}, nil
}

// SignPayload computes the signature header for a payload at a given time.
// Exported for webhook tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks a `t=<unix>,v1=<hex hmac-sha256>` header against the
// raw payload. Any failure is a hard rejection: no partial processing.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("malformed signature header")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("signature timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch")
}
