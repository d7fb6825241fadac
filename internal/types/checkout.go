package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutStep string

const (
	CheckoutStepReview  CheckoutStep = "REVIEW"
	CheckoutStepAddress CheckoutStep = "ADDRESS"
	CheckoutStepPayment CheckoutStep = "PAYMENT"
	CheckoutStepConfirm CheckoutStep = "CONFIRM"
)

// CheckoutSession is the in-memory state of one checkout attempt. It is
// derived state: reconstructable from the cart plus user input, so it is
// never persisted.
type CheckoutSession struct {
	SessionID       string          `json:"session_id"`
	OrderNumber     string          `json:"order_number"`
	Step            CheckoutStep    `json:"step"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	Email           string          `json:"email,omitempty"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	Items           []CartItem      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Tax             decimal.Decimal `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	ClientSecret    string          `json:"client_secret,omitempty"`
}
