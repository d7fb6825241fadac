package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid            PaymentStatus = "UNPAID"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusPartiallyPaid     PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Order is the durable record of a placed order. The checkout flow creates it
// as PENDING/UNPAID; every later status change comes from payment events
// applied by the reconciliation service.
type Order struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderNumber        string          `gorm:"column:order_number;uniqueIndex;not null" json:"order_number"`
	UserID             *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Email              string          `gorm:"column:email;not null" json:"email"`
	Status             OrderStatus     `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	PaymentStatus      PaymentStatus   `gorm:"column:payment_status;not null;default:'UNPAID';index" json:"payment_status"`
	PaymentIntentID    string          `gorm:"column:payment_intent_id;index" json:"payment_intent_id,omitempty"`
	Subtotal           decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null" json:"subtotal"`
	ShippingCost       decimal.Decimal `gorm:"column:shipping_cost;type:decimal(12,2);not null" json:"shipping_cost"`
	Tax                decimal.Decimal `gorm:"column:tax;type:decimal(12,2);not null" json:"tax"`
	Discount           decimal.Decimal `gorm:"column:discount;type:decimal(12,2);not null;default:0" json:"discount"`
	Total              decimal.Decimal `gorm:"column:total;type:decimal(12,2);not null" json:"total"`
	RefundedAmount     decimal.Decimal `gorm:"column:refunded_amount;type:decimal(12,2);not null;default:0" json:"refunded_amount"`
	Currency           string          `gorm:"column:currency;not null" json:"currency"`
	ShippingAddress    datatypes.JSON  `gorm:"column:shipping_address;type:jsonb" json:"shipping_address"`
	BillingAddress     datatypes.JSON  `gorm:"column:billing_address;type:jsonb" json:"billing_address"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID;references:ID" json:"items,omitempty"`
	LastPaymentEventAt *time.Time      `gorm:"column:last_payment_event_at" json:"last_payment_event_at,omitempty"`
	CreatedAt          time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Order) TableName() string { return "order" }

// OrderItem is a price snapshot of one cart line at placement time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_item" }
