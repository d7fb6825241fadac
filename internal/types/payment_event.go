package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentEvent is the processed-event ledger for webhook deliveries. One row
// per processor event id; a replayed delivery that matches an existing row is
// acknowledged without being applied again.
type PaymentEvent struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID    string          `gorm:"column:event_id;uniqueIndex;not null" json:"event_id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Type       string          `gorm:"column:type;not null" json:"type"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null;default:0" json:"amount"`
	Applied    bool            `gorm:"column:applied;not null;default:false" json:"applied"`
	OccurredAt time.Time       `gorm:"column:occurred_at;not null" json:"occurred_at"`
	Payload    datatypes.JSON  `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_event" }
