package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Slug          string          `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Description   string          `gorm:"column:description" json:"description"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	Image         string          `gorm:"column:image" json:"image"`
	Active        bool            `gorm:"column:active;not null;default:true" json:"active"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }
