package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ItemModifier struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order             Order                            `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProductID         uint                             `gorm:"not null" json:"product_id"`
	ProductName       string                           `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity          int                              `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot decimal.Decimal                  `gorm:"type:decimal(12,2);not null" json:"unit_price_snapshot"`
	Modifiers         datatypes.JSONSlice[ItemModifier] `json:"modifiers"`
	SideRef           *uint                            `json:"side_ref,omitempty"`
	SideName          string                           `gorm:"type:varchar(255)" json:"side_name,omitempty"`
	DrinkRef          *uint                            `json:"drink_ref,omitempty"`
	DrinkName         string                           `gorm:"type:varchar(255)" json:"drink_name,omitempty"`
	Notes             string                           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time                        `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                        `gorm:"not null" json:"updated_at"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
