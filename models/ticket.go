package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Ticket is the frozen copy of an order handed to the printers.
type Ticket struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TicketNumber    string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket_number"`
	OrderID         uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	Channel         Channel         `gorm:"type:varchar(10);not null" json:"channel"`
	SlotStart       string          `gorm:"type:varchar(5)" json:"slot_start,omitempty"`
	CustomerName    string          `gorm:"type:varchar(120)" json:"customer_name"`
	DeliveryAddress string          `gorm:"type:text" json:"delivery_address,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	PaymentMethod   string          `gorm:"type:varchar(30)" json:"payment_method"`
	IsPaid          bool            `gorm:"not null" json:"is_paid"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	OrderedAt       time.Time       `gorm:"not null" json:"ordered_at"`
	TicketItems     []TicketItem    `gorm:"foreignKey:TicketID" json:"ticket_items"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

type TicketItem struct {
	ID        uint                              `gorm:"primaryKey" json:"id"`
	TicketID  uint                              `gorm:"not null;index" json:"ticket_id"`
	Quantity  int                               `gorm:"not null" json:"quantity"`
	Name      string                            `gorm:"type:varchar(255);not null" json:"name"`
	Modifiers datatypes.JSONSlice[ItemModifier] `json:"modifiers"`
	SideName  string                            `gorm:"type:varchar(255)" json:"side_name,omitempty"`
	DrinkName string                            `gorm:"type:varchar(255)" json:"drink_name,omitempty"`
	Notes     string                            `gorm:"type:text" json:"notes,omitempty"`
	UnitPrice decimal.Decimal                   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal                   `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}
