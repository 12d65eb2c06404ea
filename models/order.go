package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Channel           Channel         `gorm:"type:varchar(10);not null" json:"channel"`
	SlotID            *uint           `gorm:"index:idx_orders_slot_day,priority:1" json:"slot_id,omitempty"`
	CalendarDate      string          `gorm:"type:varchar(10);not null;index:idx_orders_slot_day,priority:2" json:"calendar_date"`
	Status            OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_slot_day,priority:3" json:"status"`
	Total             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod     string          `gorm:"type:varchar(30)" json:"payment_method"`
	IsPaid            bool            `gorm:"not null;default:false" json:"is_paid"`
	CustomerName      string          `gorm:"type:varchar(120)" json:"customer_name"`
	DeliveryAddress   string          `gorm:"type:text" json:"delivery_address,omitempty"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	StatusChangedAt   *time.Time      `json:"status_changed_at,omitempty"`
	StartCookingTime  *time.Time      `json:"start_cooking_time,omitempty"`
	FinishCookingTime *time.Time      `json:"finish_cooking_time,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	TicketRequestedAt *time.Time      `json:"ticket_requested_at,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
	OrderItems        []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
}

// ComputeTotal sums the line subtotals of the loaded items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.OrderItems {
		total = total.Add(o.OrderItems[i].Subtotal())
	}
	return total
}

// TicketLocked reports whether a printed ticket freezes the item list.
// The snapshot never changes, so any edit after printing would make it lie.
func (o *Order) TicketLocked() bool {
	return o.TicketRequestedAt != nil
}

// KitchenVisible reports whether the order belongs on the default kitchen display.
func (o *Order) KitchenVisible() bool {
	return IsKitchenStatus(o.Status)
}
