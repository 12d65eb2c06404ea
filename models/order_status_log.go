package models

import "time"

// OrderStatusLog records one committed lifecycle transition.
type OrderStatusLog struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	ChangedBy  string      `gorm:"type:varchar(100)" json:"changed_by"`
	ChangedAt  time.Time   `gorm:"not null" json:"changed_at"`
}
