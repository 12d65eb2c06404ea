package services

import (
	"time"

	"github.com/MazaSebastian/DamafAPP/models"
)

// TransitionEvent describes one committed status change.
type TransitionEvent struct {
	Order     models.Order       `json:"order"`
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
	Visible   bool               `json:"visible"`
	ChangedBy string             `json:"changed_by,omitempty"`
	ChangedAt time.Time          `json:"changed_at"`
}

// Notifier receives order events after their transaction commits.
// Implementations must not block the caller for long.
type Notifier interface {
	OrderCreated(order models.Order)
	OrderTransitioned(ev TransitionEvent)
	TicketGenerated(ticket models.Ticket)
}

// Notifiers fans every event out to each member in order.
type Notifiers []Notifier

func (n Notifiers) OrderCreated(order models.Order) {
	for _, x := range n {
		x.OrderCreated(order)
	}
}

func (n Notifiers) OrderTransitioned(ev TransitionEvent) {
	for _, x := range n {
		x.OrderTransitioned(ev)
	}
}

func (n Notifiers) TicketGenerated(ticket models.Ticket) {
	for _, x := range n {
		x.TicketGenerated(ticket)
	}
}
