package models

import "fmt"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCooking   OrderStatus = "cooking"
	StatusPackaging OrderStatus = "packaging"
	StatusSent      OrderStatus = "sent"
	StatusCompleted OrderStatus = "completed"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the only place that decides which status changes are legal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusCooking, StatusRejected, StatusCancelled},
	StatusCooking:   {StatusPackaging, StatusCancelled},
	StatusPackaging: {StatusSent, StatusCancelled},
	StatusSent:      {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusRejected:  nil,
	StatusCancelled: nil,
}

// ReleasedStatuses no longer occupy slot capacity.
var ReleasedStatuses = []OrderStatus{StatusRejected, StatusCancelled}

// KitchenStatuses is the default kitchen display filter.
var KitchenStatuses = []OrderStatus{StatusCooking}

func IsKitchenStatus(s OrderStatus) bool {
	for _, k := range KitchenStatuses {
		if s == k {
			return true
		}
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// HoldsCapacity reports whether an order in this status still counts against its slot-day.
func (s OrderStatus) HoldsCapacity() bool {
	return s != StatusRejected && s != StatusCancelled
}

// ItemsEditable reports whether line items may still be added or removed.
func (s OrderStatus) ItemsEditable() bool {
	return s == StatusPending || s == StatusCooking
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal targets from s.
func NextStatuses(s OrderStatus) []OrderStatus {
	out := make([]OrderStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

type Channel string

const (
	ChannelDelivery Channel = "delivery"
	ChannelTakeaway Channel = "takeaway"
)

func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelDelivery, ChannelTakeaway:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}
