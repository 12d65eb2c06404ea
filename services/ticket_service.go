package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketService freezes orders into printable snapshots.
type TicketService struct {
	db       *gorm.DB
	notifier Notifier
	loc      *time.Location
	now      Clock
}

func NewTicketService(db *gorm.DB, notifier Notifier, loc *time.Location, clock Clock) *TicketService {
	if notifier == nil {
		notifier = Notifiers{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{db: db, notifier: notifier, loc: loc, now: clock}
}

func TicketNumber(order *models.Order, loc *time.Location) string {
	return fmt.Sprintf("TKT/%s/%06d", order.CreatedAt.In(loc).Format("20060102"), order.ID)
}

// RequestTicket returns the order's ticket, creating it on first request.
// Once created the snapshot never changes and the order's items are frozen.
func (s *TicketService) RequestTicket(ctx context.Context, orderID uint) (*models.Ticket, error) {
	var (
		ticket  models.Ticket
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := withItems(tx.Clauses(clause.Locking{Strength: "UPDATE"})).First(&order, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
			}
			return err
		}

		err = tx.Preload("TicketItems").Where("order_id = ?", orderID).First(&ticket).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !order.Status.HoldsCapacity() {
			return fmt.Errorf("order %d is %s, nothing to print: %w", orderID, order.Status, apperrors.ErrConflict)
		}

		ticket = s.snapshot(tx, &order)
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.Model(&models.Order{}).Where("id = ? AND ticket_requested_at IS NULL", orderID).
			Update("ticket_requested_at", now).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id":      orderID,
			"ticket_number": ticket.TicketNumber,
		}).Info("ticket generated")
		s.notifier.TicketGenerated(ticket)
	}
	return &ticket, nil
}

// Get returns an existing ticket without creating one.
func (s *TicketService) Get(ctx context.Context, orderID uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Preload("TicketItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("order_id = ?", orderID).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticket for order %d: %w", orderID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &ticket, nil
}

func (s *TicketService) snapshot(tx *gorm.DB, order *models.Order) models.Ticket {
	t := models.Ticket{
		TicketNumber:    TicketNumber(order, s.loc),
		OrderID:         order.ID,
		Channel:         order.Channel,
		CustomerName:    order.CustomerName,
		DeliveryAddress: order.DeliveryAddress,
		Notes:           order.Notes,
		PaymentMethod:   order.PaymentMethod,
		IsPaid:          order.IsPaid,
		Total:           order.Total,
		OrderedAt:       order.CreatedAt,
	}
	if order.SlotID != nil {
		// the template may have been deleted since; the ticket just omits the time
		var slot models.SlotTemplate
		if tx.Select("start_time").Where("id = ?", *order.SlotID).Limit(1).Find(&slot).Error == nil {
			t.SlotStart = slot.StartTime
		}
	}
	for _, it := range order.OrderItems {
		t.TicketItems = append(t.TicketItems, models.TicketItem{
			Quantity:  it.Quantity,
			Name:      it.ProductName,
			Modifiers: it.Modifiers,
			SideName:  it.SideName,
			DrinkName: it.DrinkName,
			Notes:     it.Notes,
			UnitPrice: it.UnitPriceSnapshot,
			Subtotal:  it.Subtotal(),
		})
	}
	return t
}
