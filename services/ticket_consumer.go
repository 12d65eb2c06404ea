package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type TicketRequester interface {
	RequestTicket(ctx context.Context, orderID uint) (*models.Ticket, error)
}

// TicketConsumer requests a ticket for every order that reaches cooking, so the
// kitchen printer gets a frozen snapshot without an operator action.
type TicketConsumer struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	requester TicketRequester
}

func NewTicketConsumer(url string, requester TicketRequester) (*TicketConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	fail := func(err error) (*TicketConsumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := declareOrdersExchange(ch); err != nil {
		return fail(err)
	}
	if _, err := ch.QueueDeclare(TicketQueue, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("rabbitmq queue declare: %w", err))
	}
	routingKey := "order." + string(models.StatusCooking)
	if err := ch.QueueBind(TicketQueue, routingKey, OrdersExchange, false, nil); err != nil {
		return fail(fmt.Errorf("rabbitmq queue bind: %w", err))
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fail(fmt.Errorf("rabbitmq qos: %w", err))
	}

	return &TicketConsumer{conn: conn, ch: ch, requester: requester}, nil
}

// Run consumes until ctx ends or the broker closes the delivery channel.
func (c *TicketConsumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, TicketQueue, "ticket-consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq: delivery channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				utils.ErrorLogger.Errorf("ticket consumer: %v", err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one message body. Orders that vanished or can no longer be
// printed are acknowledged so they do not loop on the queue.
func (c *TicketConsumer) Handle(ctx context.Context, body []byte) error {
	var msg OrderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		utils.ErrorLogger.Warnf("ticket consumer: dropping malformed message: %v", err)
		return nil
	}
	if msg.To != models.StatusCooking || msg.OrderID == 0 {
		return nil
	}

	ticket, err := c.requester.RequestTicket(ctx, msg.OrderID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict):
		utils.InfoLogger.WithField("order_id", msg.OrderID).Infof("ticket skipped: %v", err)
		return nil
	case err != nil:
		return err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":      msg.OrderID,
		"ticket_number": ticket.TicketNumber,
	}).Info("ticket requested on cooking")
	return nil
}

func (c *TicketConsumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
