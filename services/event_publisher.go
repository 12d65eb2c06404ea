package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrdersExchange    = "orders_topic"
	TicketQueue       = "ticket_queue"
	EventOrderCreated = "order.created"
	EventTicketReady  = "ticket.generated"
)

// OrderMessage is the JSON body of every message on the orders exchange.
type OrderMessage struct {
	Event        string             `json:"event"`
	OrderID      uint               `json:"order_id"`
	Channel      models.Channel     `json:"channel,omitempty"`
	SlotID       *uint              `json:"slot_id,omitempty"`
	From         models.OrderStatus `json:"from,omitempty"`
	To           models.OrderStatus `json:"to,omitempty"`
	TicketNumber string             `json:"ticket_number,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

func transitionMessage(ev TransitionEvent) OrderMessage {
	return OrderMessage{
		Event:      "order." + string(ev.To),
		OrderID:    ev.Order.ID,
		Channel:    ev.Order.Channel,
		SlotID:     ev.Order.SlotID,
		From:       ev.From,
		To:         ev.To,
		OccurredAt: ev.ChangedAt,
	}
}

// EventPublisher mirrors order events onto a RabbitMQ topic exchange. The routing
// key is the event name, e.g. order.cooking. Publishing happens on one goroutine
// because an amqp.Channel must not be shared between concurrent publishers.
type EventPublisher struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	pending chan OrderMessage
	wg      sync.WaitGroup
	once    sync.Once
}

func NewEventPublisher(url string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareOrdersExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	p := &EventPublisher{conn: conn, ch: ch, pending: make(chan OrderMessage, 256)}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

func declareOrdersExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrdersExchange, // name
		"topic",        // kind
		true,           // durable
		false,          // autoDelete
		false,          // internal
		false,          // noWait
		nil,            // args
	); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return nil
}

func (p *EventPublisher) OrderCreated(order models.Order) {
	p.enqueue(OrderMessage{
		Event:      EventOrderCreated,
		OrderID:    order.ID,
		Channel:    order.Channel,
		SlotID:     order.SlotID,
		To:         order.Status,
		OccurredAt: order.CreatedAt,
	})
}

func (p *EventPublisher) OrderTransitioned(ev TransitionEvent) {
	p.enqueue(transitionMessage(ev))
}

func (p *EventPublisher) TicketGenerated(ticket models.Ticket) {
	p.enqueue(OrderMessage{
		Event:        EventTicketReady,
		OrderID:      ticket.OrderID,
		Channel:      ticket.Channel,
		TicketNumber: ticket.TicketNumber,
		OccurredAt:   ticket.CreatedAt,
	})
}

// enqueue never blocks the request path; a full buffer drops the message.
func (p *EventPublisher) enqueue(msg OrderMessage) {
	select {
	case p.pending <- msg:
	default:
		utils.ErrorLogger.WithField("event", msg.Event).Warn("rabbitmq: publish buffer full, message dropped")
	}
}

func (p *EventPublisher) run() {
	defer p.wg.Done()
	for msg := range p.pending {
		if err := p.publish(msg); err != nil {
			utils.ErrorLogger.WithField("event", msg.Event).Errorf("rabbitmq: publish failed: %v", err)
		}
	}
}

func (p *EventPublisher) publish(msg OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx,
		OrdersExchange, // exchange
		msg.Event,      // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Close flushes buffered messages and closes the connection.
func (p *EventPublisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.pending)
		p.wg.Wait()
		_ = p.ch.Close()
		err = p.conn.Close()
	})
	return err
}
