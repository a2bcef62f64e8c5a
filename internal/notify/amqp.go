package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPChannel is the subset of *amqp.Channel the publisher uses.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher queues customer emails for the mail relay that consumes
// Queue. Undeliverable messages end up in Queue+".dlq".
type AMQPPublisher struct {
	ch       AMQPChannel
	exchange string
	queue    string
	brand    string
	currency string
	log      *slog.Logger
	mu       sync.Mutex
}

func NewAMQPPublisher(ch AMQPChannel, exchange, queue, brand, currency string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, queue: queue, brand: brand, currency: currency, log: log}
}

func (p *AMQPPublisher) dlx() string { return p.exchange + ".dlx" }
func (p *AMQPPublisher) dlq() string { return p.queue + ".dlq" }

// Setup declares the exchange, the notification queue and its dead-letter
// exchange and queue.
func (p *AMQPPublisher) Setup() error {
	if err := p.ch.ExchangeDeclare(p.dlx(), "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := p.ch.QueueDeclare(p.dlq(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := p.ch.QueueBind(p.dlq(), p.queue, p.dlx(), false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if err := p.ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := p.ch.QueueDeclare(p.queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    p.dlx(),
		"x-dead-letter-routing-key": p.queue,
	}); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}
	if err := p.ch.QueueBind(p.queue, p.queue, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind notification queue: %w", err)
	}
	return nil
}

// OrderPlaced is a no-op: customers are emailed on status changes only.
func (p *AMQPPublisher) OrderPlaced(context.Context, OrderEvent) error { return nil }

func (p *AMQPPublisher) OrderStatusChanged(ctx context.Context, event OrderEvent) error {
	msg, ok := ComposeStatusMessage(event, p.brand, p.currency)
	if !ok || msg.To == "" {
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OrderID.String() + ":" + string(event.Status),
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.log.Info("notification queued", "order_id", event.OrderID, "status", event.Status)
	return nil
}
