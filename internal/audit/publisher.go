package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"table_admin/internal/observability"
	"table_admin/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher sends events to a durable queue as persistent JSON messages.
type RabbitPublisher struct {
	conn    *amqp.Connection
	queue   string
	metrics *observability.Metrics

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitPublisher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) (*RabbitPublisher, error) {
	p := &RabbitPublisher{conn: conn, queue: queueName, metrics: metrics}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns the open channel, reopening it after a broker-side close.
// Callers must hold mu, except during construction.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := queue.CreateChannel(p.conn)
	if err != nil {
		return nil, err
	}
	if _, err := queue.DeclareQueue(ch, p.queue); err != nil {
		ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}

	p.metrics.Published(p.queue)
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	return p.ch.Close()
}
