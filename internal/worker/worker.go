package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"table_admin/internal/audit"
	"table_admin/internal/observability"
	"table_admin/internal/queue"
	"table_admin/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const MaxRetries = 3

// Republisher is the part of *amqp.Channel used to requeue a failed message.
type Republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AuditWorker stores audit events consumed from the queue.
type AuditWorker struct {
	ID      int
	DB      *sql.DB
	Repo    audit.AuditRepositoryInterface
	Queue   string
	Metrics *observability.Metrics
}

func republishWithRetry(pub Republisher, msg *amqp.Delivery, retryCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Create new headers with incremented retry count
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[queue.RetryHeader] = int32(retryCount)

	return pub.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

// Handle stores one delivery and settles it. Malformed payloads are dropped;
// storage failures are republished until MaxRetries is reached.
func (w *AuditWorker) Handle(ctx context.Context, pub Republisher, msg amqp.Delivery) {
	w.Metrics.Consumed(w.Queue)

	var event audit.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil || !event.Valid() {
		logrus.WithField("worker", w.ID).Error("invalid audit payload")
		w.Metrics.AuditFailed("invalid_payload")
		_ = msg.Nack(false, false)
		return
	}

	retryCount := queue.RetryCount(msg.Headers)
	log := logrus.WithFields(logrus.Fields{
		"worker": w.ID,
		"action": event.Action,
		"table":  event.Table,
		"retry":  retryCount,
	})
	log.Debug("Storing audit event")

	err := utils.WithTransaction(ctx, w.DB, func(tx *sql.Tx) error {
		return w.Repo.Insert(ctx, tx, event)
	})
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	log.WithError(err).Error("Failed to store audit event")

	if retryCount >= MaxRetries {
		w.Metrics.AuditFailed("max_retries")
		_ = msg.Nack(false, false)
		return
	}

	log.Infof("Requeuing audit event (retry %d/%d)", retryCount+1, MaxRetries)
	if err := republishWithRetry(pub, &msg, retryCount+1); err != nil {
		log.WithError(err).Error("Failed to republish message")
		w.Metrics.AuditFailed("republish_error")
		_ = msg.Nack(false, false)
		return
	}

	w.Metrics.Published(w.Queue)
	_ = msg.Ack(false)
}

// Start consumes the queue until ctx is cancelled or the channel closes.
func (w *AuditWorker) Start(ctx context.Context, conn *amqp.Connection) error {
	ch, err := queue.CreateChannel(conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := queue.DeclareQueue(ch, w.Queue); err != nil {
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		w.Queue,
		"",
		false, // manual ACK
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	logrus.Infof("Worker %d started", w.ID)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", w.ID)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logrus.Warnf("Worker %d: delivery channel closed", w.ID)
				return nil
			}
			w.Handle(ctx, ch, msg)
		}
	}
}
