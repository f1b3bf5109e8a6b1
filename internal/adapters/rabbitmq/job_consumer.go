package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/contracts"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// JobHandler processes one dispatched job. A returned error requeues the
// message once; a second failure drops it.
type JobHandler func(ctx context.Context, jobID uuid.UUID, source string) error

// JobConsumer pulls job dispatches off the queue and hands them to the
// handler sequentially.
type JobConsumer struct {
	channel   *amqp.Channel
	queueName string
}

func NewJobConsumer(conn *amqp.Connection, queueName string) (*JobConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq consumer: connection cannot be nil")
	}
	if queueName == "" {
		return nil, fmt.Errorf("rabbitmq consumer: queue name is required")
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consumer: failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("rabbitmq consumer: failed to declare queue '%s': %w", queueName, err)
	}

	// One unacked message at a time; job runs are long and sequential.
	if err := channel.Qos(1, 0, false); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("rabbitmq consumer: failed to set QoS: %w", err)
	}

	return &JobConsumer{channel: channel, queueName: queueName}, nil
}

// Consume blocks handling deliveries until the context is cancelled or
// the channel closes.
func (c *JobConsumer) Consume(ctx context.Context, handler JobHandler) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "JobConsumer",
		"queue":     c.queueName,
	})

	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consumer: failed to start consuming: %w", err)
	}

	logger.Info("Consuming job dispatches", nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq consumer: delivery channel closed")
			}
			c.handleDelivery(ctx, logger, delivery, handler)
		}
	}
}

func (c *JobConsumer) handleDelivery(ctx context.Context, logger port.LoggerPort, delivery amqp.Delivery, handler JobHandler) {
	if err := contracts.ValidateEvent(eventType, eventVersion, delivery.Body); err != nil {
		logger.Error("Dropping message failing contract validation", err, nil)
		_ = delivery.Nack(false, false)
		return
	}

	var msg jobDispatchMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		logger.Error("Dropping undecodable message", err, nil)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg.JobID, msg.Source); err != nil {
		logger.Error("Job handler failed", err, port.Fields{
			"job_id": msg.JobID.String(),
			"source": msg.Source,
		})
		// Requeue once; a redelivered failure is dropped so a poison
		// message cannot loop forever.
		_ = delivery.Nack(false, !delivery.Redelivered)
		return
	}

	_ = delivery.Ack(false)
}

func (c *JobConsumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
