// Package rabbitmq carries scrape-job dispatches over AMQP. The publisher
// and consumer share one durable queue; messages are validated against the
// JobDispatchEvent contract on both ends.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/contracts"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	eventType    = "JobDispatchEvent"
	eventVersion = "1.0.0"
)

// jobDispatchMessage is the wire form of one dispatch.
type jobDispatchMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	Source       string    `json:"source"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// JobDispatchAdapter implements JobDispatchPort over one AMQP channel.
type JobDispatchAdapter struct {
	channel   *amqp.Channel
	queueName string
}

// NewJobDispatchAdapter opens a channel and declares the durable job queue.
func NewJobDispatchAdapter(conn *amqp.Connection, queueName string) (*JobDispatchAdapter, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq adapter: connection cannot be nil")
	}
	if queueName == "" {
		return nil, fmt.Errorf("rabbitmq adapter: queue name is required")
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq adapter: failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("rabbitmq adapter: failed to declare queue '%s': %w", queueName, err)
	}

	return &JobDispatchAdapter{channel: channel, queueName: queueName}, nil
}

func (a *JobDispatchAdapter) Dispatch(ctx context.Context, jobID uuid.UUID, source string) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "JobDispatchAdapter",
		"job_id":    jobID.String(),
		"source":    source,
	})

	body, err := json.Marshal(jobDispatchMessage{
		JobID:        jobID,
		Source:       source,
		DispatchedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal dispatch: %w", err)
	}

	if err := contracts.ValidateEvent(eventType, eventVersion, body); err != nil {
		logger.Error("Dispatch message failed contract validation", err, nil)
		return fmt.Errorf("rabbitmq adapter: invalid dispatch message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = a.channel.PublishWithContext(
		publishCtx,
		"", // default exchange
		a.queueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         eventType,
		},
	)
	if err != nil {
		logger.Error("Failed to publish job dispatch", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish dispatch for job %s: %w", jobID, err)
	}

	logger.Info("Job dispatch published", nil)
	return nil
}

func (a *JobDispatchAdapter) Close() error {
	if a.channel != nil {
		return a.channel.Close()
	}
	return nil
}

var _ port.JobDispatchPort = (*JobDispatchAdapter)(nil)
