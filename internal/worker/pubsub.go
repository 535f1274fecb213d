package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	GenerateJob      *GenerateJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Generation is slow; keep few messages in flight and extend leases generously.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       NewDispatcher(cfg.GenerateJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if h.dispatcher.Handle(logger.WithContext(ctx), msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Dispatcher decodes job messages and runs them.
type Dispatcher struct {
	generate *GenerateJob
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given jobs.
func NewDispatcher(generate *GenerateJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{generate: generate, logger: logger}
}

// Handle processes one message body and reports whether it should be acknowledged.
// Messages that can never succeed are acknowledged so they are not redelivered.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) bool {
	startTime := time.Now()
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &d.logger
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return true
	}

	if err := job.Validate(); err != nil {
		logger.Warn().Err(err).Str("job_type", job.JobType).Msg("dropping invalid job")
		return true
	}

	var err error
	switch job.JobType {
	case JobTypeGenerateItinerary:
		_, err = d.generate.Run(ctx, job)
	case JobTypeHealthCheck:
		logger.Debug().Msg("health check job received")
	}

	if err != nil {
		retry := Retryable(err)
		logger.Error().
			Err(err).
			Str("job_id", job.JobID).
			Bool("retry", retry).
			Msg("job failed")
		return !retry
	}

	logger.Info().
		Str("job_type", job.JobType).
		Str("job_id", job.JobID).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	return true
}
