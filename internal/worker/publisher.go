package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// JobPublisher queues jobs for the worker.
type JobPublisher interface {
	Publish(ctx context.Context, job Job) (string, error)
}

// PubSubPublisher publishes jobs to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

var _ JobPublisher = (*PubSubPublisher)(nil)

// NewPubSubPublisher creates a publisher for topic in projectID.
func NewPubSubPublisher(ctx context.Context, projectID, topic string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(topic),
	}, nil
}

// Publish assigns a job id when missing, publishes the job and returns the id.
func (p *PubSubPublisher) Publish(ctx context.Context, job Job) (string, error) {
	if p.publisher == nil {
		return "", ErrPublisherClosed
	}
	job, data, err := encodeJob(job)
	if err != nil {
		return "", err
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"job_type": job.JobType},
	})
	if _, err := result.Get(ctx); err != nil {
		return "", fmt.Errorf("publishing job: %w", err)
	}
	return job.JobID, nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
		p.publisher = nil
	}
	return p.client.Close()
}

func encodeJob(job Job) (Job, []byte, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if err := job.Validate(); err != nil {
		return job, nil, err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return job, nil, fmt.Errorf("encoding job: %w", err)
	}
	return job, data, nil
}

// InlinePublisher runs jobs in-process through a Dispatcher. It serves local
// development and tests where no Pub/Sub project is configured.
type InlinePublisher struct {
	dispatcher *Dispatcher
}

var _ JobPublisher = (*InlinePublisher)(nil)

// NewInlinePublisher creates a publisher that dispatches synchronously.
func NewInlinePublisher(d *Dispatcher) *InlinePublisher {
	return &InlinePublisher{dispatcher: d}
}

// Publish runs the job in the background and returns its id.
func (p *InlinePublisher) Publish(ctx context.Context, job Job) (string, error) {
	job, data, err := encodeJob(job)
	if err != nil {
		return "", err
	}
	go p.dispatcher.Handle(context.WithoutCancel(ctx), data)
	return job.JobID, nil
}
