package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second

	reasonNonRetryable = "non_retryable"
	reasonMaxAttempts  = "max_attempts"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory

	// Metrics is optional.
	Metrics *metrics.OutboxMetrics
}

type Service struct {
	cfg              *config.Config
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			publisher := params.PubSub.Publisher(topic)
			if publisher == nil {
				return nil
			}
			return newGCPPubPublisher(publisher)
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:              params.Config,
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		publisherFactory: factory,
		metrics:          params.Metrics,
		batchSize:        batch,
		maxAttempts:      maxAttempts,
		pollInterval:     time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// ensureReadiness fails fast when either the database or Pub/Sub is unreachable.
func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{name: "database", ping: s.db.Ping},
		{name: "pubsub", ping: s.pubsub.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", check.name), "readiness check failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// Run polls the outbox until ctx is canceled. A full batch is followed
// immediately by the next one; errors back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = s.pollInterval
		}
		if err := s.sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// Drain publishes batches until the outbox has nothing left to fetch and
// returns how many batches were processed.
func (s *Service) Drain(ctx context.Context) (int, error) {
	if err := s.ensureReadiness(ctx); err != nil {
		return 0, err
	}
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		processed, err := s.processBatch(ctx)
		if err != nil {
			return batches, err
		}
		if !processed {
			return batches, nil
		}
		batches++
	}
}

// inflight is a row whose message has been handed to Pub/Sub but not yet confirmed.
type inflight struct {
	event  models.OutboxEvent
	topic  string
	result publishResult
	fields map[string]any
	err    error
}

// processBatch claims a batch, hands every message to its publisher, then waits
// for the acks and marks each row inside the same transaction.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	start := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()

		pending := make([]inflight, 0, len(events))
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if markErr := s.park(ctx, tx, event, reasonNonRetryable, err, nil); markErr != nil {
					return markErr
				}
				continue
			}
			item := inflight{
				event:  event,
				topic:  resolved.Descriptor.Topic,
				fields: s.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic),
			}
			item.result, item.err = s.send(publishCtx, event, resolved)
			pending = append(pending, item)
		}

		for _, item := range pending {
			if err := s.settle(publishCtx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if processed {
		s.metrics.ObserveBatch(time.Since(start))
	}
	return processed, err
}

// settle waits for one publish result and records the outcome on the row.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, item inflight) error {
	err := item.err
	if err == nil {
		_, err = item.result.Get(ctx)
	}
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, item.event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", item.event.ID, markErr)
		}
		s.metrics.ObservePublish(string(item.event.EventType), metrics.PublishPublished)
		s.logg.Info(s.logg.WithFields(ctx, item.fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return s.park(ctx, tx, item.event, reasonNonRetryable, err, item.fields)
	}

	item.fields["attempt_count"] = item.event.AttemptCount + 1
	if item.event.LastAttempt(s.maxAttempts) {
		return s.park(ctx, tx, item.event, reasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), item.fields)
	}

	logCtx := s.logg.WithFields(ctx, item.fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, item.event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", item.event.ID, markErr)
	}
	s.metrics.ObservePublish(string(item.event.EventType), metrics.PublishRetry)
	return nil
}

// park marks a row terminal so the fetch query skips it; retention deletes it later.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, err error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox event will not be retried")

	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	s.metrics.ObservePublish(string(event.EventType), metrics.PublishParked)
	return nil
}

// send hands the stored envelope to the topic publisher without waiting for the ack.
func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (publishResult, error) {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return nil, registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved.Envelope),
	})
	if result == nil {
		return nil, registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	return result, nil
}

// messageAttributes are set on every published outbox message.
func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":         envelope.EventID,
		"event_type":       string(event.EventType),
		"aggregate_type":   string(event.AggregateType),
		"aggregate_id":     event.AggregateID,
		"created_at":       event.CreatedAt.Format(time.RFC3339Nano),
		"envelope_version": strconv.Itoa(envelope.Version),
	}
	if envelope.Source != "" {
		attrs["source"] = envelope.Source
	}
	return attrs
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// withJitter adds up to a tenth of d so idle publishers do not poll in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	window := int64(d / 10)
	if window <= 0 {
		return d
	}
	return d + time.Duration(jitterSource.Int63n(window))
}

func newGCPPubPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
