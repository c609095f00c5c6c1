package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caseflow/followup-service/internal/application"
	"github.com/caseflow/followup-service/internal/domain"
)

// Topics maps the three inbound logs to their kafka topic names.
type Topics struct {
	ParticipantEvents     string
	NotificationLifecycle string
	ProviderMessages      string
}

// Handler is the application surface the intake worker drives.
type Handler interface {
	HandleEvent(ctx context.Context, event domain.Event) error
	HandleNotificationLifecycle(ctx context.Context, update application.NotificationLifecycleUpdate) error
	HandleProviderMessage(ctx context.Context, msg application.ProviderMessage) error
}

// IntakeWorker consumes inbound log messages one at a time and commits an
// offset only after its handler succeeded. Transient handler failures are
// retried in place with a growing pause, for as long as the worker runs;
// the partition stays blocked rather than skipping a message. A message
// that is structurally invalid is logged and committed, since redelivery
// can never fix it.
type IntakeWorker struct {
	logger      *slog.Logger
	consumer    Consumer
	handler     Handler
	topics      Topics
	backoffBase time.Duration
	backoffMax  time.Duration
}

func NewIntakeWorker(logger *slog.Logger, consumer Consumer, handler Handler, topics Topics) *IntakeWorker {
	return &IntakeWorker{
		logger:      logger,
		consumer:    consumer,
		handler:     handler,
		topics:      topics,
		backoffBase: 500 * time.Millisecond,
		backoffMax:  30 * time.Second,
	}
}

func (w *IntakeWorker) Run(ctx context.Context) error {
	for {
		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "intake iteration failed",
				"module", "events.intake_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
			if !sleep(ctx, w.backoffBase) {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (w *IntakeWorker) processOnce(ctx context.Context) error {
	msg, err := w.consumer.Fetch(ctx)
	if err != nil {
		return err
	}

	handleErr := w.handleWithRetry(ctx, msg)
	if handleErr != nil && !errors.Is(handleErr, domain.ErrInvalidInput) {
		// Not committed; the message comes back after a restart or rebalance.
		return handleErr
	}
	if handleErr != nil {
		w.logger.ErrorContext(ctx, "dropping invalid message",
			"module", "events.intake_worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "failure",
			"topic", msg.Topic,
			"error", handleErr,
		)
	}
	return w.consumer.Commit(ctx, msg)
}

func (w *IntakeWorker) handleWithRetry(ctx context.Context, msg Message) error {
	for attempt := 1; ; attempt++ {
		err := w.handle(ctx, msg)
		if err == nil || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, context.Canceled) {
			return err
		}
		delay := w.backoffBase * time.Duration(attempt*attempt)
		if delay > w.backoffMax {
			delay = w.backoffMax
		}
		w.logger.WarnContext(ctx, "message handling failed, retrying",
			"module", "events.intake_worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "retry",
			"topic", msg.Topic,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (w *IntakeWorker) handle(ctx context.Context, msg Message) error {
	switch msg.Topic {
	case w.topics.ParticipantEvents:
		event, err := DecodeEvent(msg.Payload)
		if err != nil {
			return err
		}
		return w.handler.HandleEvent(ctx, event)
	case w.topics.NotificationLifecycle:
		update, err := DecodeLifecycleUpdate(msg.Payload)
		if err != nil {
			return err
		}
		return w.handler.HandleNotificationLifecycle(ctx, update)
	case w.topics.ProviderMessages:
		pm, err := DecodeProviderMessage(msg.Payload)
		if err != nil {
			return err
		}
		return w.handler.HandleProviderMessage(ctx, pm)
	default:
		w.logger.WarnContext(ctx, "message on unexpected topic",
			"module", "events.intake_worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "skipped",
			"topic", msg.Topic,
		)
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
