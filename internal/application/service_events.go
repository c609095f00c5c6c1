package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

// HandleEvent records the event and applies the notification decision table.
// Redelivery of an already handled event id is a silent no-op. A missing
// case period aborts only this event; it stays unprocessed and is retried by
// the scheduled sweep instead of blocking the intake partition.
func (s *Service) HandleEvent(ctx context.Context, event domain.Event) error {
	inserted, err := s.events.RecordEvent(ctx, event)
	if err != nil {
		return err
	}
	if !inserted {
		processed, err := s.events.IsProcessed(ctx, event.ID)
		if err != nil {
			return err
		}
		if processed {
			s.logger.InfoContext(ctx, "duplicate event skipped",
				"module", "application.service_events",
				"layer", "application",
				"operation", "handle_event",
				"outcome", "skipped",
				"event_id", event.ID,
				"subject_id", event.SubjectID,
			)
			return nil
		}
		// Recorded earlier but handling did not complete; run it again.
	}

	if err := s.processEvent(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNoCasePeriod) {
			s.logger.WarnContext(ctx, "event handling aborted, retried on next sweep",
				"module", "application.service_events",
				"layer", "application",
				"operation", "handle_event",
				"outcome", "deferred",
				"event_id", event.ID,
				"subject_id", event.SubjectID,
				"error", err,
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) processEvent(ctx context.Context, event domain.Event) error {
	now := s.nowFn()

	if event.ManualFollowUp {
		s.logger.InfoContext(ctx, "manual follow-up event, no notification issued",
			"module", "application.service_events",
			"layer", "application",
			"operation", "process_event",
			"outcome", "skipped",
			"event_id", event.ID,
			"subject_id", event.SubjectID,
		)
		return s.events.MarkProcessed(ctx, event.ID, now)
	}

	// Safety net for replays of events handled before the processed flag
	// existed: a notification referencing the id means work already happened.
	if seen, err := s.notifications.ExistsForEvent(ctx, event.ID); err != nil {
		return err
	} else if seen {
		return s.events.MarkProcessed(ctx, event.ID, now)
	}

	decision, err := domain.DecideFor(event.Payload.Kind())
	if err != nil {
		return err
	}

	switch decision.Action {
	case domain.ActionNone:
	case domain.ActionCreateTask:
		if err := s.createNotification(ctx, event, domain.NotificationTypeTask, decision.Text, false); err != nil {
			return err
		}
	case domain.ActionCreateMessage:
		if err := s.createNotification(ctx, event, domain.NotificationTypeMessage, decision.Text, true); err != nil {
			return err
		}
	case domain.ActionDeactivateTask:
		if err := s.deactivateOpen(ctx, event.SubjectID, domain.NotificationTypeTask); err != nil {
			return err
		}
	case domain.ActionDeactivateThenCreate:
		if err := s.deactivateOpen(ctx, event.SubjectID, domain.NotificationTypeTask); err != nil {
			return err
		}
		if err := s.createNotification(ctx, event, domain.NotificationTypeMessage, decision.Text, true); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unhandled decision action %q", domain.ErrInvalidInput, decision.Action)
	}

	return s.events.MarkProcessed(ctx, event.ID, now)
}

func (s *Service) createNotification(ctx context.Context, event domain.Event, notificationType domain.NotificationType, text string, withExpiry bool) error {
	now := s.nowFn()

	ok, err := s.cases.HasActiveCasePeriod(ctx, event.SubjectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: subject %s", domain.ErrNoCasePeriod, event.SubjectID)
	}

	if existing, err := s.notifications.LatestOpen(ctx, event.SubjectID, notificationType); err == nil && existing.Open() {
		s.logger.InfoContext(ctx, "open notification exists, creation skipped",
			"module", "application.service_events",
			"layer", "application",
			"operation", "create_notification",
			"outcome", "skipped",
			"event_id", event.ID,
			"subject_id", event.SubjectID,
			"notification_type", notificationType,
			"notification_id", existing.NotificationID,
		)
		return nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	activeFrom := activationTimeFor(event)
	var activeTil *time.Time
	if withExpiry {
		til := activeFrom.Add(s.cfg.MessageValidity)
		activeTil = &til
	}

	external := event.Channel == domain.ChannelDigital
	var renotifyAt *time.Time
	if external {
		t := activeFrom.Add(s.cfg.RenotifyInterval)
		renotifyAt = &t
	}

	params := ports.CreateNotificationParams{
		NotificationID:  uuid.New(),
		SubjectID:       event.SubjectID,
		Type:            notificationType,
		Status:          domain.NotificationStatusWaiting,
		Text:            text,
		ActiveFrom:      activeFrom,
		ActiveTil:       activeTil,
		ExternalChannel: external,
		RenotifyAt:      renotifyAt,
		EventIDs:        []uuid.UUID{event.ID},
		Now:             now,
	}

	// Created waiting and unannounced. The activation sweep promotes the
	// notification and sends the create command once the window is open, so
	// a cancellation landing before the sweep never reaches the subject.
	if _, err := s.notifications.Create(ctx, params, nil); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.InfoContext(ctx, "open slot taken concurrently, creation skipped",
				"module", "application.service_events",
				"layer", "application",
				"operation", "create_notification",
				"outcome", "skipped",
				"event_id", event.ID,
				"subject_id", event.SubjectID,
				"notification_type", notificationType,
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) deactivateOpen(ctx context.Context, subjectID string, notificationType domain.NotificationType) error {
	n, err := s.notifications.LatestOpen(ctx, subjectID, notificationType)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.InfoContext(ctx, "no open notification to deactivate",
			"module", "application.service_events",
			"layer", "application",
			"operation", "deactivate_open",
			"outcome", "skipped",
			"subject_id", subjectID,
			"notification_type", notificationType,
		)
		return nil
	}
	if err != nil {
		return err
	}

	now := s.nowFn()
	var outboxEvent *ports.OutboxEvent
	if n.ExternallySent {
		cmd, err := s.inactivateCommand(n, now)
		if err != nil {
			return err
		}
		outboxEvent = cmd
	}
	return s.notifications.MarkDone(ctx, n.NotificationID, now, outboxEvent)
}

// RetryPending re-runs the decision step for recorded events whose handling
// aborted, typically on a missing case period. One failing event never
// blocks the rest of the batch.
func (s *Service) RetryPending(ctx context.Context) error {
	pending, err := s.events.ListUnprocessed(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	for _, event := range pending {
		if err := s.processEvent(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "pending event retry failed",
				"module", "application.service_events",
				"layer", "application",
				"operation", "retry_pending",
				"outcome", "failure",
				"event_id", event.ID,
				"subject_id", event.SubjectID,
				"error", err,
			)
		}
	}
	return nil
}

// activationTimeFor picks the notification activation time: decisions take
// effect at their validity start, everything else at the event timestamp.
func activationTimeFor(event domain.Event) time.Time {
	if p, ok := event.Payload.(domain.DecisionApprovedPayload); ok && !p.ValidFrom.IsZero() {
		return p.ValidFrom
	}
	return event.Timestamp
}
