package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

// ResendDue re-issues the external send for active notifications whose
// renotify timestamp has elapsed. The original is superseded and a fresh
// notification referencing it takes over the open slot; the replacement is
// not armed again, so one repeat delivery happens per notification.
func (s *Service) ResendDue(ctx context.Context) error {
	due, err := s.notifications.ListRenotifyDue(ctx, s.nowFn(), s.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	for _, n := range due {
		if err := s.resendOne(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "re-notification failed",
				"module", "application.service_notifications",
				"layer", "application",
				"operation", "resend_due",
				"outcome", "failure",
				"notification_id", n.NotificationID,
				"subject_id", n.SubjectID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *Service) resendOne(ctx context.Context, n domain.Notification) error {
	now := s.nowFn()

	resendOf := n.NotificationID
	params := ports.CreateNotificationParams{
		NotificationID:  uuid.New(),
		SubjectID:       n.SubjectID,
		Type:            n.Type,
		Status:          domain.NotificationStatusActive,
		Text:            n.Text,
		ActiveFrom:      n.ActiveFrom,
		ActiveTil:       n.ActiveTil,
		ExternalChannel: n.ExternalChannel,
		ExternallySent:  true,
		EventIDs:        n.EventIDs,
		ResendOf:        &resendOf,
		Now:             now,
	}
	cmd, err := s.createCommand(params)
	if err != nil {
		return err
	}
	// One transaction closes the original and creates the replacement. A
	// failure leaves the original open and armed, so the next pass retries.
	created, err := s.notifications.Replace(ctx, n.NotificationID, params, cmd)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification re-sent",
		"module", "application.service_notifications",
		"layer", "application",
		"operation", "resend_one",
		"outcome", "success",
		"notification_id", created.NotificationID,
		"resend_of", n.NotificationID,
		"subject_id", n.SubjectID,
	)
	return nil
}

// SweepActivationWindows promotes waiting notifications whose window has
// opened and closes active ones whose window has elapsed. Both transitions
// publish the flattened state DTO for downstream display systems.
func (s *Service) SweepActivationWindows(ctx context.Context) error {
	now := s.nowFn()

	waiting, err := s.notifications.ListWaitingDue(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	for _, n := range waiting {
		cmd, err := s.activateCommand(n, now)
		if err != nil {
			return err
		}
		if err := s.notifications.MarkActive(ctx, n.NotificationID, true, now, cmd); err != nil {
			s.logger.WarnContext(ctx, "notification activation failed",
				"module", "application.service_notifications",
				"layer", "application",
				"operation", "sweep_activation_windows",
				"outcome", "failure",
				"notification_id", n.NotificationID,
				"error", err,
			)
			continue
		}
		n.Status = domain.NotificationStatusActive
		n.ExternallySent = true
		s.emitStateEvent(ctx, n, now)
	}

	expired, err := s.notifications.ListActiveExpired(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	for _, n := range expired {
		if err := s.notifications.MarkDone(ctx, n.NotificationID, now, nil); err != nil {
			s.logger.WarnContext(ctx, "notification expiry failed",
				"module", "application.service_notifications",
				"layer", "application",
				"operation", "sweep_activation_windows",
				"outcome", "failure",
				"notification_id", n.NotificationID,
				"error", err,
			)
			continue
		}
		n.Status = domain.NotificationStatusDone
		s.emitStateEvent(ctx, n, now)
	}
	return nil
}

// HandleNotificationLifecycle consumes the external notification service's
// lifecycle log. Only confirmations that stop re-notification matter here.
func (s *Service) HandleNotificationLifecycle(ctx context.Context, update NotificationLifecycleUpdate) error {
	now := s.nowFn()

	switch update.EventName {
	case LifecycleCreated:
		return nil
	case LifecycleInactivated, LifecycleDeleted:
		err := s.notifications.MarkDone(ctx, update.NotificationID, now, nil)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	case LifecycleExternalStatusUpdated:
		switch update.ExternalStatus {
		case "delivered", "completed":
			err := s.notifications.ClearRenotify(ctx, update.NotificationID, now)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		default:
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown lifecycle event %q", domain.ErrInvalidInput, update.EventName)
	}
}

// HandleProviderMessage translates a provider proposal into a synthetic
// internal event and runs it through the normal decision path. Other message
// kinds are ignored.
func (s *Service) HandleProviderMessage(ctx context.Context, msg ProviderMessage) error {
	if msg.MessageKind != ProviderMessageKindProposal {
		return nil
	}

	channel, err := s.personRegistry.ChannelClassification(ctx, msg.SubjectID)
	if err != nil {
		return err
	}

	event := domain.Event{
		ID:        msg.MessageID,
		SubjectID: msg.SubjectID,
		Actor:     domain.Actor{Role: domain.ActorProvider, ID: msg.ProviderID},
		Payload: domain.ProviderProposalPayload{
			ProposalID: msg.MessageID.String(),
			ProviderID: msg.ProviderID,
			Summary:    msg.Summary,
		},
		Timestamp: msg.SentAt,
		Channel:   channel,
	}
	return s.HandleEvent(ctx, event)
}
