package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

func (s *Service) createCommand(params ports.CreateNotificationParams) (*ports.OutboxEvent, error) {
	activeFrom := params.ActiveFrom
	cmd := NotificationCommand{
		CommandID:       uuid.NewString(),
		Command:         "create",
		NotificationID:  params.NotificationID.String(),
		SubjectID:       params.SubjectID,
		Type:            string(params.Type),
		Text:            params.Text,
		ActiveFrom:      &activeFrom,
		ActiveTil:       params.ActiveTil,
		ExternalChannel: params.ExternalChannel,
		OccurredAt:      params.Now,
	}
	if params.ResendOf != nil {
		cmd.ResendOf = params.ResendOf.String()
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return &ports.OutboxEvent{
		OutboxID:     uuid.New(),
		EventType:    EventTypeNotificationCreate,
		PartitionKey: params.NotificationID.String(),
		Payload:      payload,
		OccurredAt:   params.Now,
	}, nil
}

func (s *Service) activateCommand(n domain.Notification, now time.Time) (*ports.OutboxEvent, error) {
	activeFrom := n.ActiveFrom
	cmd := NotificationCommand{
		CommandID:       uuid.NewString(),
		Command:         "create",
		NotificationID:  n.NotificationID.String(),
		SubjectID:       n.SubjectID,
		Type:            string(n.Type),
		Text:            n.Text,
		ActiveFrom:      &activeFrom,
		ActiveTil:       n.ActiveTil,
		ExternalChannel: n.ExternalChannel,
		OccurredAt:      now,
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return &ports.OutboxEvent{
		OutboxID:     uuid.New(),
		EventType:    EventTypeNotificationCreate,
		PartitionKey: n.NotificationID.String(),
		Payload:      payload,
		OccurredAt:   now,
	}, nil
}

func (s *Service) inactivateCommand(n domain.Notification, now time.Time) (*ports.OutboxEvent, error) {
	cmd := NotificationCommand{
		CommandID:      uuid.NewString(),
		Command:        "inactivate",
		NotificationID: n.NotificationID.String(),
		SubjectID:      n.SubjectID,
		OccurredAt:     now,
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return &ports.OutboxEvent{
		OutboxID:     uuid.New(),
		EventType:    EventTypeNotificationInactivate,
		PartitionKey: n.NotificationID.String(),
		Payload:      payload,
		OccurredAt:   now,
	}, nil
}

// emitStateEvent publishes the flattened display DTO. Best effort: a failed
// enqueue is logged and never fails the owning operation.
func (s *Service) emitStateEvent(ctx context.Context, n domain.Notification, now time.Time) {
	state := NotificationStateEvent{
		NotificationID:  n.NotificationID.String(),
		SubjectID:       n.SubjectID,
		Type:            string(n.Type),
		Status:          string(n.Status),
		Text:            n.Text,
		ActiveFrom:      n.ActiveFrom,
		ActiveTil:       n.ActiveTil,
		ExternalChannel: n.ExternalChannel,
		OccurredAt:      now,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		OutboxID:     uuid.New(),
		EventType:    EventTypeNotificationState,
		PartitionKey: n.SubjectID,
		Payload:      payload,
		OccurredAt:   now,
	}); err != nil {
		s.logger.WarnContext(ctx, "notification state event enqueue failed",
			"module", "application.service_helpers",
			"layer", "application",
			"operation", "emit_state_event",
			"outcome", "failure",
			"notification_id", n.NotificationID,
			"error", err,
		)
	}
}
