package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/application"
	"github.com/caseflow/followup-service/internal/domain"
)

// eventEnvelope is the wire form of a participant life-cycle event. The
// payload object carries its own "type" discriminator.
type eventEnvelope struct {
	ID               uuid.UUID       `json:"id"`
	SubjectID        string          `json:"subjectId"`
	ResponsibleActor actorEnvelope   `json:"responsibleActor"`
	Payload          json.RawMessage `json:"payload"`
	Timestamp        time.Time       `json:"timestamp"`
	Channel          string          `json:"channelClassification"`
	ManualFollowUp   bool            `json:"manualFollowUp"`
}

type actorEnvelope struct {
	Role string `json:"role"`
	ID   string `json:"id"`
}

// DecodeEvent parses a participant event log message. Validation failures
// return domain.ErrInvalidInput so callers can tell a broken message from a
// transient handling error.
func DecodeEvent(raw []byte) (domain.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Event{}, fmt.Errorf("%w: event envelope: %v", domain.ErrInvalidInput, err)
	}
	if env.ID == uuid.Nil {
		return domain.Event{}, fmt.Errorf("%w: event id missing", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(env.SubjectID) == "" {
		return domain.Event{}, fmt.Errorf("%w: subject id missing", domain.ErrInvalidInput)
	}
	if env.Timestamp.IsZero() {
		return domain.Event{}, fmt.Errorf("%w: timestamp missing", domain.ErrInvalidInput)
	}
	channel, err := parseChannel(env.Channel)
	if err != nil {
		return domain.Event{}, err
	}
	payload, err := domain.DecodePayload(env.Payload)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		ID:        env.ID,
		SubjectID: env.SubjectID,
		Actor: domain.Actor{
			Role: domain.ActorRole(env.ResponsibleActor.Role),
			ID:   env.ResponsibleActor.ID,
		},
		Payload:        payload,
		Timestamp:      env.Timestamp.UTC(),
		Channel:        channel,
		ManualFollowUp: env.ManualFollowUp,
	}, nil
}

type lifecycleEnvelope struct {
	NotificationID uuid.UUID `json:"notificationId"`
	EventName      string    `json:"eventName"`
	ExternalStatus string    `json:"externalStatus"`
}

// DecodeLifecycleUpdate parses a notification-lifecycle log message.
func DecodeLifecycleUpdate(raw []byte) (application.NotificationLifecycleUpdate, error) {
	var env lifecycleEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return application.NotificationLifecycleUpdate{}, fmt.Errorf("%w: lifecycle envelope: %v", domain.ErrInvalidInput, err)
	}
	if env.NotificationID == uuid.Nil {
		return application.NotificationLifecycleUpdate{}, fmt.Errorf("%w: notification id missing", domain.ErrInvalidInput)
	}
	if env.EventName == "" {
		return application.NotificationLifecycleUpdate{}, fmt.Errorf("%w: event name missing", domain.ErrInvalidInput)
	}
	return application.NotificationLifecycleUpdate{
		NotificationID: env.NotificationID,
		EventName:      env.EventName,
		ExternalStatus: env.ExternalStatus,
	}, nil
}

type providerMessageEnvelope struct {
	MessageID   uuid.UUID `json:"messageId"`
	MessageKind string    `json:"messageKind"`
	SubjectID   string    `json:"subjectId"`
	ProviderID  string    `json:"providerId"`
	Summary     string    `json:"summary"`
	SentAt      time.Time `json:"sentAt"`
}

// DecodeProviderMessage parses a provider-message log record.
func DecodeProviderMessage(raw []byte) (application.ProviderMessage, error) {
	var env providerMessageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return application.ProviderMessage{}, fmt.Errorf("%w: provider message envelope: %v", domain.ErrInvalidInput, err)
	}
	if env.MessageID == uuid.Nil {
		return application.ProviderMessage{}, fmt.Errorf("%w: message id missing", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(env.SubjectID) == "" {
		return application.ProviderMessage{}, fmt.Errorf("%w: subject id missing", domain.ErrInvalidInput)
	}
	return application.ProviderMessage{
		MessageID:   env.MessageID,
		MessageKind: env.MessageKind,
		SubjectID:   env.SubjectID,
		ProviderID:  env.ProviderID,
		Summary:     env.Summary,
		SentAt:      env.SentAt.UTC(),
	}, nil
}

func parseChannel(raw string) (domain.ChannelClassification, error) {
	switch domain.ChannelClassification(raw) {
	case domain.ChannelDigital, domain.ChannelPaper:
		return domain.ChannelClassification(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown channel classification %q", domain.ErrInvalidInput, raw)
	}
}
