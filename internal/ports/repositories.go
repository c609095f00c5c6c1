package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/domain"
)

// EventRepository is the persisted, idempotent log of received events plus
// per-event archival status. All writes are replay safe: re-recording an
// existing event id is not an error.
type EventRepository interface {
	// RecordEvent inserts the event unless its id is already present.
	// Returns false when the event was already recorded.
	RecordEvent(ctx context.Context, event domain.Event) (inserted bool, err error)
	GetByID(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	// ListUnarchived returns events older than the cutoff that have neither a
	// produced document nor a permanent archive block. Distribution progress
	// is tracked separately and does not make an event eligible again.
	ListUnarchived(ctx context.Context, olderThan time.Time) ([]domain.Event, error)
	GetArchivalStatus(ctx context.Context, eventID uuid.UUID) (domain.ArchivalStatus, error)
	// UpsertArchivalStatus merges the given status forward; set fields never
	// regress to unset.
	UpsertArchivalStatus(ctx context.Context, status domain.ArchivalStatus) error
	// ListUnprocessed returns recorded events whose notification handling has
	// not completed, oldest first.
	ListUnprocessed(ctx context.Context, limit int) ([]domain.Event, error)
	IsProcessed(ctx context.Context, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

type CreateNotificationParams struct {
	NotificationID  uuid.UUID
	SubjectID       string
	Type            domain.NotificationType
	Status          domain.NotificationStatus
	Text            string
	ActiveFrom      time.Time
	ActiveTil       *time.Time
	ExternalChannel bool
	ExternallySent  bool
	RenotifyAt      *time.Time
	EventIDs        []uuid.UUID
	ResendOf        *uuid.UUID
	Now             time.Time
}

// NotificationRepository owns notification state. Mutations that must reach
// the outside world take an optional outbox event written in the same
// database transaction as the state change.
type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams, outbox *OutboxEvent) (domain.Notification, error)
	// Replace closes the superseded notification and creates its replacement
	// in one transaction. On failure neither notification changes, so the
	// superseded one keeps its open slot and renotify timestamp.
	Replace(ctx context.Context, supersededID uuid.UUID, params CreateNotificationParams, outbox *OutboxEvent) (domain.Notification, error)
	GetByID(ctx context.Context, notificationID uuid.UUID) (domain.Notification, error)
	// LatestOpen returns the newest waiting-or-active notification of the
	// given type for the subject, or ErrNotFound.
	LatestOpen(ctx context.Context, subjectID string, notificationType domain.NotificationType) (domain.Notification, error)
	// ExistsForEvent reports whether any notification references the event id.
	ExistsForEvent(ctx context.Context, eventID uuid.UUID) (bool, error)
	// MarkDone closes the notification and clears its renotify timestamp.
	MarkDone(ctx context.Context, notificationID uuid.UUID, at time.Time, outbox *OutboxEvent) error
	MarkActive(ctx context.Context, notificationID uuid.UUID, externallySent bool, at time.Time, outbox *OutboxEvent) error
	ClearRenotify(ctx context.Context, notificationID uuid.UUID, at time.Time) error
	// ListRenotifyDue returns active notifications whose renotify timestamp
	// has elapsed.
	ListRenotifyDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	// ListWaitingDue returns waiting notifications whose activation window
	// has opened.
	ListWaitingDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	// ListActiveExpired returns active notifications whose window elapsed.
	ListActiveExpired(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

type OutboxEvent struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	CreatedAt    time.Time
}

// OutboxRepository stores outbound messages in the same database as domain
// state so a committed state change and its message are atomic.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	// ClaimUnpublished reserves a batch for one relay instance until the
	// claim expires, so replicas do not publish the same record twice in the
	// common case.
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
