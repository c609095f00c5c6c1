package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type notificationRepository struct {
	db *gorm.DB
}

func (r *notificationRepository) Create(ctx context.Context, params ports.CreateNotificationParams, outbox *ports.OutboxEvent) (domain.Notification, error) {
	row := notificationModel{
		NotificationID:  params.NotificationID,
		SubjectID:       params.SubjectID,
		Type:            string(params.Type),
		Status:          string(params.Status),
		Text:            params.Text,
		ActiveFrom:      params.ActiveFrom.UTC(),
		ActiveTil:       utcPtr(params.ActiveTil),
		ExternalChannel: params.ExternalChannel,
		ExternallySent:  params.ExternallySent,
		RenotifyAt:      utcPtr(params.RenotifyAt),
		EventIDs:        joinEventIDs(params.EventIDs),
		ResendOf:        params.ResendOf,
		CreatedAt:       params.Now.UTC(),
		UpdatedAt:       params.Now.UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return enqueueOutbox(tx, outbox)
	})
	if err != nil {
		return domain.Notification{}, err
	}
	return toDomainNotification(row), nil
}

func (r *notificationRepository) Replace(ctx context.Context, supersededID uuid.UUID, params ports.CreateNotificationParams, outbox *ports.OutboxEvent) (domain.Notification, error) {
	row := notificationModel{
		NotificationID:  params.NotificationID,
		SubjectID:       params.SubjectID,
		Type:            string(params.Type),
		Status:          string(params.Status),
		Text:            params.Text,
		ActiveFrom:      params.ActiveFrom.UTC(),
		ActiveTil:       utcPtr(params.ActiveTil),
		ExternalChannel: params.ExternalChannel,
		ExternallySent:  params.ExternallySent,
		RenotifyAt:      utcPtr(params.RenotifyAt),
		EventIDs:        joinEventIDs(params.EventIDs),
		ResendOf:        params.ResendOf,
		CreatedAt:       params.Now.UTC(),
		UpdatedAt:       params.Now.UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Close the superseded row first so the open-slot index accepts the
		// replacement within the same transaction.
		res := tx.Model(&notificationModel{}).
			Where("notification_id = ?", supersededID).
			Updates(map[string]any{
				"status":      string(domain.NotificationStatusDone),
				"renotify_at": nil,
				"updated_at":  params.Now.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return enqueueOutbox(tx, outbox)
	})
	if err != nil {
		return domain.Notification{}, err
	}
	return toDomainNotification(row), nil
}

func (r *notificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (domain.Notification, error) {
	var row notificationModel
	err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Notification{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Notification{}, err
	}
	return toDomainNotification(row), nil
}

func (r *notificationRepository) LatestOpen(ctx context.Context, subjectID string, notificationType domain.NotificationType) (domain.Notification, error) {
	var row notificationModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND type = ? AND status IN ?", subjectID, string(notificationType),
			[]string{string(domain.NotificationStatusWaiting), string(domain.NotificationStatusActive)}).
		Order("created_at desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Notification{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Notification{}, err
	}
	return toDomainNotification(row), nil
}

func (r *notificationRepository) ExistsForEvent(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("event_ids LIKE ?", "%"+eventID.String()+"%").
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepository) MarkDone(ctx context.Context, notificationID uuid.UUID, at time.Time, outbox *ports.OutboxEvent) error {
	return r.updateStatus(ctx, notificationID, map[string]any{
		"status":      string(domain.NotificationStatusDone),
		"renotify_at": nil,
		"updated_at":  at.UTC(),
	}, outbox)
}

func (r *notificationRepository) MarkActive(ctx context.Context, notificationID uuid.UUID, externallySent bool, at time.Time, outbox *ports.OutboxEvent) error {
	return r.updateStatus(ctx, notificationID, map[string]any{
		"status":          string(domain.NotificationStatusActive),
		"externally_sent": externallySent,
		"updated_at":      at.UTC(),
	}, outbox)
}

func (r *notificationRepository) ClearRenotify(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	return r.updateStatus(ctx, notificationID, map[string]any{
		"renotify_at": nil,
		"updated_at":  at.UTC(),
	}, nil)
}

func (r *notificationRepository) updateStatus(ctx context.Context, notificationID uuid.UUID, fields map[string]any, outbox *ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&notificationModel{}).
			Where("notification_id = ?", notificationID).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return enqueueOutbox(tx, outbox)
	})
}

func (r *notificationRepository) ListRenotifyDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.list(ctx, limit, "status = ? AND renotify_at IS NOT NULL AND renotify_at <= ?",
		string(domain.NotificationStatusActive), now.UTC())
}

func (r *notificationRepository) ListWaitingDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.list(ctx, limit, "status = ? AND active_from <= ?",
		string(domain.NotificationStatusWaiting), now.UTC())
}

func (r *notificationRepository) ListActiveExpired(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.list(ctx, limit, "status = ? AND active_til IS NOT NULL AND active_til <= ?",
		string(domain.NotificationStatusActive), now.UTC())
}

func (r *notificationRepository) list(ctx context.Context, limit int, query string, args ...any) ([]domain.Notification, error) {
	var rows []notificationModel
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainNotification(row))
	}
	return out, nil
}

func toDomainNotification(row notificationModel) domain.Notification {
	return domain.Notification{
		NotificationID:  row.NotificationID,
		SubjectID:       row.SubjectID,
		Type:            domain.NotificationType(row.Type),
		Status:          domain.NotificationStatus(row.Status),
		Text:            row.Text,
		ActiveFrom:      row.ActiveFrom,
		ActiveTil:       row.ActiveTil,
		ExternalChannel: row.ExternalChannel,
		ExternallySent:  row.ExternallySent,
		RenotifyAt:      row.RenotifyAt,
		EventIDs:        splitEventIDs(row.EventIDs),
		ResendOf:        row.ResendOf,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func joinEventIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}

func splitEventIDs(raw string) []uuid.UUID {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ ports.NotificationRepository = (*notificationRepository)(nil)
