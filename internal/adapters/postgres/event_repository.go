package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) RecordEvent(ctx context.Context, event domain.Event) (bool, error) {
	payload, err := domain.EncodePayload(event.Payload)
	if err != nil {
		return false, err
	}
	rec := eventModel{
		EventID:        event.ID,
		SubjectID:      event.SubjectID,
		ActorRole:      string(event.Actor.Role),
		ActorID:        event.Actor.ID,
		Kind:           string(event.Payload.Kind()),
		Payload:        string(payload),
		Timestamp:      event.Timestamp.UTC(),
		Channel:        string(event.Channel),
		ManualFollowUp: event.ManualFollowUp,
		CreatedAt:      time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *eventRepository) GetByID(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	var row eventModel
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	return toDomainEvent(row)
}

func (r *eventRepository) ListUnarchived(ctx context.Context, olderThan time.Time) ([]domain.Event, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN followup_archival_status s ON s.event_id = followup_events.event_id").
		Where("followup_events.timestamp < ?", olderThan.UTC()).
		Where("s.event_id IS NULL OR (s.cannot_archive = false AND s.document_id IS NULL)").
		Order("followup_events.timestamp asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainEvents(rows)
}

func (r *eventRepository) GetArchivalStatus(ctx context.Context, eventID uuid.UUID) (domain.ArchivalStatus, error) {
	var row archivalStatusModel
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ArchivalStatus{EventID: eventID}, nil
	}
	if err != nil {
		return domain.ArchivalStatus{}, err
	}
	return domain.ArchivalStatus{
		EventID:          row.EventID,
		DocumentID:       row.DocumentID,
		DistributionID:   row.DistributionID,
		CannotArchive:    row.CannotArchive,
		CannotDistribute: row.CannotDistribute,
	}, nil
}

// UpsertArchivalStatus merges forward inside one transaction so concurrent
// replays never regress a set field.
func (r *eventRepository) UpsertArchivalStatus(ctx context.Context, status domain.ArchivalStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row archivalStatusModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ?", status.EventID).First(&row).Error
		now := time.Now().UTC()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&archivalStatusModel{
				EventID:          status.EventID,
				DocumentID:       status.DocumentID,
				DistributionID:   status.DistributionID,
				CannotArchive:    status.CannotArchive,
				CannotDistribute: status.CannotDistribute,
				UpdatedAt:        now,
			}).Error
		}
		if err != nil {
			return err
		}
		merged := domain.ArchivalStatus{
			EventID:          row.EventID,
			DocumentID:       row.DocumentID,
			DistributionID:   row.DistributionID,
			CannotArchive:    row.CannotArchive,
			CannotDistribute: row.CannotDistribute,
		}.Merge(status)
		return tx.Model(&archivalStatusModel{}).Where("event_id = ?", status.EventID).Updates(map[string]any{
			"document_id":       merged.DocumentID,
			"distribution_id":   merged.DistributionID,
			"cannot_archive":    merged.CannotArchive,
			"cannot_distribute": merged.CannotDistribute,
			"updated_at":        now,
		}).Error
	})
}

func (r *eventRepository) ListUnprocessed(ctx context.Context, limit int) ([]domain.Event, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("timestamp asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainEvents(rows)
}

func (r *eventRepository) IsProcessed(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&eventModel{}).
		Where("event_id = ? AND processed_at IS NOT NULL", eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&eventModel{}).
		Where("event_id = ?", eventID).
		Update("processed_at", at.UTC()).Error
}

func toDomainEvent(row eventModel) (domain.Event, error) {
	payload, err := domain.DecodePayload([]byte(row.Payload))
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		ID:             row.EventID,
		SubjectID:      row.SubjectID,
		Actor:          domain.Actor{Role: domain.ActorRole(row.ActorRole), ID: row.ActorID},
		Payload:        payload,
		Timestamp:      row.Timestamp,
		Channel:        domain.ChannelClassification(row.Channel),
		ManualFollowUp: row.ManualFollowUp,
	}, nil
}

func toDomainEvents(rows []eventModel) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		event, err := toDomainEvent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

var _ ports.EventRepository = (*eventRepository)(nil)
