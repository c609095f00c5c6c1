package application

import (
	"context"
	"sort"
	"time"

	"github.com/caseflow/followup-service/internal/domain"
)

// ConsolidateUnarchived groups unarchived events per subject and, once a
// subject's stream has stayed quiet for the grace window, hands the whole
// group to the archival pipeline as one batch. Rapid successive edits to the
// same participant therefore collapse into a single archived document. A
// failing subject is logged and skipped; it never blocks the others.
func (s *Service) ConsolidateUnarchived(ctx context.Context) error {
	now := s.nowFn()

	// All unarchived events take part in the settled check; filtering by age
	// here could split one subject's batch around the grace boundary.
	events, err := s.events.ListUnarchived(ctx, now)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	groups := make(map[string][]domain.Event)
	for _, event := range events {
		groups[event.SubjectID] = append(groups[event.SubjectID], event)
	}

	subjects := make([]string, 0, len(groups))
	for subjectID := range groups {
		subjects = append(subjects, subjectID)
	}
	sort.Strings(subjects)

	for _, subjectID := range subjects {
		group := groups[subjectID]
		if !settled(group, now, s.cfg.GraceWindow) {
			continue
		}
		if err := s.archiveGroup(ctx, subjectID, group); err != nil {
			s.logger.WarnContext(ctx, "subject batch archival failed",
				"module", "application.service_consolidation",
				"layer", "application",
				"operation", "consolidate_unarchived",
				"outcome", "failure",
				"subject_id", subjectID,
				"event_count", len(group),
				"error", err,
			)
		}
	}
	return nil
}

func (s *Service) archiveGroup(ctx context.Context, subjectID string, group []domain.Event) error {
	sort.Slice(group, func(i, j int) bool { return group[i].Timestamp.Before(group[j].Timestamp) })

	documentID, err := s.archival.ArchiveBatch(ctx, subjectID, group)
	if err != nil {
		return err
	}

	for _, event := range group {
		docID := documentID
		if err := s.events.UpsertArchivalStatus(ctx, domain.ArchivalStatus{
			EventID:    event.ID,
			DocumentID: &docID,
		}); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "subject batch archived",
		"module", "application.service_consolidation",
		"layer", "application",
		"operation", "archive_group",
		"outcome", "success",
		"subject_id", subjectID,
		"event_count", len(group),
		"document_id", documentID,
	)
	return nil
}

// settled reports whether no event in the group arrived inside the grace
// window.
func settled(group []domain.Event, now time.Time, grace time.Duration) bool {
	var latest time.Time
	for _, event := range group {
		if event.Timestamp.After(latest) {
			latest = event.Timestamp
		}
	}
	return now.Sub(latest) >= grace
}
