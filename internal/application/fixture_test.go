package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type fakeEventRepo struct {
	mu        sync.Mutex
	events    map[uuid.UUID]domain.Event
	order     []uuid.UUID
	processed map[uuid.UUID]time.Time
	statuses  map[uuid.UUID]domain.ArchivalStatus
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:    map[uuid.UUID]domain.Event{},
		processed: map[uuid.UUID]time.Time{},
		statuses:  map[uuid.UUID]domain.ArchivalStatus{},
	}
}

func (r *fakeEventRepo) RecordEvent(_ context.Context, event domain.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return false, nil
	}
	r.events[event.ID] = event
	r.order = append(r.order, event.ID)
	return true, nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, eventID uuid.UUID) (domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return event, nil
}

func (r *fakeEventRepo) ListUnarchived(_ context.Context, olderThan time.Time) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, id := range r.order {
		event := r.events[id]
		if !event.Timestamp.Before(olderThan) {
			continue
		}
		status := r.statuses[id]
		if status.DocumentID != nil || status.CannotArchive {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *fakeEventRepo) GetArchivalStatus(_ context.Context, eventID uuid.UUID) (domain.ArchivalStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[eventID]
	if !ok {
		return domain.ArchivalStatus{EventID: eventID}, nil
	}
	return status, nil
}

func (r *fakeEventRepo) UpsertArchivalStatus(_ context.Context, status domain.ArchivalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.statuses[status.EventID]
	if !ok {
		existing = domain.ArchivalStatus{EventID: status.EventID}
	}
	r.statuses[status.EventID] = existing.Merge(status)
	return nil
}

func (r *fakeEventRepo) ListUnprocessed(_ context.Context, limit int) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, id := range r.order {
		if _, ok := r.processed[id]; ok {
			continue
		}
		out = append(out, r.events[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEventRepo) IsProcessed(_ context.Context, eventID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processed[eventID]
	return ok, nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, eventID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[eventID] = at
	return nil
}

type fakeNotificationRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]domain.Notification
	order      []uuid.UUID
	outbox     *fakeOutboxRepo
	createErr  error
	replaceErr error
}

func newFakeNotificationRepo(outbox *fakeOutboxRepo) *fakeNotificationRepo {
	return &fakeNotificationRepo{items: map[uuid.UUID]domain.Notification{}, outbox: outbox}
}

func notificationFromParams(params ports.CreateNotificationParams) domain.Notification {
	return domain.Notification{
		NotificationID:  params.NotificationID,
		SubjectID:       params.SubjectID,
		Type:            params.Type,
		Status:          params.Status,
		Text:            params.Text,
		ActiveFrom:      params.ActiveFrom,
		ActiveTil:       params.ActiveTil,
		ExternalChannel: params.ExternalChannel,
		ExternallySent:  params.ExternallySent,
		RenotifyAt:      params.RenotifyAt,
		EventIDs:        params.EventIDs,
		ResendOf:        params.ResendOf,
		CreatedAt:       params.Now,
		UpdatedAt:       params.Now,
	}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, params ports.CreateNotificationParams, outbox *ports.OutboxEvent) (domain.Notification, error) {
	r.mu.Lock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		r.mu.Unlock()
		return domain.Notification{}, err
	}
	n := notificationFromParams(params)
	if n.Open() {
		// Mirrors the unique partial index on the open slot.
		for _, id := range r.order {
			other := r.items[id]
			if other.SubjectID == n.SubjectID && other.Type == n.Type && other.Open() {
				r.mu.Unlock()
				return domain.Notification{}, domain.ErrConflict
			}
		}
	}
	r.items[n.NotificationID] = n
	r.order = append(r.order, n.NotificationID)
	r.mu.Unlock()
	if outbox != nil {
		_ = r.outbox.Enqueue(ctx, *outbox)
	}
	return n, nil
}

func (r *fakeNotificationRepo) Replace(ctx context.Context, supersededID uuid.UUID, params ports.CreateNotificationParams, outbox *ports.OutboxEvent) (domain.Notification, error) {
	r.mu.Lock()
	if r.replaceErr != nil {
		err := r.replaceErr
		r.replaceErr = nil
		r.mu.Unlock()
		return domain.Notification{}, err
	}
	orig, ok := r.items[supersededID]
	if !ok {
		r.mu.Unlock()
		return domain.Notification{}, domain.ErrNotFound
	}
	orig.Status = domain.NotificationStatusDone
	orig.RenotifyAt = nil
	orig.UpdatedAt = params.Now
	r.items[supersededID] = orig
	n := notificationFromParams(params)
	r.items[n.NotificationID] = n
	r.order = append(r.order, n.NotificationID)
	r.mu.Unlock()
	if outbox != nil {
		_ = r.outbox.Enqueue(ctx, *outbox)
	}
	return n, nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, notificationID uuid.UUID) (domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok {
		return domain.Notification{}, domain.ErrNotFound
	}
	return n, nil
}

func (r *fakeNotificationRepo) LatestOpen(_ context.Context, subjectID string, notificationType domain.NotificationType) (domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		n := r.items[r.order[i]]
		if n.SubjectID == subjectID && n.Type == notificationType && n.Open() {
			return n, nil
		}
	}
	return domain.Notification{}, domain.ErrNotFound
}

func (r *fakeNotificationRepo) ExistsForEvent(_ context.Context, eventID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		for _, id := range n.EventIDs {
			if id == eventID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkDone(ctx context.Context, notificationID uuid.UUID, at time.Time, outbox *ports.OutboxEvent) error {
	r.mu.Lock()
	n, ok := r.items[notificationID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	n.Status = domain.NotificationStatusDone
	n.RenotifyAt = nil
	n.UpdatedAt = at
	r.items[notificationID] = n
	r.mu.Unlock()
	if outbox != nil {
		_ = r.outbox.Enqueue(ctx, *outbox)
	}
	return nil
}

func (r *fakeNotificationRepo) MarkActive(ctx context.Context, notificationID uuid.UUID, externallySent bool, at time.Time, outbox *ports.OutboxEvent) error {
	r.mu.Lock()
	n, ok := r.items[notificationID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	n.Status = domain.NotificationStatusActive
	n.ExternallySent = externallySent
	n.UpdatedAt = at
	r.items[notificationID] = n
	r.mu.Unlock()
	if outbox != nil {
		_ = r.outbox.Enqueue(ctx, *outbox)
	}
	return nil
}

func (r *fakeNotificationRepo) ClearRenotify(_ context.Context, notificationID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok {
		return domain.ErrNotFound
	}
	n.RenotifyAt = nil
	n.UpdatedAt = at
	r.items[notificationID] = n
	return nil
}

func (r *fakeNotificationRepo) ListRenotifyDue(_ context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.filter(limit, func(n domain.Notification) bool {
		return n.Status == domain.NotificationStatusActive && n.RenotifyAt != nil && !n.RenotifyAt.After(now)
	})
}

func (r *fakeNotificationRepo) ListWaitingDue(_ context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.filter(limit, func(n domain.Notification) bool {
		return n.Status == domain.NotificationStatusWaiting && !n.ActiveFrom.After(now)
	})
}

func (r *fakeNotificationRepo) ListActiveExpired(_ context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return r.filter(limit, func(n domain.Notification) bool {
		return n.Expired(now)
	})
}

func (r *fakeNotificationRepo) filter(limit int, keep func(domain.Notification) bool) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, id := range r.order {
		n := r.items[id]
		if !keep(n) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

type fakeOutboxRepo struct {
	mu      sync.Mutex
	records []ports.OutboxEvent
}

func (r *fakeOutboxRepo) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, event)
	return nil
}

func (r *fakeOutboxRepo) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(context.Context, uuid.UUID, time.Time) error { return nil }

func (r *fakeOutboxRepo) MarkFailed(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (r *fakeOutboxRepo) byType(eventType string) []ports.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.OutboxEvent
	for _, rec := range r.records {
		if rec.EventType == eventType {
			out = append(out, rec)
		}
	}
	return out
}

type archivedBatch struct {
	subjectID string
	events    []domain.Event
}

type fakeArchival struct {
	mu      sync.Mutex
	batches []archivedBatch
	fail    error
}

func (a *fakeArchival) ArchiveBatch(_ context.Context, subjectID string, events []domain.Event) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return "", a.fail
	}
	a.batches = append(a.batches, archivedBatch{subjectID: subjectID, events: events})
	return fmt.Sprintf("doc-%d", len(a.batches)), nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	channels map[string]domain.ChannelClassification
	lookups  int
}

func (r *fakeRegistry) ChannelClassification(_ context.Context, subjectID string) (domain.ChannelClassification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if ch, ok := r.channels[subjectID]; ok {
		return ch, nil
	}
	return domain.ChannelDigital, nil
}

type fakeCases struct {
	mu       sync.Mutex
	inactive map[string]bool
}

func (c *fakeCases) HasActiveCasePeriod(_ context.Context, subjectID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inactive[subjectID], nil
}

func (c *fakeCases) setActive(subjectID string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inactive[subjectID] = !active
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

type fixture struct {
	service       *Service
	events        *fakeEventRepo
	notifications *fakeNotificationRepo
	outbox        *fakeOutboxRepo
	archival      *fakeArchival
	registry      *fakeRegistry
	cases         *fakeCases
	cache         *fakeCache
	now           time.Time
}

func newFixture() *fixture {
	f := &fixture{now: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)}
	f.outbox = &fakeOutboxRepo{}
	f.events = newFakeEventRepo()
	f.notifications = newFakeNotificationRepo(f.outbox)
	f.archival = &fakeArchival{}
	f.registry = &fakeRegistry{channels: map[string]domain.ChannelClassification{}}
	f.cases = &fakeCases{inactive: map[string]bool{}}
	f.cache = &fakeCache{entries: map[string]string{}}

	f.service = NewService(Dependencies{
		Events:         f.events,
		Notifications:  f.notifications,
		Outbox:         f.outbox,
		Archival:       f.archival,
		PersonRegistry: f.registry,
		Cases:          f.cases,
		Cache:          f.cache,
	})
	f.service.nowFn = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) event(subjectID string, payload domain.EventPayload, at time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Actor:     domain.Actor{Role: domain.ActorCaseworker, ID: "cw-1"},
		Payload:   payload,
		Timestamp: at,
		Channel:   domain.ChannelDigital,
	}
}
