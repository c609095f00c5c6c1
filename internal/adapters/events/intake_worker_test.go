package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/followup-service/internal/application"
	"github.com/caseflow/followup-service/internal/domain"
)

type scriptedConsumer struct {
	mu        sync.Mutex
	queue     []Message
	committed []Message
}

func (c *scriptedConsumer) Fetch(ctx context.Context) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Message{}, context.Canceled
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, nil
}

func (c *scriptedConsumer) Commit(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, msg)
	return nil
}

type stubHandler struct {
	mu         sync.Mutex
	events     []domain.Event
	updates    []application.NotificationLifecycleUpdate
	messages   []application.ProviderMessage
	eventErrs  []error
	failAlways error
}

func (h *stubHandler) HandleEvent(_ context.Context, event domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if h.failAlways != nil {
		return h.failAlways
	}
	if len(h.eventErrs) > 0 {
		err := h.eventErrs[0]
		h.eventErrs = h.eventErrs[1:]
		return err
	}
	return nil
}

func (h *stubHandler) HandleNotificationLifecycle(_ context.Context, update application.NotificationLifecycleUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
	return nil
}

func (h *stubHandler) HandleProviderMessage(_ context.Context, msg application.ProviderMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	return nil
}

func testTopics() Topics {
	return Topics{
		ParticipantEvents:     "events",
		NotificationLifecycle: "lifecycle",
		ProviderMessages:      "provider",
	}
}

func eventJSON(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"subjectId": "subject-1",
		"responsibleActor": {"role": "caseworker", "id": "cw-1"},
		"payload": {"type": "draft_created", "draft_id": "d-1", "case_id": "c-1"},
		"timestamp": "2026-02-02T09:00:00Z",
		"channelClassification": "digital"
	}`, id))
}

func TestIntakeWorkerDispatchesByTopic(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	consumer := &scriptedConsumer{queue: []Message{
		{Topic: "events", Payload: eventJSON(id)},
		{Topic: "lifecycle", Payload: []byte(fmt.Sprintf(`{"notificationId":%q,"eventName":"completed"}`, uuid.New()))},
		{Topic: "provider", Payload: []byte(fmt.Sprintf(`{"messageId":%q,"messageKind":"proposal","subjectId":"s","providerId":"p","sentAt":"2026-02-02T09:00:00Z"}`, uuid.New()))},
	}}
	handler := &stubHandler{}
	worker := NewIntakeWorker(slog.Default(), consumer, handler, testTopics())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := worker.processOnce(ctx); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	if len(handler.events) != 1 || handler.events[0].ID != id {
		t.Fatalf("participant event not dispatched: %+v", handler.events)
	}
	if len(handler.updates) != 1 || len(handler.messages) != 1 {
		t.Fatalf("lifecycle/provider dispatch wrong: %d updates, %d messages", len(handler.updates), len(handler.messages))
	}
	if len(consumer.committed) != 3 {
		t.Fatalf("all handled messages must be committed, got %d", len(consumer.committed))
	}
}

func TestIntakeWorkerCommitsInvalidMessages(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{queue: []Message{
		{Topic: "events", Payload: []byte(`{"broken`)},
	}}
	handler := &stubHandler{}
	worker := NewIntakeWorker(slog.Default(), consumer, handler, testTopics())

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("invalid message must not surface an error: %v", err)
	}
	if len(handler.events) != 0 {
		t.Fatalf("invalid message reached the handler")
	}
	if len(consumer.committed) != 1 {
		t.Fatalf("invalid message must still be committed, got %d commits", len(consumer.committed))
	}
}

func TestIntakeWorkerRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{queue: []Message{
		{Topic: "events", Payload: eventJSON(uuid.New())},
	}}
	handler := &stubHandler{eventErrs: []error{
		domain.ErrStorageUnavailable,
		domain.ErrStorageUnavailable,
	}}
	worker := NewIntakeWorker(slog.Default(), consumer, handler, testTopics())
	worker.backoffBase = time.Millisecond

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("handler recovered on third attempt: %v", err)
	}
	if got := len(handler.events); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if len(consumer.committed) != 1 {
		t.Fatalf("recovered message must be committed")
	}
}

func TestIntakeWorkerLeavesFailedMessageUncommittedOnShutdown(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{queue: []Message{
		{Topic: "events", Payload: eventJSON(uuid.New())},
	}}
	handler := &stubHandler{failAlways: domain.ErrStorageUnavailable}
	worker := NewIntakeWorker(slog.Default(), consumer, handler, testTopics())
	worker.backoffBase = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := worker.processOnce(ctx); err == nil {
		t.Fatalf("shutdown mid-retry must surface the context error")
	}
	if len(consumer.committed) != 0 {
		t.Fatalf("failing message must stay uncommitted for redelivery")
	}
}
