package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caseflow/followup-service/internal/domain"
)

func TestResendSupersedesOriginalOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.HandleEvent(ctx, f.event("subject-1", domain.DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1"}, f.now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.service.SweepActivationWindows(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	original := f.notifications.all()[0]
	if original.RenotifyAt == nil {
		t.Fatalf("expected armed notification")
	}

	f.advance(8 * 24 * time.Hour)
	if err := f.service.ResendDue(ctx); err != nil {
		t.Fatalf("resend due: %v", err)
	}

	all := f.notifications.all()
	if len(all) != 2 {
		t.Fatalf("expected original plus resend, got %d", len(all))
	}
	superseded, resend := all[0], all[1]
	if superseded.Status != domain.NotificationStatusDone {
		t.Fatalf("original should be superseded, got %s", superseded.Status)
	}
	if resend.ResendOf == nil || *resend.ResendOf != original.NotificationID {
		t.Fatalf("resend should reference the original")
	}
	if resend.RenotifyAt != nil {
		t.Fatalf("resend must not be armed again")
	}
	if got := len(f.outbox.byType(EventTypeNotificationCreate)); got != 2 {
		t.Fatalf("expected original plus resend create commands, got %d", got)
	}

	// A later pass finds nothing due; exactly one repeat delivery happens.
	f.advance(8 * 24 * time.Hour)
	if err := f.service.ResendDue(ctx); err != nil {
		t.Fatalf("second resend pass: %v", err)
	}
	if got := len(f.notifications.all()); got != 2 {
		t.Fatalf("second pass must not create more notifications, got %d", got)
	}
}

func TestResendFailureKeepsOriginalArmed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.HandleEvent(ctx, f.event("subject-1", domain.DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1"}, f.now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.service.SweepActivationWindows(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	original := f.notifications.all()[0]

	f.advance(8 * 24 * time.Hour)
	f.notifications.replaceErr = domain.ErrStorageUnavailable
	if err := f.service.ResendDue(ctx); err != nil {
		t.Fatalf("resend pass must absorb a transient failure: %v", err)
	}

	all := f.notifications.all()
	if len(all) != 1 {
		t.Fatalf("failed resend must not leave partial state, got %d notifications", len(all))
	}
	kept := all[0]
	if kept.Status != domain.NotificationStatusActive {
		t.Fatalf("original must stay open after a failed resend, got %s", kept.Status)
	}
	if kept.RenotifyAt == nil {
		t.Fatalf("original must stay armed so the next pass retries")
	}

	// The next pass completes the supersede.
	if err := f.service.ResendDue(ctx); err != nil {
		t.Fatalf("second resend pass: %v", err)
	}
	all = f.notifications.all()
	if len(all) != 2 {
		t.Fatalf("expected original plus resend after recovery, got %d", len(all))
	}
	if all[0].Status != domain.NotificationStatusDone {
		t.Fatalf("original should be superseded after recovery, got %s", all[0].Status)
	}
	if all[1].ResendOf == nil || *all[1].ResendOf != original.NotificationID {
		t.Fatalf("resend should reference the original")
	}
}

func TestLifecycleDeliveredStopsRenotification(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.HandleEvent(ctx, f.event("subject-1", domain.DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1"}, f.now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.service.SweepActivationWindows(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	n := f.notifications.all()[0]

	err := f.service.HandleNotificationLifecycle(ctx, NotificationLifecycleUpdate{
		NotificationID: n.NotificationID,
		EventName:      LifecycleExternalStatusUpdated,
		ExternalStatus: "delivered",
	})
	if err != nil {
		t.Fatalf("lifecycle delivered: %v", err)
	}
	updated, _ := f.notifications.GetByID(ctx, n.NotificationID)
	if updated.RenotifyAt != nil {
		t.Fatalf("delivered confirmation should disarm re-notification")
	}

	f.advance(30 * 24 * time.Hour)
	if err := f.service.ResendDue(ctx); err != nil {
		t.Fatalf("resend due: %v", err)
	}
	if got := len(f.notifications.all()); got != 1 {
		t.Fatalf("disarmed notification must not be re-sent, got %d", got)
	}
}

func TestLifecycleTerminalEventsCloseNotification(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.HandleEvent(ctx, f.event("subject-1", domain.DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1"}, f.now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	n := f.notifications.all()[0]

	if err := f.service.HandleNotificationLifecycle(ctx, NotificationLifecycleUpdate{
		NotificationID: n.NotificationID,
		EventName:      LifecycleInactivated,
	}); err != nil {
		t.Fatalf("lifecycle inactivated: %v", err)
	}
	updated, _ := f.notifications.GetByID(ctx, n.NotificationID)
	if updated.Status != domain.NotificationStatusDone {
		t.Fatalf("expected done, got %s", updated.Status)
	}

	if err := f.service.HandleNotificationLifecycle(ctx, NotificationLifecycleUpdate{
		NotificationID: n.NotificationID,
		EventName:      "renamed",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown lifecycle event should be rejected, got %v", err)
	}
}

func TestSweepActivatesAndExpires(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	// Waiting until its window opens.
	waiting := f.event("subject-1", domain.DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1"}, f.now.Add(time.Hour))
	if err := f.service.HandleEvent(ctx, waiting); err != nil {
		t.Fatalf("create waiting: %v", err)
	}
	// Message with a validity window that will elapse.
	message := f.event("subject-2", domain.EnrollmentEndedPayload{EnrollmentID: "e-1", EndedAt: f.now}, f.now)
	if err := f.service.HandleEvent(ctx, message); err != nil {
		t.Fatalf("create message: %v", err)
	}

	f.advance(2 * time.Hour)
	if err := f.service.SweepActivationWindows(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	task, _ := f.notifications.LatestOpen(ctx, "subject-1", domain.NotificationTypeTask)
	if task.Status != domain.NotificationStatusActive || !task.ExternallySent {
		t.Fatalf("waiting task should be activated and sent, got %+v", task)
	}
	if got := len(f.outbox.byType(EventTypeNotificationCreate)); got != 2 {
		t.Fatalf("activation should announce the task, got %d create commands", got)
	}

	f.advance(15 * 24 * time.Hour)
	if err := f.service.SweepActivationWindows(ctx); err != nil {
		t.Fatalf("expiry sweep: %v", err)
	}
	if _, err := f.notifications.LatestOpen(ctx, "subject-2", domain.NotificationTypeMessage); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired message should be closed, got %v", err)
	}
}
