package domain

import (
	"errors"
	"testing"
)

func TestDecideForCoversEveryKind(t *testing.T) {
	t.Parallel()

	for _, kind := range AllEventKinds {
		if _, err := DecideFor(kind); err != nil {
			t.Fatalf("DecideFor(%s) returned error: %v", kind, err)
		}
	}
}

func TestDecideForRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := DecideFor(EventKind("something_else")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
}

func TestDecisionTableRows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind   EventKind
		action DecisionAction
	}{
		{EventKindDraftCreated, ActionCreateTask},
		{EventKindProviderProposal, ActionCreateTask},
		{EventKindDraftCancelled, ActionDeactivateTask},
		{EventKindDecisionApproved, ActionDeactivateThenCreate},
		{EventKindEnrollmentExtended, ActionCreateMessage},
		{EventKindEnrollmentEnded, ActionCreateMessage},
		{EventKindParticipantUpdated, ActionNone},
	}
	for _, tc := range cases {
		decision, err := DecideFor(tc.kind)
		if err != nil {
			t.Fatalf("DecideFor(%s): %v", tc.kind, err)
		}
		if decision.Action != tc.action {
			t.Fatalf("DecideFor(%s) = %s, want %s", tc.kind, decision.Action, tc.action)
		}
		switch tc.action {
		case ActionCreateTask, ActionCreateMessage, ActionDeactivateThenCreate:
			if decision.Text == "" {
				t.Fatalf("DecideFor(%s): create action without text", tc.kind)
			}
		}
	}
}
