package domain

import "fmt"

// DecisionAction is what the engine does with an event once recorded.
type DecisionAction string

const (
	ActionCreateTask           DecisionAction = "create_task"
	ActionCreateMessage        DecisionAction = "create_message"
	ActionDeactivateTask       DecisionAction = "deactivate_task"
	ActionDeactivateThenCreate DecisionAction = "deactivate_then_create"
	ActionNone                 DecisionAction = "none"
)

// Decision is one row of the closed event-kind table.
type Decision struct {
	Action DecisionAction
	// Text shown to the participant for create actions.
	Text string
}

// DecideFor maps an event kind to its notification action. The table is
// closed; an unknown kind is a programming error surfaced as an error rather
// than a silent no-op.
func DecideFor(kind EventKind) (Decision, error) {
	switch kind {
	case EventKindDraftCreated:
		return Decision{Action: ActionCreateTask, Text: "You have a new draft agreement to review."}, nil
	case EventKindProviderProposal:
		return Decision{Action: ActionCreateTask, Text: "A provider has sent you a proposal that needs your response."}, nil
	case EventKindDraftCancelled:
		return Decision{Action: ActionDeactivateTask}, nil
	case EventKindDecisionApproved:
		return Decision{Action: ActionDeactivateThenCreate, Text: "Your enrollment has been approved."}, nil
	case EventKindEnrollmentExtended:
		return Decision{Action: ActionCreateMessage, Text: "Your enrollment has been extended."}, nil
	case EventKindEnrollmentEnded:
		return Decision{Action: ActionCreateMessage, Text: "Your enrollment has ended."}, nil
	case EventKindParticipantUpdated:
		return Decision{Action: ActionNone}, nil
	default:
		return Decision{}, fmt.Errorf("%w: no decision mapped for event kind %q", ErrInvalidInput, kind)
	}
}
