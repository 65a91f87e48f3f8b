package primary

import (
	"context"
	"fmt"
	"time"

	"github.com/example/verflow/internal/apperr"
)

// WorkflowService defines the primary port for the content state machine.
type WorkflowService interface {
	// CreateState adds a workflow state.
	CreateState(ctx context.Context, req CreateStateRequest) (*WorkflowState, error)

	// ListStates lists all workflow states.
	ListStates(ctx context.Context) ([]*WorkflowState, error)

	// GetState retrieves a state by ID.
	GetState(ctx context.Context, stateID int64) (*WorkflowState, error)

	// GetStateByName retrieves a state by name.
	GetStateByName(ctx context.Context, name string) (*WorkflowState, error)

	// InitialState returns the designated initial state.
	InitialState(ctx context.Context) (*WorkflowState, error)

	// TransitionContent moves content to a new state.
	TransitionContent(ctx context.Context, req TransitionRequest) (*TransitionResult, error)

	// SetInitialStateForContent assigns the initial state to content with no state.
	SetInitialStateForContent(ctx context.Context, req InitialStateRequest) (*TransitionResult, error)

	// GetCurrentState returns the content's current entry.
	GetCurrentState(ctx context.Context, contentID string) (*ContentWorkflow, error)

	// GetWorkflowHistory lists transitions newest first.
	GetWorkflowHistory(ctx context.Context, contentID string, limit, offset int) ([]*WorkflowHistoryEntry, error)

	// AllowedNextStates lists the states the content may move to now.
	AllowedNextStates(ctx context.Context, contentID string) ([]*WorkflowState, error)
}

// CreateStateRequest contains parameters for creating a state.
type CreateStateRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Label       string `json:"label" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
	IsInitial   bool   `json:"is_initial"`
	IsTerminal  bool   `json:"is_terminal"`
}

// TransitionRequest contains parameters for a transition.
type TransitionRequest struct {
	ContentID  string `json:"content_id" validate:"required,max=255"`
	ToStateID  int64  `json:"to_state_id" validate:"required,min=1"`
	UserID     string `json:"user_id" validate:"required"`
	Notes      string `json:"notes" validate:"max=2000"`
	AssigneeID string `json:"assignee_id"` // Optional
}

// InitialStateRequest contains parameters for assigning the initial state.
type InitialStateRequest struct {
	ContentID  string `json:"content_id" validate:"required,max=255"`
	UserID     string `json:"user_id" validate:"required"`
	Notes      string `json:"notes" validate:"max=2000"`
	AssigneeID string `json:"assignee_id"`
}

// TransitionResult contains the outcome of a successful transition.
type TransitionResult struct {
	ContentID string         `json:"content_id"`
	From      *WorkflowState `json:"from,omitempty"`
	To        *WorkflowState `json:"to"`
	HistoryID int64          `json:"history_id"`
}

// WorkflowState represents a state at the port boundary.
type WorkflowState struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	IsInitial   bool   `json:"is_initial"`
	IsTerminal  bool   `json:"is_terminal"`
}

// ContentWorkflow is the current state of one content item.
type ContentWorkflow struct {
	ContentID        string         `json:"content_id"`
	State            *WorkflowState `json:"state"`
	UserID           string         `json:"user_id"`
	AssignedToUserID string         `json:"assigned_to_user_id,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// WorkflowHistoryEntry is one recorded transition.
type WorkflowHistoryEntry struct {
	ID             int64     `json:"id"`
	ContentID      string    `json:"content_id"`
	FromStateID    int64     `json:"from_state_id,omitempty"` // Zero for the first assignment
	FromStateName  string    `json:"from_state_name,omitempty"`
	ToStateID      int64     `json:"to_state_id"`
	ToStateName    string    `json:"to_state_name"`
	UserID         string    `json:"user_id"`
	Notes          string    `json:"notes,omitempty"`
	TransitionedAt time.Time `json:"transitioned_at"`
}

// GateBlockedError reports a transition refused because the approval gate in
// front of the target state is not satisfied. It unwraps to an
// InvalidTransition-kind apperr.Error.
type GateBlockedError struct {
	Report *GateReport
}

func (e *GateBlockedError) Error() string {
	return e.Unwrap().Error()
}

func (e *GateBlockedError) Unwrap() error {
	return &apperr.Error{
		Kind: apperr.KindInvalidTransition,
		Op:   "workflow.transition",
		Msg:  fmt.Sprintf("entering %q requires approval: %s", e.Report.StateName, e.Report.Reason),
	}
}
