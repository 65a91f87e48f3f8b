package secondary

import (
	"context"
	"time"
)

// WorkflowStateRepository defines the secondary port for workflow state definitions.
type WorkflowStateRepository interface {
	// Create persists a new state and sets its ID.
	Create(ctx context.Context, state *WorkflowStateRecord) error

	// GetByID retrieves a state by ID.
	GetByID(ctx context.Context, id int64) (*WorkflowStateRecord, error)

	// GetByName retrieves a state by name.
	GetByName(ctx context.Context, name string) (*WorkflowStateRecord, error)

	// GetInitial retrieves the initial state.
	GetInitial(ctx context.Context) (*WorkflowStateRecord, error)

	// List retrieves all states ordered by ID.
	List(ctx context.Context) ([]*WorkflowStateRecord, error)
}

// WorkflowStateRecord represents a workflow state as stored in persistence.
type WorkflowStateRecord struct {
	ID          int64
	Name        string
	Label       string
	Description string
	IsInitial   bool
	IsTerminal  bool
}

// ContentWorkflowRepository defines the secondary port for per-content
// workflow position and history.
type ContentWorkflowRepository interface {
	// GetEntry retrieves the current entry. NotFound when the content has no state.
	GetEntry(ctx context.Context, contentID string) (*ContentWorkflowRecord, error)

	// Transition appends history and upserts the entry in one transaction.
	// It fails with a conflict when the current state no longer matches
	// ExpectedFromStateID. When ApprovalRequestID is set the request is
	// consumed in the same transaction; it fails with a conflict when the
	// request was already consumed or its decision count moved away from
	// ApprovalDecisions.
	Transition(ctx context.Context, t *TransitionRecord) error

	// ListHistory retrieves history newest first with state names.
	ListHistory(ctx context.Context, contentID string, limit, offset int) ([]*WorkflowHistoryRecord, error)

	// CountHistory counts history rows for a content item.
	CountHistory(ctx context.Context, contentID string) (int, error)
}

// ContentWorkflowRecord represents the current-state row.
type ContentWorkflowRecord struct {
	ContentID        string
	WorkflowStateID  int64
	UserID           string
	AssignedToUserID string // Empty string means null
	Notes            string
	UpdatedAt        time.Time
}

// TransitionRecord is the unit of work for one transition.
type TransitionRecord struct {
	ContentID           string
	ExpectedFromStateID int64 // Zero means the content must have no state
	ToStateID           int64
	UserID              string
	AssigneeID          string
	Notes               string
	ApprovalRequestID   string    // Optional - the request that satisfied the target's gate
	ApprovalDecisions   int       // Decisions the gate was evaluated against
	HistoryID           int64     // Set by Transition
	TransitionedAt      time.Time // Set by Transition
}

// WorkflowHistoryRecord represents a stored transition.
type WorkflowHistoryRecord struct {
	ID             int64
	ContentID      string
	FromStateID    int64 // Zero means null
	FromStateName  string
	ToStateID      int64
	ToStateName    string
	UserID         string
	Notes          string
	TransitionedAt time.Time
}
