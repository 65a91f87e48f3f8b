package secondary

import (
	"context"
	"time"
)

// ApprovalRepository defines the secondary port for approval gate persistence.
type ApprovalRepository interface {
	// CreateWorkflow persists a new gate. One gate per state.
	CreateWorkflow(ctx context.Context, wf *ApprovalWorkflowRecord) error

	// GetWorkflow retrieves a gate by ID.
	GetWorkflow(ctx context.Context, id string) (*ApprovalWorkflowRecord, error)

	// GetWorkflowByState retrieves the gate guarding a state. NotFound when ungated.
	GetWorkflowByState(ctx context.Context, stateName string) (*ApprovalWorkflowRecord, error)

	// ListWorkflows retrieves all gates.
	ListWorkflows(ctx context.Context) ([]*ApprovalWorkflowRecord, error)

	// AddStep persists a step. A zero StepOrder is assigned max+1.
	AddStep(ctx context.Context, step *ApprovalStepRecord) error

	// ListSteps retrieves a gate's steps ordered by step_order.
	ListSteps(ctx context.Context, workflowID string) ([]*ApprovalStepRecord, error)

	// CreateRequest persists a new approval request.
	CreateRequest(ctx context.Context, req *ApprovalRequestRecord) error

	// GetRequest retrieves a request by ID.
	GetRequest(ctx context.Context, id string) (*ApprovalRequestRecord, error)

	// GetOpenRequest retrieves the newest request for content under a gate
	// that no transition has consumed yet. NotFound when there is none.
	GetOpenRequest(ctx context.Context, contentID, workflowID string) (*ApprovalRequestRecord, error)

	// CreateDecision persists a decision. A second decision by the same
	// user on the same step fails with a conflict.
	CreateDecision(ctx context.Context, d *ApprovalDecisionRecord) error

	// ListDecisions retrieves a request's decisions oldest first.
	ListDecisions(ctx context.Context, requestID string) ([]*ApprovalDecisionRecord, error)
}

// ApprovalWorkflowRecord represents a gate as stored in persistence.
type ApprovalWorkflowRecord struct {
	ID             string
	Name           string
	GatedStateName string
	Mode           string // 'sequential' or 'parallel'
	CreatedAt      time.Time
}

// ApprovalStepRecord represents a step as stored in persistence.
type ApprovalStepRecord struct {
	ID                string
	WorkflowID        string
	StepOrder         int
	Name              string
	RequiredApprovals int
	ApprovalLogic     string // 'any' or 'all'
	TimeoutSeconds    int    // Zero means null
	EscalateToUserID  string // Empty string means null
}

// ApprovalRequestRecord represents a request as stored in persistence.
type ApprovalRequestRecord struct {
	ID          string
	ContentID   string
	WorkflowID  string
	RequestedBy string
	RequestedAt time.Time
	ConsumedAt  *time.Time // Nil while the request is open
	ConsumedBy  int64      // History id of the consuming transition; zero while open
}

// ApprovalDecisionRecord represents a decision as stored in persistence.
type ApprovalDecisionRecord struct {
	ID        string
	RequestID string
	StepID    string
	UserID    string
	Decision  string // 'approved', 'rejected' or 'changes_requested'
	Comments  string
	DecidedAt time.Time
}
