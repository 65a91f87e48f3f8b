package primary

import (
	"context"
	"time"
)

// ApprovalService defines the primary port for approval gates.
type ApprovalService interface {
	// CreateWorkflow defines a gate in front of a workflow state.
	CreateWorkflow(ctx context.Context, req CreateApprovalWorkflowRequest) (*ApprovalWorkflow, error)

	// GetWorkflow retrieves a gate definition with its steps.
	GetWorkflow(ctx context.Context, workflowID string) (*ApprovalWorkflow, error)

	// ListWorkflows lists all gate definitions.
	ListWorkflows(ctx context.Context) ([]*ApprovalWorkflow, error)

	// AddStep appends a step to a gate.
	AddStep(ctx context.Context, req AddStepRequest) (*ApprovalStep, error)

	// RequestApproval opens an approval request for a content item.
	RequestApproval(ctx context.Context, req RequestApprovalRequest) (*ApprovalRequest, error)

	// RecordDecision records one approver's decision on a step.
	RecordDecision(ctx context.Context, req RecordDecisionRequest) (*ApprovalDecision, error)

	// GetGateStatus evaluates the gate for content entering stateName.
	GetGateStatus(ctx context.Context, contentID, stateName string) (*GateReport, error)
}

// CreateApprovalWorkflowRequest contains parameters for defining a gate.
type CreateApprovalWorkflowRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	GatedStateName string `json:"gated_state_name" validate:"required"`
	Mode           string `json:"mode" validate:"required,oneof=sequential parallel"`
}

// AddStepRequest contains parameters for adding a step.
type AddStepRequest struct {
	WorkflowID        string `json:"workflow_id" validate:"required"`
	Name              string `json:"name" validate:"required,max=100"`
	StepOrder         int    `json:"step_order" validate:"min=0"` // Zero appends after the last step
	RequiredApprovals int    `json:"required_approvals" validate:"required,min=1"`
	ApprovalLogic     string `json:"approval_logic" validate:"required,oneof=any all"`
	TimeoutSeconds    int    `json:"timeout_seconds" validate:"min=0"`
	EscalateToUserID  string `json:"escalate_to_user_id"`
}

// RequestApprovalRequest contains parameters for opening a request.
type RequestApprovalRequest struct {
	ContentID   string `json:"content_id" validate:"required"`
	WorkflowID  string `json:"workflow_id" validate:"required"`
	RequestedBy string `json:"requested_by" validate:"required"`
}

// RecordDecisionRequest contains parameters for a decision.
type RecordDecisionRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	StepID    string `json:"step_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Decision  string `json:"decision" validate:"required,oneof=approved rejected changes_requested"`
	Comments  string `json:"comments" validate:"max=2000"`
}

// ApprovalWorkflow represents a gate definition at the port boundary.
type ApprovalWorkflow struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	GatedStateName string          `json:"gated_state_name"`
	Mode           string          `json:"mode"`
	Steps          []*ApprovalStep `json:"steps"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ApprovalStep represents one step of a gate.
type ApprovalStep struct {
	ID                string `json:"id"`
	WorkflowID        string `json:"workflow_id"`
	StepOrder         int    `json:"step_order"`
	Name              string `json:"name"`
	RequiredApprovals int    `json:"required_approvals"`
	ApprovalLogic     string `json:"approval_logic"`
	TimeoutSeconds    int    `json:"timeout_seconds,omitempty"`
	EscalateToUserID  string `json:"escalate_to_user_id,omitempty"`
}

// ApprovalRequest represents an open request.
type ApprovalRequest struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"content_id"`
	WorkflowID  string     `json:"workflow_id"`
	RequestedBy string     `json:"requested_by"`
	RequestedAt time.Time  `json:"requested_at"`
	ConsumedAt  *time.Time `json:"consumed_at,omitempty"`
}

// ApprovalDecision represents a recorded decision.
type ApprovalDecision struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	StepID    string    `json:"step_id"`
	UserID    string    `json:"user_id"`
	Decision  string    `json:"decision"`
	Comments  string    `json:"comments,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// GateStep is the evaluated status of one step.
type GateStep struct {
	StepID      string     `json:"step_id"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	Status      string     `json:"status"` // 'pending', 'approved', 'rejected', 'timed_out'
	Approvals   int        `json:"approvals"`
	Required    int        `json:"required"`
	EscalateTo  string     `json:"escalate_to,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GateReport is the evaluated status of a gate for one content item.
// Gated is false when no gate guards the state. Only requests not yet
// consumed by a transition into the state are considered.
type GateReport struct {
	ContentID  string     `json:"content_id"`
	StateName  string     `json:"state_name"`
	Gated      bool       `json:"gated"`
	WorkflowID string     `json:"workflow_id,omitempty"`
	RequestID  string     `json:"request_id,omitempty"`
	Decisions  int        `json:"decisions"` // Decisions recorded on the request
	Satisfied  bool       `json:"satisfied"`
	Reason     string     `json:"reason,omitempty"`
	Steps      []GateStep `json:"steps,omitempty"`
}
