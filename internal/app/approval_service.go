package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/core/approval"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// ApprovalServiceImpl implements the ApprovalService interface.
type ApprovalServiceImpl struct {
	approvalRepo secondary.ApprovalRepository
	stateRepo    secondary.WorkflowStateRepository
	audit        auditTrail
	logger       *zap.Logger
	now          func() time.Time
}

// NewApprovalService creates a new ApprovalService with injected dependencies.
func NewApprovalService(
	approvalRepo secondary.ApprovalRepository,
	stateRepo secondary.WorkflowStateRepository,
	logWriter secondary.LogWriter,
	logger *zap.Logger,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		approvalRepo: approvalRepo,
		stateRepo:    stateRepo,
		audit:        newAuditTrail(logWriter, logger),
		logger:       logging.OrNop(logger),
		now:          time.Now,
	}
}

// CreateWorkflow defines a gate in front of a workflow state.
func (s *ApprovalServiceImpl) CreateWorkflow(ctx context.Context, req primary.CreateApprovalWorkflowRequest) (*primary.ApprovalWorkflow, error) {
	const op = "approval.create_workflow"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	mode, err := approval.ParseMode(req.Mode)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	if _, err := s.stateRepo.GetByName(ctx, req.GatedStateName); err != nil {
		return nil, err
	}

	existing, err := s.approvalRepo.GetWorkflowByState(ctx, req.GatedStateName)
	switch {
	case err == nil:
		return nil, apperr.Validation(op, "state %q is already gated by approval workflow %s", req.GatedStateName, existing.ID)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	record := &secondary.ApprovalWorkflowRecord{
		ID:             uuid.NewString(),
		Name:           req.Name,
		GatedStateName: req.GatedStateName,
		Mode:           string(mode),
	}
	if err := s.approvalRepo.CreateWorkflow(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("approval workflow created",
		zap.String("workflow_id", record.ID),
		zap.String("gated_state", record.GatedStateName),
		zap.String("mode", record.Mode))
	s.audit.created(ctx, "", "approval_workflow", record.ID)

	return workflowToPrimary(record, nil), nil
}

// GetWorkflow retrieves a gate definition with its steps.
func (s *ApprovalServiceImpl) GetWorkflow(ctx context.Context, workflowID string) (*primary.ApprovalWorkflow, error) {
	record, err := s.approvalRepo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	steps, err := s.approvalRepo.ListSteps(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return workflowToPrimary(record, steps), nil
}

// ListWorkflows lists all gate definitions with their steps.
func (s *ApprovalServiceImpl) ListWorkflows(ctx context.Context) ([]*primary.ApprovalWorkflow, error) {
	records, err := s.approvalRepo.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*primary.ApprovalWorkflow, 0, len(records))
	for _, r := range records {
		steps, err := s.approvalRepo.ListSteps(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, workflowToPrimary(r, steps))
	}
	return out, nil
}

// AddStep appends a step to a gate.
func (s *ApprovalServiceImpl) AddStep(ctx context.Context, req primary.AddStepRequest) (*primary.ApprovalStep, error) {
	const op = "approval.add_step"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	logic, err := approval.ParseLogic(req.ApprovalLogic)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	if _, err := s.approvalRepo.GetWorkflow(ctx, req.WorkflowID); err != nil {
		return nil, err
	}

	record := &secondary.ApprovalStepRecord{
		ID:                uuid.NewString(),
		WorkflowID:        req.WorkflowID,
		StepOrder:         req.StepOrder,
		Name:              req.Name,
		RequiredApprovals: req.RequiredApprovals,
		ApprovalLogic:     string(logic),
		TimeoutSeconds:    req.TimeoutSeconds,
		EscalateToUserID:  req.EscalateToUserID,
	}
	if err := s.approvalRepo.AddStep(ctx, record); err != nil {
		return nil, err
	}
	s.audit.created(ctx, "", "approval_step", record.ID)
	return stepToPrimary(record), nil
}

// RequestApproval opens an approval request for a content item.
func (s *ApprovalServiceImpl) RequestApproval(ctx context.Context, req primary.RequestApprovalRequest) (*primary.ApprovalRequest, error) {
	const op = "approval.request"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if _, err := s.approvalRepo.GetWorkflow(ctx, req.WorkflowID); err != nil {
		return nil, err
	}

	record := &secondary.ApprovalRequestRecord{
		ID:          uuid.NewString(),
		ContentID:   req.ContentID,
		WorkflowID:  req.WorkflowID,
		RequestedBy: req.RequestedBy,
	}
	if err := s.approvalRepo.CreateRequest(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("approval requested",
		zap.String("request_id", record.ID),
		zap.String("content_id", record.ContentID),
		zap.String("workflow_id", record.WorkflowID),
		zap.String("requested_by", record.RequestedBy))
	s.audit.created(ctx, req.RequestedBy, "approval_request", record.ID)

	return &primary.ApprovalRequest{
		ID:          record.ID,
		ContentID:   record.ContentID,
		WorkflowID:  record.WorkflowID,
		RequestedBy: record.RequestedBy,
		RequestedAt: record.RequestedAt,
	}, nil
}

// RecordDecision records one approver's decision on a step.
func (s *ApprovalServiceImpl) RecordDecision(ctx context.Context, req primary.RecordDecisionRequest) (*primary.ApprovalDecision, error) {
	const op = "approval.decide"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	decision, err := approval.ParseDecision(req.Decision)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	request, err := s.approvalRepo.GetRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if request.ConsumedAt != nil {
		return nil, apperr.Validation(op, "approval request %s was already used by transition %d", request.ID, request.ConsumedBy)
	}
	in, err := s.loadInput(ctx, request)
	if err != nil {
		return nil, err
	}
	if result := approval.CanRecordDecision(in, req.StepID, req.UserID); !result.Allowed {
		return nil, apperr.Validation(op, "%s", result.Reason)
	}

	record := &secondary.ApprovalDecisionRecord{
		ID:        uuid.NewString(),
		RequestID: request.ID,
		StepID:    req.StepID,
		UserID:    req.UserID,
		Decision:  string(decision),
		Comments:  req.Comments,
	}
	if err := s.approvalRepo.CreateDecision(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("approval decision recorded",
		zap.String("request_id", request.ID),
		zap.String("content_id", request.ContentID),
		zap.String("step_id", record.StepID),
		zap.String("user_id", record.UserID),
		zap.String("decision", record.Decision))
	s.audit.created(ctx, req.UserID, "approval_decision", record.ID)

	return &primary.ApprovalDecision{
		ID:        record.ID,
		RequestID: record.RequestID,
		StepID:    record.StepID,
		UserID:    record.UserID,
		Decision:  record.Decision,
		Comments:  record.Comments,
		DecidedAt: record.DecidedAt,
	}, nil
}

// GetGateStatus evaluates the gate for content entering stateName against
// the newest open approval request. A request is closed by the transition
// it lets through, so every entry into a gated state needs its own sign-off.
// An ungated state is always satisfied.
func (s *ApprovalServiceImpl) GetGateStatus(ctx context.Context, contentID, stateName string) (*primary.GateReport, error) {
	report := &primary.GateReport{ContentID: contentID, StateName: stateName}

	wf, err := s.approvalRepo.GetWorkflowByState(ctx, stateName)
	if errors.Is(err, apperr.ErrNotFound) {
		report.Satisfied = true
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	report.Gated = true
	report.WorkflowID = wf.ID

	request, err := s.approvalRepo.GetOpenRequest(ctx, contentID, wf.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		steps, err := s.approvalRepo.ListSteps(ctx, wf.ID)
		if err != nil {
			return nil, err
		}
		if len(steps) == 0 {
			report.Satisfied = true
			return report, nil
		}
		report.Reason = fmt.Sprintf("approval for %q has not been requested since the last entry", stateName)
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	report.RequestID = request.ID

	in, err := s.loadInput(ctx, request)
	if err != nil {
		return nil, err
	}
	result := approval.Evaluate(in)
	report.Decisions = len(in.Votes)
	report.Satisfied = result.Satisfied
	report.Reason = result.Reason
	for _, sr := range result.Steps {
		report.Steps = append(report.Steps, primary.GateStep{
			StepID:      sr.StepID,
			Name:        sr.Name,
			Order:       sr.Order,
			Status:      string(sr.Status),
			Approvals:   sr.Approvals,
			Required:    sr.Required,
			EscalateTo:  sr.EscalateTo,
			CompletedAt: sr.CompletedAt,
		})
	}
	return report, nil
}

// loadInput gathers the workflow, steps and votes of a request.
func (s *ApprovalServiceImpl) loadInput(ctx context.Context, request *secondary.ApprovalRequestRecord) (approval.Input, error) {
	wf, err := s.approvalRepo.GetWorkflow(ctx, request.WorkflowID)
	if err != nil {
		return approval.Input{}, err
	}
	mode, err := approval.ParseMode(wf.Mode)
	if err != nil {
		return approval.Input{}, apperr.Storage("approval.load", err)
	}
	stepRecords, err := s.approvalRepo.ListSteps(ctx, wf.ID)
	if err != nil {
		return approval.Input{}, err
	}
	decisions, err := s.approvalRepo.ListDecisions(ctx, request.ID)
	if err != nil {
		return approval.Input{}, err
	}

	in := approval.Input{
		Mode:        mode,
		Steps:       make([]approval.Step, 0, len(stepRecords)),
		Votes:       make([]approval.Vote, 0, len(decisions)),
		RequestedAt: request.RequestedAt,
		Now:         s.now().UTC(),
	}
	for _, r := range stepRecords {
		logic, err := approval.ParseLogic(r.ApprovalLogic)
		if err != nil {
			return approval.Input{}, apperr.Storage("approval.load", err)
		}
		in.Steps = append(in.Steps, approval.Step{
			ID:                r.ID,
			Order:             r.StepOrder,
			Name:              r.Name,
			RequiredApprovals: r.RequiredApprovals,
			Logic:             logic,
			Timeout:           time.Duration(r.TimeoutSeconds) * time.Second,
			EscalateTo:        r.EscalateToUserID,
		})
	}
	for _, d := range decisions {
		decision, err := approval.ParseDecision(d.Decision)
		if err != nil {
			return approval.Input{}, apperr.Storage("approval.load", err)
		}
		in.Votes = append(in.Votes, approval.Vote{
			StepID:    d.StepID,
			UserID:    d.UserID,
			Decision:  decision,
			DecidedAt: d.DecidedAt,
		})
	}
	return in, nil
}

func workflowToPrimary(r *secondary.ApprovalWorkflowRecord, steps []*secondary.ApprovalStepRecord) *primary.ApprovalWorkflow {
	wf := &primary.ApprovalWorkflow{
		ID:             r.ID,
		Name:           r.Name,
		GatedStateName: r.GatedStateName,
		Mode:           r.Mode,
		Steps:          make([]*primary.ApprovalStep, 0, len(steps)),
		CreatedAt:      r.CreatedAt,
	}
	for _, st := range steps {
		wf.Steps = append(wf.Steps, stepToPrimary(st))
	}
	return wf
}

func stepToPrimary(r *secondary.ApprovalStepRecord) *primary.ApprovalStep {
	return &primary.ApprovalStep{
		ID:                r.ID,
		WorkflowID:        r.WorkflowID,
		StepOrder:         r.StepOrder,
		Name:              r.Name,
		RequiredApprovals: r.RequiredApprovals,
		ApprovalLogic:     r.ApprovalLogic,
		TimeoutSeconds:    r.TimeoutSeconds,
		EscalateToUserID:  r.EscalateToUserID,
	}
}

// Ensure ApprovalServiceImpl implements the interface
var _ primary.ApprovalService = (*ApprovalServiceImpl)(nil)
