package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/core/workflow"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// GateEvaluator reports whether content may enter a state.
type GateEvaluator interface {
	GetGateStatus(ctx context.Context, contentID, stateName string) (*primary.GateReport, error)
}

// WorkflowServiceImpl implements the WorkflowService interface.
type WorkflowServiceImpl struct {
	stateRepo secondary.WorkflowStateRepository
	entryRepo secondary.ContentWorkflowRepository
	gates     GateEvaluator
	table     workflow.Table
	audit     auditTrail
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewWorkflowService creates a new WorkflowService with injected dependencies.
// transitions maps a state name to the names it may move to. gates may be nil,
// in which case no state is gated.
func NewWorkflowService(
	stateRepo secondary.WorkflowStateRepository,
	entryRepo secondary.ContentWorkflowRepository,
	gates GateEvaluator,
	transitions map[string][]string,
	logWriter secondary.LogWriter,
	logger *zap.Logger,
	m *metrics.Collector,
) *WorkflowServiceImpl {
	return &WorkflowServiceImpl{
		stateRepo: stateRepo,
		entryRepo: entryRepo,
		gates:     gates,
		table:     workflow.NewTable(transitions),
		audit:     newAuditTrail(logWriter, logger),
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

// CreateState adds a workflow state.
func (s *WorkflowServiceImpl) CreateState(ctx context.Context, req primary.CreateStateRequest) (*primary.WorkflowState, error) {
	const op = "workflow.create_state"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if req.IsInitial {
		existing, err := s.stateRepo.GetInitial(ctx)
		switch {
		case err == nil:
			return nil, apperr.Validation(op, "initial state already defined: %s", existing.Name)
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	label := req.Label
	if label == "" {
		label = req.Name
	}
	record := &secondary.WorkflowStateRecord{
		Name:        req.Name,
		Label:       label,
		Description: req.Description,
		IsInitial:   req.IsInitial,
		IsTerminal:  req.IsTerminal,
	}
	if err := s.stateRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("workflow state created", zap.Int64("state_id", record.ID), zap.String("name", record.Name))
	return recordToState(record), nil
}

// ListStates lists all workflow states.
func (s *WorkflowServiceImpl) ListStates(ctx context.Context) ([]*primary.WorkflowState, error) {
	records, err := s.stateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]*primary.WorkflowState, len(records))
	for i, r := range records {
		states[i] = recordToState(r)
	}
	return states, nil
}

// GetState retrieves a state by ID.
func (s *WorkflowServiceImpl) GetState(ctx context.Context, stateID int64) (*primary.WorkflowState, error) {
	record, err := s.stateRepo.GetByID(ctx, stateID)
	if err != nil {
		return nil, err
	}
	return recordToState(record), nil
}

// GetStateByName retrieves a state by name.
func (s *WorkflowServiceImpl) GetStateByName(ctx context.Context, name string) (*primary.WorkflowState, error) {
	record, err := s.stateRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return recordToState(record), nil
}

// InitialState returns the designated initial state.
func (s *WorkflowServiceImpl) InitialState(ctx context.Context) (*primary.WorkflowState, error) {
	record, err := s.stateRepo.GetInitial(ctx)
	if err != nil {
		return nil, err
	}
	return recordToState(record), nil
}

// TransitionContent moves content to a new state. Nothing is written when
// the transition is not allowed or the target's approval gate is unsatisfied.
func (s *WorkflowServiceImpl) TransitionContent(ctx context.Context, req primary.TransitionRequest) (*primary.TransitionResult, error) {
	const op = "workflow.transition"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	to, err := s.stateRepo.GetByID(ctx, req.ToStateID)
	if err != nil {
		return nil, err
	}
	from, err := s.currentState(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, op, from, to, transitionInput{
		contentID:  req.ContentID,
		userID:     req.UserID,
		notes:      req.Notes,
		assigneeID: req.AssigneeID,
	})
}

// SetInitialStateForContent assigns the initial state to content with no state.
func (s *WorkflowServiceImpl) SetInitialStateForContent(ctx context.Context, req primary.InitialStateRequest) (*primary.TransitionResult, error) {
	const op = "workflow.initialize"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	initial, err := s.stateRepo.GetInitial(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound(op, "no initial workflow state defined")
	}
	if err != nil {
		return nil, err
	}
	from, err := s.currentState(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if from != nil {
		return nil, apperr.InvalidTransition(op, "content %s already has state %q", req.ContentID, from.Name)
	}
	return s.apply(ctx, op, nil, initial, transitionInput{
		contentID:  req.ContentID,
		userID:     req.UserID,
		notes:      req.Notes,
		assigneeID: req.AssigneeID,
	})
}

// GetCurrentState returns the content's current entry.
func (s *WorkflowServiceImpl) GetCurrentState(ctx context.Context, contentID string) (*primary.ContentWorkflow, error) {
	entry, err := s.entryRepo.GetEntry(ctx, contentID)
	if err != nil {
		return nil, err
	}
	state, err := s.stateRepo.GetByID(ctx, entry.WorkflowStateID)
	if err != nil {
		return nil, err
	}
	return &primary.ContentWorkflow{
		ContentID:        entry.ContentID,
		State:            recordToState(state),
		UserID:           entry.UserID,
		AssignedToUserID: entry.AssignedToUserID,
		Notes:            entry.Notes,
		UpdatedAt:        entry.UpdatedAt,
	}, nil
}

// GetWorkflowHistory lists transitions newest first.
func (s *WorkflowServiceImpl) GetWorkflowHistory(ctx context.Context, contentID string, limit, offset int) ([]*primary.WorkflowHistoryEntry, error) {
	if offset < 0 {
		return nil, apperr.Validation("workflow.history", "offset must not be negative")
	}
	records, err := s.entryRepo.ListHistory(ctx, contentID, limit, offset)
	if err != nil {
		return nil, err
	}
	entries := make([]*primary.WorkflowHistoryEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.WorkflowHistoryEntry{
			ID:             r.ID,
			ContentID:      r.ContentID,
			FromStateID:    r.FromStateID,
			FromStateName:  r.FromStateName,
			ToStateID:      r.ToStateID,
			ToStateName:    r.ToStateName,
			UserID:         r.UserID,
			Notes:          r.Notes,
			TransitionedAt: r.TransitionedAt,
		}
	}
	return entries, nil
}

// AllowedNextStates lists the states the content may move to now. Approval
// gates are not consulted.
func (s *WorkflowServiceImpl) AllowedNextStates(ctx context.Context, contentID string) ([]*primary.WorkflowState, error) {
	current, err := s.currentState(ctx, contentID)
	if err != nil {
		return nil, err
	}
	records, err := s.stateRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*secondary.WorkflowStateRecord, len(records))
	states := make([]workflow.State, len(records))
	for i, r := range records {
		byID[r.ID] = r
		states[i] = toCoreState(r)
	}

	var from *workflow.State
	if current != nil {
		st := toCoreState(current)
		from = &st
	}
	next := workflow.NextStates(from, states, s.table)
	out := make([]*primary.WorkflowState, 0, len(next))
	for _, st := range next {
		out = append(out, recordToState(byID[st.ID]))
	}
	return out, nil
}

// transitionInput carries the caller-supplied fields of a transition.
type transitionInput struct {
	contentID  string
	userID     string
	notes      string
	assigneeID string
}

// apply checks the transition table and the approval gate, then moves the
// content with a compare-and-swap on its current state. The request that
// satisfied the gate is consumed in the same transaction, which also fails
// when a decision arrived after the gate was evaluated.
func (s *WorkflowServiceImpl) apply(ctx context.Context, op string, from, to *secondary.WorkflowStateRecord, in transitionInput) (*primary.TransitionResult, error) {
	guardCtx := workflow.TransitionContext{ContentID: in.contentID, To: toCoreState(to)}
	if from != nil {
		st := toCoreState(from)
		guardCtx.From = &st
	}
	if result := workflow.CanTransition(guardCtx, s.table); !result.Allowed {
		s.metrics.ObserveTransition(to.Name, "refused")
		return nil, apperr.InvalidTransition(op, "%s", result.Reason)
	}

	var gate *primary.GateReport
	if s.gates != nil {
		report, err := s.gates.GetGateStatus(ctx, in.contentID, to.Name)
		if err != nil {
			return nil, err
		}
		if !report.Satisfied {
			s.metrics.ObserveTransition(to.Name, "gate_blocked")
			s.logger.Info("transition blocked by approval gate",
				zap.String("content_id", in.contentID),
				zap.String("to_state", to.Name),
				zap.String("reason", report.Reason))
			return nil, &primary.GateBlockedError{Report: report}
		}
		gate = report
	}

	record := &secondary.TransitionRecord{
		ContentID:  in.contentID,
		ToStateID:  to.ID,
		UserID:     in.userID,
		AssigneeID: in.assigneeID,
		Notes:      in.notes,
	}
	if gate != nil && gate.RequestID != "" {
		record.ApprovalRequestID = gate.RequestID
		record.ApprovalDecisions = gate.Decisions
	}
	fromName := ""
	if from != nil {
		record.ExpectedFromStateID = from.ID
		fromName = from.Name
	}
	if err := s.entryRepo.Transition(ctx, record); err != nil {
		if apperr.IsRetryable(err) {
			s.metrics.ObserveTransition(to.Name, "conflict")
		}
		return nil, err
	}
	s.metrics.ObserveTransition(to.Name, "ok")

	fields := []zap.Field{
		zap.String("content_id", in.contentID),
		zap.String("from_state", fromName),
		zap.String("to_state", to.Name),
		zap.String("user_id", in.userID),
		zap.Int64("history_id", record.HistoryID),
	}
	if event := workflow.Event(to.Name); event != "" {
		s.logger.Info(event, fields...)
	} else {
		s.logger.Info("content transitioned", fields...)
	}
	if record.ApprovalRequestID != "" {
		s.logger.Info("approval request consumed",
			zap.String("content_id", in.contentID),
			zap.String("request_id", record.ApprovalRequestID),
			zap.Int64("history_id", record.HistoryID))
	}
	s.audit.updated(ctx, in.userID, "content", in.contentID, "workflow_state", fromName, to.Name)

	result := &primary.TransitionResult{
		ContentID: in.contentID,
		To:        recordToState(to),
		HistoryID: record.HistoryID,
	}
	if from != nil {
		result.From = recordToState(from)
	}
	return result, nil
}

// currentState returns the content's state, or nil when it has none.
func (s *WorkflowServiceImpl) currentState(ctx context.Context, contentID string) (*secondary.WorkflowStateRecord, error) {
	entry, err := s.entryRepo.GetEntry(ctx, contentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.stateRepo.GetByID(ctx, entry.WorkflowStateID)
}

func toCoreState(r *secondary.WorkflowStateRecord) workflow.State {
	return workflow.State{
		ID:         r.ID,
		Name:       r.Name,
		Label:      r.Label,
		IsInitial:  r.IsInitial,
		IsTerminal: r.IsTerminal,
	}
}

func recordToState(r *secondary.WorkflowStateRecord) *primary.WorkflowState {
	return &primary.WorkflowState{
		ID:          r.ID,
		Name:        r.Name,
		Label:       r.Label,
		Description: r.Description,
		IsInitial:   r.IsInitial,
		IsTerminal:  r.IsTerminal,
	}
}

// Ensure WorkflowServiceImpl implements the interface
var _ primary.WorkflowService = (*WorkflowServiceImpl)(nil)
