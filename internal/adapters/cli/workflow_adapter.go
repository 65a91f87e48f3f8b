package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/verflow/internal/ports/primary"
)

// WorkflowAdapter translates CLI operations to WorkflowService and
// ApprovalService calls.
type WorkflowAdapter struct {
	workflow  primary.WorkflowService
	approvals primary.ApprovalService
	out       io.Writer
}

// NewWorkflowAdapter creates a new WorkflowAdapter with the given services.
func NewWorkflowAdapter(workflow primary.WorkflowService, approvals primary.ApprovalService, out io.Writer) *WorkflowAdapter {
	return &WorkflowAdapter{workflow: workflow, approvals: approvals, out: out}
}

// stateColor colors a state name by its role.
func stateColor(s *primary.WorkflowState) string {
	switch {
	case s.IsTerminal:
		return color.New(color.FgHiBlack).Sprint(s.Name)
	case s.IsInitial:
		return color.New(color.FgBlue).Sprint(s.Name)
	case s.Name == "published":
		return color.New(color.FgGreen).Sprint(s.Name)
	case s.Name == "rejected":
		return color.New(color.FgRed).Sprint(s.Name)
	}
	return color.New(color.FgYellow).Sprint(s.Name)
}

// Transition moves content to the named state. A gate refusal prints the
// pending steps before returning the error.
func (a *WorkflowAdapter) Transition(ctx context.Context, contentID, toState, userID, notes, assignee string) error {
	st, err := a.workflow.GetStateByName(ctx, toState)
	if err != nil {
		return err
	}

	res, err := a.workflow.TransitionContent(ctx, primary.TransitionRequest{
		ContentID:  contentID,
		ToStateID:  st.ID,
		UserID:     userID,
		Notes:      notes,
		AssigneeID: assignee,
	})
	var blocked *primary.GateBlockedError
	if errors.As(err, &blocked) {
		a.printGate(blocked.Report)
		return err
	}
	if err != nil {
		return err
	}

	from := "(none)"
	if res.From != nil {
		from = stateColor(res.From)
	}
	fmt.Fprintf(a.out, "%s %s: %s → %s\n", okMark, contentID, from, stateColor(res.To))
	return nil
}

// Init assigns the initial state to content with none.
func (a *WorkflowAdapter) Init(ctx context.Context, contentID, userID, assignee string) error {
	res, err := a.workflow.SetInitialStateForContent(ctx, primary.InitialStateRequest{
		ContentID:  contentID,
		UserID:     userID,
		AssigneeID: assignee,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s %s entered %s\n", okMark, contentID, stateColor(res.To))
	return nil
}

// Status prints the current state and the states reachable from it.
func (a *WorkflowAdapter) Status(ctx context.Context, contentID string) error {
	cw, err := a.workflow.GetCurrentState(ctx, contentID)
	if err != nil {
		return err
	}
	next, err := a.workflow.AllowedNextStates(ctx, contentID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nContent: %s\n", contentID)
	fmt.Fprintf(a.out, "State:   %s\n", stateColor(cw.State))
	fmt.Fprintf(a.out, "By:      %s at %s\n", cw.UserID, cw.UpdatedAt.Format("2006-01-02 15:04:05"))
	if cw.AssignedToUserID != "" {
		fmt.Fprintf(a.out, "Assignee: %s\n", cw.AssignedToUserID)
	}
	fmt.Fprint(a.out, "Next:   ")
	if len(next) == 0 {
		fmt.Fprint(a.out, " (none)")
	}
	for _, s := range next {
		fmt.Fprintf(a.out, " %s", stateColor(s))
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out)
	return nil
}

// History lists transitions newest first.
func (a *WorkflowAdapter) History(ctx context.Context, contentID string, limit int) error {
	entries, err := a.workflow.GetWorkflowHistory(ctx, contentID, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No transitions recorded")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-20s %-12s %-12s %-12s %s\n", "WHEN", "FROM", "TO", "BY", "NOTES")
	fmt.Fprintln(a.out, rule)
	for _, e := range entries {
		from := e.FromStateName
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(a.out, "%-20s %-12s %-12s %-12s %s\n",
			e.TransitionedAt.Format("2006-01-02 15:04:05"), from, e.ToStateName, e.UserID, e.Notes)
	}
	fmt.Fprintln(a.out)
	return nil
}

// States lists every workflow state.
func (a *WorkflowAdapter) States(ctx context.Context) error {
	states, err := a.workflow.ListStates(ctx)
	if err != nil {
		return err
	}

	for _, s := range states {
		marker := ""
		if s.IsInitial {
			marker = " (initial)"
		}
		if s.IsTerminal {
			marker = " (terminal)"
		}
		fmt.Fprintf(a.out, "%3d  %-12s %s%s\n", s.ID, stateColor(s), s.Label, marker)
	}
	return nil
}

// AddState creates a workflow state.
func (a *WorkflowAdapter) AddState(ctx context.Context, req primary.CreateStateRequest) error {
	st, err := a.workflow.CreateState(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Created state %s (%d)\n", okMark, stateColor(st), st.ID)
	return nil
}

// Gate prints the approval gate status for content entering state.
func (a *WorkflowAdapter) Gate(ctx context.Context, contentID, state string) error {
	r, err := a.approvals.GetGateStatus(ctx, contentID, state)
	if err != nil {
		return err
	}
	a.printGate(r)
	return nil
}

func (a *WorkflowAdapter) printGate(r *primary.GateReport) {
	if !r.Gated {
		fmt.Fprintf(a.out, "%s %s is not gated\n", okMark, r.StateName)
		return
	}
	if r.Satisfied {
		fmt.Fprintf(a.out, "%s Gate for %s is satisfied\n", okMark, r.StateName)
	} else {
		fmt.Fprintf(a.out, "%s Gate for %s is blocking: %s\n", warnMark, r.StateName, r.Reason)
	}
	for _, s := range r.Steps {
		status := s.Status
		switch s.Status {
		case "approved":
			status = color.GreenString(s.Status)
		case "rejected":
			status = color.RedString(s.Status)
		case "timed_out":
			status = color.YellowString(s.Status)
		}
		fmt.Fprintf(a.out, "  %d. %-20s %s (%d/%d)", s.Order, s.Name, status, s.Approvals, s.Required)
		if s.EscalateTo != "" {
			fmt.Fprintf(a.out, " → escalated to %s", s.EscalateTo)
		}
		fmt.Fprintln(a.out)
	}
}

// CreateGate defines an approval gate.
func (a *WorkflowAdapter) CreateGate(ctx context.Context, req primary.CreateApprovalWorkflowRequest) error {
	wf, err := a.approvals.CreateWorkflow(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Created approval workflow %s gating %s (%s)\n", okMark, wf.ID, wf.GatedStateName, wf.Mode)
	return nil
}

// AddStep appends a step to a gate.
func (a *WorkflowAdapter) AddStep(ctx context.Context, req primary.AddStepRequest) error {
	step, err := a.approvals.AddStep(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Added step %d %q (%s)\n", okMark, step.StepOrder, step.Name, step.ID)
	return nil
}

// Request opens an approval request.
func (a *WorkflowAdapter) Request(ctx context.Context, req primary.RequestApprovalRequest) error {
	ar, err := a.approvals.RequestApproval(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Requested approval %s for %s\n", okMark, ar.ID, ar.ContentID)
	return nil
}

// Decide records a decision.
func (a *WorkflowAdapter) Decide(ctx context.Context, req primary.RecordDecisionRequest) error {
	d, err := a.approvals.RecordDecision(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Recorded %s by %s\n", okMark, d.Decision, d.UserID)
	return nil
}

// Gates lists every approval workflow with its steps.
func (a *WorkflowAdapter) Gates(ctx context.Context) error {
	wfs, err := a.approvals.ListWorkflows(ctx)
	if err != nil {
		return err
	}
	if len(wfs) == 0 {
		fmt.Fprintln(a.out, "No approval workflows defined")
		return nil
	}
	for _, wf := range wfs {
		fmt.Fprintf(a.out, "%s  %s → %s (%s)\n", wf.ID, wf.Name, wf.GatedStateName, wf.Mode)
		for _, s := range wf.Steps {
			fmt.Fprintf(a.out, "  %d. %s: %d %s\n", s.StepOrder, s.Name, s.RequiredApprovals, s.ApprovalLogic)
		}
	}
	return nil
}
