// Package approval contains the pure business logic for multi-step approval
// gates in front of workflow transitions.
// This is part of the Functional Core - no I/O, only pure functions.
package approval

import (
	"fmt"
	"sort"
	"time"
)

// Mode controls whether steps run one after another or all at once.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// Logic controls how rejections affect a step.
type Logic string

const (
	// LogicAll blocks the step on any rejection or change request.
	LogicAll Logic = "all"
	// LogicAny only counts approvals.
	LogicAny Logic = "any"
)

// Decision is a single approver's verdict.
type Decision string

const (
	DecisionApproved         Decision = "approved"
	DecisionRejected         Decision = "rejected"
	DecisionChangesRequested Decision = "changes_requested"
)

// StepStatus is the evaluated state of a step.
type StepStatus string

const (
	StatusPending  StepStatus = "pending"
	StatusApproved StepStatus = "approved"
	StatusRejected StepStatus = "rejected"
	StatusTimedOut StepStatus = "timed_out"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequential, ModeParallel:
		return m, nil
	}
	return "", fmt.Errorf("unknown approval mode %q (want sequential or parallel)", s)
}

// ParseLogic validates a logic name.
func ParseLogic(s string) (Logic, error) {
	switch l := Logic(s); l {
	case LogicAll, LogicAny:
		return l, nil
	}
	return "", fmt.Errorf("unknown approval logic %q (want any or all)", s)
}

// ParseDecision validates a decision name.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApproved, DecisionRejected, DecisionChangesRequested:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q (want approved, rejected or changes_requested)", s)
}

// Step is one stage of an approval workflow.
type Step struct {
	ID                string
	Order             int
	Name              string
	RequiredApprovals int
	Logic             Logic
	Timeout           time.Duration // zero means no timeout
	EscalateTo        string
}

// Vote is a recorded decision against a step.
type Vote struct {
	StepID    string
	UserID    string
	Decision  Decision
	DecidedAt time.Time
}

// StepReport is the evaluated status of one step.
type StepReport struct {
	StepID      string     `json:"step_id"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	Status      StepStatus `json:"status"`
	Approvals   int        `json:"approvals"`
	Required    int        `json:"required"`
	EscalateTo  string     `json:"escalate_to,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GateReport is the evaluated status of a whole gate.
type GateReport struct {
	Satisfied bool         `json:"satisfied"`
	Reason    string       `json:"reason,omitempty"`
	Steps     []StepReport `json:"steps"`
}

// Input is everything evaluation needs for one approval request.
type Input struct {
	Mode        Mode
	Steps       []Step
	Votes       []Vote
	RequestedAt time.Time
	Now         time.Time
}

// SortSteps orders steps by Order, then ID.
func SortSteps(steps []Step) []Step {
	out := append([]Step(nil), steps...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].ID < out[j].ID
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Evaluate computes the status of every step and whether the gate is clear.
// A gate with no steps is satisfied.
func Evaluate(in Input) GateReport {
	steps := SortSteps(in.Steps)
	byStep := make(map[string][]Vote)
	for _, v := range in.Votes {
		byStep[v.StepID] = append(byStep[v.StepID], v)
	}

	report := GateReport{Satisfied: true, Steps: make([]StepReport, 0, len(steps))}
	start := &in.RequestedAt
	for _, s := range steps {
		sr := evaluateStep(s, byStep[s.ID], start, in.Now)
		report.Steps = append(report.Steps, sr)

		if sr.Status != StatusApproved {
			report.Satisfied = false
			if report.Reason == "" {
				report.Reason = blockReason(sr)
			}
		}
		if in.Mode == ModeSequential {
			// The next step's clock starts when this one completes.
			start = sr.CompletedAt
		}
	}
	return report
}

// evaluateStep classifies one step. start is nil when the step has not been
// reached yet, in which case it cannot time out.
func evaluateStep(s Step, votes []Vote, start *time.Time, now time.Time) StepReport {
	sr := StepReport{
		StepID:   s.ID,
		Name:     s.Name,
		Order:    s.Order,
		Status:   StatusPending,
		Required: s.RequiredApprovals,
	}

	sorted := append([]Vote(nil), votes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DecidedAt.Before(sorted[j].DecidedAt) })

	approvers := make(map[string]bool)
	blocked := false
	for _, v := range sorted {
		switch v.Decision {
		case DecisionApproved:
			if approvers[v.UserID] {
				continue
			}
			approvers[v.UserID] = true
			if len(approvers) == s.RequiredApprovals && sr.CompletedAt == nil {
				at := v.DecidedAt
				sr.CompletedAt = &at
			}
		case DecisionRejected, DecisionChangesRequested:
			if s.Logic == LogicAll {
				blocked = true
			}
		}
	}
	sr.Approvals = len(approvers)

	switch {
	case blocked:
		sr.Status = StatusRejected
		sr.CompletedAt = nil
	case sr.Approvals >= s.RequiredApprovals:
		sr.Status = StatusApproved
	case s.Timeout > 0 && start != nil && now.After(start.Add(s.Timeout)):
		sr.Status = StatusTimedOut
		sr.EscalateTo = s.EscalateTo
	}
	return sr
}

func blockReason(sr StepReport) string {
	switch sr.Status {
	case StatusRejected:
		return fmt.Sprintf("step %q was rejected", sr.Name)
	case StatusTimedOut:
		if sr.EscalateTo != "" {
			return fmt.Sprintf("step %q timed out, escalated to %s", sr.Name, sr.EscalateTo)
		}
		return fmt.Sprintf("step %q timed out", sr.Name)
	}
	return fmt.Sprintf("step %q has %d of %d approvals", sr.Name, sr.Approvals, sr.Required)
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanRecordDecision evaluates whether userID may decide on stepID.
// Rules:
// - Step must belong to the workflow
// - One decision per user per step
// - In sequential mode every earlier step must be approved first
func CanRecordDecision(in Input, stepID, userID string) GuardResult {
	steps := SortSteps(in.Steps)
	idx := -1
	for i, s := range steps {
		if s.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("step %s is not part of this approval workflow", stepID)}
	}
	for _, v := range in.Votes {
		if v.StepID == stepID && v.UserID == userID {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("user %s already decided on step %q", userID, steps[idx].Name),
			}
		}
	}
	if in.Mode == ModeSequential && idx > 0 {
		report := Evaluate(Input{
			Mode:        in.Mode,
			Steps:       steps[:idx],
			Votes:       in.Votes,
			RequestedAt: in.RequestedAt,
			Now:         in.Now,
		})
		if !report.Satisfied {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("step %q is not open yet: %s", steps[idx].Name, report.Reason),
			}
		}
	}
	return GuardResult{Allowed: true}
}
