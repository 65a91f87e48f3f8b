// Package workflow contains the pure business logic for the content
// lifecycle state machine.
// This is part of the Functional Core - no I/O, only pure functions.
package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// State is the guard-level view of a workflow state.
type State struct {
	ID         int64
	Name       string
	Label      string
	IsInitial  bool
	IsTerminal bool
}

// Table maps a from-state name to the names it may move to.
// A from-state missing from the table permits nothing.
type Table map[string][]string

// NewTable copies the given map so later edits to it cannot leak in.
func NewTable(m map[string][]string) Table {
	t := make(Table, len(m))
	for from, tos := range m {
		t[from] = append([]string(nil), tos...)
	}
	return t
}

// Allows reports whether from -> to is listed.
func (t Table) Allows(from, to string) bool {
	for _, name := range t[from] {
		if name == to {
			return true
		}
	}
	return false
}

// Next returns the listed targets for from, sorted.
func (t Table) Next(from string) []string {
	out := append([]string(nil), t[from]...)
	sort.Strings(out)
	return out
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

// TransitionContext provides context for transition guards.
type TransitionContext struct {
	ContentID string
	From      *State // nil when the content has no state yet
	To        State
}

// CanTransition evaluates whether content may move to ctx.To.
// Rules:
// - No current state: any target is an unconditional assignment
// - Terminal states have no outgoing transitions
// - Otherwise the pair must be listed in the table
func CanTransition(ctx TransitionContext, table Table) GuardResult {
	if ctx.From == nil {
		return GuardResult{Allowed: true}
	}
	if ctx.From.IsTerminal {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("content %s is in terminal state %q", ctx.ContentID, ctx.From.Name),
		}
	}
	if !table.Allows(ctx.From.Name, ctx.To.Name) {
		allowed := table.Next(ctx.From.Name)
		hint := "none"
		if len(allowed) > 0 {
			hint = strings.Join(allowed, ", ")
		}
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("cannot transition content %s from %q to %q (allowed: %s)",
				ctx.ContentID, ctx.From.Name, ctx.To.Name, hint),
		}
	}
	return GuardResult{Allowed: true}
}

// NextStates filters states down to the ones reachable from current.
// With no current state, only the initial state is offered.
func NextStates(current *State, states []State, table Table) []State {
	var out []State
	for _, s := range states {
		if current == nil {
			if s.IsInitial {
				out = append(out, s)
			}
			continue
		}
		if CanTransition(TransitionContext{From: current, To: s}, table).Allowed {
			out = append(out, s)
		}
	}
	return out
}

// FindInitial returns the initial state among states.
func FindInitial(states []State) (State, bool) {
	for _, s := range states {
		if s.IsInitial {
			return s, true
		}
	}
	return State{}, false
}

// Event names the log event for entering a state, or "" when the state has
// no dedicated event.
func Event(toState string) string {
	switch toState {
	case "review":
		return "submit_for_review"
	case "published", "approved":
		return "approve"
	case "rejected":
		return "reject"
	}
	return ""
}
