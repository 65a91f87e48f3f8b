package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func twoSteps() []Step {
	return []Step{
		{ID: "legal", Order: 2, Name: "legal", RequiredApprovals: 1, Logic: LogicAll},
		{ID: "editor", Order: 1, Name: "editor", RequiredApprovals: 2, Logic: LogicAny},
	}
}

func vote(step, user string, d Decision, after time.Duration) Vote {
	return Vote{StepID: step, UserID: user, Decision: d, DecidedAt: t0.Add(after)}
}

func TestEvaluate_NoStepsIsSatisfied(t *testing.T) {
	r := Evaluate(Input{Mode: ModeParallel, RequestedAt: t0, Now: t0})
	assert.True(t, r.Satisfied)
	assert.Empty(t, r.Steps)
}

func TestEvaluate_AllApproved(t *testing.T) {
	r := Evaluate(Input{
		Mode:  ModeSequential,
		Steps: twoSteps(),
		Votes: []Vote{
			vote("editor", "ann", DecisionApproved, time.Minute),
			vote("editor", "bob", DecisionApproved, 2*time.Minute),
			vote("legal", "cat", DecisionApproved, 3*time.Minute),
		},
		RequestedAt: t0,
		Now:         t0.Add(time.Hour),
	})

	require.Len(t, r.Steps, 2)
	assert.True(t, r.Satisfied)
	assert.Equal(t, "editor", r.Steps[0].Name)
	assert.Equal(t, StatusApproved, r.Steps[0].Status)
	require.NotNil(t, r.Steps[0].CompletedAt)
	assert.Equal(t, t0.Add(2*time.Minute), *r.Steps[0].CompletedAt)
}

func TestEvaluate_DuplicateApproverCountsOnce(t *testing.T) {
	r := Evaluate(Input{
		Mode:  ModeParallel,
		Steps: twoSteps()[1:],
		Votes: []Vote{
			vote("editor", "ann", DecisionApproved, time.Minute),
			vote("editor", "ann", DecisionApproved, 2*time.Minute),
		},
		RequestedAt: t0,
		Now:         t0,
	})

	assert.False(t, r.Satisfied)
	assert.Equal(t, 1, r.Steps[0].Approvals)
	assert.Equal(t, StatusPending, r.Steps[0].Status)
	assert.Contains(t, r.Reason, "1 of 2")
}

func TestEvaluate_LogicAllBlocksOnRejection(t *testing.T) {
	r := Evaluate(Input{
		Mode:  ModeParallel,
		Steps: []Step{{ID: "s", Name: "review", RequiredApprovals: 1, Logic: LogicAll}},
		Votes: []Vote{
			vote("s", "ann", DecisionApproved, time.Minute),
			vote("s", "bob", DecisionChangesRequested, 2*time.Minute),
		},
		RequestedAt: t0,
		Now:         t0,
	})

	assert.False(t, r.Satisfied)
	assert.Equal(t, StatusRejected, r.Steps[0].Status)
	assert.Nil(t, r.Steps[0].CompletedAt)
	assert.Contains(t, r.Reason, "rejected")
}

func TestEvaluate_LogicAnyIgnoresRejection(t *testing.T) {
	r := Evaluate(Input{
		Mode:  ModeParallel,
		Steps: []Step{{ID: "s", Name: "review", RequiredApprovals: 1, Logic: LogicAny}},
		Votes: []Vote{
			vote("s", "bob", DecisionRejected, time.Minute),
			vote("s", "ann", DecisionApproved, 2*time.Minute),
		},
		RequestedAt: t0,
		Now:         t0,
	})

	assert.True(t, r.Satisfied)
	assert.Equal(t, StatusApproved, r.Steps[0].Status)
}

func TestEvaluate_ParallelTimeoutEscalates(t *testing.T) {
	steps := []Step{{
		ID: "s", Name: "review", RequiredApprovals: 1, Logic: LogicAll,
		Timeout: time.Hour, EscalateTo: "chief",
	}}

	r := Evaluate(Input{Mode: ModeParallel, Steps: steps, RequestedAt: t0, Now: t0.Add(30 * time.Minute)})
	assert.Equal(t, StatusPending, r.Steps[0].Status)

	r = Evaluate(Input{Mode: ModeParallel, Steps: steps, RequestedAt: t0, Now: t0.Add(2 * time.Hour)})
	assert.False(t, r.Satisfied)
	assert.Equal(t, StatusTimedOut, r.Steps[0].Status)
	assert.Equal(t, "chief", r.Steps[0].EscalateTo)
	assert.Contains(t, r.Reason, "escalated to chief")
}

func TestEvaluate_SequentialClockStartsAfterPreviousStep(t *testing.T) {
	steps := []Step{
		{ID: "a", Order: 1, Name: "a", RequiredApprovals: 1, Logic: LogicAll},
		{ID: "b", Order: 2, Name: "b", RequiredApprovals: 1, Logic: LogicAll, Timeout: time.Hour},
	}

	// Step a is never approved, so b's clock never starts.
	r := Evaluate(Input{Mode: ModeSequential, Steps: steps, RequestedAt: t0, Now: t0.Add(48 * time.Hour)})
	assert.Equal(t, StatusPending, r.Steps[1].Status)

	// Step a completes after 10h; b times out one hour after that.
	votes := []Vote{vote("a", "ann", DecisionApproved, 10*time.Hour)}
	r = Evaluate(Input{Mode: ModeSequential, Steps: steps, Votes: votes, RequestedAt: t0, Now: t0.Add(10*time.Hour + 30*time.Minute)})
	assert.Equal(t, StatusPending, r.Steps[1].Status)

	r = Evaluate(Input{Mode: ModeSequential, Steps: steps, Votes: votes, RequestedAt: t0, Now: t0.Add(12 * time.Hour)})
	assert.Equal(t, StatusTimedOut, r.Steps[1].Status)

	// In parallel mode the same step would already be late.
	r = Evaluate(Input{Mode: ModeParallel, Steps: steps, Votes: votes, RequestedAt: t0, Now: t0.Add(10*time.Hour + 30*time.Minute)})
	assert.Equal(t, StatusTimedOut, r.Steps[1].Status)
}

func TestCanRecordDecision(t *testing.T) {
	in := Input{Mode: ModeSequential, Steps: twoSteps(), RequestedAt: t0, Now: t0}

	r := CanRecordDecision(in, "legal", "cat")
	assert.False(t, r.Allowed)
	assert.Contains(t, r.Reason, "not open yet")

	assert.True(t, CanRecordDecision(in, "editor", "ann").Allowed)

	in.Votes = []Vote{vote("editor", "ann", DecisionApproved, time.Minute)}
	r = CanRecordDecision(in, "editor", "ann")
	assert.False(t, r.Allowed)
	assert.Contains(t, r.Reason, "already decided")

	in.Votes = append(in.Votes, vote("editor", "bob", DecisionApproved, 2*time.Minute))
	assert.True(t, CanRecordDecision(in, "legal", "cat").Allowed)

	assert.False(t, CanRecordDecision(in, "nope", "cat").Allowed)

	in.Mode = ModeParallel
	in.Votes = nil
	assert.True(t, CanRecordDecision(in, "legal", "cat").Allowed)
}

func TestParse(t *testing.T) {
	_, err := ParseMode("sequential")
	assert.NoError(t, err)
	_, err = ParseMode("serial")
	assert.Error(t, err)

	_, err = ParseLogic("any")
	assert.NoError(t, err)
	_, err = ParseLogic("most")
	assert.Error(t, err)

	d, err := ParseDecision("changes_requested")
	assert.NoError(t, err)
	assert.Equal(t, DecisionChangesRequested, d)
	_, err = ParseDecision("maybe")
	assert.Error(t, err)
}
