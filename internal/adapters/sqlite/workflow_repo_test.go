package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

func TestWorkflowStateRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewWorkflowStateRepository(database)
	ctx := context.Background()

	_, err := repo.GetInitial(ctx)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	draft := &secondary.WorkflowStateRecord{Name: "draft", Label: "Draft", IsInitial: true}
	require.NoError(t, repo.Create(ctx, draft))
	assert.NotZero(t, draft.ID)

	archived := &secondary.WorkflowStateRecord{Name: "archived", Label: "Archived", Description: "gone", IsTerminal: true}
	require.NoError(t, repo.Create(ctx, archived))

	initial, err := repo.GetInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, initial.ID)

	byName, err := repo.GetByName(ctx, "archived")
	require.NoError(t, err)
	assert.True(t, byName.IsTerminal)
	assert.Equal(t, "gone", byName.Description)

	byID, err := repo.GetByID(ctx, archived.ID)
	require.NoError(t, err)
	assert.Equal(t, "archived", byID.Name)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	err = repo.Create(ctx, &secondary.WorkflowStateRecord{Name: "other", Label: "Other", IsInitial: true})
	assert.ErrorIs(t, err, apperr.ErrConflict, "only one initial state")

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestContentWorkflowRepository_Transition(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewContentWorkflowRepository(database)
	ctx := context.Background()
	draft := seedState(t, database, "draft", true, false)
	review := seedState(t, database, "review", false, false)

	_, err := repo.GetEntry(ctx, "page-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	first := &secondary.TransitionRecord{ContentID: "page-1", ToStateID: draft, UserID: "ann"}
	require.NoError(t, repo.Transition(ctx, first))
	assert.NotZero(t, first.HistoryID)

	second := &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: draft, ToStateID: review,
		UserID: "ann", AssigneeID: "bob", Notes: "ready",
	}
	require.NoError(t, repo.Transition(ctx, second))

	entry, err := repo.GetEntry(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, review, entry.WorkflowStateID)
	assert.Equal(t, "bob", entry.AssignedToUserID)
	assert.Equal(t, "ready", entry.Notes)

	history, err := repo.ListHistory(ctx, "page-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "review", history[0].ToStateName)
	assert.Equal(t, "draft", history[0].FromStateName)
	assert.Zero(t, history[1].FromStateID)
	assert.Empty(t, history[1].FromStateName)
}

func TestContentWorkflowRepository_StaleFromStateWritesNothing(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewContentWorkflowRepository(database)
	ctx := context.Background()
	draft := seedState(t, database, "draft", true, false)
	review := seedState(t, database, "review", false, false)

	require.NoError(t, repo.Transition(ctx, &secondary.TransitionRecord{ContentID: "page-1", ToStateID: draft, UserID: "ann"}))
	require.NoError(t, repo.Transition(ctx, &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: draft, ToStateID: review, UserID: "ann"}))

	// A second writer that still believes the content is in draft loses.
	err := repo.Transition(ctx, &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: draft, ToStateID: review, UserID: "bob"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	n, err := repo.CountHistory(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Assigning a first state to content that already has one also loses.
	err = repo.Transition(ctx, &secondary.TransitionRecord{ContentID: "page-1", ToStateID: draft, UserID: "cat"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestContentWorkflowRepository_UnknownStateRollsBack(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewContentWorkflowRepository(database)
	ctx := context.Background()

	err := repo.Transition(ctx, &secondary.TransitionRecord{ContentID: "page-1", ToStateID: 42, UserID: "ann"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, err := repo.CountHistory(ctx, "page-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestContentWorkflowRepository_TransitionConsumesApprovalRequest(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewContentWorkflowRepository(database)
	approvals := sqlite.NewApprovalRepository(database)
	ctx := context.Background()
	review := seedState(t, database, "review", true, false)
	published := seedState(t, database, "published", false, false)
	require.NoError(t, repo.Transition(ctx, &secondary.TransitionRecord{ContentID: "page-1", ToStateID: review, UserID: "ann"}))

	wf := createTestGate(t, approvals)
	require.NoError(t, approvals.AddStep(ctx, &secondary.ApprovalStepRecord{
		ID: "s1", WorkflowID: wf.ID, Name: "editor", RequiredApprovals: 1, ApprovalLogic: "any"}))
	require.NoError(t, approvals.CreateRequest(ctx, &secondary.ApprovalRequestRecord{
		ID: "r1", ContentID: "page-1", WorkflowID: wf.ID, RequestedBy: "ann"}))
	require.NoError(t, approvals.CreateDecision(ctx, &secondary.ApprovalDecisionRecord{
		ID: "d1", RequestID: "r1", StepID: "s1", UserID: "bob", Decision: "approved"}))

	// The gate was evaluated before bob's decision landed.
	stale := &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: review, ToStateID: published, UserID: "ann",
		ApprovalRequestID: "r1", ApprovalDecisions: 0,
	}
	assert.ErrorIs(t, repo.Transition(ctx, stale), apperr.ErrConflict)
	n, err := repo.CountHistory(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	publish := &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: review, ToStateID: published, UserID: "ann",
		ApprovalRequestID: "r1", ApprovalDecisions: 1,
	}
	require.NoError(t, repo.Transition(ctx, publish))

	consumed, err := approvals.GetRequest(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, consumed.ConsumedAt)
	assert.Equal(t, publish.HistoryID, consumed.ConsumedBy)

	_, err = approvals.GetOpenRequest(ctx, "page-1", wf.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The same request cannot carry a second entry into the gated state.
	require.NoError(t, repo.Transition(ctx, &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: published, ToStateID: review, UserID: "ann"}))
	reuse := &secondary.TransitionRecord{
		ContentID: "page-1", ExpectedFromStateID: review, ToStateID: published, UserID: "ann",
		ApprovalRequestID: "r1", ApprovalDecisions: 1,
	}
	assert.ErrorIs(t, repo.Transition(ctx, reuse), apperr.ErrConflict)
	entry, err := repo.GetEntry(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, review, entry.WorkflowStateID)
}
