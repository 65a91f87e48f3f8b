package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/verflow/internal/ports/primary"
)

// mockAuditService implements primary.AuditService for testing
type mockAuditService struct {
	entries     []*primary.AuditEntry
	lastFilters primary.AuditFilters
	pruneErr    error
}

func (m *mockAuditService) ListEntries(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	m.lastFilters = filters
	return m.entries, nil
}

func (m *mockAuditService) PruneEntries(ctx context.Context, olderThanDays int) (int, error) {
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	return 5, nil
}

func TestAuditAdapter_List(t *testing.T) {
	mock := &mockAuditService{entries: []*primary.AuditEntry{
		{ActorID: "alice", EntityType: "branch", EntityID: "b-1", Action: "update", FieldName: "is_protected", OldValue: "false", NewValue: "true"},
		{EntityType: "version", EntityID: "v-1", Action: "create"},
	}}
	var buf bytes.Buffer
	adapter := NewAuditAdapter(mock, &buf)

	err := adapter.List(context.Background(), primary.AuditFilters{EntityType: "branch", Limit: 10})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mock.lastFilters.EntityType != "branch" || mock.lastFilters.Limit != 10 {
		t.Errorf("unexpected filters %+v", mock.lastFilters)
	}
	if !strings.Contains(buf.String(), "is_protected: false → true") {
		t.Errorf("expected field change, got '%s'", buf.String())
	}
	if !strings.Contains(buf.String(), "version/v-1") {
		t.Errorf("expected entity column, got '%s'", buf.String())
	}
}

func TestAuditAdapter_List_Empty(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewAuditAdapter(&mockAuditService{}, &buf)

	if err := adapter.List(context.Background(), primary.AuditFilters{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "No audit entries found") {
		t.Errorf("expected empty message, got '%s'", buf.String())
	}
}

func TestAuditAdapter_Prune(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewAuditAdapter(&mockAuditService{}, &buf)

	if err := adapter.Prune(context.Background(), 90); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Pruned 5 audit entries older than 90 days") {
		t.Errorf("expected prune message, got '%s'", buf.String())
	}

	adapter = NewAuditAdapter(&mockAuditService{pruneErr: errors.New("days must be at least 1")}, &buf)
	if err := adapter.Prune(context.Background(), 0); err == nil {
		t.Error("expected error, got nil")
	}
}
