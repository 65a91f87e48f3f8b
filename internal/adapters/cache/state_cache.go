// Package cache contains caching decorators for secondary ports.
package cache

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/verflow/internal/ports/secondary"
)

// StateRepository decorates a secondary.WorkflowStateRepository with an
// LRU cache for single-state lookups. States are rarely written, so Create
// simply purges the cache.
type StateRepository struct {
	next  secondary.WorkflowStateRepository
	cache *lru.Cache[string, *secondary.WorkflowStateRecord]
}

// NewStateRepository wraps next with a cache holding up to size states.
func NewStateRepository(next secondary.WorkflowStateRepository, size int) (*StateRepository, error) {
	c, err := lru.New[string, *secondary.WorkflowStateRecord](size)
	if err != nil {
		return nil, err
	}
	return &StateRepository{next: next, cache: c}, nil
}

const initialKey = "initial"

func idKey(id int64) string { return "id:" + strconv.FormatInt(id, 10) }

func nameKey(name string) string { return "name:" + name }

// Create persists a new state and drops every cached entry.
func (r *StateRepository) Create(ctx context.Context, state *secondary.WorkflowStateRecord) error {
	if err := r.next.Create(ctx, state); err != nil {
		return err
	}
	r.cache.Purge()
	return nil
}

// GetByID retrieves a state by ID.
func (r *StateRepository) GetByID(ctx context.Context, id int64) (*secondary.WorkflowStateRecord, error) {
	return r.lookup(idKey(id), func() (*secondary.WorkflowStateRecord, error) {
		return r.next.GetByID(ctx, id)
	})
}

// GetByName retrieves a state by name.
func (r *StateRepository) GetByName(ctx context.Context, name string) (*secondary.WorkflowStateRecord, error) {
	return r.lookup(nameKey(name), func() (*secondary.WorkflowStateRecord, error) {
		return r.next.GetByName(ctx, name)
	})
}

// GetInitial retrieves the initial state.
func (r *StateRepository) GetInitial(ctx context.Context) (*secondary.WorkflowStateRecord, error) {
	return r.lookup(initialKey, func() (*secondary.WorkflowStateRecord, error) {
		return r.next.GetInitial(ctx)
	})
}

// List is not cached.
func (r *StateRepository) List(ctx context.Context) ([]*secondary.WorkflowStateRecord, error) {
	return r.next.List(ctx)
}

// Len reports the number of cached entries.
func (r *StateRepository) Len() int {
	return r.cache.Len()
}

// lookup returns a copy so callers cannot mutate cached records. Misses and
// errors are not cached.
func (r *StateRepository) lookup(key string, load func() (*secondary.WorkflowStateRecord, error)) (*secondary.WorkflowStateRecord, error) {
	if rec, ok := r.cache.Get(key); ok {
		cp := *rec
		return &cp, nil
	}
	rec, err := load()
	if err != nil {
		return nil, err
	}
	stored := *rec
	r.cache.Add(key, &stored)
	return rec, nil
}

var _ secondary.WorkflowStateRepository = (*StateRepository)(nil)
