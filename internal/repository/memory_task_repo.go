package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todo_webapp/internal/domain"
)

// MemoryTaskRepository keeps tasks in a map and evaluates filters, sorting
// and projections with the domain rules. It backs tests and local runs
// without PostgreSQL.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	// Now stamps created_at / last_update. Tests replace it for ordering.
	Now func() time.Time
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]*domain.Task),
		Now:   time.Now,
	}
}

func (r *MemoryTaskRepository) Insert(ctx context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return fmt.Errorf("insert task: %w", domain.ErrConflict)
	}
	ts := r.Now().UTC()
	t.CreatedAt = ts
	t.LastUpdate = ts
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first *domain.Task
	for _, t := range r.sorted(filter, domain.Sort{}) {
		patch.Apply(t)
		t.LastUpdate = r.Now().UTC()
		if first == nil {
			first = t.Clone()
		}
	}
	if first == nil {
		return nil, fmt.Errorf("update task: %w", domain.ErrNotFound)
	}
	return first, nil
}

func (r *MemoryTaskRepository) Remove(ctx context.Context, filter domain.TaskFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.tasks {
		if filter.Matches(t) {
			delete(r.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryTaskRepository) Find(ctx context.Context, filter domain.TaskFilter, opts domain.FindOptions) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.sorted(filter, opts.Sort)
	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*domain.Task, 0, len(matched))
	for _, t := range matched {
		out = append(out, domain.Project(t, opts.Projection))
	}
	return out, nil
}

func (r *MemoryTaskRepository) FindOne(ctx context.Context, filter domain.TaskFilter, projection domain.Projection) (*domain.Task, error) {
	tasks, err := r.Find(ctx, filter, domain.FindOptions{Limit: 1, Projection: projection})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("find task: %w", domain.ErrNotFound)
	}
	return tasks[0], nil
}

func (r *MemoryTaskRepository) Count(ctx context.Context, filter domain.TaskFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, t := range r.tasks {
		if filter.Matches(t) {
			n++
		}
	}
	return n, nil
}

// sorted returns the stored records matching filter. Callers hold the lock.
func (r *MemoryTaskRepository) sorted(filter domain.TaskFilter, s domain.Sort) []*domain.Task {
	var matched []*domain.Task
	for _, t := range r.tasks {
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return s.Less(matched[i], matched[j])
	})
	return matched
}
