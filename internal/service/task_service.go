package service

import (
	"context"
	"errors"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"

	"github.com/google/uuid"
)

// TaskStore is the persistence collaborator for tasks.
type TaskStore interface {
	TaskFinder
	Insert(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) (*domain.Task, error)
	Remove(ctx context.Context, filter domain.TaskFilter) (int64, error)
	Find(ctx context.Context, filter domain.TaskFilter, opts domain.FindOptions) ([]*domain.Task, error)
	Count(ctx context.Context, filter domain.TaskFilter) (int64, error)
}

// TaskNotifier receives every committed task mutation.
type TaskNotifier interface {
	Publish(ctx context.Context, ev domain.TaskEvent)
}

// Auditor records user actions.
type Auditor interface {
	Log(ctx context.Context, userID int64, action, category string, details map[string]interface{})
}

type TaskServiceConfig struct {
	PageSize int
	Notifier TaskNotifier
	Audit    Auditor
}

// TaskService exposes the task operations to the transport layer. Every
// call takes the requesting user id explicitly.
type TaskService struct {
	store    TaskStore
	notifier TaskNotifier
	audit    Auditor
	pageSize int
	newID    func() string
}

func NewTaskService(store TaskStore, cfg TaskServiceConfig) *TaskService {
	s := &TaskService{
		store:    store,
		notifier: cfg.Notifier,
		audit:    cfg.Audit,
		pageSize: cfg.PageSize,
		newID:    uuid.NewString,
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	return s
}

func (s *TaskService) PageSize() int { return s.pageSize }

// List returns one page of the tasks visible to userID plus the total
// count for the same effective filter.
func (s *TaskService) List(ctx context.Context, userID int64, params ListParams) (page *domain.TaskPage, err error) {
	defer func() { observe("list", err) }()

	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	q, err := BuildListQuery(params, s.pageSize)
	if err != nil {
		return nil, err
	}
	filter, err := VisibilityFilter(q.Filter, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Find(ctx, filter, domain.FindOptions{
		Sort:       q.Sort,
		Skip:       q.Skip,
		Limit:      q.Limit,
		Projection: domain.ProjectionList,
	})
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Task{}
	}

	return &domain.TaskPage{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.Limit,
		TotalPages: domain.TotalPages(total, q.Limit),
	}, nil
}

// Count returns how many tasks matching base are visible to userID.
func (s *TaskService) Count(ctx context.Context, userID int64, base domain.TaskFilter) (int64, error) {
	filter, err := VisibilityFilter(base, userID)
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, filter)
}

// Detail returns a single visible task. Personal tasks of other users are
// reported as not found.
func (s *TaskService) Detail(ctx context.Context, userID int64, id string) (task *domain.Task, err error) {
	defer func() { observe("detail", err) }()

	filter, err := VisibilityFilter(domain.TaskFilter{ID: id}, userID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.store.FindOne(ctx, filter, domain.ProjectionDetail)
}

// Recent returns the owner's most recently touched tasks.
func (s *TaskService) Recent(ctx context.Context, userID int64) (tasks []*domain.Task, err error) {
	defer func() { observe("recent", err) }()

	filter, err := VisibilityFilter(RecentFilter(userID), userID)
	if err != nil {
		return nil, err
	}
	tasks, err = s.store.Find(ctx, filter, domain.FindOptions{
		Sort:       domain.DefaultSort,
		Limit:      RecentLimit,
		Projection: domain.ProjectionRecent,
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// Create stores a new task owned by userID. New tasks always start
// incomplete whatever the client sent.
func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (task *domain.Task, err error) {
	defer func() { observe("create", err) }()

	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := ValidateTaskInput(&in); err != nil {
		return nil, err
	}

	task = in.toTask()
	task.Completed = false
	task.CreatedBy = userID
	if task.ID == "" {
		task.ID = s.newID()
	}

	if err := s.store.Insert(ctx, task); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TaskEvent{After: task.Clone()})
	s.log(ctx, userID, domain.AuditActionTaskCreate, task.ID, nil)
	logger.WithContext(ctx).Info("task created", "task_id", task.ID, "user_id", userID)

	return domain.Project(task, domain.ProjectionDetail), nil
}

// Update applies a full or partial document to a task owned by userID.
func (s *TaskService) Update(ctx context.Context, userID int64, id string, in TaskPatchInput) (task *domain.Task, err error) {
	defer func() { observe("update", err) }()

	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := ValidateTaskPatch(&in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, id, domain.AuditActionTaskUpdate, func(*domain.Task) domain.TaskPatch {
		return in.toPatch()
	})
}

// ToggleComplete flips the completed flag of a task owned by userID.
func (s *TaskService) ToggleComplete(ctx context.Context, userID int64, id string) (task *domain.Task, err error) {
	defer func() { observe("toggle", err) }()

	return s.mutate(ctx, userID, id, domain.AuditActionTaskToggle, func(before *domain.Task) domain.TaskPatch {
		completed := !before.Completed
		return domain.TaskPatch{Completed: &completed}
	})
}

func (s *TaskService) mutate(ctx context.Context, userID int64, id, auditAction string, build func(before *domain.Task) domain.TaskPatch) (*domain.Task, error) {
	before, err := AuthorizeMutation(ctx, s.store, id, userID, domain.ActionUpdate)
	if err != nil {
		s.denied(ctx, userID, id, domain.ActionUpdate, err)
		return nil, err
	}

	uid := userID
	after, err := s.store.Update(ctx, domain.TaskFilter{ID: id, CreatedBy: &uid}, build(before))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.AuthorizationError{Action: domain.ActionUpdate, Reason: "task was changed or removed"}
		}
		return nil, err
	}

	s.publish(ctx, domain.TaskEvent{Before: before, After: after.Clone()})
	s.log(ctx, userID, auditAction, id, map[string]interface{}{"completed": after.Completed})

	return domain.Project(after, domain.ProjectionDetail), nil
}

// Remove deletes a task owned by userID.
func (s *TaskService) Remove(ctx context.Context, userID int64, id string) (err error) {
	defer func() { observe("remove", err) }()

	before, err := AuthorizeMutation(ctx, s.store, id, userID, domain.ActionDelete)
	if err != nil {
		s.denied(ctx, userID, id, domain.ActionDelete, err)
		return err
	}

	uid := userID
	n, err := s.store.Remove(ctx, domain.TaskFilter{ID: id, CreatedBy: &uid})
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.AuthorizationError{Action: domain.ActionDelete, Reason: "task was changed or removed"}
	}

	s.publish(ctx, domain.TaskEvent{Before: before})
	s.log(ctx, userID, domain.AuditActionTaskRemove, id, map[string]interface{}{"title": before.Title})
	logger.WithContext(ctx).Info("task removed", "task_id", id, "user_id", userID)
	return nil
}

// removeOwned deletes every task of userID, publishing one event per task.
func (s *TaskService) removeOwned(ctx context.Context, userID int64) (int64, error) {
	owned := RecentFilter(userID)
	tasks, err := s.store.Find(ctx, owned, domain.FindOptions{Projection: domain.ProjectionFull})
	if err != nil {
		return 0, err
	}
	n, err := s.store.Remove(ctx, owned)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		s.publish(ctx, domain.TaskEvent{Before: t})
	}
	return n, nil
}

func (s *TaskService) denied(ctx context.Context, userID int64, id, action string, err error) {
	if !errors.Is(err, domain.ErrNotAuthorized) {
		return
	}
	s.log(ctx, userID, domain.AuditActionTaskDenied, id, map[string]interface{}{
		"action": action,
		"reason": err.Error(),
	})
	logger.WithContext(ctx).Warn("task mutation denied", "task_id", id, "user_id", userID, "action", action)
}

func (s *TaskService) publish(ctx context.Context, ev domain.TaskEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, ev)
}

func (s *TaskService) log(ctx context.Context, userID int64, action, taskID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if details == nil {
		details = make(map[string]interface{})
	}
	details["task_id"] = taskID
	s.audit.Log(ctx, userID, action, domain.AuditCategoryTask, details)
}
