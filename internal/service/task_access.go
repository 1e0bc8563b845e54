package service

import (
	"context"
	"errors"
	"fmt"

	"todo_webapp/internal/domain"
)

// TaskFinder is the read side of the task store used for authorization.
type TaskFinder interface {
	FindOne(ctx context.Context, filter domain.TaskFilter, projection domain.Projection) (*domain.Task, error)
}

// VisibilityFilter returns base restricted to the records userID may read:
// base AND (is_personal != true OR created_by == userID).
func VisibilityFilter(base domain.TaskFilter, userID int64) (domain.TaskFilter, error) {
	if userID <= 0 {
		return domain.TaskFilter{}, domain.ErrUnauthenticated
	}
	uid := userID
	base.VisibleTo = &uid
	return base, nil
}

// AuthorizeMutation checks that userID owns the task before it is changed
// or removed and returns the record as read at check time.
// The check and the following write are separate statements; callers treat
// a NotFound from the write as NotAuthorized.
func AuthorizeMutation(ctx context.Context, store TaskFinder, taskID string, userID int64, action string) (*domain.Task, error) {
	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if action != domain.ActionUpdate && action != domain.ActionDelete {
		return nil, fmt.Errorf("authorize %q: unknown action", action)
	}
	if taskID == "" {
		return nil, fmt.Errorf("authorize %s: %w", action, domain.ErrNotFound)
	}

	task, err := store.FindOne(ctx, domain.TaskFilter{ID: taskID}, domain.ProjectionFull)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("authorize %s: %w", action, domain.ErrNotFound)
		}
		return nil, err
	}

	if task.CreatedBy != userID {
		if task.IsPersonal {
			return nil, &domain.AuthorizationError{Action: action, Reason: "task is personal to its owner"}
		}
		return nil, &domain.AuthorizationError{Action: action, Reason: "only the task owner can " + action + " it"}
	}
	return task, nil
}
