package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev domain.TaskEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type auditEntry struct {
	userID int64
	action string
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAuditor) Log(_ context.Context, userID int64, action, _ string, _ map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{userID: userID, action: action})
}

func (a *recordingAuditor) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.action == action {
			return true
		}
	}
	return false
}

// tickingClock returns strictly increasing timestamps.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	store    *repository.MemoryTaskRepository
	svc      *TaskService
	notifier *recordingNotifier
	audit    *recordingAuditor
}

func newFixture() *fixture {
	store := repository.NewMemoryTaskRepository()
	store.Now = tickingClock()
	n := &recordingNotifier{}
	a := &recordingAuditor{}
	return &fixture{
		store:    store,
		svc:      NewTaskService(store, TaskServiceConfig{PageSize: 4, Notifier: n, Audit: a}),
		notifier: n,
		audit:    a,
	}
}

func (f *fixture) create(t *testing.T, userID int64, in TaskInput) *domain.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("create %q: %v", in.Title, err)
	}
	return task
}

func TestCreateForcesIncompleteAndOwner(t *testing.T) {
	f := newFixture()
	task := f.create(t, 7, TaskInput{Title: "  Estudar React  ", Category: domain.CategoryStudy, Completed: true})

	if task.Completed {
		t.Fatalf("new tasks must start incomplete")
	}
	if task.CreatedBy != 7 {
		t.Fatalf("expected owner 7, got %d", task.CreatedBy)
	}
	if task.Title != "Estudar React" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.ID == "" {
		t.Fatalf("expected generated id")
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("expected default priority medium, got %s", task.Priority)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Before != nil {
		t.Fatalf("expected one insert event, got %+v", f.notifier.events)
	}
	if !f.audit.has(domain.AuditActionTaskCreate) {
		t.Fatalf("expected create audit entry")
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, TaskInput{Title: "   "})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["title"] == "" {
		t.Fatalf("expected title validation error, got %v", err)
	}

	if _, err := f.svc.Create(ctx, 0, TaskInput{Title: "x"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	f.create(t, 1, TaskInput{ID: "dup", Title: "x"})
	if _, err := f.svc.Create(ctx, 1, TaskInput{ID: "dup", Title: "y"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	f := newFixture()
	for i := 0; i < 10; i++ {
		f.create(t, 1, TaskInput{Title: fmt.Sprintf("task %02d", i), Category: domain.CategoryWork})
	}

	page, err := f.svc.List(context.Background(), 1, ListParams{Page: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 10 || page.TotalPages != 3 {
		t.Fatalf("expected 10 total in 3 pages, got %d/%d", page.Total, page.TotalPages)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on the last page, got %d", len(page.Items))
	}
	// default order is newest first, so the last page holds the oldest
	if page.Items[0].Title != "task 01" || page.Items[1].Title != "task 00" {
		t.Fatalf("unexpected last page %q, %q", page.Items[0].Title, page.Items[1].Title)
	}
	for _, task := range page.Items {
		if task.Notes != "" || task.Attachments != nil {
			t.Fatalf("list items must use the list projection")
		}
	}
}

func TestListHidesOthersPersonalTasks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.create(t, 1, TaskInput{ID: "mine", Title: "Mine", Category: domain.CategoryWork, IsPersonal: true})
	f.create(t, 2, TaskInput{ID: "theirs", Title: "Theirs", Category: domain.CategoryWork, IsPersonal: true})
	f.create(t, 2, TaskInput{ID: "shared", Title: "Shared", Category: domain.CategoryWork})

	page, err := f.svc.List(ctx, 1, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := map[string]bool{}
	for _, task := range page.Items {
		ids[task.ID] = true
	}
	if !ids["mine"] || !ids["shared"] || ids["theirs"] || page.Total != 2 {
		t.Fatalf("unexpected visible set %v total=%d", ids, page.Total)
	}

	if _, err := f.svc.Detail(ctx, 1, "theirs"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for another user's personal task, got %v", err)
	}
	task, err := f.svc.Detail(ctx, 2, "theirs")
	if err != nil || task.ID != "theirs" {
		t.Fatalf("owner should read own personal task, got %v", err)
	}

	if _, err := f.svc.List(ctx, 0, ListParams{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestListSearchAndCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.create(t, 1, TaskInput{Title: "Estudar React", Category: domain.CategoryStudy})
	f.create(t, 1, TaskInput{Title: "Streams", Description: "reactive programming", Category: domain.CategoryWork})
	f.create(t, 1, TaskInput{Title: "Gym", Category: domain.CategoryHealth})
	f.create(t, 1, TaskInput{Title: "react without category"})

	page, err := f.svc.List(ctx, 1, ListParams{Search: "react"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected title and description matches among categorized tasks, got %d", page.Total)
	}

	page, err = f.svc.List(ctx, 1, ListParams{Search: "react", Category: "study"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "Estudar React" {
		t.Fatalf("expected only the study task, got %+v", page.Items)
	}

	if _, err := f.svc.List(ctx, 1, ListParams{Category: "games"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown category, got %v", err)
	}
}

func TestRecentReturnsFiveNewestOwned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.create(t, 1, TaskInput{Title: fmt.Sprintf("mine %d", i)})
	}
	f.create(t, 2, TaskInput{Title: "someone else's"})

	recent, err := f.svc.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != RecentLimit {
		t.Fatalf("expected %d tasks, got %d", RecentLimit, len(recent))
	}
	for i, task := range recent {
		want := fmt.Sprintf("mine %d", 6-i)
		if task.Title != want {
			t.Fatalf("position %d: got %q, want %q", i, task.Title, want)
		}
		if task.Tags != nil || task.Notes != "" {
			t.Fatalf("recent must use the recent projection")
		}
	}
}

func TestUpdateByOwnerPublishesBeforeAndAfter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.create(t, 1, TaskInput{Title: "draft", Category: domain.CategoryWork})

	title := "final"
	updated, err := f.svc.Update(ctx, 1, task.ID, TaskPatchInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "final" || !updated.LastUpdate.After(task.LastUpdate) {
		t.Fatalf("unexpected update result %+v", updated)
	}

	ev := f.notifier.events[len(f.notifier.events)-1]
	if ev.Before == nil || ev.After == nil || ev.Before.Title != "draft" || ev.After.Title != "final" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestUpdateRejectsBlankRequiredFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.create(t, 1, TaskInput{Title: "draft", Category: domain.CategoryWork, Priority: domain.PriorityHigh})

	noPriority := domain.Priority("")
	if _, err := f.svc.Update(ctx, 1, task.ID, TaskPatchInput{Priority: &noPriority}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty priority, got %v", err)
	}

	// Validation runs before the ownership check.
	blank := "   "
	if _, err := f.svc.Update(ctx, 2, task.ID, TaskPatchInput{Title: &blank}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for non-owner blank title, got %v", err)
	}

	stored, _ := f.store.FindOne(ctx, domain.TaskFilter{ID: task.ID}, domain.ProjectionFull)
	if stored.Title != "draft" || stored.Priority != domain.PriorityHigh {
		t.Fatalf("store changed after rejected update: %+v", stored)
	}
}

func TestMutationsByNonOwnerAreRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shared := f.create(t, 1, TaskInput{Title: "shared", Category: domain.CategoryWork})
	private := f.create(t, 1, TaskInput{Title: "private", Category: domain.CategoryWork, IsPersonal: true})

	title := "hijacked"
	_, err := f.svc.Update(ctx, 2, shared.ID, TaskPatchInput{Title: &title})
	var aerr *domain.AuthorizationError
	if !errors.As(err, &aerr) || aerr.Action != domain.ActionUpdate {
		t.Fatalf("expected not authorized update, got %v", err)
	}

	err = f.svc.Remove(ctx, 2, private.ID)
	if !errors.As(err, &aerr) || aerr.Reason != "task is personal to its owner" {
		t.Fatalf("expected personal-task rejection, got %v", err)
	}

	if _, err := f.svc.ToggleComplete(ctx, 2, shared.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized toggle, got %v", err)
	}

	stored, _ := f.store.FindOne(ctx, domain.TaskFilter{ID: shared.ID}, domain.ProjectionFull)
	if stored.Title != "shared" {
		t.Fatalf("store changed after rejected update")
	}
	if !f.audit.has(domain.AuditActionTaskDenied) {
		t.Fatalf("expected denied audit entry")
	}

	if err := f.svc.Remove(ctx, 1, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleAndRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.create(t, 1, TaskInput{Title: "toggle me"})

	toggled, err := f.svc.ToggleComplete(ctx, 1, task.ID)
	if err != nil || !toggled.Completed {
		t.Fatalf("expected completed after toggle, err=%v", err)
	}
	toggled, err = f.svc.ToggleComplete(ctx, 1, task.ID)
	if err != nil || toggled.Completed {
		t.Fatalf("expected incomplete after second toggle, err=%v", err)
	}

	if err := f.svc.Remove(ctx, 1, task.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.svc.Detail(ctx, 1, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	ev := f.notifier.events[len(f.notifier.events)-1]
	if ev.After != nil || ev.Before == nil || ev.Before.ID != task.ID {
		t.Fatalf("expected removal event, got %+v", ev)
	}
}

// racingStore removes the task between the ownership check and the write.
type racingStore struct {
	*repository.MemoryTaskRepository
}

func (s racingStore) Update(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) (*domain.Task, error) {
	_, _ = s.MemoryTaskRepository.Remove(ctx, domain.TaskFilter{ID: filter.ID})
	return s.MemoryTaskRepository.Update(ctx, filter, patch)
}

func TestUpdateRacingRemovalIsNotAuthorized(t *testing.T) {
	mem := repository.NewMemoryTaskRepository()
	svc := NewTaskService(racingStore{mem}, TaskServiceConfig{})
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, TaskInput{Title: "short-lived"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	title := "late"
	_, err = svc.Update(ctx, 1, task.ID, TaskPatchInput{Title: &title})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
}

func TestSampleTasks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	n, err := f.svc.CreateSampleTasks(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 sample tasks, got %d err=%v", n, err)
	}
	n, err = f.svc.CreateSampleTasks(ctx, 1)
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op, got %d err=%v", n, err)
	}

	f.create(t, 1, TaskInput{Title: "extra"})
	n, err = f.svc.ResetSampleTasks(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("reset: n=%d err=%v", n, err)
	}
	total, _ := f.store.Count(ctx, RecentFilter(1))
	if total != 2 {
		t.Fatalf("expected 2 tasks after reset, got %d", total)
	}

	page, err := f.svc.List(ctx, 1, ListParams{Search: "react"})
	if err != nil || page.Total != 1 {
		t.Fatalf("expected the React sample to be searchable, total=%v err=%v", page, err)
	}
}
