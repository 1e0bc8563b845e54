package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/http/middleware"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

func setupRouter(t *testing.T) (*gin.Engine, *repository.MemoryTaskRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("test-secret", time.Hour)

	store := repository.NewMemoryTaskRepository()
	h := NewHandler(service.NewTaskService(store, service.TaskServiceConfig{PageSize: 4}), nil, nil)

	r := gin.New()
	tasks := r.Group("/tasks", middleware.JWT())
	tasks.GET("", h.ListTasks)
	tasks.GET("/count", h.CountTasks)
	tasks.GET("/recent", h.RecentTasks)
	tasks.GET("/:id", h.GetTask)
	tasks.POST("", h.CreateTask)
	tasks.PUT("/:id", h.ReplaceTask)
	tasks.PATCH("/:id", h.PatchTask)
	tasks.PATCH("/:id/complete", h.CompleteTask)
	tasks.DELETE("/:id", h.DeleteTask)
	r.POST("/fixtures/sample-tasks", middleware.JWT(), h.CreateSampleTasks)
	return r, store
}

func do(t *testing.T, r http.Handler, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID > 0 {
		token, err := service.GenerateJWT(userID)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestTasksRequireToken(t *testing.T) {
	r, _ := setupRouter(t)
	w := do(t, r, http.MethodGet, "/tasks", 0, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateAndReadTask(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/tasks", 1, `{"id":"t1","title":"Estudar React","category":"study","priority":"high","notes":"hooks","completed":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[domain.Task](t, w)
	if created.Completed || created.CreatedBy != 1 {
		t.Fatalf("unexpected created task %+v", created)
	}

	w = do(t, r, http.MethodGet, "/tasks/t1", 2, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[domain.Task](t, w); got.Notes != "hooks" {
		t.Fatalf("detail should include notes, got %+v", got)
	}

	w = do(t, r, http.MethodGet, "/tasks?search=react", 2, "")
	page := decode[domain.TaskPage](t, w)
	if page.Total != 1 || page.Items[0].Notes != "" {
		t.Fatalf("unexpected list page %+v", page)
	}

	w = do(t, r, http.MethodPost, "/tasks", 1, `{"id":"t1","title":"again"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate id, got %d", w.Code)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/tasks", 1, `{"title":"","priority":"urgent"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	if body.Fields["title"] == "" || body.Fields["priority"] == "" {
		t.Fatalf("expected field errors, got %v", body.Fields)
	}

	w = do(t, r, http.MethodPost, "/tasks", 1, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/tasks?page=abc", 1, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", w.Code)
	}
}

func TestPersonalTaskAccess(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/tasks", 1, `{"id":"diary","title":"Diary","category":"personal","is_personal":true}`)

	if w := do(t, r, http.MethodGet, "/tasks/diary", 2, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's personal task, got %d", w.Code)
	}

	w := do(t, r, http.MethodDelete, "/tasks/diary", 2, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["reason"] != "task is personal to its owner" {
		t.Fatalf("unexpected reason %v", body)
	}

	if w := do(t, r, http.MethodDelete, "/tasks/diary", 1, ""); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: expected 204, got %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, "/tasks/diary", 1, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestUpdateAndToggle(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/tasks", 1, `{"id":"t1","title":"draft","category":"work","tags":["a"],"due_date":"2030-01-01T00:00:00Z"}`)

	w := do(t, r, http.MethodPatch, "/tasks/t1", 1, `{"title":"final","due_date":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	patched := decode[domain.Task](t, w)
	if patched.Title != "final" || patched.DueDate != nil || len(patched.Tags) != 1 {
		t.Fatalf("unexpected patch result %+v", patched)
	}

	w = do(t, r, http.MethodPut, "/tasks/t1", 1, `{"title":"replaced"}`)
	replaced := decode[domain.Task](t, w)
	if w.Code != http.StatusOK || replaced.Title != "replaced" || len(replaced.Tags) != 0 || replaced.Category != "" {
		t.Fatalf("put should overwrite every field, got %d %+v", w.Code, replaced)
	}

	w = do(t, r, http.MethodPatch, "/tasks/t1/complete", 1, "")
	if toggled := decode[domain.Task](t, w); !toggled.Completed {
		t.Fatalf("expected completed after toggle")
	}

	if w := do(t, r, http.MethodPatch, "/tasks/t1", 2, `{"title":"mine now"}`); w.Code != http.StatusForbidden {
		t.Fatalf("non-owner patch: expected 403, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPatch, "/tasks/t1", 1, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPut, "/tasks/t1", 1, `{"title":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank put title: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPatch, "/tasks/t1", 2, `{"title":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank patch title from non-owner: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPatch, "/tasks/t1", 1, `{"priority":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty priority: expected 400, got %d", w.Code)
	}
}

func TestRecentCountAndFixtures(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/fixtures/sample-tasks", 1, "")
	if body := decode[map[string]int](t, w); body["created"] != 2 {
		t.Fatalf("expected 2 sample tasks, got %v", body)
	}

	w = do(t, r, http.MethodGet, "/tasks/recent", 1, "")
	recent := decode[struct {
		Items []domain.Task `json:"items"`
	}](t, w)
	if len(recent.Items) != 2 {
		t.Fatalf("expected 2 recent tasks, got %d", len(recent.Items))
	}

	w = do(t, r, http.MethodGet, "/tasks/count?category=health", 2, "")
	count := decode[map[string]int](t, w)
	if count["total"] != 1 || count["total_pages"] != 1 {
		t.Fatalf("unexpected count %v", count)
	}

	if w := do(t, r, http.MethodGet, "/tasks/count?category=games", 2, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown category: expected 400, got %d", w.Code)
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := getUserID(c); ok {
		t.Fatalf("expected no user id on a fresh context")
	}
	c.Set("user_id", int64(5))
	if id, ok := getUserID(c); !ok || id != 5 {
		t.Fatalf("expected 5, got %d %v", id, ok)
	}
	c.Set("user_id", float64(6))
	if id, ok := getUserID(c); !ok || id != 6 {
		t.Fatalf("expected 6 from a float claim, got %d %v", id, ok)
	}
	c.Set("user_id", "7")
	if _, ok := getUserID(c); ok {
		t.Fatalf("string user id must be rejected")
	}
}
