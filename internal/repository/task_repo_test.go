package repository

import (
	"strings"
	"testing"

	"todo_webapp/internal/domain"
)

func TestBuildTaskWhere(t *testing.T) {
	uid := int64(7)
	done := false
	where, args := buildTaskWhere(domain.TaskFilter{
		ID:          "t1",
		Search:      "50%_off",
		CategorySet: true,
		Completed:   &done,
		VisibleTo:   &uid,
	}, nil)

	want := " WHERE id = $1 AND (title ILIKE $2 OR description ILIKE $2) AND (category IS NOT NULL AND category <> '') AND completed = $3 AND (is_personal IS NOT TRUE OR created_by = $4)"
	if where != want {
		t.Fatalf("got  %q\nwant %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %v", args)
	}
	if args[1] != `%50\%\_off%` {
		t.Fatalf("search must be escaped, got %v", args[1])
	}
}

func TestBuildTaskWhereContinuesPlaceholders(t *testing.T) {
	where, args := buildTaskWhere(domain.TaskFilter{Category: domain.CategoryWork}, []any{"x", "y"})
	if where != " WHERE category = $3" || len(args) != 3 {
		t.Fatalf("unexpected %q %v", where, args)
	}

	where, args = buildTaskWhere(domain.TaskFilter{}, nil)
	if where != "" || len(args) != 0 {
		t.Fatalf("empty filter should render nothing, got %q", where)
	}
}

func TestBuildOrderBy(t *testing.T) {
	got := buildOrderBy(domain.DefaultSort)
	if got != " ORDER BY last_update DESC, created_at DESC, id ASC" {
		t.Fatalf("unexpected default order %q", got)
	}

	got = buildOrderBy(domain.Sort{{Field: domain.SortPriority}, {Field: "password"}})
	if !strings.HasPrefix(got, " ORDER BY CASE priority") || strings.Contains(got, "password") {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestMemoryRepositoryMatchesFilterSemantics(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := t.Context()
	uid := int64(1)
	_ = repo.Insert(ctx, &domain.Task{ID: "a", Title: "A", CreatedBy: 1, IsPersonal: true})
	_ = repo.Insert(ctx, &domain.Task{ID: "b", Title: "B", CreatedBy: 2, IsPersonal: true})
	_ = repo.Insert(ctx, &domain.Task{ID: "c", Title: "C", CreatedBy: 2})

	n, err := repo.Count(ctx, domain.TaskFilter{VisibleTo: &uid})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 visible, got %d err=%v", n, err)
	}

	removed, _ := repo.Remove(ctx, domain.TaskFilter{CreatedBy: &uid})
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	page, _ := repo.Find(ctx, domain.TaskFilter{}, domain.FindOptions{Sort: domain.Sort{{Field: domain.SortTitle}}, Skip: 1, Limit: 5})
	if len(page) != 1 || page[0].ID != "c" {
		t.Fatalf("unexpected page %+v", page)
	}
}
