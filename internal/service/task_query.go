package service

import (
	"fmt"
	"strings"

	"todo_webapp/internal/domain"
)

const (
	DefaultPageSize = 4
	MaxPageSize     = 100
	RecentLimit     = 5
)

// ListParams is the UI state of a list view. Callers reset Page to 0 when
// Search or Category change.
type ListParams struct {
	Search   string
	Category string
	// SortField empty keeps the default order.
	SortField string
	SortDesc  bool
	Page      int
	PageSize  int
}

// ListQuery is what a list read executes: the caller filter (before
// visibility), the order and the window.
type ListQuery struct {
	Filter domain.TaskFilter
	Sort   domain.Sort
	Skip   int
	Limit  int
	Page   int
}

// BuildListQuery translates list view state into a query. defaultPageSize
// applies when p.PageSize is not positive.
func BuildListQuery(p ListParams, defaultPageSize int) (ListQuery, error) {
	var q ListQuery

	if search := strings.TrimSpace(p.Search); search != "" {
		q.Filter.Search = search
	}

	if category := strings.TrimSpace(p.Category); category != "" {
		c := domain.Category(strings.ToLower(category))
		if !c.Valid() {
			return ListQuery{}, domain.NewValidationError("category", "unknown category")
		}
		q.Filter.Category = c
	} else {
		q.Filter.CategorySet = true
	}

	q.Sort = domain.DefaultSort
	if p.SortField != "" {
		f := domain.SortField(p.SortField)
		if !f.Valid() {
			return ListQuery{}, domain.NewValidationError("sort", "unsupported sort field")
		}
		q.Sort = domain.Sort{{Field: f, Desc: p.SortDesc}}
		for _, k := range domain.DefaultSort {
			if k.Field != f {
				q.Sort = append(q.Sort, k)
			}
		}
	}

	size := p.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := p.Page
	if page < 0 {
		page = 0
	}

	q.Page = page
	q.Limit = size
	q.Skip = page * size
	return q, nil
}

// RecentFilter selects the owner's own tasks for the recent view.
func RecentFilter(userID int64) domain.TaskFilter {
	uid := userID
	return domain.TaskFilter{CreatedBy: &uid}
}

// String renders the params for logs.
func (p ListParams) String() string {
	return fmt.Sprintf("search=%q category=%q sort=%s desc=%t page=%d size=%d",
		p.Search, p.Category, p.SortField, p.SortDesc, p.Page, p.PageSize)
}
