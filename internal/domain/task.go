package domain

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Category is empty when a task has no category.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryFinance  Category = "finance"
)

var Categories = []Category{CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth, CategoryFinance}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// rank orders priorities for sorting: high before medium before low.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Attachment is an opaque reference to an uploaded file. Storage is external.
type Attachment struct {
	Name        string `json:"name"`
	Ref         string `json:"ref"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

type Task struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description,omitempty"`
	Priority    Priority     `db:"priority" json:"priority,omitempty"`
	Category    Category     `db:"category" json:"category,omitempty"`
	DueDate     *time.Time   `db:"due_date" json:"due_date,omitempty"`
	Completed   bool         `db:"completed" json:"completed"`
	Tags        []string     `db:"tags" json:"tags,omitempty"`
	Notes       string       `db:"notes" json:"notes,omitempty"`
	Attachments []Attachment `db:"attachments" json:"attachments,omitempty"`
	IsPersonal  bool         `db:"is_personal" json:"is_personal"`
	CreatedBy   int64        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at,omitempty"`
	LastUpdate  time.Time    `db:"last_update" json:"last_update,omitempty"`
}

// Clone returns a deep copy so callers can hold a snapshot of a record.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Attachments != nil {
		c.Attachments = append([]Attachment(nil), t.Attachments...)
	}
	return &c
}

// TaskPatch is a partial document. Nil fields are left untouched.
// ID and CreatedBy are not patchable.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Category    *Category
	DueDate     **time.Time
	Completed   *bool
	Tags        *[]string
	Notes       *string
	Attachments *[]Attachment
	IsPersonal  *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Category == nil &&
		p.DueDate == nil && p.Completed == nil && p.Tags == nil && p.Notes == nil &&
		p.Attachments == nil && p.IsPersonal == nil
}

// Apply writes the patch onto t in place.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Attachments != nil {
		t.Attachments = append([]Attachment(nil), (*p.Attachments)...)
	}
	if p.IsPersonal != nil {
		t.IsPersonal = *p.IsPersonal
	}
}

// TaskPage is one window of a list query plus the total for the same filter.
type TaskPage struct {
	Items      []*Task `json:"items"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Task mutation actions checked by authorization.
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// TaskEvent describes one mutation. Before is nil for inserts and After is
// nil for removals.
type TaskEvent struct {
	Before *Task `json:"before,omitempty"`
	After  *Task `json:"after,omitempty"`
}

func (e TaskEvent) TaskID() string {
	if e.After != nil {
		return e.After.ID
	}
	if e.Before != nil {
		return e.Before.ID
	}
	return ""
}
