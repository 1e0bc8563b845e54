package domain

import (
	"strings"
)

// TaskFilter is a conjunction of field constraints. Zero values mean the
// constraint is not applied.
type TaskFilter struct {
	ID        string
	CreatedBy *int64
	// Search is a case-insensitive substring matched against title OR description.
	Search string
	// Category is an exact match; CategorySet only requires a category to be present.
	Category    Category
	CategorySet bool
	Completed   *bool
	// VisibleTo restricts results to records the user may read:
	// is_personal != true OR created_by == *VisibleTo.
	VisibleTo *int64
}

// Matches evaluates the filter against a record in memory. Stores that
// translate the filter to SQL must agree with it.
func (f TaskFilter) Matches(t *Task) bool {
	if t == nil {
		return false
	}
	if f.ID != "" && t.ID != f.ID {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.CategorySet && t.Category == "" {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.VisibleTo != nil && t.IsPersonal && t.CreatedBy != *f.VisibleTo {
		return false
	}
	return true
}

type SortField string

const (
	SortTitle      SortField = "title"
	SortPriority   SortField = "priority"
	SortDueDate    SortField = "due_date"
	SortCreatedAt  SortField = "created_at"
	SortLastUpdate SortField = "last_update"
)

func (f SortField) Valid() bool {
	switch f {
	case SortTitle, SortPriority, SortDueDate, SortCreatedAt, SortLastUpdate:
		return true
	}
	return false
}

type SortKey struct {
	Field SortField
	Desc  bool
}

type Sort []SortKey

// DefaultSort is most-recently-updated first, then most-recently-created.
var DefaultSort = Sort{
	{Field: SortLastUpdate, Desc: true},
	{Field: SortCreatedAt, Desc: true},
}

// Less reports whether a sorts before b. Ties fall back to id so the order
// is total.
func (s Sort) Less(a, b *Task) bool {
	for _, k := range s {
		c := compareField(k.Field, a, b)
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.ID < b.ID
}

func compareField(f SortField, a, b *Task) int {
	switch f {
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortPriority:
		return a.Priority.rank() - b.Priority.rank()
	case SortDueDate:
		// unset due dates sort last ascending
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortLastUpdate:
		return a.LastUpdate.Compare(b.LastUpdate)
	}
	return 0
}

// Projection is the set of fields a read may return.
type Projection string

const (
	ProjectionList   Projection = "list"
	ProjectionDetail Projection = "detail"
	ProjectionRecent Projection = "recent"
	// ProjectionFull is internal only: authorization and event images.
	ProjectionFull Projection = "full"
)

// Field names, identical to the column names.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldCategory    = "category"
	FieldDueDate     = "due_date"
	FieldCompleted   = "completed"
	FieldTags        = "tags"
	FieldNotes       = "notes"
	FieldAttachments = "attachments"
	FieldIsPersonal  = "is_personal"
	FieldCreatedBy   = "created_by"
	FieldCreatedAt   = "created_at"
	FieldLastUpdate  = "last_update"
)

var projectionFields = map[Projection][]string{
	ProjectionList: {
		FieldID, FieldTitle, FieldDescription, FieldPriority, FieldCategory, FieldDueDate,
		FieldCompleted, FieldTags, FieldIsPersonal, FieldCreatedBy, FieldCreatedAt, FieldLastUpdate,
	},
	ProjectionDetail: {
		FieldID, FieldTitle, FieldDescription, FieldPriority, FieldCategory, FieldDueDate,
		FieldCompleted, FieldTags, FieldNotes, FieldAttachments, FieldIsPersonal, FieldCreatedBy,
		FieldCreatedAt, FieldLastUpdate,
	},
	ProjectionRecent: {
		FieldID, FieldTitle, FieldDescription, FieldPriority, FieldCategory, FieldDueDate,
		FieldCompleted, FieldCreatedBy, FieldCreatedAt, FieldLastUpdate,
	},
}

func init() {
	projectionFields[ProjectionFull] = projectionFields[ProjectionDetail]
}

// Fields returns the field allowlist of p. Unknown projections fall back to
// the list projection.
func (p Projection) Fields() []string {
	if fields, ok := projectionFields[p]; ok {
		return fields
	}
	return projectionFields[ProjectionList]
}

// Project returns a copy of t holding only the fields allowed by p.
func Project(t *Task, p Projection) *Task {
	if t == nil {
		return nil
	}
	src := t.Clone()
	out := &Task{}
	for _, f := range p.Fields() {
		switch f {
		case FieldID:
			out.ID = src.ID
		case FieldTitle:
			out.Title = src.Title
		case FieldDescription:
			out.Description = src.Description
		case FieldPriority:
			out.Priority = src.Priority
		case FieldCategory:
			out.Category = src.Category
		case FieldDueDate:
			out.DueDate = src.DueDate
		case FieldCompleted:
			out.Completed = src.Completed
		case FieldTags:
			out.Tags = src.Tags
		case FieldNotes:
			out.Notes = src.Notes
		case FieldAttachments:
			out.Attachments = src.Attachments
		case FieldIsPersonal:
			out.IsPersonal = src.IsPersonal
		case FieldCreatedBy:
			out.CreatedBy = src.CreatedBy
		case FieldCreatedAt:
			out.CreatedAt = src.CreatedAt
		case FieldLastUpdate:
			out.LastUpdate = src.LastUpdate
		}
	}
	return out
}

// FindOptions controls ordering, windowing and projection of a read.
type FindOptions struct {
	Sort       Sort
	Skip       int
	Limit      int
	Projection Projection
}
