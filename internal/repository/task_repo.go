package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// Insert stores t and fills in the timestamps assigned by the database.
func (r *TaskRepository) Insert(ctx context.Context, t *domain.Task) error {
	attachments, err := marshalAttachments(t.Attachments)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, priority, category, due_date, completed, tags, notes, attachments, is_personal, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, last_update
	`, t.ID, t.Title, t.Description, string(t.Priority), nullableCategory(t.Category), t.DueDate,
		t.Completed, tags, t.Notes, attachments, t.IsPersonal, t.CreatedBy,
	).Scan(&t.CreatedAt, &t.LastUpdate)
	return wrapErr("insert task", err)
}

// Update applies patch to the records matched by filter and returns the
// first updated record. domain.ErrNotFound when nothing matched.
func (r *TaskRepository) Update(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) (*domain.Task, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Title != nil {
		set(domain.FieldTitle, strings.TrimSpace(*patch.Title))
	}
	if patch.Description != nil {
		set(domain.FieldDescription, *patch.Description)
	}
	if patch.Priority != nil {
		set(domain.FieldPriority, string(*patch.Priority))
	}
	if patch.Category != nil {
		set(domain.FieldCategory, nullableCategory(*patch.Category))
	}
	if patch.DueDate != nil {
		set(domain.FieldDueDate, *patch.DueDate)
	}
	if patch.Completed != nil {
		set(domain.FieldCompleted, *patch.Completed)
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		set(domain.FieldTags, tags)
	}
	if patch.Notes != nil {
		set(domain.FieldNotes, *patch.Notes)
	}
	if patch.Attachments != nil {
		raw, err := marshalAttachments(*patch.Attachments)
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
		set(domain.FieldAttachments, raw)
	}
	if patch.IsPersonal != nil {
		set(domain.FieldIsPersonal, *patch.IsPersonal)
	}
	sets = append(sets, domain.FieldLastUpdate+" = now()")

	where, args := buildTaskWhere(filter, args)
	fields := domain.ProjectionFull.Fields()
	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + where +
		" RETURNING " + strings.Join(fields, ", ")

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("update task", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows, fields)
	if err != nil {
		return nil, wrapErr("update task", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("update task: %w", domain.ErrNotFound)
	}
	return tasks[0], nil
}

// Remove deletes the records matched by filter and reports how many went.
func (r *TaskRepository) Remove(ctx context.Context, filter domain.TaskFilter) (int64, error) {
	where, args := buildTaskWhere(filter, nil)
	tag, err := r.db.Exec(ctx, "DELETE FROM tasks"+where, args...)
	if err != nil {
		return 0, wrapErr("remove task", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepository) Find(ctx context.Context, filter domain.TaskFilter, opts domain.FindOptions) ([]*domain.Task, error) {
	fields := opts.Projection.Fields()
	where, args := buildTaskWhere(filter, nil)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM tasks")
	b.WriteString(where)
	b.WriteString(buildOrderBy(opts.Sort))
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, wrapErr("find tasks", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows, fields)
	if err != nil {
		return nil, wrapErr("find tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindOne(ctx context.Context, filter domain.TaskFilter, projection domain.Projection) (*domain.Task, error) {
	tasks, err := r.Find(ctx, filter, domain.FindOptions{Limit: 1, Projection: projection})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("find task: %w", domain.ErrNotFound)
	}
	return tasks[0], nil
}

func (r *TaskRepository) Count(ctx context.Context, filter domain.TaskFilter) (int64, error) {
	where, args := buildTaskWhere(filter, nil)
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&n); err != nil {
		return 0, wrapErr("count tasks", err)
	}
	return n, nil
}

// buildTaskWhere renders filter as a WHERE clause. Placeholders continue
// after the given args.
func buildTaskWhere(f domain.TaskFilter, args []any) (string, []any) {
	var conds []string
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.ID != "" {
		conds = append(conds, "id = "+arg(f.ID))
	}
	if f.CreatedBy != nil {
		conds = append(conds, "created_by = "+arg(*f.CreatedBy))
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conds = append(conds, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if f.Category != "" {
		conds = append(conds, "category = "+arg(string(f.Category)))
	}
	if f.CategorySet {
		conds = append(conds, "(category IS NOT NULL AND category <> '')")
	}
	if f.Completed != nil {
		conds = append(conds, "completed = "+arg(*f.Completed))
	}
	if f.VisibleTo != nil {
		conds = append(conds, "(is_personal IS NOT TRUE OR created_by = "+arg(*f.VisibleTo)+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var sortColumns = map[domain.SortField]string{
	domain.SortTitle:      "lower(title)",
	domain.SortPriority:   "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END",
	domain.SortDueDate:    "due_date",
	domain.SortCreatedAt:  "created_at",
	domain.SortLastUpdate: "last_update",
}

func buildOrderBy(s domain.Sort) string {
	var keys []string
	for _, k := range s {
		col, ok := sortColumns[k.Field]
		if !ok {
			continue
		}
		if k.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		keys = append(keys, col)
	}
	// total order for stable paging
	keys = append(keys, "id ASC")
	return " ORDER BY " + strings.Join(keys, ", ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableCategory(c domain.Category) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}

func marshalAttachments(a []domain.Attachment) ([]byte, error) {
	if a == nil {
		a = []domain.Attachment{}
	}
	return json.Marshal(a)
}

// taskRow holds scan targets for the columns whose Go types differ from
// the domain fields.
type taskRow struct {
	task        domain.Task
	priority    string
	category    *string
	attachments []byte
}

func (r *taskRow) target(field string) any {
	t := &r.task
	switch field {
	case domain.FieldID:
		return &t.ID
	case domain.FieldTitle:
		return &t.Title
	case domain.FieldDescription:
		return &t.Description
	case domain.FieldPriority:
		return &r.priority
	case domain.FieldCategory:
		return &r.category
	case domain.FieldDueDate:
		return &t.DueDate
	case domain.FieldCompleted:
		return &t.Completed
	case domain.FieldTags:
		return &t.Tags
	case domain.FieldNotes:
		return &t.Notes
	case domain.FieldAttachments:
		return &r.attachments
	case domain.FieldIsPersonal:
		return &t.IsPersonal
	case domain.FieldCreatedBy:
		return &t.CreatedBy
	case domain.FieldCreatedAt:
		return &t.CreatedAt
	case domain.FieldLastUpdate:
		return &t.LastUpdate
	}
	var discard any
	return &discard
}

func (r *taskRow) finish() (*domain.Task, error) {
	t := r.task
	t.Priority = domain.Priority(r.priority)
	if r.category != nil {
		t.Category = domain.Category(*r.category)
	}
	if len(r.attachments) > 0 {
		if err := json.Unmarshal(r.attachments, &t.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
		if len(t.Attachments) == 0 {
			t.Attachments = nil
		}
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows, fields []string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var row taskRow
		targets := make([]any, len(fields))
		for i, f := range fields {
			targets[i] = row.target(f)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		t, err := row.finish()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// wrapErr maps driver errors to domain errors.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case "23514", "23502":
			return fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
