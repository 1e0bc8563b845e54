package service

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"todo_webapp/internal/domain"

	"github.com/go-playground/validator/v10"
)

// TaskInput is a full task document as submitted by a client.
type TaskInput struct {
	ID          string            `json:"id" validate:"omitempty,max=64,taskid"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Priority    domain.Priority   `json:"priority" validate:"priority"`
	Category    domain.Category   `json:"category" validate:"category"`
	DueDate     *time.Time        `json:"due_date"`
	Completed   bool              `json:"completed"`
	Tags        []string          `json:"tags" validate:"max=20,dive,required,max=40"`
	Notes       string            `json:"notes" validate:"max=5000"`
	Attachments []AttachmentInput `json:"attachments" validate:"max=20,dive"`
	IsPersonal  bool              `json:"is_personal"`
}

type AttachmentInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Ref         string `json:"ref" validate:"required,max=1024"`
	ContentType string `json:"content_type" validate:"max=255"`
	Size        int64  `json:"size" validate:"gte=0"`
}

// TaskPatchInput is a partial task document. Absent fields stay unchanged.
type TaskPatchInput struct {
	Title       *string            `json:"title" validate:"omitnil,max=200"`
	Description *string            `json:"description" validate:"omitnil,max=5000"`
	Priority    *domain.Priority   `json:"priority" validate:"omitnil,priority"`
	Category    *domain.Category   `json:"category" validate:"omitnil,category"`
	DueDate     NullableTime       `json:"due_date"`
	Completed   *bool              `json:"completed"`
	Tags        *[]string          `json:"tags" validate:"omitnil,max=20,dive,required,max=40"`
	Notes       *string            `json:"notes" validate:"omitnil,max=5000"`
	Attachments *[]AttachmentInput `json:"attachments" validate:"omitnil,max=20,dive"`
	IsPersonal  *bool              `json:"is_personal"`
}

// NullableTime tells an absent JSON field apart from an explicit null.
type NullableTime struct {
	Set  bool
	Time *time.Time
}

func (n *NullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	n.Time = &t
	return nil
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

// FullPatch turns a full document into a patch that overwrites every
// mutable field. The input id is ignored.
func (in TaskInput) FullPatch() TaskPatchInput {
	title := in.Title
	desc := in.Description
	prio := in.Priority
	if prio == "" {
		prio = domain.PriorityMedium
	}
	cat := in.Category
	completed := in.Completed
	tags := in.Tags
	notes := in.Notes
	attachments := in.Attachments
	personal := in.IsPersonal
	if tags == nil {
		tags = []string{}
	}
	if attachments == nil {
		attachments = []AttachmentInput{}
	}
	return TaskPatchInput{
		Title:       &title,
		Description: &desc,
		Priority:    &prio,
		Category:    &cat,
		DueDate:     NullableTime{Set: true, Time: in.DueDate},
		Completed:   &completed,
		Tags:        &tags,
		Notes:       &notes,
		Attachments: &attachments,
		IsPersonal:  &personal,
	}
}

func (in TaskInput) toTask() *domain.Task {
	t := &domain.Task{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     normalizeDue(in.DueDate),
		Completed:   in.Completed,
		Tags:        append([]string(nil), in.Tags...),
		Notes:       in.Notes,
		Attachments: toAttachments(in.Attachments),
		IsPersonal:  in.IsPersonal,
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return t
}

func (p TaskPatchInput) toPatch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       p.Title,
		Description: p.Description,
		Priority:    p.Priority,
		Category:    p.Category,
		Completed:   p.Completed,
		Tags:        p.Tags,
		Notes:       p.Notes,
		IsPersonal:  p.IsPersonal,
	}
	if p.DueDate.Set {
		due := normalizeDue(p.DueDate.Time)
		patch.DueDate = &due
	}
	if p.Attachments != nil {
		a := toAttachments(*p.Attachments)
		if a == nil {
			a = []domain.Attachment{}
		}
		patch.Attachments = &a
	}
	return patch
}

func toAttachments(in []AttachmentInput) []domain.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Attachment{Name: a.Name, Ref: a.Ref, ContentType: a.ContentType, Size: a.Size})
	}
	return out
}

func normalizeDue(d *time.Time) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	u := d.UTC()
	return &u
}

var (
	validate      *validator.Validate
	validateOnce  sync.Once
	taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("taskid", func(fl validator.FieldLevel) bool {
			return taskIDPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
			p := domain.Priority(fl.Field().String())
			return p == "" || p.Valid()
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			c := domain.Category(fl.Field().String())
			return c == "" || c.Valid()
		})
		validate = v
	})
	return validate
}

// validateStruct runs the struct tags and converts failures to a
// *domain.ValidationError keyed by json field path.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &domain.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return ve
}

// fieldPath drops the top-level struct name: "TaskInput.tags[0]" -> "tags[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "taskid":
		return "may only contain letters, digits, '-' and '_'"
	case "priority":
		return "must be one of high, medium, low"
	case "category":
		return "must be one of work, personal, study, health, finance"
	}
	return "is invalid"
}

// ValidateTaskInput trims the title and checks the document.
func ValidateTaskInput(in *TaskInput) error {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Priority = domain.Priority(strings.ToLower(string(in.Priority)))
	in.Category = domain.Category(strings.ToLower(string(in.Category)))
	return validateStruct(in)
}

// ValidateTaskPatch trims the title and checks the present fields. Title
// and priority, when present, must not be empty.
func ValidateTaskPatch(p *TaskPatchInput) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.Priority != nil {
		v := domain.Priority(strings.ToLower(string(*p.Priority)))
		p.Priority = &v
	}
	if p.Category != nil {
		v := domain.Category(strings.ToLower(string(*p.Category)))
		p.Category = &v
	}
	ve := &domain.ValidationError{Fields: map[string]string{}}
	if err := validateStruct(p); err != nil {
		if !errors.As(err, &ve) {
			return err
		}
	}
	if p.Title != nil && *p.Title == "" {
		ve.Fields["title"] = "is required"
	}
	if p.Priority != nil && *p.Priority == "" {
		ve.Fields["priority"] = "is required"
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	if p.toPatch().Empty() {
		return domain.NewValidationError("body", "no fields to update")
	}
	return nil
}
