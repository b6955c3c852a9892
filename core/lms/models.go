package lms

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

// Content kinds
const (
	KindLesson     = "lesson"
	KindResource   = "resource"
	KindAssignment = "assignment"
)

// Submission statuses
const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

var (
	Kinds = []string{KindLesson, KindResource, KindAssignment}

	kindTag  = "contentkind"
	kindText = "content kind must be one of: lesson, resource, assignment"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, kindTag, kindText, Kinds...)
	validate.RegisterStructValidation(newContentStructLevelValidation, NewContent{})
	core.RegisterCustomTranslation(validate, translator, assignmentTag, assignmentText)
	core.RegisterCustomTranslation(validate, translator, noAssignmentTag, noAssignmentText)
}

// Viewer is the user on whose behalf LMS data is read or written.
type Viewer struct {
	UserID    string
	IsAdmin   bool
	IsTeacher bool
	IsStudent bool
}

func ViewerOf(usr user.User) Viewer {
	return Viewer{
		UserID:    usr.ID,
		IsAdmin:   usr.IsAdmin(),
		IsTeacher: usr.IsTeacher(),
		IsStudent: usr.IsStudent(),
	}
}

type Module struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"class_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Position    int        `json:"position"`
	IsPublished bool       `json:"is_published"`
	PublishAt   *time.Time `json:"publish_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Sections    []Section  `json:"sections,omitempty"`
}

// IsVisible reports whether students may see the module at `now`.
func (m Module) IsVisible(now time.Time) bool {
	return m.IsPublished && (m.PublishAt == nil || !m.PublishAt.After(now))
}

type Section struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"module_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Contents  []Content `json:"contents,omitempty"`
}

type Content struct {
	ID          string       `json:"id"`
	SectionID   string       `json:"section_id"`
	ModuleID    string       `json:"module_id"`
	Kind        string       `json:"kind"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	URL         string       `json:"url"`
	Position    int          `json:"position"`
	IsPublished bool         `json:"is_published"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Assignment  *Assignment  `json:"assignment,omitempty"`
	Submissions []Submission `json:"submissions,omitempty"`
}

type Assignment struct {
	ContentID string     `json:"-"`
	MaxPoints int        `json:"max_points"`
	DueAt     *time.Time `json:"due_at"`
	AllowLate bool       `json:"allow_late"`
}

type Grade struct {
	Points   int       `json:"points"`
	Feedback string    `json:"feedback"`
	GradedBy string    `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

type Submission struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"content_id"`
	StudentID   string    `json:"student_id"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	IsLate      bool      `json:"is_late"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Grade       *Grade    `json:"grade"`
}

// StudentGrade sums the graded submissions of a student in a class.
type StudentGrade struct {
	StudentID   string  `json:"student_id"`
	Points      int     `json:"points"`
	MaxPoints   int     `json:"max_points"`
	Percentage  float64 `json:"percentage"`
	GradedCount int     `json:"graded_count"`
}

type NewModule struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	Position    int        `json:"position" validate:"omitempty,min=1"` // zero appends
	IsPublished bool       `json:"is_published"`
	PublishAt   *time.Time `json:"publish_at"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

type UpdateModule struct {
	Title       string     `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	Position    *int       `json:"position" validate:"omitempty,min=1"`
	IsPublished *bool      `json:"is_published"`
	PublishAt   *time.Time `json:"publish_at"`
}

func (um *UpdateModule) Validate(validate *validator.Validate) error {
	um.Title = core.CleanString(um.Title)
	return validate.Struct(um)
}

func (um UpdateModule) Apply(m Module) Module {
	if um.Title != "" {
		m.Title = um.Title
	}
	if um.Description != nil {
		m.Description = core.CleanString(*um.Description)
	}
	if um.Position != nil {
		m.Position = *um.Position
	}
	if um.IsPublished != nil {
		m.IsPublished = *um.IsPublished
	}
	if um.PublishAt != nil {
		m.PublishAt = core.TimePtr(um.PublishAt.UTC())
	}
	return m
}

type NewSection struct {
	Title    string `json:"title" validate:"required,max=200"`
	Position int    `json:"position" validate:"omitempty,min=1"` // zero appends
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	return validate.Struct(ns)
}

type UpdateSection struct {
	Title    string `json:"title" validate:"omitempty,max=200"`
	Position *int   `json:"position" validate:"omitempty,min=1"`
}

func (us *UpdateSection) Validate(validate *validator.Validate) error {
	us.Title = core.CleanString(us.Title)
	return validate.Struct(us)
}

func (us UpdateSection) Apply(s Section) Section {
	if us.Title != "" {
		s.Title = us.Title
	}
	if us.Position != nil {
		s.Position = *us.Position
	}
	return s
}

type NewAssignment struct {
	MaxPoints int        `json:"max_points" validate:"min=1,max=1000"`
	DueAt     *time.Time `json:"due_at"`
	AllowLate bool       `json:"allow_late"`
}

func (na NewAssignment) toAssignment(contentID string) *Assignment {
	a := &Assignment{ContentID: contentID, MaxPoints: na.MaxPoints, AllowLate: na.AllowLate}
	if na.DueAt != nil {
		a.DueAt = core.TimePtr(na.DueAt.UTC())
	}
	return a
}

type NewContent struct {
	Kind        string         `json:"kind" validate:"required,contentkind"`
	Title       string         `json:"title" validate:"required,max=200"`
	Body        string         `json:"body"`
	URL         string         `json:"url" validate:"omitempty,url"`
	Position    int            `json:"position" validate:"omitempty,min=1"` // zero appends
	IsPublished bool           `json:"is_published"`
	Assignment  *NewAssignment `json:"assignment"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Kind = core.CleanString(nc.Kind, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.URL = core.CleanString(nc.URL)
	return validate.Struct(nc)
}

type UpdateContent struct {
	Title       string         `json:"title" validate:"omitempty,max=200"`
	Body        *string        `json:"body"`
	URL         *string        `json:"url" validate:"omitempty,url"`
	Position    *int           `json:"position" validate:"omitempty,min=1"`
	IsPublished *bool          `json:"is_published"`
	Assignment  *NewAssignment `json:"assignment"`
}

func (uc *UpdateContent) Validate(orig Content, validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Assignment != nil && orig.Kind != KindAssignment {
		return core.NewFieldError("assignment", noAssignmentText)
	}
	return nil
}

func (uc UpdateContent) Apply(c Content) Content {
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Body != nil {
		c.Body = *uc.Body
	}
	if uc.URL != nil {
		c.URL = core.CleanString(*uc.URL)
	}
	if uc.Position != nil {
		c.Position = *uc.Position
	}
	if uc.IsPublished != nil {
		c.IsPublished = *uc.IsPublished
	}
	if uc.Assignment != nil {
		c.Assignment = uc.Assignment.toAssignment(c.ID)
	}
	return c
}

type NewSubmission struct {
	Body string `json:"body" validate:"required_without=URL,max=20000"`
	URL  string `json:"url" validate:"omitempty,url"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Body = core.CleanString(ns.Body)
	ns.URL = core.CleanString(ns.URL)
	return validate.Struct(ns)
}

type GradeInput struct {
	Points   int    `json:"points" validate:"min=0"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

func (gi *GradeInput) Validate(validate *validator.Validate) error {
	gi.Feedback = core.CleanString(gi.Feedback)
	return validate.Struct(gi)
}

// ContentQuery narrows FindAllContent; empty fields are ignored.
type ContentQuery struct {
	ClassID   string
	ModuleID  string
	SectionID string
	Kind      string
}

type ModuleFilter struct {
	IDs      []string
	ClassIDs []string
}

type ContentFilter struct {
	IDs       []string
	ModuleIDs []string
	SectionID string
	Kind      string
}

type SubmissionFilter struct {
	ContentIDs []string
	StudentID  string
}
