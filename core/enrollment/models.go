package enrollment

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusEnrolled  = "enrolled"
	StatusDropped   = "dropped"
	StatusCompleted = "completed"
)

var (
	Statuses = []string{StatusPending, StatusEnrolled, StatusDropped, StatusCompleted}
	// ActiveStatuses occupy a seat in the class.
	ActiveStatuses = []string{StatusPending, StatusEnrolled}
	// AccessStatuses grant access to the class materials.
	AccessStatuses = []string{StatusEnrolled, StatusCompleted}

	transitions = map[string][]string{
		StatusPending:  {StatusEnrolled, StatusDropped},
		StatusEnrolled: {StatusDropped, StatusCompleted},
	}

	statusTag  = "enrollstatus"
	statusText = "status must be one of: pending, enrolled, dropped, completed"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, statusTag, statusText, Statuses...)
}

// CanTransition reports whether an enrollment may move from one status to another.
func CanTransition(from, to string) bool {
	return core.ContainsString(transitions[from], to)
}

type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	Status     string    `json:"status"`
	InvoiceID  *string   `json:"invoice_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e Enrollment) IsActive() bool { return core.ContainsString(ActiveStatuses, e.Status) }

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	ClassID   string `json:"class_id" validate:"required,uuid"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.ClassID = core.CleanString(ne.ClassID)
	return validate.Struct(ne)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,enrollstatus"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	StudentID string
	ClassID   string
	ClassIDs  []string
	Statuses  []string
}
