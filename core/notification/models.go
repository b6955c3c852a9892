package notification

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Kinds
const (
	KindAnnouncement = "announcement"
	KindEnrollment   = "enrollment"
	KindBilling      = "billing"
	KindGrade        = "grade"
	KindSystem       = "system"
)

var (
	Kinds = []string{KindAnnouncement, KindEnrollment, KindBilling, KindGrade, KindSystem}

	kindTag  = "notifkind"
	kindText = "invalid notification kind"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, kindTag, kindText, Kinds...)
}

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n Notification) IsRead() bool { return n.ReadAt != nil }

// NewNotification is delivered to UserIDs plus every active user holding one of Roles.
type NewNotification struct {
	UserIDs   []string `json:"user_ids" validate:"omitempty,dive,uuid"`
	Roles     []string `json:"roles"`
	Kind      string   `json:"kind" validate:"required,notifkind"`
	Title     string   `json:"title" validate:"required,max=200"`
	Body      string   `json:"body" validate:"max=5000"`
	Link      string   `json:"link" validate:"omitempty,max=500"`
	SendEmail bool     `json:"send_email"`

	// Attachments go along with the emails only.
	Attachments []File `json:"-"`
}

// File is attached to the emails of a notification.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.UserIDs = core.UniqueStrings(nn.UserIDs)
	nn.Roles = core.UniqueStrings(nn.Roles)
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	nn.Link = core.CleanString(nn.Link)
	if nn.Kind == "" {
		nn.Kind = KindAnnouncement
	}

	if err := validate.Struct(nn); err != nil {
		return err
	}
	if len(nn.UserIDs) == 0 && len(nn.Roles) == 0 {
		return core.NewFieldError("user_ids", "at least one recipient or role is required")
	}
	return nil
}

type QueryFilter struct {
	UserID     string
	UnreadOnly bool
}
