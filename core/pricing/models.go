package pricing

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Fee kinds, in quote order
const (
	KindTuition       = "tuition"
	KindLaboratory    = "laboratory"
	KindMiscellaneous = "miscellaneous"
)

// Fee scopes
const (
	ScopePerUnit = "per_unit"
	ScopeFlat    = "flat"
)

var (
	Kinds  = []string{KindTuition, KindLaboratory, KindMiscellaneous}
	Scopes = []string{ScopePerUnit, ScopeFlat}

	kindOrder = map[string]int{KindTuition: 0, KindLaboratory: 1, KindMiscellaneous: 2}

	kindTag   = "feekind"
	kindText  = "fee kind must be one of: tuition, laboratory, miscellaneous"
	scopeTag  = "feescope"
	scopeText = "fee scope must be one of: per_unit, flat"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, kindTag, kindText, Kinds...)
	core.RegisterOneOf(validate, translator, scopeTag, scopeText, Scopes...)
}

// Fee is a charge applied to course enrollments of an academic year.
// A fee without CourseID applies to every course.
type Fee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Scope        string    `json:"scope"`
	Amount       int64     `json:"amount"` // minor units
	Currency     string    `json:"currency"`
	AcademicYear string    `json:"academic_year"`
	CourseID     *string   `json:"course_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type QuoteLine struct {
	FeeID       string `json:"fee_id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	Amount      int64  `json:"amount"`
}

type Quote struct {
	CourseID     string      `json:"course_id"`
	AcademicYear string      `json:"academic_year"`
	Currency     string      `json:"currency"`
	Lines        []QuoteLine `json:"lines"`
	Total        int64       `json:"total"`
}

type NewFee struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Kind         string  `json:"kind" validate:"required,feekind"`
	Scope        string  `json:"scope" validate:"required,feescope"`
	Amount       int64   `json:"amount" validate:"min=0"`
	Currency     string  `json:"currency" validate:"required,currency"`
	AcademicYear string  `json:"academic_year" validate:"required,academicyear"`
	CourseID     *string `json:"course_id" validate:"omitempty,uuid"`
}

func (nf *NewFee) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Kind = core.CleanString(nf.Kind, true /* lower */)
	nf.Scope = core.CleanString(nf.Scope, true /* lower */)
	nf.Currency = core.CleanCode(nf.Currency)
	nf.AcademicYear = core.CleanString(nf.AcademicYear)
	nf.CourseID = cleanCourseID(nf.CourseID)

	if err := validate.Struct(nf); err != nil {
		return err
	}
	return svc.CheckCourse(ctx, nf.CourseID)
}

type UpdateFee struct {
	Name         string  `json:"name" validate:"omitempty,max=200"`
	Kind         string  `json:"kind" validate:"omitempty,feekind"`
	Scope        string  `json:"scope" validate:"omitempty,feescope"`
	Amount       *int64  `json:"amount" validate:"omitempty,min=0"`
	Currency     string  `json:"currency" validate:"omitempty,currency"`
	AcademicYear string  `json:"academic_year" validate:"omitempty,academicyear"`
	CourseID     *string `json:"course_id" validate:"omitempty,uuid"`
	IsActive     *bool   `json:"is_active"`
}

func (uf *UpdateFee) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	uf.Name = core.CleanString(uf.Name)
	uf.Kind = core.CleanString(uf.Kind, true /* lower */)
	uf.Scope = core.CleanString(uf.Scope, true /* lower */)
	uf.Currency = core.CleanCode(uf.Currency)
	uf.AcademicYear = core.CleanString(uf.AcademicYear)
	uf.CourseID = cleanCourseID(uf.CourseID)

	if err := validate.Struct(uf); err != nil {
		return err
	}
	return svc.CheckCourse(ctx, uf.CourseID)
}

func (uf UpdateFee) Apply(f Fee) Fee {
	if uf.Name != "" {
		f.Name = uf.Name
	}
	if uf.Kind != "" {
		f.Kind = uf.Kind
	}
	if uf.Scope != "" {
		f.Scope = uf.Scope
	}
	if uf.Amount != nil {
		f.Amount = *uf.Amount
	}
	if uf.Currency != "" {
		f.Currency = uf.Currency
	}
	if uf.AcademicYear != "" {
		f.AcademicYear = uf.AcademicYear
	}
	if uf.CourseID != nil {
		f.CourseID = uf.CourseID
	}
	if uf.IsActive != nil {
		f.IsActive = *uf.IsActive
	}
	return f
}

func cleanCourseID(id *string) *string {
	if id == nil {
		return nil
	}
	if s := core.CleanString(*id); s != "" {
		return &s
	}
	return nil
}

type QueryFilter struct {
	AcademicYear string
	// CourseID matches fees bound to the course. With ForCourse, global fees match too.
	CourseID  string
	ForCourse bool
	Kind      string
	IsActive  *bool
}
