package program

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Levels
const (
	LevelSecondary     = "secondary"
	LevelUndergraduate = "undergraduate"
	LevelGraduate      = "graduate"
	LevelCertificate   = "certificate"
)

var (
	Levels = []string{LevelSecondary, LevelUndergraduate, LevelGraduate, LevelCertificate}

	levelTag  = "programlevel"
	levelText = "invalid program level"
)

// InitValidators registers the program validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, levelTag, levelText, Levels...)
}

type Program struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Level         string    `json:"level"`
	DurationYears int       `json:"duration_years"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Major struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"program_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewProgram struct {
	Code          string `json:"code" validate:"required,max=20,code"`
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description"`
	Level         string `json:"level" validate:"required,programlevel"`
	DurationYears int    `json:"duration_years" validate:"min=1,max=10"`
}

func (np *NewProgram) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	np.Code = core.CleanCode(np.Code)
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.Level = core.CleanString(np.Level, true /* lower */)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckProgramCodeUniqueness(ctx, np.Code)
}

// UpdateProgram holds the fields of a Program that may be modified; empty fields are left unchanged.
type UpdateProgram struct {
	Code          string  `json:"code" validate:"omitempty,max=20,code"`
	Name          string  `json:"name" validate:"omitempty,max=200"`
	Description   *string `json:"description"`
	Level         string  `json:"level" validate:"omitempty,programlevel"`
	DurationYears int     `json:"duration_years" validate:"omitempty,min=1,max=10"`
	IsActive      *bool   `json:"is_active"`
}

func (up *UpdateProgram) Validate(ctx context.Context, orig Program, validate *validator.Validate, svc Service) error {
	up.Code = core.CleanCode(up.Code)
	up.Name = core.CleanString(up.Name)
	up.Level = core.CleanString(up.Level, true /* lower */)

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Code != "" && up.Code != orig.Code {
		return svc.CheckProgramCodeUniqueness(ctx, up.Code, orig.ID)
	}
	return nil
}

// Apply returns a copy of p updated with the non-empty fields of up.
func (up UpdateProgram) Apply(p Program) Program {
	if up.Code != "" {
		p.Code = up.Code
	}
	if up.Name != "" {
		p.Name = up.Name
	}
	if up.Description != nil {
		p.Description = core.CleanString(*up.Description)
	}
	if up.Level != "" {
		p.Level = up.Level
	}
	if up.DurationYears != 0 {
		p.DurationYears = up.DurationYears
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	return p
}

type NewMajor struct {
	ProgramID   string `json:"-"`
	Code        string `json:"code" validate:"required,max=20,code"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

func (nm *NewMajor) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nm.Code = core.CleanCode(nm.Code)
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckMajorCodeUniqueness(ctx, nm.ProgramID, nm.Code)
}

type UpdateMajor struct {
	Code        string  `json:"code" validate:"omitempty,max=20,code"`
	Name        string  `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (um *UpdateMajor) Validate(ctx context.Context, orig Major, validate *validator.Validate, svc Service) error {
	um.Code = core.CleanCode(um.Code)
	um.Name = core.CleanString(um.Name)

	if err := validate.Struct(um); err != nil {
		return err
	}
	if um.Code != "" && um.Code != orig.Code {
		return svc.CheckMajorCodeUniqueness(ctx, orig.ProgramID, um.Code, orig.ID)
	}
	return nil
}

func (um UpdateMajor) Apply(m Major) Major {
	if um.Code != "" {
		m.Code = um.Code
	}
	if um.Name != "" {
		m.Name = um.Name
	}
	if um.Description != nil {
		m.Description = core.CleanString(*um.Description)
	}
	if um.IsActive != nil {
		m.IsActive = *um.IsActive
	}
	return m
}

type QueryFilter struct {
	Search   string
	Level    string
	IsActive *bool
}

type MajorFilter struct {
	ProgramID string
	Search    string
	IsActive  *bool
}
