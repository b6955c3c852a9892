package course

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Terms
const (
	TermFirst  = "first"
	TermSecond = "second"
	TermSummer = "summer"
)

var (
	Terms = []string{TermFirst, TermSecond, TermSummer}

	termTag  = "term"
	termText = "term must be one of: first, second, summer"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, termTag, termText, Terms...)
}

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Units       int       `json:"units"`
	MajorIDs    []string  `json:"major_ids"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Class is a course offered for an academic term and taught by a teacher.
type Class struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	TeacherID    string    `json:"teacher_id"`
	Name         string    `json:"name"`
	AcademicYear string    `json:"academic_year"`
	Term         string    `json:"term"`
	Capacity     int       `json:"capacity"` // 0 means unlimited
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsArchived   bool      `json:"is_archived"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type NewCourse struct {
	Code        string   `json:"code" validate:"required,max=20,code"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description"`
	Units       int      `json:"units" validate:"min=0,max=30"`
	MajorIDs    []string `json:"major_ids" validate:"omitempty,dive,uuid"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Code = core.CleanCode(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.MajorIDs = core.UniqueStrings(nc.MajorIDs)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if err := svc.CheckCodeUniqueness(ctx, nc.Code); err != nil {
		return err
	}
	return svc.CheckMajors(ctx, nc.MajorIDs)
}

type UpdateCourse struct {
	Code        string   `json:"code" validate:"omitempty,max=20,code"`
	Name        string   `json:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Units       *int     `json:"units" validate:"omitempty,min=0,max=30"`
	MajorIDs    []string `json:"major_ids" validate:"omitempty,dive,uuid"`
	IsActive    *bool    `json:"is_active"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc Service) error {
	uc.Code = core.CleanCode(uc.Code)
	uc.Name = core.CleanString(uc.Name)
	if uc.MajorIDs != nil {
		uc.MajorIDs = core.UniqueStrings(uc.MajorIDs)
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Code != "" && uc.Code != orig.Code {
		if err := svc.CheckCodeUniqueness(ctx, uc.Code, orig.ID); err != nil {
			return err
		}
	}
	return svc.CheckMajors(ctx, uc.MajorIDs)
}

func (uc UpdateCourse) Apply(c Course) Course {
	if uc.Code != "" {
		c.Code = uc.Code
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Units != nil {
		c.Units = *uc.Units
	}
	if uc.MajorIDs != nil {
		c.MajorIDs = uc.MajorIDs
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	return c
}

type NewClass struct {
	CourseID     string    `json:"-"`
	TeacherID    string    `json:"teacher_id" validate:"required,uuid"`
	Name         string    `json:"name" validate:"required,max=100"`
	AcademicYear string    `json:"academic_year" validate:"required,academicyear"`
	Term         string    `json:"term" validate:"required,term"`
	Capacity     int       `json:"capacity" validate:"min=0"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (nc *NewClass) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.Term = core.CleanString(nc.Term, true /* lower */)
	nc.StartDate = nc.StartDate.UTC()
	nc.EndDate = nc.EndDate.UTC()

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckTeacher(ctx, nc.TeacherID)
}

type UpdateClass struct {
	TeacherID    string     `json:"teacher_id" validate:"omitempty,uuid"`
	Name         string     `json:"name" validate:"omitempty,max=100"`
	AcademicYear string     `json:"academic_year" validate:"omitempty,academicyear"`
	Term         string     `json:"term" validate:"omitempty,term"`
	Capacity     *int       `json:"capacity" validate:"omitempty,min=0"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

var errDatesOrder = core.NewFieldError("end_date", "end date must be after start date")

func (uc *UpdateClass) Validate(ctx context.Context, orig Class, validate *validator.Validate, svc Service) error {
	uc.Name = core.CleanString(uc.Name)
	uc.AcademicYear = core.CleanString(uc.AcademicYear)
	uc.Term = core.CleanString(uc.Term, true /* lower */)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if upd := uc.Apply(orig); !upd.EndDate.After(upd.StartDate) {
		return errDatesOrder
	}
	if uc.TeacherID != "" && uc.TeacherID != orig.TeacherID {
		return svc.CheckTeacher(ctx, uc.TeacherID)
	}
	return nil
}

func (uc UpdateClass) Apply(c Class) Class {
	if uc.TeacherID != "" {
		c.TeacherID = uc.TeacherID
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.AcademicYear != "" {
		c.AcademicYear = uc.AcademicYear
	}
	if uc.Term != "" {
		c.Term = uc.Term
	}
	if uc.Capacity != nil {
		c.Capacity = *uc.Capacity
	}
	if uc.StartDate != nil {
		c.StartDate = uc.StartDate.UTC()
	}
	if uc.EndDate != nil {
		c.EndDate = uc.EndDate.UTC()
	}
	return c
}

type QueryFilter struct {
	Search   string
	MajorID  string
	IsActive *bool
}

type ClassFilter struct {
	IDs          []string
	CourseID     string
	TeacherID    string
	AcademicYear string
	IsArchived   *bool
}
