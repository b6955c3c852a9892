package program

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("program not found")
	ErrMajorNotFound    = core.NewNotFoundError("major not found")
	ErrCodeExists       = errors.New("a program with this code already exists")
	ErrMajorCodeExists  = errors.New("a major with this code already exists in the program")
	ErrProgramHasMajors = core.NewConflictError("program still has majors")
	ErrInactiveProgram  = errors.New("program is not active")
)

type (
	Repository interface {
		// CheckProgramCode returns ErrCodeExists when a program other than those in excludedIDs holds the code.
		CheckProgramCode(ctx context.Context, code string, excludedIDs []string) error
		CreateProgram(ctx context.Context, p Program) (Program, error)
		QueryPrograms(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Program, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		UpdateProgram(ctx context.Context, p Program) (Program, error)
		DeleteProgram(ctx context.Context, id string) error

		// CheckMajorCode returns ErrMajorCodeExists when a major of programID, not in excludedIDs, holds the code.
		CheckMajorCode(ctx context.Context, programID, code string, excludedIDs []string) error
		CreateMajor(ctx context.Context, m Major) (Major, error)
		QueryMajors(ctx context.Context, filter MajorFilter, ordering []core.DBOrdering) ([]Major, error)
		GetMajor(ctx context.Context, id string) (Major, error)
		UpdateMajor(ctx context.Context, m Major) (Major, error)
		DeleteMajor(ctx context.Context, id string) error
	}

	Service interface {
		CheckProgramCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
		CheckMajorCodeUniqueness(ctx context.Context, programID, code string, excludedIDs ...string) error

		Create(ctx context.Context, np NewProgram) (Program, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Program, error)
		GetByID(ctx context.Context, id string) (Program, error)
		Update(ctx context.Context, p Program, up UpdateProgram) (Program, error)
		Delete(ctx context.Context, id string) error

		CreateMajor(ctx context.Context, nm NewMajor) (Major, error)
		QueryMajors(ctx context.Context, filter MajorFilter, ordering []core.DBOrdering) ([]Major, error)
		GetMajor(ctx context.Context, id string) (Major, error)
		UpdateMajor(ctx context.Context, m Major, um UpdateMajor) (Major, error)
		DeleteMajor(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
		tx   core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (svc *service) CheckProgramCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckProgramCode(ctx, code, excludedIDs); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking program code")
	}
	return nil
}

func (svc *service) CheckMajorCodeUniqueness(ctx context.Context, programID, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckMajorCode(ctx, programID, code, excludedIDs); err != nil {
		if errors.Cause(err) == ErrMajorCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking major code")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, np NewProgram) (Program, error) {
	now := core.NowFunc()
	return svc.repo.CreateProgram(ctx, Program{
		ID:            uuid.NewString(),
		Code:          np.Code,
		Name:          np.Name,
		Description:   np.Description,
		Level:         np.Level,
		DurationYears: np.DurationYears,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Program, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Level = core.CleanString(filter.Level, true /* lower */)
	return svc.repo.QueryPrograms(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *service) Update(ctx context.Context, p Program, up UpdateProgram) (Program, error) {
	p = up.Apply(p)
	p.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateProgram(ctx, p)
}

// Delete removes a program. Programs that still have majors cannot be deleted.
func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetProgram(ctx, id); err != nil {
			return err
		}
		majors, err := svc.repo.QueryMajors(ctx, MajorFilter{ProgramID: id}, nil)
		if err != nil {
			return errors.Wrap(err, "querying majors")
		}
		if len(majors) > 0 {
			return ErrProgramHasMajors
		}
		return svc.repo.DeleteProgram(ctx, id)
	})
}

func (svc *service) CreateMajor(ctx context.Context, nm NewMajor) (Major, error) {
	prog, err := svc.repo.GetProgram(ctx, nm.ProgramID)
	if err != nil {
		return Major{}, err
	}
	if !prog.IsActive {
		return Major{}, core.NewValidationError(ErrInactiveProgram, core.FieldError{Field: "program_id", Error: ErrInactiveProgram.Error()})
	}

	now := core.NowFunc()
	return svc.repo.CreateMajor(ctx, Major{
		ID:          uuid.NewString(),
		ProgramID:   nm.ProgramID,
		Code:        nm.Code,
		Name:        nm.Name,
		Description: nm.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) QueryMajors(ctx context.Context, filter MajorFilter, ordering []core.DBOrdering) ([]Major, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryMajors(ctx, filter, ordering)
}

func (svc *service) GetMajor(ctx context.Context, id string) (Major, error) {
	return svc.repo.GetMajor(ctx, id)
}

func (svc *service) UpdateMajor(ctx context.Context, m Major, um UpdateMajor) (Major, error) {
	m = um.Apply(m)
	m.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateMajor(ctx, m)
}

func (svc *service) DeleteMajor(ctx context.Context, id string) error {
	return svc.repo.DeleteMajor(ctx, id)
}
