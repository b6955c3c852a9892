package course

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course not found")
	ErrClassNotFound  = core.NewNotFoundError("class not found")
	ErrCodeExists     = errors.New("a course with this code already exists")
	ErrCourseHasClass = core.NewConflictError("course still has classes")
	ErrClassArchived  = core.NewConflictError("class is archived")
	ErrClassInUse     = core.NewConflictError("class still has enrollments")
	errInvalidTeacher = errors.New("user is not an active teacher")
	errMajorNotFound  = errors.New("major not found")
	errInactiveCourse = errors.New("course is not active")
)

// DefaultClassOrdering lists the most recent classes first.
var DefaultClassOrdering = []core.DBOrdering{{Field: "start_date"}, {Field: "created_at"}}

type (
	Repository interface {
		// CheckCourseCode returns ErrCodeExists when a course other than those in excludedIDs holds the code.
		CheckCourseCode(ctx context.Context, code string, excludedIDs []string) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Code or Course.Name.
		QueryCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateClass(ctx context.Context, c Class) (Class, error)
		QueryClasses(ctx context.Context, filter ClassFilter, ordering []core.DBOrdering, page core.Pagination) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		// GetClassForUpdate locks the class until the transaction carried by ctx ends.
		GetClassForUpdate(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		// DeleteClass returns ErrClassInUse when enrollments still reference the class.
		DeleteClass(ctx context.Context, id string) error
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
		CheckMajors(ctx context.Context, majorIDs []string) error
		CheckTeacher(ctx context.Context, teacherID string) error

		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string) error

		CreateClass(ctx context.Context, nc NewClass) (Class, error)
		QueryClasses(ctx context.Context, filter ClassFilter, ordering []core.DBOrdering, page core.Pagination) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		// GetClassForUpdate locks the class until the transaction carried by ctx ends.
		GetClassForUpdate(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class, uc UpdateClass) (Class, error)
		ArchiveClass(ctx context.Context, id string) (Class, error)
		DeleteClass(ctx context.Context, id string) error
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		programs program.Service
		users    user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor, programs program.Service, users user.Service) Service {
	return &service{repo: repo, tx: tx, programs: programs, users: users}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckCourseCode(ctx, code, excludedIDs); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking course code")
	}
	return nil
}

func (svc *service) CheckMajors(ctx context.Context, majorIDs []string) error {
	for _, id := range majorIDs {
		if _, err := svc.programs.GetMajor(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(errMajorNotFound, core.FieldError{Field: "major_ids", Error: errMajorNotFound.Error()})
			}
			return errors.Wrap(err, "getting major")
		}
	}
	return nil
}

func (svc *service) CheckTeacher(ctx context.Context, teacherID string) error {
	usr, err := svc.users.GetByID(ctx, teacherID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(errInvalidTeacher, core.FieldError{Field: "teacher_id", Error: errInvalidTeacher.Error()})
		}
		return errors.Wrap(err, "getting teacher")
	}
	if !usr.Active() || !usr.IsTeacher() {
		return core.NewValidationError(errInvalidTeacher, core.FieldError{Field: "teacher_id", Error: errInvalidTeacher.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := core.NowFunc()
	return svc.repo.CreateCourse(ctx, Course{
		ID:          uuid.NewString(),
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		Units:       nc.Units,
		MajorIDs:    nc.MajorIDs,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryCourses(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	c = uc.Apply(c)
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCourse(ctx, c)
}

// Delete removes a course. Courses that still have classes cannot be deleted.
func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetCourse(ctx, id); err != nil {
			return err
		}
		classes, err := svc.repo.QueryClasses(ctx, ClassFilter{CourseID: id}, nil, core.Pagination{PageSize: 1})
		if err != nil {
			return errors.Wrap(err, "querying classes")
		}
		if len(classes) > 0 {
			return ErrCourseHasClass
		}
		return svc.repo.DeleteCourse(ctx, id)
	})
}

func (svc *service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	crs, err := svc.repo.GetCourse(ctx, nc.CourseID)
	if err != nil {
		return Class{}, err
	}
	if !crs.IsActive {
		return Class{}, core.NewValidationError(errInactiveCourse, core.FieldError{Field: "course_id", Error: errInactiveCourse.Error()})
	}

	now := core.NowFunc()
	return svc.repo.CreateClass(ctx, Class{
		ID:           uuid.NewString(),
		CourseID:     nc.CourseID,
		TeacherID:    nc.TeacherID,
		Name:         nc.Name,
		AcademicYear: nc.AcademicYear,
		Term:         nc.Term,
		Capacity:     nc.Capacity,
		StartDate:    nc.StartDate,
		EndDate:      nc.EndDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *service) QueryClasses(ctx context.Context, filter ClassFilter, ordering []core.DBOrdering, page core.Pagination) ([]Class, error) {
	if len(ordering) == 0 {
		ordering = DefaultClassOrdering
	}
	return svc.repo.QueryClasses(ctx, filter, ordering, page)
}

func (svc *service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) GetClassForUpdate(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassForUpdate(ctx, id)
}

func (svc *service) UpdateClass(ctx context.Context, c Class, uc UpdateClass) (Class, error) {
	if c.IsArchived {
		return Class{}, ErrClassArchived
	}
	c = uc.Apply(c)
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *service) ArchiveClass(ctx context.Context, id string) (Class, error) {
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if c.IsArchived {
		return c, nil
	}
	c.IsArchived = true
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}
