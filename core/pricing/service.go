package pricing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("fee not found")
	ErrMixedCurrencies = core.NewConflictError("applicable fees use different currencies")
	errCourseNotFound  = errors.New("course not found")
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee) (Fee, error)
		QueryFees(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Fee, error)
		GetFee(ctx context.Context, id string) (Fee, error)
		UpdateFee(ctx context.Context, f Fee) (Fee, error)
		DeleteFee(ctx context.Context, id string) error
	}

	Service interface {
		CheckCourse(ctx context.Context, courseID *string) error

		Create(ctx context.Context, nf NewFee) (Fee, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Fee, error)
		GetByID(ctx context.Context, id string) (Fee, error)
		Update(ctx context.Context, f Fee, uf UpdateFee) (Fee, error)
		Delete(ctx context.Context, id string) error

		QuoteCourse(ctx context.Context, courseID, academicYear string) (Quote, error)
	}

	service struct {
		repo    Repository
		courses course.Service
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses course.Service, conf *core.Config) Service {
	return &service{repo: repo, courses: courses, conf: conf}
}

func (svc *service) CheckCourse(ctx context.Context, courseID *string) error {
	if courseID == nil {
		return nil
	}
	if _, err := svc.courses.GetByID(ctx, *courseID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(errCourseNotFound, core.FieldError{Field: "course_id", Error: errCourseNotFound.Error()})
		}
		return errors.Wrap(err, "getting course")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	now := core.NowFunc()
	return svc.repo.CreateFee(ctx, Fee{
		ID:           uuid.NewString(),
		Name:         nf.Name,
		Kind:         nf.Kind,
		Scope:        nf.Scope,
		Amount:       nf.Amount,
		Currency:     nf.Currency,
		AcademicYear: nf.AcademicYear,
		CourseID:     nf.CourseID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Fee, error) {
	return svc.repo.QueryFees(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Fee, error) {
	return svc.repo.GetFee(ctx, id)
}

func (svc *service) Update(ctx context.Context, f Fee, uf UpdateFee) (Fee, error) {
	f = uf.Apply(f)
	f.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateFee(ctx, f)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteFee(ctx, id)
}

// QuoteCourse prices one enrollment in courseID for academicYear.
// It uses the active fees of the year that are global or bound to the course; per-unit fees are
// multiplied by the course units.
func (svc *service) QuoteCourse(ctx context.Context, courseID, academicYear string) (Quote, error) {
	crs, err := svc.courses.GetByID(ctx, courseID)
	if err != nil {
		return Quote{}, err
	}
	fees, err := svc.repo.QueryFees(ctx, QueryFilter{
		AcademicYear: academicYear,
		CourseID:     crs.ID,
		ForCourse:    true,
		IsActive:     core.BoolPtr(true),
	}, nil, core.Pagination{})
	if err != nil {
		return Quote{}, errors.Wrap(err, "querying fees")
	}
	return buildQuote(crs, academicYear, fees, svc.conf.Currency)
}

func buildQuote(crs course.Course, academicYear string, fees []Fee, defaultCurrency string) (Quote, error) {
	quote := Quote{
		CourseID:     crs.ID,
		AcademicYear: academicYear,
		Currency:     defaultCurrency,
		Lines:        make([]QuoteLine, 0, len(fees)),
	}

	fees = append([]Fee(nil), fees...)
	sort.SliceStable(fees, func(i, j int) bool {
		if kindOrder[fees[i].Kind] != kindOrder[fees[j].Kind] {
			return kindOrder[fees[i].Kind] < kindOrder[fees[j].Kind]
		}
		return fees[i].Name < fees[j].Name
	})

	for i, fee := range fees {
		if i == 0 {
			quote.Currency = fee.Currency
		} else if fee.Currency != quote.Currency {
			return Quote{}, ErrMixedCurrencies
		}

		line := QuoteLine{
			FeeID:       fee.ID,
			Kind:        fee.Kind,
			Description: fee.Name,
			Quantity:    1,
			UnitAmount:  fee.Amount,
		}
		if fee.Scope == ScopePerUnit {
			line.Quantity = crs.Units
			line.Description = fmt.Sprintf("%s (%d units)", fee.Name, crs.Units)
		}
		line.Amount = line.UnitAmount * int64(line.Quantity)
		quote.Lines = append(quote.Lines, line)
		quote.Total += line.Amount
	}

	return quote, nil
}
