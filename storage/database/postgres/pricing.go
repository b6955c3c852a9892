package pgrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	feeColumns = []string{
		"id", "name", "kind", "scope", "amount", "currency", "academic_year", "course_id", "is_active", "created_at", "updated_at",
	}
	feeOrdering = map[string]string{
		"name":          "lower(name)",
		"kind":          "kind",
		"amount":        "amount",
		"academic_year": "academic_year",
		"created_at":    "created_at",
	}
)

type feeRepository struct {
	db database.Querier
}

func NewFeeRepository(db database.Querier) pricing.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(ctx context.Context, f pricing.Fee) (pricing.Fee, error) {
	qb := psql.Insert("fees").Columns(feeColumns...).Values(
		f.ID, f.Name, f.Kind, f.Scope, f.Amount, f.Currency, f.AcademicYear, f.CourseID, f.IsActive, f.CreatedAt, f.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		return pricing.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return f, nil
}

func (repo *feeRepository) QueryFees(ctx context.Context, filter pricing.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]pricing.Fee, error) {
	qb := psql.Select(feeColumns...).From("fees")
	if filter.AcademicYear != "" {
		qb = qb.Where(sq.Eq{"academic_year": filter.AcademicYear})
	}
	if filter.CourseID != "" {
		if filter.ForCourse {
			qb = qb.Where(sq.Or{sq.Eq{"course_id": filter.CourseID}, sq.Eq{"course_id": nil}})
		} else {
			qb = qb.Where(sq.Eq{"course_id": filter.CourseID})
		}
	}
	if filter.Kind != "" {
		qb = qb.Where(sq.Eq{"kind": filter.Kind})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	qb = qb.OrderBy(orderClauses(
		ordering, feeOrdering, core.DBOrdering{Field: "academic_year"}, core.DBOrdering{Field: "name", Ascending: true},
	)...)

	fees := make([]pricing.Fee, 0)
	if err := selectAll(ctx, repo.db, &fees, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	return fees, nil
}

func (repo *feeRepository) GetFee(ctx context.Context, id string) (pricing.Fee, error) {
	if !isUUID(id) {
		return pricing.Fee{}, pricing.ErrNotFound
	}
	var f pricing.Fee
	qb := psql.Select(feeColumns...).From("fees").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &f, qb, pricing.ErrNotFound); err != nil {
		return pricing.Fee{}, err
	}
	return f, nil
}

func (repo *feeRepository) UpdateFee(ctx context.Context, f pricing.Fee) (pricing.Fee, error) {
	qb := psql.Update("fees").SetMap(map[string]interface{}{
		"name":          f.Name,
		"kind":          f.Kind,
		"scope":         f.Scope,
		"amount":        f.Amount,
		"currency":      f.Currency,
		"academic_year": f.AcademicYear,
		"course_id":     f.CourseID,
		"is_active":     f.IsActive,
		"updated_at":    f.UpdatedAt,
	}).Where(sq.Eq{"id": f.ID})
	if err := execOne(ctx, repo.db, qb, pricing.ErrNotFound); err != nil {
		return pricing.Fee{}, err
	}
	return f, nil
}

func (repo *feeRepository) DeleteFee(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("fees").Where(sq.Eq{"id": id}), pricing.ErrNotFound)
}
