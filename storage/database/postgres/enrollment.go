package pgrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	enrollmentColumns  = []string{"id", "student_id", "class_id", "status", "invoice_id", "enrolled_at", "updated_at"}
	enrollmentOrdering = map[string]string{
		"status":      "status",
		"enrolled_at": "enrolled_at",
		"updated_at":  "updated_at",
	}
)

type enrollmentRepository struct {
	db database.Querier
}

func NewEnrollmentRepository(db database.Querier) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	qb := psql.Insert("enrollments").Columns(enrollmentColumns...).Values(
		e.ID, e.StudentID, e.ClassID, e.Status, e.InvoiceID, e.EnrolledAt, e.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func whereEnrollments(qb sq.SelectBuilder, filter enrollment.QueryFilter) sq.SelectBuilder {
	if filter.StudentID != "" {
		qb = qb.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.ClassID != "" {
		qb = qb.Where(sq.Eq{"class_id": filter.ClassID})
	}
	if filter.ClassIDs != nil {
		qb = qb.Where(sq.Eq{"class_id": filter.ClassIDs})
	}
	if len(filter.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": filter.Statuses})
	}
	return qb
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]enrollment.Enrollment, error) {
	qb := whereEnrollments(psql.Select(enrollmentColumns...).From("enrollments"), filter).
		OrderBy(orderClauses(ordering, enrollmentOrdering, core.DBOrdering{Field: "enrolled_at"})...)

	enrs := make([]enrollment.Enrollment, 0)
	if err := selectAll(ctx, repo.db, &enrs, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrs, nil
}

func (repo *enrollmentRepository) CountEnrollments(ctx context.Context, filter enrollment.QueryFilter) (int, error) {
	n, err := count(ctx, repo.db, whereEnrollments(psql.Select("count(*)").From("enrollments"), filter))
	return n, errors.Wrap(err, "counting enrollments")
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if !isUUID(id) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var e enrollment.Enrollment
	qb := psql.Select(enrollmentColumns...).From("enrollments").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &e, qb, enrollment.ErrNotFound); err != nil {
		return enrollment.Enrollment{}, err
	}
	return e, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	qb := psql.Update("enrollments").SetMap(map[string]interface{}{
		"status":     e.Status,
		"invoice_id": e.InvoiceID,
		"updated_at": e.UpdatedAt,
	}).Where(sq.Eq{"id": e.ID})
	if err := execOne(ctx, repo.db, qb, enrollment.ErrNotFound); err != nil {
		return enrollment.Enrollment{}, err
	}
	return e, nil
}

// DeleteEnrollment unlinks the invoices of the enrollment (ON DELETE SET NULL).
func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("enrollments").Where(sq.Eq{"id": id}), enrollment.ErrNotFound)
}
