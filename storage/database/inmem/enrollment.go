package inmemdb

import (
	"context"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
)

var enrollmentOrdering = map[string]comparator[enrollment.Enrollment]{
	"status":      func(a, b enrollment.Enrollment) int { return cmpString(a.Status, b.Status) },
	"enrolled_at": func(a, b enrollment.Enrollment) int { return cmpTime(a.EnrolledAt, b.EnrolledAt) },
	"updated_at":  func(a, b enrollment.Enrollment) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if e.IsActive() {
		for _, other := range repo.db.tables.enrollments {
			if other.StudentID == e.StudentID && other.ClassID == e.ClassID && other.IsActive() {
				return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
			}
		}
	}
	repo.db.tables.enrollments[e.ID] = e
	return e, nil
}

func (repo *enrollmentRepository) filter(filter enrollment.QueryFilter) []enrollment.Enrollment {
	enrs := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.tables.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && e.ClassID != filter.ClassID {
			continue
		}
		if filter.ClassIDs != nil && !core.ContainsString(filter.ClassIDs, e.ClassID) {
			continue
		}
		if len(filter.Statuses) > 0 && !core.ContainsString(filter.Statuses, e.Status) {
			continue
		}
		enrs = append(enrs, e)
	}
	return enrs
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := repo.filter(filter)
	orderBy(enrs, ordering, enrollmentOrdering, core.DBOrdering{Field: "enrolled_at"})
	return core.Paginate(enrs, page), nil
}

func (repo *enrollmentRepository) CountEnrollments(_ context.Context, filter enrollment.QueryFilter) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.tables.enrollments[id]; ok {
		return e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.enrollments[e.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.tables.enrollments[e.ID] = e
	return e, nil
}

// DeleteEnrollment unlinks the invoices of the enrollment.
func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.tables.enrollments, id)
	for iid, inv := range repo.db.tables.invoices {
		if inv.EnrollmentID != nil && *inv.EnrollmentID == id {
			inv.EnrollmentID = nil
			repo.db.tables.invoices[iid] = inv
		}
	}
	return nil
}
