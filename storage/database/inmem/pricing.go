package inmemdb

import (
	"context"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
)

var feeOrdering = map[string]comparator[pricing.Fee]{
	"name":          func(a, b pricing.Fee) int { return cmpFold(a.Name, b.Name) },
	"kind":          func(a, b pricing.Fee) int { return cmpString(a.Kind, b.Kind) },
	"amount":        func(a, b pricing.Fee) int { return cmpInt(a.Amount, b.Amount) },
	"academic_year": func(a, b pricing.Fee) int { return cmpString(a.AcademicYear, b.AcademicYear) },
	"created_at":    func(a, b pricing.Fee) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type feeRepository struct {
	db *DB
}

func NewFeeRepository(db *DB) pricing.Repository {
	return &feeRepository{db: db}
}

func copyFee(f pricing.Fee) pricing.Fee {
	if f.CourseID != nil {
		id := *f.CourseID
		f.CourseID = &id
	}
	return f
}

func (repo *feeRepository) CreateFee(_ context.Context, f pricing.Fee) (pricing.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.fees[f.ID] = copyFee(f)
	return f, nil
}

func (repo *feeRepository) QueryFees(_ context.Context, filter pricing.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]pricing.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fees := make([]pricing.Fee, 0)
	for _, f := range repo.db.tables.fees {
		if filter.AcademicYear != "" && f.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.CourseID != "" {
			bound := f.CourseID != nil && *f.CourseID == filter.CourseID
			global := f.CourseID == nil
			if !bound && !(filter.ForCourse && global) {
				continue
			}
		}
		if filter.Kind != "" && f.Kind != filter.Kind {
			continue
		}
		if filter.IsActive != nil && f.IsActive != *filter.IsActive {
			continue
		}
		fees = append(fees, copyFee(f))
	}
	orderBy(fees, ordering, feeOrdering, core.DBOrdering{Field: "academic_year"}, core.DBOrdering{Field: "name", Ascending: true})
	return core.Paginate(fees, page), nil
}

func (repo *feeRepository) GetFee(_ context.Context, id string) (pricing.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.tables.fees[id]; ok {
		return copyFee(f), nil
	}
	return pricing.Fee{}, pricing.ErrNotFound
}

func (repo *feeRepository) UpdateFee(_ context.Context, f pricing.Fee) (pricing.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.fees[f.ID]; !ok {
		return pricing.Fee{}, pricing.ErrNotFound
	}
	repo.db.tables.fees[f.ID] = copyFee(f)
	return f, nil
}

func (repo *feeRepository) DeleteFee(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.fees[id]; !ok {
		return pricing.ErrNotFound
	}
	delete(repo.db.tables.fees, id)
	return nil
}
