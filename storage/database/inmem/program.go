package inmemdb

import (
	"context"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
)

var (
	programOrdering = map[string]comparator[program.Program]{
		"code":       func(a, b program.Program) int { return cmpString(a.Code, b.Code) },
		"name":       func(a, b program.Program) int { return cmpFold(a.Name, b.Name) },
		"level":      func(a, b program.Program) int { return cmpString(a.Level, b.Level) },
		"created_at": func(a, b program.Program) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
	majorOrdering = map[string]comparator[program.Major]{
		"code":       func(a, b program.Major) int { return cmpString(a.Code, b.Code) },
		"name":       func(a, b program.Major) int { return cmpFold(a.Name, b.Name) },
		"created_at": func(a, b program.Major) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
)

type programRepository struct {
	db *DB
}

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db}
}

func (repo *programRepository) CheckProgramCode(_ context.Context, code string, excludedIDs []string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.tables.programs {
		if p.Code == code && !core.ContainsString(excludedIDs, p.ID) {
			return program.ErrCodeExists
		}
	}
	return nil
}

func (repo *programRepository) CreateProgram(_ context.Context, p program.Program) (program.Program, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.programs[p.ID] = p
	return p, nil
}

func (repo *programRepository) QueryPrograms(_ context.Context, filter program.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]program.Program, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	progs := make([]program.Program, 0)
	for _, p := range repo.db.tables.programs {
		if !matches(filter.Search, p.Code, p.Name) {
			continue
		}
		if filter.Level != "" && p.Level != filter.Level {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		progs = append(progs, p)
	}
	orderBy(progs, ordering, programOrdering, core.DBOrdering{Field: "code", Ascending: true})
	return core.Paginate(progs, page), nil
}

func (repo *programRepository) GetProgram(_ context.Context, id string) (program.Program, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.tables.programs[id]; ok {
		return p, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) UpdateProgram(_ context.Context, p program.Program) (program.Program, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.programs[p.ID]; !ok {
		return program.Program{}, program.ErrNotFound
	}
	repo.db.tables.programs[p.ID] = p
	return p, nil
}

func (repo *programRepository) DeleteProgram(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.programs[id]; !ok {
		return program.ErrNotFound
	}
	delete(repo.db.tables.programs, id)
	return nil
}

func (repo *programRepository) CheckMajorCode(_ context.Context, programID, code string, excludedIDs []string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, m := range repo.db.tables.majors {
		if m.ProgramID == programID && m.Code == code && !core.ContainsString(excludedIDs, m.ID) {
			return program.ErrMajorCodeExists
		}
	}
	return nil
}

func (repo *programRepository) CreateMajor(_ context.Context, m program.Major) (program.Major, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.programs[m.ProgramID]; !ok {
		return program.Major{}, program.ErrNotFound
	}
	repo.db.tables.majors[m.ID] = m
	return m, nil
}

func (repo *programRepository) QueryMajors(_ context.Context, filter program.MajorFilter, ordering []core.DBOrdering) ([]program.Major, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	majors := make([]program.Major, 0)
	for _, m := range repo.db.tables.majors {
		if filter.ProgramID != "" && m.ProgramID != filter.ProgramID {
			continue
		}
		if !matches(filter.Search, m.Code, m.Name) {
			continue
		}
		if filter.IsActive != nil && m.IsActive != *filter.IsActive {
			continue
		}
		majors = append(majors, m)
	}
	orderBy(majors, ordering, majorOrdering, core.DBOrdering{Field: "code", Ascending: true})
	return majors, nil
}

func (repo *programRepository) GetMajor(_ context.Context, id string) (program.Major, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.tables.majors[id]; ok {
		return m, nil
	}
	return program.Major{}, program.ErrMajorNotFound
}

func (repo *programRepository) UpdateMajor(_ context.Context, m program.Major) (program.Major, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.majors[m.ID]; !ok {
		return program.Major{}, program.ErrMajorNotFound
	}
	repo.db.tables.majors[m.ID] = m
	return m, nil
}

// DeleteMajor also unlinks the major from its courses.
func (repo *programRepository) DeleteMajor(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.majors[id]; !ok {
		return program.ErrMajorNotFound
	}
	delete(repo.db.tables.majors, id)
	for cid, c := range repo.db.tables.courses {
		if !core.ContainsString(c.MajorIDs, id) {
			continue
		}
		ids := make([]string, 0, len(c.MajorIDs)-1)
		for _, mid := range c.MajorIDs {
			if mid != id {
				ids = append(ids, mid)
			}
		}
		c.MajorIDs = ids
		repo.db.tables.courses[cid] = c
	}
	return nil
}
