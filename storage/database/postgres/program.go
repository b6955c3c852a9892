package pgrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	programColumns = []string{
		"id", "code", "name", "description", "level", "duration_years", "is_active", "created_at", "updated_at",
	}
	programOrdering = map[string]string{
		"code":       "code",
		"name":       "lower(name)",
		"level":      "level",
		"created_at": "created_at",
	}
	majorColumns = []string{
		"id", "program_id", "code", "name", "description", "is_active", "created_at", "updated_at",
	}
	majorOrdering = map[string]string{
		"code":       "code",
		"name":       "lower(name)",
		"created_at": "created_at",
	}
)

type programRepository struct {
	db database.Querier
}

func NewProgramRepository(db database.Querier) program.Repository {
	return &programRepository{db: db}
}

func (repo *programRepository) CheckProgramCode(ctx context.Context, code string, excludedIDs []string) error {
	qb := psql.Select("count(*)").From("programs").Where(sq.Eq{"code": code})
	if len(excludedIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": excludedIDs})
	}
	n, err := count(ctx, repo.db, qb)
	if err != nil {
		return errors.Wrap(err, "checking program code")
	}
	if n > 0 {
		return program.ErrCodeExists
	}
	return nil
}

func (repo *programRepository) CreateProgram(ctx context.Context, p program.Program) (program.Program, error) {
	qb := psql.Insert("programs").Columns(programColumns...).Values(
		p.ID, p.Code, p.Name, p.Description, p.Level, p.DurationYears, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isUniqueViolation(err) {
			return program.Program{}, program.ErrCodeExists
		}
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return p, nil
}

func (repo *programRepository) QueryPrograms(ctx context.Context, filter program.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]program.Program, error) {
	qb := psql.Select(programColumns...).From("programs")
	if filter.Search != "" {
		qb = qb.Where(ilike(filter.Search, "code", "name"))
	}
	if filter.Level != "" {
		qb = qb.Where(sq.Eq{"level": filter.Level})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	qb = qb.OrderBy(orderClauses(ordering, programOrdering, core.DBOrdering{Field: "code", Ascending: true})...)

	progs := make([]program.Program, 0)
	if err := selectAll(ctx, repo.db, &progs, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	return progs, nil
}

func (repo *programRepository) GetProgram(ctx context.Context, id string) (program.Program, error) {
	if !isUUID(id) {
		return program.Program{}, program.ErrNotFound
	}
	var p program.Program
	qb := psql.Select(programColumns...).From("programs").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &p, qb, program.ErrNotFound); err != nil {
		return program.Program{}, err
	}
	return p, nil
}

func (repo *programRepository) UpdateProgram(ctx context.Context, p program.Program) (program.Program, error) {
	qb := psql.Update("programs").SetMap(map[string]interface{}{
		"code":           p.Code,
		"name":           p.Name,
		"description":    p.Description,
		"level":          p.Level,
		"duration_years": p.DurationYears,
		"is_active":      p.IsActive,
		"updated_at":     p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID})
	if err := execOne(ctx, repo.db, qb, program.ErrNotFound); err != nil {
		if isUniqueViolation(err) {
			return program.Program{}, program.ErrCodeExists
		}
		return program.Program{}, err
	}
	return p, nil
}

func (repo *programRepository) DeleteProgram(ctx context.Context, id string) error {
	err := execOne(ctx, repo.db, psql.Delete("programs").Where(sq.Eq{"id": id}), program.ErrNotFound)
	if isForeignKeyViolation(err) {
		return program.ErrProgramHasMajors
	}
	return err
}

func (repo *programRepository) CheckMajorCode(ctx context.Context, programID, code string, excludedIDs []string) error {
	qb := psql.Select("count(*)").From("majors").Where(sq.Eq{"program_id": programID, "code": code})
	if len(excludedIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": excludedIDs})
	}
	n, err := count(ctx, repo.db, qb)
	if err != nil {
		return errors.Wrap(err, "checking major code")
	}
	if n > 0 {
		return program.ErrMajorCodeExists
	}
	return nil
}

func (repo *programRepository) CreateMajor(ctx context.Context, m program.Major) (program.Major, error) {
	qb := psql.Insert("majors").Columns(majorColumns...).Values(
		m.ID, m.ProgramID, m.Code, m.Name, m.Description, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return program.Major{}, program.ErrNotFound
		case isUniqueViolation(err):
			return program.Major{}, program.ErrMajorCodeExists
		}
		return program.Major{}, errors.Wrap(err, "inserting major")
	}
	return m, nil
}

func (repo *programRepository) QueryMajors(ctx context.Context, filter program.MajorFilter, ordering []core.DBOrdering) ([]program.Major, error) {
	qb := psql.Select(majorColumns...).From("majors")
	if filter.ProgramID != "" {
		qb = qb.Where(sq.Eq{"program_id": filter.ProgramID})
	}
	if filter.Search != "" {
		qb = qb.Where(ilike(filter.Search, "code", "name"))
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	qb = qb.OrderBy(orderClauses(ordering, majorOrdering, core.DBOrdering{Field: "code", Ascending: true})...)

	majors := make([]program.Major, 0)
	if err := selectAll(ctx, repo.db, &majors, qb); err != nil {
		return nil, errors.Wrap(err, "querying majors")
	}
	return majors, nil
}

func (repo *programRepository) GetMajor(ctx context.Context, id string) (program.Major, error) {
	if !isUUID(id) {
		return program.Major{}, program.ErrMajorNotFound
	}
	var m program.Major
	qb := psql.Select(majorColumns...).From("majors").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &m, qb, program.ErrMajorNotFound); err != nil {
		return program.Major{}, err
	}
	return m, nil
}

func (repo *programRepository) UpdateMajor(ctx context.Context, m program.Major) (program.Major, error) {
	qb := psql.Update("majors").SetMap(map[string]interface{}{
		"code":        m.Code,
		"name":        m.Name,
		"description": m.Description,
		"is_active":   m.IsActive,
		"updated_at":  m.UpdatedAt,
	}).Where(sq.Eq{"id": m.ID})
	if err := execOne(ctx, repo.db, qb, program.ErrMajorNotFound); err != nil {
		if isUniqueViolation(err) {
			return program.Major{}, program.ErrMajorCodeExists
		}
		return program.Major{}, err
	}
	return m, nil
}

// DeleteMajor also unlinks the major from its courses (course_majors cascades).
func (repo *programRepository) DeleteMajor(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("majors").Where(sq.Eq{"id": id}), program.ErrMajorNotFound)
}
