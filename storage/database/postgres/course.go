package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	courseColumns  = []string{"id", "code", "name", "description", "units", "is_active", "created_at", "updated_at"}
	courseOrdering = map[string]string{
		"code":       "code",
		"name":       "lower(name)",
		"units":      "units",
		"created_at": "created_at",
	}
	classColumns = []string{
		"id", "course_id", "teacher_id", "name", "academic_year", "term", "capacity",
		"start_date", "end_date", "is_archived", "created_at", "updated_at",
	}
	classOrdering = map[string]string{
		"name":          "lower(name)",
		"academic_year": "academic_year",
		"start_date":    "start_date",
		"end_date":      "end_date",
		"created_at":    "created_at",
	}
)

const courseMajorIDs = "ARRAY(SELECT major_id::text FROM course_majors cm WHERE cm.course_id = courses.id ORDER BY major_id) AS major_ids"

type courseRow struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Units       int       `db:"units"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	MajorIDs    []string  `db:"major_ids"`
}

func (r courseRow) toCourse() course.Course {
	c := course.Course{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Units:       r.Units,
		MajorIDs:    r.MajorIDs,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if c.MajorIDs == nil {
		c.MajorIDs = []string{}
	}
	return c
}

type courseRepository struct {
	db database.Querier
}

func NewCourseRepository(db database.Querier) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) selectCourses() sq.SelectBuilder {
	return psql.Select(append(append([]string{}, courseColumns...), courseMajorIDs)...).From("courses")
}

func (repo *courseRepository) CheckCourseCode(ctx context.Context, code string, excludedIDs []string) error {
	qb := psql.Select("count(*)").From("courses").Where(sq.Eq{"code": code})
	if len(excludedIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": excludedIDs})
	}
	n, err := count(ctx, repo.db, qb)
	if err != nil {
		return errors.Wrap(err, "checking course code")
	}
	if n > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) setMajors(ctx context.Context, courseID string, majorIDs []string) error {
	if _, err := exec(ctx, repo.db, psql.Delete("course_majors").Where(sq.Eq{"course_id": courseID})); err != nil {
		return errors.Wrap(err, "unlinking majors")
	}
	if len(majorIDs) == 0 {
		return nil
	}
	ins := psql.Insert("course_majors").Columns("course_id", "major_id")
	for _, mid := range majorIDs {
		ins = ins.Values(courseID, mid)
	}
	_, err := exec(ctx, repo.db, ins)
	return errors.Wrap(err, "linking majors")
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := withinTx(ctx, repo.db, func(ctx context.Context) error {
		qb := psql.Insert("courses").Columns(courseColumns...).Values(
			c.ID, c.Code, c.Name, c.Description, c.Units, c.IsActive, c.CreatedAt, c.UpdatedAt,
		)
		if _, err := exec(ctx, repo.db, qb); err != nil {
			if isUniqueViolation(err) {
				return course.ErrCodeExists
			}
			return errors.Wrap(err, "inserting course")
		}
		return repo.setMajors(ctx, c.ID, c.MajorIDs)
	})
	if err != nil {
		return course.Course{}, err
	}
	if c.MajorIDs == nil {
		c.MajorIDs = []string{}
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Course, error) {
	qb := repo.selectCourses()
	if filter.Search != "" {
		qb = qb.Where(ilike(filter.Search, "code", "name"))
	}
	if filter.MajorID != "" {
		qb = qb.Where("EXISTS (SELECT 1 FROM course_majors cm WHERE cm.course_id = courses.id AND cm.major_id = ?)", filter.MajorID)
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	qb = qb.OrderBy(orderClauses(ordering, courseOrdering, core.DBOrdering{Field: "code", Ascending: true})...)

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := getOne(ctx, repo.db, &row, repo.selectCourses().Where(sq.Eq{"id": id}), course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := withinTx(ctx, repo.db, func(ctx context.Context) error {
		qb := psql.Update("courses").SetMap(map[string]interface{}{
			"code":        c.Code,
			"name":        c.Name,
			"description": c.Description,
			"units":       c.Units,
			"is_active":   c.IsActive,
			"updated_at":  c.UpdatedAt,
		}).Where(sq.Eq{"id": c.ID})
		if err := execOne(ctx, repo.db, qb, course.ErrNotFound); err != nil {
			if isUniqueViolation(err) {
				return course.ErrCodeExists
			}
			return err
		}
		return repo.setMajors(ctx, c.ID, c.MajorIDs)
	})
	if err != nil {
		return course.Course{}, err
	}
	if c.MajorIDs == nil {
		c.MajorIDs = []string{}
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	err := execOne(ctx, repo.db, psql.Delete("courses").Where(sq.Eq{"id": id}), course.ErrNotFound)
	if isForeignKeyViolation(err) {
		return course.ErrCourseHasClass
	}
	return err
}

func (repo *courseRepository) CreateClass(ctx context.Context, c course.Class) (course.Class, error) {
	qb := psql.Insert("classes").Columns(classColumns...).Values(
		c.ID, c.CourseID, c.TeacherID, c.Name, c.AcademicYear, c.Term, c.Capacity,
		c.StartDate, c.EndDate, c.IsArchived, c.CreatedAt, c.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isForeignKeyViolation(err) {
			return course.Class{}, course.ErrNotFound
		}
		return course.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *courseRepository) QueryClasses(ctx context.Context, filter course.ClassFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Class, error) {
	qb := psql.Select(classColumns...).From("classes")
	if filter.IDs != nil {
		qb = qb.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.CourseID != "" {
		qb = qb.Where(sq.Eq{"course_id": filter.CourseID})
	}
	if filter.TeacherID != "" {
		qb = qb.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	if filter.AcademicYear != "" {
		qb = qb.Where(sq.Eq{"academic_year": filter.AcademicYear})
	}
	if filter.IsArchived != nil {
		qb = qb.Where(sq.Eq{"is_archived": *filter.IsArchived})
	}
	qb = qb.OrderBy(orderClauses(ordering, classOrdering, course.DefaultClassOrdering...)...)

	classes := make([]course.Class, 0)
	if err := selectAll(ctx, repo.db, &classes, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *courseRepository) GetClass(ctx context.Context, id string) (course.Class, error) {
	if !isUUID(id) {
		return course.Class{}, course.ErrClassNotFound
	}
	var c course.Class
	qb := psql.Select(classColumns...).From("classes").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &c, qb, course.ErrClassNotFound); err != nil {
		return course.Class{}, err
	}
	return c, nil
}

func (repo *courseRepository) GetClassForUpdate(ctx context.Context, id string) (course.Class, error) {
	if !isUUID(id) {
		return course.Class{}, course.ErrClassNotFound
	}
	var c course.Class
	qb := psql.Select(classColumns...).From("classes").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")
	if err := getOne(ctx, repo.db, &c, qb, course.ErrClassNotFound); err != nil {
		return course.Class{}, err
	}
	return c, nil
}

func (repo *courseRepository) UpdateClass(ctx context.Context, c course.Class) (course.Class, error) {
	qb := psql.Update("classes").SetMap(map[string]interface{}{
		"teacher_id":    c.TeacherID,
		"name":          c.Name,
		"academic_year": c.AcademicYear,
		"term":          c.Term,
		"capacity":      c.Capacity,
		"start_date":    c.StartDate,
		"end_date":      c.EndDate,
		"is_archived":   c.IsArchived,
		"updated_at":    c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID})
	if err := execOne(ctx, repo.db, qb, course.ErrClassNotFound); err != nil {
		return course.Class{}, err
	}
	return c, nil
}

// DeleteClass also deletes the modules of the class (cascade).
func (repo *courseRepository) DeleteClass(ctx context.Context, id string) error {
	err := execOne(ctx, repo.db, psql.Delete("classes").Where(sq.Eq{"id": id}), course.ErrClassNotFound)
	if isForeignKeyViolation(err) {
		return course.ErrClassInUse
	}
	return err
}
