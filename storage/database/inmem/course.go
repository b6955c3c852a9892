package inmemdb

import (
	"context"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
)

var (
	courseOrdering = map[string]comparator[course.Course]{
		"code":       func(a, b course.Course) int { return cmpString(a.Code, b.Code) },
		"name":       func(a, b course.Course) int { return cmpFold(a.Name, b.Name) },
		"units":      func(a, b course.Course) int { return cmpInt(int64(a.Units), int64(b.Units)) },
		"created_at": func(a, b course.Course) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
	classOrdering = map[string]comparator[course.Class]{
		"name":          func(a, b course.Class) int { return cmpFold(a.Name, b.Name) },
		"academic_year": func(a, b course.Class) int { return cmpString(a.AcademicYear, b.AcademicYear) },
		"start_date":    func(a, b course.Class) int { return cmpTime(a.StartDate, b.StartDate) },
		"end_date":      func(a, b course.Class) int { return cmpTime(a.EndDate, b.EndDate) },
		"created_at":    func(a, b course.Class) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func copyCourse(c course.Course) course.Course {
	c.MajorIDs = copyStrings(c.MajorIDs)
	if c.MajorIDs == nil {
		c.MajorIDs = []string{}
	}
	return c
}

func (repo *courseRepository) CheckCourseCode(_ context.Context, code string, excludedIDs []string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.tables.courses {
		if c.Code == code && !core.ContainsString(excludedIDs, c.ID) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c = copyCourse(c)
	repo.db.tables.courses[c.ID] = c
	return copyCourse(c), nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.tables.courses {
		if !matches(filter.Search, c.Code, c.Name) {
			continue
		}
		if filter.MajorID != "" && !core.ContainsString(c.MajorIDs, filter.MajorID) {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		courses = append(courses, copyCourse(c))
	}
	orderBy(courses, ordering, courseOrdering, core.DBOrdering{Field: "code", Ascending: true})
	return core.Paginate(courses, page), nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.tables.courses[id]; ok {
		return copyCourse(c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	c = copyCourse(c)
	repo.db.tables.courses[c.ID] = c
	return copyCourse(c), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.tables.courses, id)
	return nil
}

func (repo *courseRepository) CreateClass(_ context.Context, c course.Class) (course.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.courses[c.CourseID]; !ok {
		return course.Class{}, course.ErrNotFound
	}
	repo.db.tables.classes[c.ID] = c
	return c, nil
}

func (repo *courseRepository) QueryClasses(_ context.Context, filter course.ClassFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]course.Class, 0)
	for _, c := range repo.db.tables.classes {
		if filter.IDs != nil && !core.ContainsString(filter.IDs, c.ID) {
			continue
		}
		if filter.CourseID != "" && c.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.AcademicYear != "" && c.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.IsArchived != nil && c.IsArchived != *filter.IsArchived {
			continue
		}
		classes = append(classes, c)
	}
	orderBy(classes, ordering, classOrdering, course.DefaultClassOrdering...)
	return core.Paginate(classes, page), nil
}

func (repo *courseRepository) GetClass(_ context.Context, id string) (course.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.tables.classes[id]; ok {
		return c, nil
	}
	return course.Class{}, course.ErrClassNotFound
}

// GetClassForUpdate needs no lock: the in-memory transactor already serializes transactions.
func (repo *courseRepository) GetClassForUpdate(ctx context.Context, id string) (course.Class, error) {
	return repo.GetClass(ctx, id)
}

func (repo *courseRepository) UpdateClass(_ context.Context, c course.Class) (course.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.classes[c.ID]; !ok {
		return course.Class{}, course.ErrClassNotFound
	}
	repo.db.tables.classes[c.ID] = c
	return c, nil
}

// DeleteClass also deletes the modules of the class.
func (repo *courseRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.classes[id]; !ok {
		return course.ErrClassNotFound
	}
	for _, e := range repo.db.tables.enrollments {
		if e.ClassID == id {
			return course.ErrClassInUse
		}
	}
	delete(repo.db.tables.classes, id)
	for mid, m := range repo.db.tables.modules {
		if m.ClassID == id {
			repo.db.tables.deleteModule(mid)
		}
	}
	return nil
}
