package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	moduleColumns = []string{
		"id", "class_id", "title", "description", "position", "is_published", "publish_at", "created_at", "updated_at",
	}
	sectionColumns = []string{"id", "module_id", "title", "position", "created_at", "updated_at"}
	contentColumns = []string{
		"id", "section_id", "module_id", "kind", "title", "body", "url", "position", "is_published", "created_at", "updated_at",
	}
	submissionColumns = []string{
		"id", "content_id", "student_id", "body", "url", "status", "is_late", "submitted_at", "updated_at",
		"points", "feedback", "graded_by", "graded_at",
	}
)

type contentRow struct {
	ID          string     `db:"id"`
	SectionID   string     `db:"section_id"`
	ModuleID    string     `db:"module_id"`
	Kind        string     `db:"kind"`
	Title       string     `db:"title"`
	Body        string     `db:"body"`
	URL         string     `db:"url"`
	Position    int        `db:"position"`
	IsPublished bool       `db:"is_published"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	MaxPoints   *int       `db:"max_points"`
	DueAt       *time.Time `db:"due_at"`
	AllowLate   *bool      `db:"allow_late"`
}

func (r contentRow) toContent() lms.Content {
	c := lms.Content{
		ID:          r.ID,
		SectionID:   r.SectionID,
		ModuleID:    r.ModuleID,
		Kind:        r.Kind,
		Title:       r.Title,
		Body:        r.Body,
		URL:         r.URL,
		Position:    r.Position,
		IsPublished: r.IsPublished,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.MaxPoints != nil {
		c.Assignment = &lms.Assignment{ContentID: r.ID, MaxPoints: *r.MaxPoints}
		if r.DueAt != nil {
			due := r.DueAt.UTC()
			c.Assignment.DueAt = &due
		}
		if r.AllowLate != nil {
			c.Assignment.AllowLate = *r.AllowLate
		}
	}
	return c
}

type submissionRow struct {
	ID          string     `db:"id"`
	ContentID   string     `db:"content_id"`
	StudentID   string     `db:"student_id"`
	Body        string     `db:"body"`
	URL         string     `db:"url"`
	Status      string     `db:"status"`
	IsLate      bool       `db:"is_late"`
	SubmittedAt time.Time  `db:"submitted_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	Points      *int       `db:"points"`
	Feedback    string     `db:"feedback"`
	GradedBy    *string    `db:"graded_by"`
	GradedAt    *time.Time `db:"graded_at"`
}

func (r submissionRow) toSubmission() lms.Submission {
	s := lms.Submission{
		ID:          r.ID,
		ContentID:   r.ContentID,
		StudentID:   r.StudentID,
		Body:        r.Body,
		URL:         r.URL,
		Status:      r.Status,
		IsLate:      r.IsLate,
		SubmittedAt: r.SubmittedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.Points != nil {
		s.Grade = &lms.Grade{Points: *r.Points, Feedback: r.Feedback}
		if r.GradedBy != nil {
			s.Grade.GradedBy = *r.GradedBy
		}
		if r.GradedAt != nil {
			s.Grade.GradedAt = r.GradedAt.UTC()
		}
	}
	return s
}

// gradeValues returns the points, feedback, graded_by & graded_at of s.
func gradeValues(s lms.Submission) (points *int, feedback string, gradedBy *string, gradedAt *time.Time) {
	if s.Grade == nil {
		return nil, "", nil, nil
	}
	g := *s.Grade
	return &g.Points, g.Feedback, &g.GradedBy, &g.GradedAt
}

type lmsRepository struct {
	db database.Querier
}

func NewLMSRepository(db database.Querier) lms.Repository {
	return &lmsRepository{db: db}
}

func (repo *lmsRepository) CreateModule(ctx context.Context, m lms.Module) (lms.Module, error) {
	qb := psql.Insert("modules").Columns(moduleColumns...).Values(
		m.ID, m.ClassID, m.Title, m.Description, m.Position, m.IsPublished, m.PublishAt, m.CreatedAt, m.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isForeignKeyViolation(err) {
			return lms.Module{}, lms.ErrClassNotFound
		}
		return lms.Module{}, errors.Wrap(err, "inserting module")
	}
	m.Sections = nil
	return m, nil
}

func (repo *lmsRepository) QueryModules(ctx context.Context, filter lms.ModuleFilter) ([]lms.Module, error) {
	qb := psql.Select(moduleColumns...).From("modules")
	if filter.IDs != nil {
		qb = qb.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.ClassIDs != nil {
		qb = qb.Where(sq.Eq{"class_id": filter.ClassIDs})
	}
	qb = qb.OrderBy("class_id", "position", "created_at")

	mods := make([]lms.Module, 0)
	if err := selectAll(ctx, repo.db, &mods, qb); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return mods, nil
}

func (repo *lmsRepository) GetModule(ctx context.Context, id string) (lms.Module, error) {
	if !isUUID(id) {
		return lms.Module{}, lms.ErrModuleNotFound
	}
	var m lms.Module
	qb := psql.Select(moduleColumns...).From("modules").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &m, qb, lms.ErrModuleNotFound); err != nil {
		return lms.Module{}, err
	}
	return m, nil
}

func (repo *lmsRepository) UpdateModule(ctx context.Context, m lms.Module) (lms.Module, error) {
	qb := psql.Update("modules").SetMap(map[string]interface{}{
		"title":        m.Title,
		"description":  m.Description,
		"position":     m.Position,
		"is_published": m.IsPublished,
		"publish_at":   m.PublishAt,
		"updated_at":   m.UpdatedAt,
	}).Where(sq.Eq{"id": m.ID})
	if err := execOne(ctx, repo.db, qb, lms.ErrModuleNotFound); err != nil {
		return lms.Module{}, err
	}
	m.Sections = nil
	return m, nil
}

// DeleteModule cascades to sections, contents, assignments & submissions.
func (repo *lmsRepository) DeleteModule(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("modules").Where(sq.Eq{"id": id}), lms.ErrModuleNotFound)
}

func (repo *lmsRepository) CreateSection(ctx context.Context, s lms.Section) (lms.Section, error) {
	qb := psql.Insert("sections").Columns(sectionColumns...).Values(
		s.ID, s.ModuleID, s.Title, s.Position, s.CreatedAt, s.UpdatedAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isForeignKeyViolation(err) {
			return lms.Section{}, lms.ErrModuleNotFound
		}
		return lms.Section{}, errors.Wrap(err, "inserting section")
	}
	s.Contents = nil
	return s, nil
}

func (repo *lmsRepository) QuerySections(ctx context.Context, moduleIDs []string) ([]lms.Section, error) {
	secs := make([]lms.Section, 0)
	if len(moduleIDs) == 0 {
		return secs, nil
	}
	qb := psql.Select(sectionColumns...).From("sections").
		Where(sq.Eq{"module_id": moduleIDs}).
		OrderBy("position", "created_at")
	if err := selectAll(ctx, repo.db, &secs, qb); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	return secs, nil
}

func (repo *lmsRepository) GetSection(ctx context.Context, id string) (lms.Section, error) {
	if !isUUID(id) {
		return lms.Section{}, lms.ErrSectionNotFound
	}
	var s lms.Section
	qb := psql.Select(sectionColumns...).From("sections").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &s, qb, lms.ErrSectionNotFound); err != nil {
		return lms.Section{}, err
	}
	return s, nil
}

func (repo *lmsRepository) UpdateSection(ctx context.Context, s lms.Section) (lms.Section, error) {
	qb := psql.Update("sections").SetMap(map[string]interface{}{
		"title":      s.Title,
		"position":   s.Position,
		"updated_at": s.UpdatedAt,
	}).Where(sq.Eq{"id": s.ID})
	if err := execOne(ctx, repo.db, qb, lms.ErrSectionNotFound); err != nil {
		return lms.Section{}, err
	}
	s.Contents = nil
	return s, nil
}

func (repo *lmsRepository) DeleteSection(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("sections").Where(sq.Eq{"id": id}), lms.ErrSectionNotFound)
}

func (repo *lmsRepository) saveAssignment(ctx context.Context, contentID string, a *lms.Assignment) error {
	if a == nil {
		_, err := exec(ctx, repo.db, psql.Delete("assignments").Where(sq.Eq{"content_id": contentID}))
		return errors.Wrap(err, "deleting assignment")
	}
	qb := psql.Insert("assignments").Columns("content_id", "max_points", "due_at", "allow_late").
		Values(contentID, a.MaxPoints, a.DueAt, a.AllowLate).
		Suffix("ON CONFLICT (content_id) DO UPDATE SET max_points = EXCLUDED.max_points, " +
			"due_at = EXCLUDED.due_at, allow_late = EXCLUDED.allow_late")
	_, err := exec(ctx, repo.db, qb)
	return errors.Wrap(err, "saving assignment")
}

func (repo *lmsRepository) CreateContent(ctx context.Context, c lms.Content) (lms.Content, error) {
	err := withinTx(ctx, repo.db, func(ctx context.Context) error {
		qb := psql.Insert("contents").Columns(contentColumns...).Values(
			c.ID, c.SectionID, c.ModuleID, c.Kind, c.Title, c.Body, c.URL, c.Position, c.IsPublished, c.CreatedAt, c.UpdatedAt,
		)
		if _, err := exec(ctx, repo.db, qb); err != nil {
			if isForeignKeyViolation(err) {
				return lms.ErrSectionNotFound
			}
			return errors.Wrap(err, "inserting content")
		}
		if c.Assignment == nil {
			return nil
		}
		return repo.saveAssignment(ctx, c.ID, c.Assignment)
	})
	if err != nil {
		return lms.Content{}, err
	}
	c.Submissions = nil
	return c, nil
}

func (repo *lmsRepository) selectContents() sq.SelectBuilder {
	cols := make([]string, 0, len(contentColumns)+3)
	for _, col := range contentColumns {
		cols = append(cols, "c."+col)
	}
	cols = append(cols, "a.max_points", "a.due_at", "a.allow_late")
	return psql.Select(cols...).From("contents c").LeftJoin("assignments a ON a.content_id = c.id")
}

func (repo *lmsRepository) QueryContents(ctx context.Context, filter lms.ContentFilter) ([]lms.Content, error) {
	qb := repo.selectContents()
	if filter.IDs != nil {
		qb = qb.Where(sq.Eq{"c.id": filter.IDs})
	}
	if filter.ModuleIDs != nil {
		qb = qb.Where(sq.Eq{"c.module_id": filter.ModuleIDs})
	}
	if filter.SectionID != "" {
		if !isUUID(filter.SectionID) {
			return []lms.Content{}, nil
		}
		qb = qb.Where(sq.Eq{"c.section_id": filter.SectionID})
	}
	if filter.Kind != "" {
		qb = qb.Where(sq.Eq{"c.kind": filter.Kind})
	}
	qb = qb.OrderBy("c.position", "c.created_at")

	var rows []contentRow
	if err := selectAll(ctx, repo.db, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	cnts := make([]lms.Content, 0, len(rows))
	for _, r := range rows {
		cnts = append(cnts, r.toContent())
	}
	return cnts, nil
}

func (repo *lmsRepository) GetContent(ctx context.Context, id string) (lms.Content, error) {
	if !isUUID(id) {
		return lms.Content{}, lms.ErrContentNotFound
	}
	var row contentRow
	if err := getOne(ctx, repo.db, &row, repo.selectContents().Where(sq.Eq{"c.id": id}), lms.ErrContentNotFound); err != nil {
		return lms.Content{}, err
	}
	return row.toContent(), nil
}

func (repo *lmsRepository) UpdateContent(ctx context.Context, c lms.Content) (lms.Content, error) {
	err := withinTx(ctx, repo.db, func(ctx context.Context) error {
		qb := psql.Update("contents").SetMap(map[string]interface{}{
			"title":        c.Title,
			"body":         c.Body,
			"url":          c.URL,
			"position":     c.Position,
			"is_published": c.IsPublished,
			"updated_at":   c.UpdatedAt,
		}).Where(sq.Eq{"id": c.ID})
		if err := execOne(ctx, repo.db, qb, lms.ErrContentNotFound); err != nil {
			return err
		}
		return repo.saveAssignment(ctx, c.ID, c.Assignment)
	})
	if err != nil {
		return lms.Content{}, err
	}
	c.Submissions = nil
	return c, nil
}

func (repo *lmsRepository) DeleteContent(ctx context.Context, id string) error {
	return execOne(ctx, repo.db, psql.Delete("contents").Where(sq.Eq{"id": id}), lms.ErrContentNotFound)
}

// SaveSubmission keeps the id of the submission it replaces.
func (repo *lmsRepository) SaveSubmission(ctx context.Context, s lms.Submission) (lms.Submission, error) {
	points, feedback, gradedBy, gradedAt := gradeValues(s)
	query, args, err := psql.Insert("submissions").Columns(submissionColumns...).Values(
		s.ID, s.ContentID, s.StudentID, s.Body, s.URL, s.Status, s.IsLate, s.SubmittedAt, s.UpdatedAt,
		points, feedback, gradedBy, gradedAt,
	).Suffix(
		"ON CONFLICT (content_id, student_id) DO UPDATE SET body = EXCLUDED.body, url = EXCLUDED.url, " +
			"status = EXCLUDED.status, is_late = EXCLUDED.is_late, submitted_at = EXCLUDED.submitted_at, " +
			"updated_at = EXCLUDED.updated_at, points = EXCLUDED.points, feedback = EXCLUDED.feedback, " +
			"graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at RETURNING id",
	).ToSql()
	if err != nil {
		return lms.Submission{}, errors.Wrap(err, "building query")
	}
	if err = database.Conn(ctx, repo.db).QueryRow(ctx, query, args...).Scan(&s.ID); err != nil {
		if isForeignKeyViolation(err) {
			return lms.Submission{}, lms.ErrContentNotFound
		}
		return lms.Submission{}, errors.Wrap(err, "saving submission")
	}
	return s, nil
}

func (repo *lmsRepository) QuerySubmissions(ctx context.Context, filter lms.SubmissionFilter) ([]lms.Submission, error) {
	qb := psql.Select(submissionColumns...).From("submissions")
	if filter.ContentIDs != nil {
		qb = qb.Where(sq.Eq{"content_id": filter.ContentIDs})
	}
	if filter.StudentID != "" {
		if !isUUID(filter.StudentID) {
			return []lms.Submission{}, nil
		}
		qb = qb.Where(sq.Eq{"student_id": filter.StudentID})
	}
	qb = qb.OrderBy("submitted_at", "id")

	var rows []submissionRow
	if err := selectAll(ctx, repo.db, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]lms.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}

func (repo *lmsRepository) GetSubmission(ctx context.Context, id string) (lms.Submission, error) {
	if !isUUID(id) {
		return lms.Submission{}, lms.ErrSubmissionNotFound
	}
	var row submissionRow
	qb := psql.Select(submissionColumns...).From("submissions").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &row, qb, lms.ErrSubmissionNotFound); err != nil {
		return lms.Submission{}, err
	}
	return row.toSubmission(), nil
}
