package inmemdb

import (
	"context"
	"sort"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
)

type lmsRepository struct {
	db *DB
}

func NewLMSRepository(db *DB) lms.Repository {
	return &lmsRepository{db: db}
}

func copyModule(m lms.Module) lms.Module {
	m.Sections = nil
	if m.PublishAt != nil {
		m.PublishAt = core.TimePtr(*m.PublishAt)
	}
	return m
}

func copyContent(c lms.Content) lms.Content {
	c.Submissions = nil
	if c.Assignment != nil {
		a := *c.Assignment
		if a.DueAt != nil {
			a.DueAt = core.TimePtr(*a.DueAt)
		}
		c.Assignment = &a
	}
	return c
}

func copySubmission(s lms.Submission) lms.Submission {
	if s.Grade != nil {
		g := *s.Grade
		s.Grade = &g
	}
	return s
}

func (t tables) deleteModule(id string) {
	delete(t.modules, id)
	for sid, s := range t.sections {
		if s.ModuleID == id {
			t.deleteSection(sid)
		}
	}
}

func (t tables) deleteSection(id string) {
	delete(t.sections, id)
	for cid, c := range t.contents {
		if c.SectionID == id {
			t.deleteContent(cid)
		}
	}
}

func (t tables) deleteContent(id string) {
	delete(t.contents, id)
	for sid, s := range t.submissions {
		if s.ContentID == id {
			delete(t.submissions, sid)
		}
	}
}

func (repo *lmsRepository) CreateModule(_ context.Context, m lms.Module) (lms.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.modules[m.ID] = copyModule(m)
	return copyModule(m), nil
}

func (repo *lmsRepository) QueryModules(_ context.Context, filter lms.ModuleFilter) ([]lms.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mods := make([]lms.Module, 0)
	for _, m := range repo.db.tables.modules {
		if filter.IDs != nil && !core.ContainsString(filter.IDs, m.ID) {
			continue
		}
		if filter.ClassIDs != nil && !core.ContainsString(filter.ClassIDs, m.ClassID) {
			continue
		}
		mods = append(mods, copyModule(m))
	}
	sort.SliceStable(mods, func(i, j int) bool {
		if mods[i].ClassID != mods[j].ClassID {
			return mods[i].ClassID < mods[j].ClassID
		}
		if mods[i].Position != mods[j].Position {
			return mods[i].Position < mods[j].Position
		}
		return mods[i].CreatedAt.Before(mods[j].CreatedAt)
	})
	return mods, nil
}

func (repo *lmsRepository) GetModule(_ context.Context, id string) (lms.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.tables.modules[id]; ok {
		return copyModule(m), nil
	}
	return lms.Module{}, lms.ErrModuleNotFound
}

func (repo *lmsRepository) UpdateModule(_ context.Context, m lms.Module) (lms.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.modules[m.ID]; !ok {
		return lms.Module{}, lms.ErrModuleNotFound
	}
	repo.db.tables.modules[m.ID] = copyModule(m)
	return copyModule(m), nil
}

func (repo *lmsRepository) DeleteModule(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.modules[id]; !ok {
		return lms.ErrModuleNotFound
	}
	repo.db.tables.deleteModule(id)
	return nil
}

func (repo *lmsRepository) CreateSection(_ context.Context, s lms.Section) (lms.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.modules[s.ModuleID]; !ok {
		return lms.Section{}, lms.ErrModuleNotFound
	}
	s.Contents = nil
	repo.db.tables.sections[s.ID] = s
	return s, nil
}

func (repo *lmsRepository) QuerySections(_ context.Context, moduleIDs []string) ([]lms.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	secs := make([]lms.Section, 0)
	for _, s := range repo.db.tables.sections {
		if core.ContainsString(moduleIDs, s.ModuleID) {
			secs = append(secs, s)
		}
	}
	sort.SliceStable(secs, func(i, j int) bool {
		if secs[i].Position != secs[j].Position {
			return secs[i].Position < secs[j].Position
		}
		return secs[i].CreatedAt.Before(secs[j].CreatedAt)
	})
	return secs, nil
}

func (repo *lmsRepository) GetSection(_ context.Context, id string) (lms.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.tables.sections[id]; ok {
		return s, nil
	}
	return lms.Section{}, lms.ErrSectionNotFound
}

func (repo *lmsRepository) UpdateSection(_ context.Context, s lms.Section) (lms.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.sections[s.ID]; !ok {
		return lms.Section{}, lms.ErrSectionNotFound
	}
	s.Contents = nil
	repo.db.tables.sections[s.ID] = s
	return s, nil
}

func (repo *lmsRepository) DeleteSection(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.sections[id]; !ok {
		return lms.ErrSectionNotFound
	}
	repo.db.tables.deleteSection(id)
	return nil
}

func (repo *lmsRepository) CreateContent(_ context.Context, c lms.Content) (lms.Content, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.sections[c.SectionID]; !ok {
		return lms.Content{}, lms.ErrSectionNotFound
	}
	repo.db.tables.contents[c.ID] = copyContent(c)
	return copyContent(c), nil
}

func (repo *lmsRepository) QueryContents(_ context.Context, filter lms.ContentFilter) ([]lms.Content, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cnts := make([]lms.Content, 0)
	for _, c := range repo.db.tables.contents {
		if filter.IDs != nil && !core.ContainsString(filter.IDs, c.ID) {
			continue
		}
		if filter.ModuleIDs != nil && !core.ContainsString(filter.ModuleIDs, c.ModuleID) {
			continue
		}
		if filter.SectionID != "" && c.SectionID != filter.SectionID {
			continue
		}
		if filter.Kind != "" && c.Kind != filter.Kind {
			continue
		}
		cnts = append(cnts, copyContent(c))
	}
	sort.SliceStable(cnts, func(i, j int) bool {
		if cnts[i].Position != cnts[j].Position {
			return cnts[i].Position < cnts[j].Position
		}
		return cnts[i].CreatedAt.Before(cnts[j].CreatedAt)
	})
	return cnts, nil
}

func (repo *lmsRepository) GetContent(_ context.Context, id string) (lms.Content, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.tables.contents[id]; ok {
		return copyContent(c), nil
	}
	return lms.Content{}, lms.ErrContentNotFound
}

func (repo *lmsRepository) UpdateContent(_ context.Context, c lms.Content) (lms.Content, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.contents[c.ID]; !ok {
		return lms.Content{}, lms.ErrContentNotFound
	}
	repo.db.tables.contents[c.ID] = copyContent(c)
	return copyContent(c), nil
}

func (repo *lmsRepository) DeleteContent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.contents[id]; !ok {
		return lms.ErrContentNotFound
	}
	repo.db.tables.deleteContent(id)
	return nil
}

func (repo *lmsRepository) SaveSubmission(_ context.Context, s lms.Submission) (lms.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.contents[s.ContentID]; !ok {
		return lms.Submission{}, lms.ErrContentNotFound
	}
	for id, existing := range repo.db.tables.submissions {
		if existing.ContentID == s.ContentID && existing.StudentID == s.StudentID && id != s.ID {
			delete(repo.db.tables.submissions, id)
			s.ID = id
		}
	}
	repo.db.tables.submissions[s.ID] = copySubmission(s)
	return copySubmission(s), nil
}

func (repo *lmsRepository) QuerySubmissions(_ context.Context, filter lms.SubmissionFilter) ([]lms.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]lms.Submission, 0)
	for _, s := range repo.db.tables.submissions {
		if filter.ContentIDs != nil && !core.ContainsString(filter.ContentIDs, s.ContentID) {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		subs = append(subs, copySubmission(s))
	}
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (repo *lmsRepository) GetSubmission(_ context.Context, id string) (lms.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.tables.submissions[id]; ok {
		return copySubmission(s), nil
	}
	return lms.Submission{}, lms.ErrSubmissionNotFound
}
