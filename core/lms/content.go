package lms

import (
	"context"

	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// FindAllContent lists the contents v may see, narrowed by q.
// Admins see everything; teachers see the classes they teach; students see the published
// contents of the visible modules of the classes they are enrolled in.
func (svc *service) FindAllContent(ctx context.Context, v Viewer, q ContentQuery) ([]Content, error) {
	levels, err := svc.scope(ctx, v, q)
	if err != nil {
		return nil, err
	}

	mf := ModuleFilter{}
	switch {
	case q.ModuleID != "":
		mf.IDs = []string{q.ModuleID}
	case q.ClassID != "":
		mf.ClassIDs = []string{q.ClassID}
	case levels != nil:
		if len(levels) == 0 {
			return []Content{}, nil
		}
		for id := range levels {
			mf.ClassIDs = append(mf.ClassIDs, id)
		}
	}
	mods, err := svc.repo.QueryModules(ctx, mf)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}

	now := core.NowFunc()
	studentMods := make(map[string]bool)
	modIDs := make([]string, 0, len(mods))
	modRank := make(map[string]int, len(mods))
	for _, m := range mods {
		level := accessStaff
		if levels != nil {
			level = levels[m.ClassID]
		}
		switch {
		case level == accessNone:
			continue
		case level == accessStudent && !m.IsVisible(now):
			continue
		case level == accessStudent:
			studentMods[m.ID] = true
		}
		modRank[m.ID] = len(modIDs)
		modIDs = append(modIDs, m.ID)
	}
	if len(modIDs) == 0 {
		return []Content{}, nil
	}

	cnts, err := svc.repo.QueryContents(ctx, ContentFilter{ModuleIDs: modIDs, SectionID: q.SectionID, Kind: q.Kind})
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	out := make([]Content, 0, len(cnts))
	for _, c := range cnts {
		if studentMods[c.ModuleID] && !c.IsPublished {
			continue
		}
		out = append(out, c)
	}

	secs, err := svc.repo.QuerySections(ctx, modIDs)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	secPos := make(map[string]int, len(secs))
	for _, s := range secs {
		secPos[s.ID] = s.Position
	}
	sortContents(out, modRank, secPos)
	return out, nil
}

// scope resolves the classes covered by q. A nil map means all classes.
// Explicit class, module or section filters the viewer cannot see are reported as not found.
func (svc *service) scope(ctx context.Context, v Viewer, q ContentQuery) (map[string]accessLevel, error) {
	switch {
	case q.SectionID != "":
		_, mod, level, err := svc.sectionAccess(ctx, v, q.SectionID)
		if err != nil {
			return nil, err
		}
		if q.ModuleID != "" && q.ModuleID != mod.ID {
			return map[string]accessLevel{}, nil
		}
		return map[string]accessLevel{mod.ClassID: level}, nil
	case q.ModuleID != "":
		mod, level, err := svc.moduleAccess(ctx, v, q.ModuleID)
		if err != nil {
			return nil, err
		}
		if q.ClassID != "" && q.ClassID != mod.ClassID {
			return map[string]accessLevel{}, nil
		}
		return map[string]accessLevel{mod.ClassID: level}, nil
	case q.ClassID != "":
		level, err := svc.classAccess(ctx, v, q.ClassID)
		if err != nil {
			return nil, err
		}
		if level == accessNone {
			return nil, ErrClassNotFound
		}
		return map[string]accessLevel{q.ClassID: level}, nil
	default:
		return svc.visibleClasses(ctx, v)
	}
}

// FindOneContent returns a content v may see, along with the submissions v may see.
func (svc *service) FindOneContent(ctx context.Context, v Viewer, id string) (Content, error) {
	cnt, _, level, err := svc.contentAccess(ctx, v, id)
	if err != nil {
		return Content{}, err
	}
	if cnt.Kind != KindAssignment {
		return cnt, nil
	}

	filter := SubmissionFilter{ContentIDs: []string{cnt.ID}}
	if level == accessStudent {
		filter.StudentID = v.UserID
	}
	if cnt.Submissions, err = svc.repo.QuerySubmissions(ctx, filter); err != nil {
		return Content{}, errors.Wrap(err, "querying submissions")
	}
	return cnt, nil
}
