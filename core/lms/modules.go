package lms

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

func (svc *service) CreateModule(ctx context.Context, v Viewer, classID string, nm NewModule) (Module, error) {
	level, err := svc.classAccess(ctx, v, classID)
	if err != nil {
		return Module{}, err
	}
	if level == accessNone {
		return Module{}, ErrClassNotFound
	}
	if err = requireStaff(level); err != nil {
		return Module{}, err
	}

	var mod Module
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		pos := nm.Position
		if pos == 0 {
			mods, err := svc.repo.QueryModules(ctx, ModuleFilter{ClassIDs: []string{classID}})
			if err != nil {
				return errors.Wrap(err, "querying modules")
			}
			pos = nextModulePosition(mods)
		}

		now := core.NowFunc()
		mod = Module{
			ID:          uuid.NewString(),
			ClassID:     classID,
			Title:       nm.Title,
			Description: nm.Description,
			Position:    pos,
			IsPublished: nm.IsPublished,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if nm.PublishAt != nil {
			mod.PublishAt = core.TimePtr(nm.PublishAt.UTC())
		}
		mod, err = svc.repo.CreateModule(ctx, mod)
		return err
	})
	if err != nil {
		return Module{}, err
	}
	return mod, nil
}

func (svc *service) ListModules(ctx context.Context, v Viewer, classID string) ([]Module, error) {
	level, err := svc.classAccess(ctx, v, classID)
	if err != nil {
		return nil, err
	}
	if level == accessNone {
		return nil, ErrClassNotFound
	}
	mods, err := svc.repo.QueryModules(ctx, ModuleFilter{ClassIDs: []string{classID}})
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	if level == accessStudent {
		mods = visibleModules(mods)
	}
	return svc.buildTree(ctx, mods, level == accessStudent)
}

func (svc *service) GetModule(ctx context.Context, v Viewer, id string) (Module, error) {
	mod, level, err := svc.moduleAccess(ctx, v, id)
	if err != nil {
		return Module{}, err
	}
	tree, err := svc.buildTree(ctx, []Module{mod}, level == accessStudent)
	if err != nil {
		return Module{}, err
	}
	return tree[0], nil
}

func (svc *service) UpdateModule(ctx context.Context, v Viewer, id string, um UpdateModule) (Module, error) {
	mod, level, err := svc.moduleAccess(ctx, v, id)
	if err != nil {
		return Module{}, err
	}
	if err = requireStaff(level); err != nil {
		return Module{}, err
	}
	mod = um.Apply(mod)
	mod.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateModule(ctx, mod)
}

func (svc *service) DeleteModule(ctx context.Context, v Viewer, id string) error {
	_, level, err := svc.moduleAccess(ctx, v, id)
	if err != nil {
		return err
	}
	if err = requireStaff(level); err != nil {
		return err
	}
	return svc.repo.DeleteModule(ctx, id)
}

func (svc *service) CreateSection(ctx context.Context, v Viewer, moduleID string, ns NewSection) (Section, error) {
	mod, level, err := svc.moduleAccess(ctx, v, moduleID)
	if err != nil {
		return Section{}, err
	}
	if err = requireStaff(level); err != nil {
		return Section{}, err
	}

	var sec Section
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		pos := ns.Position
		if pos == 0 {
			secs, err := svc.repo.QuerySections(ctx, []string{mod.ID})
			if err != nil {
				return errors.Wrap(err, "querying sections")
			}
			for _, s := range secs {
				if s.Position >= pos {
					pos = s.Position
				}
			}
			pos++
		}

		now := core.NowFunc()
		sec, err = svc.repo.CreateSection(ctx, Section{
			ID:        uuid.NewString(),
			ModuleID:  mod.ID,
			Title:     ns.Title,
			Position:  pos,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return Section{}, err
	}
	return sec, nil
}

func (svc *service) UpdateSection(ctx context.Context, v Viewer, id string, us UpdateSection) (Section, error) {
	sec, _, level, err := svc.sectionAccess(ctx, v, id)
	if err != nil {
		return Section{}, err
	}
	if err = requireStaff(level); err != nil {
		return Section{}, err
	}
	sec = us.Apply(sec)
	sec.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSection(ctx, sec)
}

func (svc *service) DeleteSection(ctx context.Context, v Viewer, id string) error {
	_, _, level, err := svc.sectionAccess(ctx, v, id)
	if err != nil {
		return err
	}
	if err = requireStaff(level); err != nil {
		return err
	}
	return svc.repo.DeleteSection(ctx, id)
}

func (svc *service) CreateContent(ctx context.Context, v Viewer, sectionID string, nc NewContent) (Content, error) {
	sec, _, level, err := svc.sectionAccess(ctx, v, sectionID)
	if err != nil {
		return Content{}, err
	}
	if err = requireStaff(level); err != nil {
		return Content{}, err
	}

	var cnt Content
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		pos := nc.Position
		if pos == 0 {
			cnts, err := svc.repo.QueryContents(ctx, ContentFilter{SectionID: sec.ID})
			if err != nil {
				return errors.Wrap(err, "querying contents")
			}
			for _, c := range cnts {
				if c.Position >= pos {
					pos = c.Position
				}
			}
			pos++
		}

		now := core.NowFunc()
		cnt = Content{
			ID:          uuid.NewString(),
			SectionID:   sec.ID,
			ModuleID:    sec.ModuleID,
			Kind:        nc.Kind,
			Title:       nc.Title,
			Body:        nc.Body,
			URL:         nc.URL,
			Position:    pos,
			IsPublished: nc.IsPublished,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if nc.Assignment != nil {
			cnt.Assignment = nc.Assignment.toAssignment(cnt.ID)
		}
		cnt, err = svc.repo.CreateContent(ctx, cnt)
		return err
	})
	if err != nil {
		return Content{}, err
	}
	return cnt, nil
}

func (svc *service) GetContentForUpdate(ctx context.Context, v Viewer, id string) (Content, error) {
	cnt, _, level, err := svc.contentAccess(ctx, v, id)
	if err != nil {
		return Content{}, err
	}
	if err = requireStaff(level); err != nil {
		return Content{}, err
	}
	return cnt, nil
}

func (svc *service) UpdateContent(ctx context.Context, v Viewer, cnt Content, uc UpdateContent) (Content, error) {
	if _, err := svc.GetContentForUpdate(ctx, v, cnt.ID); err != nil {
		return Content{}, err
	}
	cnt = uc.Apply(cnt)
	cnt.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateContent(ctx, cnt)
}

func (svc *service) DeleteContent(ctx context.Context, v Viewer, id string) error {
	if _, err := svc.GetContentForUpdate(ctx, v, id); err != nil {
		return err
	}
	return svc.repo.DeleteContent(ctx, id)
}

// buildTree attaches sections & contents to mods. Students only get published contents.
func (svc *service) buildTree(ctx context.Context, mods []Module, publishedOnly bool) ([]Module, error) {
	if len(mods) == 0 {
		return []Module{}, nil
	}
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}

	secs, err := svc.repo.QuerySections(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	cnts, err := svc.repo.QueryContents(ctx, ContentFilter{ModuleIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}

	bySection := make(map[string][]Content)
	for _, c := range cnts {
		if publishedOnly && !c.IsPublished {
			continue
		}
		bySection[c.SectionID] = append(bySection[c.SectionID], c)
	}
	byModule := make(map[string][]Section)
	for _, s := range secs {
		s.Contents = bySection[s.ID]
		if s.Contents == nil {
			s.Contents = []Content{}
		}
		byModule[s.ModuleID] = append(byModule[s.ModuleID], s)
	}

	tree := make([]Module, len(mods))
	for i, m := range mods {
		m.Sections = byModule[m.ID]
		if m.Sections == nil {
			m.Sections = []Section{}
		}
		tree[i] = m
	}
	return tree, nil
}

func visibleModules(mods []Module) []Module {
	now := core.NowFunc()
	out := make([]Module, 0, len(mods))
	for _, m := range mods {
		if m.IsVisible(now) {
			out = append(out, m)
		}
	}
	return out
}

func nextModulePosition(mods []Module) int {
	var pos int
	for _, m := range mods {
		if m.Position > pos {
			pos = m.Position
		}
	}
	return pos + 1
}

// sortContents orders contents by module, then section, then position.
func sortContents(cnts []Content, modRank map[string]int, secPos map[string]int) {
	sort.SliceStable(cnts, func(i, j int) bool {
		ci, cj := cnts[i], cnts[j]
		if modRank[ci.ModuleID] != modRank[cj.ModuleID] {
			return modRank[ci.ModuleID] < modRank[cj.ModuleID]
		}
		if secPos[ci.SectionID] != secPos[cj.SectionID] {
			return secPos[ci.SectionID] < secPos[cj.SectionID]
		}
		if ci.SectionID != cj.SectionID {
			return ci.SectionID < cj.SectionID
		}
		return ci.Position < cj.Position
	})
}
