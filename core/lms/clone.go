package lms

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
)

// CloneMostRecentModules deep-copies modules, sections, contents and assignment settings from the
// most recent other class of the same course that has modules. Copies are unpublished and have no
// due dates. The target class must not have modules yet.
func (svc *service) CloneMostRecentModules(ctx context.Context, v Viewer, classID string) ([]Module, error) {
	target, err := svc.courses.GetClass(ctx, classID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrClassNotFound
		}
		return nil, errors.Wrap(err, "getting class")
	}
	level, err := svc.accessTo(ctx, v, target)
	if err != nil {
		return nil, err
	}
	if level == accessNone {
		return nil, ErrClassNotFound
	}
	if err = requireStaff(level); err != nil {
		return nil, err
	}

	var tree []Module
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := svc.repo.QueryModules(ctx, ModuleFilter{ClassIDs: []string{target.ID}})
		if err != nil {
			return errors.Wrap(err, "querying modules")
		}
		if len(existing) > 0 {
			return ErrClassHasModules
		}

		source, err := svc.mostRecentModules(ctx, target)
		if err != nil {
			return err
		}
		srcTree, err := svc.buildTree(ctx, source, false)
		if err != nil {
			return err
		}

		tree, err = svc.copyTree(ctx, target.ID, srcTree)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// mostRecentModules returns the modules of the latest class of the course, other than target, having any.
func (svc *service) mostRecentModules(ctx context.Context, target course.Class) ([]Module, error) {
	classes, err := svc.courses.QueryClasses(ctx, course.ClassFilter{CourseID: target.CourseID}, course.DefaultClassOrdering, core.Pagination{})
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	for _, c := range classes {
		if c.ID == target.ID {
			continue
		}
		mods, err := svc.repo.QueryModules(ctx, ModuleFilter{ClassIDs: []string{c.ID}})
		if err != nil {
			return nil, errors.Wrap(err, "querying modules")
		}
		if len(mods) > 0 {
			return mods, nil
		}
	}
	return nil, ErrNothingToClone
}

func (svc *service) copyTree(ctx context.Context, classID string, src []Module) ([]Module, error) {
	now := core.NowFunc()
	tree := make([]Module, 0, len(src))

	for _, sm := range src {
		mod, err := svc.repo.CreateModule(ctx, Module{
			ID:          uuid.NewString(),
			ClassID:     classID,
			Title:       sm.Title,
			Description: sm.Description,
			Position:    sm.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "copying module")
		}
		mod.Sections = make([]Section, 0, len(sm.Sections))

		for _, ss := range sm.Sections {
			sec, err := svc.repo.CreateSection(ctx, Section{
				ID:        uuid.NewString(),
				ModuleID:  mod.ID,
				Title:     ss.Title,
				Position:  ss.Position,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return nil, errors.Wrap(err, "copying section")
			}
			sec.Contents = make([]Content, 0, len(ss.Contents))

			for _, sc := range ss.Contents {
				cnt := Content{
					ID:        uuid.NewString(),
					SectionID: sec.ID,
					ModuleID:  mod.ID,
					Kind:      sc.Kind,
					Title:     sc.Title,
					Body:      sc.Body,
					URL:       sc.URL,
					Position:  sc.Position,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if sc.Assignment != nil {
					cnt.Assignment = &Assignment{
						ContentID: cnt.ID,
						MaxPoints: sc.Assignment.MaxPoints,
						AllowLate: sc.Assignment.AllowLate,
					}
				}
				if cnt, err = svc.repo.CreateContent(ctx, cnt); err != nil {
					return nil, errors.Wrap(err, "copying content")
				}
				sec.Contents = append(sec.Contents, cnt)
			}
			mod.Sections = append(mod.Sections, sec)
		}
		tree = append(tree, mod)
	}
	return tree, nil
}
