package lms

import (
	"context"

	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
)

type accessLevel int

const (
	accessNone accessLevel = iota
	// accessStudent sees published material only, and only its own submissions.
	accessStudent
	// accessStaff is an admin or the teacher of the class.
	accessStaff
)

// classAccess resolves what v may do in classID.
func (svc *service) classAccess(ctx context.Context, v Viewer, classID string) (accessLevel, error) {
	class, err := svc.courses.GetClass(ctx, classID)
	if err != nil {
		if core.IsNotFound(err) {
			return accessNone, nil
		}
		return accessNone, errors.Wrap(err, "getting class")
	}
	return svc.accessTo(ctx, v, class)
}

func (svc *service) accessTo(ctx context.Context, v Viewer, class course.Class) (accessLevel, error) {
	if v.IsAdmin || (v.IsTeacher && class.TeacherID == v.UserID) {
		return accessStaff, nil
	}
	if v.IsStudent {
		ok, err := svc.enrollments.IsEnrolled(ctx, v.UserID, class.ID)
		if err != nil {
			return accessNone, errors.Wrap(err, "checking enrollment")
		}
		if ok {
			return accessStudent, nil
		}
	}
	return accessNone, nil
}

// visibleClasses maps every class v may read to its access level.
// A nil map with no error means every class (admins).
func (svc *service) visibleClasses(ctx context.Context, v Viewer) (map[string]accessLevel, error) {
	if v.IsAdmin {
		return nil, nil
	}
	levels := make(map[string]accessLevel)
	if v.IsStudent {
		ids, err := svc.enrollments.ClassIDs(ctx, v.UserID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			levels[id] = accessStudent
		}
	}
	if v.IsTeacher {
		classes, err := svc.courses.QueryClasses(ctx, course.ClassFilter{TeacherID: v.UserID}, nil, core.Pagination{})
		if err != nil {
			return nil, errors.Wrap(err, "querying classes")
		}
		for _, c := range classes {
			levels[c.ID] = accessStaff
		}
	}
	return levels, nil
}

// moduleAccess returns the module and the level of v in its class.
// Modules v cannot see are reported as not found.
func (svc *service) moduleAccess(ctx context.Context, v Viewer, moduleID string) (Module, accessLevel, error) {
	mod, err := svc.repo.GetModule(ctx, moduleID)
	if err != nil {
		return Module{}, accessNone, err
	}
	level, err := svc.classAccess(ctx, v, mod.ClassID)
	if err != nil {
		return Module{}, accessNone, err
	}
	if level == accessNone || (level == accessStudent && !mod.IsVisible(core.NowFunc())) {
		return Module{}, accessNone, ErrModuleNotFound
	}
	return mod, level, nil
}

func (svc *service) sectionAccess(ctx context.Context, v Viewer, sectionID string) (Section, Module, accessLevel, error) {
	sec, err := svc.repo.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, Module{}, accessNone, err
	}
	mod, level, err := svc.moduleAccess(ctx, v, sec.ModuleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Section{}, Module{}, accessNone, ErrSectionNotFound
		}
		return Section{}, Module{}, accessNone, err
	}
	return sec, mod, level, nil
}

func (svc *service) contentAccess(ctx context.Context, v Viewer, contentID string) (Content, Module, accessLevel, error) {
	cnt, err := svc.repo.GetContent(ctx, contentID)
	if err != nil {
		return Content{}, Module{}, accessNone, err
	}
	mod, level, err := svc.moduleAccess(ctx, v, cnt.ModuleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Content{}, Module{}, accessNone, ErrContentNotFound
		}
		return Content{}, Module{}, accessNone, err
	}
	if level == accessStudent && !cnt.IsPublished {
		return Content{}, Module{}, accessNone, ErrContentNotFound
	}
	return cnt, mod, level, nil
}

func requireStaff(level accessLevel) error {
	if level != accessStaff {
		return core.ErrPermissionDenied
	}
	return nil
}
