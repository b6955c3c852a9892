package lms

import "github.com/go-playground/validator/v10"

var (
	assignmentTag    = "assignment_required"
	assignmentText   = "assignment settings are required for assignments"
	noAssignmentTag  = "assignment_forbidden"
	noAssignmentText = "only assignments accept assignment settings"
)

func newContentStructLevelValidation(sl validator.StructLevel) {
	nc := sl.Current().Interface().(NewContent)
	switch {
	case nc.Kind == KindAssignment && nc.Assignment == nil:
		sl.ReportError(nc.Assignment, "assignment", "Assignment", assignmentTag, "")
	case nc.Kind != KindAssignment && nc.Assignment != nil:
		sl.ReportError(nc.Assignment, "assignment", "Assignment", noAssignmentTag, "")
	}
}
