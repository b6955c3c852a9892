package lms

import (
	"context"

	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
)

var (
	// errors
	ErrModuleNotFound     = core.NewNotFoundError("module not found")
	ErrSectionNotFound    = core.NewNotFoundError("section not found")
	ErrContentNotFound    = core.NewNotFoundError("content not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrClassNotFound      = core.NewNotFoundError("class not found")
	ErrNothingToClone     = core.NewNotFoundError("no earlier class of this course has modules")
	ErrClassHasModules    = core.NewConflictError("class already has modules")
	ErrPastDue            = core.NewConflictError("the assignment is past due")
	ErrAlreadyGraded      = core.NewConflictError("the submission is already graded")
	errNotAssignment      = errors.New("content is not an assignment")
)

type (
	Repository interface {
		CreateModule(ctx context.Context, m Module) (Module, error)
		// QueryModules returns modules ordered by class, then position.
		QueryModules(ctx context.Context, filter ModuleFilter) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		// DeleteModule also deletes the sections, contents & submissions of the module.
		DeleteModule(ctx context.Context, id string) error

		CreateSection(ctx context.Context, s Section) (Section, error)
		// QuerySections returns the sections of moduleIDs ordered by position.
		QuerySections(ctx context.Context, moduleIDs []string) ([]Section, error)
		GetSection(ctx context.Context, id string) (Section, error)
		UpdateSection(ctx context.Context, s Section) (Section, error)
		DeleteSection(ctx context.Context, id string) error

		// CreateContent stores the content along with its assignment settings, if any.
		CreateContent(ctx context.Context, c Content) (Content, error)
		// QueryContents returns contents, with their assignment settings, ordered by position.
		QueryContents(ctx context.Context, filter ContentFilter) ([]Content, error)
		GetContent(ctx context.Context, id string) (Content, error)
		UpdateContent(ctx context.Context, c Content) (Content, error)
		DeleteContent(ctx context.Context, id string) error

		// SaveSubmission inserts or replaces the submission of a student for a content.
		SaveSubmission(ctx context.Context, s Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
	}

	Service interface {
		CreateModule(ctx context.Context, v Viewer, classID string, nm NewModule) (Module, error)
		// ListModules returns the module tree of a class as seen by v.
		ListModules(ctx context.Context, v Viewer, classID string) ([]Module, error)
		GetModule(ctx context.Context, v Viewer, id string) (Module, error)
		UpdateModule(ctx context.Context, v Viewer, id string, um UpdateModule) (Module, error)
		DeleteModule(ctx context.Context, v Viewer, id string) error

		CreateSection(ctx context.Context, v Viewer, moduleID string, ns NewSection) (Section, error)
		UpdateSection(ctx context.Context, v Viewer, id string, us UpdateSection) (Section, error)
		DeleteSection(ctx context.Context, v Viewer, id string) error

		CreateContent(ctx context.Context, v Viewer, sectionID string, nc NewContent) (Content, error)
		// GetContentForUpdate returns a content that v may modify.
		GetContentForUpdate(ctx context.Context, v Viewer, id string) (Content, error)
		UpdateContent(ctx context.Context, v Viewer, c Content, uc UpdateContent) (Content, error)
		DeleteContent(ctx context.Context, v Viewer, id string) error
		FindAllContent(ctx context.Context, v Viewer, q ContentQuery) ([]Content, error)
		FindOneContent(ctx context.Context, v Viewer, id string) (Content, error)

		// CloneMostRecentModules copies the module tree of the latest other class of the same course into classID.
		CloneMostRecentModules(ctx context.Context, v Viewer, classID string) ([]Module, error)

		Submit(ctx context.Context, v Viewer, contentID string, ns NewSubmission) (Submission, error)
		QuerySubmissions(ctx context.Context, v Viewer, contentID string) ([]Submission, error)
		Grade(ctx context.Context, v Viewer, submissionID string, gi GradeInput) (Submission, error)
		ClassGrades(ctx context.Context, v Viewer, classID string) ([]StudentGrade, error)
	}

	service struct {
		repo        Repository
		tx          core.Transactor
		courses     course.Service
		enrollments enrollment.Service
		notifier    notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	tx core.Transactor,
	courses course.Service,
	enrollments enrollment.Service,
	notifier notification.Service,
) Service {
	return &service{
		repo:        repo,
		tx:          tx,
		courses:     courses,
		enrollments: enrollments,
		notifier:    notifier,
	}
}
