package lms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
)

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.env.LMS.Submit(ctx, f.student, f.assignment.ID, lms.NewSubmission{Body: "First draft"})
	require.NoError(t, err)
	assert.Equal(t, lms.SubmissionSubmitted, sub.Status)
	assert.False(t, sub.IsLate)

	again, err := f.env.LMS.Submit(ctx, f.student, f.assignment.ID, lms.NewSubmission{URL: "https://example.com/essay"})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, "https://example.com/essay", again.URL)
	assert.Empty(t, again.Body)

	t.Run("not an assignment", func(t *testing.T) {
		_, err := f.env.LMS.Submit(ctx, f.student, f.lesson.ID, lms.NewSubmission{Body: "?"})
		var verr *core.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("staff cannot submit", func(t *testing.T) {
		_, err := f.env.LMS.Submit(ctx, f.teacher, f.assignment.ID, lms.NewSubmission{Body: "?"})
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := f.env.LMS.Submit(ctx, f.outsider, f.assignment.ID, lms.NewSubmission{Body: "?"})
		assert.Equal(t, lms.ErrContentNotFound, err)
	})

	t.Run("validate", func(t *testing.T) {
		ns := lms.NewSubmission{Body: "  "}
		assert.Error(t, ns.Validate(f.env.Validate))
		ns = lms.NewSubmission{URL: "https://example.com"}
		assert.NoError(t, ns.Validate(f.env.Validate))
	})
}

func TestService_SubmitLate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	newAssignment := func(allowLate bool) lms.Content {
		cnt, err := f.env.LMS.CreateContent(ctx, f.teacher, f.section.ID, lms.NewContent{
			Kind:        lms.KindAssignment,
			Title:       "Quiz",
			IsPublished: true,
			Assignment:  &lms.NewAssignment{MaxPoints: 10, DueAt: core.TimePtr(time.Now().Add(-time.Hour)), AllowLate: allowLate},
		})
		require.NoError(t, err)
		return cnt
	}

	_, err := f.env.LMS.Submit(ctx, f.student, newAssignment(false).ID, lms.NewSubmission{Body: "Sorry"})
	assert.Equal(t, lms.ErrPastDue, err)

	sub, err := f.env.LMS.Submit(ctx, f.student, newAssignment(true).ID, lms.NewSubmission{Body: "Sorry"})
	require.NoError(t, err)
	assert.True(t, sub.IsLate)
}

func TestService_Grade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	classmate := f.env.CreateStudent(t, "classmate")
	f.env.Enroll(t, classmate.ID, f.class.ID)
	mate := lms.ViewerOf(classmate)

	sub, err := f.env.LMS.Submit(ctx, f.student, f.assignment.ID, lms.NewSubmission{Body: "Essay"})
	require.NoError(t, err)
	mateSub, err := f.env.LMS.Submit(ctx, mate, f.assignment.ID, lms.NewSubmission{Body: "My essay"})
	require.NoError(t, err)

	_, err = f.env.LMS.Grade(ctx, f.teacher, sub.ID, lms.GradeInput{Points: 101})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "points", verr.Fields[0].Field)

	_, err = f.env.LMS.Grade(ctx, f.student, sub.ID, lms.GradeInput{Points: 100})
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.env.LMS.Grade(ctx, f.student, mateSub.ID, lms.GradeInput{Points: 100})
	assert.Equal(t, lms.ErrSubmissionNotFound, err)
	_, err = f.env.LMS.Grade(ctx, f.stranger, sub.ID, lms.GradeInput{Points: 100})
	assert.Equal(t, lms.ErrSubmissionNotFound, err)

	graded, err := f.env.LMS.Grade(ctx, f.teacher, sub.ID, lms.GradeInput{Points: 80, Feedback: "Good"})
	require.NoError(t, err)
	assert.Equal(t, lms.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 80, graded.Grade.Points)
	assert.Equal(t, f.teacher.UserID, graded.Grade.GradedBy)

	notifs, err := f.env.Notifications.QueryMine(ctx, f.student.UserID, true, core.Pagination{})
	require.NoError(t, err)
	require.NotEmpty(t, notifs)
	assert.Equal(t, notification.KindGrade, notifs[0].Kind)
	assert.Equal(t, "You scored 80/100.", notifs[0].Body)

	_, err = f.env.LMS.Submit(ctx, f.student, f.assignment.ID, lms.NewSubmission{Body: "Revised"})
	assert.Equal(t, lms.ErrAlreadyGraded, err)

	_, err = f.env.LMS.Grade(ctx, f.admin, mateSub.ID, lms.GradeInput{Points: 45})
	require.NoError(t, err)

	t.Run("submissions", func(t *testing.T) {
		cnt, err := f.env.LMS.FindOneContent(ctx, f.student, f.assignment.ID)
		require.NoError(t, err)
		require.Len(t, cnt.Submissions, 1)
		assert.Equal(t, sub.ID, cnt.Submissions[0].ID)

		subs, err := f.env.LMS.QuerySubmissions(ctx, f.teacher, f.assignment.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 2)
	})

	t.Run("class grades", func(t *testing.T) {
		grades, err := f.env.LMS.ClassGrades(ctx, f.teacher, f.class.ID)
		require.NoError(t, err)
		want := map[string]lms.StudentGrade{
			f.student.UserID: {StudentID: f.student.UserID, Points: 80, MaxPoints: 100, Percentage: 80, GradedCount: 1},
			classmate.ID:     {StudentID: classmate.ID, Points: 45, MaxPoints: 100, Percentage: 45, GradedCount: 1},
		}
		require.Len(t, grades, 2)
		for _, g := range grades {
			assert.Equal(t, want[g.StudentID], g)
		}

		mine, err := f.env.LMS.ClassGrades(ctx, f.student, f.class.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, want[f.student.UserID], mine[0])

		_, err = f.env.LMS.ClassGrades(ctx, f.outsider, f.class.ID)
		assert.Equal(t, lms.ErrClassNotFound, err)
	})
}
