package lms

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
)

// Submit records the work of a student for a visible assignment.
// An ungraded submission is replaced; late work is refused unless the assignment allows it.
func (svc *service) Submit(ctx context.Context, v Viewer, contentID string, ns NewSubmission) (Submission, error) {
	cnt, _, level, err := svc.contentAccess(ctx, v, contentID)
	if err != nil {
		return Submission{}, err
	}
	if level != accessStudent {
		return Submission{}, core.ErrPermissionDenied
	}
	if cnt.Kind != KindAssignment || cnt.Assignment == nil {
		return Submission{}, core.NewValidationError(errNotAssignment, core.FieldError{Field: "content_id", Error: errNotAssignment.Error()})
	}

	now := core.NowFunc()
	late := cnt.Assignment.DueAt != nil && now.After(*cnt.Assignment.DueAt)
	if late && !cnt.Assignment.AllowLate {
		return Submission{}, ErrPastDue
	}

	var sub Submission
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{ContentIDs: []string{cnt.ID}, StudentID: v.UserID})
		if err != nil {
			return errors.Wrap(err, "querying submissions")
		}
		if len(subs) > 0 {
			sub = subs[0]
			if sub.Status == SubmissionGraded {
				return ErrAlreadyGraded
			}
		} else {
			sub = Submission{ID: uuid.NewString(), ContentID: cnt.ID, StudentID: v.UserID}
		}

		sub.Body = ns.Body
		sub.URL = ns.URL
		sub.Status = SubmissionSubmitted
		sub.IsLate = late
		sub.SubmittedAt = now
		sub.UpdatedAt = now
		sub, err = svc.repo.SaveSubmission(ctx, sub)
		return err
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *service) QuerySubmissions(ctx context.Context, v Viewer, contentID string) ([]Submission, error) {
	cnt, _, level, err := svc.contentAccess(ctx, v, contentID)
	if err != nil {
		return nil, err
	}
	filter := SubmissionFilter{ContentIDs: []string{cnt.ID}}
	if level == accessStudent {
		filter.StudentID = v.UserID
	}
	return svc.repo.QuerySubmissions(ctx, filter)
}

// Grade scores a submission. Only admins and the teacher of the class may grade.
func (svc *service) Grade(ctx context.Context, v Viewer, submissionID string, gi GradeInput) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	cnt, _, level, err := svc.contentAccess(ctx, v, sub.ContentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, err
	}
	if level == accessStudent {
		if sub.StudentID != v.UserID {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, core.ErrPermissionDenied
	}
	if cnt.Assignment == nil {
		return Submission{}, core.NewValidationError(errNotAssignment)
	}
	if gi.Points > cnt.Assignment.MaxPoints {
		msg := fmt.Sprintf("points cannot exceed %d", cnt.Assignment.MaxPoints)
		return Submission{}, core.NewValidationError(errors.New(msg), core.FieldError{Field: "points", Error: msg})
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc()
		sub.Grade = &Grade{
			Points:   gi.Points,
			Feedback: gi.Feedback,
			GradedBy: v.UserID,
			GradedAt: now,
		}
		sub.Status = SubmissionGraded
		sub.UpdatedAt = now
		var err error
		if sub, err = svc.repo.SaveSubmission(ctx, sub); err != nil {
			return errors.Wrap(err, "saving grade")
		}

		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserIDs: []string{sub.StudentID},
			Kind:    notification.KindGrade,
			Title:   "Graded: " + cnt.Title,
			Body:    fmt.Sprintf("You scored %d/%d.", gi.Points, cnt.Assignment.MaxPoints),
			Link:    "/lms/contents/" + cnt.ID,
		})
		return errors.Wrap(err, "notifying student")
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ClassGrades sums the graded submissions of each student of a class.
// Students only get their own totals.
func (svc *service) ClassGrades(ctx context.Context, v Viewer, classID string) ([]StudentGrade, error) {
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
	if len(mods) == 0 {
		return []StudentGrade{}, nil
	}
	modIDs := make([]string, len(mods))
	for i, m := range mods {
		modIDs[i] = m.ID
	}
	cnts, err := svc.repo.QueryContents(ctx, ContentFilter{ModuleIDs: modIDs, Kind: KindAssignment})
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	if len(cnts) == 0 {
		return []StudentGrade{}, nil
	}

	maxPoints := make(map[string]int, len(cnts))
	cntIDs := make([]string, 0, len(cnts))
	for _, c := range cnts {
		if c.Assignment == nil {
			continue
		}
		maxPoints[c.ID] = c.Assignment.MaxPoints
		cntIDs = append(cntIDs, c.ID)
	}
	filter := SubmissionFilter{ContentIDs: cntIDs}
	if level == accessStudent {
		filter.StudentID = v.UserID
	}
	subs, err := svc.repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	totals := make(map[string]*StudentGrade)
	for _, s := range subs {
		if s.Grade == nil {
			continue
		}
		sg, ok := totals[s.StudentID]
		if !ok {
			sg = &StudentGrade{StudentID: s.StudentID}
			totals[s.StudentID] = sg
		}
		sg.Points += s.Grade.Points
		sg.MaxPoints += maxPoints[s.ContentID]
		sg.GradedCount++
	}

	grades := make([]StudentGrade, 0, len(totals))
	for _, sg := range totals {
		if sg.MaxPoints > 0 {
			sg.Percentage = math.Round(float64(sg.Points)/float64(sg.MaxPoints)*10000) / 100
		}
		grades = append(grades, *sg)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].StudentID < grades[j].StudentID })
	return grades, nil
}
