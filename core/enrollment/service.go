package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled = core.NewConflictError("student is already enrolled in this class")
	ErrClassFull       = core.NewConflictError("class is full")
	errInvalidStudent  = errors.New("user is not an active student")
	errClassNotFound   = errors.New("class not found")
	errClassArchived   = errors.New("class is archived")
)

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled when the student already holds an active enrollment in the class.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Enrollment, error)
		CountEnrollments(ctx context.Context, filter QueryFilter) (int, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	Service interface {
		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Enrollment, error)
		GetByID(ctx context.Context, id string) (Enrollment, error)
		UpdateStatus(ctx context.Context, id, status string) (Enrollment, error)
		Delete(ctx context.Context, id string) error
		// IsEnrolled reports whether the student has access to the class materials.
		IsEnrolled(ctx context.Context, studentID, classID string) (bool, error)
		// ClassIDs returns the classes the student has access to.
		ClassIDs(ctx context.Context, studentID string) ([]string, error)
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		users    user.Service
		courses  course.Service
		pricing  pricing.Service
		billing  billing.Service
		notifier notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	tx core.Transactor,
	users user.Service,
	courses course.Service,
	pricingSvc pricing.Service,
	billingSvc billing.Service,
	notifier notification.Service,
) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		users:    users,
		courses:  courses,
		pricing:  pricingSvc,
		billing:  billingSvc,
		notifier: notifier,
	}
}

// Enroll registers a student in a class, issues the invoice of the course fees and notifies the student.
// Everything happens in a single transaction.
func (svc *service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		student, err := svc.users.GetByID(ctx, ne.StudentID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "getting student")
		}
		if err != nil || !student.Active() || !student.IsStudent() {
			return core.NewValidationError(errInvalidStudent, core.FieldError{Field: "student_id", Error: errInvalidStudent.Error()})
		}

		// the class row lock serializes concurrent enrollments of the same class
		class, err := svc.courses.GetClassForUpdate(ctx, ne.ClassID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(errClassNotFound, core.FieldError{Field: "class_id", Error: errClassNotFound.Error()})
			}
			return errors.Wrap(err, "getting class")
		}
		if class.IsArchived {
			return core.NewValidationError(errClassArchived, core.FieldError{Field: "class_id", Error: errClassArchived.Error()})
		}
		crs, err := svc.courses.GetByID(ctx, class.CourseID)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}

		n, err := svc.repo.CountEnrollments(ctx, QueryFilter{StudentID: student.ID, ClassID: class.ID, Statuses: ActiveStatuses})
		if err != nil {
			return errors.Wrap(err, "checking enrollments")
		}
		if n > 0 {
			return ErrAlreadyEnrolled
		}
		if class.Capacity > 0 {
			if n, err = svc.repo.CountEnrollments(ctx, QueryFilter{ClassID: class.ID, Statuses: ActiveStatuses}); err != nil {
				return errors.Wrap(err, "counting enrollments")
			}
			if n >= class.Capacity {
				return ErrClassFull
			}
		}

		now := core.NowFunc()
		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			ID:         uuid.NewString(),
			StudentID:  student.ID,
			ClassID:    class.ID,
			Status:     StatusPending,
			EnrolledAt: now,
			UpdatedAt:  now,
		})
		if err != nil {
			if err == ErrAlreadyEnrolled {
				return err
			}
			return errors.Wrap(err, "creating enrollment")
		}

		quote, err := svc.pricing.QuoteCourse(ctx, crs.ID, class.AcademicYear)
		if err != nil {
			return errors.Wrap(err, "quoting course")
		}
		if len(quote.Lines) > 0 {
			enrID := enr.ID
			ni := billing.NewInvoice{StudentID: student.ID, EnrollmentID: &enrID, Currency: quote.Currency}
			for _, line := range quote.Lines {
				ni.Lines = append(ni.Lines, billing.NewInvoiceLine{
					Description: line.Description,
					Quantity:    line.Quantity,
					UnitAmount:  line.UnitAmount,
				})
			}
			inv, err := svc.billing.IssueInvoice(ctx, ni)
			if err != nil {
				return errors.Wrap(err, "issuing invoice")
			}
			enr.InvoiceID = &inv.ID
			if enr, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
				return errors.Wrap(err, "updating enrollment")
			}
		}

		body := fmt.Sprintf("Your enrollment in %s %s (%s, %s term) is pending.", crs.Code, class.Name, class.AcademicYear, class.Term)
		if quote.Total > 0 {
			body += fmt.Sprintf(" Amount due: %s %s.", billing.FormatAmount(quote.Total), quote.Currency)
		}
		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserIDs:   []string{student.ID},
			Kind:      notification.KindEnrollment,
			Title:     "Enrollment received",
			Body:      body,
			Link:      "/enrollments/" + enr.ID,
			SendEmail: true,
		})
		return errors.Wrap(err, "notifying student")
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

// UpdateStatus moves an enrollment along pending → enrolled | dropped and enrolled → dropped | completed.
// Dropping a pending enrollment voids its invoice when nothing was paid.
func (svc *service) UpdateStatus(ctx context.Context, id, status string) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if enr, err = svc.repo.GetEnrollment(ctx, id); err != nil {
			return err
		}
		if enr.Status == status {
			return nil
		}
		if !CanTransition(enr.Status, status) {
			msg := fmt.Sprintf("cannot change status from %s to %s", enr.Status, status)
			return core.NewValidationError(errors.New(msg), core.FieldError{Field: "status", Error: msg})
		}

		if enr.Status == StatusPending && status == StatusDropped && enr.InvoiceID != nil {
			inv, err := svc.billing.GetInvoice(ctx, *enr.InvoiceID)
			if err != nil && !core.IsNotFound(err) {
				return errors.Wrap(err, "getting invoice")
			}
			if err == nil && inv.Status == billing.StatusOpen && inv.AmountPaid == 0 {
				if _, err = svc.billing.VoidInvoice(ctx, inv.ID); err != nil {
					return errors.Wrap(err, "voiding invoice")
				}
			}
		}

		enr.Status = status
		enr.UpdatedAt = core.NowFunc()
		if enr, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
			return errors.Wrap(err, "updating enrollment")
		}

		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserIDs: []string{enr.StudentID},
			Kind:    notification.KindEnrollment,
			Title:   "Enrollment " + status,
			Body:    fmt.Sprintf("Your enrollment status is now %s.", status),
			Link:    "/enrollments/" + enr.ID,
		})
		return errors.Wrap(err, "notifying student")
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	n, err := svc.repo.CountEnrollments(ctx, QueryFilter{StudentID: studentID, ClassID: classID, Statuses: AccessStatuses})
	if err != nil {
		return false, errors.Wrap(err, "counting enrollments")
	}
	return n > 0, nil
}

func (svc *service) ClassIDs(ctx context.Context, studentID string) ([]string, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, QueryFilter{StudentID: studentID, Statuses: AccessStatuses}, nil, core.Pagination{})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	ids := make([]string, 0, len(enrs))
	for _, e := range enrs {
		ids = append(ids, e.ClassID)
	}
	return core.UniqueStrings(ids), nil
}
