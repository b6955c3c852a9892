package enrollment_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	inmemdb "github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database/inmem"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/tests"
)

const year = "2025-2026"

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	teacher := env.CreateTeacher(t, "teacher")
	student := env.CreateStudent(t, "student")
	other := env.CreateStudent(t, "other")
	crs := env.CreateCourse(t, "IT101", 3)
	class := env.CreateClass(t, crs.ID, teacher.ID, year, 1, time.Now().AddDate(0, 1, 0))

	env.CreateFee(t, pricing.NewFee{Name: "Tuition", Kind: pricing.KindTuition, Scope: pricing.ScopePerUnit, Amount: 150000, AcademicYear: year})
	env.CreateFee(t, pricing.NewFee{Name: "Library", Kind: pricing.KindMiscellaneous, Scope: pricing.ScopeFlat, Amount: 250000, AcademicYear: year})
	env.CreateFee(t, pricing.NewFee{Name: "Old tuition", Kind: pricing.KindTuition, Scope: pricing.ScopePerUnit, Amount: 1, AcademicYear: "2024-2025"})

	enr, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: student.ID, ClassID: class.ID})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPending, enr.Status)
	require.NotNil(t, enr.InvoiceID)

	inv, err := env.Billing.GetInvoice(ctx, *enr.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, int64(3*150000+250000), inv.Total)
	assert.Equal(t, billing.StatusOpen, inv.Status)
	assert.Equal(t, "PHP", inv.Currency)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, "Tuition (3 units)", inv.Lines[0].Description)
	assert.Equal(t, 3, inv.Lines[0].Quantity)
	assert.Equal(t, "Library", inv.Lines[1].Description)
	require.NotNil(t, inv.EnrollmentID)
	assert.Equal(t, enr.ID, *inv.EnrollmentID)

	unread, err := env.Notifications.UnreadCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, student.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "7000.00 PHP")

	t.Run("already enrolled", func(t *testing.T) {
		_, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: student.ID, ClassID: class.ID})
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	})

	t.Run("class full", func(t *testing.T) {
		_, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: other.ID, ClassID: class.ID})
		assert.Equal(t, enrollment.ErrClassFull, err)
		enrs, err := env.Enrollments.Query(ctx, enrollment.QueryFilter{StudentID: other.ID}, nil, core.Pagination{})
		require.NoError(t, err)
		assert.Empty(t, enrs)
	})

	t.Run("not a student", func(t *testing.T) {
		_, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: teacher.ID, ClassID: class.ID})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "student_id", verr.Fields[0].Field)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: other.ID, ClassID: "d9c0a4f4-4b7e-4d8f-8a3c-1f2e3d4c5b6a"})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "class_id", verr.Fields[0].Field)
	})
}

func TestService_EnrollConcurrently(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	teacher := env.CreateTeacher(t, "teacher")
	crs := env.CreateCourse(t, "IT103", 3)
	class := env.CreateClass(t, crs.ID, teacher.ID, year, 2, time.Now().AddDate(0, 1, 0))
	env.CreateFee(t, pricing.NewFee{Name: "Tuition", Kind: pricing.KindTuition, Scope: pricing.ScopePerUnit, Amount: 100000, AcademicYear: year})

	var students []string
	for i := 0; i < 6; i++ {
		students = append(students, env.CreateStudent(t, fmt.Sprintf("student%d", i)).ID)
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(students)*2)
	)
	for i, id := range students {
		// every student tries twice
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(n int, studentID string) {
				defer wg.Done()
				_, errs[n] = env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: studentID, ClassID: class.ID})
			}(i*2+j, id)
		}
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, err == enrollment.ErrClassFull || err == enrollment.ErrAlreadyEnrolled, err.Error())
	}
	assert.Equal(t, 2, ok)

	enrs, err := env.Enrollments.Query(ctx, enrollment.QueryFilter{ClassID: class.ID}, nil, core.Pagination{})
	require.NoError(t, err)
	require.Len(t, enrs, 2)
	assert.NotEqual(t, enrs[0].StudentID, enrs[1].StudentID)

	invs, err := env.Billing.QueryInvoices(ctx, billing.QueryFilter{}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Len(t, invs, 2)
}

func TestEnrollmentRepository_CreateEnrollmentDuplicate(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	repo := inmemdb.NewEnrollmentRepository(env.DB)

	studentID, classID := uuid.NewString(), uuid.NewString()
	newEnrollment := func(status string) enrollment.Enrollment {
		now := time.Now().UTC()
		return enrollment.Enrollment{ID: uuid.NewString(), StudentID: studentID, ClassID: classID, Status: status, EnrolledAt: now, UpdatedAt: now}
	}

	_, err := repo.CreateEnrollment(ctx, newEnrollment(enrollment.StatusDropped))
	require.NoError(t, err)
	_, err = repo.CreateEnrollment(ctx, newEnrollment(enrollment.StatusPending))
	require.NoError(t, err)
	_, err = repo.CreateEnrollment(ctx, newEnrollment(enrollment.StatusPending))
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	_, err = repo.CreateEnrollment(ctx, newEnrollment(enrollment.StatusDropped))
	assert.NoError(t, err)
}

func TestService_EnrollWithoutFees(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	teacher := env.CreateTeacher(t, "teacher")
	student := env.CreateStudent(t, "student")
	crs := env.CreateCourse(t, "GE101", 3)
	class := env.CreateClass(t, crs.ID, teacher.ID, year, 0, time.Now())

	enr, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: student.ID, ClassID: class.ID})
	require.NoError(t, err)
	assert.Nil(t, enr.InvoiceID)

	invs, err := env.Billing.QueryInvoices(ctx, billing.QueryFilter{StudentID: student.ID}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	teacher := env.CreateTeacher(t, "teacher")
	student := env.CreateStudent(t, "student")
	crs := env.CreateCourse(t, "IT102", 2)
	class := env.CreateClass(t, crs.ID, teacher.ID, year, 0, time.Now())
	env.CreateFee(t, pricing.NewFee{Name: "Tuition", Kind: pricing.KindTuition, Scope: pricing.ScopePerUnit, Amount: 100000, AcademicYear: year})

	t.Run("dropping a pending enrollment voids its invoice", func(t *testing.T) {
		enr, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: student.ID, ClassID: class.ID})
		require.NoError(t, err)
		require.NotNil(t, enr.InvoiceID)

		enr, err = env.Enrollments.UpdateStatus(ctx, enr.ID, enrollment.StatusDropped)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusDropped, enr.Status)

		inv, err := env.Billing.GetInvoice(ctx, *enr.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusVoid, inv.Status)

		_, err = env.Enrollments.UpdateStatus(ctx, enr.ID, enrollment.StatusEnrolled)
		var verr *core.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("enroll again after dropping", func(t *testing.T) {
		enr := env.Enroll(t, student.ID, class.ID)
		assert.Equal(t, enrollment.StatusEnrolled, enr.Status)

		ok, err := env.Enrollments.IsEnrolled(ctx, student.ID, class.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ids, err := env.Enrollments.ClassIDs(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{class.ID}, ids)

		enr, err = env.Enrollments.UpdateStatus(ctx, enr.ID, enrollment.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusCompleted, enr.Status)

		ok, err = env.Enrollments.IsEnrolled(ctx, student.ID, class.ID)
		require.NoError(t, err)
		assert.True(t, ok, "completed enrollments keep access to the class")
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := env.Enrollments.UpdateStatus(ctx, "nope", enrollment.StatusEnrolled)
		assert.Equal(t, enrollment.ErrNotFound, err)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{enrollment.StatusPending, enrollment.StatusEnrolled, true},
		{enrollment.StatusPending, enrollment.StatusDropped, true},
		{enrollment.StatusPending, enrollment.StatusCompleted, false},
		{enrollment.StatusEnrolled, enrollment.StatusCompleted, true},
		{enrollment.StatusDropped, enrollment.StatusEnrolled, false},
		{enrollment.StatusCompleted, enrollment.StatusDropped, false},
	}
	for _, tc := range tests {
		t.Run(tc.from+" to "+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, enrollment.CanTransition(tc.from, tc.to))
		})
	}
}
