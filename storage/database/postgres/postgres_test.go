package pgrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var testTime = time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestOrderClauses(t *testing.T) {
	columns := map[string]string{"name": "lower(name)", "created_at": "created_at"}
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{
			"fallback",
			nil,
			[]string{"created_at DESC"},
		},
		{
			"unknown fields are ignored",
			[]core.DBOrdering{{Field: "password_hash"}, {Field: "name", Ascending: true}},
			[]string{"lower(name) ASC"},
		},
		{
			"only unknown fields",
			[]core.DBOrdering{{Field: "1; DROP TABLE users"}},
			[]string{"created_at DESC"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := orderClauses(tc.ordering, columns, core.DBOrdering{Field: "created_at"})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestUserRepository_GetUser(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		rows := pgxmock.NewRows(userColumns).AddRow(
			id, "Juan Dela Cruz", "juan", "juan@mmdc.edu.ph", true, []string{user.RoleStudent}, []byte("hash"),
			testTime, testTime, nil,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).WithArgs(id).WillReturnRows(rows)

		usr, err := NewUserRepository(mock).GetUser(ctx, user.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Equal(t, id, usr.ID)
		assert.Equal(t, "juan", usr.Username)
		assert.True(t, usr.Active())
		assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
		assert.True(t, usr.LastLogin.IsZero())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1 LIMIT 1")).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err := NewUserRepository(mock).GetUser(ctx, user.GetFilter{Username: "nobody"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("malformed id", func(t *testing.T) {
		mock := newMock(t)
		_, err := NewUserRepository(mock).GetUser(ctx, user.GetFilter{ID: "42"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUserRepository_CheckUsernameUniqueness(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT username, email FROM users WHERE (username = $1 OR email = $2)")).
		WithArgs("juan", "juan@mmdc.edu.ph").
		WillReturnRows(pgxmock.NewRows([]string{"username", "email"}).AddRow("other", "juan@mmdc.edu.ph"))

	err := NewUserRepository(mock).CheckUsernameUniqueness(ctx, "juan", "juan@mmdc.edu.ph", nil)
	assert.Equal(t, user.ErrEmailExists, err)
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	ids := []string{uuid.NewString(), uuid.NewString()}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id IN ($1,$2)")).
		WithArgs(ids[0], ids[1]).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := NewUserRepository(mock).DeleteUsersByID(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProgramRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("query orders by code by default", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		rows := pgxmock.NewRows(programColumns).
			AddRow(id, "BSIT", "BS Information Technology", "", "bachelor", 4, true, testTime, testTime)
		mock.ExpectQuery(regexp.QuoteMeta("FROM programs WHERE is_active = $1 ORDER BY code ASC")).
			WithArgs(true).
			WillReturnRows(rows)

		progs, err := NewProgramRepository(mock).QueryPrograms(ctx, program.QueryFilter{IsActive: core.BoolPtr(true)}, nil, core.Pagination{})
		require.NoError(t, err)
		require.Len(t, progs, 1)
		assert.Equal(t, "BSIT", progs[0].Code)
		assert.Equal(t, 4, progs[0].DurationYears)
	})

	t.Run("delete with majors", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM programs WHERE id = $1")).
			WithArgs(id).
			WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

		err := NewProgramRepository(mock).DeleteProgram(ctx, id)
		assert.Equal(t, program.ErrProgramHasMajors, err)
	})

	t.Run("update missing program", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("UPDATE programs SET").
			WithArgs(anyArgs(8)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		_, err := NewProgramRepository(mock).UpdateProgram(ctx, program.Program{ID: uuid.NewString(), Code: "BSCS"})
		assert.Equal(t, program.ErrNotFound, err)
	})

	t.Run("duplicate major code", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO majors").
			WithArgs(anyArgs(len(majorColumns))...).
			WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

		_, err := NewProgramRepository(mock).CreateMajor(ctx, program.Major{ID: uuid.NewString(), ProgramID: uuid.NewString()})
		assert.Equal(t, program.ErrMajorCodeExists, err)
	})
}

func TestBillingRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("next invoice sequence", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_sequences (year,last_seq) VALUES ($1,$2) ON CONFLICT (year)")).
			WithArgs(2024, 1).
			WillReturnRows(pgxmock.NewRows([]string{"last_seq"}).AddRow(7))

		seq, err := NewBillingRepository(mock).NextInvoiceSeq(ctx, 2024)
		require.NoError(t, err)
		assert.Equal(t, 7, seq)
	})

	t.Run("create invoice with lines in a transaction", func(t *testing.T) {
		mock := newMock(t)
		inv := billing.Invoice{
			ID:        uuid.NewString(),
			Number:    "INV-2024-000001",
			StudentID: uuid.NewString(),
			Currency:  "PHP",
			Lines: []billing.InvoiceLine{
				{ID: uuid.NewString(), Position: 1, Description: "Tuition", Quantity: 3, UnitAmount: 150000, Amount: 450000},
				{ID: uuid.NewString(), Position: 2, Description: "Laboratory", Quantity: 1, UnitAmount: 250000, Amount: 250000},
			},
			Total:     700000,
			Status:    billing.StatusOpen,
			DueDate:   testTime.AddDate(0, 1, 0),
			IssuedAt:  testTime,
			UpdatedAt: testTime,
		}
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO invoices").
			WithArgs(inv.ID, inv.Number, inv.StudentID, inv.EnrollmentID, "PHP", int64(700000), int64(0),
				billing.StatusOpen, inv.DueDate, testTime, testTime).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invoice_lines")).
			WithArgs(anyArgs(2 * len(invoiceLineColumns))...).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectCommit()

		got, err := NewBillingRepository(mock).CreateInvoice(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, inv, got)
	})

	t.Run("failing lines roll back the invoice", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO invoices").
			WithArgs(anyArgs(len(invoiceColumns))...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO invoice_lines").
			WithArgs(anyArgs(len(invoiceLineColumns))...).
			WillReturnError(&pgconn.PgError{Code: codeCheckViolation})
		mock.ExpectRollback()

		_, err := NewBillingRepository(mock).CreateInvoice(ctx, billing.Invoice{
			ID:    uuid.NewString(),
			Lines: []billing.InvoiceLine{{ID: uuid.NewString(), Position: 1}},
		})
		assert.Error(t, err)
	})

	t.Run("get invoice loads its lines", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(invoiceColumns).AddRow(
				id, "INV-2024-000001", uuid.NewString(), nil, "PHP", int64(450000), int64(0),
				billing.StatusOpen, testTime, testTime, testTime,
			))
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoice_lines WHERE invoice_id IN ($1) ORDER BY invoice_id, position")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(invoiceLineColumns).
				AddRow(uuid.NewString(), id, 1, "Tuition", 3, int64(150000), int64(450000)))

		inv, err := NewBillingRepository(mock).GetInvoice(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, inv.EnrollmentID)
		require.Len(t, inv.Lines, 1)
		assert.Equal(t, "Tuition", inv.Lines[0].Description)
		assert.Equal(t, int64(450000), inv.Total)
	})

	t.Run("invoice locked for update", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE id = $1 FOR UPDATE")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(invoiceColumns).AddRow(
				id, "INV-2024-000002", uuid.NewString(), nil, "PHP", int64(1000), int64(250),
				billing.StatusPartiallyPaid, testTime, testTime, testTime,
			))
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoice_lines WHERE invoice_id IN ($1)")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(invoiceLineColumns))

		inv, err := NewBillingRepository(mock).GetInvoiceForUpdate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(750), inv.Balance())
	})

	t.Run("amount paid above the total", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET amount_paid = $1, status = $2, updated_at = $3 WHERE id = $4")).
			WithArgs(int64(1200), billing.StatusPaid, testTime, id).
			WillReturnError(&pgconn.PgError{Code: codeCheckViolation})

		_, err := NewBillingRepository(mock).UpdateInvoice(ctx, billing.Invoice{
			ID:         id,
			Total:      1000,
			AmountPaid: 1200,
			Status:     billing.StatusPaid,
			UpdatedAt:  testTime,
		})
		assert.Equal(t, billing.ErrOverpayment, err)
	})

	t.Run("payment on a missing invoice", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO payments").
			WithArgs(anyArgs(len(paymentColumns))...).
			WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

		_, err := NewBillingRepository(mock).CreatePayment(ctx, billing.Payment{ID: uuid.NewString(), InvoiceID: uuid.NewString()})
		assert.Equal(t, billing.ErrNotFound, err)
	})
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	userID := uuid.NewString()

	t.Run("mark all as read", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read_at = $1 WHERE read_at IS NULL AND user_id = $2")).
			WithArgs(testTime, userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		n, err := NewNotificationRepository(mock).MarkRead(ctx, userID, nil, testTime)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("mark malformed ids", func(t *testing.T) {
		mock := newMock(t)
		n, err := NewNotificationRepository(mock).MarkRead(ctx, userID, []string{"x"}, testTime)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete someone else's notification", func(t *testing.T) {
		mock := newMock(t)
		id := uuid.NewString()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1 AND user_id = $2")).
			WithArgs(id, userID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := NewNotificationRepository(mock).DeleteNotification(ctx, userID, id)
		assert.Equal(t, notification.ErrNotFound, err)
	})
}

func TestLMSRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("contents carry their assignment settings", func(t *testing.T) {
		mock := newMock(t)
		lessonID, assignmentID, sectionID, moduleID := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
		cols := append(append([]string{}, contentColumns...), "max_points", "due_at", "allow_late")
		due := testTime.Add(72 * time.Hour)
		points, allowLate := 100, true
		rows := pgxmock.NewRows(cols).
			AddRow(lessonID, sectionID, moduleID, lms.KindLesson, "Intro", "", "", 1, true, testTime, testTime, nil, nil, nil).
			AddRow(assignmentID, sectionID, moduleID, lms.KindAssignment, "Essay", "", "", 2, true, testTime, testTime, &points, &due, &allowLate)
		mock.ExpectQuery(regexp.QuoteMeta("FROM contents c LEFT JOIN assignments a ON a.content_id = c.id WHERE c.section_id = $1")).
			WithArgs(sectionID).
			WillReturnRows(rows)

		cnts, err := NewLMSRepository(mock).QueryContents(ctx, lms.ContentFilter{SectionID: sectionID})
		require.NoError(t, err)
		require.Len(t, cnts, 2)
		assert.Nil(t, cnts[0].Assignment)
		require.NotNil(t, cnts[1].Assignment)
		assert.Equal(t, 100, cnts[1].Assignment.MaxPoints)
		assert.True(t, cnts[1].Assignment.AllowLate)
		assert.Equal(t, due, *cnts[1].Assignment.DueAt)
	})

	t.Run("resubmission keeps the existing id", func(t *testing.T) {
		mock := newMock(t)
		existingID := uuid.NewString()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO submissions")).
			WithArgs(anyArgs(len(submissionColumns))...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existingID))

		sub, err := NewLMSRepository(mock).SaveSubmission(ctx, lms.Submission{
			ID:          uuid.NewString(),
			ContentID:   uuid.NewString(),
			StudentID:   uuid.NewString(),
			Body:        "second try",
			Status:      lms.SubmissionSubmitted,
			SubmittedAt: testTime,
			UpdatedAt:   testTime,
		})
		require.NoError(t, err)
		assert.Equal(t, existingID, sub.ID)
	})

	t.Run("graded submission", func(t *testing.T) {
		mock := newMock(t)
		id, teacherID := uuid.NewString(), uuid.NewString()
		points := 88
		mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(submissionColumns).AddRow(
				id, uuid.NewString(), uuid.NewString(), "essay", "", lms.SubmissionGraded, false, testTime, testTime,
				&points, "Well done", &teacherID, &testTime,
			))

		sub, err := NewLMSRepository(mock).GetSubmission(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, sub.Grade)
		assert.Equal(t, 88, sub.Grade.Points)
		assert.Equal(t, teacherID, sub.Grade.GradedBy)
		assert.Equal(t, testTime, sub.Grade.GradedAt)
	})

	t.Run("section of a missing module", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO sections").
			WithArgs(anyArgs(len(sectionColumns))...).
			WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

		_, err := NewLMSRepository(mock).CreateSection(ctx, lms.Section{ID: uuid.NewString(), ModuleID: uuid.NewString()})
		assert.Equal(t, lms.ErrModuleNotFound, err)
	})
}

func TestCourseRepository_GetClassForUpdate(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	id := uuid.NewString()
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(classColumns).AddRow(
			id, uuid.NewString(), uuid.NewString(), "IT101-A", "2025-2026", "1st", 30,
			testTime, testTime.AddDate(0, 4, 0), false, testTime, testTime,
		))

	class, err := NewCourseRepository(mock).GetClassForUpdate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, class.Capacity)

	_, err = NewCourseRepository(mock).GetClassForUpdate(ctx, "42")
	assert.Equal(t, course.ErrClassNotFound, err)
}

func TestEnrollmentRepository_CreateEnrollment(t *testing.T) {
	ctx := context.Background()
	now := testTime
	newEnrollment := func() enrollment.Enrollment {
		return enrollment.Enrollment{
			ID:         uuid.NewString(),
			StudentID:  uuid.NewString(),
			ClassID:    uuid.NewString(),
			Status:     enrollment.StatusPending,
			EnrolledAt: now,
			UpdatedAt:  now,
		}
	}

	t.Run("created", func(t *testing.T) {
		mock := newMock(t)
		e := newEnrollment()
		mock.ExpectExec("INSERT INTO enrollments").
			WithArgs(e.ID, e.StudentID, e.ClassID, enrollment.StatusPending, e.InvoiceID, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		got, err := NewEnrollmentRepository(mock).CreateEnrollment(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	})

	t.Run("active enrollment already exists", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO enrollments").
			WithArgs(anyArgs(len(enrollmentColumns))...).
			WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "enrollments_active_student_class_key"})

		_, err := NewEnrollmentRepository(mock).CreateEnrollment(ctx, newEnrollment())
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	})
}
