package echoapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
)

const academicYear = "2025-2026"

func Test_enrollmentAndBillingApi(t *testing.T) {
	srv, env := setup(t)

	admin := env.CreateAdmin(t, "registrar")
	teacher := env.CreateTeacher(t, "tmendoza")
	otherTeacher := env.CreateTeacher(t, "rgarcia")
	jdoe := env.CreateStudent(t, "jdoe")
	asantos := env.CreateStudent(t, "asantos")

	crs := env.CreateCourse(t, "CS101", 3)
	class := env.CreateClass(t, crs.ID, teacher.ID, academicYear, 1, time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC))
	env.CreateFee(t, pricing.NewFee{Name: "Tuition", Kind: pricing.KindTuition, Scope: pricing.ScopePerUnit, Amount: 150000, AcademicYear: academicYear})
	env.CreateFee(t, pricing.NewFee{Name: "Library", Kind: pricing.KindMiscellaneous, Scope: pricing.ScopeFlat, Amount: 250000, AcademicYear: academicYear})

	adminTkn := getToken(t, env, admin)
	teacherTkn := getToken(t, env, teacher)
	jdoeTkn := getToken(t, env, jdoe)
	asantosTkn := getToken(t, env, asantos)

	// quote

	rec := do(srv, http.MethodGet, "/v1/pricing/quote?course_id="+crs.ID+"&academic_year="+academicYear, jdoeTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote pricing.Quote
	unmarchall(t, rec, &quote)
	assert.Equal(t, int64(3*150000+250000), quote.Total)
	assert.Equal(t, env.Conf.Currency, quote.Currency)
	require.Len(t, quote.Lines, 2)
	assert.Equal(t, "Tuition (3 units)", quote.Lines[0].Description)

	// enroll

	enrollBody := marchallObj(t, map[string]string{"class_id": class.ID})
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "quote needs a course",
			path:     "/v1/pricing/quote?academic_year=" + academicYear,
			token:    jdoeTkn,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "teachers cannot enroll",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     enrollBody,
			token:    teacherTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "students cannot enroll others",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     marchallObj(t, map[string]string{"class_id": class.ID, "student_id": jdoe.ID}),
			token:    asantosTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown class",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     marchallObj(t, map[string]string{"class_id": crs.ID}),
			token:    jdoeTkn,
			wantCode: http.StatusBadRequest,
		},
	})

	rec = do(srv, http.MethodPost, "/v1/enrollments", jdoeTkn, enrollBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var enr enrollment.Enrollment
	unmarchall(t, rec, &enr)
	assert.Equal(t, jdoe.ID, enr.StudentID)
	assert.Equal(t, enrollment.StatusPending, enr.Status)
	require.NotNil(t, enr.InvoiceID)
	invoiceID := *enr.InvoiceID

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "already enrolled",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     enrollBody,
			token:    jdoeTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: enrollment.ErrAlreadyEnrolled.Error()}),
		},
		{
			name:     "class full",
			method:   http.MethodPost,
			path:     "/v1/enrollments",
			body:     enrollBody,
			token:    asantosTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: enrollment.ErrClassFull.Error()}),
		},
		{
			name:     "own enrollments",
			path:     "/v1/enrollments",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, enr),
		},
		{
			name:     "students only see their own",
			path:     "/v1/enrollments?student_id=" + jdoe.ID,
			token:    asantosTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "teachers see their classes",
			path:     "/v1/enrollments",
			token:    teacherTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, enr),
		},
		{
			name:     "other teachers see nothing",
			path:     "/v1/enrollments",
			token:    getToken(t, env, otherTeacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "hidden enrollment",
			path:     "/v1/enrollments/" + enr.ID,
			token:    asantosTkn,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "class teacher sees enrollment",
			path:     "/v1/enrollments/" + enr.ID,
			token:    teacherTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, enr),
		},
		{
			name:     "students cannot change status",
			method:   http.MethodPut,
			path:     "/v1/enrollments/" + enr.ID + "/status",
			body:     marchallObj(t, enrollment.UpdateStatus{Status: enrollment.StatusEnrolled}),
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid transition",
			method:   http.MethodPut,
			path:     "/v1/enrollments/" + enr.ID + "/status",
			body:     marchallObj(t, enrollment.UpdateStatus{Status: enrollment.StatusCompleted}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "cannot change status from pending to completed"}),
		},
	})

	// billing

	rec = do(srv, http.MethodGet, "/v1/invoices", jdoeTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var invoices []billing.Invoice
	unmarchall(t, rec, &invoices)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, invoiceID, inv.ID)
	assert.Equal(t, quote.Total, inv.Total)
	assert.Equal(t, billing.StatusOpen, inv.Status)
	require.NotNil(t, inv.EnrollmentID)
	assert.Equal(t, enr.ID, *inv.EnrollmentID)

	payment := marchallObj(t, map[string]interface{}{"amount": 200000, "method": billing.MethodCash, "reference": "OR-0001"})
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "others' invoices are hidden",
			path:     "/v1/invoices/" + invoiceID,
			token:    asantosTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: billing.ErrNotFound.Error()}),
		},
		{
			name:     "students only list their own invoices",
			path:     "/v1/invoices?student_id=" + jdoe.ID,
			token:    asantosTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "students cannot record payments",
			method:   http.MethodPost,
			path:     "/v1/invoices/" + invoiceID + "/payments",
			body:     payment,
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown payment method",
			method:   http.MethodPost,
			path:     "/v1/invoices/" + invoiceID + "/payments",
			body:     marchallObj(t, map[string]interface{}{"amount": 100, "method": "barter"}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "overpayment",
			method:   http.MethodPost,
			path:     "/v1/invoices/" + invoiceID + "/payments",
			body:     marchallObj(t, map[string]interface{}{"amount": quote.Total + 1, "method": billing.MethodCash}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
		},
	})

	rec = do(srv, http.MethodPost, "/v1/invoices/"+invoiceID+"/payments", adminTkn, payment)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pmt billing.Payment
	unmarchall(t, rec, &pmt)
	assert.Equal(t, admin.ID, pmt.RecordedBy)
	assert.Equal(t, int64(200000), pmt.Amount)

	rec = do(srv, http.MethodGet, "/v1/invoices/"+invoiceID, jdoeTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &inv)
	assert.Equal(t, billing.StatusPartiallyPaid, inv.Status)
	assert.Equal(t, int64(200000), inv.AmountPaid)

	wantBalance := billing.Balance{
		StudentID:   jdoe.ID,
		Currency:    env.Conf.Currency,
		TotalBilled: quote.Total,
		TotalPaid:   200000,
		Outstanding: quote.Total - 200000,
	}
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "payments of own invoice",
			path:     "/v1/invoices/" + invoiceID + "/payments",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, pmt),
		},
		{
			name:     "cannot void a paid-into invoice",
			method:   http.MethodPost,
			path:     "/v1/invoices/" + invoiceID + "/void",
			token:    adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: billing.ErrInvoiceHasPayments.Error()}),
		},
		{
			name:     "own balance",
			path:     "/v1/students/" + jdoe.ID + "/balance",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, wantBalance),
		},
		{
			name:     "admin sees balance",
			path:     "/v1/students/" + jdoe.ID + "/balance",
			token:    adminTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, wantBalance),
		},
		{
			name:     "others' balance is hidden",
			path:     "/v1/students/" + jdoe.ID + "/balance",
			token:    asantosTkn,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "overdue filter",
			path:     "/v1/invoices?overdue=true",
			token:    adminTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "status filter",
			path:     "/v1/invoices?" + url.Values{"status": {billing.StatusOpen + "," + billing.StatusPaid}}.Encode(),
			token:    adminTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	})

	// confirm, then the seat is taken for good
	rec = do(srv, http.MethodPut, "/v1/enrollments/"+enr.ID+"/status", adminTkn,
		marchallObj(t, enrollment.UpdateStatus{Status: enrollment.StatusEnrolled}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &enr)
	assert.Equal(t, enrollment.StatusEnrolled, enr.Status)

	rec = do(srv, http.MethodDelete, "/v1/enrollments/"+enr.ID, adminTkn)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(srv, http.MethodGet, "/v1/enrollments/"+enr.ID, adminTkn)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
