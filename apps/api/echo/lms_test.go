package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
)

func Test_lmsApi(t *testing.T) {
	srv, env := setup(t)

	teacher := env.CreateTeacher(t, "tmendoza")
	otherTeacher := env.CreateTeacher(t, "rgarcia")
	jdoe := env.CreateStudent(t, "jdoe")
	asantos := env.CreateStudent(t, "asantos")

	crs := env.CreateCourse(t, "CS101", 3)
	oldClass := env.CreateClass(t, crs.ID, teacher.ID, "2024-2025", 0, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC))
	newClass := env.CreateClass(t, crs.ID, teacher.ID, "2025-2026", 0, time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC))
	env.Enroll(t, jdoe.ID, newClass.ID)

	teacherTkn := getToken(t, env, teacher)
	jdoeTkn := getToken(t, env, jdoe)
	asantosTkn := getToken(t, env, asantos)

	create := func(path string, body interface{}, dst interface{}) {
		t.Helper()
		rec := do(srv, http.MethodPost, path, teacherTkn, marchallObj(t, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarchall(t, rec, dst)
	}

	// material of the previous class
	var mod lms.Module
	create("/v1/classes/"+oldClass.ID+"/modules", map[string]interface{}{"title": "Week 1", "is_published": true}, &mod)
	assert.Equal(t, 1, mod.Position)
	var sec lms.Section
	create("/v1/modules/"+mod.ID+"/sections", map[string]interface{}{"title": "Readings"}, &sec)
	var lesson, essay lms.Content
	create("/v1/sections/"+sec.ID+"/contents", map[string]interface{}{
		"kind": lms.KindLesson, "title": "Introduction", "body": "Welcome!", "is_published": true,
	}, &lesson)
	create("/v1/sections/"+sec.ID+"/contents", map[string]interface{}{
		"kind": lms.KindAssignment, "title": "Essay", "is_published": true,
		"assignment": map[string]interface{}{"max_points": 100, "due_at": time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
	}, &essay)
	assert.Equal(t, 2, essay.Position)
	require.NotNil(t, essay.Assignment)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "assignment settings required",
			method:   http.MethodPost,
			path:     "/v1/sections/" + sec.ID + "/contents",
			body:     marchallObj(t, map[string]string{"kind": lms.KindAssignment, "title": "Quiz"}),
			token:    teacherTkn,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "students cannot author",
			method:   http.MethodPost,
			path:     "/v1/classes/" + newClass.ID + "/modules",
			body:     marchallObj(t, map[string]string{"title": "Week 1"}),
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "other teachers do not see the class",
			method:   http.MethodPost,
			path:     "/v1/classes/" + newClass.ID + "/modules",
			body:     marchallObj(t, map[string]string{"title": "Week 1"}),
			token:    getToken(t, env, otherTeacher),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: lms.ErrClassNotFound.Error()}),
		},
		{
			name:     "class detail is still served",
			path:     "/v1/classes/" + newClass.ID,
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, newClass),
		},
	})

	// clone into the new class
	rec := do(srv, http.MethodPost, "/v1/classes/"+newClass.ID+"/modules/clone", teacherTkn)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cloned []lms.Module
	unmarchall(t, rec, &cloned)
	require.Len(t, cloned, 1)
	require.Len(t, cloned[0].Sections, 1)
	require.Len(t, cloned[0].Sections[0].Contents, 2)
	newMod := cloned[0]
	newLesson := newMod.Sections[0].Contents[0]
	newEssay := newMod.Sections[0].Contents[1]
	assert.Equal(t, newClass.ID, newMod.ClassID)
	assert.False(t, newMod.IsPublished)
	assert.False(t, newEssay.IsPublished)
	assert.Equal(t, "Essay", newEssay.Title)
	require.NotNil(t, newEssay.Assignment)
	assert.Equal(t, 100, newEssay.Assignment.MaxPoints)
	assert.Nil(t, newEssay.Assignment.DueAt)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "clone only once",
			method:   http.MethodPost,
			path:     "/v1/classes/" + newClass.ID + "/modules/clone",
			token:    teacherTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: lms.ErrClassHasModules.Error()}),
		},
		{
			name:     "unpublished modules are hidden",
			path:     "/v1/classes/" + newClass.ID + "/modules",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "outsiders do not see the class",
			path:     "/v1/classes/" + newClass.ID + "/modules",
			token:    asantosTkn,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unpublished module detail is hidden",
			path:     "/v1/modules/" + newMod.ID,
			token:    jdoeTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: lms.ErrModuleNotFound.Error()}),
		},
	})

	// publish the module and the essay only
	published := marchallObj(t, map[string]bool{"is_published": true})
	rec = do(srv, http.MethodPut, "/v1/modules/"+newMod.ID, teacherTkn, published)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(srv, http.MethodPut, "/v1/contents/"+newEssay.ID, teacherTkn, published)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &newEssay)
	assert.True(t, newEssay.IsPublished)

	rec = do(srv, http.MethodGet, "/v1/contents?class_id="+newClass.ID, jdoeTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var visible []lms.Content
	unmarchall(t, rec, &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, newEssay.ID, visible[0].ID)

	rec = do(srv, http.MethodGet, "/v1/contents?class_id="+newClass.ID, teacherTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &visible)
	assert.Len(t, visible, 2)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "unpublished content is hidden",
			path:     "/v1/contents/" + newLesson.ID,
			token:    jdoeTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: lms.ErrContentNotFound.Error()}),
		},
		{
			name:     "outsiders get nothing",
			path:     "/v1/contents",
			token:    asantosTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "teachers do not submit",
			method:   http.MethodPost,
			path:     "/v1/contents/" + newEssay.ID + "/submissions",
			body:     marchallObj(t, lms.NewSubmission{Body: "An essay"}),
			token:    teacherTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "empty submission",
			method:   http.MethodPost,
			path:     "/v1/contents/" + newEssay.ID + "/submissions",
			body:     marchallObj(t, lms.NewSubmission{}),
			token:    jdoeTkn,
			wantCode: http.StatusBadRequest,
		},
	})

	// submit & grade
	rec = do(srv, http.MethodPost, "/v1/contents/"+newEssay.ID+"/submissions", jdoeTkn, marchallObj(t, lms.NewSubmission{Body: "My essay"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub lms.Submission
	unmarchall(t, rec, &sub)
	assert.Equal(t, jdoe.ID, sub.StudentID)
	assert.Equal(t, lms.SubmissionSubmitted, sub.Status)
	assert.False(t, sub.IsLate)

	gradePath := "/v1/submissions/" + sub.ID + "/grade"
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "students cannot grade",
			method:   http.MethodPut,
			path:     gradePath,
			body:     marchallObj(t, lms.GradeInput{Points: 100}),
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "too many points",
			method:   http.MethodPut,
			path:     gradePath,
			body:     marchallObj(t, lms.GradeInput{Points: 101}),
			token:    teacherTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"points": "points cannot exceed 100"}),
		},
	})

	rec = do(srv, http.MethodPut, gradePath, teacherTkn, marchallObj(t, lms.GradeInput{Points: 88, Feedback: "Well argued."}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &sub)
	assert.Equal(t, lms.SubmissionGraded, sub.Status)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, teacher.ID, sub.Grade.GradedBy)

	wantGrades := marchallList(t, lms.StudentGrade{StudentID: jdoe.ID, Points: 88, MaxPoints: 100, Percentage: 88, GradedCount: 1})
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "graded work is final",
			method:   http.MethodPost,
			path:     "/v1/contents/" + newEssay.ID + "/submissions",
			body:     marchallObj(t, lms.NewSubmission{Body: "My better essay"}),
			token:    jdoeTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: lms.ErrAlreadyGraded.Error()}),
		},
		{
			name:     "own grades",
			path:     "/v1/classes/" + newClass.ID + "/grades",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: wantGrades,
		},
		{
			name:     "class grades",
			path:     "/v1/classes/" + newClass.ID + "/grades",
			token:    teacherTkn,
			wantCode: http.StatusOK,
			wantData: wantGrades,
		},
		{
			name:     "own submissions",
			path:     "/v1/contents/" + newEssay.ID + "/submissions",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, sub),
		},
	})

	// the student was told about the grade
	n, err := env.Notifications.UnreadCount(context.Background(), jdoe.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	rec = do(srv, http.MethodDelete, "/v1/sections/"+newMod.Sections[0].ID, jdoeTkn)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(srv, http.MethodDelete, "/v1/modules/"+newMod.ID, teacherTkn)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(srv, http.MethodGet, "/v1/modules/"+newMod.ID, teacherTkn)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
