package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
)

func Test_programApi(t *testing.T) {
	srv, env := setup(t)

	adminTkn := getToken(t, env, env.CreateAdmin(t, "registrar"))
	jdoeTkn := getToken(t, env, env.CreateStudent(t, "jdoe"))

	newProgram := marchallObj(t, map[string]interface{}{
		"code":           " bsit ",
		"name":           "BS Information Technology",
		"level":          program.LevelUndergraduate,
		"duration_years": 4,
	})

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "students cannot create programs",
			method:   http.MethodPost,
			path:     "/v1/programs",
			body:     newProgram,
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/programs",
			body:     marchallObj(t, map[string]interface{}{"duration_years": 4}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"code":  "this field is required",
				"name":  "this field is required",
				"level": "this field is required",
			}),
		},
	})

	rec := do(srv, http.MethodPost, "/v1/programs", adminTkn, newProgram)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prog program.Program
	unmarchall(t, rec, &prog)
	assert.Equal(t, "BSIT", prog.Code)
	assert.True(t, prog.IsActive)

	rec = do(srv, http.MethodPost, "/v1/programs/"+prog.ID+"/majors", adminTkn,
		marchallObj(t, map[string]string{"code": "wmad", "name": "Web and Mobile App Development"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var major program.Major
	unmarchall(t, rec, &major)
	assert.Equal(t, prog.ID, major.ProgramID)
	assert.Equal(t, "WMAD", major.Code)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "duplicate code",
			method:   http.MethodPost,
			path:     "/v1/programs",
			body:     newProgram,
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": program.ErrCodeExists.Error()}),
		},
		{
			name:     "list",
			path:     "/v1/programs",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, prog),
		},
		{
			name:     "search miss",
			path:     "/v1/programs?search=nursing",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "majors",
			path:     "/v1/programs/" + prog.ID + "/majors",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, major),
		},
		{
			name:     "majors of unknown program",
			path:     "/v1/programs/" + major.ID + "/majors",
			token:    jdoeTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: program.ErrNotFound.Error()}),
		},
		{
			name:     "program with majors cannot be deleted",
			method:   http.MethodDelete,
			path:     "/v1/programs/" + prog.ID,
			token:    adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: program.ErrProgramHasMajors.Error()}),
		},
		{
			name:     "delete major",
			method:   http.MethodDelete,
			path:     "/v1/majors/" + major.ID,
			token:    adminTkn,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete program",
			method:   http.MethodDelete,
			path:     "/v1/programs/" + prog.ID,
			token:    adminTkn,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted program",
			path:     "/v1/programs/" + prog.ID,
			token:    adminTkn,
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_courseApi(t *testing.T) {
	srv, env := setup(t)

	adminTkn := getToken(t, env, env.CreateAdmin(t, "registrar"))
	teacher := env.CreateTeacher(t, "tmendoza")
	jdoe := env.CreateStudent(t, "jdoe")
	jdoeTkn := getToken(t, env, jdoe)

	rec := do(srv, http.MethodPost, "/v1/courses", adminTkn,
		marchallObj(t, map[string]interface{}{"code": "cs101", "name": "Intro to Computing", "units": 3}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs course.Course
	unmarchall(t, rec, &crs)
	assert.Equal(t, "CS101", crs.Code)

	start := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	newClass := map[string]interface{}{
		"teacher_id":    teacher.ID,
		"name":          "Section A",
		"academic_year": "2025-2026",
		"term":          course.TermFirst,
		"capacity":      40,
		"start_date":    start,
		"end_date":      start.AddDate(0, 4, 0),
	}
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "students cannot open classes",
			method:   http.MethodPost,
			path:     "/v1/courses/" + crs.ID + "/classes",
			body:     marchallObj(t, newClass),
			token:    jdoeTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "students do not teach",
			method:   http.MethodPost,
			path:     "/v1/courses/" + crs.ID + "/classes",
			body:     marchallObj(t, map[string]interface{}{
				"teacher_id":    jdoe.ID,
				"name":          "Section B",
				"academic_year": "2025-2026",
				"term":          course.TermFirst,
				"start_date":    start,
				"end_date":      start.AddDate(0, 4, 0),
			}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad academic year",
			method:   http.MethodPost,
			path:     "/v1/courses/" + crs.ID + "/classes",
			body:     marchallObj(t, map[string]interface{}{
				"teacher_id":    teacher.ID,
				"name":          "Section B",
				"academic_year": "2025-2027",
				"term":          course.TermFirst,
				"start_date":    start,
				"end_date":      start.AddDate(0, 4, 0),
			}),
			token:    adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"academic_year": "must be an academic year such as 2025-2026"}),
		},
	})

	rec = do(srv, http.MethodPost, "/v1/courses/"+crs.ID+"/classes", adminTkn, marchallObj(t, newClass))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var class course.Class
	unmarchall(t, rec, &class)
	assert.Equal(t, crs.ID, class.CourseID)
	assert.False(t, class.IsArchived)

	env.Enroll(t, jdoe.ID, class.ID)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "classes of the course",
			path:     "/v1/courses/" + crs.ID + "/classes",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, class),
		},
		{
			name:     "classes by teacher",
			path:     "/v1/classes?teacher_id=" + teacher.ID,
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, class),
		},
		{
			name:     "no archived classes yet",
			path:     "/v1/classes?archived=true",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "course with classes cannot be deleted",
			method:   http.MethodDelete,
			path:     "/v1/courses/" + crs.ID,
			token:    adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: course.ErrCourseHasClass.Error()}),
		},
		{
			name:     "class with enrollments cannot be deleted",
			method:   http.MethodDelete,
			path:     "/v1/classes/" + class.ID,
			token:    adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: course.ErrClassInUse.Error()}),
		},
	})

	rec = do(srv, http.MethodPost, "/v1/classes/"+class.ID+"/archive", adminTkn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &class)
	assert.True(t, class.IsArchived)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "archived classes",
			path:     "/v1/classes?archived=true",
			token:    jdoeTkn,
			wantCode: http.StatusOK,
			wantData: marchallList(t, class),
		},
		{
			name:     "archived classes are read-only",
			method:   http.MethodPut,
			path:     "/v1/classes/" + class.ID,
			body:     marchallObj(t, map[string]interface{}{"capacity": 50}),
			token:    adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: course.ErrClassArchived.Error()}),
		},
	})
}
