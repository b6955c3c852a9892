package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/assets"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
	emailsvc "github.com/YKZSolutions/MMDC-Student-Portal-sub002/services/email"
	logsvc "github.com/YKZSolutions/MMDC-Student-Portal-sub002/services/logger"
	inmemdb "github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database/inmem"
)

var loadAssets sync.Once

// Env wires every service on the in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Tx         core.Transactor
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Logger     core.Logger

	UserRepo user.Repository

	Users         user.Service
	Programs      program.Service
	Courses       course.Service
	Pricing       pricing.Service
	Billing       billing.Service
	Enrollments   enrollment.Service
	LMS           lms.Service
	Notifications notification.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zerolog.Nop(), conf)
	loadAssets.Do(func() {
		core.ParseEmailTemplates(assets.FS, conf, logger)
		user.LoadCommonPasswords(assets.FS, logger)
	})

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	program.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	pricing.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	lms.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	db := inmemdb.Open()
	tx := inmemdb.NewTransactor(db)
	mail := emailsvc.NewConsoleServiceMock(conf)

	env := &Env{
		Conf:       conf,
		DB:         db,
		Tx:         tx,
		Validate:   validate,
		Translator: translator,
		Mail:       mail,
		Logger:     logger,
		UserRepo:   inmemdb.NewUserRepository(db),
	}
	env.Users = user.NewServiceMock(env.UserRepo, mail, conf)
	env.Notifications = notification.NewService(inmemdb.NewNotificationRepository(db), env.Users, mail)
	env.Programs = program.NewService(inmemdb.NewProgramRepository(db), tx)
	env.Courses = course.NewService(inmemdb.NewCourseRepository(db), tx, env.Programs, env.Users)
	env.Pricing = pricing.NewService(inmemdb.NewFeeRepository(db), env.Courses, conf)
	env.Billing = billing.NewService(inmemdb.NewBillingRepository(db), tx, env.Users, env.Notifications, conf)
	env.Enrollments = enrollment.NewService(
		inmemdb.NewEnrollmentRepository(db), tx, env.Users, env.Courses, env.Pricing, env.Billing, env.Notifications,
	)
	env.LMS = lms.NewService(inmemdb.NewLMSRepository(db), tx, env.Courses, env.Enrollments, env.Notifications)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateAdmin(t *testing.T, uname string) user.User {
	return CreateUser(t, env.UserRepo, "Admin "+uname, uname, uname+"@mmdc.edu.ph", "", []string{user.RoleAdmin}, true)
}

func (env *Env) CreateTeacher(t *testing.T, uname string) user.User {
	return CreateUser(t, env.UserRepo, "Teacher "+uname, uname, uname+"@mmdc.edu.ph", "", []string{user.RoleTeacher}, true)
}

func (env *Env) CreateStudent(t *testing.T, uname string) user.User {
	return CreateUser(t, env.UserRepo, "Student "+uname, uname, uname+"@mmdc.edu.ph", "", []string{user.RoleStudent}, true)
}

func (env *Env) CreateProgram(t *testing.T, code string) program.Program {
	t.Helper()
	prog, err := env.Programs.Create(context.Background(), program.NewProgram{
		Code:          code,
		Name:          "Program " + code,
		Level:         program.LevelUndergraduate,
		DurationYears: 4,
	})
	if err != nil {
		t.Fatalf("createProgram() failed: %v", err)
	}
	return prog
}

func (env *Env) CreateMajor(t *testing.T, programID, code string) program.Major {
	t.Helper()
	m, err := env.Programs.CreateMajor(context.Background(), program.NewMajor{
		ProgramID: programID,
		Code:      code,
		Name:      "Major " + code,
	})
	if err != nil {
		t.Fatalf("createMajor() failed: %v", err)
	}
	return m
}

func (env *Env) CreateCourse(t *testing.T, code string, units int, majorIDs ...string) course.Course {
	t.Helper()
	crs, err := env.Courses.Create(context.Background(), course.NewCourse{
		Code:     code,
		Name:     "Course " + code,
		Units:    units,
		MajorIDs: majorIDs,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

// CreateClass creates a class of courseID starting at `start` and lasting four months.
func (env *Env) CreateClass(t *testing.T, courseID, teacherID, academicYear string, capacity int, start time.Time) course.Class {
	t.Helper()
	class, err := env.Courses.CreateClass(context.Background(), course.NewClass{
		CourseID:     courseID,
		TeacherID:    teacherID,
		Name:         "Section A",
		AcademicYear: academicYear,
		Term:         course.TermFirst,
		Capacity:     capacity,
		StartDate:    start.UTC(),
		EndDate:      start.UTC().AddDate(0, 4, 0),
	})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return class
}

func (env *Env) CreateFee(t *testing.T, nf pricing.NewFee) pricing.Fee {
	t.Helper()
	if nf.Currency == "" {
		nf.Currency = env.Conf.Currency
	}
	fee, err := env.Pricing.Create(context.Background(), nf)
	if err != nil {
		t.Fatalf("createFee() failed: %v", err)
	}
	return fee
}

// Enroll enrolls the student and confirms the enrollment.
func (env *Env) Enroll(t *testing.T, studentID, classID string) enrollment.Enrollment {
	t.Helper()
	ctx := context.Background()
	enr, err := env.Enrollments.Enroll(ctx, enrollment.NewEnrollment{StudentID: studentID, ClassID: classID})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	if enr, err = env.Enrollments.UpdateStatus(ctx, enr.ID, enrollment.StatusEnrolled); err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return enr
}
