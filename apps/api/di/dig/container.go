package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/dig"

	echoapi "github.com/YKZSolutions/MMDC-Student-Portal-sub002/apps/api/echo"
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
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
	inmemdb "github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database/inmem"
	pgrepos "github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database/postgres"
)

const engineMemory = "memory"

// DBCloser releases the database connections.
type DBCloser func()

// Migrator runs a goose command over the app database.
type Migrator func(command string, args ...string) error

// Storage is every repository of the selected database engine.
type Storage struct {
	dig.Out

	Close         DBCloser
	Migrate       Migrator
	Tx            core.Transactor
	Users         user.Repository
	Programs      program.Repository
	Courses       course.Repository
	Fees          pricing.Repository
	Billing       billing.Repository
	Enrollments   enrollment.Repository
	LMS           lms.Repository
	Notifications notification.Repository
}

type ServerParam struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *prometheus.Registry

	UserSvc         user.Service
	ProgramSvc      program.Service
	CourseSvc       course.Service
	PricingSvc      pricing.Service
	BillingSvc      billing.Service
	EnrollmentSvc   enrollment.Service
	LMSSvc          lms.Service
	NotificationSvc notification.Service
}

func newLogger(conf *core.Config, zl zerolog.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newStorage connects the repositories of conf.Database.Engine. The memory engine starts empty.
func newStorage(conf *core.Config, zl zerolog.Logger) (Storage, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return Storage{
			Close:         func() {},
			Migrate:       func(string, ...string) error { return nil },
			Tx:            inmemdb.NewTransactor(db),
			Users:         inmemdb.NewUserRepository(db),
			Programs:      inmemdb.NewProgramRepository(db),
			Courses:       inmemdb.NewCourseRepository(db),
			Fees:          inmemdb.NewFeeRepository(db),
			Billing:       inmemdb.NewBillingRepository(db),
			Enrollments:   inmemdb.NewEnrollmentRepository(db),
			LMS:           inmemdb.NewLMSRepository(db),
			Notifications: inmemdb.NewNotificationRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return Storage{}, err
	}
	pool, err := database.Open(context.Background(), conf, zl)
	if err != nil {
		return Storage{}, err
	}
	return Storage{
		Close:         pool.Close,
		Migrate:       newMigrator(conf),
		Tx:            database.NewTransactor(pool),
		Users:         pgrepos.NewUserRepository(pool),
		Programs:      pgrepos.NewProgramRepository(pool),
		Courses:       pgrepos.NewCourseRepository(pool),
		Fees:          pgrepos.NewFeeRepository(pool),
		Billing:       pgrepos.NewBillingRepository(pool),
		Enrollments:   pgrepos.NewEnrollmentRepository(pool),
		LMS:           pgrepos.NewLMSRepository(pool),
		Notifications: pgrepos.NewNotificationRepository(pool),
	}, nil
}

func newMigrator(conf *core.Config) Migrator {
	return func(command string, args ...string) error {
		db, err := database.OpenSQL(conf)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return database.Migrate(db, command, args...)
	}
}

func newEmailService(conf *core.Config, zl zerolog.Logger, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, zl, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	program.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	pricing.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	lms.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	return validate
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		Metrics:         p.Metrics,
		UserSvc:         p.UserSvc,
		ProgramSvc:      p.ProgramSvc,
		CourseSvc:       p.CourseSvc,
		PricingSvc:      p.PricingSvc,
		BillingSvc:      p.BillingSvc,
		EnrollmentSvc:   p.EnrollmentSvc,
		LMSSvc:          p.LMSSvc,
		NotificationSvc: p.NotificationSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZerolog))
	must(c.Provide(newLogger))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(echoapi.NewMetricsRegistry))

	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(program.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(pricing.NewService))
	must(c.Provide(billing.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(lms.NewService))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
