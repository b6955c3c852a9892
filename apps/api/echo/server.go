package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

// Deps holds everything the API handlers need.
type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    prometheus.Registerer

	UserSvc         user.Service
	ProgramSvc      program.Service
	CourseSvc       course.Service
	PricingSvc      pricing.Service
	BillingSvc      billing.Service
	EnrollmentSvc   enrollment.Service
	LMSSvc          lms.Service
	NotificationSvc notification.Service
}

type Server struct {
	*http.Server
	app      *echo.Echo
	deps     *Deps
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps *Deps) *Server {
	app := echo.New()
	s := &Server{
		Server: &http.Server{
			Addr:    deps.Conf.Server.Host,
			Handler: app,
		},
		app:      app,
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Logger.SetLevel(log.ERROR)
	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.deps.Metrics != nil {
		s.app.Use(newHTTPMetrics(s.deps.Metrics).middleware())
	}
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(v1, jwt, s.deps)
	registerProgramAPI(v1, jwt, s.deps)
	registerCourseAPI(v1, jwt, s.deps)
	registerPricingAPI(v1, jwt, s.deps)
	registerBillingAPI(v1, jwt, s.deps)
	registerEnrollmentAPI(v1, jwt, s.deps)
	registerLMSAPI(v1, jwt, s.deps)
	registerNotificationAPI(v1, jwt, s.deps)
}

// Start listens until the server is shut down. Listening errors are sent to Errors().
func (s *Server) Start() {
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Stop(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the MMDC Student Portal API!")
}

// list returns an empty slice instead of nil so that lists are encoded as `[]`.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
