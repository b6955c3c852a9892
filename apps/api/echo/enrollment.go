package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

type enrollmentApi struct {
	svc       enrollment.Service
	courseSvc course.Service
	userSvc   user.Service
	validate  *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := enrollmentApi{
		svc:       deps.EnrollmentSvc,
		courseSvc: deps.CourseSvc,
		userSvc:   deps.UserSvc,
		validate:  deps.Validate,
	}

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.query)
	eg.POST("", api.enroll)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id/status", api.updateStatus, adminMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
}

// taughtClassIDs returns the IDs of the classes taught by teacherID.
func (api *enrollmentApi) taughtClassIDs(ctx echo.Context, teacherID string) ([]string, error) {
	classes, err := api.courseSvc.QueryClasses(ctx.Request().Context(), course.ClassFilter{TeacherID: teacherID}, nil, core.Pagination{})
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data enrollment.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if !ctxUsr.IsAdmin() {
		// students enroll themselves
		if !ctxUsr.IsStudent() {
			return errHttpForbidden
		}
		if data.StudentID == "" {
			data.StudentID = ctxUsr.ID
		}
		if data.StudentID != ctxUsr.ID {
			return errHttpForbidden
		}
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	filter := enrollment.QueryFilter{
		StudentID: ctx.QueryParam("student_id"),
		ClassID:   ctx.QueryParam("class_id"),
		Statuses:  queryStrings(ctx, "status"),
	}
	switch {
	case ctxUsr.IsAdmin():
	case ctxUsr.IsTeacher():
		if filter.ClassIDs, err = api.taughtClassIDs(ctx, ctxUsr.ID); err != nil {
			return err
		}
		if len(filter.ClassIDs) == 0 {
			return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
		}
	default:
		filter.StudentID = ctxUsr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	enrollments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, list(enrollments))
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	enr, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding enrollment")
	}

	switch {
	case ctxUsr.IsAdmin(), enr.StudentID == ctxUsr.ID:
	case ctxUsr.IsTeacher():
		class, err := api.courseSvc.GetClass(rctx, enr.ClassID)
		if err != nil {
			return errors.Wrap(err, "finding class")
		}
		if class.TeacherID != ctxUsr.ID {
			return enrollment.ErrNotFound
		}
	default:
		return enrollment.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) updateStatus(ctx echo.Context) error {
	var data enrollment.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
