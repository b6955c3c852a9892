package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.GET("/:id/classes", api.queryCourseClasses)
	cg.POST("/:id/classes", api.createClass, adminMiddleware())

	kg := g.Group("/classes", jwt)
	kg.GET("", api.queryClasses)
	kg.GET("/:id", api.retrieveClass)
	kg.PUT("/:id", api.updateClass, adminMiddleware())
	kg.DELETE("/:id", api.destroyClass, adminMiddleware())
	kg.POST("/:id/archive", api.archiveClass, adminMiddleware())
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := course.QueryFilter{
		Search:   ctx.QueryParam("search"),
		MajorID:  ctx.QueryParam("major_id"),
		IsActive: isActive,
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, list(courses))
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	crs, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(rctx, crs, api.validate, api.svc); err != nil {
		return err
	}

	crs, err = api.svc.Update(rctx, crs, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) createClass(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	crs, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	var data course.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.CourseID = crs.ID
	if err = data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *courseApi) queryCourseClasses(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return api.listClasses(ctx, crs.ID)
}

func (api *courseApi) queryClasses(ctx echo.Context) error {
	return api.listClasses(ctx, ctx.QueryParam("course_id"))
}

func (api *courseApi) listClasses(ctx echo.Context, courseID string) error {
	archived, err := queryBool(ctx, "archived")
	if err != nil {
		return err
	}
	filter := course.ClassFilter{
		CourseID:     courseID,
		TeacherID:    ctx.QueryParam("teacher_id"),
		AcademicYear: ctx.QueryParam("academic_year"),
		IsArchived:   archived,
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, list(classes))
}

func (api *courseApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *courseApi) updateClass(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	class, err := api.svc.GetClass(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}

	var data course.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(rctx, class, api.validate, api.svc); err != nil {
		return err
	}

	class, err = api.svc.UpdateClass(rctx, class, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *courseApi) archiveClass(ctx echo.Context) error {
	class, err := api.svc.ArchiveClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "archiving class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *courseApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
