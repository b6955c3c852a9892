package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
)

type programApi struct {
	svc      program.Service
	validate *validator.Validate
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := programApi{
		svc:      deps.ProgramSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/programs", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, adminMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, adminMiddleware())
	pg.DELETE("/:id", api.destroy, adminMiddleware())
	pg.GET("/:id/majors", api.queryMajors)
	pg.POST("/:id/majors", api.createMajor, adminMiddleware())

	mg := g.Group("/majors", jwt)
	mg.GET("/:id", api.retrieveMajor)
	mg.PUT("/:id", api.updateMajor, adminMiddleware())
	mg.DELETE("/:id", api.destroyMajor, adminMiddleware())
}

func (api *programApi) create(ctx echo.Context) error {
	var data program.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	prog, err := api.svc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) query(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := program.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Level:    ctx.QueryParam("level"),
		IsActive: isActive,
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	progs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	return ctx.JSON(http.StatusOK, list(progs))
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	prog, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}

	var data program.UpdateProgram
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgram")
	}
	if err = data.Validate(rctx, prog, api.validate, api.svc); err != nil {
		return err
	}

	prog, err = api.svc.Update(rctx, prog, data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *programApi) createMajor(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	prog, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}

	var data program.NewMajor
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMajor")
	}
	data.ProgramID = prog.ID
	if err = data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	major, err := api.svc.CreateMajor(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating major")
	}
	return ctx.JSON(http.StatusCreated, major)
}

func (api *programApi) queryMajors(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	prog, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	majors, err := api.svc.QueryMajors(rctx, program.MajorFilter{
		ProgramID: prog.ID,
		Search:    ctx.QueryParam("search"),
		IsActive:  isActive,
	}, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying majors")
	}
	return ctx.JSON(http.StatusOK, list(majors))
}

func (api *programApi) retrieveMajor(ctx echo.Context) error {
	major, err := api.svc.GetMajor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding major")
	}
	return ctx.JSON(http.StatusOK, major)
}

func (api *programApi) updateMajor(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	major, err := api.svc.GetMajor(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding major")
	}

	var data program.UpdateMajor
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMajor")
	}
	if err = data.Validate(rctx, major, api.validate, api.svc); err != nil {
		return err
	}

	major, err = api.svc.UpdateMajor(rctx, major, data)
	if err != nil {
		return errors.Wrap(err, "updating major")
	}
	return ctx.JSON(http.StatusOK, major)
}

func (api *programApi) destroyMajor(ctx echo.Context) error {
	if err := api.svc.DeleteMajor(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting major")
	}
	return ctx.NoContent(http.StatusNoContent)
}
