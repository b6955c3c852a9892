package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

type lmsApi struct {
	svc      lms.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerLMSAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := lmsApi{
		svc:      deps.LMSSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	// no group here: a group with middleware would shadow `/classes/:id`
	g.GET("/classes/:id/modules", api.listModules, jwt)
	g.POST("/classes/:id/modules", api.createModule, jwt, staffMiddleware())
	g.POST("/classes/:id/modules/clone", api.cloneModules, jwt, staffMiddleware())
	g.GET("/classes/:id/grades", api.classGrades, jwt)

	mg := g.Group("/modules/:id", jwt)
	mg.GET("", api.retrieveModule)
	mg.PUT("", api.updateModule, staffMiddleware())
	mg.DELETE("", api.destroyModule, staffMiddleware())
	mg.POST("/sections", api.createSection, staffMiddleware())

	sg := g.Group("/sections/:id", jwt, staffMiddleware())
	sg.PUT("", api.updateSection)
	sg.DELETE("", api.destroySection)
	sg.POST("/contents", api.createContent)

	tg := g.Group("/contents", jwt)
	tg.GET("", api.queryContents)
	tg.GET("/:id", api.retrieveContent)
	tg.PUT("/:id", api.updateContent, staffMiddleware())
	tg.DELETE("/:id", api.destroyContent, staffMiddleware())
	tg.GET("/:id/submissions", api.querySubmissions)
	tg.POST("/:id/submissions", api.submit)

	g.PUT("/submissions/:id/grade", api.grade, jwt, staffMiddleware())
}

// Modules

func (api *lmsApi) listModules(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	modules, err := api.svc.ListModules(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	return ctx.JSON(http.StatusOK, list(modules))
}

func (api *lmsApi) createModule(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *lmsApi) cloneModules(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	modules, err := api.svc.CloneMostRecentModules(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cloning modules")
	}
	return ctx.JSON(http.StatusCreated, list(modules))
}

func (api *lmsApi) retrieveModule(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	mod, err := api.svc.GetModule(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *lmsApi) updateModule(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.UpdateModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.UpdateModule(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *lmsApi) destroyModule(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteModule(ctx.Request().Context(), v, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *lmsApi) createSection(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.svc.CreateSection(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *lmsApi) updateSection(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.UpdateSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.svc.UpdateSection(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *lmsApi) destroySection(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSection(ctx.Request().Context(), v, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contents

func (api *lmsApi) createContent(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.NewContent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cnt, err := api.svc.CreateContent(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, cnt)
}

func (api *lmsApi) queryContents(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	q := lms.ContentQuery{
		ClassID:   ctx.QueryParam("class_id"),
		ModuleID:  ctx.QueryParam("module_id"),
		SectionID: ctx.QueryParam("section_id"),
		Kind:      ctx.QueryParam("kind"),
	}

	contents, err := api.svc.FindAllContent(ctx.Request().Context(), v, q)
	if err != nil {
		return errors.Wrap(err, "finding contents")
	}
	return ctx.JSON(http.StatusOK, list(contents))
}

func (api *lmsApi) retrieveContent(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	cnt, err := api.svc.FindOneContent(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *lmsApi) updateContent(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	cnt, err := api.svc.GetContentForUpdate(rctx, v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content")
	}

	var data lms.UpdateContent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContent")
	}
	if err = data.Validate(cnt, api.validate); err != nil {
		return err
	}

	cnt, err = api.svc.UpdateContent(rctx, v, cnt, data)
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *lmsApi) destroyContent(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteContent(ctx.Request().Context(), v, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions & grades

func (api *lmsApi) submit(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *lmsApi) querySubmissions(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, list(subs))
}

func (api *lmsApi) grade(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data lms.GradeInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), v, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *lmsApi) classGrades(ctx echo.Context) error {
	v, err := getContextViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	grades, err := api.svc.ClassGrades(ctx.Request().Context(), v, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing class grades")
	}
	return ctx.JSON(http.StatusOK, list(grades))
}
