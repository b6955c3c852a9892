package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
)

type pricingApi struct {
	conf     *core.Config
	svc      pricing.Service
	validate *validator.Validate
}

func registerPricingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := pricingApi{
		conf:     deps.Conf,
		svc:      deps.PricingSvc,
		validate: deps.Validate,
	}

	fg := g.Group("/fees", jwt)
	fg.GET("", api.query)
	fg.POST("", api.create, adminMiddleware())
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update, adminMiddleware())
	fg.DELETE("/:id", api.destroy, adminMiddleware())

	g.GET("/pricing/quote", api.quote, jwt)
}

func (api *pricingApi) create(ctx echo.Context) error {
	var data pricing.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if data.Currency == "" {
		data.Currency = api.conf.Currency
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	fee, err := api.svc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, fee)
}

func (api *pricingApi) query(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := pricing.QueryFilter{
		AcademicYear: ctx.QueryParam("academic_year"),
		CourseID:     ctx.QueryParam("course_id"),
		Kind:         ctx.QueryParam("kind"),
		IsActive:     isActive,
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	fees, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, list(fees))
}

func (api *pricingApi) retrieve(ctx echo.Context) error {
	fee, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding fee")
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *pricingApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	fee, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding fee")
	}

	var data pricing.UpdateFee
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}
	if err = data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	fee, err = api.svc.Update(rctx, fee, data)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *pricingApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pricingApi) quote(ctx echo.Context) error {
	courseID := ctx.QueryParam("course_id")
	if courseID == "" {
		return core.NewFieldError("course_id", "this field is required")
	}
	year := ctx.QueryParam("academic_year")
	if year == "" {
		return core.NewFieldError("academic_year", "this field is required")
	}

	quote, err := api.svc.QuoteCourse(ctx.Request().Context(), courseID, year)
	if err != nil {
		return errors.Wrap(err, "quoting course")
	}
	return ctx.JSON(http.StatusOK, quote)
}
