package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

type billingApi struct {
	svc      billing.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := billingApi{
		svc:      deps.BillingSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/invoices", jwt)
	ig.GET("", api.queryInvoices)
	ig.POST("", api.issueInvoice, adminMiddleware())
	ig.GET("/:id", api.retrieveInvoice)
	ig.POST("/:id/void", api.voidInvoice, adminMiddleware())
	ig.GET("/:id/payments", api.queryPayments)
	ig.POST("/:id/payments", api.recordPayment, adminMiddleware())

	g.GET("/students/:id/balance", api.balance, jwt)
}

// getInvoice returns the invoice if the context user may see it: admins see all, students their own.
func (api *billingApi) getInvoice(ctx echo.Context) (billing.Invoice, error) {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return billing.Invoice{}, err
	}
	inv, err := api.svc.GetInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return billing.Invoice{}, errors.Wrap(err, "finding invoice")
	}
	if !ctxUsr.IsAdmin() && inv.StudentID != ctxUsr.ID {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return inv, nil
}

func (api *billingApi) issueInvoice(ctx echo.Context) error {
	var data billing.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.IssueInvoice(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "issuing invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *billingApi) queryInvoices(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	overdue, err := queryBool(ctx, "overdue")
	if err != nil {
		return err
	}

	filter := billing.QueryFilter{
		StudentID:    ctx.QueryParam("student_id"),
		EnrollmentID: ctx.QueryParam("enrollment_id"),
		Statuses:     queryStrings(ctx, "status"),
	}
	if !ctxUsr.IsAdmin() {
		filter.StudentID = ctxUsr.ID
	}
	if overdue != nil && *overdue {
		filter.DueBefore = core.TimePtr(core.NowFunc())
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	invoices, err := api.svc.QueryInvoices(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	return ctx.JSON(http.StatusOK, list(invoices))
}

func (api *billingApi) retrieveInvoice(ctx echo.Context) error {
	inv, err := api.getInvoice(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) voidInvoice(ctx echo.Context) error {
	inv, err := api.svc.VoidInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "voiding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) queryPayments(ctx echo.Context) error {
	inv, err := api.getInvoice(ctx)
	if err != nil {
		return err
	}
	payments, err := api.svc.QueryPayments(ctx.Request().Context(), inv.ID)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, list(payments))
}

func (api *billingApi) recordPayment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data billing.NewPayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	payment, err := api.svc.RecordPayment(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, payment)
}

func (api *billingApi) balance(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	studentID := ctx.Param("id")
	if !ctxUsr.IsAdmin() && studentID != ctxUsr.ID {
		return errHttpNotFound
	}

	bal, err := api.svc.StudentBalance(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}
