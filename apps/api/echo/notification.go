package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

type notificationApi struct {
	svc      notification.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := notificationApi{
		svc:      deps.NotificationSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.queryMine)
	ng.POST("", api.announce, adminMiddleware())
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/read", api.markRead)
	ng.POST("/read-all", api.markAllRead)
	ng.DELETE("/:id", api.destroy)
}

func (api *notificationApi) announce(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notifs, err := api.svc.Notify(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "notifying")
	}
	return ctx.JSON(http.StatusCreated, CountResponse{Count: len(notifs)})
}

func (api *notificationApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	unread, err := queryBool(ctx, "unread")
	if err != nil {
		return err
	}
	page := new(Pagination)
	if err = page.Bind(ctx); err != nil {
		return err
	}

	notifs, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr.ID, unread != nil && *unread, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, list(notifs))
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data MarkReadRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkReadRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	n, err := api.svc.MarkRead(ctx.Request().Context(), ctxUsr.ID, data.IDs)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkAllRead(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	MarkReadRequest struct {
		IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}
)
