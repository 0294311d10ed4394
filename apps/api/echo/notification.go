package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jckckids/backend/core/notification"
)

type notificationApi struct {
	svc      *notification.Service
	validate *validator.Validate
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *notification.Service,
	validate *validator.Validate,
) {
	api := notificationApi{
		svc:      svc,
		validate: validate,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.inbox)
	ng.POST("", api.send, staffMiddleware())
	ng.POST("/bulk", api.sendBulk, staffMiddleware())
	ng.PUT("/read-all", api.markAllRead)
	ng.PUT("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy)
}

// Handlers

// inbox always lists the authenticated user's own notifications.
func (api *notificationApi) inbox(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	unreadOnly := ctx.QueryParam("unreadOnly") == "true"
	page := bindPage(ctx)

	inbox, err := api.svc.List(ctx.Request().Context(), claims.Subject, unreadOnly, page)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, inbox)
}

func (api *notificationApi) send(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notif, err := api.svc.Send(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusCreated, notif)
}

func (api *notificationApi) sendBulk(ctx echo.Context) error {
	var data notification.BulkNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sent, err := api.svc.SendBulk(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "sending bulk notification")
	}
	return ctx.JSON(http.StatusCreated, BulkSendResponse{Sent: sent})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notif, err := api.svc.MarkRead(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.MarkAllRead(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "All notifications marked as read."})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type BulkSendResponse struct {
	Sent int `json:"sent"`
}
