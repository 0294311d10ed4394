package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

type attendanceApi struct {
	svc      *attendance.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *attendance.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("/class", api.take(roster.KindClass), staffMiddleware())
	ag.POST("/group", api.take(roster.KindGroup), staffMiddleware())
	ag.POST("/session", api.take(roster.KindSession), staffMiddleware())
	ag.GET("/report", api.report, staffMiddleware())
	ag.GET("/class/:targetId", api.history(roster.KindClass), staffMiddleware())
	ag.GET("/group/:targetId", api.history(roster.KindGroup), staffMiddleware())
	ag.GET("/session/:targetId", api.history(roster.KindSession), staffMiddleware())
	ag.GET("/child/:childId", api.childHistory)
	ag.GET("/:id", api.retrieve, staffMiddleware())
	ag.PUT("/:id", api.update, staffMiddleware())
}

// checkAssignment fails unless the user is an admin or a teacher assigned
// to the roster entity being recorded.
func checkAssignment(usr user.User, kind roster.Kind, targetID string) error {
	if usr.IsAdmin() {
		return nil
	}
	var assigned []string
	switch kind {
	case roster.KindClass:
		assigned = usr.AssignedClassIDs
	case roster.KindGroup:
		assigned = usr.AssignedGroupIDs
	case roster.KindSession:
		assigned = usr.AssignedSessionIDs
	}
	if !usr.IsAssigned(assigned, targetID) {
		return errHttpForbidden
	}
	return nil
}

// Handlers

func (api *attendanceApi) take(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}

		var data attendance.TakeAttendance
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to TakeAttendance")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}
		if err := checkAssignment(usr, kind, data.TargetID); err != nil {
			return err
		}

		evt, err := api.svc.Take(ctx.Request().Context(), kind, data, usr.ID)
		if err != nil {
			return errors.Wrapf(err, "taking %s attendance", kind)
		}
		return ctx.JSON(http.StatusCreated, evt)
	}
}

func (api *attendanceApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendance by ID")
	}
	if err := checkAssignment(usr, evt.Kind, evt.TargetID); err != nil {
		return err
	}

	var data attendance.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err = api.svc.Update(ctx.Request().Context(), evt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	evt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendance by ID")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *attendanceApi) history(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		dr := bindDateRange(ctx, api.conf.Timezone)
		page := bindPage(ctx)

		events, pagination, err := api.svc.History(ctx.Request().Context(), kind, ctx.Param("targetId"), dr, page)
		if err != nil {
			return errors.Wrapf(err, "querying %s attendance history", kind)
		}
		if events == nil {
			events = []attendance.Detail{}
		}
		return ctx.JSON(http.StatusOK, AttendanceListResponse{Events: events, Pagination: pagination})
	}
}

// childHistory is open to staff and to the child's own parent.
func (api *attendanceApi) childHistory(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	childID := ctx.Param("childId")
	if !usr.IsStaff() && !usr.IsAssigned(usr.ChildIDs, childID) {
		return errHttpNotFound
	}

	kind := roster.Kind(ctx.QueryParam("type"))
	dr := bindDateRange(ctx, api.conf.Timezone)

	entries, err := api.svc.ChildHistory(ctx.Request().Context(), childID, kind, dr)
	if err != nil {
		return errors.Wrap(err, "querying child attendance history")
	}
	if entries == nil {
		entries = []attendance.ChildEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	filter := new(attendance.ReportFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ReportFilter")
	}
	filter.DateRange = bindDateRange(ctx, api.conf.Timezone)

	report, err := api.svc.Report(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, report)
}

type AttendanceListResponse struct {
	Events     []attendance.Detail `json:"events"`
	Pagination core.Pagination     `json:"pagination"`
}
