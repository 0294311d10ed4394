package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jckckids/backend/core/roster"
)

type rosterApi struct {
	svc      *roster.Service
	validate *validator.Validate
}

func registerRosterAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *roster.Service,
	validate *validator.Validate,
) {
	api := rosterApi{
		svc:      svc,
		validate: validate,
	}

	api.registerKind(g, jwt, roster.KindClass, "/classes")
	api.registerKind(g, jwt, roster.KindGroup, "/groups")
	api.registerKind(g, jwt, roster.KindSession, "/sessions")
}

// registerKind wires the same CRUD surface for each roster kind.
func (api *rosterApi) registerKind(g *echo.Group, jwt echo.MiddlewareFunc, kind roster.Kind, prefix string) {
	kg := g.Group(prefix, jwt)
	kg.GET("", api.query(kind))
	kg.POST("", api.create(kind), adminMiddleware())
	kg.POST("/init", api.init(kind), adminMiddleware())
	kg.GET("/:id", api.retrieve(kind))
	kg.PUT("/:id", api.update(kind), adminMiddleware())
	kg.DELETE("/:id", api.destroy(kind), adminMiddleware())
	kg.POST("/:id/assign-teacher", api.assignTeacher(kind), adminMiddleware())
	kg.POST("/:id/remove-teacher", api.removeTeacher(kind), adminMiddleware())
}

// Handlers

func (api *rosterApi) query(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		entities, err := api.svc.Query(ctx.Request().Context(), kind)
		if err != nil {
			return errors.Wrapf(err, "querying %s entities", kind)
		}
		if entities == nil {
			entities = []roster.Entity{}
		}
		return ctx.JSON(http.StatusOK, entities)
	}
}

func (api *rosterApi) create(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data roster.NewEntity
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewEntity")
		}
		if err := data.Validate(api.validate, kind, api.svc); err != nil {
			return err
		}

		ent, err := api.svc.Create(ctx.Request().Context(), kind, data)
		if err != nil {
			return errors.Wrapf(err, "creating %s", kind)
		}
		return ctx.JSON(http.StatusCreated, ent)
	}
}

// init seeds the canonical entities of a kind that are still missing.
func (api *rosterApi) init(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		created, err := api.svc.Init(ctx.Request().Context(), kind)
		if err != nil {
			return errors.Wrapf(err, "initializing %s entities", kind)
		}
		return ctx.JSON(http.StatusCreated, created)
	}
}

func (api *rosterApi) retrieve(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ent, err := api.svc.GetByID(ctx.Request().Context(), kind, ctx.Param("id"))
		if err != nil {
			return errors.Wrapf(err, "finding %s by ID", kind)
		}
		count, err := api.svc.ChildrenCount(ctx.Request().Context(), kind, ent.ID)
		if err != nil {
			return errors.Wrap(err, "counting children")
		}
		return ctx.JSON(http.StatusOK, EntityDetailResponse{Entity: ent, ChildrenCount: count})
	}
}

func (api *rosterApi) update(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data roster.UpdateEntity
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateEntity")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		ent, err := api.svc.Update(ctx.Request().Context(), kind, ctx.Param("id"), data)
		if err != nil {
			return errors.Wrapf(err, "updating %s", kind)
		}
		return ctx.JSON(http.StatusOK, ent)
	}
}

func (api *rosterApi) destroy(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := api.svc.Deactivate(ctx.Request().Context(), kind, ctx.Param("id")); err != nil {
			return errors.Wrapf(err, "deactivating %s", kind)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *rosterApi) assignTeacher(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data roster.AssignTeacher
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to AssignTeacher")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		ent, err := api.svc.AssignTeacher(ctx.Request().Context(), kind, ctx.Param("id"), data.TeacherID)
		if err != nil {
			return errors.Wrap(err, "assigning teacher")
		}
		return ctx.JSON(http.StatusOK, ent)
	}
}

func (api *rosterApi) removeTeacher(kind roster.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data roster.AssignTeacher
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to AssignTeacher")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		ent, err := api.svc.RemoveTeacher(ctx.Request().Context(), kind, ctx.Param("id"), data.TeacherID)
		if err != nil {
			return errors.Wrap(err, "removing teacher")
		}
		return ctx.JSON(http.StatusOK, ent)
	}
}

type EntityDetailResponse struct {
	roster.Entity
	ChildrenCount int `json:"childrenCount"`
}
