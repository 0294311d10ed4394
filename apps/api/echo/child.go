package echoapi

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/user"
)

type childApi struct {
	svc      *child.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerChildAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *child.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := childApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	cg := g.Group("/children", jwt)
	cg.GET("", api.query, staffMiddleware())
	cg.POST("", api.create)
	cg.GET("/search", api.search, staffMiddleware())
	cg.GET("/class/:classId", api.byClass, staffMiddleware())
	cg.GET("/group/:groupId", api.byGroup, staffMiddleware())

	// detail endpoints; parents only reach their own children
	dg := cg.Group("/:id", api.ownChildOrStaffMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/photo", api.uploadPhoto)
	dg.PUT("/transfer-class", api.transferClass, staffMiddleware())
	dg.PUT("/join-group", api.joinGroup, staffMiddleware())
	dg.PUT("/leave-group", api.leaveGroup, staffMiddleware())
}

// ownChildOrStaffMiddleware loads the child into the context. Staff see any
// child; a parent only their own.
func (api *childApi) ownChildOrStaffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			chd, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding child by ID")
			}
			if !usr.IsStaff() && chd.ParentID != usr.ID {
				return errHttpNotFound
			}
			ctx.Set("object", chd)
			return next(ctx)
		}
	}
}

// Handlers

func (api *childApi) query(ctx echo.Context) error {
	filter := new(child.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []child.Detail{})
	}
	filter.Clean()
	page := bindPage(ctx)

	children, pagination, err := api.svc.Filter(ctx.Request().Context(), *filter, page)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []child.Detail{}
	}
	return ctx.JSON(http.StatusOK, ChildListResponse{Children: children, Pagination: pagination})
}

func (api *childApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data child.NewChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}

	// a parent always registers under their own account
	parentID := data.ParentID
	if usr.IsParent() {
		parentID = usr.ID
	} else if parentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "parentId", Error: "parentId is required"})
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chd, err := api.svc.Register(ctx.Request().Context(), data, parentID)
	if err != nil {
		return errors.Wrap(err, "registering child")
	}
	return ctx.JSON(http.StatusCreated, chd)
}

// search finds a child by unique code or all children by parent phone number.
func (api *childApi) search(ctx echo.Context) error {
	if code := core.CleanString(ctx.QueryParam("code")); code != "" {
		chd, err := api.svc.GetByCode(ctx.Request().Context(), code)
		if err != nil {
			return errors.Wrap(err, "finding child by code")
		}
		return ctx.JSON(http.StatusOK, []child.Detail{chd})
	}

	if phone := core.CleanString(ctx.QueryParam("phone")); phone != "" {
		children, err := api.svc.SearchByParentPhone(ctx.Request().Context(), phone)
		if err != nil {
			return errors.Wrap(err, "finding children by parent phone")
		}
		return ctx.JSON(http.StatusOK, children)
	}

	return core.NewValidationError(errors.New("provide a code or phone query parameter"))
}

func (api *childApi) byClass(ctx echo.Context) error {
	children, err := api.svc.ByClass(ctx.Request().Context(), ctx.Param("classId"))
	if err != nil {
		return errors.Wrap(err, "querying children by class")
	}
	if children == nil {
		children = []child.Detail{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *childApi) byGroup(ctx echo.Context) error {
	children, err := api.svc.ByGroup(ctx.Request().Context(), ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "querying children by group")
	}
	if children == nil {
		children = []child.Detail{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, chd)
}

func (api *childApi) update(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data child.UpdateChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	// class and group membership can only be changed by staff
	if !usr.IsStaff() && (data.ClassID != "" || data.GroupIDs != nil) {
		return errHttpForbidden
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chd, err = api.svc.Update(ctx.Request().Context(), chd.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, chd)
}

func (api *childApi) destroy(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	if err := api.svc.Deactivate(ctx.Request().Context(), chd.ID); err != nil {
		return errors.Wrap(err, "deactivating child")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *childApi) uploadPhoto(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	file, err := ctx.FormFile("photo")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "photo", Error: "photo file is required"})
	}

	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded photo")
	}
	defer src.Close()

	if err = os.MkdirAll(api.conf.UploadsDir, 0o755); err != nil {
		return errors.Wrap(err, "creating uploads dir")
	}
	path := filepath.Join(api.conf.UploadsDir, chd.ID+filepath.Ext(file.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating photo file")
	}
	defer dst.Close()
	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "saving photo file")
	}

	if err = api.svc.SetPhoto(ctx.Request().Context(), chd.ID, path); err != nil {
		return errors.Wrap(err, "setting child photo")
	}
	return ctx.JSON(http.StatusOK, PhotoResponse{Photo: path})
}

func (api *childApi) transferClass(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	var data TransferClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransferClassRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	chd, _, err := api.svc.TransferClass(ctx.Request().Context(), chd.ID, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "transferring child")
	}
	return ctx.JSON(http.StatusOK, chd)
}

func (api *childApi) joinGroup(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	var data GroupMembershipRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GroupMembershipRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	chd, err := api.svc.JoinGroup(ctx.Request().Context(), chd.ID, data.GroupID)
	if err != nil {
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, chd)
}

func (api *childApi) leaveGroup(ctx echo.Context) error {
	chd, ok := ctx.Get("object").(child.Detail)
	if !ok {
		return errors.New("child object not found in echo.Context")
	}

	var data GroupMembershipRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GroupMembershipRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	chd, err := api.svc.LeaveGroup(ctx.Request().Context(), chd.ID, data.GroupID)
	if err != nil {
		return errors.Wrap(err, "leaving group")
	}
	return ctx.JSON(http.StatusOK, chd)
}

type (
	ChildListResponse struct {
		Children   []child.Detail  `json:"children"`
		Pagination core.Pagination `json:"pagination"`
	}

	TransferClassRequest struct {
		ClassID string `json:"classId" validate:"required"`
	}

	GroupMembershipRequest struct {
		GroupID string `json:"groupId" validate:"required"`
	}

	PhotoResponse struct {
		Photo string `json:"photo"`
	}
)
