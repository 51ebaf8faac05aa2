package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/user"
)

type userApi struct {
	svc  *user.Service
	auth *jwtAuth
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *user.Service) {
	api := userApi{
		svc:  svc,
		auth: auth,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/register", api.register)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/refresh-token", api.refreshToken)
	ag.GET("/me", api.me)

	// admin endpoints
	adm := ag.Group("", adminMiddleware())
	adm.POST("", api.create)
	adm.GET("", api.query)
	adm.GET("/export", api.export)
	adm.GET("/roles", api.queryRoles)
	adm.POST("/:id/activate", api.activate)
	adm.POST("/:id/block", api.block)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(ctx.Echo().Validator); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.token(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), sessionFromContext(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) bindFilter(ctx echo.Context) (user.QueryFilter, error) {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to QueryFilter")
	}
	return filter, nil
}

func (api *userApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	return workbook(ctx, "users.xlsx", func(w io.Writer) error {
		return api.svc.Export(ctx.Request().Context(), filter, w)
	})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) activate(ctx echo.Context) error {
	return api.setActive(ctx, true)
}

func (api *userApi) block(ctx echo.Context) error {
	return api.setActive(ctx, false)
}

func (api *userApi) setActive(ctx echo.Context, active bool) error {
	usr, err := api.svc.SetActive(ctx.Request().Context(), sessionFromContext(ctx), ctx.Param("id"), active)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate echo.Validator) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Validate(lr)
}
