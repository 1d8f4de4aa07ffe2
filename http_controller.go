package gatekeeper

import (
	"fmt"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes is the canonical route table. Admin routes are gated
// on the co-owner tier, the dashboard on the whitelist flag.
type AuthControllerRoutes struct {
	Login           string
	Logout          string
	MagicLink       string
	MagicLinkVerify string
	Me              string
	DebugSession    string
	AdminUsers      string
}

// AuthController is the JSON surface over the authentication engine and the
// user-admin operations.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Magic        *MagicLink
	UseHashid    bool
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerMagicLink(magic *MagicLink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Magic = magic
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerHashids() AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.UseHashid = true
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:           "/api/auth/login",
			Logout:          "/api/auth/logout",
			MagicLink:       "/api/auth/magic-link",
			MagicLinkVerify: "/api/auth/magic-link/verify",
			Me:              "/api/auth/me",
			DebugSession:    "/api/debug/session",
			AdminUsers:      "/api/admin/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the public authentication surface plus the
// session echo endpoints. The session middleware protects Me; DebugSession
// is public and runs behind the optional middleware so callers without a
// token get the unauthenticated answer instead of a rejection. Admin routes
// are mounted by RegisterAdminRoutes.
func RegisterAuthRoutes[T any](app router.Router[T], session, optional router.MiddlewareFunc, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")

	app.Post(controller.Routes.MagicLink, controller.MagicLinkPost).
		SetName("auth.magic-link")

	app.Get(controller.Routes.MagicLinkVerify, controller.MagicLinkVerifyGet).
		SetName("auth.magic-link.verify")

	app.Get(controller.Routes.Me, session(controller.MeGet)).
		SetName("auth.me")

	app.Get(controller.Routes.DebugSession, optional(controller.DebugSessionGet)).
		SetName("auth.debug-session")

	return controller
}

// RegisterAdminRoutes mounts the user-admin surface behind the given
// middleware, which must enforce at least the co-owner tier.
func RegisterAdminRoutes[T any](app router.Router[T], controller *AuthController, admin router.MiddlewareFunc) {
	base := controller.Routes.AdminUsers

	app.Get(base, admin(controller.AdminListUsers)).
		SetName("admin.users.list")

	app.Post(base, admin(controller.AdminCreateUser)).
		SetName("admin.users.create")

	app.Post(fmt.Sprintf("%s/:id/whitelist", base), admin(controller.AdminUpdateWhitelist)).
		SetName("admin.users.whitelist")

	app.Post(fmt.Sprintf("%s/:id/role", base), admin(controller.AdminUpdateRole)).
		SetName("admin.users.role")

	app.Delete(fmt.Sprintf("%s/:id", base), admin(controller.AdminDeleteUser)).
		SetName("admin.users.delete")
}

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports the remember-me flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// MagicLinkRequestPayload carries the email asking for a sign-in link
type MagicLinkRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r MagicLinkRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

// MagicLinkPost issues a sign-in link. The response is identical for known
// and unknown emails.
func (a *AuthController) MagicLinkPost(ctx router.Context) error {
	payload := new(MagicLinkRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("magic link parse payload: %v", err)
		return a.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	handler := NewMagicLinkRequestHandler(a.Magic)
	if err := handler.Execute(ctx.Context(), MagicLinkRequestMessage{
		Email: payload.Email,
	}); err != nil {
		a.Logger.Error("magic link request: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "If the email is registered, a sign-in link has been sent",
	})
}

// MagicLinkVerifyGet redeems the token from the query string and sets the
// session cookie.
func (a *AuthController) MagicLinkVerifyGet(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.fail(ctx, http.StatusBadRequest, "Missing token")
	}

	if err := a.Auther.LoginWithMagicToken(ctx, token); err != nil {
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// MeGet echoes the authenticated principal from the session claims.
func (a *AuthController) MeGet(ctx router.Context) error {
	session, ok := GetRouterSession(ctx, "")
	if !ok {
		return a.fail(ctx, http.StatusUnauthorized, "Not authenticated")
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":             session.GetUserID(),
			"email":          session.GetEmail(),
			"role":           session.GetRole(),
			"is_whitelisted": session.GetIsWhitelisted(),
		},
	})
}

// DebugSessionGet dumps the decoded session including timestamps.
func (a *AuthController) DebugSessionGet(ctx router.Context) error {
	session, ok := GetRouterSession(ctx, "")
	if !ok {
		return ctx.JSON(http.StatusOK, map[string]any{
			"success":       true,
			"authenticated": false,
			"session":       nil,
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"authenticated": true,
		"session":       session,
	})
}

// AdminListUsers returns a page of principals.
func (a *AuthController) AdminListUsers(ctx router.Context) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))
	offset, _ := strconv.Atoi(ctx.Query("offset", "0"))

	opts := ListOptions{
		Limit:   limit,
		Offset:  offset,
		OrderBy: ctx.Query("order_by", "created_at"),
		Desc:    ctx.Query("dir", "desc") == "desc",
	}

	records, total, err := a.Repo.Users().List(ctx.Context(), opts)
	if err != nil {
		a.Logger.Error("admin list users: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"users":   records,
		"total":   total,
	})
}

// CreateUserPayload is the admin create form
type CreateUserPayload struct {
	Email         string `form:"email" json:"email"`
	Password      string `form:"password" json:"password"`
	Role          string `form:"role" json:"role"`
	IsWhitelisted *bool  `form:"is_whitelisted" json:"is_whitelisted"`
}

// Validate will run validation rules
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			return ValidateRole(value)
		})),
	)
}

// AdminCreateUser provisions an account; new accounts default to whitelisted.
func (a *AuthController) AdminCreateUser(ctx router.Context) error {
	payload := new(CreateUserPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin create user parse payload: %v", err)
		return a.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *CreateUserResponse
	handler := NewCreateUserHandler(a.Repo)
	err := handler.Execute(ctx.Context(), CreateUserMessage{
		Email:         payload.Email,
		Password:      payload.Password,
		Role:          payload.Role,
		IsWhitelisted: payload.IsWhitelisted,
		UseHashid:     a.UseHashid,
		OnResponse: func(resp *CreateUserResponse) {
			res = resp
		},
	})

	if err != nil {
		a.Logger.Error("admin create user: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    res.User,
	})
}

// WhitelistPayload toggles the whitelist flag
type WhitelistPayload struct {
	IsWhitelisted *bool `form:"is_whitelisted" json:"is_whitelisted"`
}

// Validate will run validation rules
func (r WhitelistPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsWhitelisted, validation.NotNil),
	)
}

func (a *AuthController) AdminUpdateWhitelist(ctx router.Context) error {
	id, err := parseUserID(ctx)
	if err != nil {
		return a.fail(ctx, http.StatusBadRequest, "Invalid user id")
	}

	payload := new(WhitelistPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.Repo.Users().UpdateWhitelist(ctx.Context(), id, *payload.IsWhitelisted)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return a.error(ctx, ErrUserNotFound)
		}
		a.Logger.Error("admin update whitelist: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// RolePayload changes a principal's tier
type RolePayload struct {
	Role string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r RolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(ValidateRole)),
	)
}

func (a *AuthController) AdminUpdateRole(ctx router.Context) error {
	id, err := parseUserID(ctx)
	if err != nil {
		return a.fail(ctx, http.StatusBadRequest, "Invalid user id")
	}

	payload := new(RolePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"success":    false,
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	role, _ := ParseRole(payload.Role)

	user, err := a.Repo.Users().UpdateRole(ctx.Context(), id, role)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return a.error(ctx, ErrUserNotFound)
		}
		a.Logger.Error("admin update role: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *AuthController) AdminDeleteUser(ctx router.Context) error {
	id, err := parseUserID(ctx)
	if err != nil {
		return a.fail(ctx, http.StatusBadRequest, "Invalid user id")
	}

	if err := a.Repo.Users().DeleteByID(ctx.Context(), id); err != nil {
		if repository.IsRecordNotFound(err) {
			return a.error(ctx, ErrUserNotFound)
		}
		a.Logger.Error("admin delete user: %v", err)
		return a.error(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *AuthController) error(ctx router.Context, err error) error {
	return ctx.JSON(HTTPStatus(err), map[string]any{
		"success": false,
		"error":   PublicMessage(err),
	})
}

func (a *AuthController) fail(ctx router.Context, status int, message string) error {
	return ctx.JSON(status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func parseUserID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	if raw == "" {
		return uuid.Nil, goerrors.New("missing user id", goerrors.CategoryBadInput)
	}
	return uuid.Parse(raw)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(HTTPStatus(err), map[string]any{
		"success": false,
		"error":   PublicMessage(err),
	})
}
