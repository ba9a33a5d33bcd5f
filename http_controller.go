package portal

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// GetRouterSession resolves the verified session stored by the access
// middleware under the given locals key.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	local := c.Locals(key)
	if local == nil {
		return nil, ErrUnableToFindSession
	}

	if claims, ok := local.(AuthClaims); ok {
		return SessionFromAuthClaims(claims)
	}

	token, ok := local.(*jwt.Token)
	if token == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromMapClaims(claims)
}

// RegisterAuthRoutes mounts the JSON auth endpoints. The login and
// register routes must be on the middleware allow list; me sits behind
// it.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("auth.logout.get")
	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("auth.logout.post")

	app.Get(controller.Routes.Me, controller.Me).
		SetName("auth.me")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Me       string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Registry   AccountRegistrerer
	Routes     *AuthControllerRoutes
	ContextKey string
	Auther     HTTPAuthenticator
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: "user",
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Logout:   "/auth/logout",
			Register: "/auth/register",
			Me:       "/auth/me",
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

	if c.Registry == nil {
		c.Registry = NewAccountRegistry(c.Repo)
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the remember flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			validation.Length(2, 100),
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
		a.Logger.Error("login parse payload", "error", err)
		return WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return WriteJSONError(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), payload.GetIdentifier())
	if err != nil {
		return WriteJSONError(ctx, StoreError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": SummaryFromIdentity(IdentityFromUser(user)),
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "logged out",
	})
}

// RegistrationCreatePayload is the registration request body
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid registration payload").
			WithCode(errors.CodeBadRequest))
	}

	user, err := a.Registry.RegisterUser(ctx.Context(), payload.Name, payload.Username, payload.Password)
	if err != nil {
		a.Logger.Error("register user", "error", err)
		return WriteJSONError(ctx, err)
	}

	// New accounts get a session right away.
	if err := a.Auther.Login(ctx, LoginRequest{
		Identifier: payload.Username,
		Password:   payload.Password,
	}); err != nil {
		a.Logger.Error("register user auto login", "error", err)
		return WriteJSONError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"user": SummaryFromIdentity(IdentityFromUser(user)),
	})
}

func (a *AuthController) Me(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.ContextKey)
	if err != nil {
		return WriteJSONError(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), session.GetUsername())
	if err != nil {
		return WriteJSONError(ctx, StoreError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": SummaryFromIdentity(IdentityFromUser(user)),
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}

// WriteJSONError maps a rich error to its HTTP response. Internal
// failures never leak their cause to the client.
func WriteJSONError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		switch richErr.Category {
		case errors.CategoryAuth:
			status = http.StatusUnauthorized
		case errors.CategoryAuthz:
			status = http.StatusForbidden
		case errors.CategoryConflict:
			status = http.StatusConflict
		case errors.CategoryValidation, errors.CategoryBadInput:
			status = http.StatusBadRequest
		case errors.CategoryRateLimit:
			status = http.StatusTooManyRequests
		case errors.CategoryNotFound:
			status = http.StatusNotFound
		default:
			status = http.StatusInternalServerError
		}
	}

	message := richErr.Message
	if status >= http.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	body := map[string]any{"message": message}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.JSON(status, body)
}
