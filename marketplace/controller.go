package marketplace

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// DocumentStore is the slice of the object store the marketplace needs
// for provider document uploads. The storage S3 store satisfies it.
type DocumentStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
}

// Controller serves the /api/v1 marketplace surface. The sign up, OTP,
// password recovery, and validatelogin routes are public; everything
// else rides behind the bearer middleware.
type Controller struct {
	Logger     portal.Logger
	Repo       portal.RepositoryManager
	Service    *ProviderService
	Providers  Providers
	States     States
	Cities     Cities
	Auth       portal.Authenticator
	Documents  DocumentStore
	ContextKey string
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:     portal.NewDefaultLogger(),
		ContextKey: "user",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing ProviderService in marketplace controller...")
	}

	if c.Providers == nil || c.States == nil || c.Cities == nil {
		panic("Missing repositories in marketplace controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in marketplace controller...")
	}

	if c.Documents == nil {
		panic("Missing DocumentStore in marketplace controller...")
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in marketplace controller...")
	}

	return c
}

// RegisterRoutes mounts the marketplace endpoints. The wiring applies
// the bearer middleware with an allow list covering the public subset.
func RegisterRoutes[T any](app router.Router[T], c *Controller) {
	app.Post("/api/v1/validatelogin", c.ValidateLogin).SetName("v1.validatelogin")

	app.Post("/api/v1/providers/sign-up", c.SignUp).SetName("v1.providers.sign-up")
	app.Post("/api/v1/providers/verify-otp", c.VerifyOTP).SetName("v1.providers.verify-otp")
	app.Post("/api/v1/providers/forgot-password", c.ForgotPassword).SetName("v1.providers.forgot-password")
	app.Post("/api/v1/providers/reset-password", c.ResetPassword).SetName("v1.providers.reset-password")

	app.Get("/api/v1/providers", c.ListProviders).SetName("v1.providers.list")
	app.Get("/api/v1/providers/me", c.Me).SetName("v1.providers.me")
	app.Post("/api/v1/providers/upload-documents", c.UploadDocuments).SetName("v1.providers.upload-documents")

	app.Get("/api/v1/states", c.ListStates).SetName("v1.states.list")
	app.Post("/api/v1/states", c.CreateState).SetName("v1.states.create")

	app.Get("/api/v1/cities", c.ListCities).SetName("v1.cities.list")
	app.Post("/api/v1/cities", c.CreateCity).SetName("v1.cities.create")
}

// PublicPaths is the allow list for the marketplace surface.
func PublicPaths() []string {
	return []string{
		"/api/v1/validatelogin",
		"/api/v1/providers/sign-up",
		"/api/v1/providers/verify-otp",
		"/api/v1/providers/forgot-password",
		"/api/v1/providers/reset-password",
	}
}

// ValidateLoginRequest is the marketplace login payload. Providers log
// in with their email, which doubles as their username.
type ValidateLoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r ValidateLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ValidateLogin verifies the credentials and returns a short lived
// bearer token in the body. No cookie is set on this surface.
func (c *Controller) ValidateLogin(ctx router.Context) error {
	payload := new(ValidateLoginRequest)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("validatelogin parse payload", "error", err)
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Email and password are required").
			WithCode(errors.CodeBadRequest))
	}

	token, err := c.Auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	user, err := c.Repo.Users().GetByIdentifier(ctx.Context(), payload.Email)
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    portal.SummaryFromIdentity(portal.IdentityFromUser(user)),
	})
}

func (c *Controller) SignUp(ctx router.Context) error {
	payload := new(SignUpInput)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("provider sign up parse payload", "error", err)
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid sign up payload").
			WithCode(errors.CodeBadRequest))
	}

	provider, err := c.Service.SignUp(ctx.Context(), *payload)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful! Please check your email for OTP verification.",
		"data": map[string]any{
			"id":    provider.ID,
			"email": provider.Email,
			"name":  provider.Name,
		},
	})
}

// OTPRequest carries the email plus code pair used by verification.
type OTPRequest struct {
	Email string `form:"email" json:"email"`
	OTP   string `form:"otp" json:"otp"`
}

func (r OTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6)),
	)
}

func (c *Controller) VerifyOTP(ctx router.Context) error {
	payload := new(OTPRequest)

	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Email and OTP are required").
			WithCode(errors.CodeBadRequest))
	}

	if err := c.Service.VerifyOTP(ctx.Context(), payload.Email, payload.OTP); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Provider verified successfully",
	})
}

type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (c *Controller) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Email is required").
			WithCode(errors.CodeBadRequest))
	}

	if err := c.Service.ForgotPassword(ctx.Context(), payload.Email); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Password reset email sent successfully",
	})
}

type ResetPasswordRequest struct {
	Email       string `form:"email" json:"email"`
	OTP         string `form:"otp" json:"otp"`
	NewPassword string `form:"new_password" json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

func (c *Controller) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Email, OTP, and new password are required").
			WithCode(errors.CodeBadRequest))
	}

	if err := c.Service.ResetPassword(ctx.Context(), payload.Email, payload.OTP, payload.NewPassword); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (c *Controller) ListProviders(ctx router.Context) error {
	page := ctx.QueryInt("page", 1)
	perPage := ctx.QueryInt("limit", 20)

	records, total, err := c.Providers.List(ctx.Context(), page, perPage)
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"data":  records,
		"total": total,
	})
}

// Me resolves the provider profile behind the bearer token.
func (c *Controller) Me(ctx router.Context) error {
	session, err := portal.GetRouterSession(ctx, c.ContextKey)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return portal.WriteJSONError(ctx, portal.ErrUnableToMapClaims)
	}

	provider, err := c.Providers.GetByUserID(ctx.Context(), userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return portal.WriteJSONError(ctx, errors.New("Provider not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound))
		}
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"data": provider,
	})
}

// UploadDocuments stores one verification document for the provider
// behind the bearer token and appends its key to the profile. The body
// is the raw file; the name rides in the filename query parameter.
func (c *Controller) UploadDocuments(ctx router.Context) error {
	session, err := portal.GetRouterSession(ctx, c.ContextKey)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return portal.WriteJSONError(ctx, portal.ErrUnableToMapClaims)
	}

	provider, err := c.Providers.GetByUserID(ctx.Context(), userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return portal.WriteJSONError(ctx, errors.New("Provider not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound))
		}
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	fileName := ctx.Query("filename", "")
	if fileName == "" {
		return portal.WriteJSONError(ctx, errors.New("filename query parameter is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	body := ctx.Body()
	if len(body) == 0 {
		return portal.WriteJSONError(ctx, errors.New("request body is empty", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	contentType := ctx.Header("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := documentKey(provider.ID, fileName)
	if err := c.Documents.Put(ctx.Context(), key, body, contentType); err != nil {
		c.Logger.Error("document upload", "error", err, "key", key)
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryInternal, "Failed to upload document").
			WithCode(errors.CodeInternal))
	}

	if err := c.Providers.AddDocument(ctx.Context(), provider.ID, key); err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Documents uploaded successfully",
		"file":    c.Documents.PublicURL(key),
	})
}

func documentKey(providerID uuid.UUID, fileName string) string {
	return fmt.Sprintf("documents/%s/%d-%s", providerID, time.Now().UnixMilli(), fileName)
}

func (c *Controller) ListStates(ctx router.Context) error {
	records, err := c.States.List(ctx.Context())
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, records)
}

type StateInput struct {
	Name string `form:"name" json:"name"`
	Code string `form:"code" json:"code"`
}

func (r StateInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Code, validation.Length(0, 10)),
	)
}

func (c *Controller) CreateState(ctx router.Context) error {
	if err := portal.RequireRouterRole(ctx, c.ContextKey, portal.RoleAdmin); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	payload := new(StateInput)
	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid state payload").
			WithCode(errors.CodeBadRequest))
	}

	record, err := c.States.Create(ctx.Context(), &State{
		Name: payload.Name,
		Code: payload.Code,
	})
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "State added successfully",
		"data":    record,
	})
}

func (c *Controller) ListCities(ctx router.Context) error {
	var records []*City
	var err error

	if stateID := ctx.Query("state_id", ""); stateID != "" {
		id, perr := parseUUID(stateID)
		if perr != nil {
			return portal.WriteJSONError(ctx, errors.New("Invalid state_id", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest))
		}
		records, err = c.Cities.ListByState(ctx.Context(), id)
	} else {
		records, err = c.Cities.List(ctx.Context())
	}

	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"data":    records,
		"message": "Cities fetched successfully",
	})
}

type CityInput struct {
	Name    string `form:"name" json:"name"`
	StateID string `form:"state_id" json:"state_id"`
}

func (r CityInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.StateID, validation.Required, is.UUID),
	)
}

func (c *Controller) CreateCity(ctx router.Context) error {
	if err := portal.RequireRouterRole(ctx, c.ContextKey, portal.RoleAdmin); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	payload := new(CityInput)
	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid city payload").
			WithCode(errors.CodeBadRequest))
	}

	stateID, err := parseUUID(payload.StateID)
	if err != nil {
		return portal.WriteJSONError(ctx, errors.New("Invalid state_id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	record, err := c.Cities.Create(ctx.Context(), &City{
		Name:    payload.Name,
		StateID: stateID,
	})
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "City added successfully",
		"data":    record,
	})
}
