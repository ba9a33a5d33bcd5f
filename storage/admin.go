package storage

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AdminController serves the cross-user file views and the storage
// usage report. Every handler checks for the admin role itself, so the
// routes only need the regular access middleware in front.
type AdminController struct {
	Logger     portal.Logger
	Repo       Files
	Store      ObjectStore
	Users      portal.Users
	ContextKey string
}

type AdminControllerOption func(*AdminController) *AdminController

func NewAdminController(repo Files, store ObjectStore, users portal.Users, opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger:     portal.NewDefaultLogger(),
		Repo:       repo,
		Store:      store,
		Users:      users,
		ContextKey: "user",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil || c.Store == nil || c.Users == nil {
		panic("Missing dependencies in admin controller...")
	}

	return c
}

// RegisterAdminRoutes mounts the admin endpoints.
func RegisterAdminRoutes[T any](app router.Router[T], controller *AdminController) {
	app.Get("/api/admin/files", controller.ListFiles).SetName("admin.files.list")
	app.Delete("/api/admin/files", controller.DeleteFile).SetName("admin.files.delete")
	app.Get("/api/admin/users", controller.UsersReport).SetName("admin.users.report")
	app.Patch("/api/admin/users/:id/active", controller.SetUserActive).SetName("admin.users.active")
}

func (a *AdminController) requireAdmin(ctx router.Context) error {
	return portal.RequireRouterRole(ctx, a.ContextKey, portal.RoleAdmin)
}

// ListFiles returns files across all owners, each row carrying its
// owner. An optional userId query narrows to a single account.
func (a *AdminController) ListFiles(ctx router.Context) error {
	if err := a.requireAdmin(ctx); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	filter := ListFilter{
		Search:     ctx.Query("search", ""),
		TypePrefix: ctx.Query("type", ""),
		Page:       ctx.QueryInt("page", 1),
		PerPage:    ctx.QueryInt("limit", 20),
		WithOwner:  true,
	}

	if raw := ctx.Query("userId", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return portal.WriteJSONError(ctx, errors.New("Invalid userId", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest))
		}
		filter.UserID = id
	}

	records, total, err := a.Repo.List(ctx.Context(), filter)
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"files":      records,
		"pagination": paginate(filter.Page, filter.PerPage, total),
	})
}

// DeleteFilePayload identifies the file to remove. Admin deletes take
// the id in the body rather than the path.
type DeleteFilePayload struct {
	FileID string `form:"file_id" json:"file_id"`
}

func (r DeleteFilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileID, validation.Required, is.UUID),
	)
}

// DeleteFile removes any file regardless of owner. The bucket delete is
// best effort, same as the owner facing endpoint.
func (a *AdminController) DeleteFile(ctx router.Context) error {
	if err := a.requireAdmin(ctx); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	payload := new(DeleteFilePayload)
	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryValidation, "file_id is required").
			WithCode(errors.CodeBadRequest))
	}

	record, err := a.Repo.GetByID(ctx.Context(), payload.FileID)
	if err != nil {
		if errors.IsNotFound(err) {
			return portal.WriteJSONError(ctx, errors.New("File not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound))
		}
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	if err := a.Store.Delete(ctx.Context(), record.FileKey); err != nil {
		a.Logger.Error("admin delete object", "error", err)
	}

	if err := a.Repo.DeleteByID(ctx.Context(), record.ID); err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// UsersReport joins the user listing with per-user storage usage and
// appends the global totals.
func (a *AdminController) UsersReport(ctx router.Context) error {
	if err := a.requireAdmin(ctx); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	page := ctx.QueryInt("page", 1)
	perPage := ctx.QueryInt("limit", 20)

	users, total, err := a.Users.List(ctx.Context(), page, perPage)
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	usage, err := a.Repo.UsageByUser(ctx.Context())
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	totalFiles, totalStorage, err := a.Repo.Totals(ctx.Context())
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	report := make([]*UserUsage, 0, len(users))
	for _, user := range users {
		row := &UserUsage{
			ID:        user.ID,
			Name:      user.Name,
			Username:  user.Username,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		}
		if u, ok := usage[user.ID]; ok {
			row.FileCount = u.FileCount
			row.TotalStorage = u.TotalStorage
		}
		report = append(report, row)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users":      report,
		"pagination": paginate(page, perPage, total),
		"stats": map[string]any{
			"totalUsers":   total,
			"totalFiles":   totalFiles,
			"totalStorage": totalStorage,
		},
	})
}

// SetUserActivePayload toggles the account flag.
type SetUserActivePayload struct {
	Active bool `form:"active" json:"active"`
}

// SetUserActive flips the active flag on an account. Disabled accounts
// keep their data but fail every subsequent login.
func (a *AdminController) SetUserActive(ctx router.Context) error {
	if err := a.requireAdmin(ctx); err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return portal.WriteJSONError(ctx, errors.New("Invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	payload := new(SetUserActivePayload)
	if err := ctx.Bind(payload); err != nil {
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	user, err := a.Users.UpdateActiveFlag(ctx.Context(), id, payload.Active)
	if err != nil {
		if errors.IsNotFound(err) {
			return portal.WriteJSONError(ctx, errors.New("User not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound))
		}
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    portal.SummaryFromIdentity(portal.IdentityFromUser(user)),
	})
}
