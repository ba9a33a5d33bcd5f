package storage

import (
	"fmt"
	"path"
	"strconv"
	"time"

	"math/rand/v2"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// PresignExpiry bounds how long a direct upload URL stays usable.
const PresignExpiry = 5 * time.Minute

// FilesController serves the per-user file endpoints. Every handler
// runs behind the access middleware; ownership is enforced here.
type FilesController struct {
	Logger     portal.Logger
	Repo       Files
	Store      ObjectStore
	ContextKey string
}

type FilesControllerOption func(*FilesController) *FilesController

func NewFilesController(repo Files, store ObjectStore, opts ...FilesControllerOption) *FilesController {
	c := &FilesController{
		Logger:     portal.NewDefaultLogger(),
		Repo:       repo,
		Store:      store,
		ContextKey: "user",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing Files repository in files controller...")
	}

	if c.Store == nil {
		panic("Missing ObjectStore in files controller...")
	}

	return c
}

// RegisterFileRoutes mounts the authenticated file endpoints.
func RegisterFileRoutes[T any](app router.Router[T], controller *FilesController) {
	app.Get("/api/files", controller.List).SetName("files.list")
	app.Post("/api/files/upload", controller.Upload).SetName("files.upload")
	app.Post("/api/files/presign", controller.Presign).SetName("files.presign")
	app.Delete("/api/files/:id", controller.Delete).SetName("files.delete")
}

func (a *FilesController) session(ctx router.Context) (*portal.SessionObject, uuid.UUID, error) {
	session, err := portal.GetRouterSession(ctx, a.ContextKey)
	if err != nil {
		return nil, uuid.Nil, err
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return nil, uuid.Nil, portal.ErrUnableToMapClaims
	}

	return session, userID, nil
}

func (a *FilesController) List(ctx router.Context) error {
	_, userID, err := a.session(ctx)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	filter := ListFilter{
		UserID:     userID,
		Search:     ctx.Query("search", ""),
		TypePrefix: ctx.Query("type", ""),
		Page:       ctx.QueryInt("page", 1),
		PerPage:    ctx.QueryInt("limit", 20),
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

// Upload stores the raw request body in the bucket and persists the
// metadata row. File name comes from the filename query parameter,
// content type from the request header.
func (a *FilesController) Upload(ctx router.Context) error {
	_, userID, err := a.session(ctx)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	fileName := ctx.Query("filename", "")
	if fileName == "" {
		return portal.WriteJSONError(ctx, errors.New("No file provided", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	body := ctx.Body()
	if len(body) == 0 {
		return portal.WriteJSONError(ctx, errors.New("No file provided", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	contentType := ctx.Header("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(userID.String(), fileName)

	if err := a.Store.Put(ctx.Context(), key, body, contentType); err != nil {
		a.logError("upload put object", err)
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryInternal, "Failed to upload file").
			WithCode(errors.CodeInternal))
	}

	record := &StoredFile{
		UserID:   userID,
		FileName: fileName,
		FileKey:  key,
		FileURL:  a.Store.PublicURL(key),
		FileSize: int64(len(body)),
		FileType: contentType,
	}

	record, err = a.Repo.Create(ctx.Context(), record)
	if err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"success": true,
		"file":    record,
	})
}

// Presign hands the client a short lived URL for a direct PUT, plus the
// key and public URL the object will land on.
func (a *FilesController) Presign(ctx router.Context) error {
	_, userID, err := a.session(ctx)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	fileName := ctx.Query("filename", "")
	if fileName == "" {
		return portal.WriteJSONError(ctx, errors.New("No file provided", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	contentType := ctx.Query("type", "application/octet-stream")
	key := ObjectKey(userID.String(), fileName)

	url, err := a.Store.PresignPut(ctx.Context(), key, contentType, PresignExpiry)
	if err != nil {
		a.logError("presign put object", err)
		return portal.WriteJSONError(ctx, errors.Wrap(err, errors.CategoryInternal, "Failed to presign upload").
			WithCode(errors.CodeInternal))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"upload_url": url,
		"key":        key,
		"public_url": a.Store.PublicURL(key),
		"expires_in": int(PresignExpiry.Seconds()),
	})
}

// Delete removes a file the caller owns. The bucket delete is best
// effort: a failed S3 call still removes the metadata row.
func (a *FilesController) Delete(ctx router.Context) error {
	_, userID, err := a.session(ctx)
	if err != nil {
		return portal.WriteJSONError(ctx, err)
	}

	id := ctx.Param("id")
	record, err := a.Repo.GetByID(ctx.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return portal.WriteJSONError(ctx, errors.New("File not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound))
		}
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	if record.UserID != userID {
		return portal.WriteJSONError(ctx, portal.ErrForbidden)
	}

	if err := a.Store.Delete(ctx.Context(), record.FileKey); err != nil {
		a.logError("delete object", err)
	}

	if err := a.Repo.DeleteByID(ctx.Context(), record.ID); err != nil {
		return portal.WriteJSONError(ctx, portal.StoreError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *FilesController) logError(msg string, err error) {
	a.Logger.Error(msg, "error", err)
}

// ObjectKey builds the bucket key for a user upload, keeping the
// original extension.
func ObjectKey(userID, fileName string) string {
	ext := path.Ext(fileName)
	return fmt.Sprintf("uploads/%s/%s%s", userID, uniqueID(), ext)
}

// uniqueID is a base36 timestamp with a random suffix. Collisions
// within the same millisecond are what the suffix is for.
func uniqueID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + strconv.FormatUint(uint64(rand.Uint32()), 36)
}

func paginate(page, perPage, total int) map[string]any {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return map[string]any{
		"page":       page,
		"limit":      perPage,
		"total":      total,
		"totalPages": totalPages,
	}
}
