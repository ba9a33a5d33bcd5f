package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCtx overlays the pieces of the router context the file handlers
// touch on top of the shared mock.
type testCtx struct {
	*router.MockContext
	query   map[string]string
	params  map[string]string
	headers map[string]string
	body    []byte
	bindSrc any

	jsonCode int
	jsonBody map[string]any
}

func newTestCtx(claims portal.AuthClaims) *testCtx {
	mc := router.NewMockContext()
	if claims != nil {
		mc.LocalsMock["user"] = claims
	}
	return &testCtx{
		MockContext: mc,
		query:       map[string]string{},
		params:      map[string]string{},
		headers:     map[string]string{},
	}
}

func (c *testCtx) Context() context.Context { return context.Background() }

func (c *testCtx) Query(key, def string) string {
	if v, ok := c.query[key]; ok {
		return v
	}
	return def
}

func (c *testCtx) QueryInt(key string, def int) int { return def }

func (c *testCtx) Param(key string, def ...string) string {
	if v, ok := c.params[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (c *testCtx) Header(key string) string { return c.headers[key] }

func (c *testCtx) Body() []byte { return c.body }

func (c *testCtx) Bind(i any) error {
	if c.bindSrc == nil {
		return nil
	}
	raw, err := json.Marshal(c.bindSrc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, i)
}

func (c *testCtx) JSON(code int, val any) error {
	c.jsonCode = code
	if m, ok := val.(map[string]any); ok {
		c.jsonBody = m
	}
	return nil
}

func claimsWithRole(userID uuid.UUID, role string) *portal.JWTClaims {
	return &portal.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
		UID:      userID.String(),
		Uname:    "owner@example.com",
		UserRole: role,
	}
}

// stubFiles overrides the repository methods the controllers call.
type stubFiles struct {
	Files

	listFn    func(ctx context.Context, filter ListFilter) ([]*StoredFile, int, error)
	getFn     func(ctx context.Context, id string) (*StoredFile, error)
	createFn  func(ctx context.Context, record *StoredFile) (*StoredFile, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error
	usageFn   func(ctx context.Context) (map[uuid.UUID]FileUsage, error)
	totalsFn  func(ctx context.Context) (int, int64, error)
	deletedID uuid.UUID
}

func (s *stubFiles) List(ctx context.Context, filter ListFilter) ([]*StoredFile, int, error) {
	return s.listFn(ctx, filter)
}

func (s *stubFiles) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*StoredFile, error) {
	return s.getFn(ctx, id)
}

func (s *stubFiles) Create(ctx context.Context, record *StoredFile, criteria ...repository.InsertCriteria) (*StoredFile, error) {
	return s.createFn(ctx, record)
}

func (s *stubFiles) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *stubFiles) UsageByUser(ctx context.Context) (map[uuid.UUID]FileUsage, error) {
	return s.usageFn(ctx)
}

func (s *stubFiles) Totals(ctx context.Context) (int, int64, error) {
	return s.totalsFn(ctx)
}

// stubStore records bucket calls.
type stubStore struct {
	putKey      string
	putBody     []byte
	putType     string
	putErr      error
	deletedKeys []string
	presignURL  string
	presignErr  error
}

func (s *stubStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	s.putKey = key
	s.putBody = body
	s.putType = contentType
	return s.putErr
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	s.deletedKeys = append(s.deletedKeys, key)
	return nil
}

func (s *stubStore) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return s.presignURL + key, nil
}

func (s *stubStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestObjectKey(t *testing.T) {
	userID := uuid.New().String()

	key := ObjectKey(userID, "report.pdf")

	assert.True(t, strings.HasPrefix(key, "uploads/"+userID+"/"), "key %q should carry the user prefix", key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), "key %q should keep the extension", key)

	other := ObjectKey(userID, "report.pdf")
	assert.NotEqual(t, key, other, "keys for the same file name must not collide")

	noExt := ObjectKey(userID, "README")
	assert.False(t, strings.Contains(noExt, "."), "key %q should have no extension", noExt)
}

func TestPaginate(t *testing.T) {
	p := paginate(2, 20, 45)
	assert.Equal(t, 2, p["page"])
	assert.Equal(t, 20, p["limit"])
	assert.Equal(t, 45, p["total"])
	assert.Equal(t, 3, p["totalPages"])

	empty := paginate(1, 20, 0)
	assert.Equal(t, 0, empty["totalPages"])
}

func TestFilesControllerList(t *testing.T) {
	userID := uuid.New()

	t.Run("lists only the caller's files", func(t *testing.T) {
		var gotFilter ListFilter
		repo := &stubFiles{
			listFn: func(ctx context.Context, filter ListFilter) ([]*StoredFile, int, error) {
				gotFilter = filter
				return []*StoredFile{{ID: uuid.New(), UserID: userID}}, 1, nil
			},
		}

		controller := NewFilesController(repo, &stubStore{})
		ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
		ctx.query["search"] = "report"

		require.NoError(t, controller.List(ctx))

		assert.Equal(t, router.StatusOK, ctx.jsonCode)
		assert.Equal(t, userID, gotFilter.UserID)
		assert.Equal(t, "report", gotFilter.Search)
		assert.NotNil(t, ctx.jsonBody["files"])
		assert.NotNil(t, ctx.jsonBody["pagination"])
	})

	t.Run("rejects requests with no session", func(t *testing.T) {
		controller := NewFilesController(&stubFiles{}, &stubStore{})
		ctx := newTestCtx(nil)

		require.NoError(t, controller.List(ctx))
		assert.Equal(t, 401, ctx.jsonCode)
	})
}

func TestFilesControllerUpload(t *testing.T) {
	userID := uuid.New()

	t.Run("stores the object and persists metadata", func(t *testing.T) {
		store := &stubStore{}
		repo := &stubFiles{
			createFn: func(ctx context.Context, record *StoredFile) (*StoredFile, error) {
				record.ID = uuid.New()
				return record, nil
			},
		}

		controller := NewFilesController(repo, store)
		ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
		ctx.query["filename"] = "invoice.pdf"
		ctx.headers["Content-Type"] = "application/pdf"
		ctx.body = []byte("pdf-bytes")

		require.NoError(t, controller.Upload(ctx))

		assert.Equal(t, router.StatusCreated, ctx.jsonCode)
		assert.True(t, strings.HasPrefix(store.putKey, "uploads/"+userID.String()+"/"))
		assert.Equal(t, []byte("pdf-bytes"), store.putBody)
		assert.Equal(t, "application/pdf", store.putType)

		record, ok := ctx.jsonBody["file"].(*StoredFile)
		require.True(t, ok)
		assert.Equal(t, userID, record.UserID)
		assert.Equal(t, "invoice.pdf", record.FileName)
		assert.Equal(t, int64(len("pdf-bytes")), record.FileSize)
		assert.Equal(t, "https://cdn.example.com/"+store.putKey, record.FileURL)
	})

	t.Run("rejects uploads without a file name", func(t *testing.T) {
		controller := NewFilesController(&stubFiles{}, &stubStore{})
		ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
		ctx.body = []byte("bytes")

		require.NoError(t, controller.Upload(ctx))
		assert.Equal(t, 400, ctx.jsonCode)
	})

	t.Run("rejects uploads with an empty body", func(t *testing.T) {
		controller := NewFilesController(&stubFiles{}, &stubStore{})
		ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
		ctx.query["filename"] = "invoice.pdf"

		require.NoError(t, controller.Upload(ctx))
		assert.Equal(t, 400, ctx.jsonCode)
	})

	t.Run("bucket failures surface as internal errors", func(t *testing.T) {
		store := &stubStore{putErr: errors.New("bucket offline")}
		controller := NewFilesController(&stubFiles{}, store)
		ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
		ctx.query["filename"] = "invoice.pdf"
		ctx.body = []byte("bytes")

		require.NoError(t, controller.Upload(ctx))
		assert.Equal(t, 500, ctx.jsonCode)
		assert.Equal(t, "An unexpected server error occurred", ctx.jsonBody["message"])
	})
}

func TestFilesControllerPresign(t *testing.T) {
	userID := uuid.New()

	store := &stubStore{presignURL: "https://bucket.example.com/put/"}
	controller := NewFilesController(&stubFiles{}, store)

	ctx := newTestCtx(claimsWithRole(userID, portal.RoleCustomer))
	ctx.query["filename"] = "photo.jpg"
	ctx.query["type"] = "image/jpeg"

	require.NoError(t, controller.Presign(ctx))

	assert.Equal(t, router.StatusOK, ctx.jsonCode)

	key, ok := ctx.jsonBody["key"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(key, "uploads/"+userID.String()+"/"))
	assert.Equal(t, "https://bucket.example.com/put/"+key, ctx.jsonBody["upload_url"])
	assert.Equal(t, int(PresignExpiry.Seconds()), ctx.jsonBody["expires_in"])
}

func TestFilesControllerDelete(t *testing.T) {
	ownerID := uuid.New()
	fileID := uuid.New()

	record := &StoredFile{
		ID:      fileID,
		UserID:  ownerID,
		FileKey: "uploads/" + ownerID.String() + "/abc.pdf",
	}

	newRepo := func() *stubFiles {
		return &stubFiles{
			getFn: func(ctx context.Context, id string) (*StoredFile, error) {
				if id == fileID.String() {
					return record, nil
				}
				return nil, repository.NewRecordNotFound()
			},
		}
	}

	t.Run("owner can delete their file", func(t *testing.T) {
		repo := newRepo()
		store := &stubStore{}
		controller := NewFilesController(repo, store)

		ctx := newTestCtx(claimsWithRole(ownerID, portal.RoleCustomer))
		ctx.params["id"] = fileID.String()

		require.NoError(t, controller.Delete(ctx))

		assert.Equal(t, router.StatusOK, ctx.jsonCode)
		assert.Equal(t, []string{record.FileKey}, store.deletedKeys)
		assert.Equal(t, fileID, repo.deletedID)
	})

	t.Run("someone else's file is forbidden", func(t *testing.T) {
		repo := newRepo()
		store := &stubStore{}
		controller := NewFilesController(repo, store)

		ctx := newTestCtx(claimsWithRole(uuid.New(), portal.RoleCustomer))
		ctx.params["id"] = fileID.String()

		require.NoError(t, controller.Delete(ctx))

		assert.Equal(t, 403, ctx.jsonCode)
		assert.Empty(t, store.deletedKeys)
	})

	t.Run("missing file is a 404", func(t *testing.T) {
		repo := newRepo()
		controller := NewFilesController(repo, &stubStore{})

		ctx := newTestCtx(claimsWithRole(ownerID, portal.RoleCustomer))
		ctx.params["id"] = uuid.New().String()

		require.NoError(t, controller.Delete(ctx))
		assert.Equal(t, 404, ctx.jsonCode)
	})

	t.Run("bucket failure still removes the row", func(t *testing.T) {
		repo := newRepo()
		controller := NewFilesController(repo, &stubStore{})

		// stubStore.Delete never fails, so force the path through a store
		// that does.
		controller.Store = failingDeleteStore{}

		ctx := newTestCtx(claimsWithRole(ownerID, portal.RoleCustomer))
		ctx.params["id"] = fileID.String()

		require.NoError(t, controller.Delete(ctx))

		assert.Equal(t, router.StatusOK, ctx.jsonCode)
		assert.Equal(t, fileID, repo.deletedID)
	})
}

type failingDeleteStore struct{}

func (failingDeleteStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return nil
}

func (failingDeleteStore) Delete(ctx context.Context, key string) error {
	return errors.New("bucket offline")
}

func (failingDeleteStore) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return "", nil
}

func (failingDeleteStore) PublicURL(key string) string { return "" }
