package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/inkwell/config"
	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/moderation"
	"github.com/cppla/inkwell/ratelimit"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/services"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	cfg := config.AppConfig{
		App: config.AppSection{
			JWTSecret:          "router-secret",
			ClientHashSecret:   "router-salt",
			BaseURL:            "https://blog.example.com",
			RateLimitPerMinute: 1000,
			SessionTTL:         time.Hour,
		},
		Gin:     config.GinSection{Mode: "test"},
		Admin:   config.AdminSection{Username: "admin", Password: "s3cret-pass"},
		Upload:  config.UploadSection{Dir: t.TempDir(), MaxBytes: 1 << 20},
		Comment: config.CommentSection{Window: 15 * time.Minute, MaxRequests: 5},
	}
	config.Set(cfg)

	pipeline := services.NewCommentPipeline(
		ratelimit.NewFixedWindow(),
		moderation.NewClassifier(),
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		zap.NewNop(),
	)
	r := SetupRouter(Deps{Config: cfg, DB: db, Pipeline: pipeline, Logger: zap.NewNop()})
	return &harness{t: t, router: r, db: db}
}

func (h *harness) do(method, path string, body interface{}, ip string) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (h *harness) login() {
	h.t.Helper()
	rec, env := h.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "s3cret-pass"}, "")
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(h.t, data.Token)
	h.token = data.Token
}

// publishedPost creates and publishes a post through the admin API and returns its id.
func (h *harness) publishedPost(slug string, categoryIDs ...uint) uint {
	h.t.Helper()
	rec, env := h.do(http.MethodPost, "/api/admin/posts", gin.H{
		"title":        "Post " + slug,
		"slug":         slug,
		"summary":      "about " + slug,
		"content":      "# Heading\n\nSome *markdown* text.",
		"category_ids": categoryIDs,
	}, "")
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var post models.Post
	require.NoError(h.t, json.Unmarshal(env.Data, &post))
	assert.Equal(h.t, models.PostDraft, post.Status)

	rec, _ = h.do(http.MethodPut, "/api/admin/posts/"+strconv.Itoa(int(post.ID)), gin.H{"status": "PUBLISHED"}, "")
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return post.ID
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, env := h.do(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"database":"connected"`)
}

func TestAuth_LoginBootstrapAndLogout(t *testing.T) {
	h := newHarness(t)

	rec, env := h.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 40106, env.Code)

	h.login()
	var users int64
	require.NoError(t, h.db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)

	rec, env = h.do(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"username":"admin"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = h.do(http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/admin/comments", "/api/admin/posts", "/api/admin/stats"} {
		rec, _ := h.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCommentLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("hello-world")

	// Visitors do not authenticate.
	admin := h.token
	h.token = ""

	rec, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{
		"postId": postID, "author": " Alice ", "email": "alice@example.com", "content": "Great post!",
	}, "203.0.113.10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created models.PublicComment
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Alice", created.Author)
	assert.Equal(t, models.CommentPending, created.Status)
	assert.NotContains(t, string(env.Data), "alice@example.com")
	assert.NotContains(t, string(env.Data), "ip_hash")

	rec, env = h.do(http.MethodGet, fmt.Sprintf("/api/v1/comments?postId=%d", postID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	h.token = admin
	rec, env = h.do(http.MethodGet, "/api/admin/comments?status=PENDING", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var queue struct {
		Comments []models.ModerationComment `json:"comments"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue.Comments, 1)
	assert.Equal(t, "Post hello-world", queue.Comments[0].PostTitle)
	assert.Equal(t, int64(1), queue.Pagination.Total)

	id := strconv.Itoa(int(created.ID))
	rec, env = h.do(http.MethodPatch, "/api/admin/comments/"+id, gin.H{"status": "PENDING"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)

	rec, _ = h.do(http.MethodPatch, "/api/admin/comments/"+id, gin.H{"status": "APPROVED"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	h.token = ""
	rec, env = h.do(http.MethodGet, fmt.Sprintf("/api/v1/comments?postId=%d", postID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []models.PublicComment
	require.NoError(t, json.Unmarshal(env.Data, &visible))
	require.Len(t, visible, 1)
	assert.Equal(t, "Great post!", visible[0].Content)

	h.token = admin
	rec, _ = h.do(http.MethodDelete, "/api/admin/comments/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(http.MethodDelete, "/api/admin/comments/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentRejections(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("rejections")
	h.token = ""

	rec, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "", "content": ""}, "203.0.113.20")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	assert.Contains(t, string(env.Data), `"field":"author"`)

	rec, env = h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": 9999, "author": "Bob", "content": "hello"}, "203.0.113.21")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "POST_NOT_FOUND", env.Error)

	rec, env = h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "Bob", "content": "加微信 for deals"}, "203.0.113.22")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONTENT_REJECTED", env.Error)

	rec, env = h.do(http.MethodGet, "/api/v1/comments", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_POST_ID", env.Error)

	var stored int64
	require.NoError(t, h.db.Model(&models.Comment{}).Count(&stored).Error)
	assert.Zero(t, stored)
}

func TestCommentRateLimit(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("busy")
	h.token = ""

	body := gin.H{"postId": postID, "author": "Carol", "content": "hello there"}
	for i := 0; i < 5; i++ {
		rec, _ := h.do(http.MethodPost, "/api/v1/comments", body, "203.0.113.30")
		require.Equal(t, http.StatusOK, rec.Code, "submission %d", i+1)
	}
	rec, env := h.do(http.MethodPost, "/api/v1/comments", body, "203.0.113.30")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Error)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Contains(t, env.Message, "15 minute")

	// Another client is unaffected.
	rec, _ = h.do(http.MethodPost, "/api/v1/comments", body, "203.0.113.31")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommentRateLimit_CountsMalformedBodies(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("malformed")
	h.token = ""

	for i := 0; i < 5; i++ {
		rec, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": -1, "author": "a", "content": "hi"}, "203.0.113.35")
		require.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
		assert.Equal(t, "VALIDATION_ERROR", env.Error)
	}
	rec, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": -1, "author": "a", "content": "hi"}, "203.0.113.35")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Error)

	rec, _ = h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "a", "content": "hi"}, "203.0.113.35")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCommentPlainTextRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("plain-text")
	admin := h.token
	h.token = ""

	rec, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "O'Brien & Co", "content": "Tom's <3 post <b>really</b>"}, "203.0.113.36")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created models.PublicComment
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "Eve", "content": "buy sp<b></b>am now"}, "203.0.113.37")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONTENT_REJECTED", env.Error)

	h.token = admin
	rec, _ = h.do(http.MethodPatch, "/api/admin/comments/"+strconv.Itoa(int(created.ID)), gin.H{"status": "APPROVED"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	h.token = ""
	rec, env = h.do(http.MethodGet, fmt.Sprintf("/api/v1/comments?postId=%d", postID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []models.PublicComment
	require.NoError(t, json.Unmarshal(env.Data, &visible))
	require.Len(t, visible, 1)
	assert.Equal(t, "O'Brien & Co", visible[0].Author)
	assert.Equal(t, "Tom's <3 post really", visible[0].Content)
}

func TestBatchModeration(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("batch")
	admin := h.token
	h.token = ""

	var ids []uint
	for i := 0; i < 3; i++ {
		_, env := h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "Dan", "content": fmt.Sprintf("comment %d", i)}, fmt.Sprintf("203.0.113.%d", 40+i))
		var c models.PublicComment
		require.NoError(t, json.Unmarshal(env.Data, &c))
		ids = append(ids, c.ID)
	}

	h.token = admin
	rec, env := h.do(http.MethodPatch, "/api/admin/comments", gin.H{"commentIds": []uint{}, "action": "approve"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = h.do(http.MethodPatch, "/api/admin/comments", gin.H{"commentIds": ids, "action": "archive"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ACTION", env.Error)

	rec, env = h.do(http.MethodPatch, "/api/admin/comments", gin.H{"commentIds": []uint{ids[0], ids[1], ids[1]}, "action": "approve"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"affected":2}`, string(env.Data))

	rec, env = h.do(http.MethodPatch, "/api/admin/comments", gin.H{"commentIds": []uint{ids[2], 9999}, "action": "delete"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"affected":1}`, string(env.Data))

	rec, env = h.do(http.MethodGet, "/api/admin/comments?status=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATUS", env.Error)
}

func TestPostsAndTaxonomy(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, env := h.do(http.MethodPost, "/api/admin/categories", gin.H{"name": "Go", "slug": "go"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cat models.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	rec, env = h.do(http.MethodPost, "/api/admin/categories", gin.H{"name": "Golang", "slug": "go"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SLUG_EXISTS", env.Error)

	postID := h.publishedPost("generics", cat.ID)

	rec, env = h.do(http.MethodPost, "/api/admin/posts", gin.H{"title": "Dup", "slug": "generics", "content": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SLUG_EXISTS", env.Error)

	rec, env = h.do(http.MethodPost, "/api/admin/posts", gin.H{"title": "No body", "slug": "nobody"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELDS", env.Error)

	rec, env = h.do(http.MethodDelete, "/api/admin/categories", gin.H{"ids": []uint{cat.ID}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CATEGORY_IN_USE", env.Error)

	h.token = ""
	rec, env = h.do(http.MethodGet, "/api/v1/posts?category=go", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Posts, 1)
	assert.Equal(t, "generics", list.Posts[0].Slug)

	rec, env = h.do(http.MethodGet, "/api/v1/posts/generics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Contains(t, post.ContentHTML, "<em>markdown</em>")
	assert.NotNil(t, post.PublishedAt)

	rec, env = h.do(http.MethodGet, "/api/v1/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"post_count":1`)

	rec, _ = h.do(http.MethodGet, "/api/v1/search/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"generics"`)

	h.login()
	rec, _ = h.do(http.MethodDelete, "/api/admin/posts/"+strconv.Itoa(int(postID)), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	h.token = ""
	rec, _ = h.do(http.MethodGet, "/api/v1/posts/generics", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.login()
	rec, env = h.do(http.MethodDelete, "/api/admin/categories", gin.H{"ids": []uint{cat.ID}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"affected":1}`, string(env.Data))
}

func TestCategoryByID(t *testing.T) {
	h := newHarness(t)
	h.login()

	create := func(name, slug string) models.Category {
		rec, env := h.do(http.MethodPost, "/api/admin/categories", gin.H{"name": name, "slug": slug}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c models.Category
		require.NoError(t, json.Unmarshal(env.Data, &c))
		return c
	}
	goCat := create("Go", "go")
	rust := create("Rust", "rust")
	h.publishedPost("channels", goCat.ID)

	path := "/api/admin/categories/" + strconv.Itoa(int(goCat.ID))
	rec, env := h.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail repository.CategoryDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, int64(1), detail.PostCount)
	require.Len(t, detail.Posts, 1)
	assert.Equal(t, "channels", detail.Posts[0].Slug)
	assert.Equal(t, models.PostPublished, detail.Posts[0].Status)

	rec, env = h.do(http.MethodPut, path, gin.H{"name": "Golang", "slug": "rust"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SLUG_EXISTS", env.Error)

	rec, env = h.do(http.MethodPut, path, gin.H{"name": "Golang", "slug": "go", "description": "gophers"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Category
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Golang", updated.Name)
	assert.Equal(t, "go", updated.Slug)
	assert.Equal(t, "gophers", updated.Description)

	rec, env = h.do(http.MethodPut, path, gin.H{"name": "", "slug": "go"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELDS", env.Error)

	rec, env = h.do(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CATEGORY_IN_USE", env.Error)

	rustPath := "/api/admin/categories/" + strconv.Itoa(int(rust.ID))
	rec, _ = h.do(http.MethodDelete, rustPath, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env = h.do(http.MethodGet, rustPath, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error)
	rec, _ = h.do(http.MethodPut, rustPath, gin.H{"name": "Rust", "slug": "rust"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = h.do(http.MethodDelete, rustPath, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(http.MethodGet, "/api/admin/categories/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", env.Error)
}

func TestTagByID(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, env := h.do(http.MethodPost, "/api/admin/tags", gin.H{"name": "Concurrency", "slug": "concurrency"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tag models.Tag
	require.NoError(t, json.Unmarshal(env.Data, &tag))
	rec, _ = h.do(http.MethodPost, "/api/admin/tags", gin.H{"name": "Testing", "slug": "testing"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	path := "/api/admin/tags/" + strconv.Itoa(int(tag.ID))
	rec, env = h.do(http.MethodPut, path, gin.H{"name": "Goroutines", "slug": "testing"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SLUG_EXISTS", env.Error)

	rec, env = h.do(http.MethodPut, path, gin.H{"name": "Goroutines", "slug": "goroutines"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"slug":"goroutines"`)

	rec, _ = h.do(http.MethodPost, "/api/admin/posts", gin.H{"title": "Draft", "slug": "tagged-draft", "content": "x", "tag_ids": []uint{tag.ID}}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = h.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail repository.TagDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Goroutines", detail.Name)
	assert.Equal(t, int64(1), detail.PostCount)
	require.Len(t, detail.Posts, 1)
	assert.Equal(t, models.PostDraft, detail.Posts[0].Status)

	rec, env = h.do(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TAG_IN_USE", env.Error)

	rec, _ = h.do(http.MethodGet, "/api/admin/tags/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftsAreHidden(t *testing.T) {
	h := newHarness(t)
	h.login()
	rec, env := h.do(http.MethodPost, "/api/admin/posts", gin.H{"title": "Draft", "slug": "draft", "content": "wip"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var draft models.Post
	require.NoError(t, json.Unmarshal(env.Data, &draft))

	h.token = ""
	rec, _ = h.do(http.MethodGet, "/api/v1/posts/draft", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": draft.ID, "author": "Eve", "content": "early!"}, "203.0.113.50")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "POST_NOT_FOUND", env.Error)
}

func TestSettings(t *testing.T) {
	h := newHarness(t)
	rec, env := h.do(http.MethodGet, "/api/v1/settings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"title":"个人博客"`)

	h.login()
	rec, env = h.do(http.MethodPut, "/api/admin/settings", gin.H{"title": "", "description": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodPut, "/api/admin/settings", gin.H{"title": "Notes", "base_url": "not a url"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodPut, "/api/admin/settings", gin.H{"title": "Notes", "author": "me", "base_url": "https://notes.example.com/"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = h.do(http.MethodGet, "/api/v1/settings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.SiteSettings
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "Notes", s.Title)
	assert.Equal(t, "https://notes.example.com", s.BaseURL)
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.login()
	postID := h.publishedPost("counted")
	admin := h.token
	h.token = ""
	h.do(http.MethodGet, "/api/v1/posts/counted", nil, "")
	h.do(http.MethodPost, "/api/v1/comments", gin.H{"postId": postID, "author": "Fay", "content": "nice"}, "203.0.113.60")

	h.token = admin
	rec, env := h.do(http.MethodGet, "/api/admin/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "1", string(stats["published_count"]))
	assert.Equal(t, "1", string(stats["pending_comment_count"]))
	assert.Equal(t, "1", string(stats["today_pv"]))
	assert.Contains(t, string(stats["recent_comments"]), `"post_slug":"counted"`)
}

func TestFeedAndSitemap(t *testing.T) {
	h := newHarness(t)
	h.login()
	rec, env := h.do(http.MethodPost, "/api/admin/tags", gin.H{"name": "Testing", "slug": "testing"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	h.publishedPost("feed-me")
	h.token = ""

	rec, _ = h.do(http.MethodGet, "/feed.xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600, s-maxage=3600", rec.Header().Get("Cache-Control"))
	body := rec.Body.String()
	assert.Contains(t, body, `<rss version="2.0"`)
	assert.Contains(t, body, "<link>https://blog.example.com/post/feed-me</link>")
	assert.Contains(t, body, "<content:encoded><![CDATA[")

	rec, _ = h.do(http.MethodGet, "/sitemap.xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "<loc>https://blog.example.com/archive</loc>")
	assert.Contains(t, body, "<loc>https://blog.example.com/post/feed-me</loc>")
	assert.Contains(t, body, "<loc>https://blog.example.com/tags/testing</loc>")
	_ = env
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.login()

	upload := func(name string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+h.token)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec
	}

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	rec := upload("cover.png", png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var file models.UploadedFile
	require.NoError(t, json.Unmarshal(env.Data, &file))
	assert.Equal(t, "image/png", file.MimeType)
	assert.True(t, strings.HasPrefix(file.URL, "/uploads/"+time.Now().Format("2006/01")+"/"))
	assert.True(t, strings.HasSuffix(file.URL, ".png"))
	assert.Equal(t, "cover.png", file.Filename)

	get := httptest.NewRecorder()
	h.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, file.URL, nil))
	assert.Equal(t, http.StatusOK, get.Code)

	rec = upload("notes.txt", []byte("just text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_TYPE")

	var rows int64
	require.NoError(t, h.db.Model(&models.UploadedFile{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
