package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/cache"
	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/database"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse battery staple"

func testAdminConfig(t *testing.T) config.AdminConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return config.AdminConfig{PasswordHash: string(hash), JWTSecret: "test-secret", TokenTTL: time.Hour}
}

func newTestService(t *testing.T, c Invalidator) *Service {
	t.Helper()
	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(database.NewRepository(db), c, nil)
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func categoryOf(err error) string { return string(errors.ToAppError(err).Category) }

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Devfolio", "devfolio"},
		{"My  Cool Project!", "my-cool-project"},
		{"  --Go & SQLite--  ", "go-sqlite"},
		{"v2.0 release", "v2-0-release"},
		{"Café Menu", "caf-menu"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestServiceCreateAndGet(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, Input{
		Title:       "  Devfolio API ",
		Description: "Backend for the <b>portfolio</b>",
		Stacks:      []string{"Go", " go ", "", "SQLite"},
		LinkDemo:    strPtr("  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "devfolio-api", p.Slug)
	assert.Equal(t, "Devfolio API", p.Title)
	assert.Equal(t, "Backend for the portfolio", p.Description)
	assert.Equal(t, []string{"Go", "SQLite"}, p.Stacks)
	assert.Nil(t, p.LinkDemo)
	assert.True(t, p.IsShow)

	got, err := svc.Get(ctx, "devfolio-api")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestServiceValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   Input
		message string
	}{
		{"missing title", Input{Description: "d"}, "title is required"},
		{"missing description", Input{Title: "t"}, "description is required"},
		{"script only title", Input{Title: "<script>x</script>", Description: "d"}, "title is required"},
		{"no slug characters", Input{Title: "???", Description: "d"}, "slug could not be derived from title"},
		{"invalid content", Input{Title: "t", Description: "d", Content: strPtr("bad\x00")}, "content contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			require.Error(t, err)
			appErr := errors.ToAppError(err)
			assert.Equal(t, errors.CategoryValidation, appErr.Category)
			assert.Equal(t, tt.message, appErr.Response().Error)
		})
	}
}

func TestServiceConflictAndNotFound(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Title: "Same", Description: "d"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{Title: "Same", Description: "other"})
	assert.Equal(t, "conflict", categoryOf(err))
	assert.Equal(t, http.StatusConflict, errors.ToAppError(err).HTTPStatus)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, "not_found", categoryOf(err))

	_, err = svc.Update(ctx, "missing", Input{Title: "x", Description: "y"})
	assert.Equal(t, "not_found", categoryOf(err))

	assert.Equal(t, "not_found", categoryOf(svc.Delete(ctx, "missing")))
}

func TestServiceHiddenProjects(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Title: "Draft", Description: "d", IsShow: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "draft")
	assert.Equal(t, "not_found", categoryOf(err))

	list, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, list.Projects)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServiceListFilters(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for _, in := range []Input{
		{Title: "Chat Room", Description: "Realtime websocket chat", Stacks: []string{"GO", "WebSocket"}},
		{Title: "Landing", Description: "Marketing site", Stacks: []string{"React", "Go"}},
		{Title: "Dashboard", Description: "Stats for the portfolio", Stacks: []string{"Svelte"}, IsFeatured: true},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		q     string
		stack string
		slugs []string
	}{
		{"all, featured first then newest", "", "", []string{"dashboard", "landing", "chat-room"}},
		{"query matches title", "chat", "", []string{"chat-room"}},
		{"query matches description", "PORTFOLIO", "", []string{"dashboard"}},
		{"stack ignores case", "", "go", []string{"landing", "chat-room"}},
		{"query and stack", "site", "react", []string{"landing"}},
		{"no match", "rust", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.List(ctx, tt.q, tt.stack)
			require.NoError(t, err)

			slugs := []string{}
			for _, p := range result.Projects {
				slugs = append(slugs, p.Slug)
			}
			assert.Equal(t, tt.slugs, slugs)
			assert.Equal(t, []string{"Go", "React", "Svelte", "WebSocket"}, result.Stacks)
		})
	}
}

func TestServiceUpdateKeepsOrRenamesSlug(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Title: "Original", Description: "d"})
	require.NoError(t, err)

	p, err := svc.Update(ctx, "original", Input{Title: "Renamed Title", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, "original", p.Slug)
	assert.Equal(t, "Renamed Title", p.Title)

	p, err = svc.Update(ctx, "original", Input{Title: "Renamed Title", Slug: "Renamed", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Slug)

	_, err = svc.Get(ctx, "original")
	assert.Equal(t, "not_found", categoryOf(err))
}

type countingInvalidator struct{ clears int }

func (c *countingInvalidator) Clear() { c.clears++ }

func TestServiceInvalidatesOnWrites(t *testing.T) {
	inv := &countingInvalidator{}
	svc := newTestService(t, inv)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Title: "A", Description: "d"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "a", Input{Title: "A", Description: "e"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "a"))

	_, err = svc.Create(ctx, Input{Description: "invalid"})
	require.Error(t, err)

	assert.Equal(t, 3, inv.clears)
}

func TestAuth(t *testing.T) {
	auth := NewAuth(testAdminConfig(t))
	require.True(t, auth.Enabled())

	token, expiresAt, err := auth.Login(testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
	assert.NoError(t, auth.Validate(token))

	_, _, err = auth.Login("wrong")
	assert.Equal(t, "unauthorized", categoryOf(err))

	assert.Equal(t, "unauthorized", categoryOf(auth.Validate("not-a-token")))

	// expired
	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, "unauthorized", categoryOf(auth.Validate(token)))
}

func TestAuthRejectsForeignTokens(t *testing.T) {
	auth := NewAuth(testAdminConfig(t))

	otherSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := otherSecret.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	assert.Equal(t, "unauthorized", categoryOf(auth.Validate(signed)))

	wrongSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "visitor",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err = wrongSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "unauthorized", categoryOf(auth.Validate(signed)))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: adminSubject})
	signed, err = noExpiry.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "unauthorized", categoryOf(auth.Validate(signed)))
}

func TestAuthNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AdminConfig
	}{
		{"no hash", config.AdminConfig{JWTSecret: "s"}},
		{"no secret", config.AdminConfig{PasswordHash: "$2a$10$abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuth(tt.cfg)
			assert.False(t, auth.Enabled())

			_, _, err := auth.Login("anything")
			assert.Equal(t, "configuration", categoryOf(err))
			assert.Equal(t, "configuration", categoryOf(auth.Validate("token")))
		})
	}
}

func setupRouter(t *testing.T, opts ...Option) (*gin.Engine, *Auth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := NewAuth(testAdminConfig(t))
	h := NewHandler(newTestService(t, nil), auth, opts...)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, auth
}

func doJSON(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doJSON(r, "POST", "/api/admin/login", "", LoginRequest{Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHandlersAdminFlow(t *testing.T) {
	r, _ := setupRouter(t)
	token := login(t, r)

	w := doJSON(r, "POST", "/api/projects", token, Input{Title: "Devfolio", Description: "Backend", Stacks: []string{"Go"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created database.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "devfolio", created.Slug)

	w = doJSON(r, "POST", "/api/projects", token, Input{Title: "Devfolio", Description: "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"A project with this slug already exists"}`, w.Body.String())

	w = doJSON(r, "GET", "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Projects, 1)
	assert.Equal(t, []string{"Go"}, list.Stacks)

	w = doJSON(r, "GET", "/api/projects/devfolio", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "PUT", "/api/projects/devfolio", token, Input{Title: "Devfolio", Description: "Updated", IsShow: boolPtr(false)})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/api/projects/devfolio", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"project not found"}`, w.Body.String())

	w = doJSON(r, "GET", "/api/admin/projects", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isShow":false`)

	w = doJSON(r, "DELETE", "/api/projects/devfolio", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, "DELETE", "/api/projects/devfolio", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlersRequireAdmin(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"create without token", "POST", "/api/projects", ""},
		{"update with garbage token", "PUT", "/api/projects/x", "garbage"},
		{"delete without token", "DELETE", "/api/projects/x", ""},
		{"admin list without token", "GET", "/api/admin/projects", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, tt.method, tt.path, tt.token, Input{Title: "x", Description: "y"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestHandlersLogin(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, "POST", "/api/admin/login", "", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = doJSON(r, "POST", "/api/admin/login", "", LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"password is required"}`, w.Body.String())
}

func TestHandlersLoginWithoutConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(newTestService(t, nil), NewAuth(config.AdminConfig{}))
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	w := doJSON(r, "POST", "/api/admin/login", "", LoginRequest{Password: "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Admin credentials not configured"}`, w.Body.String())

	w = doJSON(r, "POST", "/api/projects", "", Input{Title: "x", Description: "y"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlersOptions(t *testing.T) {
	listCache := cache.NewCache(time.Minute)
	defer listCache.Close()

	var limited int
	limiter := func(c *gin.Context) {
		limited++
		c.Next()
	}

	r, _ := setupRouter(t, WithReadCache(listCache.Middleware(nil)), WithLoginLimit(limiter))

	w := doJSON(r, "GET", "/api/projects", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	w = doJSON(r, "GET", "/api/projects", "", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	login(t, r)
	assert.Equal(t, 1, limited)
}
