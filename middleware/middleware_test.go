package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoreg/auth"
	"motoreg/models"
	"motoreg/store"
	"motoreg/utils"
)

const testSecret = "middleware-test-secret-middleware-test"

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{
		AllowedOrigins:   []string{"https://event.es"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST"},
		MaxAge:           600,
	}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://event.es")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://event.es", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET,POST", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", resp.Header.Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func newAuthApp(t *testing.T, pre fiber.Handler, scope auth.Scope) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	if pre != nil {
		app.Use(pre)
	}
	app.Use(Authenticate(auth.NewResolver(testSecret), auth.NewAdminChecker("admin", nil), "X-Platform"))
	app.Get("/me", RequireScope(scope), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": IdentityFrom(c).UserID, "admin": IsAdmin(c)})
	})
	return app
}

func TestAuthenticateAndScopes(t *testing.T) {
	tok, err := auth.SignToken(testSecret, auth.Identity{
		UserID:      "user-1",
		AppMetadata: map[string]interface{}{"role": "admin"},
	}, time.Hour)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		resp, err := newAuthApp(t, nil, auth.ScopeUser).Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin by role claim", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := newAuthApp(t, nil, auth.ScopeAdmin).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("pre-attached identity wins", func(t *testing.T) {
		pre := func(c *fiber.Ctx) error {
			c.Locals(localIdentity, &auth.Identity{UserID: "platform-user"})
			return c.Next()
		}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := newAuthApp(t, pre, auth.ScopeAdmin).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStorage(client, "rl:")

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("rl:limiter:k"))
	val, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, mr.Set("other", "kept"))
	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("rl:limiter:k"))
	assert.True(t, mr.Exists("other"))
}

func TestRedisStorageResetKeepsRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	records := store.NewRedisStore(client, "motoreg:")
	limits := NewRedisStorage(client, "motoreg:")
	ctx := context.Background()

	require.NoError(t, records.Insert(ctx, store.CollectionTeams, &models.Team{
		ID:                   "t1",
		RepresentativeUserID: "user-1",
		Name:                 "Team",
		NumberOfPilots:       4,
	}))
	require.NoError(t, limits.Set("ratelimit:user:user-1", []byte("3"), time.Minute))
	require.NoError(t, limits.Reset())

	n, err := records.Count(ctx, store.CollectionTeams, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	val, err := limits.Get("ratelimit:user:user-1")
	require.NoError(t, err)
	assert.Nil(t, val)
}
