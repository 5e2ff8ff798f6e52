package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoreg/auth"
	"motoreg/middleware"
	"motoreg/models"
	"motoreg/services"
	"motoreg/store"
	"motoreg/utils"
)

const (
	testSecret     = "routes-test-secret-routes-test-secret"
	platformHeader = "X-Platform-Context"
)

type testApp struct {
	app   *fiber.App
	store store.RecordStore
	mr    *miniredis.Miniredis
}

func newTestApp(t *testing.T, rateLimit int) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewRedisStore(client, "test:")
	t.Cleanup(func() { _ = st.Close() })

	_, err := services.EnsureSettings(context.Background(), st, models.RegistrationSettings{RegistrationOpen: true})
	require.NoError(t, err)

	deps := Dependencies{
		Resolver:       auth.NewResolver(testSecret),
		Admins:         auth.NewAdminChecker("admin", []string{"boss@event.es"}),
		PlatformHeader: platformHeader,
		Registration:   services.NewRegistrationService(st),
		Admin:          services.NewAdminService(st, nil),
		CORS:           middleware.DefaultCORSConfig(),
	}
	if rateLimit > 0 {
		deps.RateLimit = middleware.RateLimiter(rateLimit, middleware.NewRedisStorage(client, "test:"))
	}

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	SetupRoutes(app, deps)
	return &testApp{app: app, store: st, mr: mr}
}

func token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := auth.SignToken(testSecret, auth.Identity{UserID: userID, Email: email}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (ta *testApp) do(t *testing.T, method, target, authorization string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestPublicRoutes(t *testing.T) {
	ta := newTestApp(t, 0)

	status, body := ta.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = ta.do(t, http.MethodGet, "/api/registration-settings", "", nil)
	assert.Equal(t, http.StatusOK, status)
	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, true, settings["registration_open"])
	assert.Equal(t, true, settings["accepting_teams"])

	status, body = ta.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestPreflightSkipsAuthentication(t *testing.T) {
	ta := newTestApp(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/teams", nil)
	req.Header.Set("Origin", "https://event.es")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", resp.Header.Get("Access-Control-Max-Age"))
}

func TestAuthenticationRequired(t *testing.T) {
	ta := newTestApp(t, 0)
	for _, path := range []string{"/api/teams", "/api/staff", "/api/pilots", "/api/admin/teams"} {
		status, body := ta.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "Not authenticated", body["error"])
	}

	expired, err := auth.SignToken(testSecret, auth.Identity{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)
	status, _ := ta.do(t, http.MethodGet, "/api/teams", "Bearer "+expired, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPlatformContextHeader(t *testing.T) {
	ta := newTestApp(t, 0)
	ctx := base64.StdEncoding.EncodeToString([]byte(`{"user":{"sub":"platform-user","email":"boss@event.es"}}`))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/teams", nil)
	req.Header.Set(platformHeader, ctx)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTeamLifecycle(t *testing.T) {
	ta := newTestApp(t, 0)
	rep := token(t, "user-1", "rep@riders.es")

	status, body := ta.do(t, http.MethodGet, "/api/teams", rep, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "team")
	assert.Nil(t, body["team"])

	status, body = ta.do(t, http.MethodPost, "/api/teams", rep, map[string]interface{}{"name": "Tres", "number_of_pilots": 3})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])

	status, body = ta.do(t, http.MethodPost, "/api/teams", rep, map[string]interface{}{
		"name":             "Los Rápidos",
		"number_of_pilots": 4,
		"status":           "confirmed",
	})
	require.Equal(t, http.StatusCreated, status)
	team := body["team"].(map[string]interface{})
	assert.Equal(t, "draft", team["status"])
	assert.Equal(t, "rep@riders.es", team["representative_email"])

	status, _ = ta.do(t, http.MethodPost, "/api/teams", rep, map[string]interface{}{"name": "Again", "number_of_pilots": 4})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, http.MethodPut, "/api/teams", rep, map[string]interface{}{"province": "Madrid", "status": "confirmed"})
	require.Equal(t, http.StatusOK, status)
	team = body["team"].(map[string]interface{})
	assert.Equal(t, "Madrid", team["province"])
	assert.Equal(t, "draft", team["status"])

	status, _ = ta.do(t, http.MethodPatch, "/api/teams", rep, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, _ = ta.do(t, http.MethodPost, "/api/teams", rep, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest(http.MethodPut, "/api/teams", strings.NewReader("{broken"))
	req.Header.Set("Authorization", rep)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStaffAndPilotsOverHTTP(t *testing.T) {
	ta := newTestApp(t, 0)
	owner := token(t, "owner", "")
	intruder := token(t, "intruder", "")

	status, body := ta.do(t, http.MethodPost, "/api/staff", owner, map[string]interface{}{"name": "Pepe", "role": "mechanic"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "You must create a team first")

	for _, rep := range []string{owner, intruder} {
		status, _ := ta.do(t, http.MethodPost, "/api/teams", rep, map[string]interface{}{"name": "T", "number_of_pilots": 4})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body = ta.do(t, http.MethodPost, "/api/staff", owner, map[string]interface{}{"name": "Pepe", "role": "mechanic"})
	require.Equal(t, http.StatusCreated, status)
	staffID := body["staff"].(map[string]interface{})["id"].(string)

	status, _ = ta.do(t, http.MethodPut, "/api/staff?id="+staffID, intruder, map[string]interface{}{"name": "Mine"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = ta.do(t, http.MethodDelete, "/api/staff?id="+staffID, intruder, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ta.do(t, http.MethodPut, "/api/staff?id="+staffID, owner, map[string]interface{}{"role": "support", "team_id": "other"})
	require.Equal(t, http.StatusOK, status)
	member := body["staff"].(map[string]interface{})
	assert.Equal(t, "support", member["role"])
	assert.NotEqual(t, "other", member["team_id"])

	status, body = ta.do(t, http.MethodGet, "/api/staff", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["staff"], 1)

	status, body = ta.do(t, http.MethodDelete, "/api/staff?id="+staffID, owner, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = ta.do(t, http.MethodDelete, "/api/staff", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, http.MethodPost, "/api/pilots", owner, map[string]interface{}{
		"name": "Ana", "surname": "Ruiz", "motorcycle_experience": "rutero",
	})
	require.Equal(t, http.StatusCreated, status)
	pilot := body["pilot"].(map[string]interface{})
	assert.EqualValues(t, 1, pilot["pilot_number"])

	status, _ = ta.do(t, http.MethodPut, "/api/pilots?id="+pilot["id"].(string), intruder, map[string]interface{}{"name": "X"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ta.do(t, http.MethodGet, "/api/pilots", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["pilots"], 1)

	status, _ = ta.do(t, http.MethodPatch, "/api/pilots", owner, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestAdminRoutes(t *testing.T) {
	ta := newTestApp(t, 0)
	rep := token(t, "user-1", "")
	admin := token(t, "admin-1", "boss@event.es")

	status, body := ta.do(t, http.MethodPost, "/api/teams", rep, map[string]interface{}{"name": "T", "number_of_pilots": 4})
	require.Equal(t, http.StatusCreated, status)
	teamID := body["team"].(map[string]interface{})["id"].(string)
	status, _ = ta.do(t, http.MethodPost, "/api/staff", rep, map[string]interface{}{"name": "Pepe", "role": "mechanic"})
	require.Equal(t, http.StatusCreated, status)

	status, body = ta.do(t, http.MethodGet, "/api/admin/teams", rep, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied. Admin privileges required.", body["error"])

	status, body = ta.do(t, http.MethodGet, "/api/admin/teams", admin, nil)
	require.Equal(t, http.StatusOK, status)
	teams := body["teams"].([]interface{})
	require.Len(t, teams, 1)
	assert.EqualValues(t, 1, teams[0].(map[string]interface{})["staffCount"])
	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["total"])
	assert.EqualValues(t, 1, stats["draft"])

	status, _ = ta.do(t, http.MethodPut, "/api/admin/teams?id="+teamID, admin, map[string]interface{}{"name": "Hacked"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, http.MethodPut, "/api/admin/teams?id="+teamID, admin, map[string]interface{}{
		"status": "confirmed", "name": "Ignored",
	})
	require.Equal(t, http.StatusOK, status)
	team := body["team"].(map[string]interface{})
	assert.Equal(t, "confirmed", team["status"])
	assert.Equal(t, "T", team["name"])

	status, _ = ta.do(t, http.MethodPost, "/api/admin/teams", admin, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, body = ta.do(t, http.MethodDelete, "/api/admin/teams?id="+teamID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Team deleted successfully", body["message"])

	n, err := ta.store.Count(context.Background(), store.CollectionStaff, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	status, _ = ta.do(t, http.MethodDelete, "/api/admin/teams?id="+teamID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRateLimit(t *testing.T) {
	ta := newTestApp(t, 2)
	rep := token(t, "user-1", "")

	for i := 0; i < 2; i++ {
		status, _ := ta.do(t, http.MethodGet, "/api/teams", rep, nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, body := ta.do(t, http.MethodGet, "/api/teams", rep, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, body["error"])

	other := token(t, "user-2", "")
	status, _ = ta.do(t, http.MethodGet, "/api/teams", other, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRateLimitAnonymousCallers(t *testing.T) {
	ta := newTestApp(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := ta.do(t, http.MethodGet, "/api/teams", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := ta.do(t, http.MethodGet, "/api/teams", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// authenticated callers have their own counter
	status, _ = ta.do(t, http.MethodGet, "/api/teams", token(t, "user-1", ""), nil)
	assert.Equal(t, http.StatusOK, status)
}
