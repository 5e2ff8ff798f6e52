package utils

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parseTarget struct {
	Name  string `json:"name"`
	Count *int   `json:"count"`
}

func newParseApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", func(c *fiber.Ctx) error {
		req := parseTarget{Name: "unchanged"}
		if err := ParseBody(c, &req); err != nil {
			return err
		}
		count := -1
		if req.Count != nil {
			count = *req.Count
		}
		return c.JSON(fiber.Map{"name": req.Name, "count": count})
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("connection refused")
	})
	return app
}

func post(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestParseBody(t *testing.T) {
	app := newParseApp()

	t.Run("json", func(t *testing.T) {
		status, body := send(t, app, post(`{"name":"Ana","count":3}`, fiber.MIMEApplicationJSON))
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"name":"Ana","count":3}`, body)
	})

	t.Run("missing content type is read as json", func(t *testing.T) {
		status, body := send(t, app, post(`{"name":"Luis"}`, ""))
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"name":"Luis","count":-1}`, body)
	})

	t.Run("empty body", func(t *testing.T) {
		status, body := send(t, app, post("", fiber.MIMEApplicationJSON))
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"name":"unchanged","count":-1}`, body)
	})

	t.Run("malformed", func(t *testing.T) {
		status, body := send(t, app, post(`{broken`, fiber.MIMEApplicationJSON))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"error":"Invalid request body"}`, body)
	})
}

func TestErrorHandlerHidesBackendCause(t *testing.T) {
	status, body := send(t, newParseApp(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"Internal server error"}`, body)
}
