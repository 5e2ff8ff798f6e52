package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error returned by a handler as { "error": message }.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	appErr := AsAppError(err)
	if appErr.Kind == KindBackend {
		cause := appErr.Err
		if cause == nil {
			cause = appErr
		}
		LogError("request_failed", cause, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
	}
	return c.Status(appErr.Kind.Status()).JSON(fiber.Map{"error": appErr.Message})
}

// Respond writes the success envelope { key: data }.
func Respond(c *fiber.Ctx, status int, key string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{key: data})
}

// ParseBody decodes the request body into v. An empty body leaves v
// untouched; a body without Content-Type is read as JSON.
func ParseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if len(c.Request().Header.ContentType()) == 0 {
		c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	}
	if err := c.BodyParser(v); err != nil {
		return Validation("Invalid request body")
	}
	return nil
}
