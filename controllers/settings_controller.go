package controller

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/services"
	"motoreg/utils"
)

type SettingsController struct {
	registration *services.RegistrationService
}

func NewSettingsController(registration *services.RegistrationService) *SettingsController {
	return &SettingsController{registration: registration}
}

// GetSettings is public: the registration form needs it before sign-in.
func (sc *SettingsController) GetSettings(c *fiber.Ctx) error {
	status, err := sc.registration.GetRegistrationStatus(c.UserContext())
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "settings", status)
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
