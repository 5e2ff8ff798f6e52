package controller

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/middleware"
	"motoreg/services"
	"motoreg/utils"
)

type PilotController struct {
	registration *services.RegistrationService
}

func NewPilotController(registration *services.RegistrationService) *PilotController {
	return &PilotController{registration: registration}
}

func (pc *PilotController) ListPilots(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	pilots, err := pc.registration.ListPilots(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "pilots", pilots)
}

func (pc *PilotController) AddPilot(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.PilotRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	pilot, err := pc.registration.AddPilot(c.UserContext(), id.UserID, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "pilot", pilot)
}

func (pc *PilotController) UpdatePilot(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.PilotUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	pilot, err := pc.registration.UpdatePilot(c.UserContext(), id.UserID, c.Query("id"), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "pilot", pilot)
}

func (pc *PilotController) RemovePilot(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	if err := pc.registration.RemovePilot(c.UserContext(), id.UserID, c.Query("id")); err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "success", true)
}
