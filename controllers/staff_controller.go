package controller

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/middleware"
	"motoreg/services"
	"motoreg/utils"
)

type StaffController struct {
	registration *services.RegistrationService
}

func NewStaffController(registration *services.RegistrationService) *StaffController {
	return &StaffController{registration: registration}
}

func (sc *StaffController) ListStaff(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	staff, err := sc.registration.ListStaff(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "staff", staff)
}

func (sc *StaffController) AddStaff(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.StaffRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	member, err := sc.registration.AddStaff(c.UserContext(), id.UserID, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "staff", member)
}

// UpdateStaff patches the staff member named by the id query parameter.
func (sc *StaffController) UpdateStaff(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.StaffUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	member, err := sc.registration.UpdateStaff(c.UserContext(), id.UserID, c.Query("id"), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "staff", member)
}

func (sc *StaffController) RemoveStaff(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	if err := sc.registration.RemoveStaff(c.UserContext(), id.UserID, c.Query("id")); err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "success", true)
}
