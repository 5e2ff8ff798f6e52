package controller

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/middleware"
	"motoreg/services"
	"motoreg/utils"
)

// TeamController serves the caller's own team.
type TeamController struct {
	registration *services.RegistrationService
}

func NewTeamController(registration *services.RegistrationService) *TeamController {
	return &TeamController{registration: registration}
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)
	team, err := tc.registration.GetOwnTeam(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	// null when the caller has not registered yet
	return utils.Respond(c, fiber.StatusOK, "team", team)
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.CreateTeamRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	team, err := tc.registration.CreateTeam(c.UserContext(), id.UserID, id.Email, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "team", team)
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	id := middleware.IdentityFrom(c)

	var req services.TeamUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	team, err := tc.registration.UpdateOwnTeam(c.UserContext(), id.UserID, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "team", team)
}
