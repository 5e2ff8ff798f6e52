package controller

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/services"
	"motoreg/utils"
)

// AdminController serves the admin team management surface.
type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (ac *AdminController) ListTeams(c *fiber.Ctx) error {
	teams, stats, err := ac.admin.ListTeams(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"teams": teams,
		"stats": stats,
	})
}

func (ac *AdminController) UpdateTeam(c *fiber.Ctx) error {
	var req services.AdminTeamUpdate
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	team, err := ac.admin.UpdateTeam(c.UserContext(), c.Query("id"), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "team", team)
}

func (ac *AdminController) DeleteTeam(c *fiber.Ctx) error {
	if err := ac.admin.DeleteTeam(c.UserContext(), c.Query("id")); err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "message", "Team deleted successfully")
}
