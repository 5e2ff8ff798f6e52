package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"motoreg/auth"
	controller "motoreg/controllers"
	"motoreg/middleware"
	"motoreg/services"
	"motoreg/utils"
)

// Dependencies are the collaborators the route table is built from.
type Dependencies struct {
	Resolver       *auth.Resolver
	Admins         *auth.AdminChecker
	PlatformHeader string
	Registration   *services.RegistrationService
	Admin          *services.AdminService
	CORS           middleware.CORSConfig
	// RateLimit is applied to the caller-scoped surfaces when set.
	RateLimit fiber.Handler
	// AccessLog disables the request log when false.
	AccessLog bool
}

func methodNotAllowed(c *fiber.Ctx) error {
	return utils.MethodNotAllowed()
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Use(middleware.CORS(deps.CORS))
	if deps.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get("/health", controller.Health)

	teamController := controller.NewTeamController(deps.Registration)
	pilotController := controller.NewPilotController(deps.Registration)
	staffController := controller.NewStaffController(deps.Registration)
	settingsController := controller.NewSettingsController(deps.Registration)
	adminController := controller.NewAdminController(deps.Admin)

	api := app.Group("/api", middleware.Authenticate(deps.Resolver, deps.Admins, deps.PlatformHeader))

	settings := api.Group("/registration-settings")
	settings.Get("", settingsController.GetSettings)
	settings.All("", methodNotAllowed)

	// the limiter runs before the scope check so rejected anonymous callers count too
	var userScope []fiber.Handler
	if deps.RateLimit != nil {
		userScope = append(userScope, deps.RateLimit)
	}
	userScope = append(userScope, middleware.RequireScope(auth.ScopeUser))

	teams := api.Group("/teams", userScope...)
	teams.Get("", teamController.GetTeam)
	teams.Post("", teamController.CreateTeam)
	teams.Put("", teamController.UpdateTeam)
	teams.All("", methodNotAllowed)

	pilots := api.Group("/pilots", userScope...)
	pilots.Get("", pilotController.ListPilots)
	pilots.Post("", pilotController.AddPilot)
	pilots.Put("", pilotController.UpdatePilot)
	pilots.Delete("", pilotController.RemovePilot)
	pilots.All("", methodNotAllowed)

	staff := api.Group("/staff", userScope...)
	staff.Get("", staffController.ListStaff)
	staff.Post("", staffController.AddStaff)
	staff.Put("", staffController.UpdateStaff)
	staff.Delete("", staffController.RemoveStaff)
	staff.All("", methodNotAllowed)

	admin := api.Group("/admin", middleware.RequireScope(auth.ScopeAdmin))
	admin.Get("/teams", adminController.ListTeams)
	admin.Put("/teams", adminController.UpdateTeam)
	admin.Delete("/teams", adminController.DeleteTeam)
	admin.All("/teams", methodNotAllowed)

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFound("The requested resource was not found")
	})
}
