package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tasks          *handlers.TasksHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Policies       *auth.Policies
	RateLimit      fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api")
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}

	api.Get("/health", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Authenticate, cfg.Auth.Me)

	tasks := api.Group("/tasks", cfg.AuthMiddleware.Authenticate)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Post("/", cfg.Tasks.Create)

	task := tasks.Group("/:id", cfg.Policies.TaskOwner())
	task.Get("/", cfg.Tasks.Get)
	task.Put("/", cfg.Tasks.Update)
	task.Delete("/", cfg.Tasks.Delete)
	task.Post("/attachments", cfg.Tasks.UploadAttachments)
	task.Get("/attachments/:filename", cfg.Tasks.DownloadAttachment)
	task.Delete("/attachments/:filename", cfg.Tasks.DeleteAttachment)

	users := api.Group("/users", cfg.AuthMiddleware.Authenticate)
	users.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.List)
	users.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Delete)

	user := users.Group("/:id", cfg.Policies.UserSelf())
	user.Get("/", cfg.Users.Get)
	user.Put("/", cfg.Users.Update)
}
