package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
)

// Handlers groups every route handler for registration.
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Admin        *handlers.AdminHandler
	Org          *handlers.OrgHandler
	Ticket       *handlers.TicketHandler
	Notification *handlers.NotificationHandler
	Upload       *handlers.UploadHandler
}

// RegisterRoutes wires the full route tree onto the app.
func RegisterRoutes(app *fiber.App, tokens *auth.TokenManager, h Handlers) {
	app.Use(recover.New())

	health := app.Group("/health")
	health.Get("/live", h.Health.Live)
	health.Get("/ready", h.Health.Ready)
	health.Get("/metrics", h.Health.Metrics)

	authenticated := auth.Middleware(tokens)
	superadminOnly := auth.RequireAdminRole(domain.AdminRoleSuperadmin)
	anyAdmin := auth.RequireAdminRole()

	authGroup := app.Group("/auth")
	authGroup.Post("/admin/signin", h.Auth.AdminSignin)
	authGroup.Post("/admin/signup", authenticated, superadminOnly, h.Auth.AdminSignup)
	authGroup.Post("/customer/signup", h.Auth.CustomerSignup)
	authGroup.Post("/customer/signin", h.Auth.CustomerSignin)
	authGroup.Post("/otp/request", h.Auth.RequestOTP)
	authGroup.Post("/otp/verify", h.Auth.VerifyOTP)
	authGroup.Post("/password", authenticated, h.Auth.ChangePassword)

	admins := app.Group("/admins", authenticated, superadminOnly)
	admins.Get("/", h.Admin.List)
	admins.Get("/:id", h.Admin.Get)
	admins.Patch("/:id", h.Admin.Update)
	admins.Delete("/:id", h.Admin.Delete)

	customers := app.Group("/customers", authenticated, anyAdmin)
	customers.Get("/", h.Admin.ListCustomers)
	customers.Delete("/:id", superadminOnly, h.Admin.DeleteCustomer)

	divisions := app.Group("/divisions", authenticated)
	divisions.Get("/", anyAdmin, h.Org.ListDivisions)
	divisions.Post("/", superadminOnly, h.Org.CreateDivision)
	divisions.Patch("/:id", superadminOnly, h.Org.UpdateDivision)
	divisions.Delete("/:id", superadminOnly, h.Org.DeleteDivision)
	divisions.Post("/:divisionId/departments", superadminOnly, h.Org.CreateDepartment)

	departments := app.Group("/departments", authenticated)
	departments.Get("/", anyAdmin, h.Org.ListDepartments)
	departments.Get("/managed", auth.RequireAdminRole(domain.AdminRoleManager), h.Org.ManagedScope)
	departments.Get("/:id", anyAdmin, h.Org.GetDepartment)
	departments.Patch("/:id", superadminOnly, h.Org.UpdateDepartment)
	departments.Delete("/:id", superadminOnly, h.Org.DeleteDepartment)

	tickets := app.Group("/tickets", authenticated)
	tickets.Post("/", h.Ticket.Create)
	tickets.Get("/", h.Ticket.List)
	tickets.Get("/:id", h.Ticket.Get)
	tickets.Patch("/:id", anyAdmin, h.Ticket.Update)
	tickets.Delete("/:id", anyAdmin, h.Ticket.Delete)
	tickets.Post("/:id/items", h.Ticket.CreateItem)

	app.Post("/uploads", authenticated, h.Upload.Upload)

	notifications := app.Group("/notifications", authenticated)
	notifications.Get("/", h.Notification.List)
	notifications.Patch("/:id/read", h.Notification.MarkRead)
}
