package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BillyJoe121/zenzspa-project-sub002/controllers"
	"github.com/BillyJoe121/zenzspa-project-sub002/idempotency"
	"github.com/BillyJoe121/zenzspa-project-sub002/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, coord *idempotency.Coordinator) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to the request TX)
	protected.Use(middlewares.Idempotency(coord))

	// Then the per-request transaction (commits/rolls back around the handler)
	protected.Use(middlewares.Tx())

	// Services
	protected.Post("/service", controllers.CreateService)
	protected.Get("/services", controllers.GetServices)
	protected.Put("/service/:id", controllers.UpdateService)

	// Appointments
	protected.Post("/appointment", controllers.CreateAppointment)
	protected.Get("/appointments", controllers.GetAppointments)
	protected.Get("/appointment/:id", controllers.GetAppointment)
	protected.Put("/appointment/:id", controllers.UpdateAppointment)
	protected.Delete("/appointment/:id", controllers.CancelAppointment)

	// Payments
	protected.Post("/appointment/:id/payments", controllers.CreatePayment)
	protected.Get("/appointment/:id/payments", controllers.ListPayments)
}
