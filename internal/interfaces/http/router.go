package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/pkg/jwt"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents *billing.DocumentUseCase
	Finalize  *billing.FinalizeUseCase
	Payments  *billing.PaymentUseCase
	JWTSecret string
	// Store "postgres" | "memory", se informa en /health.
	Store string
	Log   *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok", Store: deps.Store})
	})

	// Rutas protegidas (requieren Bearer Token)
	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	invoices := NewDocumentHandler(entity.KindInvoice, deps.Documents, deps.Finalize, deps.Payments, deps.Log)
	purchases := NewDocumentHandler(entity.KindPurchase, deps.Documents, deps.Finalize, deps.Payments, deps.Log)

	// /calculate antes de /:id
	protected.Post("/invoices/calculate", RequireRole(jwt.RoleAdmin, jwt.RoleManager, jwt.RoleStaff), invoices.Calculate)

	registerDocumentRoutes(protected.Group("/invoices"), invoices)
	registerDocumentRoutes(protected.Group("/purchases"), purchases)
}

func registerDocumentRoutes(g fiber.Router, h *DocumentHandler) {
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleManager, jwt.RoleStaff)
	managers := RequireRole(jwt.RoleAdmin, jwt.RoleManager)

	g.Post("/", anyRole, h.Create)
	g.Get("/:id", anyRole, h.GetByID)
	g.Put("/:id", anyRole, h.Update)
	g.Delete("/:id", anyRole, h.Delete)
	g.Post("/:id/finalize", managers, h.Finalize)
	g.Post("/:id/payments", managers, h.AddPayment)
}
