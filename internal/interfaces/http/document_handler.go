package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

// DocumentHandler maneja facturas o compras según kind (protegido).
type DocumentHandler struct {
	kind     entity.DocumentKind
	docs     *billing.DocumentUseCase
	finalize *billing.FinalizeUseCase
	payments *billing.PaymentUseCase
	log      *logger.Logger
}

// NewDocumentHandler construye el handler para un tipo de documento.
func NewDocumentHandler(kind entity.DocumentKind, docs *billing.DocumentUseCase, finalize *billing.FinalizeUseCase, payments *billing.PaymentUseCase, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{kind: kind, docs: docs, finalize: finalize, payments: payments, log: log}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// Calculate vista previa sin persistir.
// POST /api/invoices/calculate
func (h *DocumentHandler) Calculate(c *fiber.Ctx) error {
	var in dto.PricingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.docs.Calculate(in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Create crea un borrador.
// POST /api/{invoices|purchases}
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	if h.actorMissing(c) {
		return nil
	}
	var in dto.DocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.docs.CreateDraft(c.UserContext(), h.kind, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID detalle del documento.
// GET /api/{invoices|purchases}/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.docs.Get(c.UserContext(), h.kind, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update reemplaza un borrador.
// PUT /api/{invoices|purchases}/:id
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	if h.actorMissing(c) {
		return nil
	}
	var in dto.DocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.docs.UpdateDraft(c.UserContext(), h.kind, c.Params("id"), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete elimina un borrador.
// DELETE /api/{invoices|purchases}/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if h.actorMissing(c) {
		return nil
	}
	if err := h.docs.DeleteDraft(c.UserContext(), h.kind, c.Params("id"), GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Finalize draft → finalized con inventario y caja.
// POST /api/{invoices|purchases}/:id/finalize
func (h *DocumentHandler) Finalize(c *fiber.Ctx) error {
	if h.actorMissing(c) {
		return nil
	}
	var (
		out *dto.FinalizeResponse
		err error
	)
	if h.kind == entity.KindPurchase {
		out, err = h.finalize.FinalizePurchase(c.UserContext(), c.Params("id"), GetUserID(c))
	} else {
		out, err = h.finalize.FinalizeInvoice(c.UserContext(), c.Params("id"), GetUserID(c))
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// AddPayment registra un cobro o pago. La clave de idempotencia puede venir en el header.
// POST /api/{invoices|purchases}/:id/payments
func (h *DocumentHandler) AddPayment(c *fiber.Ctx) error {
	if h.actorMissing(c) {
		return nil
	}
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = c.Get("Idempotency-Key")
	}
	var (
		out *dto.PaymentResponse
		err error
	)
	if h.kind == entity.KindPurchase {
		out, err = h.payments.AddPurchasePayment(c.UserContext(), c.Params("id"), GetUserID(c), in)
	} else {
		out, err = h.payments.AddInvoicePayment(c.UserContext(), c.Params("id"), GetUserID(c), in)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	if out.Replayed {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// actorMissing responde 401 si el token no trae usuario; true = ya se respondió.
func (h *DocumentHandler) actorMissing(c *fiber.Ctx) bool {
	if GetUserID(c) != "" {
		return false
	}
	_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	return true
}
