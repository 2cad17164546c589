package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

// errorMapping el orden importa: los sentinels específicos antes que ErrInvalidInput.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNeedsReconciliation, fiber.StatusInternalServerError, "NEEDS_RECONCILIATION"},
	{domain.ErrFinalizedImmutable, fiber.StatusConflict, "FINALIZED_IMMUTABLE"},
	{domain.ErrAlreadyFinalized, fiber.StatusConflict, "ALREADY_FINALIZED"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrOverpayment, fiber.StatusBadRequest, "OVERPAYMENT"},
	{domain.ErrConsistency, fiber.StatusUnprocessableEntity, "CONSISTENCY"},
	{domain.ErrLockNotObtained, fiber.StatusLocked, "LOCKED"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
}

// respondError traduce un error de dominio a status + dto.ErrorResponse.
// El mensaje describe la precondición que falló; los 500 se registran en el log.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: ve.Error(), Fields: ve.Fields})
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Str("code", m.code).Msg("error en la petición")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
