package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// Errores de la máquina de estados borrador → finalizado.
var (
	ErrAlreadyFinalized   = errors.New("el documento ya está finalizado")
	ErrFinalizedImmutable = errors.New("no se puede editar ni eliminar un documento finalizado")
	ErrConsistency        = errors.New("los totales almacenados no coinciden con los recalculados")
	ErrOverpayment        = errors.New("el pago excede el saldo pendiente")
	ErrLockNotObtained    = errors.New("el documento está siendo procesado por otra operación")

	// ErrNeedsReconciliation indica que el resultado del commit es desconocido:
	// los cambios pudieron aplicarse o no y se requiere conciliación manual.
	ErrNeedsReconciliation = errors.New("resultado incierto, requiere conciliación manual")
)

// ValidationError describe qué campo falló la validación y por qué.
// Envuelve ErrInvalidInput para que errors.Is siga funcionando.
type ValidationError struct {
	Field  string
	Reason string
	// Fields todos los campos inválidos cuando hay más de uno (campo → motivo).
	Fields map[string]string
}

// NewValidationError construye un error de validación para un campo.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AddField registra otro campo inválido.
func (e *ValidationError) AddField(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = reason
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
