package repository

import (
	"context"

	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DocumentRepository define el puerto de persistencia para facturas y compras (cabecera + líneas).
// Los métodos reciben el Kind porque cada tipo vive en sus propias tablas.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, kind entity.DocumentKind, id string) (*entity.Document, error)
	// GetForUpdate como GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, kind entity.DocumentKind, id string) (*entity.Document, error)
	// ReplaceDraft reescribe cabecera y líneas solo si el documento sigue en draft.
	// Devuelve false si no se actualizó ninguna fila.
	ReplaceDraft(ctx context.Context, doc *entity.Document) (bool, error)
	// MarkFinalized hace el compare-and-set draft → finalized y guarda los totales recalculados.
	// Devuelve false si otro proceso lo finalizó primero.
	MarkFinalized(ctx context.Context, doc *entity.Document) (bool, error)
	// UpdatePayment actualiza únicamente paid_amount y el resumen de pago.
	UpdatePayment(ctx context.Context, kind entity.DocumentKind, id string, paid decimal.Decimal, summary entity.PaymentSummary) error
	// SoftDeleteDraft marca is_deleted solo si el documento sigue en draft.
	SoftDeleteDraft(ctx context.Context, kind entity.DocumentKind, id string) (bool, error)
}
