package repository

import (
	"context"

	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryCategoryRepository define el puerto de persistencia para categorías de inventario (DIP).
type InventoryCategoryRepository interface {
	Create(ctx context.Context, cat *entity.InventoryCategory) error
	GetByID(ctx context.Context, id string) (*entity.InventoryCategory, error)
	// GetForUpdate obtiene la categoría y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryCategory, error)
	// ApplyDelta suma qty/weight de forma atómica y devuelve la categoría resultante.
	ApplyDelta(ctx context.Context, id string, qtyDelta int, weightDelta decimal.Decimal) (*entity.InventoryCategory, error)
	UpdateAverageCost(ctx context.Context, id string, costPerGram decimal.Decimal) error
}

// StockMovementRepository define el puerto de persistencia para movimientos de stock.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// ExistsByReference permite reintentar una finalización sin duplicar movimientos.
	ExistsByReference(ctx context.Context, referenceType, referenceID string, lineNo int) (bool, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error)
}
