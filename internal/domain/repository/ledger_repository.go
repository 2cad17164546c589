package repository

import (
	"context"

	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AccountRepository define el puerto de persistencia para cuentas de caja/banco.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Account, error)
	// ApplyDelta suma delta al saldo de forma atómica.
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*entity.Account, error)
}

// LedgerTransactionRepository define el puerto de persistencia para transacciones de dinero.
type LedgerTransactionRepository interface {
	// Create falla con domain.ErrConflict si la clave de idempotencia ya existe.
	Create(ctx context.Context, txn *entity.LedgerTransaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerTransaction, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.LedgerTransaction, error)
}

// PartyRepository define el puerto de lectura de clientes y proveedores.
type PartyRepository interface {
	Create(ctx context.Context, party *entity.Party) error
	GetByID(ctx context.Context, id string) (*entity.Party, error)
}

// AuditLogRepository bitácora de solo-anexar.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *entity.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditLog, error)
}
