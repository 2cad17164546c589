package billing

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-erp/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Documents  repository.DocumentRepository
	Categories repository.InventoryCategoryRepository
	Movements  repository.StockMovementRepository
	Accounts   repository.AccountRepository
	Ledger     repository.LedgerTransactionRepository
	Parties    repository.PartyRepository
	Audit      repository.AuditLogRepository
}

// BillingTxRunner ejecuta fn dentro de una transacción; si fn devuelve error no queda ningún cambio.
// Si el commit falla con resultado desconocido devuelve domain.ErrNeedsReconciliation.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(repos TxRepos) error) error
}

// RecordLocker serializa operaciones sobre un mismo documento entre procesos.
// El bloqueo de fila dentro de la transacción sigue siendo la garantía final.
type RecordLocker interface {
	Lock(ctx context.Context, key string) (release func(context.Context), err error)
}

// Tipos de evento publicados tras un commit.
const (
	EventInvoiceFinalized  = "invoice.finalized"
	EventPurchaseFinalized = "purchase.finalized"
	EventPaymentAdded      = "payment.added"
)

// Event notificación de un cambio ya confirmado.
type Event struct {
	Type          string          `json:"type"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Number        string          `json:"number,omitempty"`
	Actor         string          `json:"actor"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EventPublisher publica eventos; un fallo nunca deshace la operación.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Clock permite fijar la hora en pruebas.
type Clock func() time.Time
