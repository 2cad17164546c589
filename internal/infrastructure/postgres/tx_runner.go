package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewTxRepos repos de facturación atados a q (pool o tx).
func NewTxRepos(q Querier) billing.TxRepos {
	return billing.TxRepos{
		Documents:  NewDocumentRepository(q),
		Categories: NewInventoryCategoryRepository(q),
		Movements:  NewStockMovementRepository(q),
		Accounts:   NewAccountRepository(q),
		Ledger:     NewLedgerTransactionRepository(q),
		Parties:    NewPartyRepository(q),
		Audit:      NewAuditLogRepository(q),
	}
}

// RunBilling inicia una transacción, ejecuta fn con los repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos billing.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewTxRepos(tx)); err != nil {
		if isLockConflict(err) {
			return fmt.Errorf("%v: %w", err, domain.ErrConflict)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyCommitError(err)
	}
	return nil
}

// classifyCommitError distingue un commit rechazado (nada aplicado) de uno con resultado
// desconocido: si la conexión se cae después de enviar COMMIT no hay forma de saber si se aplicó.
func classifyCommitError(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr), errors.Is(err, pgx.ErrTxCommitRollback), pgconn.SafeToRetry(err):
		return fmt.Errorf("commit transaction: %w", err)
	}
	return fmt.Errorf("commit transaction: %v: %w", err, domain.ErrNeedsReconciliation)
}
