package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.AccountRepository           = (*AccountRepo)(nil)
	_ repository.LedgerTransactionRepository = (*LedgerTransactionRepo)(nil)
)

const accountColumns = `id, name, type, balance, is_deleted, created_at, updated_at`

// AccountRepo cuentas de caja y banco.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// Create persiste una cuenta.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Type, a.Balance, a.IsDeleted, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID obtiene una cuenta; nil si no existe.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetForUpdate obtiene la cuenta y bloquea la fila (SELECT FOR UPDATE).
func (r *AccountRepo) GetForUpdate(ctx context.Context, id string) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *AccountRepo) get(ctx context.Context, query, id string) (*entity.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ApplyDelta suma delta (con signo) al saldo y devuelve la cuenta actualizada.
func (r *AccountRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*entity.Account, error) {
	query := `
		UPDATE accounts SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING ` + accountColumns
	a, err := scanAccount(r.q.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cuenta %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("apply account delta: %w", err)
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var a entity.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

const ledgerColumns = `id, account_id, party_id, type, amount, mode, reference_type, reference_id,
	idempotency_key, notes, is_deleted, created_at, created_by`

// LedgerTransactionRepo transacciones de dinero (solo-anexar).
type LedgerTransactionRepo struct {
	q Querier
}

// NewLedgerTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerTransactionRepository(q Querier) *LedgerTransactionRepo {
	return &LedgerTransactionRepo{q: q}
}

// Create persiste la transacción; una clave de idempotencia repetida devuelve ErrConflict.
func (r *LedgerTransactionRepo) Create(ctx context.Context, t *entity.LedgerTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_transactions (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.AccountID, nullIfEmpty(t.PartyID), string(t.Type), t.Amount, nullIfEmpty(t.Mode),
		t.ReferenceType, t.ReferenceID, t.IdempotencyKey, nullIfEmpty(t.Notes),
		t.IsDeleted, t.CreatedAt, nullIfEmpty(t.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clave %s ya existe: %w", t.IdempotencyKey, domain.ErrConflict)
		}
		return fmt.Errorf("insert ledger transaction: %w", err)
	}
	return nil
}

// GetByIdempotencyKey nil si la clave no existe.
func (r *LedgerTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerTransaction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+ledgerColumns+` FROM ledger_transactions WHERE idempotency_key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("get ledger transaction: %w", err)
	}
	list, err := scanLedger(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListByReference transacciones de un documento en orden de creación.
func (r *LedgerTransactionRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.LedgerTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_transactions
		WHERE reference_type = $1 AND reference_id = $2 AND NOT is_deleted
		ORDER BY created_at, id`, referenceType, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list ledger transactions: %w", err)
	}
	return scanLedger(rows)
}

func scanLedger(rows pgx.Rows) ([]*entity.LedgerTransaction, error) {
	defer rows.Close()
	var list []*entity.LedgerTransaction
	for rows.Next() {
		var t entity.LedgerTransaction
		var txType string
		var partyID, mode, notes, createdBy *string
		if err := rows.Scan(
			&t.ID, &t.AccountID, &partyID, &txType, &t.Amount, &mode,
			&t.ReferenceType, &t.ReferenceID, &t.IdempotencyKey, &notes,
			&t.IsDeleted, &t.CreatedAt, &createdBy,
		); err != nil {
			return nil, fmt.Errorf("scan ledger transaction: %w", err)
		}
		t.Type = entity.TransactionType(txType)
		t.PartyID, t.Mode, t.Notes, t.CreatedBy = derefStr(partyID), derefStr(mode), derefStr(notes), derefStr(createdBy)
		list = append(list, &t)
	}
	return list, rows.Err()
}
