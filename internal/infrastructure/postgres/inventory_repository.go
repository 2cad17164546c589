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
	_ repository.InventoryCategoryRepository = (*InventoryCategoryRepo)(nil)
	_ repository.StockMovementRepository     = (*StockMovementRepo)(nil)
)

const categoryColumns = `id, name, purity, quantity, weight, avg_cost_per_gram, is_deleted, created_at, updated_at`

// InventoryCategoryRepo agregados de stock por categoría (usable con pool o tx).
type InventoryCategoryRepo struct {
	q Querier
}

// NewInventoryCategoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryCategoryRepository(q Querier) *InventoryCategoryRepo {
	return &InventoryCategoryRepo{q: q}
}

// Create persiste una categoría.
func (r *InventoryCategoryRepo) Create(ctx context.Context, cat *entity.InventoryCategory) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = now
	}
	cat.UpdatedAt = now
	query := `
		INSERT INTO inventory_categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		cat.ID, cat.Name, nullIfEmpty(cat.Purity), cat.Quantity, cat.Weight, cat.AvgCostPerGram,
		cat.IsDeleted, cat.CreatedAt, cat.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("categoría %s ya existe: %w", cat.Name, domain.ErrConflict)
		}
		return fmt.Errorf("insert inventory category: %w", err)
	}
	return nil
}

// GetByID obtiene una categoría; nil si no existe.
func (r *InventoryCategoryRepo) GetByID(ctx context.Context, id string) (*entity.InventoryCategory, error) {
	return r.get(ctx, `SELECT `+categoryColumns+` FROM inventory_categories WHERE id = $1`, id)
}

// GetForUpdate obtiene la categoría y bloquea la fila (SELECT FOR UPDATE).
func (r *InventoryCategoryRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryCategory, error) {
	return r.get(ctx, `SELECT `+categoryColumns+` FROM inventory_categories WHERE id = $1 FOR UPDATE`, id)
}

func (r *InventoryCategoryRepo) get(ctx context.Context, query, id string) (*entity.InventoryCategory, error) {
	c, err := scanCategory(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory category: %w", err)
	}
	return c, nil
}

// ApplyDelta suma cantidad y peso en la misma sentencia y devuelve la fila resultante.
func (r *InventoryCategoryRepo) ApplyDelta(ctx context.Context, id string, qtyDelta int, weightDelta decimal.Decimal) (*entity.InventoryCategory, error) {
	query := `
		UPDATE inventory_categories
		SET quantity = quantity + $2, weight = weight + $3, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING ` + categoryColumns
	c, err := scanCategory(r.q.QueryRow(ctx, query, id, qtyDelta, weightDelta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("categoría %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("apply stock delta: %w", err)
	}
	return c, nil
}

// UpdateAverageCost fija el costo promedio por gramo.
func (r *InventoryCategoryRepo) UpdateAverageCost(ctx context.Context, id string, costPerGram decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE inventory_categories SET avg_cost_per_gram = $2, updated_at = now() WHERE id = $1`, id, costPerGram)
	if err != nil {
		return fmt.Errorf("update average cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("categoría %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanCategory(row pgx.Row) (*entity.InventoryCategory, error) {
	var c entity.InventoryCategory
	var purity *string
	if err := row.Scan(&c.ID, &c.Name, &purity, &c.Quantity, &c.Weight, &c.AvgCostPerGram, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Purity = derefStr(purity)
	return &c, nil
}

const movementColumns = `id, category_id, type, qty_delta, weight_delta, purity, reference_type, reference_id, line_no,
	qty_after, weight_after, notes, is_deleted, created_at, created_by`

// StockMovementRepo movimientos de inventario (solo-anexar).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento. El índice único (reference_type, reference_id, line_no)
// impide duplicarlo; la violación se devuelve como ErrConflict.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.CategoryID, m.Type, m.QtyDelta, m.WeightDelta, nullIfEmpty(m.Purity),
		m.ReferenceType, m.ReferenceID, m.LineNo, m.QtyAfter, m.WeightAfter,
		nullIfEmpty(m.Notes), m.IsDeleted, m.CreatedAt, nullIfEmpty(m.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("movimiento %s/%s/%d ya existe: %w", m.ReferenceType, m.ReferenceID, m.LineNo, domain.ErrConflict)
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ExistsByReference indica si la línea ya tiene movimiento.
func (r *StockMovementRepo) ExistsByReference(ctx context.Context, referenceType, referenceID string, lineNo int) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_movements
			WHERE reference_type = $1 AND reference_id = $2 AND line_no = $3 AND NOT is_deleted
		)`, referenceType, referenceID, lineNo).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stock movement: %w", err)
	}
	return exists, nil
}

// ListByReference movimientos vigentes de un documento, por línea.
func (r *StockMovementRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE reference_type = $1 AND reference_id = $2 AND NOT is_deleted
		ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, referenceType, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var purity, notes, createdBy *string
		if err := rows.Scan(
			&m.ID, &m.CategoryID, &m.Type, &m.QtyDelta, &m.WeightDelta, &purity,
			&m.ReferenceType, &m.ReferenceID, &m.LineNo, &m.QtyAfter, &m.WeightAfter,
			&notes, &m.IsDeleted, &m.CreatedAt, &createdBy,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Purity, m.Notes, m.CreatedBy = derefStr(purity), derefStr(notes), derefStr(createdBy)
		list = append(list, &m)
	}
	return list, rows.Err()
}
