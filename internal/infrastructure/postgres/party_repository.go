package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/repository"
)

var (
	_ repository.PartyRepository    = (*PartyRepo)(nil)
	_ repository.AuditLogRepository = (*AuditLogRepo)(nil)
)

// PartyRepo clientes y proveedores.
type PartyRepo struct {
	q Querier
}

// NewPartyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPartyRepository(q Querier) *PartyRepo {
	return &PartyRepo{q: q}
}

// Create persiste un tercero.
func (r *PartyRepo) Create(ctx context.Context, p *entity.Party) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.q.Exec(ctx, `
		INSERT INTO parties (id, name, type, phone, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Type, nullIfEmpty(p.Phone), p.IsDeleted, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}

// GetByID obtiene un tercero; nil si no existe.
func (r *PartyRepo) GetByID(ctx context.Context, id string) (*entity.Party, error) {
	var p entity.Party
	var phone *string
	err := r.q.QueryRow(ctx, `
		SELECT id, name, type, phone, is_deleted, created_at, updated_at
		FROM parties WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Type, &phone, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	p.Phone = derefStr(phone)
	return &p, nil
}

// AuditLogRepo bitácora de solo-anexar.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta una entrada; nunca se actualiza ni se borra.
func (r *AuditLogRepo) Append(ctx context.Context, e *entity.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var details any
	if len(e.Details) > 0 {
		details = e.Details
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Action, e.EntityType, e.EntityID, nullIfEmpty(e.Actor), details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByEntity historial de una entidad, del más antiguo al más reciente.
func (r *AuditLogRepo) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, action, entity_type, entity_id, actor, details, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditLog
	for rows.Next() {
		var e entity.AuditLog
		var actor *string
		var details []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.Actor = derefStr(actor)
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
