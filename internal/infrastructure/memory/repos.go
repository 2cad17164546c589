package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Los repos solo se usan dentro de RunBilling, con Store.mu tomado.

var (
	_ repository.DocumentRepository          = (*documentRepo)(nil)
	_ repository.InventoryCategoryRepository = (*categoryRepo)(nil)
	_ repository.StockMovementRepository     = (*movementRepo)(nil)
	_ repository.AccountRepository           = (*accountRepo)(nil)
	_ repository.LedgerTransactionRepository = (*ledgerRepo)(nil)
	_ repository.PartyRepository             = (*partyRepo)(nil)
	_ repository.AuditLogRepository          = (*auditRepo)(nil)
)

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	if err := r.s.fault("documents.create"); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	for i := range doc.Items {
		if doc.Items[i].ID == "" {
			doc.Items[i].ID = uuid.New().String()
		}
		doc.Items[i].DocumentID = doc.ID
	}
	k := docKey{doc.Kind, doc.ID}
	if _, ok := r.s.data.documents[k]; ok {
		return fmt.Errorf("%s %s ya existe: %w", doc.Kind.Label(), doc.ID, domain.ErrConflict)
	}
	for _, d := range r.s.data.documents {
		if d.Kind == doc.Kind && d.Number == doc.Number {
			return fmt.Errorf("número %s ya existe: %w", doc.Number, domain.ErrConflict)
		}
	}
	r.s.data.documents[k] = cloneDocument(*doc)
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, kind entity.DocumentKind, id string) (*entity.Document, error) {
	if err := r.s.fault("documents.get"); err != nil {
		return nil, err
	}
	d, ok := r.s.data.documents[docKey{kind, id}]
	if !ok {
		return nil, nil
	}
	c := cloneDocument(d)
	return &c, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, kind entity.DocumentKind, id string) (*entity.Document, error) {
	return r.GetByID(ctx, kind, id)
}

func (r *documentRepo) ReplaceDraft(_ context.Context, doc *entity.Document) (bool, error) {
	if err := r.s.fault("documents.replace"); err != nil {
		return false, err
	}
	k := docKey{doc.Kind, doc.ID}
	cur, ok := r.s.data.documents[k]
	if !ok || cur.IsDeleted || cur.Status != entity.StatusDraft {
		return false, nil
	}
	for i := range doc.Items {
		if doc.Items[i].ID == "" {
			doc.Items[i].ID = uuid.New().String()
		}
		doc.Items[i].DocumentID = doc.ID
	}
	next := cloneDocument(*doc)
	next.Status = entity.StatusDraft
	next.CreatedAt, next.CreatedBy, next.Number = cur.CreatedAt, cur.CreatedBy, cur.Number
	r.s.data.documents[k] = next
	return true, nil
}

func (r *documentRepo) MarkFinalized(_ context.Context, doc *entity.Document) (bool, error) {
	if err := r.s.fault("documents.finalize"); err != nil {
		return false, err
	}
	k := docKey{doc.Kind, doc.ID}
	cur, ok := r.s.data.documents[k]
	if !ok || cur.IsDeleted || cur.Status != entity.StatusDraft {
		return false, nil
	}
	cur.Calculation = doc.Calculation
	cur.Items = append([]entity.LineItem(nil), doc.Items...)
	cur.Status = entity.StatusFinalized
	at := *doc.FinalizedAt
	cur.FinalizedAt = &at
	cur.FinalizedBy = doc.FinalizedBy
	cur.UpdatedAt = doc.UpdatedAt
	r.s.data.documents[k] = cur
	return true, nil
}

func (r *documentRepo) UpdatePayment(_ context.Context, kind entity.DocumentKind, id string, paid decimal.Decimal, summary entity.PaymentSummary) error {
	if err := r.s.fault("documents.payment"); err != nil {
		return err
	}
	k := docKey{kind, id}
	cur, ok := r.s.data.documents[k]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind.Label(), id, domain.ErrNotFound)
	}
	cur.PaidAmount = paid
	cur.Payment = summary
	r.s.data.documents[k] = cur
	return nil
}

func (r *documentRepo) SoftDeleteDraft(_ context.Context, kind entity.DocumentKind, id string) (bool, error) {
	if err := r.s.fault("documents.delete"); err != nil {
		return false, err
	}
	k := docKey{kind, id}
	cur, ok := r.s.data.documents[k]
	if !ok || cur.IsDeleted || cur.Status != entity.StatusDraft {
		return false, nil
	}
	cur.IsDeleted = true
	r.s.data.documents[k] = cur
	return true, nil
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, cat *entity.InventoryCategory) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	r.s.data.categories[cat.ID] = *cat
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*entity.InventoryCategory, error) {
	if err := r.s.fault("categories.get"); err != nil {
		return nil, err
	}
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *categoryRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryCategory, error) {
	return r.GetByID(ctx, id)
}

func (r *categoryRepo) ApplyDelta(_ context.Context, id string, qtyDelta int, weightDelta decimal.Decimal) (*entity.InventoryCategory, error) {
	if err := r.s.fault("categories.apply"); err != nil {
		return nil, err
	}
	c, ok := r.s.data.categories[id]
	if !ok || c.IsDeleted {
		return nil, fmt.Errorf("categoría %s: %w", id, domain.ErrNotFound)
	}
	c.Quantity += qtyDelta
	c.Weight = c.Weight.Add(weightDelta)
	r.s.data.categories[id] = c
	return &c, nil
}

func (r *categoryRepo) UpdateAverageCost(_ context.Context, id string, costPerGram decimal.Decimal) error {
	c, ok := r.s.data.categories[id]
	if !ok {
		return fmt.Errorf("categoría %s: %w", id, domain.ErrNotFound)
	}
	c.AvgCostPerGram = costPerGram
	r.s.data.categories[id] = c
	return nil
}

type movementRepo struct{ s *Store }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if err := r.s.fault("movements.create"); err != nil {
		return err
	}
	for _, cur := range r.s.data.movements {
		if !cur.IsDeleted && cur.ReferenceType == m.ReferenceType && cur.ReferenceID == m.ReferenceID && cur.LineNo == m.LineNo {
			return fmt.Errorf("movimiento %s/%s/%d ya existe: %w", m.ReferenceType, m.ReferenceID, m.LineNo, domain.ErrConflict)
		}
	}
	r.s.data.movements = append(r.s.data.movements, *m)
	return nil
}

func (r *movementRepo) ExistsByReference(_ context.Context, referenceType, referenceID string, lineNo int) (bool, error) {
	for _, cur := range r.s.data.movements {
		if !cur.IsDeleted && cur.ReferenceType == referenceType && cur.ReferenceID == referenceID && cur.LineNo == lineNo {
			return true, nil
		}
	}
	return false, nil
}

func (r *movementRepo) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, cur := range r.s.data.movements {
		if !cur.IsDeleted && cur.ReferenceType == referenceType && cur.ReferenceID == referenceID {
			m := cur
			out = append(out, &m)
		}
	}
	return out, nil
}

type accountRepo struct{ s *Store }

func (r *accountRepo) Create(_ context.Context, a *entity.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	r.s.data.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id string) (*entity.Account, error) {
	if err := r.s.fault("accounts.get"); err != nil {
		return nil, err
	}
	a, ok := r.s.data.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, id string) (*entity.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepo) ApplyDelta(_ context.Context, id string, delta decimal.Decimal) (*entity.Account, error) {
	if err := r.s.fault("accounts.apply"); err != nil {
		return nil, err
	}
	a, ok := r.s.data.accounts[id]
	if !ok || a.IsDeleted {
		return nil, fmt.Errorf("cuenta %s: %w", id, domain.ErrNotFound)
	}
	a.Balance = a.Balance.Add(delta)
	r.s.data.accounts[id] = a
	return &a, nil
}

type ledgerRepo struct{ s *Store }

func (r *ledgerRepo) Create(_ context.Context, t *entity.LedgerTransaction) error {
	if err := r.s.fault("ledger.create"); err != nil {
		return err
	}
	for _, cur := range r.s.data.ledger {
		if cur.IdempotencyKey == t.IdempotencyKey {
			return fmt.Errorf("clave %s ya existe: %w", t.IdempotencyKey, domain.ErrConflict)
		}
	}
	r.s.data.ledger = append(r.s.data.ledger, *t)
	return nil
}

func (r *ledgerRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.LedgerTransaction, error) {
	for _, cur := range r.s.data.ledger {
		if cur.IdempotencyKey == key {
			t := cur
			return &t, nil
		}
	}
	return nil, nil
}

func (r *ledgerRepo) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.LedgerTransaction, error) {
	var out []*entity.LedgerTransaction
	for _, cur := range r.s.data.ledger {
		if !cur.IsDeleted && cur.ReferenceType == referenceType && cur.ReferenceID == referenceID {
			t := cur
			out = append(out, &t)
		}
	}
	return out, nil
}

type partyRepo struct{ s *Store }

func (r *partyRepo) Create(_ context.Context, p *entity.Party) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	r.s.data.parties[p.ID] = *p
	return nil
}

func (r *partyRepo) GetByID(_ context.Context, id string) (*entity.Party, error) {
	p, ok := r.s.data.parties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Append(_ context.Context, e *entity.AuditLog) error {
	if err := r.s.fault("audit.append"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	r.s.data.audit = append(r.s.data.audit, *e)
	return nil
}

func (r *auditRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]*entity.AuditLog, error) {
	var out []*entity.AuditLog
	for _, cur := range r.s.data.audit {
		if cur.EntityType == entityType && cur.EntityID == entityID {
			e := cur
			out = append(out, &e)
		}
	}
	return out, nil
}
