// Package memory implementa los puertos de facturación en memoria para desarrollo y pruebas.
// Cada RunBilling toma un mutex global (equivale a bloquear todas las filas) y trabaja sobre
// el estado vivo; si fn falla se restaura la instantánea previa.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
)

var _ billing.BillingTxRunner = (*Store)(nil)

type docKey struct {
	kind entity.DocumentKind
	id   string
}

type state struct {
	documents  map[docKey]entity.Document
	categories map[string]entity.InventoryCategory
	movements  []entity.StockMovement
	accounts   map[string]entity.Account
	ledger     []entity.LedgerTransaction
	parties    map[string]entity.Party
	audit      []entity.AuditLog
}

func newState() *state {
	return &state{
		documents:  make(map[docKey]entity.Document),
		categories: make(map[string]entity.InventoryCategory),
		accounts:   make(map[string]entity.Account),
		parties:    make(map[string]entity.Party),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.documents {
		c.documents[k] = cloneDocument(v)
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.parties {
		c.parties[k] = v
	}
	c.movements = append([]entity.StockMovement(nil), s.movements...)
	c.ledger = append([]entity.LedgerTransaction(nil), s.ledger...)
	c.audit = append([]entity.AuditLog(nil), s.audit...)
	return c
}

func cloneDocument(d entity.Document) entity.Document {
	d.Items = append([]entity.LineItem(nil), d.Items...)
	if d.FinalizedAt != nil {
		t := *d.FinalizedAt
		d.FinalizedAt = &t
	}
	return d
}

// Store almacén en memoria; implementa billing.BillingTxRunner.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
	// commitErr simula un commit con resultado incierto: los cambios quedan aplicados
	// pero RunBilling devuelve domain.ErrNeedsReconciliation.
	commitErr error
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{data: newState(), faults: make(map[string]error)}
}

// RunBilling ejecuta fn en exclusión mutua; si fn falla, se descartan sus cambios.
func (s *Store) RunBilling(ctx context.Context, fn func(repos billing.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	repos := billing.TxRepos{
		Documents:  &documentRepo{s: s},
		Categories: &categoryRepo{s: s},
		Movements:  &movementRepo{s: s},
		Accounts:   &accountRepo{s: s},
		Ledger:     &ledgerRepo{s: s},
		Parties:    &partyRepo{s: s},
		Audit:      &auditRepo{s: s},
	}
	if err := fn(repos); err != nil {
		s.data = snapshot
		return err
	}
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return fmt.Errorf("commit transaction: %v: %w", err, domain.ErrNeedsReconciliation)
	}
	return nil
}

// FailOn hace que la operación op (p. ej. "movements.create") devuelva err hasta ClearFaults.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// FailNextCommit simula un commit con resultado desconocido en la próxima transacción exitosa.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// ClearFaults elimina los fallos inyectados.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]error)
	s.commitErr = nil
}

// fault se llama con mu tomado.
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga inicial y lectura para pruebas / modo desarrollo
// ──────────────────────────────────────────────────────────────────────────────

// SeedParty registra un cliente o proveedor.
func (s *Store) SeedParty(p entity.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.parties[p.ID] = p
}

// SeedCategory registra una categoría de inventario.
func (s *Store) SeedCategory(c entity.InventoryCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.categories[c.ID] = c
}

// SeedAccount registra una cuenta de caja/banco.
func (s *Store) SeedAccount(a entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.accounts[a.ID] = a
}

// Document devuelve una copia del documento o nil.
func (s *Store) Document(kind entity.DocumentKind, id string) *entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.documents[docKey{kind, id}]
	if !ok {
		return nil
	}
	c := cloneDocument(d)
	return &c
}

// Category devuelve una copia de la categoría o nil.
func (s *Store) Category(id string) *entity.InventoryCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.categories[id]
	if !ok {
		return nil
	}
	return &c
}

// Account devuelve una copia de la cuenta o nil.
func (s *Store) Account(id string) *entity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.accounts[id]
	if !ok {
		return nil
	}
	return &a
}

// Movements todos los movimientos de stock.
func (s *Store) Movements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockMovement(nil), s.data.movements...)
}

// Transactions todas las transacciones de caja.
func (s *Store) Transactions() []entity.LedgerTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.LedgerTransaction(nil), s.data.ledger...)
}

// AuditLogs toda la bitácora.
func (s *Store) AuditLogs() []entity.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditLog(nil), s.data.audit...)
}
