package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// docErr envuelve un error de dominio con el tipo e id del documento ("factura 123: ...").
func docErr(kind entity.DocumentKind, id string, err error) error {
	return fmt.Errorf("%s %s: %w", kind.Label(), id, err)
}

func lockKey(kind entity.DocumentKind, id string) string {
	return fmt.Sprintf("lock:%s:%s", kind, id)
}

func checkKind(kind entity.DocumentKind) error {
	if !kind.Valid() {
		return domain.NewValidationError("kind", fmt.Sprintf("tipo de documento desconocido %q", kind))
	}
	return nil
}

// loadForUpdate bloquea el documento; inexistente o eliminado = ErrNotFound.
func loadForUpdate(ctx context.Context, r TxRepos, kind entity.DocumentKind, id string) (*entity.Document, error) {
	doc, err := r.Documents.GetForUpdate(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.IsDeleted {
		return nil, docErr(kind, id, domain.ErrNotFound)
	}
	return doc, nil
}

// ledgeredAmount suma las transacciones vigentes que referencian al documento.
func ledgeredAmount(ctx context.Context, r TxRepos, doc *entity.Document) (decimal.Decimal, error) {
	txns, err := r.Ledger.ListByReference(ctx, doc.ReferenceType(), doc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range txns {
		if !t.IsDeleted {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// applyDefaultVAT fija el IVA configurado en las líneas que no lo traen.
func applyDefaultVAT(p *entity.Pricing, vat decimal.NullDecimal) {
	if !vat.Valid {
		return
	}
	for i := range p.Items {
		if !p.Items[i].VATPercent.Valid {
			p.Items[i].VATPercent = vat
		}
	}
}

// partyTypeFor tipo de tercero esperado por cada documento.
func partyTypeFor(kind entity.DocumentKind) string {
	if kind == entity.KindPurchase {
		return entity.PartyVendor
	}
	return entity.PartyCustomer
}

// checkReferences valida tercero, categorías y cuenta de pago de un borrador.
func checkReferences(ctx context.Context, r TxRepos, kind entity.DocumentKind, doc *entity.Document) error {
	party, err := r.Parties.GetByID(ctx, doc.PartyID)
	if err != nil {
		return err
	}
	if party == nil || party.IsDeleted {
		return domain.NewValidationError("party_id", "no existe")
	}
	if party.Type != partyTypeFor(kind) {
		return domain.NewValidationError("party_id", fmt.Sprintf("debe ser de tipo %s", partyTypeFor(kind)))
	}

	seen := make(map[string]bool)
	for i, it := range doc.Items {
		if it.CategoryID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].category_id", i), "es obligatorio")
		}
		if seen[it.CategoryID] {
			continue
		}
		cat, err := r.Categories.GetByID(ctx, it.CategoryID)
		if err != nil {
			return err
		}
		if cat == nil || cat.IsDeleted {
			return domain.NewValidationError(fmt.Sprintf("items[%d].category_id", i), "no existe")
		}
		seen[it.CategoryID] = true
	}

	if doc.PaymentAccountID != "" {
		acc, err := r.Accounts.GetByID(ctx, doc.PaymentAccountID)
		if err != nil {
			return err
		}
		if acc == nil || acc.IsDeleted {
			return domain.NewValidationError("payment_account_id", "no existe")
		}
	}
	return nil
}
