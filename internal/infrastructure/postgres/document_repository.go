package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// Facturas y compras viven en tablas separadas con el mismo esquema.
type docTables struct {
	header string
	items  string
}

func tablesFor(kind entity.DocumentKind) (docTables, error) {
	switch kind {
	case entity.KindInvoice:
		return docTables{header: "invoices", items: "invoice_items"}, nil
	case entity.KindPurchase:
		return docTables{header: "purchases", items: "purchase_items"}, nil
	}
	return docTables{}, fmt.Errorf("tipo de documento %q: %w", kind, domain.ErrInvalidInput)
}

// pricingColumns columnas que cambian mientras el documento es borrador (y al finalizar).
var pricingColumns = []string{
	"party_id", "date", "notes", "payment_account_id",
	"discount_amount", "tax_type", "gst_percent", "paid_amount",
	"metal_total", "making_total", "stone_total", "wastage_total", "item_discounts_total",
	"subtotal", "after_invoice_discount", "vat_total", "grand_total",
	"total_weight", "total_gross_weight", "total_stone_weight", "total_net_gold_weight",
	"total_items", "total_quantity",
	"balance_due", "payment_status",
	"tax_gst_percent", "cgst_percent", "sgst_percent", "igst_percent", "cgst_total", "sgst_total", "igst_total",
	"updated_at",
}

func pricingArgs(doc *entity.Document) []any {
	t, p, tax := doc.Totals, doc.Payment, doc.Tax
	return []any{
		doc.PartyID, doc.Date, nullIfEmpty(doc.Notes), nullIfEmpty(doc.PaymentAccountID),
		doc.DiscountAmount, string(tax.TaxType), doc.GSTPercent, doc.PaidAmount,
		t.MetalTotal, t.MakingTotal, t.StoneTotal, t.WastageTotal, t.ItemDiscountsTotal,
		t.Subtotal, t.AfterInvoiceDiscount, t.VATTotal, t.GrandTotal,
		t.TotalWeight, t.TotalGrossWeight, t.TotalStoneWeight, t.TotalNetGoldWeight,
		t.TotalItems, t.TotalQuantity,
		p.BalanceDue, string(p.PaymentStatus),
		tax.GSTPercent, tax.CGSTPercent, tax.SGSTPercent, tax.IGSTPercent, tax.CGSTTotal, tax.SGSTTotal, tax.IGSTTotal,
		doc.UpdatedAt,
	}
}

var itemColumns = []string{
	"id", "document_id", "line_no", "category_id", "description", "purity", "quantity",
	"weight", "gross_weight", "stone_weight", "net_gold_weight",
	"metal_rate", "making_value", "stone_charges", "wastage_charges", "item_discount", "vat_percent",
	"gold_value", "subtotal_before_vat", "vat_amount", "line_total",
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func setClause(cols []string, from int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", c, from+i)
	}
	return strings.Join(parts, ",\n\t\t    ")
}

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste cabecera y líneas.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	t, err := tablesFor(doc.Kind)
	if err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	cols := append([]string{"id", "number", "status", "finalized_at", "finalized_by", "is_deleted", "created_at", "created_by"}, pricingColumns...)
	args := append([]any{doc.ID, doc.Number, string(doc.Status), doc.FinalizedAt, nullIfEmpty(doc.FinalizedBy), doc.IsDeleted, doc.CreatedAt, nullIfEmpty(doc.CreatedBy)}, pricingArgs(doc)...)
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t.header, strings.Join(cols, ", "), placeholders(1, len(cols)))
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número %s ya existe: %w", doc.Number, domain.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", t.header, err)
	}
	return r.insertItems(ctx, t, doc)
}

// GetByID obtiene el documento con sus líneas; nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, kind entity.DocumentKind, id string) (*entity.Document, error) {
	return r.get(ctx, kind, id, false)
}

// GetForUpdate igual que GetByID pero bloquea la cabecera (SELECT FOR UPDATE).
// Las líneas quedan protegidas por ese mismo bloqueo.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, kind entity.DocumentKind, id string) (*entity.Document, error) {
	return r.get(ctx, kind, id, true)
}

func (r *DocumentRepo) get(ctx context.Context, kind entity.DocumentKind, id string, forUpdate bool) (*entity.Document, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	cols := append([]string{"id", "number", "status", "finalized_at", "finalized_by", "is_deleted", "created_at", "created_by"}, pricingColumns...)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, strings.Join(cols, ", "), t.header)
	if forUpdate {
		query += " FOR UPDATE"
	}

	doc := entity.Document{Kind: kind}
	var (
		status, taxType, paymentStatus string
		finalizedBy, createdBy         *string
		notes, accountID               *string
	)
	tot, tax := &doc.Totals, &doc.Tax
	err = r.q.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Number, &status, &doc.FinalizedAt, &finalizedBy, &doc.IsDeleted, &doc.CreatedAt, &createdBy,
		&doc.PartyID, &doc.Date, &notes, &accountID,
		&doc.DiscountAmount, &taxType, &doc.GSTPercent, &doc.PaidAmount,
		&tot.MetalTotal, &tot.MakingTotal, &tot.StoneTotal, &tot.WastageTotal, &tot.ItemDiscountsTotal,
		&tot.Subtotal, &tot.AfterInvoiceDiscount, &tot.VATTotal, &tot.GrandTotal,
		&tot.TotalWeight, &tot.TotalGrossWeight, &tot.TotalStoneWeight, &tot.TotalNetGoldWeight,
		&tot.TotalItems, &tot.TotalQuantity,
		&doc.Payment.BalanceDue, &paymentStatus,
		&tax.GSTPercent, &tax.CGSTPercent, &tax.SGSTPercent, &tax.IGSTPercent, &tax.CGSTTotal, &tax.SGSTTotal, &tax.IGSTTotal,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", t.header, err)
	}
	doc.Status = entity.DocumentStatus(status)
	doc.FinalizedBy = derefStr(finalizedBy)
	doc.CreatedBy = derefStr(createdBy)
	doc.Notes = derefStr(notes)
	doc.PaymentAccountID = derefStr(accountID)
	doc.TaxType = entity.TaxType(taxType)
	tax.TaxType = doc.TaxType
	tot.DiscountAmount = doc.DiscountAmount
	doc.Payment.GrandTotal = tot.GrandTotal
	doc.Payment.PaidAmount = doc.PaidAmount
	doc.Payment.PaymentStatus = entity.PaymentStatus(paymentStatus)

	items, err := r.listItems(ctx, t, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return &doc, nil
}

// ReplaceDraft reescribe cabecera y líneas solo si sigue en borrador.
func (r *DocumentRepo) ReplaceDraft(ctx context.Context, doc *entity.Document) (bool, error) {
	t, err := tablesFor(doc.Kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $1 AND status = 'draft' AND NOT is_deleted`, t.header, setClause(pricingColumns, 2))
	tag, err := r.q.Exec(ctx, query, append([]any{doc.ID}, pricingArgs(doc)...)...)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", t.header, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := r.replaceItems(ctx, t, doc); err != nil {
		return false, err
	}
	return true, nil
}

// MarkFinalized compare-and-set draft → finalized; guarda los totales recalculados.
func (r *DocumentRepo) MarkFinalized(ctx context.Context, doc *entity.Document) (bool, error) {
	t, err := tablesFor(doc.Kind)
	if err != nil {
		return false, err
	}
	n := len(pricingColumns)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s,
		    status = 'finalized',
		    finalized_at = $%d,
		    finalized_by = $%d
		WHERE id = $1 AND status = 'draft' AND NOT is_deleted`, t.header, setClause(pricingColumns, 2), n+2, n+3)
	args := append([]any{doc.ID}, pricingArgs(doc)...)
	args = append(args, doc.FinalizedAt, nullIfEmpty(doc.FinalizedBy))
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("finalize %s: %w", t.header, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := r.replaceItems(ctx, t, doc); err != nil {
		return false, err
	}
	return true, nil
}

// UpdatePayment solo toca paid_amount y el resumen de pago; válido también en finalizados.
func (r *DocumentRepo) UpdatePayment(ctx context.Context, kind entity.DocumentKind, id string, paid decimal.Decimal, summary entity.PaymentSummary) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET paid_amount = $2, balance_due = $3, payment_status = $4, updated_at = $5
		WHERE id = $1 AND NOT is_deleted`, t.header)
	tag, err := r.q.Exec(ctx, query, id, paid, summary.BalanceDue, string(summary.PaymentStatus), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update payment %s: %w", t.header, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind.Label(), id, domain.ErrNotFound)
	}
	return nil
}

// SoftDeleteDraft marca is_deleted solo si sigue en borrador.
func (r *DocumentRepo) SoftDeleteDraft(ctx context.Context, kind entity.DocumentKind, id string) (bool, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'draft' AND NOT is_deleted`, t.header)
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.header, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DocumentRepo) replaceItems(ctx context.Context, t docTables, doc *entity.Document) error {
	if _, err := r.q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, t.items), doc.ID); err != nil {
		return fmt.Errorf("delete %s: %w", t.items, err)
	}
	return r.insertItems(ctx, t, doc)
}

// insertItems envía todas las líneas en un solo batch.
func (r *DocumentRepo) insertItems(ctx context.Context, t docTables, doc *entity.Document) error {
	if len(doc.Items) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t.items, strings.Join(itemColumns, ", "), placeholders(1, len(itemColumns)))
	batch := &pgx.Batch{}
	for i := range doc.Items {
		it := &doc.Items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.DocumentID = doc.ID
		batch.Queue(query,
			it.ID, it.DocumentID, it.LineNo, it.CategoryID, nullIfEmpty(it.Description), nullIfEmpty(it.Purity), it.Quantity,
			it.Weight, it.GrossWeight, it.StoneWeight, it.NetGoldWeight,
			it.MetalRate, it.MakingValue, it.StoneCharges, it.WastageCharges, it.ItemDiscount, it.VATPercent,
			it.GoldValue, it.SubtotalBeforeVAT, it.VATAmount, it.LineTotal,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	for range doc.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert %s: %w", t.items, err)
		}
	}
	return br.Close()
}

func (r *DocumentRepo) listItems(ctx context.Context, t docTables, documentID string) ([]entity.LineItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE document_id = $1 ORDER BY line_no`, strings.Join(itemColumns, ", "), t.items)
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.items, err)
	}
	defer rows.Close()
	var items []entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		var description, purity *string
		if err := rows.Scan(
			&it.ID, &it.DocumentID, &it.LineNo, &it.CategoryID, &description, &purity, &it.Quantity,
			&it.Weight, &it.GrossWeight, &it.StoneWeight, &it.NetGoldWeight,
			&it.MetalRate, &it.MakingValue, &it.StoneCharges, &it.WastageCharges, &it.ItemDiscount, &it.VATPercent,
			&it.GoldValue, &it.SubtotalBeforeVAT, &it.VATAmount, &it.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.items, err)
		}
		it.Description = derefStr(description)
		it.Purity = derefStr(purity)
		items = append(items, it)
	}
	return items, rows.Err()
}
