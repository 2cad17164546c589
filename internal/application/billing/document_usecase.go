package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	calc "github.com/jhoicas/joyeria-erp/internal/domain/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

// DocumentUseCase ciclo de vida de borradores (crear, consultar, editar, eliminar) y vista previa.
// Ninguna operación de este caso de uso toca inventario ni caja.
type DocumentUseCase struct {
	txRunner BillingTxRunner
	opts     Options
	log      *logger.Logger
	now      Clock
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(txRunner BillingTxRunner, opts Options, log *logger.Logger) *DocumentUseCase {
	return &DocumentUseCase{txRunner: txRunner, opts: opts.withDefaults(), log: log, now: time.Now}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *DocumentUseCase) WithClock(c Clock) *DocumentUseCase {
	uc.now = c
	return uc
}

// Calculate ejecuta la calculadora sin persistir nada.
func (uc *DocumentUseCase) Calculate(req dto.PricingRequest) (*dto.CalculationResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	p := toPricing(req)
	applyDefaultVAT(&p, uc.opts.DefaultVATPercent)
	c := calc.CalculateFullInvoice(p)
	if err := checkDiscount(c.Totals); err != nil {
		return nil, err
	}
	out := ToCalculationResponse(c)
	return &out, nil
}

// CreateDraft crea una factura o compra en borrador con los totales calculados en el servidor.
func (uc *DocumentUseCase) CreateDraft(ctx context.Context, kind entity.DocumentKind, actor string, req dto.DocumentRequest) (*dto.DocumentResponse, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	now := uc.now()
	date, err := parseDate(req.Date, now)
	if err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	doc := &entity.Document{
		ID:               docID,
		Kind:             kind,
		Number:           documentNumber(kind, now, docID),
		PartyID:          req.PartyID,
		Date:             date,
		Notes:            req.Notes,
		PaymentAccountID: req.PaymentAccountID,
		Status:           entity.StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        actor,
	}
	if err := uc.price(doc, req.PricingRequest); err != nil {
		return nil, err
	}

	err = uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		if err := checkReferences(ctx, r, kind, doc); err != nil {
			return err
		}
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		return appendAudit(ctx, r, entity.AuditCreate, doc, actor, now, map[string]interface{}{
			"number":      doc.Number,
			"grand_total": doc.Totals.GrandTotal,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("kind", string(kind)).Str("document_id", doc.ID).Str("number", doc.Number).
		Str("actor", actor).Str("grand_total", doc.Totals.GrandTotal.String()).Msg("borrador creado")
	out := ToDocumentResponse(doc)
	return &out, nil
}

// Get devuelve el documento; eliminado o inexistente = ErrNotFound.
func (uc *DocumentUseCase) Get(ctx context.Context, kind entity.DocumentKind, id string) (*dto.DocumentResponse, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var doc *entity.Document
	err := uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		var err error
		doc, err = r.Documents.GetByID(ctx, kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.IsDeleted {
		return nil, docErr(kind, id, domain.ErrNotFound)
	}
	out := ToDocumentResponse(doc)
	return &out, nil
}

// UpdateDraft reemplaza cabecera y líneas de un borrador. Un documento finalizado es inmutable.
func (uc *DocumentUseCase) UpdateDraft(ctx context.Context, kind entity.DocumentKind, id, actor string, req dto.DocumentRequest) (*dto.DocumentResponse, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	now := uc.now()

	var doc *entity.Document
	err := uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		var err error
		doc, err = loadForUpdate(ctx, r, kind, id)
		if err != nil {
			return err
		}
		if doc.IsFinalized() {
			return docErr(kind, id, domain.ErrFinalizedImmutable)
		}

		date, err := parseDate(req.Date, doc.Date)
		if err != nil {
			return err
		}
		doc.PartyID = req.PartyID
		doc.Date = date
		doc.Notes = req.Notes
		doc.PaymentAccountID = req.PaymentAccountID
		doc.UpdatedAt = now
		if err := uc.price(doc, req.PricingRequest); err != nil {
			return err
		}

		ledgered, err := ledgeredAmount(ctx, r, doc)
		if err != nil {
			return err
		}
		if doc.PaidAmount.LessThan(ledgered) {
			return domain.NewValidationError("paid_amount",
				fmt.Sprintf("no puede ser menor que los pagos ya registrados (%s)", ledgered.String()))
		}
		if err := checkReferences(ctx, r, kind, doc); err != nil {
			return err
		}

		ok, err := r.Documents.ReplaceDraft(ctx, doc)
		if err != nil {
			return err
		}
		if !ok {
			return docErr(kind, id, domain.ErrFinalizedImmutable)
		}
		return appendAudit(ctx, r, entity.AuditUpdate, doc, actor, now, map[string]interface{}{
			"grand_total": doc.Totals.GrandTotal,
			"items":       len(doc.Items),
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("kind", string(kind)).Str("document_id", id).Str("actor", actor).Msg("borrador actualizado")
	out := ToDocumentResponse(doc)
	return &out, nil
}

// DeleteDraft elimina (soft delete) un borrador sin pagos registrados.
func (uc *DocumentUseCase) DeleteDraft(ctx context.Context, kind entity.DocumentKind, id, actor string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	now := uc.now()
	err := uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		doc, err := loadForUpdate(ctx, r, kind, id)
		if err != nil {
			return err
		}
		if doc.IsFinalized() {
			return docErr(kind, id, domain.ErrFinalizedImmutable)
		}
		ledgered, err := ledgeredAmount(ctx, r, doc)
		if err != nil {
			return err
		}
		if ledgered.IsPositive() {
			return docErr(kind, id, fmt.Errorf("tiene pagos registrados por %s: %w", ledgered.String(), domain.ErrConflict))
		}
		ok, err := r.Documents.SoftDeleteDraft(ctx, kind, id)
		if err != nil {
			return err
		}
		if !ok {
			return docErr(kind, id, domain.ErrFinalizedImmutable)
		}
		return appendAudit(ctx, r, entity.AuditDelete, doc, actor, now, nil)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("kind", string(kind)).Str("document_id", id).Str("actor", actor).Msg("borrador eliminado")
	return nil
}

// price recalcula el documento a partir de la petición; el pago no puede superar el total.
func (uc *DocumentUseCase) price(doc *entity.Document, req dto.PricingRequest) error {
	p := toPricing(req)
	applyDefaultVAT(&p, uc.opts.DefaultVATPercent)
	for i := range p.Items {
		p.Items[i].DocumentID = doc.ID
	}
	doc.Calculation = calc.CalculateFullInvoice(p)
	if err := checkDiscount(doc.Totals); err != nil {
		return err
	}
	if doc.PaidAmount.GreaterThan(doc.Totals.GrandTotal.Add(calc.PaymentTolerance)) {
		return fmt.Errorf("paid_amount %s supera el total %s: %w",
			doc.PaidAmount.String(), doc.Totals.GrandTotal.String(), domain.ErrOverpayment)
	}
	return nil
}

// checkDiscount el descuento de factura no puede dejar el subtotal en negativo.
func checkDiscount(t entity.Totals) error {
	if t.AfterInvoiceDiscount.IsNegative() {
		return domain.NewValidationError("discount_amount",
			fmt.Sprintf("el descuento %s supera el subtotal %s", t.DiscountAmount.String(), t.Subtotal.String()))
	}
	return nil
}

// documentNumber INV-20261015-1A2B3C4D / PUR-...; el sufijo sale del id para no depender del reloj.
func documentNumber(kind entity.DocumentKind, now time.Time, id string) string {
	prefix := "INV"
	if kind == entity.KindPurchase {
		prefix = "PUR"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

func parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "formato esperado 2006-01-02")
	}
	return t, nil
}

// appendAudit anexa una entrada a la bitácora dentro de la misma transacción.
func appendAudit(ctx context.Context, r TxRepos, action string, doc *entity.Document, actor string, now time.Time, details map[string]interface{}) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("serializar detalle de auditoría: %w", err)
		}
		raw = b
	}
	return r.Audit.Append(ctx, &entity.AuditLog{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: string(doc.Kind),
		EntityID:   doc.ID,
		Actor:      actor,
		Details:    raw,
		CreatedAt:  now,
	})
}
