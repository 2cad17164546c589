package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	calc "github.com/jhoicas/joyeria-erp/internal/domain/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/inventory"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("joyeria-erp/billing")

const lockRecheckTimeout = 5 * time.Second

// FinalizeUseCase transición draft → finalized de facturas y compras.
//
// Todo ocurre en una sola transacción: recálculo de totales, compare-and-set del estado,
// movimientos de stock, transacción de caja y bitácora. Si algo falla no queda nada aplicado.
// Movimientos y transacciones se crean solo si no existen para (referencia, línea) o
// (clave de idempotencia), así que reintentar tras un resultado incierto no duplica efectos.
type FinalizeUseCase struct {
	txRunner  BillingTxRunner
	locker    RecordLocker
	publisher EventPublisher
	opts      Options
	log       *logger.Logger
	now       Clock
}

// NewFinalizeUseCase construye el caso de uso.
func NewFinalizeUseCase(txRunner BillingTxRunner, locker RecordLocker, publisher EventPublisher, opts Options, log *logger.Logger) *FinalizeUseCase {
	return &FinalizeUseCase{
		txRunner:  txRunner,
		locker:    locker,
		publisher: publisher,
		opts:      opts.withDefaults(),
		log:       log,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *FinalizeUseCase) WithClock(c Clock) *FinalizeUseCase {
	uc.now = c
	return uc
}

// FinalizeInvoice finaliza una factura de venta: stock OUT y cobro (debit) por lo pagado.
func (uc *FinalizeUseCase) FinalizeInvoice(ctx context.Context, id, actor string) (*dto.FinalizeResponse, error) {
	return uc.finalize(ctx, entity.KindInvoice, id, actor)
}

// FinalizePurchase finaliza una compra: stock IN, costo promedio y pago (credit) por lo pagado.
func (uc *FinalizeUseCase) FinalizePurchase(ctx context.Context, id, actor string) (*dto.FinalizeResponse, error) {
	return uc.finalize(ctx, entity.KindPurchase, id, actor)
}

// lockTimeoutCause el que tenía el candado pudo haber terminado de finalizar;
// en ese caso gana ErrAlreadyFinalized sobre el timeout.
func (uc *FinalizeUseCase) lockTimeoutCause(ctx context.Context, kind entity.DocumentKind, id string, lockErr error) error {
	// el contexto original pudo vencer esperando el candado
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockRecheckTimeout)
	defer cancel()

	var finalized bool
	err := uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		doc, err := r.Documents.GetByID(ctx, kind, id)
		if err != nil {
			return err
		}
		finalized = doc != nil && !doc.IsDeleted && doc.IsFinalized()
		return nil
	})
	if err == nil && finalized {
		return domain.ErrAlreadyFinalized
	}
	return lockErr
}

type categoryDelta struct {
	qty    int
	weight decimal.Decimal
}

func (uc *FinalizeUseCase) finalize(ctx context.Context, kind entity.DocumentKind, id, actor string) (*dto.FinalizeResponse, error) {
	ctx, span := tracer.Start(ctx, "billing.finalize", trace.WithAttributes(
		attribute.String("document.kind", string(kind)),
		attribute.String("document.id", id),
	))
	defer span.End()

	release, err := uc.locker.Lock(ctx, lockKey(kind, id))
	if err != nil {
		if errors.Is(err, domain.ErrLockNotObtained) {
			err = uc.lockTimeoutCause(ctx, kind, id, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return nil, docErr(kind, id, err)
	}
	defer release(context.WithoutCancel(ctx))

	var (
		doc       *entity.Document
		movements []*entity.StockMovement
		txns      []*entity.LedgerTransaction
		drift     decimal.Decimal
	)
	now := uc.now()

	err = uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		movements, txns = nil, nil

		var err error
		doc, err = loadForUpdate(ctx, r, kind, id)
		if err != nil {
			return err
		}
		if doc.IsFinalized() {
			return docErr(kind, id, domain.ErrAlreadyFinalized)
		}
		if len(doc.Items) == 0 {
			return domain.NewValidationError("items", "el documento no tiene líneas")
		}

		// Nunca se confía en los totales guardados.
		recomputed := calc.CalculateFullInvoice(doc.Pricing)
		drift = calc.Drift(doc.Totals, recomputed.Totals)
		if drift.GreaterThan(calc.PaymentTolerance) {
			if uc.opts.TotalsPolicy == TotalsReject {
				return docErr(kind, id, fmt.Errorf("gran total guardado %s, recalculado %s: %w",
					doc.Totals.GrandTotal.String(), recomputed.Totals.GrandTotal.String(), domain.ErrConsistency))
			}
			uc.log.Warn().Str("document_id", id).Str("stored", doc.Totals.GrandTotal.String()).
				Str("recomputed", recomputed.Totals.GrandTotal.String()).Msg("totales recalculados al finalizar")
		}
		doc.Calculation = recomputed
		if doc.PaidAmount.GreaterThan(doc.Totals.GrandTotal.Add(calc.PaymentTolerance)) {
			return docErr(kind, id, fmt.Errorf("pagado %s, total %s: %w",
				doc.PaidAmount.String(), doc.Totals.GrandTotal.String(), domain.ErrOverpayment))
		}

		// Precondiciones de inventario: todas las categorías, en orden fijo para no generar deadlocks.
		sign := stockSign(kind)
		deltas, ids := aggregateDeltas(doc.Items, sign)
		for _, catID := range ids {
			cat, err := r.Categories.GetForUpdate(ctx, catID)
			if err != nil {
				return err
			}
			if cat == nil || cat.IsDeleted {
				return docErr(kind, id, fmt.Errorf("categoría %s: %w", catID, domain.ErrNotFound))
			}
			if err := uc.opts.StockPolicy.Check(cat, deltas[catID].qty, deltas[catID].weight); err != nil {
				return docErr(kind, id, err)
			}
		}

		// Lo pagado que aún no tiene transacción se registra ahora contra la cuenta del documento.
		ledgered, err := ledgeredAmount(ctx, r, doc)
		if err != nil {
			return err
		}
		pending := calc.RoundMoney(doc.PaidAmount.Sub(ledgered))
		if pending.IsPositive() {
			if doc.PaymentAccountID == "" {
				return domain.NewValidationError("payment_account_id", "es obligatorio cuando paid_amount > 0")
			}
			acc, err := r.Accounts.GetForUpdate(ctx, doc.PaymentAccountID)
			if err != nil {
				return err
			}
			if acc == nil || acc.IsDeleted {
				return docErr(kind, id, fmt.Errorf("cuenta %s: %w", doc.PaymentAccountID, domain.ErrNotFound))
			}
		}

		doc.Status = entity.StatusFinalized
		doc.FinalizedAt = &now
		doc.FinalizedBy = actor
		doc.UpdatedAt = now
		ok, err := r.Documents.MarkFinalized(ctx, doc)
		if err != nil {
			return err
		}
		if !ok {
			return docErr(kind, id, domain.ErrAlreadyFinalized)
		}

		movements, err = uc.writeMovements(ctx, r, doc, sign, actor, now)
		if err != nil {
			return err
		}
		if pending.IsPositive() {
			txn, err := writeFinalizePayment(ctx, r, doc, pending, actor, now)
			if err != nil {
				return err
			}
			if txn != nil {
				txns = append(txns, txn)
			}
		}

		return appendAudit(ctx, r, entity.AuditFinalize, doc, actor, now, map[string]interface{}{
			"number":         doc.Number,
			"grand_total":    doc.Totals.GrandTotal,
			"paid_amount":    doc.PaidAmount,
			"payment_status": doc.Payment.PaymentStatus,
			"movements":      len(movements),
			"drift":          drift,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize")
		uc.log.Warn().Err(err).Str("kind", string(kind)).Str("document_id", id).Str("actor", actor).Msg("finalización rechazada")
		return nil, err
	}

	span.SetAttributes(attribute.String("document.grand_total", doc.Totals.GrandTotal.String()))
	uc.publish(ctx, Event{
		Type:          finalizedEvent(kind),
		ReferenceType: doc.ReferenceType(),
		ReferenceID:   doc.ID,
		Number:        doc.Number,
		Actor:         actor,
		Amount:        doc.Totals.GrandTotal,
		OccurredAt:    now,
	})
	uc.log.Info().Str("kind", string(kind)).Str("document_id", id).Str("number", doc.Number).
		Str("actor", actor).Str("grand_total", doc.Totals.GrandTotal.String()).
		Int("movements", len(movements)).Int("transactions", len(txns)).Msg("documento finalizado")

	resp := &dto.FinalizeResponse{
		Document:     ToDocumentResponse(doc),
		Movements:    make([]dto.StockMovementResponse, 0, len(movements)),
		Transactions: make([]dto.LedgerTransactionResponse, 0, len(txns)),
	}
	for _, m := range movements {
		resp.Movements = append(resp.Movements, toMovementResponse(m))
	}
	for _, t := range txns {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
	}
	return resp, nil
}

// writeMovements aplica un movimiento por línea; las líneas que ya lo tienen se omiten.
func (uc *FinalizeUseCase) writeMovements(ctx context.Context, r TxRepos, doc *entity.Document, sign int, actor string, now time.Time) ([]*entity.StockMovement, error) {
	refType := doc.ReferenceType()
	movType := entity.MovementTypeOUT
	if sign > 0 {
		movType = entity.MovementTypeIN
	}

	var out []*entity.StockMovement
	for _, it := range doc.Items {
		exists, err := r.Movements.ExistsByReference(ctx, refType, doc.ID, it.LineNo)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		qty := sign * it.Quantity
		weight := it.StockWeight().Mul(decimal.NewFromInt(int64(sign)))
		cat, err := r.Categories.ApplyDelta(ctx, it.CategoryID, qty, weight)
		if err != nil {
			return nil, err
		}
		if doc.Kind == entity.KindPurchase {
			prevWeight := cat.Weight.Sub(weight)
			cost := inventory.UnitCostPerGram(it.SubtotalBeforeVAT, it.StockWeight())
			avg := inventory.AverageCostPerGram(prevWeight, cat.AvgCostPerGram, weight, cost)
			if err := r.Categories.UpdateAverageCost(ctx, cat.ID, avg); err != nil {
				return nil, err
			}
		}

		m := &entity.StockMovement{
			ID:            uuid.New().String(),
			CategoryID:    it.CategoryID,
			Type:          movType,
			QtyDelta:      qty,
			WeightDelta:   weight,
			Purity:        it.Purity,
			ReferenceType: refType,
			ReferenceID:   doc.ID,
			LineNo:        it.LineNo,
			QtyAfter:      cat.Quantity,
			WeightAfter:   cat.Weight,
			Notes:         fmt.Sprintf("%s %s", doc.Kind.Label(), doc.Number),
			CreatedAt:     now,
			CreatedBy:     actor,
		}
		if err := r.Movements.Create(ctx, m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// writeFinalizePayment registra lo cobrado/pagado al finalizar. Devuelve nil si ya existía.
func writeFinalizePayment(ctx context.Context, r TxRepos, doc *entity.Document, amount decimal.Decimal, actor string, now time.Time) (*entity.LedgerTransaction, error) {
	refType := doc.ReferenceType()
	key := entity.FinalizePaymentKey(refType, doc.ID)
	existing, err := r.Ledger.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}
	dir, err := entity.DirectionFor(refType)
	if err != nil {
		return nil, err
	}
	txn := &entity.LedgerTransaction{
		ID:             uuid.New().String(),
		AccountID:      doc.PaymentAccountID,
		PartyID:        doc.PartyID,
		Type:           dir,
		Amount:         amount,
		Mode:           "finalize",
		ReferenceType:  refType,
		ReferenceID:    doc.ID,
		IdempotencyKey: key,
		Notes:          fmt.Sprintf("pago al finalizar %s %s", doc.Kind.Label(), doc.Number),
		CreatedAt:      now,
		CreatedBy:      actor,
	}
	if err := r.Ledger.Create(ctx, txn); err != nil {
		return nil, err
	}
	if _, err := r.Accounts.ApplyDelta(ctx, doc.PaymentAccountID, dir.SignedAmount(amount)); err != nil {
		return nil, err
	}
	return txn, nil
}

func (uc *FinalizeUseCase) publish(ctx context.Context, evt Event) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		uc.log.Error().Err(err).Str("event", evt.Type).Str("reference_id", evt.ReferenceID).Msg("no se pudo publicar el evento")
	}
}

// stockSign -1 para ventas (salida), +1 para compras (entrada).
func stockSign(kind entity.DocumentKind) int {
	if kind == entity.KindPurchase {
		return 1
	}
	return -1
}

// aggregateDeltas suma por categoría y devuelve los ids ordenados.
func aggregateDeltas(items []entity.LineItem, sign int) (map[string]categoryDelta, []string) {
	deltas := make(map[string]categoryDelta)
	for _, it := range items {
		d := deltas[it.CategoryID]
		d.qty += sign * it.Quantity
		d.weight = d.weight.Add(it.StockWeight().Mul(decimal.NewFromInt(int64(sign))))
		deltas[it.CategoryID] = d
	}
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return deltas, ids
}

func finalizedEvent(kind entity.DocumentKind) string {
	if kind == entity.KindPurchase {
		return EventPurchaseFinalized
	}
	return EventInvoiceFinalized
}
