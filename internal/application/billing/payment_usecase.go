package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	calc "github.com/jhoicas/joyeria-erp/internal/domain/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PaymentUseCase registra pagos sobre facturas y compras, en borrador o finalizadas.
// Un pago crea su propia transacción y solo modifica paid_amount y el resumen de pago.
type PaymentUseCase struct {
	txRunner  BillingTxRunner
	locker    RecordLocker
	publisher EventPublisher
	log       *logger.Logger
	now       Clock
}

// NewPaymentUseCase construye el caso de uso.
func NewPaymentUseCase(txRunner BillingTxRunner, locker RecordLocker, publisher EventPublisher, log *logger.Logger) *PaymentUseCase {
	return &PaymentUseCase{txRunner: txRunner, locker: locker, publisher: publisher, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *PaymentUseCase) WithClock(c Clock) *PaymentUseCase {
	uc.now = c
	return uc
}

// AddInvoicePayment cobro de una factura (debit a la cuenta).
func (uc *PaymentUseCase) AddInvoicePayment(ctx context.Context, id, actor string, req dto.PaymentRequest) (*dto.PaymentResponse, error) {
	return uc.addPayment(ctx, entity.KindInvoice, id, actor, req)
}

// AddPurchasePayment pago a proveedor de una compra (credit a la cuenta).
func (uc *PaymentUseCase) AddPurchasePayment(ctx context.Context, id, actor string, req dto.PaymentRequest) (*dto.PaymentResponse, error) {
	return uc.addPayment(ctx, entity.KindPurchase, id, actor, req)
}

func (uc *PaymentUseCase) addPayment(ctx context.Context, kind entity.DocumentKind, id, actor string, req dto.PaymentRequest) (*dto.PaymentResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	amount := calc.RoundMoney(req.Amount)
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "debe ser > 0")
	}
	requestKey := req.IdempotencyKey
	if requestKey == "" {
		requestKey = uuid.New().String()
	}
	mode := req.Mode
	if mode == "" {
		mode = "cash"
	}

	ctx, span := tracer.Start(ctx, "billing.add_payment", trace.WithAttributes(
		attribute.String("document.kind", string(kind)),
		attribute.String("document.id", id),
		attribute.String("payment.amount", amount.String()),
	))
	defer span.End()

	release, err := uc.locker.Lock(ctx, lockKey(kind, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return nil, docErr(kind, id, err)
	}
	defer release(context.WithoutCancel(ctx))

	now := uc.now()
	var (
		txn      *entity.LedgerTransaction
		summary  entity.PaymentSummary
		replayed bool
	)
	err = uc.txRunner.RunBilling(ctx, func(r TxRepos) error {
		replayed = false
		doc, err := loadForUpdate(ctx, r, kind, id)
		if err != nil {
			return err
		}
		refType := doc.ReferenceType()
		key := entity.PaymentKey(refType, id, requestKey)

		existing, err := r.Ledger.GetByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.Amount.Equal(amount) || existing.AccountID != req.AccountID {
				return docErr(kind, id, fmt.Errorf("clave de idempotencia %q reutilizada con otro pago: %w", requestKey, domain.ErrConflict))
			}
			txn, replayed = existing, true
			summary = calc.CalculatePaymentSummary(doc.Totals.GrandTotal, doc.PaidAmount)
			return nil
		}

		current := calc.CalculatePaymentSummary(doc.Totals.GrandTotal, doc.PaidAmount)
		if amount.GreaterThan(current.BalanceDue.Add(calc.PaymentTolerance)) {
			return docErr(kind, id, fmt.Errorf("saldo %s, pago %s: %w",
				current.BalanceDue.String(), amount.String(), domain.ErrOverpayment))
		}

		acc, err := r.Accounts.GetForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if acc == nil || acc.IsDeleted {
			return domain.NewValidationError("account_id", "no existe")
		}

		dir, err := entity.DirectionFor(refType)
		if err != nil {
			return err
		}
		txn = &entity.LedgerTransaction{
			ID:             uuid.New().String(),
			AccountID:      acc.ID,
			PartyID:        doc.PartyID,
			Type:           dir,
			Amount:         amount,
			Mode:           mode,
			ReferenceType:  refType,
			ReferenceID:    doc.ID,
			IdempotencyKey: key,
			Notes:          req.Notes,
			CreatedAt:      now,
			CreatedBy:      actor,
		}
		if err := r.Ledger.Create(ctx, txn); err != nil {
			return err
		}
		if _, err := r.Accounts.ApplyDelta(ctx, acc.ID, dir.SignedAmount(amount)); err != nil {
			return err
		}

		paid := calc.RoundMoney(doc.PaidAmount.Add(amount))
		summary = calc.CalculatePaymentSummary(doc.Totals.GrandTotal, paid)
		if err := r.Documents.UpdatePayment(ctx, kind, id, paid, summary); err != nil {
			return err
		}
		doc.PaidAmount = paid
		doc.Payment = summary
		return appendAudit(ctx, r, entity.AuditPayment, doc, actor, now, map[string]interface{}{
			"transaction_id":   txn.ID,
			"transaction_type": txn.Type,
			"amount":           amount,
			"account_id":       acc.ID,
			"balance_due":      summary.BalanceDue,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add_payment")
		uc.log.Warn().Err(err).Str("kind", string(kind)).Str("document_id", id).Str("actor", actor).Msg("pago rechazado")
		return nil, err
	}

	if !replayed {
		if uc.publisher != nil {
			evt := Event{
				Type:          EventPaymentAdded,
				ReferenceType: txn.ReferenceType,
				ReferenceID:   id,
				Actor:         actor,
				Amount:        amount,
				OccurredAt:    now,
			}
			if err := uc.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
				uc.log.Error().Err(err).Str("event", evt.Type).Str("reference_id", id).Msg("no se pudo publicar el evento")
			}
		}
		uc.log.Info().Str("kind", string(kind)).Str("document_id", id).Str("actor", actor).
			Str("amount", amount.String()).Str("payment_status", string(summary.PaymentStatus)).Msg("pago registrado")
	}

	return &dto.PaymentResponse{
		Transaction: toTransactionResponse(txn),
		Payment:     toPaymentSummaryResponse(summary),
		Replayed:    replayed,
	}, nil
}
