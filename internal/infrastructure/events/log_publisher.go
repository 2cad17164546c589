package events

import (
	"context"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
)

var _ billing.EventPublisher = (*LogPublisher)(nil)

// LogPublisher escribe los eventos en el log; se usa cuando Pub/Sub no está configurado.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish nunca falla.
func (p *LogPublisher) Publish(_ context.Context, evt billing.Event) error {
	p.log.Info().
		Str("event", evt.Type).
		Str("reference_type", evt.ReferenceType).
		Str("reference_id", evt.ReferenceID).
		Str("number", evt.Number).
		Str("actor", evt.Actor).
		Str("amount", evt.Amount.String()).
		Time("occurred_at", evt.OccurredAt).
		Msg("evento")
	return nil
}
