// Package events publica eventos de facturación ya confirmados.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"google.golang.org/api/option"
)

var _ billing.EventPublisher = (*PubSubPublisher)(nil)

// PubSubPublisher publica cada evento como JSON en un tópico de Google Pub/Sub.
// El atributo "type" permite filtrar suscripciones por tipo de evento.
type PubSubPublisher struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	timeout time.Duration
}

// NewPubSubPublisher crea el cliente; credentialsFile vacío usa las credenciales por defecto.
func NewPubSubPublisher(ctx context.Context, projectID, topicID, credentialsFile string) (*PubSubPublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &PubSubPublisher{client: client, topic: client.Topic(topicID), timeout: 10 * time.Second}, nil
}

// Publish espera la confirmación del servidor.
func (p *PubSubPublisher) Publish(ctx context.Context, evt billing.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":           evt.Type,
			"reference_type": evt.ReferenceType,
			"reference_id":   evt.ReferenceID,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publicar %s: %w", evt.Type, err)
	}
	return nil
}

// Close vacía los mensajes pendientes y cierra el cliente.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
