package entity

import (
	"encoding/json"
	"time"
)

// Acciones registradas en la bitácora.
const (
	AuditCreate   = "create"
	AuditUpdate   = "update"
	AuditDelete   = "delete"
	AuditFinalize = "finalize"
	AuditPayment  = "payment"
)

// AuditLog entrada de solo-anexar de la bitácora.
type AuditLog struct {
	ID         string
	Action     string
	EntityType string
	EntityID   string
	Actor      string
	Details    json.RawMessage
	CreatedAt  time.Time
}
