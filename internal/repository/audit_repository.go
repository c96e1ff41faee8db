package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elo-edu/secretaria-api/internal/models"
)

// AuditRepository stores the secretary audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log records one audit event. The payload is stored as JSON; marshaling
// failures fall back to an empty payload rather than losing the event.
func (r *AuditRepository) Log(ctx context.Context, action string, code string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}

	entry := models.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		Resource:  "document",
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	if code != "" {
		entry.Code = &code
	}

	const query = `
		INSERT INTO audit_logs (id, action, resource, code, payload, created_at)
		VALUES (:id, :action, :resource, :code, :payload, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
