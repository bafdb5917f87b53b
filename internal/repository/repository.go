package repository

import (
	"context"

	"shopwithus/internal/model"
)

// Fields is a partial update: column-name → new value. Repositories apply it
// as a field-level merge so concurrent writers touching different fields
// never clobber each other (full-row replacement is deliberately not part of
// this interface).
type Fields map[string]any

// ParticipantRepository is the document-store contract the services are
// written against. Exactly four operations: two lookups, one insert, one
// partial update. Implementations must refresh the record timestamp on
// every UpdateFields call.
type ParticipantRepository interface {
	FindByProlificID(ctx context.Context, prolificID string) (*model.Participant, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Participant, error)
	Insert(ctx context.Context, p *model.Participant) error
	UpdateFields(ctx context.Context, prolificID string, fields Fields) error
}
