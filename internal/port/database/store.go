// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
)

// Store is the port interface for database operations.
type Store interface {
	EscalationStore
	SessionStore
}

// EscalationStore persists the append-only escalation history. Records are
// never updated or deleted.
type EscalationStore interface {
	AppendEscalation(ctx context.Context, rec escalation.Record) error
	GetEscalation(ctx context.Context, id string) (*escalation.Record, error)
	// ListEscalations returns the most recent records first, at most limit.
	ListEscalations(ctx context.Context, limit int) ([]escalation.Record, error)
}

// SessionStore persists consensus sessions across their phase lifecycle.
type SessionStore interface {
	CreateSession(ctx context.Context, s *consensus.Session) error
	// SaveSession overwrites the stored snapshot with the session's current
	// phase history and, once completed, its frozen analysis.
	SaveSession(ctx context.Context, s *consensus.Session) error
	GetSession(ctx context.Context, id string) (*consensus.Session, error)
	// ListSessions returns the most recent sessions first, at most limit.
	ListSessions(ctx context.Context, limit int) ([]consensus.Session, error)
}
