package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
)

// Store implements database.Store using PostgreSQL. Escalation records and
// session snapshots are stored as JSONB documents with the columns the
// listing and analytics queries filter on lifted out.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Escalations (append-only) ---

func (s *Store) AppendEscalation(ctx context.Context, rec escalation.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal escalation record: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO escalations (id, decision_type, tier, composite_score, created_at, record)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Context.Type, string(rec.Decision.Tier), rec.Composite.Value, rec.CreatedAt, doc)
	if err != nil {
		return fmt.Errorf("append escalation %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetEscalation(ctx context.Context, id string) (*escalation.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT record FROM escalations WHERE id = $1`, id)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		return nil, notFoundWrap(err, "get escalation %s", id)
	}

	var rec escalation.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal escalation %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) ListEscalations(ctx context.Context, limit int) ([]escalation.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM escalations ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var records []escalation.Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		var rec escalation.Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal escalation: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- Consensus sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *consensus.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO consensus_sessions (id, decision_type, mechanism, created_at, completed_at, session)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.Context.Type, string(sess.Mechanism), sess.CreatedAt, nullTime(sess.CompletedAt), doc)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, sess *consensus.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE consensus_sessions SET mechanism = $2, completed_at = $3, session = $4 WHERE id = $1`,
		sess.ID, string(sess.Mechanism), nullTime(sess.CompletedAt), doc)
	return execExpectOne(tag, err, "save session %s", sess.ID)
}

func (s *Store) GetSession(ctx context.Context, id string) (*consensus.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT session FROM consensus_sessions WHERE id = $1`, id)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		return nil, notFoundWrap(err, "get session %s", id)
	}

	var sess consensus.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]consensus.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session FROM consensus_sessions ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []consensus.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess consensus.Session
		if err := json.Unmarshal(doc, &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
