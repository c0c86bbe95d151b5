package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conclave-ai/conclave/pkg/database"
	"github.com/conclave-ai/conclave/pkg/models"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions, messages and run results in PostgreSQL.
//
// Persistence is best effort from the engine's point of view: the run's final
// event is delivered to the caller whether or not the write succeeds, and
// callers log store errors instead of failing the run.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the database client.
func NewStore(client *database.Client) *Store {
	return &Store{db: client.DB()}
}

// EnsureSession creates the session row if it does not exist and refreshes its
// updated_at timestamp when it does.
func (s *Store) EnsureSession(ctx context.Context, sessionID string, user models.UserContext) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, tenant_id, user_id, status)
		VALUES ($1, $2, $3, 'running')
		ON CONFLICT (id) DO UPDATE SET status = 'running', updated_at = now()`,
		sessionID, user.TenantID, user.UserID,
	)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// Get loads a single session row.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, status, detected_language, created_at, updated_at
		FROM sessions WHERE id = $1`, sessionID)

	var sess Session
	err := row.Scan(&sess.ID, &sess.TenantID, &sess.UserID, &sess.Status,
		&sess.DetectedLanguage, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// AppendMessage records one conversation turn.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// History returns the most recent messages for a session in chronological
// order, shaped for the engine's conversation history input.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM messages
			WHERE session_id = $1 ORDER BY id DESC LIMIT $2
		) recent ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// SaveResult persists a run's final event and marks the session with its
// terminal status. The user query and the final response are appended as
// conversation turns so later runs see them as history.
func (s *Store) SaveResult(ctx context.Context, sessionID, query string, final *models.FinalEvent) error {
	sourcesJSON, err := json.Marshal(final.FinalSources)
	if err != nil {
		return fmt.Errorf("marshal final sources: %w", err)
	}
	if final.FinalSources == nil {
		sourcesJSON = []byte("[]")
	}
	metadataJSON, err := json.Marshal(final.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_results (session_id, final_response, processing_status, detected_language, final_sources, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, final.FinalResponse, string(final.ProcessingStatus),
		final.DetectedLanguage, sourcesJSON, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run result: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3), ($1, $4, $5)`,
		sessionID, models.MessageRoleUser, query, models.MessageRoleAssistant, final.FinalResponse,
	)
	if err != nil {
		return fmt.Errorf("insert conversation turns: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET status = $2, detected_language = $3, updated_at = now()
		WHERE id = $1`,
		sessionID, string(final.ProcessingStatus), final.DetectedLanguage,
	)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}

	return tx.Commit()
}

// DeleteOldSessions removes sessions whose last activity is older than the
// retention window. Messages and run results go with them via cascade.
// Idempotent and safe to run from multiple replicas.
func (s *Store) DeleteOldSessions(ctx context.Context, retentionDays int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE updated_at < now() - make_interval(days => $1)`,
		retentionDays,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}
	return res.RowsAffected()
}

// Results returns the persisted run results for a session, oldest first.
func (s *Store) Results(ctx context.Context, sessionID string) ([]RunResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, final_response, processing_status, detected_language, final_sources, metadata, created_at
		FROM run_results WHERE session_id = $1 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load run results: %w", err)
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		var (
			r            RunResult
			status       string
			sourcesJSON  []byte
			metadataJSON []byte
		)
		err := rows.Scan(&r.ID, &r.SessionID, &r.FinalResponse, &status,
			&r.DetectedLanguage, &sourcesJSON, &metadataJSON, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan run result: %w", err)
		}
		r.ProcessingStatus = models.ProcessingStatus(status)
		if err := json.Unmarshal(sourcesJSON, &r.FinalSources); err != nil {
			return nil, fmt.Errorf("unmarshal final sources: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
