package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/sessions"
	"github.com/desertthunder/plsync/internal/shared"
)

// SessionRepository stores credential records in the sessions table.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ sessions.Store = (*SessionRepository)(nil)

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Get returns the credential stored for sessionID.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.Credential, error) {
	query := `
		SELECT access_token, refresh_token, token_type, scope, expires_in, issued_at
		FROM sessions
		WHERE id = ?
	`

	var cred models.Credential
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.TokenType,
		&cred.Scope,
		&cred.ExpiresIn,
		&cred.IssuedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &cred, nil
}

// Set inserts or replaces the credential for sessionID.
func (r *SessionRepository) Set(ctx context.Context, sessionID string, cred *models.Credential) error {
	if sessionID == "" || cred == nil {
		return fmt.Errorf("%w: session id and credential are required", shared.ErrBadRequest)
	}

	now := r.now().UTC()
	query := `
		INSERT INTO sessions (id, access_token, refresh_token, token_type, scope, expires_in, issued_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			scope = excluded.scope,
			expires_in = excluded.expires_in,
			issued_at = excluded.issued_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		sessionID,
		cred.AccessToken,
		cred.RefreshToken,
		cred.TokenType,
		cred.Scope,
		cred.ExpiresIn,
		cred.IssuedAt,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns every stored session id, most recently updated first.
func (r *SessionRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM sessions ORDER BY updated_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}
