// Package sessions stores one OAuth2 credential record per user session.
//
// [Store] is the get/set/delete contract consumed by the refresh gate. Backends:
//   - [MemoryStore] : process-local map, for tests and one-shot runs
//   - [RedisStore] : a hash per session under "<prefix>:<sessionID>"
//   - repositories.SessionRepository : the sessions table in SQLite
//
// All backends are safe for concurrent use and return [shared.ErrSessionNotFound] from Get
// for unknown ids.
package sessions

import (
	"context"

	"github.com/desertthunder/plsync/internal/models"
)

// Store is a durable credential store keyed by session id.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.Credential, error)
	Set(ctx context.Context, sessionID string, cred *models.Credential) error
	Delete(ctx context.Context, sessionID string) error
}
