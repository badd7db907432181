// Package auth keeps provider calls authorized. [Gate] retries a call once after refreshing
// an expired access token; [Client] binds a gate to one session for a chain of calls.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/sessions"
	"github.com/desertthunder/plsync/internal/shared"
)

// Operation is one unit of provider work performed with cred.
type Operation func(ctx context.Context, cred *models.Credential) error

// Refresher mints a new access credential from a refresh token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.Credential, error)
}

// ExpiryDetector decides whether a provider error means the access token expired.
type ExpiryDetector interface {
	IsTokenExpired(err error) bool
}

// DetectorFunc adapts a function to [ExpiryDetector].
type DetectorFunc func(err error) bool

func (f DetectorFunc) IsTokenExpired(err error) bool { return f(err) }

// Gate runs operations and recovers from exactly one expired access token per call.
type Gate struct {
	store     sessions.Store
	refresher Refresher
	detector  ExpiryDetector
	logger    *log.Logger
}

// NewGate creates a gate. A nil logger discards output.
func NewGate(store sessions.Store, refresher Refresher, detector ExpiryDetector, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Gate{store: store, refresher: refresher, detector: detector, logger: logger}
}

// Load reads the credential of sessionID. An unknown session is [shared.ErrNotAuthenticated].
func (g *Gate) Load(ctx context.Context, sessionID string) (*models.Credential, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: no session, log in first", shared.ErrNotAuthenticated)
	}

	cred, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Execute runs op with cred. If op fails with an expired token, the credential is
// refreshed, written back under sessionID and op runs exactly once more; that second
// result is returned as is. If the refresh fails the session is deleted and the error
// matches [shared.ErrSessionInvalid].
//
// The returned credential is the one the last attempt used.
func (g *Gate) Execute(ctx context.Context, sessionID string, cred *models.Credential, op Operation) (*models.Credential, error) {
	if cred == nil {
		return nil, shared.ErrNotAuthenticated
	}

	err := op(ctx, cred)
	if err == nil || !g.detector.IsTokenExpired(err) {
		return cred, err
	}

	logger := shared.WithLogger(g.logger, "session", shared.ShortID(sessionID))
	logger.Info("access token expired, refreshing")

	refreshed, err := g.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, g.invalidate(ctx, logger, sessionID, err)
	}

	merged := cred.Merge(*refreshed)
	if err := g.store.Set(ctx, sessionID, &merged); err != nil {
		return nil, g.invalidate(ctx, logger, sessionID, fmt.Errorf("failed to persist refreshed credential: %w", err))
	}
	logger.Info("access token refreshed", "expires_in", merged.ExpiresIn)

	return &merged, op(ctx, &merged)
}

func (g *Gate) invalidate(ctx context.Context, logger *log.Logger, sessionID string, cause error) error {
	logger.Warn("refresh failed, deleting session", "err", cause)

	if err := g.store.Delete(ctx, sessionID); err != nil {
		logger.Error("failed to delete session", "err", err)
	}
	return fmt.Errorf("%w: %w", shared.ErrSessionInvalid, cause)
}
