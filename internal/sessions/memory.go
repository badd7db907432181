package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// MemoryStore keeps credentials in a map. Records are copied on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Credential)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return &cred, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID string, cred *models.Credential) error {
	if sessionID == "" || cred == nil {
		return fmt.Errorf("%w: session id and credential are required", shared.ErrBadRequest)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = *cred
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
