package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/sessions"
	tu "github.com/desertthunder/plsync/internal/testing"
	"github.com/stretchr/testify/require"
)

const testSession = "session-1"

func makeURIs(prefix string, n int) []string {
	uris := make([]string, n)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:%s%d", prefix, i)
	}
	return uris
}

type engineFixture struct {
	provider  *tu.FakeProvider
	refresher *tu.FakeRefresher
	store     *sessions.MemoryStore
	gate      *auth.Gate
	engine    *Engine
}

// newFixture wires an engine to a fake provider with one stored session and no pacing.
func newFixture(t *testing.T, opts Options) *engineFixture {
	t.Helper()

	f := &engineFixture{
		provider: tu.NewFakeProvider(),
		store:    sessions.NewMemoryStore(),
	}
	f.refresher = &tu.FakeRefresher{
		Result:   &models.Credential{AccessToken: "at-refreshed", TokenType: "Bearer", ExpiresIn: 3600},
		Provider: f.provider,
	}
	require.NoError(t, f.store.Set(context.Background(), testSession, &models.Credential{
		AccessToken: "at-1", RefreshToken: "rt-1", TokenType: "Bearer", ExpiresIn: 3600,
	}))

	f.gate = auth.NewGate(f.store, f.refresher, services.ExpiryDetector{}, nil)
	f.engine = NewEngine(f.gate, f.provider, FixedDelay(0), opts, nil)
	return f
}

// recordingMutator records every mutation and fails the call at failAt (zero-based) when set.
type recordingMutator struct {
	appends []appendCall
	removes []removeCall
	failAt  int
	calls   int
}

type appendCall struct {
	uris     []string
	position int
}

type removeCall struct {
	refs     []models.TrackRef
	snapshot string
}

var errMutation = errors.New("mutation rejected")

func newRecordingMutator() *recordingMutator {
	return &recordingMutator{failAt: -1}
}

func (m *recordingMutator) next() (string, error) {
	n := m.calls
	m.calls++
	if n == m.failAt {
		return "", errMutation
	}
	return fmt.Sprintf("snap-%d", n+1), nil
}

func (m *recordingMutator) AddItems(_ context.Context, _ string, uris []string, position int) (string, error) {
	m.appends = append(m.appends, appendCall{uris: uris, position: position})
	return m.next()
}

func (m *recordingMutator) RemoveItems(_ context.Context, _ string, refs []models.TrackRef, snapshotID string) (string, error) {
	m.removes = append(m.removes, removeCall{refs: refs, snapshot: snapshotID})
	return m.next()
}

// countingPacer counts waits and returns err from the wait numbered failAt (one-based).
type countingPacer struct {
	waits  int
	failAt int
	err    error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	if p.failAt > 0 && p.waits == p.failAt {
		return p.err
	}
	return nil
}
