// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/cards"
)

// Scripts is an in-memory script source keyed by action id. It counts
// lookups so tests can assert a script was fetched once.
//
// Thread-safety: all methods are safe for concurrent use.
type Scripts struct {
	mu      sync.Mutex
	sources map[string]string
	fetches int
}

// NewScripts creates a script source holding the given id/source pairs.
func NewScripts(sources map[string]string) *Scripts {
	s := &Scripts{sources: make(map[string]string, len(sources))}
	for id, src := range sources {
		s.sources[id] = src
	}
	return s
}

// GetScriptByID returns the source of id, or "" when there is none.
func (s *Scripts) GetScriptByID(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	return s.sources[id], nil
}

// Fetches returns how many lookups were made.
func (s *Scripts) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Registry loads the built-in cards with a test logger, failing the test
// on any validation problem.
func Registry(t testing.TB) *card.Registry {
	t.Helper()
	reg, err := cards.Load(cards.Options{Logger: zaptest.NewLogger(t), Strict: true})
	require.NoError(t, err)
	return reg
}
