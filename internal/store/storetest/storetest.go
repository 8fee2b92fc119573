// Package storetest opens migrated in-memory stores for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/store"
)

// DSN is an in-memory SQLite database with foreign keys enforced.
const DSN = "file::memory:?_pragma=foreign_keys(1)"

// New returns a fresh migrated store closed at the end of the test.
func New(t testing.TB) *store.Store {
	t.Helper()

	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite", DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx, nil))
	return s
}
