/*
store.go - Persistence interface for attendance state and preferences

PURPOSE:
  The engine persists two independent slots through an opaque key/value
  store: the serialized attendance snapshot and the theme preference.

BEST-EFFORT CONTRACT:
  Reads that fail fall back to defaults. Writes that fail are reported to
  the caller (wrapped in ErrPersist) but never undo the in-memory change.

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and dev
  - store/sqldb:  SQLite / PostgreSQL
*/
package attendance

import (
	"context"
	"errors"
)

// Slot keys.
const (
	StateKey = "attendance-risk-state"
	ThemeKey = "attendance-risk-theme"
)

// ErrPersist wraps every failed write to the key/value store.
var ErrPersist = errors.New("persist failed")

// KV is an opaque string key/value store.
type KV interface {
	// Get returns the value for key. ok is false when nothing is stored.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
