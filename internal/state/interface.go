// Package state provides SQLite-based session persistence for Compass.
package state

import (
	"io"

	"github.com/compass-pm/compass/pkg/models"
)

// SessionStore handles session-related persistence operations.
type SessionStore interface {
	CreateSession(id string) (*Session, error)
	GetSession(id string) (*Session, error)
	GetOrCreateSession(id string) (*Session, error)
	UpdateSessionState(id string, updates models.StateUpdates) error
}

// TurnStore handles the append-only turn log.
type TurnStore interface {
	AppendTurn(sessionID, query string, intent models.AgentName, sequence []models.AgentName) (int, error)
	GetRecentTurns(sessionID string, limit int) ([]Turn, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for session state persistence.
// The router works against this interface so tests can substitute an
// in-memory double; it composes focused sub-interfaces.
type Store interface {
	io.Closer
	Migrator
	SessionStore
	TurnStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ TurnStore    = (*DB)(nil)
)
