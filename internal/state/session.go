package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/compass-pm/compass/pkg/models"
)

// Session is the durable record of one conversation. Sessions are
// created on first use, mutated only through state patches, and never
// deleted.
type Session struct {
	ID            string               `json:"id"`
	ProblemState  models.ProblemState  `json:"problem_state"`
	DecisionState models.DecisionState `json:"decision_state"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Turn is one entry in the append-only turn log.
type Turn struct {
	SessionID  string             `json:"session_id"`
	TurnNumber int                `json:"turn_number"`
	Query      string             `json:"query"`
	Intent     models.AgentName   `json:"intent"`
	Sequence   []models.AgentName `json:"sequence"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewSessionID generates an opaque session identifier.
func NewSessionID() string {
	return fmt.Sprintf("ses-%s", uuid.New().String()[:12])
}

// CreateSession inserts a new session with default state and returns it.
// If id is empty a fresh opaque id is generated.
func (db *DB) CreateSession(id string) (*Session, error) {
	if id == "" {
		id = NewSessionID()
	}

	s := &Session{
		ID:            id,
		ProblemState:  models.ProblemUndefined,
		DecisionState: models.DecisionNone,
		CreatedAt:     time.Now(),
	}

	_, err := db.Exec(`
		INSERT INTO sessions (id, problem_state, decision_state, created_at)
		VALUES (?, ?, ?, ?)
	`, s.ID, string(s.ProblemState), string(s.DecisionState), formatTime(s.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when the
// session does not exist.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, problem_state, decision_state, created_at
		FROM sessions WHERE id = ?
	`, id)

	var s Session
	var createdAt string
	err := row.Scan(&s.ID, &s.ProblemState, &s.DecisionState, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.CreatedAt, _ = parseTime(createdAt)
	return &s, nil
}

// GetOrCreateSession resolves a session id to a usable session,
// creating one when the id is unknown or empty. This call never fails
// to produce a session short of a storage error.
func (db *DB) GetOrCreateSession(id string) (*Session, error) {
	if id != "" {
		s, err := db.GetSession(id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	return db.CreateSession(id)
}

// UpdateSessionState applies a partial state patch. Unset fields in
// the patch leave the stored value unchanged. Applying the same patch
// twice is a no-op, so retries are safe.
func (db *DB) UpdateSessionState(id string, updates models.StateUpdates) error {
	if updates.Empty() {
		return nil
	}

	if updates.ProblemState != "" {
		if !updates.ProblemState.Valid() {
			return fmt.Errorf("invalid problem state: %q", updates.ProblemState)
		}
		if _, err := db.Exec(
			"UPDATE sessions SET problem_state = ? WHERE id = ?",
			string(updates.ProblemState), id,
		); err != nil {
			return fmt.Errorf("update problem state: %w", err)
		}
	}

	if updates.DecisionState != "" {
		if !updates.DecisionState.Valid() {
			return fmt.Errorf("invalid decision state: %q", updates.DecisionState)
		}
		if _, err := db.Exec(
			"UPDATE sessions SET decision_state = ? WHERE id = ?",
			string(updates.DecisionState), id,
		); err != nil {
			return fmt.Errorf("update decision state: %w", err)
		}
	}

	return nil
}

// AppendTurn records a turn with the next per-session turn number and
// returns that number. Numbering starts at 1 and increases by exactly
// one per recorded turn. The MAX+1 read and the insert share one
// transaction so numbering stays strictly increasing.
func (db *DB) AppendTurn(sessionID, query string, intent models.AgentName, sequence []models.AgentName) (int, error) {
	seqJSON, err := json.Marshal(sequence)
	if err != nil {
		return 0, fmt.Errorf("marshal sequence: %w", err)
	}

	var turnNumber int
	err = db.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			"SELECT COALESCE(MAX(turn_number), 0) FROM turns WHERE session_id = ?",
			sessionID,
		)
		var maxTurn int
		if err := row.Scan(&maxTurn); err != nil {
			return fmt.Errorf("get max turn number: %w", err)
		}

		turnNumber = maxTurn + 1
		_, err := tx.Exec(`
			INSERT INTO turns (session_id, turn_number, query, intent, sequence, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, turnNumber, query, string(intent), string(seqJSON), formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return turnNumber, nil
}

// GetRecentTurns returns up to limit turns for a session, fetched
// newest-first and returned oldest-first.
func (db *DB) GetRecentTurns(sessionID string, limit int) ([]Turn, error) {
	rows, err := db.Query(`
		SELECT session_id, turn_number, query, intent, sequence, created_at
		FROM turns WHERE session_id = ?
		ORDER BY turn_number DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var sequence, createdAt string
		if err := rows.Scan(&t.SessionID, &t.TurnNumber, &t.Query, &t.Intent, &sequence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(sequence), &t.Sequence); err != nil {
			return nil, fmt.Errorf("unmarshal sequence: %w", err)
		}
		t.CreatedAt, _ = parseTime(createdAt)
		turns = append(turns, t)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ListSessions lists all sessions, newest first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, problem_state, decision_state, created_at
		FROM sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProblemState, &s.DecisionState, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.CreatedAt, _ = parseTime(createdAt)
		sessions = append(sessions, s)
	}
	return sessions, nil
}
