// Package session keeps short-lived conversational state per session:
// a bounded buffer of recent turns and a small scratch key-value area.
// State lives in memory only; sessions vanish on process exit.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultCapacity is the number of turns retained per session when the
// caller does not configure one.
const DefaultCapacity = 6

// Reserved scratch keys for transport and report layers tracking
// per-session document state.
const (
	KeyActiveDocument = "active_document"
	KeySectionList    = "section_list"
	KeyLastReportPath = "last_report_path"
)

// Turn is one utterance in a session.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// session holds one session's state. Mutated under the Store's lock.
type session struct {
	turns   []Turn
	scratch map[string]string
}

// Store holds all sessions. Safe for concurrent use.
type Store struct {
	capacity int
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewStore creates a Store retaining up to capacity turns per session.
// A non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int, logger *slog.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		capacity: capacity,
		logger:   logger.With("component", "session"),
		sessions: make(map[string]*session),
	}
}

// RecordTurn appends a turn, evicting the oldest when the session is at
// capacity. Unknown session IDs create a fresh session.
func (s *Store) RecordTurn(id, role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	sess.turns = append(sess.turns, Turn{Role: role, Text: text})
	if len(sess.turns) > s.capacity {
		sess.turns = sess.turns[len(sess.turns)-s.capacity:]
	}
}

// Turns returns a copy of the session's retained turns, oldest first.
// An unknown session has no turns.
func (s *Store) Turns(id string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Set stores a scratch value for the session.
func (s *Store) Set(id, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).scratch[key] = value
}

// Get returns a scratch value and whether it was present.
func (s *Store) Get(id, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	v, ok := sess.scratch[key]
	return v, ok
}

// Reset discards the session's turns and scratch state. Resetting an
// unknown session is a no-op.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	s.logger.Debug("session reset", "session_id", id)
}

// get returns the session, creating it when absent. Caller holds s.mu.
func (s *Store) get(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{scratch: make(map[string]string)}
		s.sessions[id] = sess
	}
	return sess
}

// RewriteQuery folds recent conversational context into a standalone
// retrieval query: the last two user turns joined by a space, then the
// current question on its own line. A query with no prior user turns is
// returned unchanged.
func RewriteQuery(query string, turns []Turn) string {
	var userTurns []string
	for _, t := range turns {
		if t.Role == RoleUser {
			userTurns = append(userTurns, t.Text)
		}
	}
	if len(userTurns) == 0 {
		return query
	}
	if len(userTurns) > 2 {
		userTurns = userTurns[len(userTurns)-2:]
	}
	return fmt.Sprintf("%s\nCurrent question: %s", strings.Join(userTurns, " "), query)
}
