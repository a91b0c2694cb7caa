package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultMaxTurns is the FIFO bound applied when Config.MaxTurns is zero.
	DefaultMaxTurns = 10

	// DefaultMaxHistoryChars is the transcript cap applied when
	// History is called with maxChars <= 0.
	DefaultMaxHistoryChars = 2000
)

// Config contains Store parameters.
type Config struct {
	// MaxTurns bounds the number of retained turns per session.
	// Zero uses DefaultMaxTurns.
	MaxTurns int

	// Logger for debugging (nil = slog.Default()).
	Logger *slog.Logger
}

// Store is an in-memory session store keyed by Discord channel/user id.
// It is injected into handlers rather than held as ambient state.
//
// Store is safe for concurrent use by multiple goroutines. An unknown or
// empty session id behaves as an empty session on every accessor, never an
// error.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	locks    map[string]*sync.Mutex

	maxTurns int
	logger   *slog.Logger
	now      func() time.Time // injectable for tests
}

// NewStore creates a session store.
func NewStore(cfg Config) *Store {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*state),
		locks:    make(map[string]*sync.Mutex),
		maxTurns: maxTurns,
		logger:   logger,
		now:      time.Now,
	}
}

// Acquire locks the per-session command mutex and returns the unlock
// function. Handlers hold it for the duration of one command so that a
// reset cannot interleave with an in-flight ask on the same session.
func (s *Store) Acquire(sessionID string) func() {
	s.mu.Lock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Record appends a turn to the session, evicting the oldest turn once the
// configured maximum is exceeded. The session is created on first use.
func (s *Store) Record(sessionID, query, answer string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(sessionID)
	st.turns = append(st.turns, Turn{Query: query, Answer: answer, At: s.now()})
	if over := len(st.turns) - s.maxTurns; over > 0 {
		st.turns = append(st.turns[:0:0], st.turns[over:]...)
	}
}

// Turns returns a copy of the session's recorded turns, oldest first.
func (s *Store) Turns(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// AddSource records an ingested source reference. Sources are unique by
// label within a session: re-adding a label refreshes its timestamp
// instead of duplicating the entry.
func (s *Store) AddSource(sessionID string, src Source) {
	if sessionID == "" || src.Label == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(sessionID)
	src.AddedAt = s.now()
	for i, existing := range st.sources {
		if existing.Label == src.Label {
			st.sources[i] = src
			return
		}
	}
	st.sources = append(st.sources, src)
	s.logger.Debug("recorded source", "session", sessionID, "label", src.Label, "kind", src.Kind)
}

// RecentSources returns the sources ingested within the recency window,
// oldest first. A non-positive window returns every source.
func (s *Store) RecentSources(sessionID string, window time.Duration) []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	cutoff := s.now().Add(-window)
	var out []Source
	for _, src := range st.sources {
		if window <= 0 || !src.AddedAt.Before(cutoff) {
			out = append(out, src)
		}
	}
	return out
}

// SetConversationID stores the platform-side conversation identifier
// returned by an agent run, so the next run in this session threads it.
func (s *Store) SetConversationID(sessionID, conversationID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(sessionID).conversationID = conversationID
}

// ConversationID returns the platform conversation identifier, or "" for
// a fresh or unknown session.
func (s *Store) ConversationID(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st.conversationID
	}
	return ""
}

// Reset clears all turns and source references for the session.
// Resetting an unknown session is a no-op.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	s.logger.Debug("reset session", "session", sessionID)
}

// History renders the session transcript as alternating "User:" and
// "Assistant:" lines, truncated from the front to at most maxChars.
// maxChars <= 0 uses DefaultMaxHistoryChars.
func (s *Store) History(sessionID string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxHistoryChars
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok || len(st.turns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, turn := range st.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("User: ")
		b.WriteString(turn.Query)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
	}
	text := b.String()
	if len(text) > maxChars {
		text = text[len(text)-maxChars:]
		// Keep trimming until the cut lands on a rune boundary.
		for len(text) > 0 && !utf8.RuneStart(text[0]) {
			text = text[1:]
		}
	}
	return text
}

// ensure returns the session state, creating it if absent.
// Caller must hold s.mu for writing.
func (s *Store) ensure(sessionID string) *state {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	return st
}
