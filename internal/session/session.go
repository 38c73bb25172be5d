// Package session holds per-conversation state: the accumulated message
// history and the turn lock. A session lives from conversation start to
// teardown; turn state records are created and discarded per turn.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/haandol/open-perplexity/internal/models"
)

type Session struct {
	ID string

	mu       sync.Mutex
	messages []models.Message
}

func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Turn serializes one user turn against the session: it appends the
// user message, builds a fresh state record from the history, runs fn,
// and appends the assistant reply fn produced. Concurrent turns on the
// same session queue up here; the shared state record is not safe for
// interleaving. The user message stays in history even when the turn
// fails, matching what the user saw on screen.
func (s *Session) Turn(userInput string, fn func(state *models.State) (reply string, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, models.Message{Role: models.RoleUser, Content: userInput})
	state := models.NewState(userInput, s.messages)
	reply, err := fn(state)
	if err != nil {
		return err
	}
	s.messages = append(s.messages, models.Message{Role: models.RoleAssistant, Content: reply})
	return nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Manager tracks live sessions. Sessions are independent; different
// sessions may run turns fully in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*Session{}}
}

func (m *Manager) Create() *Session {
	s := New()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
