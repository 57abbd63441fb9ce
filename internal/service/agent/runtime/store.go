package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// ArtifactStore holds named binary artifacts per session, in memory.
// Artifacts are read-only after upload; re-saving under the same name is
// rejected rather than silently overwriting the video under a live agent
// tree.
type ArtifactStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewArtifactStore creates an empty in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{data: make(map[string]map[string][]byte)}
}

// SaveArtifact stores an artifact for a session. Saving an existing name
// fails.
func (s *ArtifactStore) SaveArtifact(ctx context.Context, sessionID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.data[sessionID]
	if !ok {
		session = make(map[string][]byte)
		s.data[sessionID] = session
	}
	if _, exists := session[name]; exists {
		return fmt.Errorf("artifact %q already exists in session %s", name, sessionID)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	session[name] = stored
	return nil
}

// LoadArtifact returns the artifact bytes, or a not-found error.
func (s *ArtifactStore) LoadArtifact(ctx context.Context, sessionID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[sessionID][name]
	if !ok {
		return nil, fmt.Errorf("artifact %q in session %s: %w", name, sessionID, domain.ErrNotFound)
	}
	return data, nil
}

// SessionStore keeps per-agent conversation history and the output-key
// state slots for each session, in memory.
type SessionStore struct {
	mu        sync.RWMutex
	histories map[string][]domainllm.Message
	state     map[string]map[string]string
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		histories: make(map[string][]domainllm.Message),
		state:     make(map[string]map[string]string),
	}
}

func historyKey(sessionID, agentName string) string {
	return sessionID + "/" + agentName
}

// History returns a copy of the conversation history one agent has
// accumulated within a session.
func (s *SessionStore) History(sessionID, agentName string) []domainllm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.histories[historyKey(sessionID, agentName)]
	history := make([]domainllm.Message, len(stored))
	copy(history, stored)
	return history
}

// Append adds messages to an agent's history within a session.
func (s *SessionStore) Append(sessionID, agentName string, messages ...domainllm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := historyKey(sessionID, agentName)
	s.histories[key] = append(s.histories[key], messages...)
}

// SetState stores a value under an output key for a session.
func (s *SessionStore) SetState(sessionID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.state[sessionID]
	if !ok {
		session = make(map[string]string)
		s.state[sessionID] = session
	}
	session[key] = value
}

// State returns the value stored under an output key, if any.
func (s *SessionStore) State(sessionID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.state[sessionID][key]
	return value, ok
}
