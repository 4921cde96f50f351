package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StoredSession is the persisted shape of a session. Field names mirror the
// client storage keys the portal has always used.
type StoredSession struct {
	Token     string    `json:"token"`
	Principal Principal `json:"principal"`
	IssuedAt  time.Time `json:"sessionIssuedAt"`
}

// TokenStore persists the current session record between process runs. Load
// returns (nil, nil) when no session is stored; malformed data is the
// store's problem to report and the caller's to degrade from.
type TokenStore interface {
	Load(ctx context.Context) (*StoredSession, error)
	Save(ctx context.Context, session *StoredSession) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the session in process memory. Useful for tests
// and ephemeral browsing contexts.
type MemoryTokenStore struct {
	mu      sync.Mutex
	session *StoredSession
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(context.Context) (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copy := *s.session
	return &copy, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, session *StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session == nil {
		s.session = nil
		return nil
	}
	copy := *session
	s.session = &copy
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// FileTokenStore persists the session as a JSON document, one file per
// browsing context. Writes go through a temp file plus rename so a crash
// never leaves a half-written session behind.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load(context.Context) (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	session := &StoredSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *FileTokenStore) Save(_ context.Context, session *StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session == nil {
		return s.clearLocked()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *FileTokenStore) clearLocked() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
