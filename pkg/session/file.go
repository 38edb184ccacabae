package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const runsSuffix = ".runs.json"

// FileStore keeps one JSON file per session under a root directory, plus a
// sibling run-history file per session. Writes go through a per-session
// mutex, so concurrent runs against the same session serialize instead of
// clobbering each other.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory %q: %w", root, err)
	}
	return &FileStore{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[id]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// fileSession is the on-disk shape.
type fileSession struct {
	SessionID    string            `json:"session_id"`
	OwnerName    string            `json:"owner_name"`
	Conversation []Turn            `json:"conversation"`
	CreatedAt    time.Time         `json:"created_at"`
	LastUpdated  time.Time         `json:"last_updated"`
	MessageCount int               `json:"message_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, filepath.Base(id)+".json")
}

func (s *FileStore) runsPath(id string) string {
	return filepath.Join(s.root, filepath.Base(id)+runsSuffix)
}

func (s *FileStore) Load(_ context.Context, id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %q: %w", id, err)
	}

	var fs fileSession
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("failed to parse session %q: %w", id, err)
	}
	return &Session{
		ID:          fs.SessionID,
		Owner:       fs.OwnerName,
		Turns:       fs.Conversation,
		CreatedAt:   fs.CreatedAt,
		LastUpdated: fs.LastUpdated,
		Metadata:    fs.Metadata,
	}, nil
}

func (s *FileStore) Save(_ context.Context, sess *Session) error {
	l := s.lock(sess.ID)
	l.Lock()
	defer l.Unlock()

	data, err := json.MarshalIndent(fileSession{
		SessionID:    sess.ID,
		OwnerName:    sess.Owner,
		Conversation: sess.Turns,
		CreatedAt:    sess.CreatedAt,
		LastUpdated:  sess.LastUpdated,
		MessageCount: len(sess.Turns),
		Metadata:     sess.Metadata,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %q: %w", sess.ID, err)
	}
	return writeAtomic(s.path(sess.ID), data)
}

func (s *FileStore) SaveResult(_ context.Context, id string, rec *RunRecord) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	var records []RunRecord
	if data, err := os.ReadFile(s.runsPath(id)); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("failed to parse run history for %q: %w", id, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read run history for %q: %w", id, err)
	}
	records = append(records, *rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run history for %q: %w", id, err)
	}
	return writeAtomic(s.runsPath(id), data)
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, runsSuffix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	for _, p := range []string{s.path(id), s.runsPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session %q: %w", id, err)
		}
	}
	return nil
}

// writeAtomic writes through a temp file and rename, so readers never see a
// torn session file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
