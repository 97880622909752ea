package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the client's session in exactly one scope. Clear is part
// of the logout contract: after Clear, Load must report no session.
type Store interface {
	Save(sess ClientSession) error
	Load() (ClientSession, bool, error)
	Clear() error
}

// MemoryStore is the session-only scope: the session vanishes with the
// process.
type MemoryStore struct {
	mu   sync.Mutex
	sess ClientSession
	set  bool
}

// NewMemoryStore builds an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(sess ClientSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.set = true
	return nil
}

func (s *MemoryStore) Load() (ClientSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, s.set, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = ClientSession{}
	s.set = false
	return nil
}

// FileStore is the persistent scope backing remember-me sessions. The
// file is written atomically (temp file, fsync, rename) with owner-only
// permissions so a crash never leaves a torn session file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a store persisting at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(sess ClientSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.path, data, 0o600)
}

func (s *FileStore) Load() (ClientSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ClientSession{}, false, nil
		}
		return ClientSession{}, false, err
	}

	var sess ClientSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return ClientSession{}, false, err
	}
	if sess.Token == "" {
		return ClientSession{}, false, nil
	}
	return sess, true, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ScopedStore routes sessions to the persistent or ephemeral scope
// based on the remember flag, replacing scattered direct storage
// calls. Clear always wipes both scopes.
type ScopedStore struct {
	persistent Store
	ephemeral  Store
}

// NewScopedStore combines a persistent and an ephemeral scope.
func NewScopedStore(persistent, ephemeral Store) *ScopedStore {
	return &ScopedStore{persistent: persistent, ephemeral: ephemeral}
}

// Save stores in exactly one scope and clears the other, so at most
// one stored session exists at a time.
func (s *ScopedStore) Save(sess ClientSession) error {
	if sess.Remember {
		if err := s.ephemeral.Clear(); err != nil {
			return err
		}
		return s.persistent.Save(sess)
	}
	if err := s.persistent.Clear(); err != nil {
		return err
	}
	return s.ephemeral.Save(sess)
}

// Load checks the ephemeral scope first, then the persistent one.
func (s *ScopedStore) Load() (ClientSession, bool, error) {
	if sess, ok, err := s.ephemeral.Load(); err != nil || ok {
		return sess, ok, err
	}
	return s.persistent.Load()
}

// Clear wipes both scopes; part of the logout contract.
func (s *ScopedStore) Clear() error {
	ephErr := s.ephemeral.Clear()
	perErr := s.persistent.Clear()
	if ephErr != nil {
		return ephErr
	}
	return perErr
}

// atomicWriteFile writes via a temp file in the same directory, syncs,
// then renames over the target so readers never observe a partial
// write.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".session-")
	if err != nil {
		return err
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if err := f.Chmod(perm); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return err
	}
	success = true
	return nil
}
