// Package state persists per-descriptor pipeline state as one JSON
// marker file per descriptor id. Writes go through a temporary file and
// an atomic rename; a per-descriptor mutex serializes writers so
// concurrent chains never corrupt the store.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/validator"
)

// FileStore implements ports.StateStore on a directory of JSON records.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create state dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Load returns the persisted state for the descriptor, or a fresh
// NOT_STARTED record when none exists. Unreadable or inconsistent
// records surface as state corruption and require a manual Reset.
func (s *FileStore) Load(descriptorID string) (domain.State, error) {
	lock := s.lockFor(descriptorID)
	lock.Lock()
	defer lock.Unlock()

	path, err := s.recordPath(descriptorID)
	if err != nil {
		return domain.State{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.NewState(descriptorID), nil
	}
	if err != nil {
		return domain.State{}, errors.Wrapf(errors.ErrStateCorrupt, "cannot read %s: %v", path, err)
	}

	var st domain.State
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.State{}, errors.Wrapf(errors.ErrStateCorrupt, "cannot parse %s: %v", path, err)
	}
	if st.DescriptorID != descriptorID || !st.Stage.IsValid() {
		return domain.State{}, errors.Wrapf(errors.ErrStateCorrupt,
			"record %s is inconsistent (id=%q stage=%q)", path, st.DescriptorID, st.Stage)
	}
	return st, nil
}

// Save persists the record atomically, replacing any previous one.
func (s *FileStore) Save(st domain.State) error {
	lock := s.lockFor(st.DescriptorID)
	lock.Lock()
	defer lock.Unlock()

	path, err := s.recordPath(st.DescriptorID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot commit state: %w", err)
	}
	return nil
}

// Reset removes the descriptor's record so it restarts from scratch.
func (s *FileStore) Reset(descriptorID string) error {
	lock := s.lockFor(descriptorID)
	lock.Lock()
	defer lock.Unlock()

	path, err := s.recordPath(descriptorID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot reset state: %w", err)
	}
	return nil
}

// lockFor devuelve el mutex del descriptor, creándolo si hace falta.
func (s *FileStore) lockFor(descriptorID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[descriptorID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[descriptorID] = lock
	}
	return lock
}

func (s *FileStore) recordPath(descriptorID string) (string, error) {
	if !validator.IsIdent(descriptorID) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, descriptorID)
	}
	return filepath.Join(s.dir, descriptorID+".json"), nil
}
