// Package opstate persists the orchestrator-owned state record: the reset
// flag armed by an operator and a summary of the most recent update run.
package opstate

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/stewardhq/steward/util"
)

// UpdateSummary captures the outcome of one update run for later inspection.
type UpdateSummary struct {
	RunID        string    `json:"run_id"`
	Success      bool      `json:"success"`
	FailedPhase  string    `json:"failed_phase,omitempty"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
	Rollback     string    `json:"rollback,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Record is the persisted state. ResetStateOnUpdate requests destructive
// state clearing on the next update; the orchestrator consumes it exactly
// once per successful arm.
type Record struct {
	ResetStateOnUpdate bool           `json:"reset_state_on_update"`
	LastUpdate         *UpdateSummary `json:"last_update,omitempty"`
}

// Store manages the state record file with atomic writes. A missing file
// reads as the zero record.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the state record file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current record. A missing file is not an error.
func (s *Store) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Record, error) {
	var rec Record
	err := util.ReadJson(s.path, &rec)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load state record %s: %w", s.path, err)
	}
	return rec, nil
}

// Save replaces the record on disk.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(rec)
}

func (s *Store) save(rec Record) error {
	if err := util.WriteJson(s.path, &rec); err != nil {
		return fmt.Errorf("save state record %s: %w", s.path, err)
	}
	return nil
}

// Mutate performs a read-modify-write of the record under the store lock.
func (s *Store) Mutate(fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(&rec); err != nil {
		return err
	}

	return s.save(rec)
}
