package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"packforge/internal/packfs"
)

// StateFileName is the workflow state document inside a pack's qa/ directory.
const StateFileName = "workflow_state.json"

// Store persists workflow state as one JSON document per pack under
// <packDir>/qa/workflow_state.json.
//
// Saves are atomic (write to a temp file, then rename) so a crash mid-write
// never leaves a truncated state file behind, and a write-then-read
// round-trips field-for-field to support resumption.
type Store struct {
	packDir string
}

// NewStore creates a [Store] rooted at the given pack directory.
func NewStore(packDir string) *Store {
	return &Store{packDir: packDir}
}

// Path returns the full path of the state file.
func (st *Store) Path() string {
	return filepath.Join(st.packDir, packfs.QADir, StateFileName)
}

// Save writes the workflow state atomically, creating the qa/ directory if
// needed.
func (st *Store) Save(s *WorkflowState) error {
	if err := packfs.EnsureDir(filepath.Join(st.packDir, packfs.QADir)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	fullPath := st.Path()
	tmpPath := fullPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workflow state: %w", err)
	}

	return nil
}

// Load reads the persisted workflow state. It returns (nil, nil) when no
// state file exists, so callers can distinguish "fresh pack" from a real
// read or parse failure.
func (st *Store) Load() (*WorkflowState, error) {
	data, err := os.ReadFile(st.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workflow state: %w", err)
	}

	var s WorkflowState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse workflow state: %w", err)
	}

	return &s, nil
}
