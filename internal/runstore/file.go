package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore persists run records in a local JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Close() error {
	return nil
}

// UpsertRun inserts or updates a run record.
func (s *FileStore) UpsertRun(ctx context.Context, record *RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid run record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}

	copied := *record
	state.Runs[record.ID] = &copied
	return s.saveLocked(state)
}

func (s *FileStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	record, ok := state.Runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

func (s *FileStore) ListRuns(ctx context.Context, filter *Filter) ([]*RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	runs := make([]*RunRecord, 0, len(state.Runs))
	for _, record := range state.Runs {
		if filter.Matches(record) {
			runs = append(runs, record)
		}
	}
	sortRuns(runs)
	return runs, nil
}

func (s *FileStore) ScanRunIDs(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	var ids []string
	for id := range state.Runs {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type fileState struct {
	Runs map[string]*RunRecord `json:"runs"`
}

func (s *FileStore) loadLocked() (fileState, error) {
	if s.path == "" {
		return emptyState(), errors.New("store path is required")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return fileState{}, err
	}
	if len(data) == 0 {
		return emptyState(), nil
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{}, fmt.Errorf("failed to parse run store %s: %w", s.path, err)
	}
	if state.Runs == nil {
		state.Runs = make(map[string]*RunRecord)
	}
	return state, nil
}

func (s *FileStore) saveLocked(state fileState) error {
	if s.path == "" {
		return errors.New("store path is required")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-runs-*.json")
	if err != nil {
		return err
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func emptyState() fileState {
	return fileState{
		Runs: make(map[string]*RunRecord),
	}
}
