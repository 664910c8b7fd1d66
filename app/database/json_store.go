package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

const jsonStateVersion = 1

var _ Store = (*JSONStore)(nil)

// JSONStore keeps the snapshot in a single human-readable JSON file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

type jsonState struct {
	Version       int                      `json:"version"`
	InitializedAt *time.Time               `json:"initialized_at,omitempty"`
	Events        map[event.ID]event.Event `json:"events"`
}

type looseState struct {
	InitializedAt *time.Time      `json:"initialized_at"`
	Events        json.RawMessage `json:"events"`
}

// Load reads the state file. A missing file is an empty, uninitialized
// snapshot. Besides the keyed form it accepts a bare array of events and an
// object whose events field is an array; IDs are always recomputed.
func (s *JSONStore) Load(ctx context.Context) (Snapshot, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to stat state file: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read state file: %w", err)
	}

	events, initializedAt, err := decodeState(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}

	snapshot := NewSnapshot()
	for _, e := range events {
		id := e.ID()
		if _, ok := snapshot.Events[id]; !ok {
			snapshot.Events[id] = e
		}
	}

	// A state file that exists was written by a completed run.
	snapshot.InitializedAt = info.ModTime().UTC()
	if initializedAt != nil && !initializedAt.IsZero() {
		snapshot.InitializedAt = *initializedAt
	}

	return snapshot, nil
}

func decodeState(data []byte) ([]event.Event, *time.Time, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, nil
	}

	if data[0] == '[' {
		var events []event.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, nil, err
		}
		return events, nil, nil
	}

	var state looseState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil, err
	}

	raw := bytes.TrimSpace(state.Events)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, state.InitializedAt, nil
	}

	if raw[0] == '[' {
		var events []event.Event
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, nil, err
		}
		return events, state.InitializedAt, nil
	}

	var keyed map[string]event.Event
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, nil, err
	}
	events := make([]event.Event, 0, len(keyed))
	for _, e := range keyed {
		events = append(events, e)
	}
	return events, state.InitializedAt, nil
}

// Save writes the snapshot atomically: a temp file in the same directory is
// synced and renamed over the previous state.
func (s *JSONStore) Save(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := jsonState{
		Version: jsonStateVersion,
		Events:  snapshot.Events,
	}
	if state.Events == nil {
		state.Events = map[event.ID]event.Event{}
	}
	if !snapshot.InitializedAt.IsZero() {
		initializedAt := snapshot.InitializedAt.UTC()
		state.InitializedAt = &initializedAt
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return writeFileAtomic(s.path, buf.Bytes())
}

func (s *JSONStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
