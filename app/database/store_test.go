package database

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

func testEvents(t *testing.T) []event.Event {
	t.Helper()

	date, err := event.ParseDate("2024-06-15")
	if err != nil {
		t.Fatal(err)
	}

	return []event.Event{
		{MovieTitle: "영화제목A", VenueName: "CGV 강남", Type: event.TypeStageGreeting, PlayDate: date, StartTime: "14:30", Hall: "3관", Vendor: "cgv", RemainingSeats: 12, TotalSeats: 180},
		{MovieTitle: "영화제목B", VenueName: "메가박스 코엑스", Type: "GV", PlayDate: date.AddDays(1), StartTime: "19:00", Vendor: "megabox"},
	}
}

func snapshotOf(events []event.Event, initializedAt time.Time) Snapshot {
	s := NewSnapshot()
	for _, e := range events {
		s.Events[e.ID()] = e
	}
	s.InitializedAt = initializedAt
	return s
}

func assertSameSnapshot(t *testing.T, want, got Snapshot) {
	t.Helper()

	if len(got.Events) != len(want.Events) {
		t.Fatalf("Expected %d events, got %d", len(want.Events), len(got.Events))
	}
	for id, e := range want.Events {
		if got.Events[id] != e {
			t.Errorf("Event %s: expected %+v, got %+v", id, e, got.Events[id])
		}
	}
	if !got.InitializedAt.Equal(want.InitializedAt) {
		t.Errorf("Expected initialized at %v, got %v", want.InitializedAt, got.InitializedAt)
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "events.json"))

	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !snapshot.IsBootstrap() {
		t.Error("Expected missing file to mean bootstrap")
	}
	if len(snapshot.Events) != 0 {
		t.Errorf("Expected no events, got %d", len(snapshot.Events))
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	store := NewJSONStore(path)
	ctx := context.Background()

	want := snapshotOf(testEvents(t), time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameSnapshot(t, want, got)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("Expected no temp files, got %v", leftovers)
	}
}

func TestJSONStoreKeyedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	store := NewJSONStore(path)

	events := testEvents(t)
	if err := store.Save(context.Background(), snapshotOf(events[:1], time.Now())); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var raw struct {
		Version int                        `json:"version"`
		Events  map[string]json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("State file is not valid JSON: %v", err)
	}
	if raw.Version != 1 {
		t.Errorf("Expected version 1, got %d", raw.Version)
	}
	if _, ok := raw.Events[string(events[0].ID())]; !ok {
		t.Errorf("Expected events keyed by ID, got keys %v", raw.Events)
	}
}

func TestJSONStoreLoadsSimpleForms(t *testing.T) {
	events := testEvents(t)
	list, err := json.Marshal(events)
	if err != nil {
		t.Fatal(err)
	}

	forms := map[string]string{
		"array":           string(list),
		"object of array": `{"events": ` + string(list) + `}`,
	}

	for name, content := range forms {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.json")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}

			snapshot, err := NewJSONStore(path).Load(context.Background())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(snapshot.Events) != len(events) {
				t.Fatalf("Expected %d events, got %d", len(events), len(snapshot.Events))
			}
			for _, e := range events {
				if _, ok := snapshot.Events[e.ID()]; !ok {
					t.Errorf("Expected recomputed ID %s", e.ID())
				}
			}
			if snapshot.IsBootstrap() {
				t.Error("Expected an existing state file not to be a bootstrap")
			}
		})
	}
}

func TestJSONStoreEmptyEventsIsNotBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	store := NewJSONStore(path)

	if err := store.Save(context.Background(), snapshotOf(nil, time.Now())); err != nil {
		t.Fatal(err)
	}

	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.IsBootstrap() {
		t.Error("Expected empty but initialized store not to be a bootstrap")
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewJSONStore(path).Load(context.Background()); err == nil {
		t.Error("Expected error for corrupt state file")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !empty.IsBootstrap() || len(empty.Events) != 0 {
		t.Errorf("Expected empty bootstrap snapshot, got %+v", empty)
	}

	events := testEvents(t)
	want := snapshotOf(events, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameSnapshot(t, want, got)

	// Save replaces rather than merges.
	smaller := snapshotOf(events[:1], want.InitializedAt)
	if err := store.Save(ctx, smaller); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameSnapshot(t, smaller, got)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	want := snapshotOf(testEvents(t), time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assertSameSnapshot(t, want, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(DriverJSON, filepath.Join(dir, "events.json"), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*JSONStore); !ok {
		t.Errorf("Expected *JSONStore, got %T", store)
	}

	if _, err := Open("postgres", "", ""); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
