package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Snapshot is the persisted set of known events. A zero InitializedAt means
// no state has ever been saved, which makes the next run a bootstrap.
type Snapshot struct {
	Events        map[event.ID]event.Event
	InitializedAt time.Time
}

func NewSnapshot() Snapshot {
	return Snapshot{Events: make(map[event.ID]event.Event)}
}

func (s Snapshot) IsBootstrap() bool {
	return s.InitializedAt.IsZero()
}

// Store persists snapshots. Save replaces the previous state as a whole.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// Open returns the store selected by driver.
func Open(driver, statePath, dbPath string) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return NewJSONStore(statePath), nil
	case DriverSQLite:
		return OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown store driver '%s'", driver)
	}
}
