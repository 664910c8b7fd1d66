package monitor

import (
	"time"

	"github.com/lysyi3m/screening-comb/app/database"
	"github.com/lysyi3m/screening-comb/app/event"
)

// Result is the outcome of merging one run's events into the stored state.
type Result struct {
	Store          database.Snapshot
	New            []event.Event
	Fresh          int
	Duplicates     int
	Pruned         int
	Bootstrap      bool
	BootstrapCount int
}

// Reconcile merges fresh events into prior and reports which ones were never
// seen before. Entries dated before cutoff are dropped from the returned
// store and are never new. prior is not modified. now stamps the state when
// prior has not been initialized.
func Reconcile(fresh []event.Event, prior database.Snapshot, cutoff event.Date, now time.Time) Result {
	keyed := make(map[event.ID]event.Event, len(fresh))
	order := make([]event.ID, 0, len(fresh))

	var result Result
	for _, e := range fresh {
		id := e.ID()
		if _, ok := keyed[id]; ok {
			result.Duplicates++
			continue
		}
		keyed[id] = e
		order = append(order, id)
	}
	result.Fresh = len(order)

	for _, id := range order {
		if _, known := prior.Events[id]; !known && !keyed[id].PlayDate.Before(cutoff) {
			result.New = append(result.New, keyed[id])
		}
	}

	store := database.Snapshot{
		Events:        make(map[event.ID]event.Event, len(prior.Events)+len(keyed)),
		InitializedAt: prior.InitializedAt,
	}
	for id, e := range prior.Events {
		store.Events[id] = e
	}
	for _, id := range order {
		if _, ok := store.Events[id]; !ok {
			store.Events[id] = keyed[id]
		}
	}

	for id, e := range store.Events {
		if e.PlayDate.Before(cutoff) {
			delete(store.Events, id)
			result.Pruned++
		}
	}

	if prior.IsBootstrap() {
		result.Bootstrap = true
		for _, id := range order {
			if _, ok := store.Events[id]; ok {
				result.BootstrapCount++
			}
		}
		result.New = nil
		store.InitializedAt = now.UTC()
	}

	result.Store = store
	return result
}
