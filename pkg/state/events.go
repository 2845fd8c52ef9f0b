package state

import (
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// Events manipulates a refresh-counted event list in place. The lifecycle is
// the same for every domain: Age once at the start of a run, Seen/Add while
// records are examined, Sweep at the end, persist only when something
// changed.
//
// The counter treatment exists because the cluster API will occasionally
// drop records from one poll and return them again on the next. An event has
// to go unseen for EventResilience consecutive runs before its history entry
// is dropped and a reappearance would alert again.
type Events struct {
	Records []types.EventRecord
	changed bool
}

// Age decrements every record's refresh counter. Call once per run, before
// any records are observed.
func (e *Events) Age() {
	for i := range e.Records {
		e.Records[i].Refresh--
	}
}

// find returns the position of id, or -1.
func (e *Events) find(id types.FlexID) int {
	for i := range e.Records {
		if e.Records[i].Index == id {
			return i
		}
	}
	return -1
}

// Seen reports whether id already has a history entry. When it does, the
// refresh counter is restored; a restore from anything other than the
// just-aged value means the event had been missing and counts as a change.
func (e *Events) Seen(id types.FlexID) bool {
	i := e.find(id)
	if i < 0 {
		return false
	}
	if e.Records[i].Refresh != types.EventResilience-1 {
		e.changed = true
	}
	e.Records[i].Refresh = types.EventResilience
	return true
}

// Add appends a new history entry with a full refresh counter.
func (e *Events) Add(rec types.EventRecord) {
	rec.Refresh = types.EventResilience
	e.Records = append(e.Records, rec)
	e.changed = true
}

// Sweep removes entries whose refresh counter ran out, invoking onDelete for
// each. Entries that merely aged still mark the list as changed so the new
// counters are persisted.
func (e *Events) Sweep(onDelete func(types.EventRecord)) {
	kept := e.Records[:0]
	for _, rec := range e.Records {
		if rec.Refresh <= 0 {
			if onDelete != nil {
				onDelete(rec)
			}
			e.changed = true
			continue
		}
		if rec.Refresh != types.EventResilience {
			e.changed = true
		}
		kept = append(kept, rec)
	}
	e.Records = kept
}

// Changed reports whether the list needs persisting.
func (e *Events) Changed() bool {
	return e.changed
}
