/*
Package state persists engine state between polling runs.

Per-domain event histories, cluster system status, the replication transfer
watchlist, matching-conditions documents, dispatcher failure counters and
audit ingestion watermarks are all stored as named JSON blobs through a
blob.Store, so the same code runs against S3 or a local bbolt file.

# Architecture

	┌────────────────────── STATE STORE ───────────────────────┐
	│                                                            │
	│   Store (typed accessors)                                  │
	│   ├── Events / SaveEvents          <cluster>-<domain>      │
	│   ├── SystemStatus / Save...       <cluster>-systemStatus  │
	│   ├── Watchlist / Save...          <cluster>-smRelationships│
	│   ├── Conditions / Save...         <cluster>-conditions    │
	│   ├── FailureCounters / Save...    monitor-failure-counters│
	│   └── AuditPositions / Save...     audit watermark blob    │
	│                          │                                 │
	│                          ▼                                 │
	│                 blob.Store (S3 or bbolt)                   │
	└──────────────────────────────────────────────────────────┘

# Core Components

Store:
  - Wraps a blob.Store with one accessor pair per record kind
  - Missing blobs come back as empty values, not errors, except for
    Conditions and SystemStatus where the caller needs to know
  - IsDecodeError distinguishes corrupt blobs from unreachable storage

Events:
  - An event history with refresh counting
  - Age decrements every record; Seen resets a record's counter to
    types.EventResilience; Add inserts a new record at full strength
  - Sweep removes exhausted records and reports each one removed
  - Changed tells callers whether the history needs persisting

# Event Lifecycle

A finding's identifier is added on first sight and the alert fires. Every
later pass that still sees the finding refreshes the counter; every pass
that does not decrements it. After types.EventResilience consecutive
absences the record is swept, and the next occurrence alerts again. This
keeps one flapping condition from alerting on every pass while still
re-alerting conditions that genuinely come back.

# Usage

	events, err := states.Events(ctx, cfg.EMSEventsFilename)
	if err != nil {
		return err
	}
	events.Age()
	// ... evaluators call events.Seen / events.Add ...
	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s", rec.Index)
	})
	if events.Changed() {
		return states.SaveEvents(ctx, cfg.EMSEventsFilename, events)
	}

# See Also

  - pkg/blob for the underlying byte store
  - pkg/types for the record shapes and EventResilience
  - pkg/monitor for the evaluators driving these histories
*/
package state
