package state

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// Store wraps a blob.Store with typed accessors for the engine's state
// blobs. Missing blobs are first-run conditions for most state and are
// reported as empty values; SystemStatus and Conditions surface the
// distinction because their callers behave differently on first run.
type Store struct {
	blobs blob.Store
}

// New creates a typed state store over blobs.
func New(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Events loads an event history blob. A missing blob is an empty history.
func (s *Store) Events(ctx context.Context, key string) (*Events, error) {
	var records []types.EventRecord
	err := blob.GetJSON(ctx, s.blobs, key, &records)
	if errors.Is(err, blob.ErrNotFound) {
		return &Events{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Events{Records: records}, nil
}

// SaveEvents persists an event history blob.
func (s *Store) SaveEvents(ctx context.Context, key string, events *Events) error {
	records := events.Records
	if records == nil {
		records = []types.EventRecord{}
	}
	return blob.PutJSON(ctx, s.blobs, key, records)
}

// SystemStatus loads the cluster status blob. found is false when the blob
// does not exist yet; the caller seeds a first-run status and persists it.
func (s *Store) SystemStatus(ctx context.Context, key string) (*types.SystemStatus, bool, error) {
	var status types.SystemStatus
	err := blob.GetJSON(ctx, s.blobs, key, &status)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &status, true, nil
}

// SaveSystemStatus persists the cluster status blob.
func (s *Store) SaveSystemStatus(ctx context.Context, key string, status *types.SystemStatus) error {
	return blob.PutJSON(ctx, s.blobs, key, status)
}

// Watchlist loads the replication transfer watchlist. A missing blob is an
// empty watchlist.
func (s *Store) Watchlist(ctx context.Context, key string) ([]types.TransferRecord, error) {
	var records []types.TransferRecord
	err := blob.GetJSON(ctx, s.blobs, key, &records)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveWatchlist persists the replication transfer watchlist.
func (s *Store) SaveWatchlist(ctx context.Context, key string, records []types.TransferRecord) error {
	if records == nil {
		records = []types.TransferRecord{}
	}
	return blob.PutJSON(ctx, s.blobs, key, records)
}

// Conditions loads a matching-conditions document. Errors are returned
// unwrapped so callers can tell a missing blob (synthesize defaults), a
// malformed document (skip the run) and a store failure (abort) apart with
// errors.Is and IsDecodeError.
func (s *Store) Conditions(ctx context.Context, key string) (*types.Conditions, error) {
	var conditions types.Conditions
	if err := blob.GetJSON(ctx, s.blobs, key, &conditions); err != nil {
		return nil, err
	}
	return &conditions, nil
}

// SaveConditions persists a conditions document, indented so operators can
// edit the stored copy.
func (s *Store) SaveConditions(ctx context.Context, key string, conditions *types.Conditions) error {
	return blob.PutJSONIndent(ctx, s.blobs, key, conditions)
}

// FailureCounters loads the dispatcher's per-cluster consecutive-failure
// counters. A missing blob is an empty map.
func (s *Store) FailureCounters(ctx context.Context, key string) (map[string]int, error) {
	counters := map[string]int{}
	err := blob.GetJSON(ctx, s.blobs, key, &counters)
	if errors.Is(err, blob.ErrNotFound) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	return counters, nil
}

// SaveFailureCounters persists the dispatcher failure counters.
func (s *Store) SaveFailureCounters(ctx context.Context, key string, counters map[string]int) error {
	return blob.PutJSON(ctx, s.blobs, key, counters)
}

// AuditPositions loads the audit ingestion watermarks, keyed by file system
// id. A missing blob is an empty map.
func (s *Store) AuditPositions(ctx context.Context, key string) (map[string]types.AuditPosition, error) {
	positions := map[string]types.AuditPosition{}
	err := blob.GetJSON(ctx, s.blobs, key, &positions)
	if errors.Is(err, blob.ErrNotFound) {
		return map[string]types.AuditPosition{}, nil
	}
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// SaveAuditPositions persists the audit ingestion watermarks.
func (s *Store) SaveAuditPositions(ctx context.Context, key string, positions map[string]types.AuditPosition) error {
	return blob.PutJSON(ctx, s.blobs, key, positions)
}

// IsDecodeError reports whether err came from unmarshalling a malformed
// blob rather than from the store itself.
func IsDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
