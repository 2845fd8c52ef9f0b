/*
Package blob stores named byte blobs in S3 or a local bbolt file behind one
interface.

Everything the engine remembers between runs (conditions documents, event
histories, watermarks, failure counters) is a named JSON blob. Production
deployments keep them in an S3 bucket; tests and single-host deployments
use an embedded bbolt database. Callers never know which.

# Architecture

	┌──────────────────────── BLOB STORE ────────────────────────┐
	│                                                              │
	│              Store interface                                 │
	│     Get / Put / Delete / List / Close                        │
	│          │                       │                           │
	│          ▼                       ▼                           │
	│  ┌───────────────┐      ┌─────────────────────┐            │
	│  │    S3Store    │      │      BoltStore      │            │
	│  │  one object   │      │  single "blobs"     │            │
	│  │  per key in a │      │  bucket in          │            │
	│  │  bucket       │      │ <dir>/ontapwatch.db │            │
	│  └───────────────┘      └─────────────────────┘            │
	│                                                              │
	│  GetJSON / PutJSON / PutJSONIndent layer encoding on top    │
	└────────────────────────────────────────────────────────────┘

# Core Components

Store:
  - Get returns ErrNotFound for missing keys on every backend
  - Put overwrites unconditionally; Delete is idempotent
  - List returns every key, used by the state inspection tool

S3Store:
  - NewS3Store(ctx, bucket, region) builds the client from ambient AWS config
  - NewS3StoreFromClient injects a client; tests use it with fakes
  - NoSuchKey API errors map to ErrNotFound

BoltStore:
  - NewBoltStore(dataDir) opens <dataDir>/ontapwatch.db with 0600 mode
  - One flat bucket; View for reads, Update for writes
  - Close releases the file lock

JSON Helpers:
  - GetJSON and PutJSON marshal through any Store
  - PutJSONIndent writes four-space indented documents, so blobs that
    operators hand-edit (conditions documents) stay readable

# Usage

	store, err := blob.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var counters map[string]int
	err = blob.GetJSON(ctx, store, "monitor-failure-counters", &counters)
	if errors.Is(err, blob.ErrNotFound) {
		counters = map[string]int{}
	}

# See Also

  - pkg/state for the typed accessors layered on this package
  - bbolt: https://github.com/etcd-io/bbolt
  - S3 GetObject: https://docs.aws.amazon.com/AmazonS3/latest/API/API_GetObject.html
*/
package blob
