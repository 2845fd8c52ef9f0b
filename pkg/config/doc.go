/*
Package config resolves the engine's configuration for each of its three
roles: the per-cluster monitor, the fleet controller, and the audit-log
ingester.

Keys keep their historical mixed-case spelling (OntapAdminServer,
s3BucketName) because the same names appear in invocation payloads,
environment variables and per-cluster configuration blobs, and operators
grep for them across all three.

# Architecture

The per-cluster Monitor configuration is resolved in three phases:

	┌──────────────────── MONITOR CONFIG ─────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐         │
	│  │  Phase 1: LoadMonitor(payload)              │         │
	│  │  - payload names OntapAdminServer: payload  │         │
	│  │    is the sole source                       │         │
	│  │  - otherwise: environment variables         │         │
	│  │  - s3BucketArn fills in a missing bucket    │         │
	│  │  - required: OntapAdminServer,              │         │
	│  │    s3BucketName, s3BucketRegion             │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │  Phase 2: MergeBlob(<host>-config)          │         │
	│  │  - key=value lines from the state bucket    │         │
	│  │  - fills only keys still unset              │         │
	│  │  - export prefixes, comments, quotes        │         │
	│  │    stripped; missing blob is fine           │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │  Phase 3: Finalize()                        │         │
	│  │  - state filenames default to               │         │
	│  │    <server>-<suffix>                        │         │
	│  │  - endpoint hosts derived from ARN regions  │         │
	│  │  - secret key names default to              │         │
	│  │    username/password                        │         │
	│  │  - validates everything non-optional        │         │
	│  └────────────────────────────────────────────┘          │
	└─────────────────────────────────────────────────────────┘

# Core Components

Monitor:
  - One cluster's full configuration: endpoint, bucket, secret, filenames,
    alert destinations and the initial* seeding knobs
  - Initial holds the initial* keys that shape a synthesized conditions
    document on a cluster's first run

Controller:
  - LoadController reads the fleet-level environment: state bucket, fleet
    list key, SNS topic and any initial* keys to forward
  - MonitorPayload assembles the per-cluster invocation payload, copying
    the base set and applying fleet-entry overrides to a fresh map

Audit:
  - LoadAudit reads the ingester's environment: log group, regions,
    role ARNs for cross-account discovery and the filter lists
  - Accepts both the legacy single-region key and the list form

# Usage

The dispatcher's runner resolves a cluster in the same three phases the
standalone binary does:

	cfg, err := config.LoadMonitor(payload)
	if err != nil {
		return err
	}
	if err := cfg.MergeBlob(ctx, blobs); err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

# Design Patterns

Single Write Wins:
  - Later phases never overwrite a key an earlier phase set
  - Payload beats environment beats per-cluster blob beats defaults

Field Table:
  - One table maps key names to struct fields
  - Loading, merging and validation all walk the same table, so adding a
    key is a one-line change

# See Also

  - pkg/dispatch for where MonitorPayload is consumed
  - pkg/monitor for what the resolved configuration drives
  - pkg/audit for the ingester built on Audit
*/
package config
