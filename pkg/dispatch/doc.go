/*
Package dispatch walks the fleet descriptor and runs one monitoring pass per
cluster.

It owns the per-cluster consecutive-failure counters and raises meta-alerts
when a cluster keeps failing or when the dispatcher itself cannot start, so
a broken deployment never fails silently.

# Architecture

	┌───────────────────── FLEET DISPATCH ─────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │           Fleet Descriptor                  │          │
	│  │  - Text blob, one cluster per line          │          │
	│  │  - host,secretARN[,key=value...]            │          │
	│  │  - "#" comments and blank lines skipped     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│        ┌────────────┴────────────┐                        │
	│        ▼                         ▼                        │
	│  ┌──────────────┐        ┌──────────────────┐            │
	│  │ Serial mode  │        │ Fire-and-forget  │            │
	│  │ one cluster  │        │ all clusters at  │            │
	│  │ at a time,   │        │ once, no         │            │
	│  │ counters     │        │ counters         │            │
	│  └──────┬───────┘        └──────────────────┘            │
	│         │                                                  │
	│  ┌──────▼─────────────────────────────────────┐          │
	│  │        Failure Counters                     │          │
	│  │  - Per-cluster consecutive failures         │          │
	│  │  - Persisted to monitor-failure-counters    │          │
	│  │  - Meta-alert on reaching the threshold     │          │
	│  │  - Reset on the next success                │          │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

# Core Components

Dispatcher:
  - New(cfg, blobs, states, notify, runner, fireAndForget)
  - RunOnce performs one pass over the fleet
  - Start/Stop run the pass on a ticker for daemon deployments
  - FleetSize and FailingClusters feed the engine's own telemetry

Runner:
  - func(ctx, payload) error, one invocation per fleet entry
  - The payload is the same key/value set a Lambda invocation would carry
  - Production wires the full per-cluster pass; tests substitute stubs

Notifier:
  - Publish(ctx, subject, message) for meta-alerts
  - Satisfied by alert.Publisher

# Failure Tracking

Serial mode counts consecutive failures per cluster. The count is persisted
between passes, so a controller restart does not forget a failing cluster:

  - On failure the cluster's counter increments
  - Reaching types.MaxAllowedFailures publishes one meta-alert with the
    "MOS Controller Error" subject and stops counting up
  - On success the counter resets and disappears from the blob

Fire-and-forget mode launches every cluster concurrently and keeps no
counters; each invocation is expected to raise its own alerts.

Only a missing fleet descriptor fails RunOnce itself, after publishing a
meta-alert; one broken cluster can never starve the rest of the fleet.

# Usage

	d := dispatch.New(cfg, blobs, states, publisher, runner, false)
	if err := d.RunOnce(ctx); err != nil {
		log.Errorf("Fleet pass failed", err)
	}

Daemon mode runs the first pass immediately and then on every tick:

	d.Start(ctx, 5*time.Minute)
	defer d.Stop()

# See Also

  - pkg/monitor for what one per-cluster pass does
  - pkg/config for fleet configuration and payload assembly
  - pkg/metrics for the stats the dispatcher exposes
*/
package dispatch
