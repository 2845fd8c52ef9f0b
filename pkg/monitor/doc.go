/*
Package monitor polls one NAS cluster's management API, evaluates the
cluster's matching-conditions document against what it finds, and raises
alerts for anything new.

Every domain keeps a history of already-reported events in the state store,
so an alert fires once when a condition appears and again only after it has
been gone long enough to be considered resolved. The monitor itself is
stateless between runs; everything it needs to remember lives in named JSON
blobs.

# Architecture

One monitoring pass flows top to bottom:

	┌──────────────────── MONITORING PASS ───────────────────────┐
	│                                                              │
	│  ┌────────────────────────────────────────────┐            │
	│  │          Conditions Document                │            │
	│  │  - <cluster>-conditions from state store    │            │
	│  │  - Missing: synthesize + persist defaults   │            │
	│  │  - Malformed: log, skip pass (no failure)   │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │          Availability Probe                 │            │
	│  │  - GET /api/cluster (5s timeout)            │            │
	│  │  - Learns name, version, timezone           │            │
	│  │  - Three-state reachability counter         │            │
	│  │  - Down: skip evaluators, pass still OK     │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │         Service Evaluators (in order)       │            │
	│  │  systemhealth → ems → snapmirror →          │            │
	│  │  storage → quota → vserver                  │            │
	│  │  - Pull collections via ontap.Collect       │            │
	│  │  - Evaluate rules from the conditions doc   │            │
	│  │  - Alert on new findings, age out old ones  │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            State Store                      │            │
	│  │  - Event histories (refresh counters)       │            │
	│  │  - System status (version, nodes, health)   │            │
	│  │  - SnapMirror transfer watchlist            │            │
	│  └────────────────────────────────────────────┘             │
	└──────────────────────────────────────────────────────────┘

# Core Components

Monitor:
  - Built once per run via New(cfg, store, client, emitter)
  - Availability probe fills in cluster name, version, timezone
  - Run executes the full pass and reports its outcome

Service Evaluators:
  - checkSystemHealth: version changes, node count changes, down interfaces
  - processEMSEvents: EMS event stream matched against name/severity/message rules
  - processSnapMirror: unhealthy relationships, lag thresholds, stalled transfers
  - processStorage: aggregate and volume fullness, offline states
  - processQuota: quota usage against soft/hard limits
  - processVserver: SVM state and protocol health

Event Histories:
  - Each finding is remembered under a stable identifier
  - Refresh counter starts at types.EventResilience (4)
  - Still present: counter resets; absent: counter decrements
  - At zero the record is dropped and the next occurrence alerts again

# Availability Tracking

The probe keeps a three-state counter in the system status blob so a single
missed poll never alerts:

  - 0: healthy; evaluators run
  - 1: one missed poll; stay quiet, skip evaluators
  - 2: second miss raised a CRITICAL alert; stay quiet until recovery

A successful probe resets the counter to 0. The pass returns nil when the
cluster is down; unreachable storage is exactly what the engine exists to
notice, not an engine failure.

# Failure Semantics

Failures are graded by how much of the pass they poison:

  - Malformed conditions document: log and return nil. Failing the run
    would burn the dispatcher's failure budget every cycle until an
    operator fixes the document.
  - Non-200 from a collection endpoint: abort that domain without
    persisting its aged histories, continue the pass.
  - Transport or decode failure, state store failure, alert delivery
    failure: fail the run. The dispatcher counts these per cluster.

# Usage

One pass against one cluster:

	client := ontap.NewClient(cfg.OntapAdminServer, creds.Username, creds.Password)
	m := monitor.New(cfg, states, client, publisher)
	if err := m.Run(ctx); err != nil {
		log.Errorf("Monitoring pass failed", err)
	}

The dispatcher wraps exactly this in its per-cluster Runner; tests drive
Run directly against an httptest cluster.

# Integration Points

  - pkg/ontap: REST client, pagination, lag-time parsing
  - pkg/rules: rule compilation and consolidation per domain
  - pkg/state: typed blob accessors and event history aging
  - pkg/alert: the Emitter every evaluator raises alerts through
  - pkg/schedule: last-firing resolution for lag-percent rules
  - pkg/metrics: pass duration and per-service outcome counters

# See Also

  - pkg/dispatch for fleet-wide orchestration and failure counting
  - pkg/config for how the per-cluster configuration is resolved
  - ONTAP REST API: https://docs.netapp.com/us-en/ontap-restapi/
*/
package monitor
