/*
Package types defines the core data structures used throughout ontapwatch.

This package contains the fundamental types of the monitoring domain: alert
severities, match-condition rules, per-cluster state records, replication
transfer watchlist entries, and audit ingestion watermarks. These types are
shared by the monitor, dispatcher, alert publishers, and state stores.

# Architecture

The types package is the foundation of the data model. It defines:

  - Alert severity grades and their numeric ranking
  - Match-conditions document shape (services and rules)
  - Event history records with refresh-counter dedup
  - Per-cluster system status (availability, version, node count)
  - Replication transfer watchlist entries for stall detection
  - Audit log ingestion watermarks
  - Fleet descriptor entries

All types are designed to be:
  - Serializable (JSON, stored as indented blobs for hand editing)
  - Backward compatible with state written by earlier releases
  - Free of behavior beyond parsing helpers (logic lives in evaluators)

# Core Types

Alerting:
  - Severity: CRITICAL, ERROR, WARNING, INFO, DEBUG
  - SeverityNumber: numeric rank, 1 most severe, unknown ranks as INFO

Conditions:
  - Conditions: the whole match-conditions document
  - ServiceBlock: one service domain (systemHealth, ems, snapmirror,
    storage, quota, vserver) with its rule list
  - Rule: one raw rule object; evaluators parse it into typed variants

State Records:
  - EventRecord: one deduplicated event with a Refresh countdown
  - FlexID: history identifier tolerant of legacy numeric encodings
  - SystemStatus: availability counter, version, node count, down
    interfaces for one cluster
  - TransferRecord: one watched replication transfer (UUID, bytes,
    observation time)
  - AuditPosition: timestamp/index watermark for audit ingestion

Fleet:
  - FleetEntry: one parsed fleet descriptor line (host, secret ARN,
    per-cluster overrides)

Tuning Constants:
  - EventResilience: polls an event survives without being re-observed
  - MaxAllowedFailures: consecutive pass failures before a meta-alert
  - InitialVersion, DefaultNumberNodes: first-run seeds

# Event Lifecycle

Event histories implement alert dedup with a refresh countdown:

	observed   → Refresh = EventResilience (4)
	not seen   → Refresh decremented once per poll
	Refresh<=0 → record dropped; next observation alerts again

A record that keeps being observed never decays. A record absent for
EventResilience consecutive polls is forgotten, so a recurring condition
re-alerts roughly once per EventResilience polling intervals.

# Usage

Building a conditions document:

	conditions := types.Conditions{
		Services: []types.ServiceBlock{
			{
				Name: types.ServiceSnapMirror,
				Rules: []types.Rule{
					{"maxLagTime": 3600},
					{"healthy": true},
				},
			},
		},
	}

Recording an event:

	rec := types.EventRecord{
		Index:   event.Index,
		Time:    event.Time,
		Message: event.LogMessage,
		Refresh: types.EventResilience,
	}

Walking a rule deterministically:

	for _, key := range rule.Keys() {
		value := rule[key]
		// ...
	}

# Design Patterns

Enumeration Pattern:

	Severities use typed string constants:
	  type Severity string
	  const (
	      SeverityCritical Severity = "CRITICAL"
	      SeverityWarning  Severity = "WARNING"
	  )

Raw Rule Pattern:

	Rules decode as map[string]any so operators can add keys without a
	schema change. Evaluators consolidate raw rules into typed structs
	once per run and warn on keys they do not recognize.

Legacy Tolerance Pattern:

	FlexID and AuditPosition keep the exact JSON field names and value
	shapes of state written by earlier releases, so an upgraded engine
	resumes from existing blobs without a migration.

# Integration Points

This package integrates with:

  - pkg/state: Persists event histories, system status, watchlists
  - pkg/rules: Consolidates raw Rules into typed evaluator inputs
  - pkg/monitor: Evaluates conditions and mutates state records
  - pkg/alert: Grades outgoing messages by Severity
  - pkg/dispatch: Parses fleet descriptors into FleetEntry values
  - pkg/audit: Advances AuditPosition watermarks

# Thread Safety

Types here carry no synchronization. Each monitoring pass owns its
cluster's records exclusively; the dispatcher never runs two passes for
the same cluster concurrently.

# See Also

  - pkg/state for persistence of these records
  - pkg/rules for rule consolidation
  - pkg/monitor for the evaluators that consume them
*/
package types
