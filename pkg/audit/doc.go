/*
Package audit ingests ONTAP administrative audit logs into CloudWatch Logs.

Clusters are discovered through the FSx API, credentials come from Secrets
Manager, and a per-cluster watermark persisted in the state bucket makes
repeated runs pick up where the last one stopped.

# Architecture

	┌──────────────────── AUDIT INGESTION ─────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Discovery                        │          │
	│  │  - FSx DescribeFileSystems per region       │          │
	│  │  - ec2 DescribeRegions when no region list  │          │
	│  │  - STS assume-role for other accounts       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │  one file system at a time          │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Record Walk                      │          │
	│  │  - /api/security/audit/messages             │          │
	│  │  - from the stored watermark forward        │          │
	│  │  - first run: five minutes back             │          │
	│  │  - Filters drop unwanted records            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │  pages of ≤1000                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            CloudWatch Push                  │          │
	│  │  - per-day stream per file system           │          │
	│  │  - watermark advanced after each page       │          │
	│  │  - failure re-delivers at most one page     │          │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

# Core Components

Ingester:
  - New(cfg, blobs, cwl, discover) wires the run
  - Run walks every discovered file system once
  - Injection points for the secrets resolver and cluster client let
    tests run the whole walk against fakes

Discovery:
  - Lists FSx for ONTAP file systems across regions and accounts
  - A missing region list falls back to every region ec2 reports
  - Cross-account roles are assumed with a fixed session name so the
    activity is attributable in CloudTrail

Filters:
  - Compiled once per run from the configured matcher lists
  - Drop records by application, user, input pattern or state

Watermarks:
  - One types.AuditPosition per file system, persisted as a single blob
  - Timestamp plus last-seen index disambiguate records sharing a second

# Failure Isolation

Problems scoped to one file system (missing or unreadable secret,
unreachable management endpoint, non-200 API response) are logged and the
walk moves on to the next file system. Problems with the run's own
infrastructure (the state bucket, CloudWatch Logs) abort the run.

# Usage

	discovery, err := audit.NewDiscovery(ctx, cfg)
	if err != nil {
		return err
	}
	ing, err := audit.New(cfg, blobs, cwlClient, discovery)
	if err != nil {
		return err
	}
	return ing.Run(ctx)

# See Also

  - pkg/config for the ingester's environment
  - pkg/secrets for credential resolution
  - pkg/ontap for the audit message pages
  - FSx API: https://docs.aws.amazon.com/fsx/latest/APIReference/
*/
package audit
