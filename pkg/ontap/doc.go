/*
Package ontap is the REST client for ONTAP cluster management endpoints.

It wraps plain HTTPS GETs with basic auth, a narrow retry policy, lazy
pagination over collection endpoints, and the response shapes the
monitoring evaluators decode into. Management endpoints present self-signed
certificates, so verification is disabled.

# Architecture

	┌────────────────────── CLUSTER CLIENT ─────────────────────┐
	│                                                             │
	│  Collect[T] / Pages ──► Client.Get(ctx, path, timeout)     │
	│                                │                            │
	│  ┌─────────────────────────────▼──────────────┐           │
	│  │            retryTransport                   │           │
	│  │  - failed connect: one retry                │           │
	│  │  - failed read: one retry                   │           │
	│  │  - non-200 statuses: never retried          │           │
	│  │  - redirects: http.Client default (10)      │           │
	│  └─────────────────────────────┬──────────────┘           │
	│                                │                            │
	│  ┌─────────────────────────────▼──────────────┐           │
	│  │  https://<host>/api/... (basic auth,        │           │
	│  │  InsecureSkipVerify, request metrics)       │           │
	│  └────────────────────────────────────────────┘            │
	└───────────────────────────────────────────────────────────┘

# Core Components

Client:
  - NewClient(host, username, password) for one management endpoint
  - Get returns a Result; non-200 statuses are data, transport errors fail
  - DefaultTimeout (15s) for collections, ProbeTimeout (5s) for the probe

Result:
  - Status and raw Body of a request that reached the cluster
  - OK() for the 200 check, Decode(v) to unmarshal the body

Pager and Collect:
  - Pages(path) walks _links.next lazily, one page per Next call
  - Collect[T] gathers every record of a collection into []T
  - A non-200 page stops the walk with a StatusError; callers treat the
    whole collection as unusable

StatusError:
  - Carries the path and status of a non-200 page
  - The monitor unwraps it to abort one domain instead of the whole run

Lag Time:
  - ParseLagTime converts ISO 8601 durations ("P2DT3H4M5S") to seconds
  - LagTimeString renders seconds back into operator-readable text

# Usage

Fetch one document:

	res, err := client.Get(ctx, "/api/cluster?fields=version,name", ontap.ProbeTimeout)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("probe returned %d", res.Status)
	}
	var info ontap.ClusterInfo
	if err := res.Decode(&info); err != nil {
		return err
	}

Walk a collection:

	vols, err := ontap.Collect[ontap.Volume](ctx, client, "/api/storage/volumes?fields=state&return_timeout=15")

# Design Patterns

Errors vs Statuses:
  - Transport failures are errors; HTTP statuses are values
  - Keeps retry decisions in one place and lets callers grade failures

Typed Records:
  - responses.go declares the decoded shape of every endpoint used
  - Pointer fields distinguish absent keys from zero values

# See Also

  - pkg/monitor for how collections are evaluated
  - pkg/schedule for cron schedule lookups through this client
  - ONTAP REST API: https://docs.netapp.com/us-en/ontap-restapi/
*/
package ontap
