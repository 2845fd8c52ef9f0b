/*
Package schedule resolves when a cluster cron schedule last fired.

The replication lag-percent rule compares a relationship's lag against the
time since its schedule's most recent firing, so the engine has to walk a
cron expression backwards from the current time in the cluster's own
timezone.

# Core Components

Resolver:
  - Caches schedule and policy lookups for one monitoring pass
  - LastRunTime resolves a schedule UUID to its previous firing
  - PolicySchedule resolves a policy UUID to its schedule UUID
  - LastScheduledUpdate combines both for one relationship, preferring
    the relationship's own schedule over its policy's

CronExpression:
  - Converts ONTAP's lists-of-integers cron document into a five-field
    expression; empty lists become "*"

PreviousFiring:
  - Walks a five-field expression backwards from now using the cron
    parser's Next on successively earlier starting points
  - Gives up after five years, which only happens for expressions like
    February 30 that can never fire

Location:
  - Loads the cluster's IANA timezone, falling back to UTC with a warning
    naming the cluster when the zone is unknown

# Usage

	resolver := schedule.NewResolver(client, timezone)
	lastRun := resolver.LastScheduledUpdate(ctx, &rel)
	if lastRun > 0 {
		elapsed := now.Unix() - lastRun
		// compare rel's lag against elapsed
	}

Failed lookups return zero; a missing schedule must not fail the domain,
because lag-percent is one rule among many.

# See Also

  - pkg/monitor for the snapmirror evaluator using the resolver
  - pkg/ontap for the schedule and policy endpoints
  - robfig/cron: https://github.com/robfig/cron
*/
package schedule
