package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
)

// maxLookBack bounds the search for a previous firing. Five years covers
// every expressible schedule, including ones pinned to February 29th.
const maxLookBack = 5 * 366 * 24 * time.Hour

// Location resolves a cluster-reported timezone name. An unknown name is
// logged and falls back to UTC rather than failing the run.
func Location(name, clusterName string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger := log.WithComponent("schedule")
		logger.Warn().Msgf("Unknown timezone %q reported by cluster %s, using UTC.", name, clusterName)
		return time.UTC
	}
	return loc
}

// CronExpression renders a schedule document's cron block as a five-field
// expression. Absent fields mean "every".
func CronExpression(fields *ontap.CronFields) string {
	return fmt.Sprintf("%s %s %s %s %s",
		cronField(fields.Minutes),
		cronField(fields.Hours),
		cronField(fields.Days),
		cronField(fields.Months),
		cronField(fields.Weekdays))
}

func cronField(values []int) string {
	if len(values) == 0 {
		return "*"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// PreviousFiring returns the most recent time expr fired at or before now,
// evaluated in now's location. The search widens a look-back window until a
// firing is found, so sparse schedules cost a few extra scans instead of a
// fixed worst-case walk.
func PreviousFiring(expr string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse cron expression %q: %w", expr, err)
	}
	lookBack := time.Hour
	for {
		start := now.Add(-lookBack)
		var last time.Time
		for t := sched.Next(start); !t.IsZero() && !t.After(now); t = sched.Next(t) {
			last = t
		}
		if !last.IsZero() {
			return last, nil
		}
		if lookBack == maxLookBack {
			return time.Time{}, fmt.Errorf("no firing of %q within %v", expr, maxLookBack)
		}
		lookBack *= 2
		if lookBack > maxLookBack {
			lookBack = maxLookBack
		}
	}
}

// Resolver answers schedule questions against one cluster. Failures resolve
// to the same sentinel the callers already handle (-1 or no schedule), so a
// broken schedule lookup quietly disables the lag-percent rule instead of
// failing the replication domain.
type Resolver struct {
	client *ontap.Client
	loc    *time.Location
	now    func() time.Time
}

// NewResolver creates a Resolver evaluating schedules in loc.
func NewResolver(client *ontap.Client, loc *time.Location) *Resolver {
	return &Resolver{client: client, loc: loc, now: time.Now}
}

// LastRunTime fetches a cluster schedule and returns the epoch seconds of
// its most recent firing, or -1 when the schedule cannot be resolved.
func (r *Resolver) LastRunTime(ctx context.Context, scheduleUUID string) int64 {
	logger := log.WithComponent("schedule")
	path := "/api/cluster/schedules/" + scheduleUUID + "?fields=*&return_timeout=15"
	res, err := r.client.Get(ctx, path, 0)
	if err != nil {
		logger.Error().Err(err).Msgf("API call to https://%s%s failed.", r.client.Host(), path)
		return -1
	}
	if !res.OK() {
		logger.Error().Msgf("API call to https://%s%s failed. HTTP status code: %d.", r.client.Host(), path, res.Status)
		return -1
	}
	var doc ontap.ScheduleDoc
	if err := res.Decode(&doc); err != nil {
		logger.Error().Err(err).Msgf("Failed to decode schedule %s.", scheduleUUID)
		return -1
	}
	if doc.Cron == nil {
		// Interval schedules have no firing times to walk.
		return -1
	}
	firing, err := PreviousFiring(CronExpression(doc.Cron), r.now().In(r.loc))
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to evaluate schedule %s.", scheduleUUID)
		return -1
	}
	return firing.Unix()
}

// PolicySchedule fetches a replication policy and returns the UUID of its
// transfer schedule, or "" when the policy has none or cannot be fetched.
func (r *Resolver) PolicySchedule(ctx context.Context, policyUUID string) string {
	logger := log.WithComponent("schedule")
	path := "/api/snapmirror/policies/" + policyUUID + "?fields=*&return_timeout=15"
	res, err := r.client.Get(ctx, path, 0)
	if err != nil {
		logger.Error().Err(err).Msgf("API call to https://%s%s failed.", r.client.Host(), path)
		return ""
	}
	if !res.OK() {
		logger.Error().Msgf("API call to https://%s%s failed. HTTP status code: %d.", r.client.Host(), path, res.Status)
		return ""
	}
	var doc ontap.PolicyDoc
	if err := res.Decode(&doc); err != nil {
		logger.Error().Err(err).Msgf("Failed to decode policy %s.", policyUUID)
		return ""
	}
	if doc.TransferSchedule == nil {
		return ""
	}
	return doc.TransferSchedule.UUID
}

// LastScheduledUpdate resolves the last scheduled update time for a
// replication relationship: the relationship's own transfer schedule wins,
// then the one attached to its policy. -1 means no schedule applies.
func (r *Resolver) LastScheduledUpdate(ctx context.Context, rel *ontap.Relationship) int64 {
	if rel.TransferSchedule != nil {
		return r.LastRunTime(ctx, rel.TransferSchedule.UUID)
	}
	if rel.Policy == nil {
		return -1
	}
	scheduleUUID := r.PolicySchedule(ctx, rel.Policy.UUID)
	if scheduleUUID == "" {
		return -1
	}
	return r.LastRunTime(ctx, scheduleUUID)
}
