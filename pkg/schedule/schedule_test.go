package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/ontap"
)

func TestCronExpression(t *testing.T) {
	tests := []struct {
		name   string
		fields ontap.CronFields
		want   string
	}{
		{
			name:   "all fields absent",
			fields: ontap.CronFields{},
			want:   "* * * * *",
		},
		{
			name:   "hourly on the half hour",
			fields: ontap.CronFields{Minutes: []int{30}},
			want:   "30 * * * *",
		},
		{
			name: "multiple values join with commas",
			fields: ontap.CronFields{
				Minutes:  []int{0, 15, 30, 45},
				Hours:    []int{8, 17},
				Weekdays: []int{1, 2, 3, 4, 5},
			},
			want: "0,15,30,45 8,17 * * 1,2,3,4,5",
		},
		{
			name: "day of month and month",
			fields: ontap.CronFields{
				Minutes: []int{0},
				Hours:   []int{0},
				Days:    []int{1},
				Months:  []int{1, 7},
			},
			want: "0 0 1 1,7 *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CronExpression(&tt.fields))
		})
	}
}

func TestPreviousFiring(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every minute",
			expr: "* * * * *",
			want: time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "hourly",
			expr: "0 * * * *",
			want: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "daily at 02:30",
			expr: "30 2 * * *",
			want: time.Date(2024, 6, 15, 2, 30, 0, 0, time.UTC),
		},
		{
			name: "weekly on sunday",
			expr: "0 6 * * 0",
			want: time.Date(2024, 6, 9, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "yearly forces look-back widening",
			expr: "0 0 1 1 *",
			want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PreviousFiring(tt.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreviousFiringHonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:30 New York time: the daily 06:00 firing happened yesterday there,
	// even though in UTC the clock is already past 06:00.
	now := time.Date(2024, 6, 15, 1, 30, 0, 0, loc)
	got, err := PreviousFiring("0 6 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 14, 6, 0, 0, 0, loc), got)
}

func TestPreviousFiringRejectsBadExpression(t *testing.T) {
	_, err := PreviousFiring("not a cron line", time.Now())
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Location("", "cluster1"))
	assert.Equal(t, time.UTC, Location("Not/AZone", "cluster1"))

	loc := Location("Etc/UTC", "cluster1")
	require.NotNil(t, loc)
	assert.Equal(t, "Etc/UTC", loc.String())
}

// fakeCluster serves canned schedule and policy documents over TLS the way a
// management endpoint would.
func fakeCluster(t *testing.T, handler http.HandlerFunc) *ontap.Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "https://")
	return ontap.NewClient(host, "admin", "secret")
}

func TestResolverLastRunTime(t *testing.T) {
	client := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/cluster/schedules/hourly"):
			w.Write([]byte(`{"cron": {"minutes": [0]}}`))
		case strings.HasPrefix(r.URL.Path, "/api/cluster/schedules/interval"):
			w.Write([]byte(`{"interval": "PT1H"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	resolver := NewResolver(client, time.UTC)
	resolver.now = func() time.Time {
		return time.Date(2024, 6, 15, 10, 30, 45, 0, time.UTC)
	}

	want := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, want, resolver.LastRunTime(context.Background(), "hourly"))

	assert.Equal(t, int64(-1), resolver.LastRunTime(context.Background(), "interval"),
		"interval schedules have no firings to resolve")
	assert.Equal(t, int64(-1), resolver.LastRunTime(context.Background(), "missing"))
}

func TestResolverLastScheduledUpdate(t *testing.T) {
	client := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/cluster/schedules/sched-1"):
			w.Write([]byte(`{"cron": {"minutes": [0], "hours": [4]}}`))
		case strings.HasPrefix(r.URL.Path, "/api/snapmirror/policies/pol-without"):
			w.Write([]byte(`{"name": "MirrorAllSnapshots"}`))
		case strings.HasPrefix(r.URL.Path, "/api/snapmirror/policies/pol-with"):
			w.Write([]byte(`{"transfer_schedule": {"uuid": "sched-1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	resolver := NewResolver(client, time.UTC)
	resolver.now = func() time.Time {
		return time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	}
	ctx := context.Background()
	want := time.Date(2024, 6, 15, 4, 0, 0, 0, time.UTC).Unix()

	direct := &ontap.Relationship{TransferSchedule: &ontap.UUIDRef{UUID: "sched-1"}}
	assert.Equal(t, want, resolver.LastScheduledUpdate(ctx, direct))

	viaPolicy := &ontap.Relationship{Policy: &ontap.UUIDRef{UUID: "pol-with"}}
	assert.Equal(t, want, resolver.LastScheduledUpdate(ctx, viaPolicy))

	bare := &ontap.Relationship{Policy: &ontap.UUIDRef{UUID: "pol-without"}}
	assert.Equal(t, int64(-1), resolver.LastScheduledUpdate(ctx, bare))

	assert.Equal(t, int64(-1), resolver.LastScheduledUpdate(ctx, &ontap.Relationship{}))
}
