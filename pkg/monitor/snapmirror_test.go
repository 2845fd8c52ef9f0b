package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

type fixedResolver struct {
	last int64
}

func (f fixedResolver) LastScheduledUpdate(ctx context.Context, rel *ontap.Relationship) int64 {
	return f.last
}

func newSnapMirrorRig(t *testing.T, ruleList ...types.Rule) *testRig {
	t.Helper()
	rig := newRig(t)
	rig.saveConditions(t, types.ServiceBlock{Name: "snapmirror", Rules: ruleList})
	rig.fc.page(probePath, probeBody("fsxcluster", "9.13.1P6"))
	return rig
}

// testRelationship returns a healthy peered relationship with a 2.5 hour lag.
// Tests mutate the map before registering it.
func testRelationship() map[string]any {
	return map[string]any{
		"uuid":        "rel-1",
		"state":       "snapmirrored",
		"lag_time":    "PT2H30M",
		"healthy":     true,
		"source":      map[string]any{"path": "svm1:src", "cluster": map[string]any{"name": "peer1"}},
		"destination": map[string]any{"path": "svm2:dst"},
	}
}

func TestRunSnapMirrorAbsoluteLag(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600})
	rig.fc.page(relationshipsPath, collectionBody(t, testRelationship()))

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Snapmirror Lag Alert: peer1::svm1:src -> fsxcluster::svm2:dst has a lag time of 9000 seconds, or 2 hours 30 minutes and 0 seconds which is more than 3600.", messages[0])
	assert.Equal(t, []types.Severity{types.SeverityWarning}, rig.emitter.severities())

	rig.run(t)
	assert.Len(t, rig.emitter.messages(), 1, "a lagging relationship alerts once")
}

func TestRunSnapMirrorLagBelowThresholdQuiet(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600})
	rel := testRelationship()
	rel["lag_time"] = "PT30M"
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	rig.run(t)

	assert.Empty(t, rig.emitter.messages())
}

func TestRunSnapMirrorUninitializedSkipsLag(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600})
	rel := testRelationship()
	rel["state"] = "uninitialized"
	rel["lag_time"] = "P30DT5H"
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	rig.run(t)

	assert.Empty(t, rig.emitter.messages(), "uninitialized lag reflects the source volume age, not replication")
}

func TestRunSnapMirrorLocalSourceUsesClusterName(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600})
	rel := testRelationship()
	rel["source"] = map[string]any{"path": "svm1:src"}
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Snapmirror Lag Alert: fsxcluster::svm1:src -> fsxcluster::svm2:dst")
}

func TestRunSnapMirrorPercentLagBeatsAbsolute(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600, "maxLagTimePercent": 50})
	rig.fc.page(relationshipsPath, collectionBody(t, testRelationship()))

	base := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	lastScheduled := base.Add(-2 * time.Hour).Unix()
	rig.m.now = func() time.Time { return base }
	rig.m.resolver = fixedResolver{last: lastScheduled}

	rig.run(t)

	// 9000 s of lag against a 7200 s window is over 50%; only the percent
	// variant may fire even though the absolute threshold is exceeded too.
	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	asciiTime := time.Unix(lastScheduled, 0).Format("2006-01-02 15:04:05")
	want := fmt.Sprintf("Snapmirror Lag Alert: peer1::svm1:src -> fsxcluster::svm2:dst has a lag time of 9000 seconds (2 hours 30 minutes and 0 seconds) which is more than 50%% of its last scheduled update at %s.", asciiTime)
	assert.Equal(t, want, messages[0])

	rig.run(t)
	assert.Len(t, rig.emitter.messages(), 1)
}

func TestRunSnapMirrorPercentWithinBudgetQuiet(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTimePercent": 50})
	rig.fc.page(relationshipsPath, collectionBody(t, testRelationship()))

	// 9000 s of lag against a 24 h window is under 50%.
	base := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	rig.m.now = func() time.Time { return base }
	rig.m.resolver = fixedResolver{last: base.Add(-24 * time.Hour).Unix()}

	rig.run(t)

	assert.Empty(t, rig.emitter.messages())
}

func TestRunSnapMirrorNoScheduleFallsBackToAbsolute(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTime": 3600, "maxLagTimePercent": 50})
	rig.fc.page(relationshipsPath, collectionBody(t, testRelationship()))
	rig.m.resolver = fixedResolver{last: -1}

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "which is more than 3600.")
}

func TestRunSnapMirrorActiveTransferSuppressesPercentLag(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"maxLagTimePercent": 50, "stalledTransferSeconds": 300})
	rel := testRelationship()
	rel["transfer"] = map[string]any{"uuid": "tr-1", "state": "transferring", "bytes_transferred": 1000}
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	base := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	rig.m.now = func() time.Time { return base }
	rig.m.resolver = fixedResolver{last: base.Add(-2 * time.Hour).Unix()}

	rig.run(t)

	assert.Empty(t, rig.emitter.messages(), "an active transfer is already working the lag off")

	watchlist, err := rig.store.Watchlist(context.Background(), rig.cfg.SMRelationshipsFilename)
	require.NoError(t, err)
	require.Len(t, watchlist, 1)
	assert.Equal(t, "tr-1", watchlist[0].UUID)
	assert.Equal(t, base.Unix(), watchlist[0].Time)
	assert.Equal(t, int64(1000), watchlist[0].BytesTransferred)
}

func TestRunSnapMirrorStalledTransfer(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"stalledTransferSeconds": 300})
	rel := testRelationship()
	rel["lag_time"] = ""
	rel["transfer"] = map[string]any{"uuid": "tr-1", "state": "transferring", "bytes_transferred": 1000}
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	base := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	rig.m.now = func() time.Time { return base }
	rig.run(t)
	assert.Empty(t, rig.emitter.messages(), "first sighting only starts the clock")

	rig.m.now = func() time.Time { return base.Add(400 * time.Second) }
	rig.run(t)
	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Snapmirror transfer has stalled: peer1::svm1:src -> fsxcluster::svm2:dst.", messages[0])

	rig.m.now = func() time.Time { return base.Add(500 * time.Second) }
	rig.run(t)
	assert.Len(t, rig.emitter.messages(), 1, "a stalled transfer alerts once")
}

func TestRunSnapMirrorProgressResetsStallClock(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"stalledTransferSeconds": 300})
	rel := testRelationship()
	rel["lag_time"] = ""
	transfer := map[string]any{"uuid": "tr-1", "state": "transferring", "bytes_transferred": 1000}
	rel["transfer"] = transfer
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	base := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	rig.m.now = func() time.Time { return base }
	rig.run(t)

	// Progress after 400 s: not stalled, clock restarts.
	transfer["bytes_transferred"] = 2000
	rig.fc.page(relationshipsPath, collectionBody(t, rel))
	rig.m.now = func() time.Time { return base.Add(400 * time.Second) }
	rig.run(t)
	assert.Empty(t, rig.emitter.messages())

	// 300 s since the restart is not yet over the threshold.
	rig.m.now = func() time.Time { return base.Add(700 * time.Second) }
	rig.run(t)
	assert.Empty(t, rig.emitter.messages())

	rig.m.now = func() time.Time { return base.Add(800 * time.Second) }
	rig.run(t)
	assert.Len(t, rig.emitter.messages(), 1)
}

func TestRunSnapMirrorCompletedTransferLeavesWatchlist(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"stalledTransferSeconds": 300})
	rel := testRelationship()
	rel["lag_time"] = ""
	rel["transfer"] = map[string]any{"uuid": "tr-1", "state": "transferring", "bytes_transferred": 1000}
	rig.fc.page(relationshipsPath, collectionBody(t, rel))
	rig.run(t)

	watchlist, err := rig.store.Watchlist(context.Background(), rig.cfg.SMRelationshipsFilename)
	require.NoError(t, err)
	require.Len(t, watchlist, 1)

	delete(rel, "transfer")
	rig.fc.page(relationshipsPath, collectionBody(t, rel))
	rig.run(t)

	watchlist, err = rig.store.Watchlist(context.Background(), rig.cfg.SMRelationshipsFilename)
	require.NoError(t, err)
	assert.Empty(t, watchlist)
}

func TestRunSnapMirrorUnhealthy(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"Healthy": false})
	rel := testRelationship()
	rel["healthy"] = false
	rel["unhealthy_reason"] = []map[string]any{
		{"message": "Transfer failed."},
		{"message": "Retry limit reached."},
	}
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Snapmirror Health Alert: peer1::svm1:src fsxcluster::svm2:dst has a status of false.\nTransfer failed.\nRetry limit reached.", messages[0])

	rig.run(t)
	assert.Len(t, rig.emitter.messages(), 1)
}

func TestRunSnapMirrorHealthyRelationshipQuiet(t *testing.T) {
	rig := newSnapMirrorRig(t, types.Rule{"Healthy": false})
	rel := testRelationship()
	rel["lag_time"] = ""
	rig.fc.page(relationshipsPath, collectionBody(t, rel))

	rig.run(t)

	assert.Empty(t, rig.emitter.messages())
}
