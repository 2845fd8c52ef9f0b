package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/types"
)

func newStorageRig(t *testing.T, ruleList ...types.Rule) *testRig {
	t.Helper()
	rig := newRig(t)
	rig.saveConditions(t, types.ServiceBlock{Name: "storage", Rules: ruleList})
	rig.fc.page(probePath, probeBody("fsxcluster", "9.13.1P6"))
	rig.fc.page(constituentVolumesPath, emptyPage)
	return rig
}

func testAggregate(usedPercent float64) map[string]any {
	return map[string]any{
		"uuid":  "aggr-uuid-1",
		"name":  "aggr1",
		"space": map[string]any{"block_storage": map[string]any{"used_percent": usedPercent}},
	}
}

func TestRunStorageUtilizationAlerts(t *testing.T) {
	rig := newStorageRig(t,
		types.Rule{"aggrWarnPercentUsed": 80},
		types.Rule{"volumeCriticalPercentUsed": 90},
		types.Rule{"volumeWarnFilesPercentUsed": 90},
		types.Rule{"offline": true},
	)
	rig.fc.page(aggregatesPath, collectionBody(t, testAggregate(85)))
	rig.fc.page(volumesPath, collectionBody(t,
		map[string]any{
			"uuid":  "vol-uuid-1",
			"name":  "vol1",
			"state": "online",
			"style": "flexvol",
			"svm":   map[string]any{"name": "svm1"},
			"space": map[string]any{"percent_used": 91},
			"files": map[string]any{"maximum": 1000, "used": 950},
		},
		map[string]any{
			"uuid":  "vol-uuid-2",
			"name":  "vol2",
			"state": "offline",
			"style": "flexvol",
			"svm":   map[string]any{"name": "svm1"},
			"space": map[string]any{},
		},
	))

	rig.run(t)

	want := []string{
		"Aggregate Warning Alert: Aggregate aggr1 on fsxcluster is 85% full, which is more or equal to 80% full.",
		"Volume Usage Critical Alert: volume svm1:vol1 on fsxcluster is 91% full, which is more or equal to 90% full.",
		"Volume File (inode) Usage Warning Alert: volume svm1:vol1 on fsxcluster is using 95% of it's inodes, which is more or equal to 90% utilization.",
		"Volume Offline Alert: volume svm1:vol2 on fsxcluster is offline.",
	}
	assert.Equal(t, want, rig.emitter.messages())

	rig.run(t)
	assert.Len(t, rig.emitter.messages(), len(want), "unchanged conditions alert once")
}

func TestRunStorageBelowThresholdsQuiet(t *testing.T) {
	rig := newStorageRig(t,
		types.Rule{"aggrWarnPercentUsed": 80},
		types.Rule{"volumeWarnPercentUsed": 80},
	)
	rig.fc.page(aggregatesPath, collectionBody(t, testAggregate(50)))
	rig.fc.page(volumesPath, collectionBody(t, map[string]any{
		"uuid":  "vol-uuid-1",
		"name":  "vol1",
		"state": "online",
		"svm":   map[string]any{"name": "svm1"},
		"space": map[string]any{"percent_used": 50},
	}))

	rig.run(t)

	assert.Empty(t, rig.emitter.messages())
}

func TestRunStorageOldSnapshot(t *testing.T) {
	rig := newStorageRig(t, types.Rule{"oldSnapshot": 30})
	rig.fc.page(aggregatesPath, emptyPage)
	rig.fc.page(volumesPath, collectionBody(t,
		map[string]any{
			"uuid":  "vol-uuid-1",
			"name":  "vol1",
			"state": "online",
			"style": "flexvol",
			"svm":   map[string]any{"name": "svm1"},
		},
		// Flexcache and constituent volumes have no snapshots of their
		// own; fetching them would 404 and abort the domain.
		map[string]any{"uuid": "vol-uuid-2", "name": "volcache", "flexcache_endpoint_type": "cache"},
		map[string]any{"uuid": "vol-uuid-3", "name": "volfgc", "style": "flexgroup_constituent"},
	))
	rig.fc.page(fmt.Sprintf(volumeSnapshotsPath, "vol-uuid-1"), collectionBody(t,
		map[string]any{
			"uuid":        "snap-uuid-1",
			"name":        "daily_backup",
			"create_time": "2025-06-01T00:00:00Z",
			"volume":      map[string]any{"name": "vol1"},
			"svm":         map[string]any{"name": "svm1"},
		},
		map[string]any{
			"uuid":        "snap-uuid-2",
			"name":        "hourly_recent",
			"create_time": "2025-07-13T00:00:00Z",
			"volume":      map[string]any{"name": "vol1"},
			"svm":         map[string]any{"name": "svm1"},
		},
	))
	rig.m.now = func() time.Time { return time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC) }

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Old Snapshot Alert: snapshot daily_backup on volume vol1 in SVM svm1 is 3758400 seconds old (43 days 12 hours 0 minutes and 0 seconds), which is more than 30 days.", messages[0])
}

func TestRunStorageSnapshotFetchFailureDiscardsAgeing(t *testing.T) {
	rig := newStorageRig(t, types.Rule{"oldSnapshot": 30})
	rig.fc.page(aggregatesPath, emptyPage)
	rig.fc.page(volumesPath, collectionBody(t, map[string]any{
		"uuid":  "vol-uuid-1",
		"name":  "vol1",
		"state": "online",
		"style": "flexvol",
		"svm":   map[string]any{"name": "svm1"},
	}))
	snapshotsURI := fmt.Sprintf(volumeSnapshotsPath, "vol-uuid-1")
	rig.fc.page(snapshotsURI, collectionBody(t, map[string]any{
		"uuid":        "snap-uuid-1",
		"name":        "daily_backup",
		"create_time": "2025-06-01T00:00:00Z",
		"volume":      map[string]any{"name": "vol1"},
		"svm":         map[string]any{"name": "svm1"},
	}))
	rig.m.now = func() time.Time { return time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC) }

	rig.run(t)
	require.Len(t, rig.emitter.messages(), 1)

	rig.fc.fail(snapshotsURI, 500)
	rig.run(t)

	events, err := rig.store.Events(context.Background(), rig.cfg.StorageEventsFilename)
	require.NoError(t, err)
	require.Len(t, events.Records, 1)
	assert.Equal(t, types.EventResilience, events.Records[0].Refresh, "an aborted pass must not age the history")
}
