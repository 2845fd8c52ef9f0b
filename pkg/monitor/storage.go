package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

const (
	aggregatesPath         = "/api/storage/aggregates?fields=space&return_timeout=15"
	volumesPath            = "/api/storage/volumes?fields=style,flexcache_endpoint_type,space,files,svm,state&return_timeout=15"
	constituentVolumesPath = "/api/storage/volumes?is_constituent=true&fields=style,flexcache_endpoint_type,space,files,svm,state&return_timeout=15"
	volumeSnapshotsPath    = "/api/storage/volumes/%s/snapshots?fields=create_time,volume,svm&return_timeout=15"
)

// processStorage checks aggregate and volume utilization, offline volumes,
// and overly old snapshots. Constituent volumes are fetched separately since
// the volumes endpoint hides them by default.
func (m *Monitor) processStorage(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "storage")

	events, err := m.store.Events(ctx, m.cfg.StorageEventsFilename)
	if err != nil {
		return err
	}
	events.Age()

	aggregates, err := ontap.Collect[ontap.Aggregate](ctx, m.client, aggregatesPath)
	if err != nil {
		if endpoint, status, ok := m.restFailure(err); ok {
			logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
			return nil
		}
		return err
	}

	var volumes []ontap.Volume
	for _, path := range []string{volumesPath, constituentVolumesPath} {
		batch, err := ontap.Collect[ontap.Volume](ctx, m.client, path)
		if err != nil {
			if endpoint, status, ok := m.restFailure(err); ok {
				logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
				return nil
			}
			return err
		}
		volumes = append(volumes, batch...)
	}

	logger.Info().Msgf("Found %d volumes and %d aggregates to check on cluster %s.", len(volumes), len(aggregates), m.clusterName)
	if len(volumes) == 0 && len(aggregates) == 0 {
		return nil
	}

	var failure error
	aborted := false

	// report runs the shared dedup-then-alert step. It returns false when
	// the alert could not be delivered, which fails the run.
	report := func(id types.FlexID, message string) bool {
		if events.Seen(id) {
			return true
		}
		if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
			failure = err
			return false
		}
		events.Add(types.EventRecord{Index: id, Message: message})
		return true
	}

	rules.ForEach(ruleList, func(key, lkey string, value any) {
		if failure != nil || aborted {
			return
		}
		switch lkey {
		case "aggrwarnpercentused", "aggrcriticalpercentused":
			threshold, ok := rules.Number(value)
			if !ok {
				logger.Warn().Msgf("Invalid threshold for \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			label := "Warning"
			if lkey == "aggrcriticalpercentused" {
				label = "Critical"
			}
			for _, aggr := range aggregates {
				if aggr.Space.BlockStorage.UsedPercent < threshold {
					continue
				}
				id := types.FlexID(aggr.UUID + "_" + key)
				message := fmt.Sprintf("Aggregate %s Alert: Aggregate %s on %s is %v%% full, which is more or equal to %v%% full.",
					label, aggr.Name, m.clusterName, aggr.Space.BlockStorage.UsedPercent, threshold)
				if !report(id, message) {
					return
				}
			}

		case "volumewarnpercentused", "volumecriticalpercentused":
			threshold, ok := rules.Number(value)
			if !ok {
				logger.Warn().Msgf("Invalid threshold for \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			label := "Warning"
			if lkey == "volumecriticalpercentused" {
				label = "Critical"
			}
			for _, vol := range volumes {
				if vol.Space.PercentUsed == nil || *vol.Space.PercentUsed == 0 {
					continue
				}
				if *vol.Space.PercentUsed < threshold {
					continue
				}
				id := types.FlexID(vol.UUID + "_" + key)
				message := fmt.Sprintf("Volume Usage %s Alert: volume %s:%s on %s is %v%% full, which is more or equal to %v%% full.",
					label, vol.SVM.Name, vol.Name, m.clusterName, *vol.Space.PercentUsed, threshold)
				if !report(id, message) {
					return
				}
			}

		case "volumewarnfilespercentused", "volumecriticalfilespercentused":
			threshold, ok := rules.Number(value)
			if !ok {
				logger.Warn().Msgf("Invalid threshold for \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			label := "Warning"
			if lkey == "volumecriticalfilespercentused" {
				label = "Critical"
			}
			for _, vol := range volumes {
				// Offline volumes don't report files information.
				if vol.Files == nil || vol.Files.Maximum == nil || vol.Files.Used == nil || *vol.Files.Maximum == 0 {
					continue
				}
				percentUsed := float64(*vol.Files.Used) / float64(*vol.Files.Maximum) * 100
				if percentUsed < threshold {
					continue
				}
				id := types.FlexID(vol.UUID + "_" + key)
				message := fmt.Sprintf("Volume File (inode) Usage %s Alert: volume %s:%s on %s is using %.0f%% of it's inodes, which is more or equal to %v%% utilization.",
					label, vol.SVM.Name, vol.Name, m.clusterName, percentUsed, threshold)
				if !report(id, message) {
					return
				}
			}

		case "offline":
			if !rules.Truthy(value) {
				return
			}
			for _, vol := range volumes {
				if strings.ToLower(vol.State) != "offline" {
					continue
				}
				id := types.FlexID(fmt.Sprintf("%s_%s_%v", vol.UUID, key, value))
				message := fmt.Sprintf("Volume Offline Alert: volume %s:%s on %s is offline.", vol.SVM.Name, vol.Name, m.clusterName)
				if !report(id, message) {
					return
				}
			}

		case "oldsnapshot":
			days, ok := rules.Number(value)
			if !ok {
				logger.Warn().Msgf("Invalid threshold for \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			curTime := m.now().Unix()
			var snapshots []ontap.VolumeSnapshot
			for _, vol := range volumes {
				if strings.ToLower(vol.FlexcacheEndpointType) == "cache" || strings.ToLower(vol.Style) == "flexgroup_constituent" {
					continue
				}
				batch, err := ontap.Collect[ontap.VolumeSnapshot](ctx, m.client, fmt.Sprintf(volumeSnapshotsPath, vol.UUID))
				if err != nil {
					if endpoint, status, ok := m.restFailure(err); ok {
						logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
						aborted = true
						return
					}
					failure = err
					return
				}
				snapshots = append(snapshots, batch...)
			}
			logger.Info().Msgf("Found %d snapshots on cluster %s.", len(snapshots), m.clusterName)
			for _, snap := range snapshots {
				if snap.CreateTime == "" {
					continue
				}
				created, err := time.Parse(time.RFC3339, snap.CreateTime)
				if err != nil {
					logger.Warn().Msgf("Could not parse creation time \"%s\" of snapshot %s on cluster %s.", snap.CreateTime, snap.Name, m.clusterName)
					continue
				}
				age := curTime - created.Unix()
				if float64(age) < days*60*60*24 {
					continue
				}
				id := types.FlexID(fmt.Sprintf("%s_%s", snap.UUID, key))
				message := fmt.Sprintf("Old Snapshot Alert: snapshot %s on volume %s in SVM %s is %d seconds old (%s), which is more than %v days.",
					snap.Name, snap.Volume.Name, snap.SVM.Name, age, ontap.LagTimeString(age), days)
				if !report(id, message) {
					return
				}
			}

		default:
			logger.Warn().Msgf("Unknown storage alert type: \"%s\" found for cluster %s.", key, m.clusterName)
		}
	})
	if failure != nil {
		return failure
	}
	if aborted {
		return nil
	}

	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s on cluster %s", rec.Message, m.clusterName)
	})
	if events.Changed() {
		return m.store.SaveEvents(ctx, m.cfg.StorageEventsFilename, events)
	}
	return nil
}
