package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/schedule"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

const relationshipsPath = "/api/snapmirror/relationships?fields=*&return_timeout=15"

// inProgressStates are the transfer states that suppress a percent-based lag
// alert when stalled-transfer detection is enabled, since an active transfer
// means the lag is already being worked off.
var inProgressStates = map[string]bool{
	"transferring":     true,
	"finalizing":       true,
	"preparing":        true,
	"fasttransferring": true,
}

// processSnapMirror checks every replication relationship for excessive lag,
// an unhealthy status, and stalled transfers. Transfer progress is tracked
// in a watchlist between runs so a stall can be told apart from a slow but
// moving transfer.
func (m *Monitor) processSnapMirror(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "snapmirror")

	events, err := m.store.Events(ctx, m.cfg.SMEventsFilename)
	if err != nil {
		return err
	}
	events.Age()

	watchlist, err := m.store.Watchlist(ctx, m.cfg.SMRelationshipsFilename)
	if err != nil {
		return err
	}
	for i := range watchlist {
		watchlist[i].Refresh = false
	}
	updateRelationships := false

	curTime := m.now().Unix()
	consolidated := rules.ConsolidateSnapMirror(ruleList, m.clusterName)

	records, err := ontap.Collect[ontap.Relationship](ctx, m.client, relationshipsPath)
	if err != nil {
		if endpoint, status, ok := m.restFailure(err); ok {
			logger.Warn().Msgf("API call to %s failed. HTTP status code: %d.", endpoint, status)
			return nil
		}
		return err
	}

	logger.Info().Msgf("Found %d SnapMirror relationships on cluster %s.", len(records), m.clusterName)

	resolver := m.resolver
	if resolver == nil {
		resolver = schedule.NewResolver(m.client, m.timezone)
	}

	for i := range records {
		record := &records[i]
		// Lag can be judged two ways; make sure only one fires per
		// relationship.
		processedLagTime := false

		// No source cluster means a local relationship.
		source := record.Source.Cluster.Name
		if source == "" {
			source = m.clusterName
		}

		// An uninitialized relationship reports its lag from the oldest
		// snapshot of the source volume, which would be a false positive.
		if record.LagTime != "" && strings.ToLower(record.State) != "uninitialized" {
			lagSeconds := ontap.ParseLagTime(record.LagTime, m.clusterName)

			if consolidated.MaxLagTimePercent != nil {
				lastScheduled := resolver.LastScheduledUpdate(ctx, record)
				if lastScheduled != -1 {
					processedLagTime = true
					if float64(lagSeconds) > float64(curTime-lastScheduled)*(*consolidated.MaxLagTimePercent)/100 {
						suppressed := record.Transfer != nil &&
							inProgressStates[strings.ToLower(record.Transfer.State)] &&
							consolidated.StalledSeconds != nil
						if !suppressed {
							id := types.FlexID(record.UUID + "_" + consolidated.MaxLagTimePercentKey)
							if !events.Seen(id) {
								timeStr := ontap.LagTimeString(lagSeconds)
								asciiTime := time.Unix(lastScheduled, 0).Format("2006-01-02 15:04:05")
								message := fmt.Sprintf("Snapmirror Lag Alert: %s::%s -> %s::%s has a lag time of %d seconds (%s) which is more than %v%% of its last scheduled update at %s.",
									source, record.Source.Path, m.clusterName, record.Destination.Path, lagSeconds, timeStr, *consolidated.MaxLagTimePercent, asciiTime)
								if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
									return err
								}
								events.Add(types.EventRecord{Index: id, Message: message})
							}
						}
					}
				}
			}

			if consolidated.MaxLagTime != nil && !processedLagTime && float64(lagSeconds) > *consolidated.MaxLagTime {
				id := types.FlexID(record.UUID + "_" + consolidated.MaxLagTimeKey)
				if !events.Seen(id) {
					timeStr := ontap.LagTimeString(lagSeconds)
					message := fmt.Sprintf("Snapmirror Lag Alert: %s::%s -> %s::%s has a lag time of %d seconds, or %s which is more than %v.",
						source, record.Source.Path, m.clusterName, record.Destination.Path, lagSeconds, timeStr, *consolidated.MaxLagTime)
					if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
						return err
					}
					events.Add(types.EventRecord{Index: id, Message: message})
				}
			}
		}

		// Alert on "not healthy" only when the rule asks for that state.
		if consolidated.Healthy != nil && !*consolidated.Healthy && record.Healthy != nil && !*record.Healthy {
			id := types.FlexID(record.UUID + "_" + consolidated.HealthyKey)
			if !events.Seen(id) {
				message := fmt.Sprintf("Snapmirror Health Alert: %s::%s %s::%s has a status of %t.",
					source, record.Source.Path, m.clusterName, record.Destination.Path, *record.Healthy)
				for _, reason := range record.UnhealthyReason {
					message += "\n" + reason.Message
				}
				if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
					return err
				}
				events.Add(types.EventRecord{Index: id, Message: message})
			}
		}

		if consolidated.StalledSeconds != nil && record.Transfer != nil && strings.ToLower(record.Transfer.State) == "transferring" {
			prev := findTransfer(watchlist, record.Transfer.UUID)
			if prev != nil {
				if prev.BytesTransferred == record.Transfer.BytesTransferred {
					if float64(curTime-prev.Time) > *consolidated.StalledSeconds {
						id := types.FlexID(record.UUID + "_transfer")
						if !events.Seen(id) {
							message := fmt.Sprintf("Snapmirror transfer has stalled: %s::%s -> %s::%s.",
								source, record.Source.Path, m.clusterName, record.Destination.Path)
							if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
								return err
							}
							events.Add(types.EventRecord{Index: id, Message: message})
						}
					}
				} else {
					prev.Time = curTime
					prev.BytesTransferred = record.Transfer.BytesTransferred
					updateRelationships = true
				}
			} else {
				watchlist = append(watchlist, types.TransferRecord{
					UUID:             record.Transfer.UUID,
					Time:             curTime,
					BytesTransferred: record.Transfer.BytesTransferred,
					Refresh:          true,
				})
				updateRelationships = true
			}
		}
	}

	// Transfers that no longer show up have completed; drop them.
	kept := watchlist[:0]
	for i := range watchlist {
		if !watchlist[i].Refresh {
			id := watchlist[i].UUID
			if id == "" {
				id = "Old format"
			}
			logger.Debug().Msgf("Deleting smRelationship: %s cluster=%s", id, m.clusterName)
			updateRelationships = true
			continue
		}
		kept = append(kept, watchlist[i])
	}
	watchlist = kept

	if updateRelationships {
		if err := m.store.SaveWatchlist(ctx, m.cfg.SMRelationshipsFilename, watchlist); err != nil {
			return err
		}
	}

	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s Cluster=%s", rec.Message, m.clusterName)
	})
	if events.Changed() {
		return m.store.SaveEvents(ctx, m.cfg.SMEventsFilename, events)
	}
	return nil
}

// findTransfer locates a watchlist entry by transfer UUID, marking it
// still-live when found.
func findTransfer(watchlist []types.TransferRecord, uuid string) *types.TransferRecord {
	for i := range watchlist {
		if watchlist[i].UUID == uuid {
			watchlist[i].Refresh = true
			return &watchlist[i]
		}
	}
	return nil
}
