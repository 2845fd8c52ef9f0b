package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

const (
	svmsPath         = "/api/svm/svms?fields=state&return_timeout=15"
	nfsServicesPath  = "/api/protocols/nfs/services?fields=state&return_timeout=15"
	cifsServicesPath = "/api/protocols/cifs/services?fields=enabled&return_timeout=15"
)

// processVserver checks that every SVM is running and that the NFS and CIFS
// protocol services it hosts are online.
func (m *Monitor) processVserver(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "vserver")

	events, err := m.store.Events(ctx, m.cfg.VserverEventsFilename)
	if err != nil {
		return err
	}
	events.Age()

	consolidated := rules.ConsolidateVserver(ruleList, m.clusterName)

	report := func(id types.FlexID, message string) error {
		if events.Seen(id) {
			return nil
		}
		if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
			return err
		}
		events.Add(types.EventRecord{Index: id, Message: message})
		return nil
	}

	if consolidated.State != nil && *consolidated.State {
		records, err := ontap.Collect[ontap.SVMInfo](ctx, m.client, svmsPath)
		if err != nil {
			if endpoint, status, ok := m.restFailure(err); ok {
				logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
				return nil
			}
			return err
		}
		logger.Info().Msgf("Found %d vservers to check on cluster %s.", len(records), m.clusterName)
		for _, svm := range records {
			if strings.ToLower(svm.State) == "running" {
				continue
			}
			id := types.FlexID(svm.UUID + "_" + consolidated.StateKey)
			message := fmt.Sprintf("SVM State Alert: SVM %s on %s is not online.", svm.Name, m.clusterName)
			if err := report(id, message); err != nil {
				return err
			}
		}
	}

	if consolidated.NFSProtocol != nil && *consolidated.NFSProtocol {
		records, err := ontap.Collect[ontap.NFSService](ctx, m.client, nfsServicesPath)
		if err != nil {
			if endpoint, status, ok := m.restFailure(err); ok {
				logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
				return nil
			}
			return err
		}
		for _, svc := range records {
			if strings.ToLower(svc.State) == "online" {
				continue
			}
			id := types.FlexID(svc.SVM.UUID + "_" + consolidated.NFSProtocolKey)
			message := fmt.Sprintf("NFS Protocol State Alert: NFS protocol on %s on %s is not online.", svc.SVM.Name, m.clusterName)
			if err := report(id, message); err != nil {
				return err
			}
		}
	}

	if consolidated.CIFSProtocol != nil && *consolidated.CIFSProtocol {
		records, err := ontap.Collect[ontap.CIFSService](ctx, m.client, cifsServicesPath)
		if err != nil {
			if endpoint, status, ok := m.restFailure(err); ok {
				logger.Error().Msgf("API call to %s failed. HTTP status code %d.", endpoint, status)
				return nil
			}
			return err
		}
		for _, svc := range records {
			if svc.Enabled == nil || *svc.Enabled {
				continue
			}
			id := types.FlexID(svc.SVM.UUID + "_" + consolidated.CIFSProtocolKey)
			message := fmt.Sprintf("CIFS Protocol State Alert: CIFS protocol on %s on %s is not online.", svc.SVM.Name, m.clusterName)
			if err := report(id, message); err != nil {
				return err
			}
		}
	}

	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s for cluster %s", rec.Message, m.clusterName)
	})
	if events.Changed() {
		return m.store.SaveEvents(ctx, m.cfg.VserverEventsFilename, events)
	}
	return nil
}
