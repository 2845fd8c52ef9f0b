package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/schedule"
	"github.com/ontapwatch/ontapwatch/pkg/state"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

const (
	probePath        = "/api/cluster?fields=version,name,timezone"
	nodeSettingsPath = "/api/private/cli/system/node/virtual-machine/instance/show-settings"
	interfacesPath   = "/api/network/ip/interfaces?fields=state"
)

// CheckSystem probes the cluster to confirm it is reachable and records its
// name, version and timezone for the rest of the run. Reachability is
// tracked with a three-state counter so a single missed poll never alerts:
// the first failure arms the counter, the second raises a CRITICAL alert,
// and further failures stay quiet until the cluster answers again. It
// returns true when the evaluators should run.
func (m *Monitor) CheckSystem(ctx context.Context) (bool, error) {
	logger := log.WithCluster(m.cfg.OntapAdminServer)

	status, found, err := m.store.SystemStatus(ctx, m.cfg.SystemStatusFilename)
	if err != nil {
		return false, err
	}
	changed := false
	if !found {
		status = types.NewSystemStatus()
		changed = true
	}

	res, probeErr := m.client.Get(ctx, probePath, ontap.ProbeTimeout)
	badStatus := 0
	healthy := false
	if probeErr == nil {
		if res.OK() {
			if status.SystemHealth != 0 {
				status.SystemHealth = 0
				changed = true
			}
			healthy = m.applyClusterInfo(res, status)
		} else {
			badStatus = res.Status
		}
	}

	if !healthy {
		logger.Debug().Err(probeErr).Msgf("Failed to issue API against %s.", m.cfg.OntapAdminServer)
		switch status.SystemHealth {
		case 1:
			m.clusterName = m.cfg.OntapAdminServer
			if m.cfg.AWSAccountID != "" {
				m.clusterName = fmt.Sprintf("%s(%s)", m.cfg.OntapAdminServer, m.cfg.AWSAccountID)
			}
			m.emitter.SetCluster(m.clusterName)
			message := fmt.Sprintf("CRITICAL: Failed to issue API against %s. Cluster could be down.", m.clusterName)
			if badStatus != 0 {
				message = fmt.Sprintf("CRITICAL: Received a non 200 HTTP status code (%d) when trying to access %s.", badStatus, m.clusterName)
			}
			if err := m.emitter.Alert(ctx, types.SeverityCritical, message); err != nil {
				return false, err
			}
			status.SystemHealth = 2
			changed = true
		case 0:
			status.SystemHealth = 1
			changed = true
		}
	}

	if changed {
		if err := m.store.SaveSystemStatus(ctx, m.cfg.SystemStatusFilename, status); err != nil {
			return false, err
		}
	}
	return status.SystemHealth == 0, nil
}

// applyClusterInfo digests a successful probe response. It reports false
// when the body cannot be parsed, which the caller treats the same as an
// unreachable cluster.
func (m *Monitor) applyClusterInfo(res *ontap.Result, status *types.SystemStatus) bool {
	var doc ontap.ClusterInfo
	if err := res.Decode(&doc); err != nil {
		return false
	}
	// The "full" version string looks like "NetApp Release 9.13.1P6: Tue
	// Dec 05 16:06:25 UTC 2023". The individual version keys don't carry
	// the patch level, so the third word is the only complete version.
	fields := strings.Fields(doc.Version.Full)
	if len(fields) < 3 {
		return false
	}

	name := doc.Name
	if m.cfg.AWSAccountID != "" {
		name = fmt.Sprintf("%s(%s)", doc.Name, m.cfg.AWSAccountID)
	}
	m.clusterName = name
	m.emitter.SetCluster(name)
	m.clusterVersion = strings.ReplaceAll(fields[2], ":", "")
	if status.Version == types.InitialVersion {
		status.Version = m.clusterVersion
	}
	m.timezone = schedule.Location(doc.Timezone.Name, name)
	return true
}

// checkSystemHealth evaluates the system-health rules: a changed ONTAP
// version, a changed node count, and network interfaces that are down.
// CheckSystem runs first, so the status blob is expected to exist.
func (m *Monitor) checkSystemHealth(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "systemhealth")

	status, found, err := m.store.SystemStatus(ctx, m.cfg.SystemStatusFilename)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("system status %s missing for cluster %s", m.cfg.SystemStatusFilename, m.cfg.OntapAdminServer)
	}

	changed := false
	var failure error
	rules.ForEach(ruleList, func(key, lkey string, value any) {
		if failure != nil {
			return
		}
		switch lkey {
		case "versionchange":
			if !rules.Truthy(value) || m.clusterVersion == status.Version {
				return
			}
			message := fmt.Sprintf("NOTICE: The ONTAP vesion changed on cluster %s from %s to %s.", m.clusterName, status.Version, m.clusterVersion)
			if err := m.emitter.Alert(ctx, types.SeverityInfo, message); err != nil {
				failure = err
				return
			}
			status.Version = m.clusterVersion
			changed = true

		case "failover":
			if !rules.Truthy(value) {
				return
			}
			res, err := m.client.Get(ctx, nodeSettingsPath, ontap.DefaultTimeout)
			if err != nil {
				failure = err
				return
			}
			if !res.OK() {
				logger.Warn().Msgf("API call to https://%s%s failed. HTTP status code: %d.", m.client.Host(), nodeSettingsPath, res.Status)
				return
			}
			var count ontap.RecordCount
			if err := res.Decode(&count); err != nil {
				failure = err
				return
			}
			if count.NumRecords == status.NumberNodes {
				return
			}
			message := fmt.Sprintf("Alert: The number of nodes in cluster %s went from %d to %d.\nNote, this is likely a planned failover event to upgrade the O/S, or to change the throughput capacity.", m.clusterName, status.NumberNodes, count.NumRecords)
			if err := m.emitter.Alert(ctx, types.SeverityInfo, message); err != nil {
				failure = err
				return
			}
			status.NumberNodes = count.NumRecords
			changed = true

		case "networkinterfaces":
			if !rules.Truthy(value) {
				return
			}
			res, err := m.client.Get(ctx, interfacesPath, ontap.DefaultTimeout)
			if err != nil {
				failure = err
				return
			}
			if !res.OK() {
				logger.Warn().Msgf("API call to https://%s%s failed. HTTP status code: %d.", m.client.Host(), interfacesPath, res.Status)
				return
			}
			var page struct {
				Records []ontap.IPInterface `json:"records"`
			}
			if err := res.Decode(&page); err != nil {
				failure = err
				return
			}
			down := &state.Events{Records: status.DownInterfaces}
			down.Age()
			for _, iface := range page.Records {
				if iface.State == nil || *iface.State == "up" {
					continue
				}
				if down.Seen(types.FlexID(iface.Name)) {
					continue
				}
				message := fmt.Sprintf("Alert: Network interface %s on cluster %s is down.", iface.Name, m.clusterName)
				if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
					failure = err
					return
				}
				down.Add(types.EventRecord{Index: types.FlexID(iface.Name)})
			}
			down.Sweep(func(rec types.EventRecord) {
				logger.Debug().Msgf("Deleting interface: %s Cluster=%s", rec.Index, m.clusterName)
			})
			status.DownInterfaces = down.Records
			if down.Changed() {
				changed = true
			}

		default:
			logger.Warn().Msgf("Unknown System Health alert type: \"%s\" found on cluster %s.", key, m.clusterName)
		}
	})
	if failure != nil {
		return failure
	}

	if changed {
		return m.store.SaveSystemStatus(ctx, m.cfg.SystemStatusFilename, status)
	}
	return nil
}
