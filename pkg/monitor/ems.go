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

const emsEventsPath = "/api/support/ems/events?return_timeout=15"

// processEMSEvents compares the cluster's EMS stream against the configured
// matching rules and alerts on anything that hasn't been reported yet.
func (m *Monitor) processEMSEvents(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "ems")

	events, err := m.store.Events(ctx, m.cfg.EMSEventsFilename)
	if err != nil {
		return err
	}
	events.Age()

	records, err := ontap.Collect[ontap.EMSEvent](ctx, m.client, emsEventsPath)
	if err != nil {
		if endpoint, status, ok := m.restFailure(err); ok {
			logger.Warn().Msgf("API call to %s failed. HTTP status code: %d.", endpoint, status)
			return nil
		}
		return err
	}

	logger.Info().Msgf("Received %d EMS records from cluster %s.", len(records), m.clusterName)

	compiled := rules.CompileEMS(ruleList, m.clusterName)
	for _, record := range records {
		for _, rule := range compiled {
			if !rule.Matches(record.Message.Name, record.Message.Severity, record.LogMessage) {
				continue
			}
			if events.Seen(record.Index) {
				continue
			}
			message := fmt.Sprintf("%s : %s %s(%s) - %s", record.Time, m.clusterName, record.Message.Name, record.Message.Severity, record.LogMessage)
			if err := m.sendEMSAlert(ctx, record.Message.Severity, message); err != nil {
				return err
			}
			events.Add(types.EventRecord{
				Index:       record.Index,
				Time:        record.Time,
				MessageName: record.Message.Name,
				Message:     record.LogMessage,
			})
		}
	}

	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s : %s Cluster=%s", rec.Time, rec.Message, m.clusterName)
	})
	if events.Changed() {
		return m.store.SaveEvents(ctx, m.cfg.EMSEventsFilename, events)
	}
	return nil
}

// sendEMSAlert maps an EMS severity onto an alert severity one level down,
// since EMS grades its messages a notch more urgently than operators read
// them. Unrecognized severities are forwarded as INFO with a note.
func (m *Monitor) sendEMSAlert(ctx context.Context, emsSeverity, message string) error {
	switch strings.ToUpper(emsSeverity) {
	case "EMERGENCY":
		return m.emitter.Alert(ctx, types.SeverityCritical, message)
	case "ALERT":
		return m.emitter.Alert(ctx, types.SeverityError, message)
	case "ERROR":
		return m.emitter.Alert(ctx, types.SeverityWarning, message)
	case "NOTICE", "INFORMATIONAL":
		return m.emitter.Alert(ctx, types.SeverityInfo, message)
	case "DEBUG":
		return m.emitter.Alert(ctx, types.SeverityDebug, message)
	default:
		note := fmt.Sprintf("Received unknown severity from ONTAP \"%s\". The message received is next.", emsSeverity)
		if err := m.emitter.Alert(ctx, types.SeverityInfo, note); err != nil {
			return err
		}
		return m.emitter.Alert(ctx, types.SeverityInfo, message)
	}
}
