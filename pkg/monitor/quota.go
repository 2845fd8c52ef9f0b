package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// The structured quota endpoint started returning zero records on some
// releases, so the CLI passthrough report is used instead.
const quotaReportPath = "/api/private/cli/volume/quota/report?fields=vserver,volume,index,tree,quota-type,quota-target,disk-used,disk-limit,files-used,file-limit,soft-disk-limit,soft-file-limit,quota-specifier,disk-used-pct-soft-disk-limit,disk-used-pct-disk-limit,files-used-pct-soft-file-limit,files-used-pct-file-limit&return_timeout=15"

// quotaChecks maps each rule key to the report column it tests and the
// message fragments that describe it. The space checks skip zero
// percentages; the inode checks process them.
var quotaChecks = map[string]struct {
	kind, level, noun string
	column            func(*ontap.QuotaRow) *float64
	skipZero          bool
}{
	"maxsoftquotainodespercentused": {"Inode", "Soft", "its inodes", func(r *ontap.QuotaRow) *float64 { return r.FilesUsedPctSoftLimit }, false},
	"maxquotainodespercentused":     {"Inode", "Hard", "its inodes", func(r *ontap.QuotaRow) *float64 { return r.FilesUsedPctHardLimit }, false},
	"maxhardquotainodespercentused": {"Inode", "Hard", "its inodes", func(r *ontap.QuotaRow) *float64 { return r.FilesUsedPctHardLimit }, false},
	"maxhardquotaspacepercentused":  {"Space", "Hard", "its allocated space", func(r *ontap.QuotaRow) *float64 { return r.DiskUsedPctHardLimit }, true},
	"maxsoftquotaspacepercentused":  {"Space", "Soft", "its allocated space", func(r *ontap.QuotaRow) *float64 { return r.DiskUsedPctSoftDiskLimit }, true},
}

// processQuota compares every row of the volume quota report against the
// configured utilization thresholds.
func (m *Monitor) processQuota(ctx context.Context, ruleList []types.Rule) error {
	logger := log.WithDomain(m.clusterName, "quota")

	events, err := m.store.Events(ctx, m.cfg.QuotaEventsFilename)
	if err != nil {
		return err
	}
	events.Age()

	records, err := ontap.Collect[ontap.QuotaRow](ctx, m.client, quotaReportPath)
	if err != nil {
		if endpoint, status, ok := m.restFailure(err); ok {
			logger.Error().Msgf("API call to %s failed. HTTP status code: %d.", endpoint, status)
			return nil
		}
		return err
	}

	logger.Info().Msgf("Found %d quota report records cluster=%s.", len(records), m.clusterName)

	var failure error
	for i := range records {
		row := &records[i]
		rules.ForEach(ruleList, func(key, lkey string, value any) {
			if failure != nil {
				return
			}
			check, known := quotaChecks[lkey]
			if !known {
				logger.Warn().Msgf("Unknown quota matching condition type \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			threshold, ok := rules.Number(value)
			if !ok {
				logger.Warn().Msgf("Invalid threshold for \"%s\" found for cluster %s.", key, m.clusterName)
				return
			}
			pct := check.column(row)
			if pct == nil || (check.skipZero && *pct == 0) || *pct < threshold {
				return
			}
			id := types.FlexID(strconv.FormatInt(row.Index, 10) + "_" + key)
			if events.Seen(id) {
				return
			}
			userStr, qtreeStr := quotaQualifiers(row)
			message := fmt.Sprintf("Quota %s Usage Alert: %s quota of type \"%s\" on %s:/%s%s%son %s is using %v%% which is more than %v%% of %s.",
				check.kind, check.level, row.QuotaType, row.Vserver, row.Volume, qtreeStr, userStr, m.clusterName, *pct, threshold, check.noun)
			if err := m.emitter.Alert(ctx, types.SeverityWarning, message); err != nil {
				failure = err
				return
			}
			events.Add(types.EventRecord{Index: id, Message: message})
		})
		if failure != nil {
			return failure
		}
	}

	events.Sweep(func(rec types.EventRecord) {
		logger.Debug().Msgf("Deleting event: %s Cluster=%s", rec.Message, m.clusterName)
	})
	if events.Changed() {
		return m.store.SaveEvents(ctx, m.cfg.QuotaEventsFilename, events)
	}
	return nil
}

// quotaQualifiers renders the optional user and qtree fragments of a quota
// alert. The qtree fragment defaults to a single space so the message still
// reads "volume on cluster" when no tree is set.
func quotaQualifiers(row *ontap.QuotaRow) (userStr, qtreeStr string) {
	qtreeStr = " "
	if row.QuotaType == "user" {
		userStr = fmt.Sprintf("associated with user(s) \"%s\" ", strings.Join(row.QuotaTarget, ","))
	}
	if row.Tree != "" {
		qtreeStr = fmt.Sprintf(" under qtree: %s ", row.Tree)
	}
	return userStr, qtreeStr
}
