package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/alert"
	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/metrics"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/rules"
	"github.com/ontapwatch/ontapwatch/pkg/state"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// ScheduleResolver answers when a replication relationship was last due to
// transfer. Satisfied by schedule.Resolver; tests substitute a fixed answer.
type ScheduleResolver interface {
	LastScheduledUpdate(ctx context.Context, rel *ontap.Relationship) int64
}

// Monitor evaluates one cluster. It is built once per run; the availability
// probe fills in the cluster's real name, version and timezone before any
// domain evaluator uses them.
type Monitor struct {
	cfg      *config.Monitor
	store    *state.Store
	client   *ontap.Client
	emitter  alert.Emitter
	resolver ScheduleResolver

	clusterName    string
	clusterVersion string
	timezone       *time.Location

	now func() time.Time
}

// New creates a Monitor for the cluster cfg describes.
func New(cfg *config.Monitor, store *state.Store, client *ontap.Client, emitter alert.Emitter) *Monitor {
	return &Monitor{
		cfg:         cfg,
		store:       store,
		client:      client,
		emitter:     emitter,
		clusterName: cfg.OntapAdminServer,
		timezone:    time.UTC,
		now:         time.Now,
	}
}

// Run executes one full monitoring pass: resolve the conditions document,
// probe availability, then evaluate each configured service. A malformed
// conditions document skips the pass without failing it, since failing
// would just burn through the dispatcher's failure budget on every cycle
// until an operator fixes the document.
func (m *Monitor) Run(ctx context.Context) error {
	logger := log.WithCluster(m.cfg.OntapAdminServer)

	// Time the whole pass
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PassDuration)

	conditions, err := m.loadConditions(ctx)
	if err != nil {
		if state.IsDecodeError(err) {
			logger.Error().Msgf("Error, could not decode JSON from configuration file \"%s\" for cluster %s. The error message from the decoder:\n%v\n", m.cfg.ConditionsFilename, m.cfg.OntapAdminServer, err)
			return nil
		}
		logger.Error().Msgf("Error, could not retrieve configuration file %s from: s3://%s for cluster %s.\nBelow is additional information:", m.cfg.ConditionsFilename, m.cfg.S3BucketName, m.cfg.OntapAdminServer)
		return err
	}

	up, err := m.CheckSystem(ctx)
	if err != nil {
		return err
	}
	if !up {
		return nil
	}

	for _, service := range conditions.Services {
		name := strings.ToLower(service.Name)
		switch name {
		case "systemhealth":
			err = m.checkSystemHealth(ctx, service.Rules)
		case "ems":
			err = m.processEMSEvents(ctx, service.Rules)
		case "snapmirror":
			err = m.processSnapMirror(ctx, service.Rules)
		case "storage":
			err = m.processStorage(ctx, service.Rules)
		case "quota":
			err = m.processQuota(ctx, service.Rules)
		case "vserver":
			err = m.processVserver(ctx, service.Rules)
		default:
			unknownLogger := log.WithCluster(m.clusterName)
			unknownLogger.Warn().Msgf("Unknown service \"%s\" found for cluster %s.", service.Name, m.clusterName)
			continue
		}
		if err != nil {
			metrics.ServiceChecksTotal.WithLabelValues(name, "failure").Inc()
			return err
		}
		metrics.ServiceChecksTotal.WithLabelValues(name, "success").Inc()
	}
	return nil
}

// loadConditions fetches the cluster's conditions document, synthesizing and
// persisting a default one on first run.
func (m *Monitor) loadConditions(ctx context.Context) (*types.Conditions, error) {
	conditions, err := m.store.Conditions(ctx, m.cfg.ConditionsFilename)
	if errors.Is(err, blob.ErrNotFound) {
		defaults := rules.DefaultConditions(m.cfg.Initial, m.cfg.OntapAdminServer)
		if err := m.store.SaveConditions(ctx, m.cfg.ConditionsFilename, &defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return conditions, nil
}

// ClusterName returns the cluster's display name, refined by the most recent
// availability probe.
func (m *Monitor) ClusterName() string {
	return m.clusterName
}

// restFailure extracts the endpoint and status from a failed collection when
// the failure was a non-200 page. Those abort the domain without persisting,
// so aged refresh counts are discarded and the next successful pass still
// sees the histories it expects. Transport and decode errors return ok false
// and fail the whole run.
func (m *Monitor) restFailure(err error) (endpoint string, status int, ok bool) {
	var statusErr *ontap.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("https://%s%s", m.client.Host(), statusErr.Path), statusErr.Status, true
	}
	return "", 0, false
}
