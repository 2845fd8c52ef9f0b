package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/metrics"
	"github.com/ontapwatch/ontapwatch/pkg/state"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// FailureCountersKey names the blob holding the per-cluster
// consecutive-failure counters.
const FailureCountersKey = "monitor-failure-counters"

// MetaSubject is the SNS subject for alerts about the dispatcher itself.
const MetaSubject = "MOS Controller Error"

// Runner executes one monitoring pass for the cluster the payload describes.
// The command layer wires the real monitor in; tests substitute a recorder.
type Runner func(ctx context.Context, payload map[string]string) error

// Notifier publishes dispatcher-level alerts. Satisfied by alert.Publisher.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}

// Dispatcher fans monitoring passes out over the fleet.
type Dispatcher struct {
	cfg    *config.Controller
	blobs  blob.Store
	states *state.Store
	notify Notifier
	runner Runner

	// fireAndForget launches every pass concurrently and keeps no failure
	// counters; outcomes are logged but not tracked.
	fireAndForget bool

	stopCh chan struct{}

	mu      sync.RWMutex
	fleet   int
	failing int
}

// New creates a Dispatcher over the given fleet configuration.
func New(cfg *config.Controller, blobs blob.Store, states *state.Store, notify Notifier, runner Runner, fireAndForget bool) *Dispatcher {
	return &Dispatcher{
		cfg:           cfg,
		blobs:         blobs,
		states:        states,
		notify:        notify,
		runner:        runner,
		fireAndForget: fireAndForget,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the dispatch loop
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	go d.run(ctx, interval)
}

// Stop stops the dispatcher
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// run is the main dispatch loop
func (d *Dispatcher) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The first pass runs immediately; waiting a full interval on start
	// would leave a fresh deployment blind.
	if err := d.RunOnce(ctx); err != nil {
		log.Errorf("Monitoring pass failed", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				log.Errorf("Monitoring pass failed", err)
			}
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one full pass over the fleet. Only a failure to obtain
// the fleet list itself is an error; per-cluster failures surface as alerts
// and counters so one broken cluster cannot stop the rest of the fleet from
// being monitored.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	logger := log.WithRunID(uuid.NewString())

	data, err := d.blobs.Get(ctx, d.cfg.FleetListKey)
	if err != nil {
		message := fmt.Sprintf("Error, the Monitor ONTAP Service controller was unable to fetch the fleet list %s from s3://%s: %v",
			d.cfg.FleetListKey, d.cfg.S3BucketName, err)
		logger.Error().Msg(message)
		d.notifyFatal(ctx, logger, message)
		return fmt.Errorf("failed to fetch fleet list %q: %w", d.cfg.FleetListKey, err)
	}

	entries := ParseFleet(string(data))
	d.mu.Lock()
	d.fleet = len(entries)
	d.mu.Unlock()

	if d.fireAndForget {
		d.runConcurrent(ctx, logger, entries)
		return nil
	}
	d.runSerial(ctx, logger, entries)
	return nil
}

// runConcurrent launches every monitoring pass at once and waits for them to
// finish. No failure counters are kept in this mode.
func (d *Dispatcher) runConcurrent(ctx context.Context, logger zerolog.Logger, entries []types.FleetEntry) {
	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(entry types.FleetEntry) {
			defer wg.Done()
			logger.Info().Msgf("Dispatched monitoring for %s.", entry.Host)
			payload := d.cfg.MonitorPayload(entry.Host, entry.SecretARN, entry.Overrides)
			if err := d.runner(ctx, payload); err != nil {
				metrics.PassesTotal.WithLabelValues("failure").Inc()
				logger.Error().Err(err).Msgf("Monitoring pass for %s failed.", entry.Host)
				return
			}
			metrics.PassesTotal.WithLabelValues("success").Inc()
		}(entry)
	}
	wg.Wait()
}

// runSerial walks the fleet one cluster at a time, maintaining the
// consecutive-failure counters. The counter blob is persisted after every
// change so an interrupted pass never loses counts.
func (d *Dispatcher) runSerial(ctx context.Context, logger zerolog.Logger, entries []types.FleetEntry) {
	counters, err := d.states.FailureCounters(ctx, FailureCountersKey)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load the failure counters; starting from zero.")
		counters = map[string]int{}
	}

	for _, entry := range entries {
		payload := d.cfg.MonitorPayload(entry.Host, entry.SecretARN, entry.Overrides)
		err := d.runner(ctx, payload)
		if err == nil {
			metrics.PassesTotal.WithLabelValues("success").Inc()
			logger.Info().Msgf("Completed monitoring pass for %s.", entry.Host)
			if counters[entry.Host] != 0 {
				counters[entry.Host] = 0
				d.saveCounters(ctx, logger, counters)
			}
			continue
		}

		metrics.PassesTotal.WithLabelValues("failure").Inc()
		logger.Error().Err(err).Msgf("Monitoring pass for %s failed.", entry.Host)
		counters[entry.Host]++
		if counters[entry.Host] == types.MaxAllowedFailures {
			message := fmt.Sprintf("Error, monitoring for cluster %s has failed %d consecutive times. The most recent error:\n%v",
				entry.Host, counters[entry.Host], err)
			if pubErr := d.notify.Publish(ctx, MetaSubject+": Failed to run monitoring function", message); pubErr != nil {
				logger.Error().Err(pubErr).Msgf("Failed to publish the failure alert for %s.", entry.Host)
			}
		}
		d.saveCounters(ctx, logger, counters)
	}

	failing := 0
	for _, entry := range entries {
		if counters[entry.Host] > 0 {
			failing++
		}
	}
	d.mu.Lock()
	d.failing = failing
	d.mu.Unlock()
}

func (d *Dispatcher) saveCounters(ctx context.Context, logger zerolog.Logger, counters map[string]int) {
	if err := d.states.SaveFailureCounters(ctx, FailureCountersKey, counters); err != nil {
		logger.Error().Err(err).Msg("Failed to persist the failure counters.")
	}
}

// notifyFatal raises a best-effort SNS alert for an error that stops the
// dispatcher itself.
func (d *Dispatcher) notifyFatal(ctx context.Context, logger zerolog.Logger, message string) {
	if d.notify == nil {
		return
	}
	if err := d.notify.Publish(ctx, MetaSubject, message); err != nil {
		logger.Error().Err(err).Msg("Failed to publish the controller error alert.")
	}
}

// FleetSize returns the number of entries in the most recently parsed fleet
// descriptor.
func (d *Dispatcher) FleetSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fleet
}

// FailingClusters returns how many fleet entries carried a non-zero failure
// counter after the most recent serial pass.
func (d *Dispatcher) FailingClusters() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.failing
}

// ParseFleet parses the fleet descriptor. One cluster per line:
//
//	hostname,secretARN,parameter=value,...
//
// Blank lines and lines whose first field starts with '#' are skipped, so an
// entry can be disabled without deleting it. Lines with fewer than two
// fields and parameters without '=' are skipped with a warning naming the
// line.
func ParseFleet(content string) []types.FleetEntry {
	var entries []types.FleetEntry
	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		parts := strings.Split(line, ",")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		if parts[0] == "" || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if len(parts) < 2 {
			log.Logger.Warn().Msgf("Skipping invalid fleet entry on line %d.", lineNum)
			continue
		}

		entry := types.FleetEntry{
			Host:      parts[0],
			SecretARN: parts[1],
			Overrides: map[string]string{},
		}
		for _, param := range parts[2:] {
			key, value, ok := strings.Cut(param, "=")
			if !ok {
				log.Logger.Warn().Msgf("Skipping invalid parameter '%s' for %s on line %d. No '=' found.", param, entry.Host, lineNum)
				continue
			}
			entry.Overrides[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		entries = append(entries, entry)
	}
	return entries
}
