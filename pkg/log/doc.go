/*
Package log provides structured logging for ontapwatch using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with per-cluster and per-domain child loggers, configurable log levels, and an
optional syslog fan-out for sites that collect alerts over UDP. All logs
include timestamps and support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐            │
	│  │            Global Logger                   │            │
	│  │  - Zerolog instance                        │            │
	│  │  - Initialized via log.Init()              │            │
	│  │  - Thread-safe for concurrent use          │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │           Configuration                    │            │
	│  │  - Level: debug/info/warn/error            │            │
	│  │  - Format: JSON or console (human)         │            │
	│  │  - Output: stdout, file, or custom writer  │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │         Context Loggers                    │            │
	│  │  - WithComponent("dispatch")               │            │
	│  │  - WithCluster("fsxcluster")               │            │
	│  │  - WithDomain(cluster, "snapmirror")       │            │
	│  │  - WithRunID("run-0042")                   │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            Log Sinks                       │            │
	│  │                                            │            │
	│  │  Primary: console or JSON writer           │            │
	│  │  Optional: UDP syslog via InitSyslog(),    │            │
	│  │  joined with MultiLevelWriter so the       │            │
	│  │  primary sink keeps receiving every line   │            │
	│  └────────────────────────────────────────────┘            │
	└────────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all ontapwatch packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (per-request REST traces)
  - Info: General informational messages (pass start/finish, alerts sent)
  - Warn: Potential issues (skipped rules, non-200 cluster responses)
  - Error: Operation failures (failed passes, delivery errors)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithCluster: Add cluster name context
  - WithDomain: Add monitoring domain context (ems, snapmirror, ...)
  - WithRunID: Add pass identifier context

# Syslog Fan-Out

InitSyslog(address) dials a UDP syslog collector (facility LOCAL0, tag
"ontapwatch") and rebuilds the global logger with a MultiLevelWriter so every
line reaches both the original sink and syslog. Zerolog levels map to syslog
severities via zerolog.SyslogLevelWriter. Datagram loss is accepted; the call
only fails when the address cannot be resolved or the socket cannot be opened.

# Usage

Initializing the logger:

	import "github.com/ontapwatch/ontapwatch/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Optional syslog mirror
	if err := log.InitSyslog("loghost:514"); err != nil {
		log.Fatal("Cannot reach syslog collector: " + err.Error())
	}

Simple logging:

	log.Info("Monitoring pass complete")
	log.Debug("Fetching EMS events")
	log.Warn("Skipping malformed rule")
	log.Error("Failed to publish alert")
	log.Errorf("Failed to load conditions", err)
	log.Fatal("Cannot open state store") // Exits process

Structured logging:

	log.Logger.Info().
		Str("cluster", "fsxcluster").
		Int("alerts", 3).
		Msg("Pass finished")

Context loggers:

	clusterLog := log.WithCluster("fsxcluster")
	clusterLog.Info().Msg("Starting pass")

	domainLog := log.WithDomain("fsxcluster", "snapmirror")
	domainLog.Warn().Str("uuid", rel.UUID).Msg("Transfer stalled")

# Log Output Examples

JSON format (production):

	{"level":"info","cluster":"fsxcluster","time":"2025-07-14T10:30:00Z","message":"Monitoring pass complete"}
	{"level":"warn","domain":"ems","time":"2025-07-14T10:30:01Z","message":"API call to https://10.0.0.5 /api/support/ems/events failed. HTTP status code: 503."}

Console format (development):

	10:30:00 INF Monitoring pass complete cluster=fsxcluster
	10:30:01 WRN API call failed domain=ems status=503

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing

Context Logger Pattern:
  - Create child loggers with cluster/domain/run fields
  - Pass context loggers through a monitoring pass
  - Avoids repetitive field specification

Error Logging Pattern:
  - Use .Err(err) or log.Errorf(format, err) for error objects
  - Consistent error format across the codebase

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Syslog writer: https://pkg.go.dev/github.com/rs/zerolog#SyslogLevelWriter
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
