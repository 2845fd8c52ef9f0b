package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ontapwatch/ontapwatch/pkg/alert"
	"github.com/ontapwatch/ontapwatch/pkg/api"
	"github.com/ontapwatch/ontapwatch/pkg/audit"
	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/dispatch"
	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/metrics"
	"github.com/ontapwatch/ontapwatch/pkg/monitor"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/secrets"
	"github.com/ontapwatch/ontapwatch/pkg/state"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ontapwatch",
	Short: "OntapWatch - Monitoring engine for FSx for ONTAP fleets",
	Long: `OntapWatch watches a fleet of FSx for ONTAP file systems the way an
on-call storage operator would: it polls each cluster's REST API for health,
replication, capacity, quota, and vserver problems, raises deduplicated SNS
alerts for anything that crosses a configured threshold, and ships the
administrative audit trail to CloudWatch Logs.

Engine state lives in S3 (or a local database for development), so runs are
stateless and any instance can pick up where the last one stopped.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})

		if path, _ := cmd.Flags().GetString("config"); path != "" {
			return seedEnvironment(path)
		}
		return nil
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"OntapWatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs instead of console output")
	rootCmd.PersistentFlags().String("config", "", "YAML file whose keys seed unset environment variables")

	// Add subcommands
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(ingestAuditCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("OntapWatch version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

// Fleet monitoring
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run monitoring passes over the whole fleet",
	Long: `Monitor fetches the fleet descriptor from the state store and runs one
monitoring pass for every cluster listed in it. By default it performs a
single pass and exits, which suits scheduled-task deployments; with
--interval it keeps passing over the fleet until interrupted.

In daemon mode --admin-addr exposes /health, /ready, /status, and /metrics
for the engine process itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		adminAddr, _ := cmd.Flags().GetString("admin-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fireAndForget, _ := cmd.Flags().GetBool("fire-and-forget")
		ctx := cmd.Context()

		cfg, err := config.LoadController()
		if err != nil {
			notifyStartupFailure(ctx, err)
			return err
		}

		blobs, err := openBlobStore(ctx, dataDir, cfg.S3BucketName, cfg.S3BucketRegion)
		if err != nil {
			return err
		}
		defer blobs.Close()

		snsClient, err := newSNSClient(ctx, secrets.RegionFromARN(cfg.SNSTopicARN), os.Getenv("snsEndPointHostname"))
		if err != nil {
			return err
		}
		notify := alert.NewPublisher(&alert.Config{
			Cluster:  "controller",
			SNS:      snsClient,
			TopicARN: cfg.SNSTopicARN,
		})

		// Each pass resolves its own per-cluster configuration; the
		// dispatcher's store is reused unless a fleet entry overrides
		// the bucket. Local stores are always shared since the
		// database file is locked by the open handle.
		runner := func(ctx context.Context, payload map[string]string) error {
			mcfg, err := config.LoadMonitor(payload)
			if err != nil {
				return err
			}
			passBlobs := blobs
			if dataDir == "" && (mcfg.S3BucketName != cfg.S3BucketName || mcfg.S3BucketRegion != cfg.S3BucketRegion) {
				s3, err := blob.NewS3Store(ctx, mcfg.S3BucketName, mcfg.S3BucketRegion)
				if err != nil {
					return err
				}
				passBlobs = s3
			}
			return runPass(ctx, mcfg, passBlobs)
		}

		d := dispatch.New(cfg, blobs, state.New(blobs), notify, runner, fireAndForget)

		if interval <= 0 {
			return d.RunOnce(ctx)
		}

		metrics.SetVersion(Version)
		metrics.RegisterComponent("state", true, "state store ready")
		metrics.RegisterComponent("fleet", true, "fleet dispatcher started")

		collector := metrics.NewCollector(d)
		collector.Start()

		d.Start(ctx, interval)
		log.Logger.Info().Msgf("Fleet monitoring started with a %s interval.", interval)

		var admin *api.HealthServer
		errCh := make(chan error, 1)
		if adminAddr != "" {
			admin = api.NewHealthServer(d, Version)
			go func() {
				if err := admin.Start(adminAddr); err != nil {
					errCh <- fmt.Errorf("admin server error: %w", err)
				}
			}()
			log.Logger.Info().Msgf("Admin endpoints listening on %s.", adminAddr)
		}

		// Wait for interrupt signal or admin server error
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("Shutting down...")
		case err := <-errCh:
			log.Errorf("Admin server failed", err)
		}

		d.Stop()
		collector.Stop()
		if admin != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := admin.Stop(shutdownCtx); err != nil {
				log.Errorf("Failed to stop the admin server", err)
			}
		}
		return nil
	},
}

// Single-cluster pass
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one monitoring pass for a single cluster",
	Long: `Check runs one monitoring pass for the cluster named by the
OntapAdminServer environment variable (or --server), using the same
configuration keys the dispatcher hands its monitoring passes. It is the way
to verify a cluster's configuration without standing up the whole fleet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		ctx := cmd.Context()

		if server, _ := cmd.Flags().GetString("server"); server != "" {
			os.Setenv("OntapAdminServer", server)
		}
		cfg, err := config.LoadMonitor(nil)
		if err != nil {
			return err
		}

		blobs, err := openBlobStore(ctx, dataDir, cfg.S3BucketName, cfg.S3BucketRegion)
		if err != nil {
			return err
		}
		defer blobs.Close()

		return runPass(ctx, cfg, blobs)
	},
}

// Audit log ingestion
var ingestAuditCmd = &cobra.Command{
	Use:   "ingest-audit",
	Short: "Ingest administrative audit logs into CloudWatch Logs",
	Long: `Ingest-audit discovers FSx for ONTAP file systems across the configured
regions and accounts, reads each cluster's administrative audit log through
its REST API, and forwards new records to a CloudWatch Logs group.
Per-cluster watermarks stored alongside the monitoring state keep records
from being forwarded twice.

By default it performs a single ingestion run and exits; with --interval it
keeps running until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		ctx := cmd.Context()

		cfg, err := config.LoadAudit()
		if err != nil {
			return err
		}

		blobs, err := blob.NewS3Store(ctx, cfg.S3BucketName, cfg.S3BucketRegion)
		if err != nil {
			return err
		}
		awsCfg, err := audit.LoadAWSConfig(ctx, cfg.LogGroupRegion)
		if err != nil {
			return err
		}
		discovery, err := audit.NewDiscovery(ctx, cfg)
		if err != nil {
			return err
		}
		ing, err := audit.New(cfg, blobs, cloudwatchlogs.NewFromConfig(awsCfg), discovery)
		if err != nil {
			return err
		}

		if interval <= 0 {
			return ing.Run(ctx)
		}

		if err := ing.Run(ctx); err != nil {
			log.Errorf("Ingestion run failed", err)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				if err := ing.Run(ctx); err != nil {
					log.Errorf("Ingestion run failed", err)
				}
			case <-sigCh:
				log.Info("Shutting down...")
				return nil
			}
		}
	},
}

func init() {
	monitorCmd.Flags().Duration("interval", 0, "Time between fleet passes (0 runs one pass and exits)")
	monitorCmd.Flags().String("admin-addr", "", "Listen address for health and metrics endpoints (daemon mode)")
	monitorCmd.Flags().String("data-dir", "", "Keep state in a local database at this path instead of S3")
	monitorCmd.Flags().Bool("fire-and-forget", false, "Dispatch all clusters concurrently without failure tracking")

	checkCmd.Flags().String("server", "", "Cluster management hostname or IP (overrides OntapAdminServer)")
	checkCmd.Flags().String("data-dir", "", "Keep state in a local database at this path instead of S3")

	ingestAuditCmd.Flags().Duration("interval", 0, "Time between ingestion runs (0 runs once and exits)")
}

// runPass resolves the remaining configuration phases for one cluster and
// executes a full monitoring pass against it.
func runPass(ctx context.Context, cfg *config.Monitor, blobs blob.Store) error {
	if err := cfg.MergeBlob(ctx, blobs); err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}
	setupSyslog(cfg.SyslogIP)

	resolver, err := secrets.NewResolver(ctx, secrets.RegionFromARN(cfg.SecretARN), cfg.SecretsManagerEndpoint)
	if err != nil {
		return err
	}
	creds, err := resolver.Resolve(ctx, cfg.SecretARN, cfg.SecretUsernameKey, cfg.SecretPasswordKey)
	if err != nil {
		return fmt.Errorf("unable to retrieve the credentials for %s: %w", cfg.OntapAdminServer, err)
	}

	snsClient, err := newSNSClient(ctx, secrets.RegionFromARN(cfg.SNSTopicARN), cfg.SNSEndpoint)
	if err != nil {
		return err
	}
	acfg := &alert.Config{
		Cluster:         cfg.OntapAdminServer,
		SNS:             snsClient,
		TopicARN:        cfg.SNSTopicARN,
		WebhookEndpoint: cfg.WebhookEndpoint,
		WebhookSeverity: cfg.WebhookSeverity,
	}
	if cfg.CloudWatchLogGroupARN != "" {
		cwlClient, err := newCWLClient(ctx, secrets.RegionFromARN(cfg.CloudWatchLogGroupARN), cfg.CloudWatchLogsEndpoint)
		if err != nil {
			return err
		}
		acfg.CloudWatch = cwlClient
		acfg.LogGroupARN = cfg.CloudWatchLogGroupARN
	}

	client := ontap.NewClient(cfg.OntapAdminServer, creds.Username, creds.Password)
	return monitor.New(cfg, state.New(blobs), client, alert.NewPublisher(acfg)).Run(ctx)
}

// openBlobStore picks the state backend: a local database when dataDir is
// set, the configured S3 bucket otherwise.
func openBlobStore(ctx context.Context, dataDir, bucket, region string) (blob.Store, error) {
	if dataDir != "" {
		return blob.NewBoltStore(dataDir)
	}
	return blob.NewS3Store(ctx, bucket, region)
}

var (
	syslogMu   sync.Mutex
	syslogAddr string
)

// setupSyslog points the engine log at the cluster's syslog collector. The
// global logger is only re-dialed when the address actually changes, since
// fleet entries usually share one collector.
func setupSyslog(ip string) {
	if ip == "" {
		return
	}
	syslogMu.Lock()
	defer syslogMu.Unlock()

	addr := ip + ":514"
	if addr == syslogAddr {
		return
	}
	if err := log.InitSyslog(addr); err != nil {
		log.Errorf("Failed to set up syslog forwarding", err)
		return
	}
	syslogAddr = addr
}

// newSNSClient builds an SNS client for the region, honoring an endpoint
// hostname override (VPC interface endpoints).
func newSNSClient(ctx context.Context, region, endpointHost string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	var optFns []func(*sns.Options)
	if endpointHost != "" {
		optFns = append(optFns, func(o *sns.Options) {
			o.BaseEndpoint = aws.String("https://" + endpointHost)
		})
	}
	return sns.NewFromConfig(cfg, optFns...), nil
}

// newCWLClient builds a CloudWatch Logs client for the region, honoring an
// endpoint hostname override.
func newCWLClient(ctx context.Context, region, endpointHost string) (*cloudwatchlogs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	var optFns []func(*cloudwatchlogs.Options)
	if endpointHost != "" {
		optFns = append(optFns, func(o *cloudwatchlogs.Options) {
			o.BaseEndpoint = aws.String("https://" + endpointHost)
		})
	}
	return cloudwatchlogs.NewFromConfig(cfg, optFns...), nil
}

// notifyStartupFailure raises a best-effort SNS alert when the dispatcher
// cannot even load its configuration, so a misdeployed controller is heard
// from before it dies. The topic is read straight from the environment
// because configuration loading is exactly what failed.
func notifyStartupFailure(ctx context.Context, failure error) {
	topicARN := os.Getenv("snsTopicArn")
	if topicARN == "" {
		return
	}
	client, err := newSNSClient(ctx, secrets.RegionFromARN(topicARN), os.Getenv("snsEndPointHostname"))
	if err != nil {
		log.Errorf("Failed to build an SNS client for the startup alert", err)
		return
	}
	message := fmt.Sprintf("Error, %s.", failure)
	if _, err := client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(dispatch.MetaSubject),
		Message:  aws.String(message),
	}); err != nil {
		log.Errorf("Failed to publish the startup alert", err)
	}
}

// seedEnvironment loads a YAML file of configuration keys and sets every key
// that is not already present in the environment, so environment variables
// keep precedence over the file.
func seedEnvironment(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for key, value := range values {
		if value == nil {
			continue
		}
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, fmt.Sprint(value))
		}
	}
	return nil
}
