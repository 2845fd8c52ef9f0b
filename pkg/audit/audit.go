package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/metrics"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
	"github.com/ontapwatch/ontapwatch/pkg/secrets"
	"github.com/ontapwatch/ontapwatch/pkg/state"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// pageSize is the max_records value sent with every audit query.
const pageSize = 1000

// CloudWatchAPI is the slice of the CloudWatch Logs client the ingester
// needs. Tests substitute a fake.
type CloudWatchAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// SecretsResolver fetches cluster credentials. Satisfied by
// secrets.Resolver.
type SecretsResolver interface {
	Resolve(ctx context.Context, secretARN, usernameKey, passwordKey string) (secrets.Credentials, error)
}

// ResolverFactory builds a SecretsResolver for a region. Secrets can live in
// different regions, so one resolver per ARN region is built on demand.
type ResolverFactory func(ctx context.Context, region string) (SecretsResolver, error)

// ClientFactory builds a cluster API client for a management endpoint.
type ClientFactory func(host, username, password string) *ontap.Client

// Ingester copies new administrative audit records from every discovered
// cluster into CloudWatch Logs.
type Ingester struct {
	cfg      *config.Audit
	blobs    blob.Store
	states   *state.Store
	cwl      CloudWatchAPI
	discover Discoverer
	filters  *Filters

	// Replaced by tests.
	resolverFor ResolverFactory
	newClient   ClientFactory
	now         func() time.Time
}

// New builds an Ingester. The record matchers are compiled once here; a bad
// pattern fails the run before any cluster is contacted.
func New(cfg *config.Audit, blobs blob.Store, cwl CloudWatchAPI, discover Discoverer) (*Ingester, error) {
	filters, err := CompileFilters(cfg)
	if err != nil {
		return nil, err
	}
	return &Ingester{
		cfg:      cfg,
		blobs:    blobs,
		states:   state.New(blobs),
		cwl:      cwl,
		discover: discover,
		filters:  filters,
		resolverFor: func(ctx context.Context, region string) (SecretsResolver, error) {
			return secrets.NewResolver(ctx, region, "")
		},
		newClient: func(host, username, password string) *ontap.Client {
			return ontap.NewClient(host, username, password)
		},
		now: time.Now,
	}, nil
}

// Run performs one ingestion pass over every discovered file system.
func (i *Ingester) Run(ctx context.Context) error {
	secretARNs, err := i.loadSecretARNs(ctx)
	if err != nil {
		return err
	}

	fleet, err := i.discover.Discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover file systems: %w", err)
	}
	log.Logger.Debug().Msgf("Found %d file systems.", len(fleet))
	if len(fleet) == 0 {
		log.Error("No file systems found.")
		return nil
	}

	positions, err := i.states.AuditPositions(ctx, i.cfg.StatsName)
	if err != nil {
		return fmt.Errorf("failed to load ingestion positions: %w", err)
	}

	for _, fs := range fleet {
		if err := i.ingestFileSystem(ctx, fs, secretARNs, positions); err != nil {
			return err
		}
	}
	return nil
}

// loadSecretARNs builds the file-system-id to secret ARN map, either from
// the configured file in the state bucket or from the fixed configuration
// pairs. Having no ARNs and no default leaves every cluster unreachable, so
// that fails the run.
func (i *Ingester) loadSecretARNs(ctx context.Context) (map[string]string, error) {
	arns := map[string]string{}
	if i.cfg.SecretARNsFile != "" {
		data, err := i.blobs.Get(ctx, i.cfg.SecretARNsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to open the secret ARNs file %s from s3://%s: %w", i.cfg.SecretARNsFile, i.cfg.S3BucketName, err)
		}
		for n, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			id, arn, found := strings.Cut(line, "=")
			if !found {
				return nil, fmt.Errorf("malformed line %d in %s: no '=' found", n+1, i.cfg.SecretARNsFile)
			}
			arns[strings.TrimSpace(id)] = strings.TrimSpace(arn)
		}
	} else {
		for id, arn := range i.cfg.FileSystemSecrets {
			arns[id] = arn
		}
	}
	if len(arns) == 0 && i.cfg.DefaultSecretARN == "" {
		return nil, errors.New("no secretARNs were specified")
	}
	return arns, nil
}

// ingestFileSystem walks the audit records of one file system from its
// stored watermark forward, pushing each page's matching records and
// advancing the watermark page by page. A nil return does not mean the walk
// completed; file-system-scoped problems are logged and abandon the walk so
// the next file system still runs.
func (i *Ingester) ingestFileSystem(ctx context.Context, fs FileSystem, secretARNs map[string]string, positions map[string]types.AuditPosition) error {
	logger := log.WithCluster(fs.ID)
	logger.Debug().Msgf("Checking %s", fs.ID)

	secretARN := secretARNs[fs.ID]
	if secretARN == "" {
		secretARN = i.cfg.DefaultSecretARN
	}
	if secretARN == "" {
		logger.Warn().Msgf("No secret ARN was found for %s.", fs.ID)
		return nil
	}

	resolver, err := i.resolverFor(ctx, secrets.RegionFromARN(secretARN))
	if err != nil {
		logger.Warn().Err(err).Msgf("Unable to retrieve the credentials for %s using the secret %s.", fs.ID, secretARN)
		return nil
	}
	creds, err := resolver.Resolve(ctx, secretARN, secrets.DefaultUsernameKey, secrets.DefaultPasswordKey)
	if err != nil {
		logger.Warn().Err(err).Msgf("Unable to retrieve the credentials for %s using the secret %s.", fs.ID, secretARN)
		return nil
	}
	return i.walkRecords(ctx, fs, creds, positions)
}

// walkRecords pages through the audit records newer than the watermark.
func (i *Ingester) walkRecords(ctx context.Context, fs FileSystem, creds secrets.Credentials, positions map[string]types.AuditPosition) error {
	logger := log.WithCluster(fs.ID)

	position, ok := positions[fs.ID]
	if !ok {
		position = types.NewAuditPosition()
	}

	client := i.newClient(fs.IP, creds.Username, creds.Password)
	pager := client.Pages(fmt.Sprintf("/api/security/audit/messages?timestamp=>%s&max_records=%d", position.AscTimestamp, pageSize))
	for pager.Next(ctx) {
		page := pager.Page()
		logger.Debug().Msgf("Received %d records from %s (%s).", len(page.Records), fs.IP, fs.ID)

		// lastExamined tracks every record on the page; the index and
		// timestamp watermarks only advance to the last record that
		// matched the filters, so a later run re-examines (and
		// re-skips) filtered records rather than losing unfiltered
		// ones behind them.
		var events []cwltypes.InputLogEvent
		var lastExamined, lastIndex int64
		var lastAscTimestamp string
		for _, raw := range page.Records {
			var record ontap.AuditMessage
			if err := json.Unmarshal(raw, &record); err != nil {
				return fmt.Errorf("failed to decode audit record from %s: %w", fs.ID, err)
			}
			epoch, err := MsEpoch(record.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to parse audit record from %s: %w", fs.ID, err)
			}
			lastExamined = epoch

			// The index could roll over, so a record is new when
			// either the index or the timestamp moved forward.
			if record.Index <= position.Index && epoch <= position.Timestamp {
				continue
			}
			if !i.filters.Match(&record) {
				continue
			}
			lastIndex = record.Index
			lastAscTimestamp = record.Timestamp
			events = append(events, cwltypes.InputLogEvent{
				Timestamp: aws.Int64(epoch),
				Message:   aws.String(formatMessage(&record)),
			})
		}

		if len(events) == 0 {
			continue
		}
		logger.Debug().Msgf("Adding %d events for %s with index %d and timestamp %s", len(events), fs.ID, lastIndex, lastAscTimestamp)
		stream := fs.ID + "-" + i.now().Format("2006-01-02")
		if err := i.push(ctx, events, stream); err != nil {
			metrics.AuditPushFailuresTotal.Inc()
			return err
		}
		metrics.AuditRecordsTotal.Add(float64(len(events)))

		position.Timestamp = lastExamined
		position.Index = lastIndex
		position.AscTimestamp = lastAscTimestamp
		positions[fs.ID] = position
		if err := i.states.SaveAuditPositions(ctx, i.cfg.StatsName, positions); err != nil {
			return fmt.Errorf("failed to persist ingestion positions: %w", err)
		}
	}

	if err := pager.Err(); err != nil {
		var statusErr *ontap.StatusError
		if errors.As(err, &statusErr) {
			logger.Error().Msgf("API call to https://%s%s failed. HTTP status code: %d.", fs.IP, statusErr.Path, statusErr.Status)
		} else {
			logger.Warn().Err(err).Msgf("Unable to connect to %s (%s).", fs.IP, fs.ID)
		}
	}
	return nil
}

// push ensures the log stream exists and appends the events to it.
func (i *Ingester) push(ctx context.Context, events []cwltypes.InputLogEvent, stream string) error {
	_, err := i.cwl.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(i.cfg.LogGroupName),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		var exists *cwltypes.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			return fmt.Errorf("failed to create log stream %s: %w", stream, err)
		}
	}

	log.Logger.Debug().Msgf("Putting %d events into CloudWatch", len(events))
	out, err := i.cwl.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(i.cfg.LogGroupName),
		LogStreamName: aws.String(stream),
		LogEvents:     events,
	})
	if err != nil {
		return fmt.Errorf("failed to push events to log stream %s: %w", stream, err)
	}
	if info := out.RejectedLogEventsInfo; info != nil {
		if info.TooNewLogEventStartIndex != nil {
			log.Logger.Warn().Msgf("Too new log event start index: %d", aws.ToInt32(info.TooNewLogEventStartIndex))
		}
		if info.TooOldLogEventEndIndex != nil {
			log.Logger.Warn().Msgf("Too old log event end index: %d", aws.ToInt32(info.TooOldLogEventEndIndex))
		}
	}
	return nil
}

// formatMessage renders one audit record the way it appears in the log
// group. Fields the cluster omitted render as N/A; fields present but empty
// render empty.
func formatMessage(record *ontap.AuditMessage) string {
	return fmt.Sprintf("%s Node:%s location:%s application:%s user:%s state:%s scope:%s input:%s",
		record.Timestamp, record.Node.Name,
		orNA(record.Location), orNA(record.Application), orNA(record.User),
		orNA(record.State), orNA(record.Scope), orNA(record.Input))
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}
