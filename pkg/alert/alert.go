package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/metrics"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// maxSubjectLen is the SNS limit on subject length.
const maxSubjectLen = 100

// Emitter delivers one alert. The monitoring evaluators depend on this
// interface so tests can record alerts instead of publishing them.
// SetCluster updates the cluster name stamped on subjects once the
// availability probe has learned the cluster's real name.
type Emitter interface {
	Alert(ctx context.Context, severity types.Severity, message string) error
	SetCluster(name string)
}

// SNSAPI is the slice of the SNS client the publisher needs. Tests
// substitute a fake.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// CWLAPI is the slice of the CloudWatch Logs client the publisher needs.
type CWLAPI interface {
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Config wires a Publisher for one cluster.
type Config struct {
	// Cluster is the initial cluster name used in subjects and messages.
	// It is refined once the availability probe learns the real name.
	Cluster string

	// SNS and TopicARN are required; every alert is published there.
	SNS      SNSAPI
	TopicARN string

	// CloudWatch enables per-cluster alert archival when non-nil.
	// LogGroupARN names the destination group.
	CloudWatch  CWLAPI
	LogGroupARN string

	// WebhookEndpoint enables webhook delivery for alerts at or above
	// WebhookSeverity.
	WebhookEndpoint string
	WebhookSeverity string

	// HTTPClient overrides the webhook client. Tests use this.
	HTTPClient *http.Client
}

// Publisher fans one alert out to every configured destination.
type Publisher struct {
	cluster         string
	sns             SNSAPI
	topicARN        string
	cwl             CWLAPI
	logGroupARN     string
	webhookEndpoint string
	webhookSeverity string
	source          string
	hc              *http.Client
	now             func() time.Time
}

// NewPublisher creates a Publisher from cfg.
func NewPublisher(cfg *Config) *Publisher {
	source := " "
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		source = " Lambda "
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: webhookTimeout}
	}
	return &Publisher{
		cluster:         cfg.Cluster,
		sns:             cfg.SNS,
		topicARN:        cfg.TopicARN,
		cwl:             cfg.CloudWatch,
		logGroupARN:     cfg.LogGroupARN,
		webhookEndpoint: cfg.WebhookEndpoint,
		webhookSeverity: cfg.WebhookSeverity,
		source:          source,
		hc:              hc,
		now:             time.Now,
	}
}

// SetCluster updates the cluster name used in subjects and webhook payloads.
// The availability probe calls this once it learns the cluster's real name.
func (p *Publisher) SetCluster(name string) {
	p.cluster = name
}

// Cluster returns the current cluster name.
func (p *Publisher) Cluster() string {
	return p.cluster
}

// Alert logs the message at a level matching its severity and delivers it to
// every configured destination. An SNS failure is returned; CloudWatch and
// webhook failures are logged and absorbed.
func (p *Publisher) Alert(ctx context.Context, severity types.Severity, message string) error {
	p.logAlert(severity, message)
	metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()

	subject := fmt.Sprintf("%s:%sMonitor ONTAP Services Alert for cluster %s", severity, p.source, p.cluster)
	if err := p.Publish(ctx, subject, message); err != nil {
		return err
	}

	if p.cwl != nil {
		p.archive(ctx, message)
	}

	if p.webhookEndpoint != "" && types.SeverityNumber(p.webhookSeverity) >= types.SeverityNumber(string(severity)) {
		p.sendWebhook(ctx, severity, message)
	}
	return nil
}

// Publish sends a raw message to the SNS topic with the subject truncated to
// the SNS limit.
func (p *Publisher) Publish(ctx context.Context, subject, message string) error {
	_, err := p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(message),
		Subject:  aws.String(truncate(subject, maxSubjectLen)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topicARN, err)
	}
	return nil
}

// archive appends the message to a per-cluster, per-day CloudWatch log
// stream, creating the stream on first use.
func (p *Publisher) archive(ctx context.Context, message string) {
	logger := log.WithCluster(p.cluster)
	now := p.now()
	streamName := fmt.Sprintf("%s-monitor-ontap-services-%s", p.cluster, now.Format("2006-01-02"))
	groupName := LogGroupName(p.logGroupARN)

	err := func() error {
		streams, err := p.cwl.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName:        aws.String(groupName),
			LogStreamNamePrefix: aws.String(streamName),
		})
		if err != nil {
			return err
		}
		if len(streams.LogStreams) == 0 {
			if _, err := p.cwl.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
				LogGroupName:  aws.String(groupName),
				LogStreamName: aws.String(streamName),
			}); err != nil {
				return err
			}
		}
		_, err = p.cwl.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(groupName),
			LogStreamName: aws.String(streamName),
			LogEvents: []cwltypes.InputLogEvent{{
				Timestamp: aws.Int64(now.UnixMilli()),
				Message:   aws.String(message),
			}},
		})
		return err
	}()
	if err != nil {
		var notFound *cwltypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			logger.Error().Msgf("CloudWatch log group %s not found for cluster %s.", groupName, p.cluster)
			return
		}
		logger.Error().Err(err).Msgf("Failed to archive alert to CloudWatch log group %s for cluster %s.", groupName, p.cluster)
	}
}

// logAlert writes the alert to the engine log at a level matching its
// severity. CRITICAL maps to the error level with a severity marker since
// zerolog reserves anything higher for terminating the process.
func (p *Publisher) logAlert(severity types.Severity, message string) {
	logger := log.WithCluster(p.cluster)
	switch severity {
	case types.SeverityCritical:
		logger.Error().Str("severity", string(types.SeverityCritical)).Msg(message)
	case types.SeverityError:
		logger.Error().Msg(message)
	case types.SeverityWarning:
		logger.Warn().Msg(message)
	case types.SeverityDebug:
		logger.Debug().Msg(message)
	default:
		logger.Info().Msg(message)
	}
}

// LogGroupName extracts the group name from a CloudWatch log group ARN,
// which may or may not carry a trailing ":*".
func LogGroupName(arn string) string {
	parts := strings.Split(arn, ":")
	if strings.HasSuffix(arn, ":*") {
		return parts[len(parts)-2]
	}
	return parts[len(parts)-1]
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
