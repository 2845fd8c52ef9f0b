package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/types"
)

type published struct {
	subject string
	message string
}

type fakeSNS struct {
	mu        sync.Mutex
	published []published
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{
		subject: aws.ToString(params.Subject),
		message: aws.ToString(params.Message),
	})
	return &sns.PublishOutput{}, nil
}

type fakeCWL struct {
	streams     map[string]bool
	created     []string
	events      []string
	describeErr error
}

func (f *fakeCWL) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	out := &cloudwatchlogs.DescribeLogStreamsOutput{}
	if f.streams[aws.ToString(params.LogStreamNamePrefix)] {
		out.LogStreams = []cwltypes.LogStream{{LogStreamName: params.LogStreamNamePrefix}}
	}
	return out, nil
}

func (f *fakeCWL) CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	if f.streams == nil {
		f.streams = map[string]bool{}
	}
	name := aws.ToString(params.LogStreamName)
	f.streams[name] = true
	f.created = append(f.created, name)
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeCWL) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	for _, ev := range params.LogEvents {
		f.events = append(f.events, aws.ToString(ev.Message))
	}
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func TestAlertPublishesToSNS(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:  "cluster1",
		SNS:      snsClient,
		TopicARN: "arn:aws:sns:us-east-1:123456789012:alerts",
	})

	err := pub.Alert(context.Background(), types.SeverityWarning, "Volume vol1 is 91% full")
	require.NoError(t, err)

	require.Len(t, snsClient.published, 1)
	assert.Equal(t, "WARNING: Monitor ONTAP Services Alert for cluster cluster1", snsClient.published[0].subject)
	assert.Equal(t, "Volume vol1 is 91% full", snsClient.published[0].message)
}

func TestAlertSubjectTruncated(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:  strings.Repeat("x", 120),
		SNS:      snsClient,
		TopicARN: "arn:aws:sns:us-east-1:123456789012:alerts",
	})

	require.NoError(t, pub.Alert(context.Background(), types.SeverityInfo, "hello"))
	require.Len(t, snsClient.published, 1)
	assert.Len(t, snsClient.published[0].subject, 100)
}

func TestAlertArchivesToCloudWatch(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	snsClient := &fakeSNS{}
	cwl := &fakeCWL{}
	pub := NewPublisher(&Config{
		Cluster:     "cluster1",
		SNS:         snsClient,
		TopicARN:    "arn:aws:sns:us-east-1:123456789012:alerts",
		CloudWatch:  cwl,
		LogGroupARN: "arn:aws:logs:us-east-1:123456789012:log-group:/fsx/alerts:*",
	})
	pub.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, pub.Alert(context.Background(), types.SeverityWarning, "first"))
	require.NoError(t, pub.Alert(context.Background(), types.SeverityWarning, "second"))

	// The stream is created once and reused for the rest of the day.
	assert.Equal(t, []string{"cluster1-monitor-ontap-services-2024-06-15"}, cwl.created)
	assert.Equal(t, []string{"first", "second"}, cwl.events)
}

func TestAlertCloudWatchGroupMissing(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	snsClient := &fakeSNS{}
	cwl := &fakeCWL{describeErr: &cwltypes.ResourceNotFoundException{}}
	pub := NewPublisher(&Config{
		Cluster:     "cluster1",
		SNS:         snsClient,
		TopicARN:    "arn:aws:sns:us-east-1:123456789012:alerts",
		CloudWatch:  cwl,
		LogGroupARN: "arn:aws:logs:us-east-1:123456789012:log-group:/fsx/alerts",
	})

	// A missing log group must not fail the alert; SNS still went out.
	require.NoError(t, pub.Alert(context.Background(), types.SeverityError, "boom"))
	assert.Len(t, snsClient.published, 1)
	assert.Empty(t, cwl.events)
}

func TestLogGroupName(t *testing.T) {
	tests := []struct {
		arn  string
		want string
	}{
		{"arn:aws:logs:us-east-1:123456789012:log-group:/fsx/alerts:*", "/fsx/alerts"},
		{"arn:aws:logs:us-east-1:123456789012:log-group:/fsx/alerts", "/fsx/alerts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LogGroupName(tt.arn))
	}
}

func TestAlertSourceTagInsideLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "monitor-ontap-services")
	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:  "cluster1",
		SNS:      snsClient,
		TopicARN: "arn:aws:sns:us-east-1:123456789012:alerts",
	})

	require.NoError(t, pub.Alert(context.Background(), types.SeverityCritical, "down"))
	require.Len(t, snsClient.published, 1)
	assert.Equal(t, "CRITICAL: Lambda Monitor ONTAP Services Alert for cluster cluster1", snsClient.published[0].subject)
}

func TestWebhookSeverityGate(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:         "cluster1",
		SNS:             snsClient,
		TopicARN:        "arn:aws:sns:us-east-1:123456789012:alerts",
		WebhookEndpoint: srv.URL,
		WebhookSeverity: "WARNING",
	})
	ctx := context.Background()

	require.NoError(t, pub.Alert(ctx, types.SeverityInfo, "routine"))
	assert.Equal(t, 0, hits, "INFO is below the WARNING threshold")

	require.NoError(t, pub.Alert(ctx, types.SeverityWarning, "at threshold"))
	require.NoError(t, pub.Alert(ctx, types.SeverityCritical, "above threshold"))
	assert.Equal(t, 2, hits)
}
