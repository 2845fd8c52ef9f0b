package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/types"
)

func TestWebhookPayload(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:         "cluster1(123456789012)",
		SNS:             snsClient,
		TopicARN:        "arn:aws:sns:us-east-1:123456789012:alerts",
		WebhookEndpoint: srv.URL,
		WebhookSeverity: "INFO",
	})

	message := "Volume vol1 is 91% full"
	require.NoError(t, pub.Alert(context.Background(), types.SeverityWarning, message))

	assert.Equal(t, "WARNING: FSx ONTAP Monitoring Services Alert for cluster cluster1(123456789012)", got.Summary)
	assert.Equal(t, "FSxONTAP", got.Manager)
	assert.Equal(t, "3", got.Severity)
	assert.Equal(t, "cluster1", got.ConfigurationItem,
		"account suffix is stripped from the configuration item")
	assert.Equal(t, message, got.FullMessageText)

	wantID := fmt.Sprintf("FSx ONTAP Monitoring Services alert for cluster cluster1(123456789012) - %s", identifierHash(message))
	assert.Equal(t, wantID, got.Identifier)
}

func TestWebhookIdentifierHashIsStable(t *testing.T) {
	a := identifierHash("same message")
	b := identifierHash("same message")
	c := identifierHash("different message")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.String(), c.String())
	assert.Less(t, a.Int64(), int64(100000000))
}

func TestWebhookNon200DoesNotEscalate(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rejected", http.StatusBadGateway)
	}))
	defer srv.Close()

	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:         "cluster1",
		SNS:             snsClient,
		TopicARN:        "arn:aws:sns:us-east-1:123456789012:alerts",
		WebhookEndpoint: srv.URL,
		WebhookSeverity: "INFO",
	})

	require.NoError(t, pub.Alert(context.Background(), types.SeverityWarning, "msg"))

	// Only the original alert reaches SNS; a rejected webhook is logged.
	assert.Len(t, snsClient.published, 1)
}

func TestWebhookTransportFailureEscalatesToSNS(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close() // nothing is listening anymore

	snsClient := &fakeSNS{}
	pub := NewPublisher(&Config{
		Cluster:         "cluster1",
		SNS:             snsClient,
		TopicARN:        "arn:aws:sns:us-east-1:123456789012:alerts",
		WebhookEndpoint: endpoint,
		WebhookSeverity: "INFO",
	})

	require.NoError(t, pub.Alert(context.Background(), types.SeverityWarning, "msg"))

	require.Len(t, snsClient.published, 2)
	assert.Equal(t, "CRITICAL: Monitor ONTAP Services failed to send the webhook for cluster cluster1", snsClient.published[1].subject)
	assert.Equal(t, fmt.Sprintf("Error: Exception occurred when sending to webhook %s for cluster cluster1.", endpoint), snsClient.published[1].message)
}
