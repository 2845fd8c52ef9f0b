package alert

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

const webhookTimeout = 5 * time.Second

// webhookPayload is the incident format the webhook receiver expects.
type webhookPayload struct {
	Summary           string `json:"INC__summary"`
	Manager           string `json:"INC__manager"`
	Severity          string `json:"INC__severity"`
	Identifier        string `json:"INC__identifier"`
	ConfigurationItem string `json:"INC__configurationItem"`
	FullMessageText   string `json:"INC__fullMessageText"`
}

// identifierHash condenses a message into a short decimal so repeated alerts
// with the same text share a webhook incident identifier.
func identifierHash(message string) *big.Int {
	sum := sha256.Sum256([]byte(message))
	n := new(big.Int).SetBytes(sum[:])
	return n.Mod(n, big.NewInt(100000000))
}

// sendWebhook posts the alert to the configured webhook endpoint. A
// transport failure is escalated to SNS since it means the webhook channel
// itself is broken.
func (p *Publisher) sendWebhook(ctx context.Context, severity types.Severity, message string) {
	if p.webhookEndpoint == "" {
		return
	}
	logger := log.WithCluster(p.cluster)

	// The receiver wants just the hostname for the configuration item,
	// without the account id suffix the cluster name may carry.
	hostname := p.cluster
	if x := strings.Index(hostname, "("); x != -1 {
		hostname = hostname[:x]
	}

	payload := webhookPayload{
		Summary:           fmt.Sprintf("%s: FSx ONTAP Monitoring Services Alert for cluster %s", severity, p.cluster),
		Manager:           "FSxONTAP",
		Severity:          "3",
		Identifier:        fmt.Sprintf("FSx ONTAP Monitoring Services alert for cluster %s - %s", p.cluster, identifierHash(message)),
		ConfigurationItem: hostname,
		FullMessageText:   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to encode webhook payload for cluster %s.", p.cluster)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.webhookEndpoint, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to build webhook request for cluster %s.", p.cluster)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		failure := fmt.Sprintf("Error: Exception occurred when sending to webhook %s for cluster %s.", p.webhookEndpoint, p.cluster)
		logger.Error().Str("severity", string(types.SeverityCritical)).Msg(failure)
		subject := fmt.Sprintf("CRITICAL: Monitor ONTAP Services failed to send the webhook for cluster %s", p.cluster)
		if err := p.Publish(ctx, subject, failure); err != nil {
			logger.Error().Err(err).Msgf("Failed to report the webhook failure for cluster %s.", p.cluster)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		logger.Info().Msgf("Webhook sent successfully for %s.", p.cluster)
		return
	}
	data, _ := io.ReadAll(resp.Body)
	logger.Error().Msgf("Error: Received a non-200 HTTP status code when sending the webhook. HTTP response code received: %d. The data in the response: %s. This was on the behalf of cluster %s.", resp.StatusCode, data, p.cluster)
}
