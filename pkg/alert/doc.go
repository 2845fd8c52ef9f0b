/*
Package alert delivers alert messages raised by the monitoring evaluators.

Every alert is logged and published to an SNS topic; a CloudWatch log group
and a Moogsoft-style webhook are optional extra destinations. Delivery
failures on the optional paths are reported but do not fail the run, except
for SNS, which is the one channel operators rely on.

# Architecture

	┌─────────────────────── ALERT FAN-OUT ───────────────────────┐
	│                                                               │
	│   Evaluator ──► Publisher.Alert(ctx, severity, message)      │
	│                          │                                    │
	│        ┌─────────────────┼──────────────────┬──────────┐    │
	│        ▼                 ▼                  ▼          ▼    │
	│  ┌──────────┐     ┌────────────┐     ┌──────────┐ ┌──────┐ │
	│  │ Log      │     │ SNS Topic  │     │ CW Logs  │ │ Web- │ │
	│  │ (always, │     │ (required, │     │ (opt-in, │ │ hook │ │
	│  │ leveled) │     │ fails run) │     │ archive) │ │(gate)│ │
	│  └──────────┘     └────────────┘     └──────────┘ └──────┘ │
	│                                                               │
	│  Webhook transport failure ──► CRITICAL log + SNS escalation │
	└───────────────────────────────────────────────────────────┘

# Core Components

Emitter:
  - The interface evaluators raise alerts through
  - Alert(ctx, severity, message) and SetCluster(name)
  - Publisher is the production implementation; tests record instead

Publisher:
  - Built from a Config carrying the SNS, CloudWatch and webhook settings
  - Cluster name is refined once the availability probe learns the real one
  - Publish(ctx, subject, message) sends a raw SNS message; the dispatcher
    uses it for meta-alerts with their own subject line

Config:
  - SNS and TopicARN are required; everything else is optional
  - CloudWatch archival activates when a client and log group ARN are set
  - WebhookSeverity gates which alerts reach the webhook endpoint

# Destinations

SNS:
  - Subject: "<SEVERITY>:<source>Monitor ONTAP Services Alert for cluster <name>"
  - Subjects are truncated to 100 characters, the SNS maximum
  - The source tag marks alerts published from inside a Lambda function
  - A failed publish fails the monitoring run

CloudWatch Logs:
  - One stream per cluster per day: <cluster>-monitor-ontap-services-<YYYY-MM-DD>
  - Streams are created on first use; a missing group logs and moves on
  - Archival failures never fail the run

Webhook:
  - Fires only when the alert's severity number is at or above the
    configured gate
  - INC__* payload with a stable sha256-derived numeric identifier so the
    receiving system deduplicates repeats
  - Non-200 responses are logged; transport failures escalate to SNS

# Usage

	pub := alert.NewPublisher(&alert.Config{
		Cluster:  cfg.OntapAdminServer,
		SNS:      snsClient,
		TopicARN: cfg.SNSTopicARN,
	})
	if err := pub.Alert(ctx, types.SeverityCritical, message); err != nil {
		return err
	}

# See Also

  - pkg/monitor for the evaluators that raise alerts
  - pkg/dispatch for meta-alerts published through the same topic
  - pkg/types for the severity scale
  - SNS Publish limits: https://docs.aws.amazon.com/sns/latest/api/API_Publish.html
*/
package alert
