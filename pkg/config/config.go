package config

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ontapwatch/ontapwatch/pkg/blob"
	"github.com/ontapwatch/ontapwatch/pkg/log"
)

// Monitor holds the per-cluster monitoring configuration. It is resolved in
// three phases: LoadMonitor reads the invocation payload or the process
// environment, MergeBlob fills unset keys from the cluster's config file in
// the object store, and Finalize computes the remaining defaults and verifies
// that every required key ended up with a value.
//
// An empty string means "unset" throughout; orchestration layers that can
// only pass empty strings for absent keys behave the same as ones that omit
// them entirely.
type Monitor struct {
	OntapAdminServer string
	S3BucketName     string
	S3BucketRegion   string

	SNSTopicARN string
	SecretARN   string

	SecretUsernameKey string
	SecretPasswordKey string

	ConfigFilename          string
	EMSEventsFilename       string
	SMEventsFilename        string
	SMRelationshipsFilename string
	ConditionsFilename      string
	StorageEventsFilename   string
	QuotaEventsFilename     string
	SystemStatusFilename    string
	VserverEventsFilename   string

	SecretsManagerEndpoint string
	SNSEndpoint            string
	CloudWatchLogsEndpoint string

	SyslogIP              string
	CloudWatchLogGroupARN string
	AWSAccountID          string
	WebhookEndpoint       string
	WebhookSeverity       string

	// Initial holds the initial* keys found in the configuration source.
	// They seed the default matching conditions when a cluster has no
	// conditions document yet. Presence matters: a key set to an empty
	// string is not the same as an absent key.
	Initial map[string]string
}

// requiredKeys must be present after the payload/environment phase.
var requiredKeys = []string{
	"OntapAdminServer",
	"s3BucketName",
	"s3BucketRegion",
}

// optionalKeys may stay unset without failing validation.
var optionalKeys = []string{
	"configFilename",
	"secretsManagerEndPointHostname",
	"snsEndPointHostname",
	"cloudWatchLogsEndPointHostname",
	"syslogIP",
	"cloudWatchLogGroupArn",
	"awsAccountId",
	"webhookEndpoint",
	"webhookSeverity",
	"secretUsernameKey",
	"secretPasswordKey",
}

// filenameKeys default to "<server>-<key minus Filename>" when unset.
var filenameKeys = []string{
	"emsEventsFilename",
	"smEventsFilename",
	"smRelationshipsFilename",
	"conditionsFilename",
	"storageEventsFilename",
	"quotaEventsFilename",
	"systemStatusFilename",
	"vserverEventsFilename",
}

// initialKeys seed default matching conditions. The order here fixes the
// order rules are appended in when a default conditions document is built.
var initialKeys = []string{
	"initialVersionChangeAlert",
	"initialFailoverAlert",
	"initialNetworkInterfacesAlert",
	"initialEmsEventsAlert",
	"initialSnapMirrorHealthAlert",
	"initialSnapMirrorLagTimeAlert",
	"initialSnapMirrorLagTimePercentAlert",
	"initialSnapMirrorStalledAlert",
	"initialFileSystemUtilizationWarnAlert",
	"initialFileSystemUtilizationCriticalAlert",
	"initialVolumeUtilizationWarnAlert",
	"initialVolumeUtilizationCriticalAlert",
	"initialVolumeFileUtilizationWarnAlert",
	"initialVolumeFileUtilizationCriticalAlert",
	"initialVolumeOfflineAlert",
	"initialOldSnapshot",
	"initialSoftQuotaUtilizationAlert",
	"initialHardQuotaUtilizationAlert",
	"initialInodesSoftQuotaUtilizationAlert",
	"initialInodesQuotaUtilizationAlert",
	"initialVserverStateAlert",
	"initialVserverNFSProtocolStateAlert",
	"initialVserverCIFSProtocolStateAlert",
}

// allKeys returns every recognized configuration key, in a stable order.
func allKeys() []string {
	keys := []string{"snsTopicArn", "secretArn"}
	keys = append(keys, filenameKeys...)
	keys = append(keys, optionalKeys...)
	keys = append(keys, requiredKeys...)
	return keys
}

// field maps a configuration key to the struct field that stores it.
// Unknown keys return nil.
func (m *Monitor) field(key string) *string {
	switch key {
	case "OntapAdminServer":
		return &m.OntapAdminServer
	case "s3BucketName":
		return &m.S3BucketName
	case "s3BucketRegion":
		return &m.S3BucketRegion
	case "snsTopicArn":
		return &m.SNSTopicARN
	case "secretArn":
		return &m.SecretARN
	case "secretUsernameKey":
		return &m.SecretUsernameKey
	case "secretPasswordKey":
		return &m.SecretPasswordKey
	case "configFilename":
		return &m.ConfigFilename
	case "emsEventsFilename":
		return &m.EMSEventsFilename
	case "smEventsFilename":
		return &m.SMEventsFilename
	case "smRelationshipsFilename":
		return &m.SMRelationshipsFilename
	case "conditionsFilename":
		return &m.ConditionsFilename
	case "storageEventsFilename":
		return &m.StorageEventsFilename
	case "quotaEventsFilename":
		return &m.QuotaEventsFilename
	case "systemStatusFilename":
		return &m.SystemStatusFilename
	case "vserverEventsFilename":
		return &m.VserverEventsFilename
	case "secretsManagerEndPointHostname":
		return &m.SecretsManagerEndpoint
	case "snsEndPointHostname":
		return &m.SNSEndpoint
	case "cloudWatchLogsEndPointHostname":
		return &m.CloudWatchLogsEndpoint
	case "syslogIP":
		return &m.SyslogIP
	case "cloudWatchLogGroupArn":
		return &m.CloudWatchLogGroupARN
	case "awsAccountId":
		return &m.AWSAccountID
	case "webhookEndpoint":
		return &m.WebhookEndpoint
	case "webhookSeverity":
		return &m.WebhookSeverity
	}
	return nil
}

// LoadMonitor resolves the first phase of the monitor configuration. When the
// payload carries an OntapAdminServer key the payload is the sole source;
// otherwise every key is read from the process environment. Values that
// resolve to an empty string are treated as unset, since orchestration
// templates materialize absent parameters as empty strings.
func LoadMonitor(payload map[string]string) (*Monitor, error) {
	m := &Monitor{Initial: map[string]string{}}

	fromPayload := payload["OntapAdminServer"] != ""
	if fromPayload {
		log.Debug("Resolving configuration from the invocation payload")
	} else {
		log.Debug("Resolving configuration from the environment")
	}

	lookup := func(key string) (string, bool) {
		if fromPayload {
			v, ok := payload[key]
			return v, ok
		}
		return os.LookupEnv(key)
	}

	for _, key := range allKeys() {
		if v, ok := lookup(key); ok {
			*m.field(key) = v
		}
	}
	for _, key := range initialKeys {
		if v, ok := lookup(key); ok {
			m.Initial[key] = v
		}
	}

	// The orchestration template passes the bucket as an ARN. Bucket ARNs
	// carry no region, so only the name can be recovered from it.
	if m.S3BucketName == "" {
		if arn := os.Getenv("s3BucketArn"); arn != "" {
			parts := strings.Split(arn, ":")
			m.S3BucketName = parts[len(parts)-1]
		}
	}

	for _, key := range requiredKeys {
		if *m.field(key) == "" {
			return nil, fmt.Errorf("missing required environment variable %q", key)
		}
	}
	return m, nil
}

// defaultConfigFilename is the key of the per-cluster config file when no
// override is given.
func (m *Monitor) defaultConfigFilename() string {
	return m.OntapAdminServer + "-config"
}

// MergeBlob reads the cluster's config file from the object store and fills
// in any keys the first phase left unset. Keys already set keep their value.
// A missing file is only worth a warning when the operator explicitly named
// one.
func (m *Monitor) MergeBlob(ctx context.Context, store blob.Store) error {
	if m.ConfigFilename == "" {
		m.ConfigFilename = m.defaultConfigFilename()
	}

	data, err := store.Get(ctx, m.ConfigFilename)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("failed to read config file %q: %w", m.ConfigFilename, err)
		}
		if m.ConfigFilename != m.defaultConfigFilename() {
			log.Logger.Warn().Msgf("Warning, did not find file '%s' in s3 bucket '%s' in region '%s' for cluster %s.",
				m.ConfigFilename, m.S3BucketName, m.S3BucketRegion, m.OntapAdminServer)
		}
		return nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimPrefix(line, "export ")
		line = strings.SplitN(line, "#", 2)[0]
		line = strings.ReplaceAll(strings.TrimSpace(line), `"`, "")

		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if value == "" {
			log.Logger.Warn().Msgf("Warning, empty value for key '%s' on cluster %s .", key, m.OntapAdminServer)
			continue
		}
		field := m.field(key)
		if field == nil {
			log.Logger.Warn().Msgf("Warning, unknown config parameter '%s' found on cluster %s.", key, m.OntapAdminServer)
			continue
		}
		if *field == "" {
			*field = value
		}
	}
	return scanner.Err()
}

// Finalize computes the filename, endpoint, and credential-key defaults and
// verifies that every non-optional key has a value.
func (m *Monitor) Finalize() error {
	for _, key := range filenameKeys {
		if field := m.field(key); *field == "" {
			*field = m.OntapAdminServer + "-" + strings.TrimSuffix(key, "Filename")
		}
	}

	if m.SecretARN != "" && m.SecretsManagerEndpoint == "" {
		if region := arnRegion(m.SecretARN); region != "" {
			m.SecretsManagerEndpoint = fmt.Sprintf("secretsmanager.%s.amazonaws.com", region)
		}
	}
	if m.SNSTopicARN != "" && m.SNSEndpoint == "" {
		if region := arnRegion(m.SNSTopicARN); region != "" {
			m.SNSEndpoint = fmt.Sprintf("sns.%s.amazonaws.com", region)
		}
	}
	if m.CloudWatchLogGroupARN != "" && m.CloudWatchLogsEndpoint == "" {
		if region := arnRegion(m.CloudWatchLogGroupARN); region != "" {
			m.CloudWatchLogsEndpoint = fmt.Sprintf("logs.%s.amazonaws.com", region)
		}
	}

	if m.SecretPasswordKey == "" {
		m.SecretPasswordKey = "password"
	}
	if m.SecretUsernameKey == "" {
		m.SecretUsernameKey = "username"
	}

	optional := make(map[string]bool, len(optionalKeys))
	for _, key := range optionalKeys {
		optional[key] = true
	}
	for _, key := range allKeys() {
		if optional[key] {
			continue
		}
		if *m.field(key) == "" {
			return fmt.Errorf("missing configuration parameter %q", key)
		}
	}
	return nil
}

// arnRegion extracts the region segment of an AWS ARN. Malformed ARNs yield
// an empty string.
func arnRegion(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}
