package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadControllerRequiredKeys(t *testing.T) {
	t.Setenv("s3BucketName", "fleet-bucket")
	t.Setenv("s3BucketRegion", "us-west-2")
	t.Setenv("FSxNList", "fleet.txt")
	t.Setenv("snsTopicArn", "")

	_, err := LoadController()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snsTopicArn")
}

func TestLoadControllerForwardsInitialKeys(t *testing.T) {
	t.Setenv("s3BucketName", "fleet-bucket")
	t.Setenv("s3BucketRegion", "us-west-2")
	t.Setenv("FSxNList", "fleet.txt")
	t.Setenv("snsTopicArn", "arn:aws:sns:us-west-2:123456789012:alerts")
	t.Setenv("initialEmsEventsAlert", "true")
	t.Setenv("initialOldSnapshot", "86400")

	c, err := LoadController()
	require.NoError(t, err)

	assert.Equal(t, "fleet.txt", c.FleetListKey)
	assert.Equal(t, "true", c.Initial["initialEmsEventsAlert"])
	assert.Equal(t, "86400", c.Initial["initialOldSnapshot"])
}

func TestMonitorPayloadIsolation(t *testing.T) {
	c := &Controller{
		S3BucketName:   "fleet-bucket",
		S3BucketRegion: "us-west-2",
		SNSTopicARN:    "arn:aws:sns:us-west-2:123456789012:alerts",
		Initial:        map[string]string{"initialEmsEventsAlert": "true"},
	}

	first := c.MonitorPayload("fs-1.example.com", "arn:one", map[string]string{"syslogIP": "10.0.0.5"})
	second := c.MonitorPayload("fs-2.example.com", "arn:two", nil)

	assert.Equal(t, "10.0.0.5", first["syslogIP"])
	// Overrides from one fleet entry must not leak into the next.
	_, leaked := second["syslogIP"]
	assert.False(t, leaked)
	assert.Equal(t, "fs-2.example.com", second["OntapAdminServer"])
	assert.Equal(t, "arn:two", second["secretArn"])
	assert.Equal(t, "true", second["initialEmsEventsAlert"])
}

func TestLoadAuditLegacyRegion(t *testing.T) {
	t.Setenv("logGroupName", "/fsx/audit")
	t.Setenv("s3BucketName", "stats-bucket")
	t.Setenv("s3BucketRegion", "us-west-2")
	t.Setenv("statsName", "lastFileRead")
	t.Setenv("fsxRegion", "us-east-1")

	a, err := LoadAudit()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", a.LogGroupRegion)
	assert.Equal(t, []string{"us-east-1"}, a.Regions)
}

func TestLoadAuditRegionLists(t *testing.T) {
	t.Setenv("logGroupName", "/fsx/audit")
	t.Setenv("logGroupRegion", "us-west-2")
	t.Setenv("s3BucketName", "stats-bucket")
	t.Setenv("s3BucketRegion", "us-west-2")
	t.Setenv("statsName", "lastFileRead")
	t.Setenv("regions", "us-west-2, us-east-1 ,eu-west-1")
	t.Setenv("accountRoles", "arn:aws:iam::111111111111:role/fsx-scan")
	t.Setenv("fileSystem1ID", "fs-0123456789abcdef0")
	t.Setenv("fileSystem1SecretARN", "arn:aws:secretsmanager:us-west-2:123456789012:secret:creds")
	t.Setenv("fileSystem2ID", "fs-0fedcba9876543210")

	a, err := LoadAudit()
	require.NoError(t, err)

	assert.Equal(t, []string{"us-west-2", "us-east-1", "eu-west-1"}, a.Regions)
	assert.Equal(t, []string{"arn:aws:iam::111111111111:role/fsx-scan"}, a.AccountRoles)
	assert.Equal(t, "arn:aws:secretsmanager:us-west-2:123456789012:secret:creds",
		a.FileSystemSecrets["fs-0123456789abcdef0"])
	// An id without a paired secret ARN is ignored.
	_, ok := a.FileSystemSecrets["fs-0fedcba9876543210"]
	assert.False(t, ok)
}

func TestLoadAuditMissingRequired(t *testing.T) {
	t.Setenv("logGroupName", "/fsx/audit")
	t.Setenv("logGroupRegion", "us-west-2")
	t.Setenv("s3BucketName", "stats-bucket")
	t.Setenv("s3BucketRegion", "us-west-2")
	t.Setenv("statsName", "")

	_, err := LoadAudit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsName")
}
