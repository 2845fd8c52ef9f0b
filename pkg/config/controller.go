package config

import (
	"fmt"
	"os"
	"strings"
)

// Controller holds the fleet dispatcher configuration. The dispatcher reads
// everything from the environment; there is no per-cluster config file at
// this level.
type Controller struct {
	S3BucketName   string
	S3BucketRegion string
	FleetListKey   string
	SNSTopicARN    string

	// Initial carries every initial* key from the environment so the
	// monitor can synthesize a default conditions document on first
	// contact with a cluster.
	Initial map[string]string
}

// controllerKeys are required for the dispatcher to run at all.
var controllerKeys = []string{
	"s3BucketName",
	"s3BucketRegion",
	"FSxNList",
	"snsTopicArn",
}

// LoadController resolves the dispatcher configuration from the environment.
// The returned error names the first missing key so the caller can raise a
// meta-alert before giving up.
func LoadController() (*Controller, error) {
	c := &Controller{Initial: map[string]string{}}
	for _, key := range controllerKeys {
		value := os.Getenv(key)
		if value == "" {
			return nil, fmt.Errorf("the Monitor ONTAP Service controller is missing a required environment variable %s", key)
		}
		switch key {
		case "s3BucketName":
			c.S3BucketName = value
		case "s3BucketRegion":
			c.S3BucketRegion = value
		case "FSxNList":
			c.FleetListKey = value
		case "snsTopicArn":
			c.SNSTopicARN = value
		}
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "initial") {
			continue
		}
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		c.Initial[key] = value
	}
	return c, nil
}

// MonitorPayload builds the invocation payload for one fleet entry. Every
// entry gets a fresh map so per-entry overrides never leak into the next
// cluster.
func (c *Controller) MonitorPayload(host, secretARN string, overrides map[string]string) map[string]string {
	payload := map[string]string{
		"s3BucketName":     c.S3BucketName,
		"s3BucketRegion":   c.S3BucketRegion,
		"snsTopicArn":      c.SNSTopicARN,
		"OntapAdminServer": host,
		"secretArn":        secretARN,
	}
	for key, value := range overrides {
		payload[key] = value
	}
	for key, value := range c.Initial {
		payload[key] = value
	}
	return payload
}
