package config

import (
	"fmt"
	"os"
	"strings"
)

// Audit holds the administrative-audit-log ingester configuration. Everything
// comes from the environment. Empty values are treated as unset for the same
// reason as in LoadMonitor.
type Audit struct {
	LogGroupName   string
	LogGroupRegion string
	S3BucketName   string
	S3BucketRegion string
	StatsName      string

	Regions            []string
	AccountRoles       []string
	ScanCurrentAccount string

	SecretARNsFile   string
	DefaultSecretARN string
	// FileSystemSecrets maps a file system id to its secret ARN, built
	// from the fileSystem{1..5}ID / fileSystem{1..5}SecretARN pairs. It
	// is ignored when SecretARNsFile is set.
	FileSystemSecrets map[string]string

	InputFilter      string
	InputMatch       string
	ApplicationMatch string
	UserMatch        string
	StateMatch       string
}

// auditRequiredKeys must be set for the ingester to run.
var auditRequiredKeys = []string{
	"logGroupName",
	"logGroupRegion",
	"s3BucketRegion",
	"s3BucketName",
	"statsName",
}

// LoadAudit resolves the ingester configuration from the environment. The
// legacy fsxRegion key seeds both the log group region and the region list
// when they were not given explicitly.
func LoadAudit() (*Audit, error) {
	a := &Audit{
		LogGroupName:       os.Getenv("logGroupName"),
		LogGroupRegion:     os.Getenv("logGroupRegion"),
		S3BucketName:       os.Getenv("s3BucketName"),
		S3BucketRegion:     os.Getenv("s3BucketRegion"),
		StatsName:          os.Getenv("statsName"),
		ScanCurrentAccount: os.Getenv("scanCurrentAccount"),
		SecretARNsFile:     os.Getenv("fsxnSecretARNsFile"),
		DefaultSecretARN:   os.Getenv("defaultSecretARN"),
		InputFilter:        os.Getenv("inputFilter"),
		InputMatch:         os.Getenv("inputMatch"),
		ApplicationMatch:   os.Getenv("applicationMatch"),
		UserMatch:          os.Getenv("userMatch"),
		StateMatch:         os.Getenv("stateMatch"),
		Regions:            splitList(os.Getenv("regions")),
		AccountRoles:       splitList(os.Getenv("accountRoles")),
		FileSystemSecrets:  map[string]string{},
	}

	if legacy := os.Getenv("fsxRegion"); legacy != "" {
		if a.LogGroupRegion == "" {
			a.LogGroupRegion = legacy
		}
		if len(a.Regions) == 0 {
			a.Regions = []string{legacy}
		}
	}

	for _, key := range auditRequiredKeys {
		var value string
		switch key {
		case "logGroupName":
			value = a.LogGroupName
		case "logGroupRegion":
			value = a.LogGroupRegion
		case "s3BucketRegion":
			value = a.S3BucketRegion
		case "s3BucketName":
			value = a.S3BucketName
		case "statsName":
			value = a.StatsName
		}
		if value == "" {
			return nil, fmt.Errorf("%s is not set", key)
		}
	}

	for i := 1; i <= 5; i++ {
		id := os.Getenv(fmt.Sprintf("fileSystem%dID", i))
		arn := os.Getenv(fmt.Sprintf("fileSystem%dSecretARN", i))
		if id != "" && arn != "" {
			a.FileSystemSecrets[id] = arn
		}
	}
	return a, nil
}

// splitList parses a comma-separated list, trimming each element. An empty
// input yields nil rather than a one-element slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
