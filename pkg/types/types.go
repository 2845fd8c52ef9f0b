package types

import (
	"encoding/json"
	"sort"
	"strings"
)

// Severity classifies an alert message
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityDebug    Severity = "DEBUG"
)

// SeverityNumber returns the numeric rank of a severity, 1 being the most
// severe. Unknown strings rank as INFO.
func SeverityNumber(s string) int {
	switch strings.ToLower(s) {
	case "critical":
		return 1
	case "error":
		return 2
	case "warning":
		return 3
	case "info":
		return 4
	case "debug":
		return 5
	default:
		return 4
	}
}

const (
	// EventResilience is the number of consecutive polls an event survives
	// in a history blob without being re-observed.
	EventResilience = 4

	// MaxAllowedFailures is the consecutive-failure count at which the
	// dispatcher raises a meta-alert for a cluster.
	MaxAllowedFailures = 2

	// InitialVersion is the placeholder stored in a first-run system status
	// before the cluster version has been observed.
	InitialVersion = "Initial Run"

	// DefaultNumberNodes seeds a first-run system status.
	DefaultNumberNodes = 2
)

// Service domain names as they appear in the conditions document. Matching
// is case-insensitive.
const (
	ServiceSystemHealth = "systemHealth"
	ServiceEMS          = "ems"
	ServiceSnapMirror   = "snapmirror"
	ServiceStorage      = "storage"
	ServiceQuota        = "quota"
	ServiceVserver      = "vserver"
)

// FlexID is a history-record identifier. Older state blobs stored numeric
// identifiers; FlexID accepts both forms when unmarshalling and always
// marshals as a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// EventRecord is one entry in a per-domain event history blob. Index is the
// stable identifier used for dedup; Refresh counts down the polls left
// before the record is dropped. The optional message fields snapshot the
// originating EMS event.
type EventRecord struct {
	Index       FlexID `json:"index"`
	Time        string `json:"time,omitempty"`
	MessageName string `json:"messageName,omitempty"`
	Message     string `json:"message,omitempty"`
	Refresh     int    `json:"refresh"`
}

// SystemStatus is the per-cluster availability and identity record.
type SystemStatus struct {
	SystemHealth   int           `json:"systemHealth"`
	Version        string        `json:"version"`
	NumberNodes    int           `json:"numberNodes"`
	DownInterfaces []EventRecord `json:"downInterfaces"`
}

// NewSystemStatus returns the first-run system status.
func NewSystemStatus() *SystemStatus {
	return &SystemStatus{
		SystemHealth:   0,
		Version:        InitialVersion,
		NumberNodes:    DefaultNumberNodes,
		DownInterfaces: []EventRecord{},
	}
}

// TransferRecord is one entry in the replication-transfer watchlist, keyed
// by transfer UUID. Refresh is cleared at the start of each run and set when
// the transfer is observed again; unrefreshed entries are dropped.
type TransferRecord struct {
	UUID             string `json:"uuid"`
	Time             int64  `json:"time"`
	BytesTransferred int64  `json:"bytesTransferred"`
	Refresh          bool   `json:"refresh"`
}

// AuditPosition is the per-cluster ingestion watermark for administrative
// audit logs. Field names match the JSON persisted by earlier releases;
// AscTimestamp seeds the next query and is "5m" on first run.
type AuditPosition struct {
	Timestamp    int64  `json:"timestamp"`
	Index        int64  `json:"index"`
	AscTimestamp string `json:"ascTimestamp"`
}

// NewAuditPosition returns the first-run watermark.
func NewAuditPosition() AuditPosition {
	return AuditPosition{Timestamp: 0, Index: 0, AscTimestamp: "5m"}
}

// Rule is one raw rule object from the conditions document. Evaluators
// parse rules into typed variants once per run; unrecognized keys produce
// a warning and are otherwise ignored.
type Rule map[string]any

// Keys returns the rule's keys in sorted order. JSON objects lose their
// document order when decoded into a map, so sorting keeps multi-key rules
// deterministic.
func (r Rule) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ServiceBlock pairs a service domain with its configured rules.
type ServiceBlock struct {
	Name  string `json:"name"`
	Rules []Rule `json:"rules"`
}

// Conditions is the match-conditions document.
type Conditions struct {
	Services []ServiceBlock `json:"services"`
}

// FleetEntry is one parsed line of the fleet descriptor.
type FleetEntry struct {
	Host      string
	SecretARN string
	Overrides map[string]string
}
