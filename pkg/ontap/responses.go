package ontap

import (
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// ClusterInfo is the availability-probe response.
type ClusterInfo struct {
	Name    string `json:"name"`
	Version struct {
		Full string `json:"full"`
	} `json:"version"`
	Timezone struct {
		Name string `json:"name"`
	} `json:"timezone"`
}

// RecordCount decodes endpoints where only the record count matters.
type RecordCount struct {
	NumRecords int `json:"num_records"`
}

// EMSEvent is one event from the cluster's EMS stream.
type EMSEvent struct {
	Index      types.FlexID `json:"index"`
	Time       string       `json:"time"`
	LogMessage string       `json:"log_message"`
	Message    struct {
		Name     string `json:"name"`
		Severity string `json:"severity"`
	} `json:"message"`
}

// IPInterface is one logical network interface. State is absent on some
// interface types.
type IPInterface struct {
	Name  string  `json:"name"`
	State *string `json:"state"`
}

// Endpoint names one end of a replication relationship.
type Endpoint struct {
	Path    string `json:"path"`
	Cluster struct {
		Name string `json:"name"`
	} `json:"cluster"`
}

// Transfer is an in-flight replication transfer.
type Transfer struct {
	UUID             string `json:"uuid"`
	State            string `json:"state"`
	BytesTransferred int64  `json:"bytes_transferred"`
}

// Relationship is one replication relationship.
type Relationship struct {
	UUID            string   `json:"uuid"`
	State           string   `json:"state"`
	LagTime         string   `json:"lag_time"`
	Healthy         *bool    `json:"healthy"`
	UnhealthyReason []struct {
		Message string `json:"message"`
	} `json:"unhealthy_reason"`
	Source           Endpoint  `json:"source"`
	Destination      Endpoint  `json:"destination"`
	Transfer         *Transfer `json:"transfer"`
	TransferSchedule *UUIDRef  `json:"transfer_schedule"`
	Policy           *UUIDRef  `json:"policy"`
}

// UUIDRef references another cluster object by UUID.
type UUIDRef struct {
	UUID string `json:"uuid"`
}

// Aggregate is one storage aggregate with its space usage.
type Aggregate struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Space struct {
		BlockStorage struct {
			UsedPercent float64 `json:"used_percent"`
		} `json:"block_storage"`
	} `json:"space"`
}

// VolumeFiles is a volume's inode usage.
type VolumeFiles struct {
	Maximum *int64 `json:"maximum"`
	Used    *int64 `json:"used"`
}

// Volume is one volume with the fields the storage evaluator inspects.
type Volume struct {
	UUID                  string `json:"uuid"`
	Name                  string `json:"name"`
	State                 string `json:"state"`
	Style                 string `json:"style"`
	FlexcacheEndpointType string `json:"flexcache_endpoint_type"`
	SVM                   struct {
		Name string `json:"name"`
	} `json:"svm"`
	Space struct {
		PercentUsed *float64 `json:"percent_used"`
	} `json:"space"`
	Files *VolumeFiles `json:"files"`
}

// VolumeSnapshot is one snapshot of a volume.
type VolumeSnapshot struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	CreateTime string `json:"create_time"`
	Volume     struct {
		Name string `json:"name"`
	} `json:"volume"`
	SVM struct {
		Name string `json:"name"`
	} `json:"svm"`
}

// QuotaRow is one row of the CLI quota report. The structured REST endpoint
// returns nothing on the affected releases, so the CLI passthrough with its
// underscore field names is used instead.
type QuotaRow struct {
	Index                    int64    `json:"index"`
	Vserver                  string   `json:"vserver"`
	Volume                   string   `json:"volume"`
	Tree                     string   `json:"tree"`
	QuotaType                string   `json:"quota_type"`
	QuotaTarget              []string `json:"quota_target"`
	FilesUsedPctSoftLimit    *float64 `json:"files_used_pct_soft_file_limit"`
	FilesUsedPctHardLimit    *float64 `json:"files_used_pct_file_limit"`
	DiskUsedPctHardLimit     *float64 `json:"disk_used_pct_disk_limit"`
	DiskUsedPctSoftDiskLimit *float64 `json:"disk_used_pct_soft_disk_limit"`
}

// SVMInfo is one storage virtual machine.
type SVMInfo struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// NFSService is the NFS protocol state of one SVM.
type NFSService struct {
	SVM   SVMRef `json:"svm"`
	State string `json:"state"`
}

// CIFSService is the CIFS protocol state of one SVM.
type CIFSService struct {
	SVM     SVMRef `json:"svm"`
	Enabled *bool  `json:"enabled"`
}

// SVMRef names the SVM a protocol service belongs to.
type SVMRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// ScheduleDoc is a cluster schedule document. Interval schedules carry no
// cron block at all; within a cron block, absent fields mean "every".
type ScheduleDoc struct {
	Cron *CronFields `json:"cron"`
}

// CronFields are the cron components of a cluster schedule.
type CronFields struct {
	Minutes  []int `json:"minutes"`
	Hours    []int `json:"hours"`
	Days     []int `json:"days"`
	Months   []int `json:"months"`
	Weekdays []int `json:"weekdays"`
}

// PolicyDoc is a replication policy document.
type PolicyDoc struct {
	TransferSchedule *UUIDRef `json:"transfer_schedule"`
}

// AuditMessage is one administrative audit record.
type AuditMessage struct {
	Index     int64  `json:"index"`
	Timestamp string `json:"timestamp"`
	Node      struct {
		Name string `json:"name"`
	} `json:"node"`
	Location    *string `json:"location"`
	Application *string `json:"application"`
	User        *string `json:"user"`
	State       *string `json:"state"`
	Scope       *string `json:"scope"`
	Input       *string `json:"input"`
}
