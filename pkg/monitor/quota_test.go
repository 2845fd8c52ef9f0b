package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapwatch/ontapwatch/pkg/types"
)

func newQuotaRig(t *testing.T, ruleList ...types.Rule) *testRig {
	t.Helper()
	rig := newRig(t)
	rig.saveConditions(t, types.ServiceBlock{Name: "quota", Rules: ruleList})
	rig.fc.page(probePath, probeBody("fsxcluster", "9.13.1P6"))
	return rig
}

// quotaRow builds one report row on svm1:/vol1 with the given usage columns.
func quotaRow(index int, quotaType, tree string, columns map[string]any) map[string]any {
	row := map[string]any{
		"index":      index,
		"vserver":    "svm1",
		"volume":     "vol1",
		"quota_type": quotaType,
	}
	if tree != "" {
		row["tree"] = tree
	}
	for column, value := range columns {
		row[column] = value
	}
	return row
}

func TestRunQuotaSpaceHardLimit(t *testing.T) {
	rig := newQuotaRig(t, types.Rule{"maxHardQuotaSpacePercentUsed": 90})
	rig.fc.page(quotaReportPath, collectionBody(t,
		quotaRow(101, "tree", "qt1", map[string]any{"disk_used_pct_disk_limit": 95}),
		quotaRow(102, "user", "", map[string]any{
			"quota_target":             []string{"bob", "alice"},
			"disk_used_pct_disk_limit": 97,
		}),
		// Rows without a hard disk limit report 0%, not 100%.
		quotaRow(103, "tree", "", map[string]any{"disk_used_pct_disk_limit": 0}),
		quotaRow(104, "tree", "", nil),
	))

	rig.run(t)

	want := []string{
		`Quota Space Usage Alert: Hard quota of type "tree" on svm1:/vol1 under qtree: qt1 on fsxcluster is using 95% which is more than 90% of its allocated space.`,
		`Quota Space Usage Alert: Hard quota of type "user" on svm1:/vol1 associated with user(s) "bob,alice" on fsxcluster is using 97% which is more than 90% of its allocated space.`,
	}
	assert.Equal(t, want, rig.emitter.messages())

	rig.run(t)
	assert.Len(t, rig.emitter.messages(), len(want))
}

func TestRunQuotaInodeSoftLimit(t *testing.T) {
	rig := newQuotaRig(t, types.Rule{"maxSoftQuotaInodesPercentUsed": 85})
	rig.fc.page(quotaReportPath, collectionBody(t,
		quotaRow(201, "tree", "", map[string]any{"files_used_pct_soft_file_limit": 92}),
	))

	rig.run(t)

	messages := rig.emitter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, `Quota Inode Usage Alert: Soft quota of type "tree" on svm1:/vol1 on fsxcluster is using 92% which is more than 85% of its inodes.`, messages[0])
}

func TestRunQuotaUnknownRuleIgnored(t *testing.T) {
	rig := newQuotaRig(t, types.Rule{"maxBananas": 90})
	rig.fc.page(quotaReportPath, collectionBody(t,
		quotaRow(301, "tree", "", map[string]any{"disk_used_pct_disk_limit": 99}),
	))

	rig.run(t)

	assert.Empty(t, rig.emitter.messages())
}
