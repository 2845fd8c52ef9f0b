package rules

import (
	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// seedKind describes how an initial* value turns into a rule.
type seedKind int

const (
	// seedBool appends {key: true} for "true" and {key: false} for
	// anything else, including an empty string.
	seedBool seedKind = iota
	// seedBoolInverted is seedBool with the value flipped: the seed asks
	// "alert on unhealthy", the rule stores the state that is alertable.
	seedBoolInverted
	// seedInt appends {key: n} only when the value parses to n > 0.
	seedInt
	// seedEMS appends the catch-all EMS severity rule for "true" and
	// nothing otherwise.
	seedEMS
)

// conditionSeeds maps the initial* invocation keys to the rules they
// produce. The slice order fixes the order rules appear in a synthesized
// conditions document.
var conditionSeeds = []struct {
	key     string
	service string
	ruleKey string
	kind    seedKind
}{
	{"initialVersionChangeAlert", types.ServiceSystemHealth, "versionChange", seedBool},
	{"initialFailoverAlert", types.ServiceSystemHealth, "failover", seedBool},
	{"initialNetworkInterfacesAlert", types.ServiceSystemHealth, "networkInterfaces", seedBool},
	{"initialEmsEventsAlert", types.ServiceEMS, "", seedEMS},
	{"initialSnapMirrorHealthAlert", types.ServiceSnapMirror, "Healthy", seedBoolInverted},
	{"initialSnapMirrorLagTimeAlert", types.ServiceSnapMirror, "maxLagTime", seedInt},
	{"initialSnapMirrorLagTimePercentAlert", types.ServiceSnapMirror, "maxLagTimePercent", seedInt},
	{"initialSnapMirrorStalledAlert", types.ServiceSnapMirror, "stalledTransferSeconds", seedInt},
	{"initialFileSystemUtilizationWarnAlert", types.ServiceStorage, "aggrWarnPercentUsed", seedInt},
	{"initialFileSystemUtilizationCriticalAlert", types.ServiceStorage, "aggrCriticalPercentUsed", seedInt},
	{"initialVolumeUtilizationWarnAlert", types.ServiceStorage, "volumeWarnPercentUsed", seedInt},
	{"initialVolumeUtilizationCriticalAlert", types.ServiceStorage, "volumeCriticalPercentUsed", seedInt},
	{"initialVolumeFileUtilizationWarnAlert", types.ServiceStorage, "volumeWarnFilesPercentUsed", seedInt},
	{"initialVolumeFileUtilizationCriticalAlert", types.ServiceStorage, "volumeCriticalFilesPercentUsed", seedInt},
	{"initialVolumeOfflineAlert", types.ServiceStorage, "offline", seedBool},
	{"initialOldSnapshot", types.ServiceStorage, "oldSnapshot", seedInt},
	{"initialSoftQuotaUtilizationAlert", types.ServiceQuota, "maxSoftQuotaSpacePercentUsed", seedInt},
	{"initialHardQuotaUtilizationAlert", types.ServiceQuota, "maxHardQuotaSpacePercentUsed", seedInt},
	{"initialInodesSoftQuotaUtilizationAlert", types.ServiceQuota, "maxSoftQuotaInodesPercentUsed", seedInt},
	{"initialInodesQuotaUtilizationAlert", types.ServiceQuota, "maxHardQuotaInodesPercentUsed", seedInt},
	{"initialVserverStateAlert", types.ServiceVserver, "vserverState", seedBool},
	{"initialVserverNFSProtocolStateAlert", types.ServiceVserver, "nfsProtocolState", seedBool},
	{"initialVserverCIFSProtocolStateAlert", types.ServiceVserver, "cifsProtocolState", seedBool},
}

// DefaultConditions synthesizes a conditions document from the initial*
// invocation keys. Every service block is present even when it gets no
// rules; a key that is present but empty still produces a "false" boolean
// rule, which is how an operator disables a check explicitly.
func DefaultConditions(initial map[string]string, clusterName string) types.Conditions {
	conditions := types.Conditions{Services: []types.ServiceBlock{
		{Name: types.ServiceSystemHealth, Rules: []types.Rule{}},
		{Name: types.ServiceEMS, Rules: []types.Rule{}},
		{Name: types.ServiceSnapMirror, Rules: []types.Rule{}},
		{Name: types.ServiceStorage, Rules: []types.Rule{}},
		{Name: types.ServiceQuota, Rules: []types.Rule{}},
		{Name: types.ServiceVserver, Rules: []types.Rule{}},
	}}

	blocks := make(map[string]*types.ServiceBlock, len(conditions.Services))
	for i := range conditions.Services {
		blocks[conditions.Services[i].Name] = &conditions.Services[i]
	}

	for _, seed := range conditionSeeds {
		value, ok := initial[seed.key]
		if !ok {
			continue
		}
		block := blocks[seed.service]
		switch seed.kind {
		case seedBool:
			block.Rules = append(block.Rules, types.Rule{seed.ruleKey: value == "true"})
		case seedBoolInverted:
			block.Rules = append(block.Rules, types.Rule{seed.ruleKey: value != "true"})
		case seedInt:
			n, ok := IntSeed(value)
			if !ok {
				log.Logger.Warn().Msgf("Ignoring non-numeric value \"%s\" for %s on cluster %s.", value, seed.key, clusterName)
				continue
			}
			if n > 0 {
				block.Rules = append(block.Rules, types.Rule{seed.ruleKey: n})
			}
		case seedEMS:
			if value == "true" {
				block.Rules = append(block.Rules, types.Rule{
					"name":     "",
					"severity": "error|alert|emergency",
					"message":  "",
					"filter":   "",
				})
			}
		}
	}
	return conditions
}
