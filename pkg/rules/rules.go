package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ontapwatch/ontapwatch/pkg/log"
	"github.com/ontapwatch/ontapwatch/pkg/types"
)

// neverMatch is substituted for an empty exclusion filter so that an unset
// filter excludes nothing.
const neverMatch = "ThisShouldn'tMatchAnything"

// Truthy reports whether a rule value enables its rule. Conditions documents
// are operator-edited JSON, so booleans, numbers, and strings all appear in
// the wild; anything non-zero and non-empty counts as set. Decoded documents
// carry float64 numbers, synthesized defaults carry int.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	}
	return true
}

// Number extracts a numeric threshold from a rule value. Booleans coerce to
// 0 and 1; strings are not accepted.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// EMSRule is one compiled EMS matching rule. A record matches when name,
// severity, and message all match and the filter does not.
type EMSRule struct {
	Name     *regexp.Regexp
	Severity *regexp.Regexp
	Message  *regexp.Regexp
	Filter   *regexp.Regexp
}

// Matches reports whether an EMS event with the given fields satisfies the
// rule.
func (r EMSRule) Matches(name, severity, logMessage string) bool {
	return !r.Filter.MatchString(logMessage) &&
		r.Name.MatchString(name) &&
		r.Severity.MatchString(severity) &&
		r.Message.MatchString(logMessage)
}

// ruleString pulls a string value out of a rule, treating anything else as
// an empty (match-all) pattern.
func ruleString(rule types.Rule, key string) string {
	if s, ok := rule[key].(string); ok {
		return s
	}
	return ""
}

// CompileEMS compiles the EMS rule list. Rules with patterns that do not
// compile are skipped with a warning rather than failing the whole run.
func CompileEMS(ruleList []types.Rule, clusterName string) []EMSRule {
	compiled := make([]EMSRule, 0, len(ruleList))
	for _, rule := range ruleList {
		filter := ruleString(rule, "filter")
		if filter == "" {
			filter = neverMatch
		}
		patterns := [4]string{
			ruleString(rule, "name"),
			ruleString(rule, "severity"),
			ruleString(rule, "message"),
			filter,
		}
		var regexps [4]*regexp.Regexp
		ok := true
		for i, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				log.Logger.Warn().Msgf("Invalid regular expression \"%s\" found for cluster %s.", pattern, clusterName)
				ok = false
				break
			}
			regexps[i] = re
		}
		if !ok {
			continue
		}
		compiled = append(compiled, EMSRule{
			Name:     regexps[0],
			Severity: regexps[1],
			Message:  regexps[2],
			Filter:   regexps[3],
		})
	}
	return compiled
}

// SnapMirror holds the consolidated snapmirror rules. When a rule key appears
// more than once the last occurrence wins. The *Key fields preserve the
// spelling used in the document.
type SnapMirror struct {
	MaxLagTime           *float64
	MaxLagTimeKey        string
	MaxLagTimePercent    *float64
	MaxLagTimePercentKey string
	Healthy              *bool
	HealthyKey           string
	StalledSeconds       *float64
}

// ConsolidateSnapMirror flattens a snapmirror rule list. Unknown keys are
// reported but otherwise ignored.
func ConsolidateSnapMirror(ruleList []types.Rule, clusterName string) SnapMirror {
	var sm SnapMirror
	ForEach(ruleList, func(key, lkey string, value any) {
		switch lkey {
		case "maxlagtime":
			if n, ok := Number(value); ok {
				sm.MaxLagTime = &n
				sm.MaxLagTimeKey = key
			}
		case "maxlagtimepercent":
			if n, ok := Number(value); ok {
				sm.MaxLagTimePercent = &n
				sm.MaxLagTimePercentKey = key
			}
		case "healthy":
			b := Truthy(value)
			sm.Healthy = &b
			sm.HealthyKey = key
		case "stalledtransferseconds":
			if n, ok := Number(value); ok {
				sm.StalledSeconds = &n
			}
		default:
			log.Logger.Warn().Msgf("Unknown snapmirror alert type: \"%s\" found on cluster %s.", key, clusterName)
		}
	})
	return sm
}

// Vserver holds the consolidated vserver rules. Each check runs only when
// its rule is present and enabled.
type Vserver struct {
	State           *bool
	StateKey        string
	NFSProtocol     *bool
	NFSProtocolKey  string
	CIFSProtocol    *bool
	CIFSProtocolKey string
}

// ConsolidateVserver flattens a vserver rule list.
func ConsolidateVserver(ruleList []types.Rule, clusterName string) Vserver {
	var vs Vserver
	ForEach(ruleList, func(key, lkey string, value any) {
		switch lkey {
		case "vserverstate":
			b := Truthy(value)
			vs.State = &b
			vs.StateKey = key
		case "nfsprotocolstate":
			b := Truthy(value)
			vs.NFSProtocol = &b
			vs.NFSProtocolKey = key
		case "cifsprotocolstate":
			b := Truthy(value)
			vs.CIFSProtocol = &b
			vs.CIFSProtocolKey = key
		default:
			log.Logger.Warn().Msgf("Unknown vserver alert type: \"%s\" found on cluster %s.", key, clusterName)
		}
	})
	return vs
}

// ForEach walks every key of every rule, handing the callback the original
// key, its lowercased form for matching, and the value. Dedup identifiers
// keep the original key spelling, which is why both forms are passed.
func ForEach(ruleList []types.Rule, fn func(key, lkey string, value any)) {
	for _, rule := range ruleList {
		for _, key := range rule.Keys() {
			fn(key, strings.ToLower(key), rule[key])
		}
	}
}

// IntSeed parses an integer seed value from the environment. The boolean is
// false when the value is not a whole number.
func IntSeed(value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
