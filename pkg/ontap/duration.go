package ontap

import (
	"fmt"
	"strconv"

	"github.com/ontapwatch/ontapwatch/pkg/log"
)

// ParseLagTime converts a replication lag duration of the form "P#DT#H#M#S"
// into seconds. The "#D" part is absent when the lag is under a day, and
// "#H" when under an hour. An unrecognized unit character is logged and its
// value counted as seconds.
func ParseLagTime(s, clusterName string) int64 {
	var total int64

	// The day part is present when the character after 'P' is a digit;
	// otherwise the string starts with "PT".
	includesDay := false
	start := 2
	if len(s) > 1 && isDigit(s[1]) {
		includesDay = true
		start = 1
	}

	n, next := lagComponent(s, clusterName, start)
	total += n

	start = next
	if includesDay {
		start++ // skip the 'T' between days and hours
	}
	n, next = lagComponent(s, clusterName, start)
	total += n

	n, next = lagComponent(s, clusterName, next)
	total += n

	n, _ = lagComponent(s, clusterName, next)
	total += n

	return total
}

// lagComponent reads one number starting at start and scales it by the unit
// character that follows. It returns the scaled value and the position after
// the unit.
func lagComponent(s, clusterName string, start int) (int64, int) {
	if len(s) <= start {
		return 0, start
	}
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	num, _ := strconv.ParseInt(s[start:end], 10, 64)

	unit := ""
	if end < len(s) {
		unit = s[end : end+1]
	}
	switch unit {
	case "D":
		num *= 60 * 60 * 24
	case "H":
		num *= 60 * 60
	case "M":
		num *= 60
	case "S":
	default:
		log.Logger.Warn().Msgf(`Unknown lag time specifier "%s found on cluster %s".`, unit, clusterName)
	}
	return num, end + 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// LagTimeString renders seconds as a human-readable day/hour/minute/second
// string, e.g. "2 hours 30 minutes and 0 seconds".
func LagTimeString(seconds int64) string {
	days := seconds / (60 * 60 * 24)
	seconds -= days * (60 * 60 * 24)
	hours := seconds / (60 * 60)
	seconds -= hours * (60 * 60)
	minutes := seconds / 60
	seconds -= minutes * 60

	timeStr := ""
	if days > 0 {
		timeStr = fmt.Sprintf("%d day%s ", days, plural(days))
	}
	if hours > 0 || days > 0 {
		timeStr += fmt.Sprintf("%d hour%s ", hours, plural(hours))
	}
	if minutes > 0 || days > 0 || hours > 0 {
		timeStr += fmt.Sprintf("%d minute%s and ", minutes, plural(minutes))
	}
	timeStr += fmt.Sprintf("%d second%s", seconds, plural(seconds))
	return timeStr
}

func plural(n int64) string {
	if n != 1 {
		return "s"
	}
	return ""
}
