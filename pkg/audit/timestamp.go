package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MsEpoch converts an audit record timestamp of the form
// 2025-07-14T08:08:48-06:00 to milliseconds since the Unix epoch. The wall
// clock is read as if it were UTC and only the hour component of the zone
// offset is applied afterwards; offset minutes are ignored. Stored
// watermarks already use this rounding, so changing it would re-deliver or
// skip records across an upgrade.
func MsEpoch(ts string) (int64, error) {
	if len(ts) < 19 {
		return 0, fmt.Errorf("malformed audit timestamp %q", ts)
	}
	wall, err := time.Parse("2006-01-02T15:04:05", ts[:19])
	if err != nil {
		return 0, fmt.Errorf("malformed audit timestamp %q: %w", ts, err)
	}

	pieces := strings.Split(ts, ":")
	if len(pieces) < 3 || len(pieces[2]) < 5 {
		return 0, fmt.Errorf("audit timestamp %q carries no zone offset", ts)
	}
	offsetHours, err := strconv.Atoi(pieces[2][3:5])
	if err != nil {
		return 0, fmt.Errorf("audit timestamp %q carries a malformed zone offset: %w", ts, err)
	}

	ms := wall.UnixMilli()
	if pieces[2][2] == '-' {
		ms += int64(offsetHours) * 60 * 60 * 1000
	} else {
		ms -= int64(offsetHours) * 60 * 60 * 1000
	}
	return ms, nil
}
