// Package format renders elapsed seconds for display. All helpers
// round down; display must never overstate tracked time.
package format

import (
	"fmt"
	"time"
)

// HHMMSS renders seconds as zero-padded "HH:MM:SS". Negative input
// renders as 00:00:00.
func HHMMSS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// MMSS renders seconds as zero-padded "MM:SS", the short-session
// variant. Minutes keep growing past 59 rather than rolling over.
func MMSS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Human formats a duration the way the CLI summarizes it, e.g. "1.5h",
// "12m", "45s".
func Human(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}

// ElapsedSeconds computes whole seconds between start and end, floored
// and clamped to zero so clock skew can never produce a negative
// duration.
func ElapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
