package render

import (
	"fmt"
	"strings"
	"time"
)

// Elapsed formats the whole seconds between start and end.
// Seconds are floored, never rounded; negative spans clamp to zero.
func Elapsed(start, end time.Time) string {
	return Duration(end.Sub(start))
}

// Duration formats d as "<s>s", "<m>m <s>s" or "<h>h <m>m".
func Duration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}

	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}

// Size formats a byte count using 1024-based units.
func Size(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}

// TruncateFilename shortens name to maxLen runes, keeping its extension.
func TruncateFilename(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}

	var ext []rune
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = []rune(name[i:])
	}

	keep := maxLen - len(ext) - 3
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + "..." + string(ext)
}
