package utils

import (
	"fmt"
	"time"
)

var shortUnits = []struct {
	size   int64
	suffix string
}{
	{1_000_000_000_000, "T"},
	{1_000_000_000, "B"},
	{1_000_000, "M"},
}

// FormatShortNotation formats a number using short notation (e.g., 50k instead of 50000)
func FormatShortNotation(value int64) string {
	sign := ""
	abs := value
	if value < 0 {
		sign = "-"
		abs = -value
	}

	for _, u := range shortUnits {
		if abs >= u.size {
			return fmt.Sprintf("%s%.2f%s", sign, float64(abs)/float64(u.size), u.suffix)
		}
	}
	switch {
	case abs >= 10_000:
		return fmt.Sprintf("%s%dk", sign, abs/1_000)
	case abs >= 1_000:
		return fmt.Sprintf("%s%.1fk", sign, float64(abs)/1_000)
	}
	return fmt.Sprintf("%s%d", sign, abs)
}

// FormatHours renders watch time with one decimal
func FormatHours(minutes int64) string {
	return fmt.Sprintf("%.1f", float64(minutes)/60)
}

// FormatWait renders a remaining cooldown rounded up to whole seconds
func FormatWait(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs >= 60 {
		return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
