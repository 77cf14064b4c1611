package aggregator

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatClock renders a call duration in seconds as m:ss, or "-" when nothing was said
func FormatClock(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDuration renders seconds as "45s" below a minute and "3m 5s" above
func FormatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", Round(seconds))
	}
	minutes := int(seconds / 60)
	rest := Round(seconds - float64(minutes*60))
	if rest == 60 {
		minutes++
		rest = 0
	}
	return fmt.Sprintf("%dm %ds", minutes, rest)
}

// FormatCount abbreviates large counts: 1500 -> "1.5K", 2300000 -> "2.3M"
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.Itoa(n)
	}
}

// Initials returns up to two upper-case initials of a display name
func Initials(name string) string {
	out := make([]rune, 0, 2)
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
