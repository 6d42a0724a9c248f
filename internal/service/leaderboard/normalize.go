package leaderboard

import (
	"math"
	"regexp"
)

var titleSuffixPattern = regexp.MustCompile(` \| TUES Fest \d{4}$`)

// NormalizeTitle strips a trailing " | TUES Fest <year>" from a video title.
func NormalizeTitle(title string) string {
	return titleSuffixPattern.ReplaceAllString(title, "")
}

// CoalesceCount converts a raw statistic to a count. NaN, infinities and
// negative values become zero; fractions are truncated.
func CoalesceCount(value float64) uint64 {
	switch {
	case math.IsNaN(value), math.IsInf(value, 0), value <= 0:
		return 0
	case value >= math.MaxUint64:
		return math.MaxUint64
	default:
		return uint64(value)
	}
}
