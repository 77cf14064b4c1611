package aggregator

import (
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// DispositionAll matches every disposition in a CallLogQuery
const DispositionAll = "all"

// CallLogQuery narrows the call-log table
type CallLogQuery struct {
	Search      string // case-insensitive contact name, or phone number substring
	Disposition string // a types.Disposition, "all" or empty
}

// FilterCallLogs returns the logs matching q in their original order
func FilterCallLogs(logs []types.CallLog, q CallLogQuery) []types.CallLog {
	search := strings.TrimSpace(q.Search)
	needle := strings.ToLower(search)
	disposition := strings.TrimSpace(q.Disposition)

	out := make([]types.CallLog, 0, len(logs))
	for _, l := range logs {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Name), needle) &&
			!strings.Contains(l.PhoneNumber, search) {
			continue
		}
		if disposition != "" && disposition != DispositionAll && string(l.Disposition) != disposition {
			continue
		}
		out = append(out, l)
	}
	return out
}

// DispositionCounts counts logs per known disposition
func DispositionCounts(logs []types.CallLog) map[types.Disposition]int {
	counts := make(map[types.Disposition]int, len(types.Dispositions))
	for _, d := range types.Dispositions {
		counts[d] = 0
	}
	for _, l := range logs {
		counts[l.Disposition]++
	}
	return counts
}

// SuccessRate is the rounded percentage of completed calls, 0 when nothing was counted
func SuccessRate(m *types.CallMetrics) int {
	if m == nil || m.TotalCalls <= 0 {
		return 0
	}
	return Round(float64(m.StatusDistribution["completed"]) / float64(m.TotalCalls) * 100)
}

// ActiveCalls is the number of calls currently in progress
func ActiveCalls(m *types.CallMetrics) int {
	if m == nil {
		return 0
	}
	return m.StatusDistribution["in-progress"]
}
