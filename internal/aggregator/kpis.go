package aggregator

import (
	"math"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// CustomKPI is the placeholder composite metric shown on the fifth KPI card
const CustomKPI = 87

// Round rounds half away from zero, so 82.5 -> 83 and -0.5 -> -1
func Round(v float64) int {
	return int(math.Round(v))
}

// ComputeKPIs derives the KPI card values from already-scoped agents and calls.
// The average score is 0 when there are no calls.
func ComputeKPIs(agents []types.Agent, calls []types.Call) types.KPISummary {
	var totalDuration float64
	for _, c := range calls {
		totalDuration += c.Duration
	}

	return types.KPISummary{
		TotalAgents:        len(agents),
		TotalCallsAnalysed: len(calls),
		TotalDuration:      Round(totalDuration),
		AverageScore:       Round(mean(calls, func(c types.Call) float64 { return c.Score })),
		CustomKPI:          CustomKPI,
	}
}

// mean returns the arithmetic mean of value over items, or 0 for no items
func mean[T any](items []T, value func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += value(item)
	}
	return sum / float64(len(items))
}
