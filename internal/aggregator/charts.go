package aggregator

import (
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Display colors of the classification chart
const (
	ColorPaidInFull  = "#22c55e"
	ColorPartialPaid = "#eab308"
	ColorOverdue     = "#ef4444"
)

var classificationColors = map[types.Classification]string{
	types.ClassPaidInFull:  ColorPaidInFull,
	types.ClassPartialPaid: ColorPartialPaid,
	types.ClassOverdue:     ColorOverdue,
}

// DefaultKeyMetrics are the business constants shown on the key-metrics card.
// They are not derived from the call list.
var DefaultKeyMetrics = types.KeyMetrics{
	PTPPercentage:  68,
	RPCPercentage:  72,
	ConversionRate: 45,
}

// DefaultSectionScores are the scorecard section averages shown on the section chart
var DefaultSectionScores = []types.SectionScore{
	{Section: "Opening", Score: 85},
	{Section: "Discovery", Score: 78},
	{Section: "Presentation", Score: 82},
	{Section: "Objection Handling", Score: 74},
	{Section: "Closing", Score: 89},
}

// ChartOptions overrides the fixed inputs of ComputeChartSummary
type ChartOptions struct {
	KeyMetrics    *types.KeyMetrics
	SectionScores []types.SectionScore
}

// ComputeChartSummary derives every chart from an already-scoped call list
func ComputeChartSummary(calls []types.Call) types.ChartSummary {
	return ComputeChartSummaryWith(calls, ChartOptions{})
}

// ComputeChartSummaryWith is ComputeChartSummary with caller-supplied key metrics
// and section scores.
func ComputeChartSummaryWith(calls []types.Call, opts ChartOptions) types.ChartSummary {
	keyMetrics := DefaultKeyMetrics
	if opts.KeyMetrics != nil {
		keyMetrics = *opts.KeyMetrics
	}
	sections := opts.SectionScores
	if sections == nil {
		sections = DefaultSectionScores
	}

	talk := Round(mean(calls, func(c types.Call) float64 { return c.TalkPercentage }))

	fatal := 0
	for _, c := range calls {
		if c.Fatal {
			fatal++
		}
	}

	return types.ChartSummary{
		SectionScores:      append([]types.SectionScore(nil), sections...),
		CallClassification: classify(calls),
		KeyMetrics:         keyMetrics,
		AverageSpeechRate:  Round(mean(calls, func(c types.Call) float64 { return c.SpeechRate })),
		TalkPercentage: types.TalkSplit{
			Talk:    talk,
			Silence: 100 - talk,
		},
		FatalCalls: types.FatalSplit{
			Fatal:  fatal,
			Normal: len(calls) - fatal,
		},
	}
}

// classify counts calls per known classification, always returning all three buckets.
// A call with an unknown label is counted as Overdue so the buckets still
// partition the input.
func classify(calls []types.Call) []types.ClassificationSlice {
	counts := make(map[types.Classification]int, len(types.Classifications))
	for _, c := range calls {
		if _, known := classificationColors[c.Classification]; known {
			counts[c.Classification]++
		} else {
			counts[types.ClassOverdue]++
		}
	}

	slices := make([]types.ClassificationSlice, 0, len(types.Classifications))
	for _, class := range types.Classifications {
		slices = append(slices, types.ClassificationSlice{
			Name:  class,
			Value: counts[class],
			Color: classificationColors[class],
		})
	}
	return slices
}
