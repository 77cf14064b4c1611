// Package transcript turns raw call transcripts into ordered speaker turns.
package transcript

import (
	"sort"
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

var prefixes = []struct {
	label   string
	speaker types.Speaker
}{
	{"Agent:", types.SpeakerAgent},
	{"Customer:", types.SpeakerCustomer},
}

// Parse splits a newline-delimited transcript into turns. Each kept line starts
// with "Agent:" or "Customer:"; the label and surrounding whitespace are removed.
// Lines with neither prefix are dropped.
func Parse(raw string) []types.TranscriptTurn {
	turns := make([]types.TranscriptTurn, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range prefixes {
			if text, ok := strings.CutPrefix(line, p.label); ok {
				turns = append(turns, types.TranscriptTurn{
					Speaker: p.speaker,
					Text:    strings.TrimSpace(text),
				})
				break
			}
		}
	}
	return turns
}

// FromRecords converts stored transcript segments into turns ordered by timestamp.
// Speaker labels are matched case-insensitively ("agent", "AGENT", "customer", "caller");
// segments with an unknown speaker or no text are dropped.
func FromRecords(records []types.TranscriptRecord) []types.TranscriptTurn {
	sorted := make([]types.TranscriptRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	turns := make([]types.TranscriptTurn, 0, len(sorted))
	for _, r := range sorted {
		speaker, ok := speakerOf(r.Speaker)
		text := strings.TrimSpace(r.Text)
		if !ok || text == "" {
			continue
		}
		turns = append(turns, types.TranscriptTurn{Speaker: speaker, Text: text})
	}
	return turns
}

// Text renders turns back into the "Speaker: text" line format accepted by Parse
func Text(turns []types.TranscriptTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Speaker))
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

func speakerOf(label string) (types.Speaker, bool) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(label), ":")) {
	case "agent":
		return types.SpeakerAgent, true
	case "customer", "caller":
		return types.SpeakerCustomer, true
	default:
		return "", false
	}
}
