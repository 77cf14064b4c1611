package types

import "time"

// DashboardView is everything the dashboard page renders for one user
type DashboardView struct {
	User        *User        `json:"user"`
	KPIs        KPISummary   `json:"kpis"`
	Charts      ChartSummary `json:"charts"`
	Metrics     *CallMetrics `json:"metrics,omitempty"` // admins only, the counters are not domain scoped
	SuccessRate int          `json:"successRate"`
	ActiveCalls int          `json:"activeCalls"`
	RecentCalls []Call       `json:"recentCalls"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// CallLogRow is a call-log record with its display labels
type CallLogRow struct {
	CallLog
	DurationLabel string `json:"durationLabel"`
	HasTranscript bool   `json:"hasTranscript"`
}

// CallLogPage is the filtered call-log table
type CallLogPage struct {
	Rows         []CallLogRow        `json:"rows"`
	Total        int                 `json:"total"`
	Dispositions map[Disposition]int `json:"dispositions"`
}

// TranscriptView is the transcript dialog of one call
type TranscriptView struct {
	CallID    string           `json:"callId"`
	Turns     []TranscriptTurn `json:"turns"`
	Summary   *string          `json:"summary,omitempty"`
	Recording bool             `json:"recording"`
}
