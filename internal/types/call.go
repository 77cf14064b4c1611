package types

import "time"

// Classification is the payment outcome assigned to an analysed call
type Classification string

const (
	ClassPaidInFull  Classification = "Paid in Full"
	ClassPartialPaid Classification = "Partial Paid"
	ClassOverdue     Classification = "Overdue"
)

// Classifications lists every known classification in display order
var Classifications = []Classification{
	ClassPaidInFull,
	ClassPartialPaid,
	ClassOverdue,
}

// Call represents an analysed call handled by an agent
type Call struct {
	ID             string         `json:"id" yaml:"id" validate:"required"`
	AgentID        string         `json:"agentId" yaml:"agentId"`
	AgentName      string         `json:"agentName" yaml:"agentName"`
	Duration       float64        `json:"duration" yaml:"duration" validate:"gte=0"` // minutes
	Score          float64        `json:"score" yaml:"score" validate:"gte=0,lte=100"`
	Classification Classification `json:"classification" yaml:"classification" validate:"oneof='Paid in Full' 'Partial Paid' Overdue"`
	TalkPercentage float64        `json:"talkPercentage" yaml:"talkPercentage" validate:"gte=0,lte=100"`
	SpeechRate     float64        `json:"speechRate" yaml:"speechRate" validate:"gte=0"` // words per minute
	Fatal          bool           `json:"isFatal" yaml:"isFatal"`
	Date           time.Time      `json:"date" yaml:"date"`
	Domain         string         `json:"domain" yaml:"domain"`
}

// CallMetrics holds the status-distribution counters reported by the API
type CallMetrics struct {
	TotalCalls         int            `json:"total_calls" validate:"gte=0"`
	RecentCalls        int            `json:"recent_calls" validate:"gte=0"`
	StatusDistribution map[string]int `json:"status_distribution"`
}
