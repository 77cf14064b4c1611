package types

import "time"

// Disposition is the outcome of a call attempt
type Disposition string

const (
	DispositionAnswered Disposition = "Answered"
	DispositionNoAnswer Disposition = "No Answer"
	DispositionBusy     Disposition = "Busy"
	DispositionFailed   Disposition = "Failed"
)

// Dispositions lists every known disposition in display order
var Dispositions = []Disposition{
	DispositionAnswered,
	DispositionNoAnswer,
	DispositionBusy,
	DispositionFailed,
}

// Speaker identifies who said a transcript turn
type Speaker string

const (
	SpeakerAgent    Speaker = "Agent"
	SpeakerCustomer Speaker = "Customer"
)

// CallLog is the detailed record shown in the call-log table
type CallLog struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	PhoneNumber string      `json:"phoneNumber" yaml:"phoneNumber"`
	Name        string      `json:"name" yaml:"name"`
	CalledAt    time.Time   `json:"calledAt" yaml:"calledAt"`
	Disposition Disposition `json:"disposition" yaml:"disposition" validate:"oneof=Answered 'No Answer' Busy Failed"`
	RingingTime int         `json:"ringingTime" yaml:"ringingTime" validate:"gte=0"` // seconds
	Duration    int         `json:"duration" yaml:"duration" validate:"gte=0"`       // seconds
	Domain      string      `json:"domain" yaml:"domain"`
	AgentScore  float64     `json:"agentScore" yaml:"agentScore" validate:"gte=0,lte=10"`
	Transcript  *string     `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Summary     *string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Recording   bool        `json:"recording" yaml:"recording"`
}

// TranscriptTurn is one speaker turn of a rendered transcript
type TranscriptTurn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// TranscriptRecord is a transcript segment as stored by the call API
type TranscriptRecord struct {
	ID         string    `json:"_id" yaml:"id"`
	CallID     string    `json:"call_id" yaml:"callId" validate:"required"`
	Text       string    `json:"text" yaml:"text"`
	Speaker    string    `json:"speaker" yaml:"speaker"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}
