package types

// KPISummary holds the headline numbers shown on the KPI cards
type KPISummary struct {
	TotalAgents        int `json:"totalAgents"`
	TotalCallsAnalysed int `json:"totalCallsAnalysed"`
	TotalDuration      int `json:"totalDuration"` // minutes
	AverageScore       int `json:"averageScore"`
	CustomKPI          int `json:"customKPI"`
}

// SectionScore is the average score of one scorecard section
type SectionScore struct {
	Section string `json:"section"`
	Score   int    `json:"score"`
}

// ClassificationSlice is one slice of the classification chart
type ClassificationSlice struct {
	Name  Classification `json:"name"`
	Value int            `json:"value"`
	Color string         `json:"color"`
}

// KeyMetrics holds business percentages for the key-metrics card
type KeyMetrics struct {
	PTPPercentage  int `json:"ptpPercentage"`  // promise to pay
	RPCPercentage  int `json:"rtpPercentage"`  // right party contact
	ConversionRate int `json:"conversionRate"` // percent
}

// TalkSplit is the average talk/silence split; the two always sum to 100
type TalkSplit struct {
	Talk    int `json:"talk"`
	Silence int `json:"silence"`
}

// FatalSplit counts fatal vs normal calls
type FatalSplit struct {
	Fatal  int `json:"fatal"`
	Normal int `json:"normal"`
}

// ChartSummary feeds every chart on the dashboard
type ChartSummary struct {
	SectionScores      []SectionScore        `json:"sectionScores"`
	CallClassification []ClassificationSlice `json:"callClassification"`
	KeyMetrics         KeyMetrics            `json:"keyMetrics"`
	AverageSpeechRate  int                   `json:"averageSpeechRate"`
	TalkPercentage     TalkSplit             `json:"talkPercentage"`
	FatalCalls         FatalSplit            `json:"fatalCalls"`
}
