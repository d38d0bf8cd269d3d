package models

import "time"

// FilingEvent is the Kafka event published for each ingestion item.
type FilingEvent struct {
	EventType string           `json:"event_type"`
	Ticker    string           `json:"ticker"`
	Backend   string           `json:"backend"`
	Record    *FinancialRecord `json:"record,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	EventFilingIngested = "FILING_INGESTED"
	EventFilingSkipped  = "FILING_SKIPPED"
	EventFilingFailed   = "FILING_FAILED"
)
