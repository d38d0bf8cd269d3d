package models

import "time"

// ItemStatus classifies the outcome of one identifier in an ingestion run.
type ItemStatus string

const (
	StatusIngested ItemStatus = "ingested"
	StatusSkipped  ItemStatus = "skipped"
	StatusFailed   ItemStatus = "failed"
)

// IngestItem is the typed per-identifier result of an ingestion run.
type IngestItem struct {
	Ticker  string           `json:"ticker"`
	Status  ItemStatus       `json:"status"`
	Message string           `json:"message,omitempty"`
	Record  *FinancialRecord `json:"record,omitempty"`
}

// IngestReport aggregates the per-item results of one ingestion run.
// Partial success is the normal case, not an error state.
type IngestReport struct {
	RunID       string       `json:"run_id"`
	Backend     string       `json:"backend"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Ingested    int          `json:"ingested"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	Items       []IngestItem `json:"items"`
}

// Add appends an item result and bumps the matching counter.
func (r *IngestReport) Add(item IngestItem) {
	r.Items = append(r.Items, item)
	switch item.Status {
	case StatusIngested:
		r.Ingested++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}
