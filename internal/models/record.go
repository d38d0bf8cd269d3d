package models

import "time"

// FinancialRecord is one company-year snapshot of summary financial figures,
// the flat row shape shared by both warehouse backends.
type FinancialRecord struct {
	Ticker      string  `json:"ticker"`
	Year        int     `json:"year"`
	Revenue     float64 `json:"revenue"`
	NetIncome   float64 `json:"net_income"`
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
	Equity      float64 `json:"equity"`
	AuditPass   bool    `json:"audit_pass"`
}

// AuditTolerance is the allowed absolute gap in the accounting identity
// assets = liabilities + equity before a record fails validation.
const AuditTolerance = 1_000_000.0

// Audit reports whether the record satisfies the accounting identity
// within AuditTolerance.
func (r FinancialRecord) Audit() bool {
	gap := r.Assets - (r.Liabilities + r.Equity)
	if gap < 0 {
		gap = -gap
	}
	return gap < AuditTolerance
}

// FilingMetadata describes the filing a record was extracted from.
type FilingMetadata struct {
	CompanyName     string    `json:"company_name"`
	CIK             string    `json:"cik"`
	AccessionNumber string    `json:"accession_number,omitempty"`
	FilingDate      time.Time `json:"filing_date"`
}
