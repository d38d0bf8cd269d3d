package models

import "time"

// ReportTypeAnnual is the only form type the warehouse ingests.
const ReportTypeAnnual = "10-K"

// FilingDocument is the nested document-store representation of a filing.
// It is a superset of FinancialRecord: equity is not stored and is
// reconstructed as assets - liabilities when documents are flattened back
// into the row shape.
type FilingDocument struct {
	Ticker     string           `json:"ticker" bson:"ticker"`
	Year       int              `json:"year" bson:"year"`
	Timestamp  time.Time        `json:"timestamp" bson:"timestamp"`
	ReportType string           `json:"report_type" bson:"report_type"`
	AuditPass  bool             `json:"audit_pass" bson:"audit_pass"`
	Financials FilingFinancials `json:"financials" bson:"financials"`
	Metadata   DocumentMetadata `json:"metadata" bson:"metadata"`
}

// FilingFinancials holds the monetary figures nested under "financials".
type FilingFinancials struct {
	Revenue          float64 `json:"revenue" bson:"revenue"`
	NetIncome        float64 `json:"net_income" bson:"net_income"`
	TotalAssets      float64 `json:"total_assets" bson:"total_assets"`
	TotalLiabilities float64 `json:"total_liabilities" bson:"total_liabilities"`
}

// DocumentMetadata holds the filing provenance nested under "metadata".
type DocumentMetadata struct {
	CompanyName string    `json:"company_name" bson:"company_name"`
	CIK         string    `json:"cik" bson:"cik"`
	FilingDate  time.Time `json:"filing_date" bson:"filing_date"`
}

// NewFilingDocument maps a flat record and its filing metadata into the
// nested document shape.
func NewFilingDocument(r FinancialRecord, meta FilingMetadata, fetchedAt time.Time) FilingDocument {
	return FilingDocument{
		Ticker:     r.Ticker,
		Year:       r.Year,
		Timestamp:  fetchedAt,
		ReportType: ReportTypeAnnual,
		AuditPass:  r.AuditPass,
		Financials: FilingFinancials{
			Revenue:          r.Revenue,
			NetIncome:        r.NetIncome,
			TotalAssets:      r.Assets,
			TotalLiabilities: r.Liabilities,
		},
		Metadata: DocumentMetadata{
			CompanyName: meta.CompanyName,
			CIK:         meta.CIK,
			FilingDate:  meta.FilingDate,
		},
	}
}

// Flatten converts the document back into the flat row shape. Equity is
// synthesized because the document does not store it.
func (d FilingDocument) Flatten() FinancialRecord {
	return FinancialRecord{
		Ticker:      d.Ticker,
		Year:        d.Year,
		Revenue:     d.Financials.Revenue,
		NetIncome:   d.Financials.NetIncome,
		Assets:      d.Financials.TotalAssets,
		Liabilities: d.Financials.TotalLiabilities,
		Equity:      d.Financials.TotalAssets - d.Financials.TotalLiabilities,
		AuditPass:   d.AuditPass,
	}
}
