// Package metrics computes derived financial ratios over warehouse rows.
// All ratios are nullable per row: a zero denominator yields a nil value for
// that row only and never aborts the batch.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/fincore/warehouse/internal/models"
)

// CompanyMetrics is a warehouse row augmented with its derived ratio columns.
type CompanyMetrics struct {
	models.FinancialRecord
	ROE           *float64 `json:"ROE"`
	DebtToEquity  *float64 `json:"Debt_to_Equity"`
	ProfitMargin  *float64 `json:"Profit_Margin"`
	AssetTurnover *float64 `json:"Asset_Turnover"`
	AltmanZScore  *float64 `json:"Altman_Z_Score"`
}

// Summary holds the dashboard header aggregates for a set of rows.
type Summary struct {
	Companies       int      `json:"companies"`
	TotalRevenue    float64  `json:"total_revenue"`
	TotalNetIncome  float64  `json:"total_net_income"`
	AvgProfitMargin *float64 `json:"avg_profit_margin"`
}

// Compute augments every record with its ratio columns.
func Compute(records []models.FinancialRecord) []CompanyMetrics {
	out := make([]CompanyMetrics, 0, len(records))
	for _, r := range records {
		out = append(out, CompanyMetrics{
			FinancialRecord: r,
			ROE:             ratio(r.NetIncome, r.Equity),
			DebtToEquity:    ratio(r.Liabilities, r.Equity),
			ProfitMargin:    ratio(r.NetIncome, r.Revenue),
			AssetTurnover:   ratio(r.Revenue, r.Assets),
			AltmanZScore:    AltmanZ(r),
		})
	}
	return out
}

// AltmanZ computes the bankruptcy-risk proxy score for one row, rounded to
// 2 decimal places. It is undefined when assets or liabilities are zero.
func AltmanZ(r models.FinancialRecord) *float64 {
	if r.Assets == 0 || r.Liabilities == 0 {
		return nil
	}
	liquidity := (r.Assets - r.Liabilities) / r.Assets
	profitability := r.NetIncome / r.Assets
	leverage := r.Equity / r.Liabilities
	z := 1.2*liquidity + 3.3*profitability + 0.6*leverage
	return round(z, 2)
}

// Summarize computes the aggregate dashboard figures for a set of rows.
// The average margin is nil when no row has revenue.
func Summarize(records []models.FinancialRecord) Summary {
	s := Summary{Companies: len(records)}
	var marginSum float64
	var marginCount int
	for _, r := range records {
		s.TotalRevenue += r.Revenue
		s.TotalNetIncome += r.NetIncome
		if r.Revenue != 0 {
			marginSum += r.NetIncome / r.Revenue
			marginCount++
		}
	}
	if marginCount > 0 {
		s.AvgProfitMargin = round(marginSum/float64(marginCount), 4)
	}
	return s
}

// ratio returns num/den rounded to 4 decimal places, or nil when den is zero.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return round(num/den, 4)
}

func round(v float64, places int32) *float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return &rounded
}
