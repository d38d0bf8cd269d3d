package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore/warehouse/internal/models"
)

func TestCompute(t *testing.T) {
	t.Run("computes all ratios for a healthy row", func(t *testing.T) {
		rows := Compute([]models.FinancialRecord{{
			Ticker:      "AAPL",
			Year:        2025,
			Revenue:     100,
			NetIncome:   10,
			Assets:      500,
			Liabilities: 200,
			Equity:      300,
		}})
		require.Len(t, rows, 1)

		m := rows[0]
		require.NotNil(t, m.ROE)
		require.NotNil(t, m.DebtToEquity)
		require.NotNil(t, m.ProfitMargin)
		require.NotNil(t, m.AssetTurnover)
		assert.Equal(t, 0.0333, *m.ROE)
		assert.Equal(t, 0.6667, *m.DebtToEquity)
		assert.Equal(t, 0.10, *m.ProfitMargin)
		assert.Equal(t, 0.20, *m.AssetTurnover)

		// 1.2*0.6 + 3.3*0.02 + 0.6*1.5 = 1.686 -> 1.69
		require.NotNil(t, m.AltmanZScore)
		assert.Equal(t, 1.69, *m.AltmanZScore)
	})

	t.Run("zero equity yields nil ROE and debt-to-equity only", func(t *testing.T) {
		rows := Compute([]models.FinancialRecord{{
			Ticker:      "ZERO",
			Revenue:     50,
			NetIncome:   5,
			Assets:      100,
			Liabilities: 100,
			Equity:      0,
		}})
		require.Len(t, rows, 1)

		m := rows[0]
		assert.Nil(t, m.ROE)
		assert.Nil(t, m.DebtToEquity)
		require.NotNil(t, m.ProfitMargin)
		assert.Equal(t, 0.10, *m.ProfitMargin)
		require.NotNil(t, m.AssetTurnover)
		assert.Equal(t, 0.50, *m.AssetTurnover)
	})

	t.Run("one bad row never affects the others", func(t *testing.T) {
		rows := Compute([]models.FinancialRecord{
			{Ticker: "BAD"},
			{Ticker: "GOOD", Revenue: 200, NetIncome: 20, Assets: 400, Liabilities: 100, Equity: 300},
		})
		require.Len(t, rows, 2)

		assert.Nil(t, rows[0].ROE)
		assert.Nil(t, rows[0].ProfitMargin)
		assert.Nil(t, rows[0].AltmanZScore)

		require.NotNil(t, rows[1].ProfitMargin)
		assert.Equal(t, 0.10, *rows[1].ProfitMargin)
	})
}

func TestAltmanZ(t *testing.T) {
	t.Run("nil when assets are zero", func(t *testing.T) {
		z := AltmanZ(models.FinancialRecord{Assets: 0, Liabilities: 100, Equity: 50})
		assert.Nil(t, z)
	})

	t.Run("nil when liabilities are zero", func(t *testing.T) {
		z := AltmanZ(models.FinancialRecord{Assets: 100, Liabilities: 0, Equity: 100})
		assert.Nil(t, z)
	})

	t.Run("matches the formula to two decimals", func(t *testing.T) {
		// liquidity = (1000-400)/1000 = 0.6 -> 0.72
		// profitability = 90/1000 = 0.09  -> 0.297
		// leverage = 600/400 = 1.5        -> 0.9
		z := AltmanZ(models.FinancialRecord{
			Assets:      1000,
			Liabilities: 400,
			NetIncome:   90,
			Equity:      600,
		})
		require.NotNil(t, z)
		assert.Equal(t, 1.92, *z)
	})

	t.Run("negative figures round correctly", func(t *testing.T) {
		// liquidity = (100-300)/100 = -2   -> -2.4
		// profitability = -50/100 = -0.5   -> -1.65
		// leverage = -200/300              -> -0.4
		z := AltmanZ(models.FinancialRecord{
			Assets:      100,
			Liabilities: 300,
			NetIncome:   -50,
			Equity:      -200,
		})
		require.NotNil(t, z)
		assert.Equal(t, -4.45, *z)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("aggregates totals and average margin", func(t *testing.T) {
		s := Summarize([]models.FinancialRecord{
			{Ticker: "A", Revenue: 100, NetIncome: 10},
			{Ticker: "B", Revenue: 200, NetIncome: 40},
		})
		assert.Equal(t, 2, s.Companies)
		assert.Equal(t, 300.0, s.TotalRevenue)
		assert.Equal(t, 50.0, s.TotalNetIncome)
		require.NotNil(t, s.AvgProfitMargin)
		assert.Equal(t, 0.15, *s.AvgProfitMargin) // (0.10 + 0.20) / 2
	})

	t.Run("zero-revenue rows are excluded from the margin average", func(t *testing.T) {
		s := Summarize([]models.FinancialRecord{
			{Ticker: "A", Revenue: 100, NetIncome: 10},
			{Ticker: "B", Revenue: 0, NetIncome: 40},
		})
		require.NotNil(t, s.AvgProfitMargin)
		assert.Equal(t, 0.10, *s.AvgProfitMargin)
	})

	t.Run("empty table has nil margin", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, 0, s.Companies)
		assert.Nil(t, s.AvgProfitMargin)
	})
}
