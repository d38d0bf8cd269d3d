package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore/warehouse/internal/edgar"
	"github.com/fincore/warehouse/internal/models"
)

// singleProvider is a per-ticker fake filings provider.
type singleProvider struct {
	byTicker map[string]result
}

type result struct {
	filing  *edgar.Filing
	summary *edgar.FinancialSummary
	err     error
}

func (p *singleProvider) LookupCIK(ctx context.Context, ticker string) (string, error) {
	r, ok := p.byTicker[ticker]
	if !ok {
		return "", fmt.Errorf("ticker %s not found in SEC database", ticker)
	}
	if r.err != nil && r.filing == nil && r.summary == nil {
		return "", r.err
	}
	// Encode the ticker in the CIK so later calls can find the entry.
	return "cik-" + ticker, nil
}

func (p *singleProvider) LatestAnnualFiling(ctx context.Context, cik string) (*edgar.Filing, error) {
	r := p.byTicker[cik[len("cik-"):]]
	if r.filing == nil {
		return nil, edgar.ErrNoFiling
	}
	return r.filing, nil
}

func (p *singleProvider) FinancialSummary(ctx context.Context, cik, accession string) (*edgar.FinancialSummary, error) {
	r := p.byTicker[cik[len("cik-"):]]
	if r.summary == nil {
		return nil, errors.New("facts fetch failed")
	}
	return r.summary, nil
}

// memoryStore is an in-memory flat-row backend.
type memoryStore struct {
	name     string
	records  map[string]models.FinancialRecord // key ticker:year
	writeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{name: "memory", records: map[string]models.FinancialRecord{}}
}

func (m *memoryStore) Name() string { return m.name }

func (m *memoryStore) Write(ctx context.Context, records []models.FinancialRecord) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	for _, r := range records {
		m.records[fmt.Sprintf("%s:%d", r.Ticker, r.Year)] = r
	}
	return len(records), nil
}

func (m *memoryStore) ReadAll(ctx context.Context) ([]models.FinancialRecord, error) {
	var out []models.FinancialRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *memoryStore) Close(ctx context.Context) error { return nil }

// memoryDocStore additionally records full documents, like the Mongo backend.
type memoryDocStore struct {
	memoryStore
	docs []models.FilingDocument
}

func (m *memoryDocStore) WriteDocuments(ctx context.Context, docs []models.FilingDocument) (int, error) {
	m.docs = append(m.docs, docs...)
	return len(docs), nil
}

// recordingPublisher captures published items.
type recordingPublisher struct {
	items []models.IngestItem
	err   error
}

func (p *recordingPublisher) PublishItem(ctx context.Context, backend string, item models.IngestItem) error {
	p.items = append(p.items, item)
	return p.err
}

func aaplProvider() *singleProvider {
	return &singleProvider{byTicker: map[string]result{
		"AAPL": {
			filing: &edgar.Filing{
				CompanyName:     "Apple Inc.",
				CIK:             "0000320193",
				AccessionNumber: "0000320193-25-000001",
				FormType:        "10-K",
				FilingDate:      time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			},
			summary: &edgar.FinancialSummary{
				Revenue:     100,
				NetIncome:   10,
				Assets:      500,
				Liabilities: 200,
				Equity:      300,
			},
		},
	}}
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed batch yields per-item outcomes, never an error", func(t *testing.T) {
		provider := aaplProvider()
		provider.byTicker["NOFIL"] = result{} // known ticker, no 10-K
		provider.byTicker["BROKE"] = result{filing: &edgar.Filing{AccessionNumber: "x"}, summary: nil}

		st := newMemoryStore()
		p := New(provider)

		report := p.Run(ctx, []string{"AAPL", "NOFIL", "BROKE", "GHOST"}, st)

		assert.Equal(t, 1, report.Ingested)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 2, report.Failed) // facts failure + unknown ticker
		require.Len(t, report.Items, 4)

		count, _ := st.Count(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("record carries the audit result and current year", func(t *testing.T) {
		st := newMemoryStore()
		p := New(aaplProvider())
		p.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

		report := p.Run(ctx, []string{"AAPL"}, st)
		require.Equal(t, 1, report.Ingested)

		item := report.Items[0]
		require.NotNil(t, item.Record)
		assert.Equal(t, 2026, item.Record.Year)
		assert.True(t, item.Record.AuditPass) // |500 - (200+300)| < 1e6
	})

	t.Run("unbalanced figures fail the audit but still persist", func(t *testing.T) {
		provider := aaplProvider()
		entry := provider.byTicker["AAPL"]
		entry.summary = &edgar.FinancialSummary{Revenue: 100, NetIncome: 10, Assets: 500_000_000, Liabilities: 100, Equity: 300}
		provider.byTicker["AAPL"] = entry

		st := newMemoryStore()
		report := New(provider).Run(ctx, []string{"AAPL"}, st)

		require.Equal(t, 1, report.Ingested)
		assert.False(t, report.Items[0].Record.AuditPass)
	})

	t.Run("identifiers are normalized and blanks dropped", func(t *testing.T) {
		st := newMemoryStore()
		report := New(aaplProvider()).Run(ctx, []string{"  aapl ", "", "   "}, st)

		require.Len(t, report.Items, 1)
		assert.Equal(t, "AAPL", report.Items[0].Ticker)
		assert.Equal(t, 1, report.Ingested)
	})

	t.Run("store write failure is a per-item failure", func(t *testing.T) {
		st := newMemoryStore()
		st.writeErr = errors.New("disk full")

		report := New(aaplProvider()).Run(ctx, []string{"AAPL"}, st)
		assert.Equal(t, 1, report.Failed)
		assert.Contains(t, report.Items[0].Message, "disk full")
	})

	t.Run("document backends receive the nested document with metadata", func(t *testing.T) {
		st := &memoryDocStore{memoryStore: *newMemoryStore()}
		report := New(aaplProvider()).Run(ctx, []string{"AAPL"}, st)

		require.Equal(t, 1, report.Ingested)
		require.Len(t, st.docs, 1)
		doc := st.docs[0]
		assert.Equal(t, "Apple Inc.", doc.Metadata.CompanyName)
		assert.Equal(t, "0000320193", doc.Metadata.CIK)
		assert.Equal(t, models.ReportTypeAnnual, doc.ReportType)
		assert.Equal(t, 500.0, doc.Financials.TotalAssets)
	})

	t.Run("progress fires after each item in order", func(t *testing.T) {
		provider := aaplProvider()
		provider.byTicker["NOFIL"] = result{}

		var calls []int
		var tickers []string
		p := New(provider)
		p.SetProgress(func(done, total int, item models.IngestItem) {
			assert.Equal(t, 2, total)
			calls = append(calls, done)
			tickers = append(tickers, item.Ticker)
		})

		p.Run(ctx, []string{"AAPL", "NOFIL"}, newMemoryStore())
		assert.Equal(t, []int{1, 2}, calls)
		assert.Equal(t, []string{"AAPL", "NOFIL"}, tickers)
	})

	t.Run("publisher sees every item and its errors are swallowed", func(t *testing.T) {
		provider := aaplProvider()
		provider.byTicker["NOFIL"] = result{}

		pub := &recordingPublisher{err: errors.New("broker down")}
		p := New(provider)
		p.SetPublisher(pub)

		report := p.Run(ctx, []string{"AAPL", "NOFIL"}, newMemoryStore())
		assert.Equal(t, 1, report.Ingested)
		assert.Equal(t, 1, report.Skipped)
		require.Len(t, pub.items, 2)
	})

	t.Run("cancelled context stops the batch cleanly", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		report := New(aaplProvider()).Run(cancelled, []string{"AAPL"}, newMemoryStore())
		assert.Empty(t, report.Items)
	})
}
