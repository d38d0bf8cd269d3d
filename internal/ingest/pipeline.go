// Package ingest pulls annual filings from the filings provider and writes
// normalized records to a warehouse backend. Identifiers are processed
// strictly in sequence; every failure is scoped to its item and the batch
// always runs to completion.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fincore/warehouse/internal/edgar"
	"github.com/fincore/warehouse/internal/models"
	"github.com/fincore/warehouse/internal/store"
)

// Provider is the filings data source.
type Provider interface {
	LookupCIK(ctx context.Context, ticker string) (string, error)
	LatestAnnualFiling(ctx context.Context, cik string) (*edgar.Filing, error)
	FinancialSummary(ctx context.Context, cik, accession string) (*edgar.FinancialSummary, error)
}

// EventPublisher publishes one event per processed item. Publish failures
// are logged and never affect the batch.
type EventPublisher interface {
	PublishItem(ctx context.Context, backend string, item models.IngestItem) error
}

// Progress is called after each item, in order, with the running count.
type Progress func(done, total int, item models.IngestItem)

// Pipeline fetches filings and writes them to a warehouse backend.
type Pipeline struct {
	provider  Provider
	publisher EventPublisher
	progress  Progress
	now       func() time.Time
}

// New creates a pipeline over the given filings provider.
func New(provider Provider) *Pipeline {
	return &Pipeline{provider: provider, now: time.Now}
}

// SetPublisher attaches an optional per-item event publisher.
func (p *Pipeline) SetPublisher(publisher EventPublisher) { p.publisher = publisher }

// SetProgress attaches an optional per-item progress callback.
func (p *Pipeline) SetProgress(progress Progress) { p.progress = progress }

// Run ingests one filing per identifier into the given backend and returns
// a report of per-item outcomes. Per-item failures never abort the batch
// and are never returned as errors; Run only stops early when ctx is done.
func (p *Pipeline) Run(ctx context.Context, tickers []string, st store.Store) *models.IngestReport {
	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		Backend:   st.Name(),
		StartedAt: p.now(),
		Items:     []models.IngestItem{},
	}

	normalized := make([]string, 0, len(tickers))
	for _, raw := range tickers {
		if t := strings.ToUpper(strings.TrimSpace(raw)); t != "" {
			normalized = append(normalized, t)
		}
	}

	total := len(normalized)
	for i, ticker := range normalized {
		if ctx.Err() != nil {
			break
		}

		item := p.ingestOne(ctx, ticker, st)
		report.Add(item)

		logger := log.With().
			Str("run_id", report.RunID).
			Str("ticker", ticker).
			Str("backend", st.Name()).
			Logger()
		switch item.Status {
		case models.StatusIngested:
			logger.Info().Msg("filing ingested")
		case models.StatusSkipped:
			logger.Warn().Str("reason", item.Message).Msg("filing skipped")
		case models.StatusFailed:
			logger.Error().Str("reason", item.Message).Msg("filing failed")
		}

		if p.publisher != nil {
			if err := p.publisher.PublishItem(ctx, st.Name(), item); err != nil {
				logger.Warn().Err(err).Msg("failed to publish filing event")
			}
		}
		if p.progress != nil {
			p.progress(i+1, total, item)
		}
	}

	report.CompletedAt = p.now()
	return report
}

func (p *Pipeline) ingestOne(ctx context.Context, ticker string, st store.Store) models.IngestItem {
	item := models.IngestItem{Ticker: ticker}

	cik, err := p.provider.LookupCIK(ctx, ticker)
	if err != nil {
		item.Status = models.StatusFailed
		item.Message = err.Error()
		return item
	}

	filing, err := p.provider.LatestAnnualFiling(ctx, cik)
	if err != nil {
		if errors.Is(err, edgar.ErrNoFiling) {
			item.Status = models.StatusSkipped
			item.Message = "no 10-K filing found"
		} else {
			item.Status = models.StatusFailed
			item.Message = err.Error()
		}
		return item
	}

	summary, err := p.provider.FinancialSummary(ctx, cik, filing.AccessionNumber)
	if err != nil {
		item.Status = models.StatusFailed
		item.Message = err.Error()
		return item
	}

	record := models.FinancialRecord{
		Ticker:      ticker,
		Year:        p.now().Year(),
		Revenue:     summary.Revenue,
		NetIncome:   summary.NetIncome,
		Assets:      summary.Assets,
		Liabilities: summary.Liabilities,
		Equity:      summary.Equity,
	}
	record.AuditPass = record.Audit()

	if err := p.write(ctx, record, filing, st); err != nil {
		item.Status = models.StatusFailed
		item.Message = err.Error()
		return item
	}

	item.Status = models.StatusIngested
	item.Record = &record
	return item
}

// write upgrades to the document shape when the backend stores full filing
// documents; otherwise it writes the flat row.
func (p *Pipeline) write(ctx context.Context, record models.FinancialRecord, filing *edgar.Filing, st store.Store) error {
	if dw, ok := st.(store.DocumentWriter); ok {
		meta := models.FilingMetadata{
			CompanyName:     filing.CompanyName,
			CIK:             filing.CIK,
			AccessionNumber: filing.AccessionNumber,
			FilingDate:      filing.FilingDate,
		}
		doc := models.NewFilingDocument(record, meta, p.now())
		_, err := dw.WriteDocuments(ctx, []models.FilingDocument{doc})
		return err
	}
	_, err := st.Write(ctx, []models.FinancialRecord{record})
	return err
}
