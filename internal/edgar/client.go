// Package edgar fetches company filings from the SEC EDGAR APIs.
// API documentation: https://www.sec.gov/developer
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fincore/warehouse/internal/config"
)

// ErrNoFiling is returned when a company has no annual filing on record.
// The ingestion pipeline treats it as a per-item skip, not a failure.
var ErrNoFiling = errors.New("edgar: no annual filing found")

// Cache stores small lookup results (ticker to CIK mappings, extracted
// financial summaries) between runs. Implementations must be safe to skip:
// a miss just means a live fetch.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Filing identifies one annual filing and the company that made it.
type Filing struct {
	CompanyName     string    `json:"company_name"`
	CIK             string    `json:"cik"`
	AccessionNumber string    `json:"accession_number"`
	FormType        string    `json:"form_type"`
	FilingDate      time.Time `json:"filing_date"`
}

// FinancialSummary holds the figures extracted from a filing's XBRL facts.
type FinancialSummary struct {
	Revenue     float64 `json:"revenue"`
	NetIncome   float64 `json:"net_income"`
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
	Equity      float64 `json:"equity"`
}

// Client talks to the SEC EDGAR submissions and XBRL APIs. The SEC requires
// a User-Agent identifying the caller on every request.
type Client struct {
	httpClient *http.Client
	userAgent  string
	dataURL    string // data.sec.gov
	filesURL   string // www.sec.gov
	cache      Cache
}

// NewClient creates an EDGAR client with a bounded request timeout.
func NewClient(cfg config.EdgarConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		dataURL:    "https://data.sec.gov",
		filesURL:   "https://www.sec.gov",
	}
}

// SetCache attaches an optional lookup cache.
func (c *Client) SetCache(cache Cache) { c.cache = cache }

// LookupCIK resolves a ticker symbol to its zero-padded 10-digit CIK using
// the SEC's company_tickers.json mapping.
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	cacheKey := "cik:" + ticker
	if c.cache != nil {
		if cik, ok := c.cache.Get(ctx, cacheKey); ok {
			return cik, nil
		}
	}

	body, err := c.get(ctx, c.filesURL+"/files/company_tickers.json")
	if err != nil {
		return "", fmt.Errorf("failed to fetch ticker mapping: %w", err)
	}

	// Response shape: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "..."}, ...}
	var mapping map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &mapping); err != nil {
		return "", fmt.Errorf("failed to parse ticker mapping: %w", err)
	}

	for _, entry := range mapping {
		if entry.Ticker == ticker {
			cik := fmt.Sprintf("%010d", entry.CIK)
			if c.cache != nil {
				c.cache.Set(ctx, cacheKey, cik)
			}
			return cik, nil
		}
	}
	return "", fmt.Errorf("ticker %s not found in SEC database", ticker)
}

// submissions is the company submissions response. Recent filings come as
// parallel arrays.
type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
		} `json:"recent"`
	} `json:"filings"`
}

// LatestAnnualFiling returns the most recent 10-K for the given CIK.
// Amendments ("10-K/A") are excluded by the exact form match. Returns
// ErrNoFiling when the company has no 10-K on record.
func (c *Client) LatestAnnualFiling(ctx context.Context, cik string) (*Filing, error) {
	cik = fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))

	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	var subs submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions: %w", err)
	}

	recent := subs.Filings.Recent
	// The parallel arrays must line up; a truncated response must surface
	// as a parse error, never an out-of-range panic.
	if len(recent.Form) != len(recent.AccessionNumber) || len(recent.FilingDate) != len(recent.AccessionNumber) {
		return nil, fmt.Errorf("malformed submissions response for CIK %s: %d accession numbers, %d forms, %d filing dates",
			cik, len(recent.AccessionNumber), len(recent.Form), len(recent.FilingDate))
	}
	for i := range recent.AccessionNumber {
		if recent.Form[i] != "10-K" {
			continue
		}
		filingDate, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			return nil, fmt.Errorf("malformed filing date %q for CIK %s: %w", recent.FilingDate[i], cik, err)
		}
		return &Filing{
			CompanyName:     subs.Name,
			CIK:             cik,
			AccessionNumber: recent.AccessionNumber[i],
			FormType:        recent.Form[i],
			FilingDate:      filingDate,
		}, nil
	}
	return nil, ErrNoFiling
}

// XBRL concept fallback chains. Filers tag revenue and equity under several
// us-gaap concepts depending on the fiscal year and standard applied.
var (
	revenueConcepts = []string{
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"SalesRevenueNet",
	}
	netIncomeConcepts   = []string{"NetIncomeLoss"}
	assetsConcepts      = []string{"Assets"}
	liabilitiesConcepts = []string{"Liabilities"}
	equityConcepts = []string{
		"StockholdersEquity",
		"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest",
	}
)

type companyFacts struct {
	Facts map[string]map[string]struct {
		Units map[string][]factEntry `json:"units"`
	} `json:"facts"`
}

type factEntry struct {
	End   string  `json:"end"`
	Value float64 `json:"val"`
	Accn  string  `json:"accn"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
}

// FinancialSummary extracts revenue, net income, assets, liabilities and
// equity for the given filing from the company's XBRL facts. When only one
// of liabilities/equity is tagged, the other is derived from the accounting
// identity.
func (c *Client) FinancialSummary(ctx context.Context, cik, accession string) (*FinancialSummary, error) {
	cik = fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))

	cacheKey := "facts:" + cik + ":" + accession
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			var summary FinancialSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataURL, cik))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company facts: %w", err)
	}

	var facts companyFacts
	if err := json.Unmarshal(body, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse company facts: %w", err)
	}
	gaap := facts.Facts["us-gaap"]
	if gaap == nil {
		return nil, fmt.Errorf("no us-gaap facts for CIK %s", cik)
	}

	pick := func(concepts []string) (float64, bool) {
		for _, name := range concepts {
			concept, ok := gaap[name]
			if !ok {
				continue
			}
			if v, ok := pickFact(concept.Units["USD"], accession); ok {
				return v, true
			}
		}
		return 0, false
	}

	var summary FinancialSummary
	var ok bool
	if summary.Revenue, ok = pick(revenueConcepts); !ok {
		return nil, fmt.Errorf("no revenue fact for CIK %s", cik)
	}
	if summary.NetIncome, ok = pick(netIncomeConcepts); !ok {
		return nil, fmt.Errorf("no net income fact for CIK %s", cik)
	}
	if summary.Assets, ok = pick(assetsConcepts); !ok {
		return nil, fmt.Errorf("no assets fact for CIK %s", cik)
	}

	liabilities, haveLiabilities := pick(liabilitiesConcepts)
	equity, haveEquity := pick(equityConcepts)
	switch {
	case haveLiabilities && haveEquity:
		summary.Liabilities, summary.Equity = liabilities, equity
	case haveLiabilities:
		summary.Liabilities = liabilities
		summary.Equity = summary.Assets - liabilities
	case haveEquity:
		summary.Equity = equity
		summary.Liabilities = summary.Assets - equity
	default:
		return nil, fmt.Errorf("no liabilities or equity fact for CIK %s", cik)
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(summary); err == nil {
			c.cache.Set(ctx, cacheKey, string(encoded))
		}
	}
	return &summary, nil
}

// pickFact chooses the annual fact for the selected filing: the entry filed
// under the given accession number when present, otherwise the latest
// full-year 10-K entry.
func pickFact(entries []factEntry, accession string) (float64, bool) {
	var best *factEntry
	for i := range entries {
		e := &entries[i]
		if e.Form != "10-K" || e.FP != "FY" {
			continue
		}
		if e.Accn == accession {
			return e.Value, true
		}
		if best == nil || e.End > best.End {
			best = e
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Value, true
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
