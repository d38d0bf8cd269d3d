package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/fincore/warehouse/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the relational warehouse backend. Records are keyed by
// (ticker, year), so re-ingesting a ticker in a later year appends a new
// row and year-over-year history is preserved.
type SQLiteStore struct {
	conn *sql.DB
	// roConn is a second pool opened with query_only=1 so ad-hoc queries
	// cannot mutate the table even if the allow-list check is bypassed.
	roConn *sql.DB
	path   string
}

// OpenSQLite opens (creating if necessary) the warehouse database at path
// and applies schema migrations idempotently.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	roConn, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open read-only connection: %w", err)
	}

	return &SQLiteStore{conn: conn, roConn: roConn, path: path}, nil
}

func runMigrations(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Name identifies the backend.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Write upserts records keyed by (ticker, year) and returns the number
// written.
func (s *SQLiteStore) Write(ctx context.Context, records []models.FinancialRecord) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO financials (ticker, year, revenue, net_income, assets, liabilities, equity, audit_pass)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, year) DO UPDATE SET
			revenue = excluded.revenue,
			net_income = excluded.net_income,
			assets = excluded.assets,
			liabilities = excluded.liabilities,
			equity = excluded.equity,
			audit_pass = excluded.audit_pass
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Ticker, r.Year, r.Revenue, r.NetIncome, r.Assets, r.Liabilities, r.Equity, boolToInt(r.AuditPass),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert record for %s: %w", r.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(records), nil
}

// ReadAll returns every stored row ordered by ticker then year.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]models.FinancialRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT ticker, year, revenue, net_income, assets, liabilities, equity, audit_pass
		FROM financials
		ORDER BY ticker ASC, year ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read financials: %w", err)
	}
	defer rows.Close()

	var records []models.FinancialRecord
	for rows.Next() {
		var r models.FinancialRecord
		var auditPass int
		err := rows.Scan(&r.Ticker, &r.Year, &r.Revenue, &r.NetIncome, &r.Assets, &r.Liabilities, &r.Equity, &auditPass)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial record: %w", err)
		}
		r.AuditPass = auditPass != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM financials`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count financials: %w", err)
	}
	return count, nil
}

// Close releases both connection pools.
func (s *SQLiteStore) Close(ctx context.Context) error {
	if err := s.roConn.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to close read-only connection: %w", err)
	}
	return s.conn.Close()
}

// QueryResult is the column-ordered result of an ad-hoc query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Query runs an arbitrary read-only statement against the warehouse table.
// Non-read statements are rejected before execution, and the statement runs
// on the query_only connection, so query errors are reported without ever
// touching stored state.
func (s *SQLiteStore) Query(ctx context.Context, query string) (*QueryResult, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := s.roConn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan query result: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// checkReadOnly rejects anything that is not a single SELECT statement.
// The query_only pragma is the backstop; this gives callers a clear error
// instead of a pragma violation from deep inside the engine.
func checkReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}
	if i := bareSemicolon(trimmed); i >= 0 && strings.TrimSpace(trimmed[i+1:]) != "" {
		return fmt.Errorf("only a single statement is allowed")
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only read-only SELECT statements are allowed")
	}
	return nil
}

// bareSemicolon returns the index of the first semicolon outside quoted
// string or identifier literals, or -1. A doubled quote inside a literal is
// the literal's escape form, not its end.
func bareSemicolon(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return i
		}
	}
	return -1
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
