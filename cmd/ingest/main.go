// Command ingest runs one ingestion batch from the command line with a
// deterministic per-item progress line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fincore/warehouse/internal/cache"
	"github.com/fincore/warehouse/internal/config"
	"github.com/fincore/warehouse/internal/edgar"
	"github.com/fincore/warehouse/internal/ingest"
	"github.com/fincore/warehouse/internal/kafka"
	"github.com/fincore/warehouse/internal/models"
	"github.com/fincore/warehouse/internal/store"
)

func main() {
	tickersFlag := flag.String("tickers", "", "comma-separated ticker symbols (required)")
	backendFlag := flag.String("backend", "sqlite", "warehouse backend: sqlite or mongo")
	flag.Parse()

	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	tickers := strings.Split(*tickersFlag, ",")
	if strings.TrimSpace(*tickersFlag) == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -tickers AAPL,MSFT [-backend sqlite|mongo]")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	var st store.Store
	switch *backendFlag {
	case "sqlite":
		sqliteStore, err := store.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open relational warehouse")
		}
		st = sqliteStore
	case "mongo", "mongodb":
		mongoStore, err := store.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			log.Fatal().Err(err).Msg("document store unavailable")
		}
		st = mongoStore
	default:
		log.Fatal().Str("backend", *backendFlag).Msg("unknown backend")
	}
	defer st.Close(ctx)

	edgarClient := edgar.NewClient(cfg.Edgar)
	if cfg.Redis.Addr != "" {
		lookupCache := cache.NewRedis(cfg.Redis)
		defer lookupCache.Close()
		edgarClient.SetCache(lookupCache)
	}

	pipeline := ingest.New(edgarClient)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		pipeline.SetPublisher(producer)
	}
	pipeline.SetProgress(func(done, total int, item models.IngestItem) {
		fmt.Printf("[%d/%d] %-6s %s", done, total, item.Ticker, item.Status)
		if item.Message != "" {
			fmt.Printf(" (%s)", item.Message)
		}
		fmt.Println()
	})

	report := pipeline.Run(ctx, tickers, st)
	fmt.Printf("run %s on %s: %d ingested, %d skipped, %d failed\n",
		report.RunID, report.Backend, report.Ingested, report.Skipped, report.Failed)
}
