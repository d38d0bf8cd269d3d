package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fincore/warehouse/internal/api"
	"github.com/fincore/warehouse/internal/cache"
	"github.com/fincore/warehouse/internal/config"
	"github.com/fincore/warehouse/internal/edgar"
	"github.com/fincore/warehouse/internal/ingest"
	"github.com/fincore/warehouse/internal/kafka"
	"github.com/fincore/warehouse/internal/store"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	sqliteStore, err := store.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLite.Path).Msg("failed to open relational warehouse")
	}
	log.Info().Str("path", cfg.SQLite.Path).Msg("relational warehouse ready")

	mongoStore, err := store.OpenMongo(context.Background(), cfg.Mongo)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			log.Warn().Ints("ports", cfg.Mongo.Ports).Msg("document store unavailable, running in relational-only mode")
		} else {
			log.Warn().Err(err).Msg("document store connection failed, running in relational-only mode")
		}
		mongoStore = nil
	} else {
		log.Info().Int("port", mongoStore.Port()).Msg("document warehouse ready")
	}

	edgarClient := edgar.NewClient(cfg.Edgar)

	var lookupCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		lookupCache = cache.NewRedis(cfg.Redis)
		edgarClient.SetCache(lookupCache)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("lookup cache enabled")
	}

	pipeline := ingest.New(edgarClient)

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		pipeline.SetPublisher(producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("event publishing enabled")
	}

	handler := api.NewHandler(sqliteStore, mongoStore, pipeline)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // ingestion batches are slow by design
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}
	if lookupCache != nil {
		if err := lookupCache.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close lookup cache")
		}
	}
	if mongoStore != nil {
		if err := mongoStore.Close(ctx); err != nil {
			log.Error().Err(err).Msg("failed to close document warehouse")
		}
	}
	if err := sqliteStore.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to close relational warehouse")
	}
}
