package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fincore/warehouse/internal/config"
	"github.com/fincore/warehouse/internal/models"
)

// MongoStore is the document warehouse backend. Documents are upserted by
// ticker only, so re-ingesting a ticker overwrites the previous filing and
// year-over-year history is not kept. This asymmetry with the relational
// backend is intentional; the flat row shape returned by ReadAll is still
// identical.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	port   int
}

// OpenMongo tries each candidate port in order with a bounded timeout and
// connects to the first one that answers a ping. When none respond it
// returns ErrUnavailable so the caller can degrade to relational-only mode.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	for _, port := range cfg.Ports {
		uri := fmt.Sprintf("mongodb://%s:%d/", cfg.Host, port)
		opts := options.Client().
			ApplyURI(uri).
			SetServerSelectionTimeout(cfg.Timeout).
			SetConnectTimeout(cfg.Timeout)

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if err != nil {
			_ = client.Disconnect(context.Background())
			continue
		}

		return &MongoStore{
			client: client,
			coll:   client.Database(cfg.Database).Collection(cfg.Collection),
			port:   port,
		}, nil
	}
	return nil, fmt.Errorf("no document store on ports %v: %w", cfg.Ports, ErrUnavailable)
}

// NewMongoStore wraps an existing client, for tests that provision their
// own server.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// Name identifies the backend.
func (s *MongoStore) Name() string { return "mongo" }

// Port reports which candidate port answered.
func (s *MongoStore) Port() int { return s.port }

// Write upserts records keyed by ticker. Records carry no filing metadata,
// so the nested metadata sub-document is left empty; the ingestion pipeline
// uses WriteDocuments instead when it has the full filing context.
func (s *MongoStore) Write(ctx context.Context, records []models.FinancialRecord) (int, error) {
	docs := make([]models.FilingDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, models.NewFilingDocument(r, models.FilingMetadata{}, time.Now()))
	}
	return s.WriteDocuments(ctx, docs)
}

// WriteDocuments upserts full filing documents keyed by ticker.
func (s *MongoStore) WriteDocuments(ctx context.Context, docs []models.FilingDocument) (int, error) {
	written := 0
	for _, doc := range docs {
		filter := bson.D{{Key: "ticker", Value: doc.Ticker}}
		update := bson.D{{Key: "$set", Value: doc}}
		_, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			return written, fmt.Errorf("failed to upsert filing for %s: %w", doc.Ticker, err)
		}
		written++
	}
	return written, nil
}

// ReadAll flattens every stored document back into the flat row shape,
// synthesizing equity as assets - liabilities.
func (s *MongoStore) ReadAll(ctx context.Context) ([]models.FinancialRecord, error) {
	cursor, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "ticker", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to read filings: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.FinancialRecord
	for cursor.Next(ctx) {
		var doc models.FilingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode filing document: %w", err)
		}
		records = append(records, doc.Flatten())
	}
	return records, cursor.Err()
}

// Count returns the number of stored documents.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count filings: %w", err)
	}
	return count, nil
}

// Document returns the raw nested document for one ticker, for the
// document-viewer endpoint.
func (s *MongoStore) Document(ctx context.Context, ticker string) (*models.FilingDocument, error) {
	var doc models.FilingDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "ticker", Value: ticker}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("no filing document for %s", ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read filing document: %w", err)
	}
	return &doc, nil
}

// Close disconnects from the server.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
