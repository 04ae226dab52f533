package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// mongoRecord adds a sequence number so Load can return stored order.
type mongoRecord struct {
	Seq   int    `bson:"seq"`
	Title string `bson:"title"`
	Link  string `bson:"link,omitempty"`
	Label string `bson:"label,omitempty"`
}

// MongoStorage keeps records in a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	uri        string
	logger     *slog.Logger
}

// NewMongoStorage creates a new MongoDB storage backend.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	if database == "" {
		database = "newssort"
	}
	if collection == "" {
		collection = "records"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		uri:        database + "." + collection,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Load(ctx context.Context) ([]types.Record, error) {
	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, s.wrap(fmt.Errorf("find: %w", err))
	}
	defer cur.Close(ctx)

	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.wrap(fmt.Errorf("decode: %w", err))
	}

	records := make([]types.Record, len(docs))
	for i, d := range docs {
		records[i] = types.Record{Title: d.Title, Link: d.Link, Label: d.Label}
	}
	s.logger.Debug("records loaded", "collection", s.uri, "records", len(records))
	return records, nil
}

// Save replaces the collection contents.
func (s *MongoStorage) Save(ctx context.Context, records []types.Record) error {
	if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
		return s.wrap(fmt.Errorf("clear: %w", err))
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = mongoRecord{Seq: i, Title: r.Title, Link: r.Link, Label: r.Label}
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return s.wrap(fmt.Errorf("insert: %w", err))
	}

	s.logger.Info("records stored in mongodb", "collection", s.uri, "records", len(records))
	return nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStorage) wrap(err error) error {
	return &types.StorageError{Backend: s.Name(), Location: s.uri, Err: err}
}

// --- Multi-Storage Fan-Out ---

// MultiStorage reads from the primary backend and writes to all of them.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage whose first backend is the primary.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Load(ctx context.Context) ([]types.Record, error) {
	if len(s.backends) == 0 {
		return nil, &types.StorageError{Backend: s.Name(), Err: types.ErrEmptyDataset}
	}
	return s.backends[0].Load(ctx)
}

// Save writes to every backend. A primary failure is returned; mirror
// failures are logged.
func (s *MultiStorage) Save(ctx context.Context, records []types.Record) error {
	for i, backend := range s.backends {
		if err := backend.Save(ctx, records); err != nil {
			if i == 0 {
				return err
			}
			s.logger.Error("mirror save failed", "backend", backend.Name(), "error", err)
		}
	}
	return nil
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
