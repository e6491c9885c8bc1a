package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	mongoDefaultDatabase = "telegram_db"
	// Kept apart from the legacy "logs" collection, whose documents use a
	// different field layout.
	mongoCollection      = "snapshots"
	mongoConnectTimeout  = 15 * time.Second
)

// mongoStore implements Store on a MongoDB collection.
type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoStore connects to MongoDB and ensures the (chat_id, message_id) index.
// The database is taken from the URI path, defaulting to "telegram_db".
func NewMongoStore(ctx context.Context, uri string, logger *slog.Logger) (Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store, err := newMongoStore(connectCtx, client, mongoDatabaseName(uri), logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// newMongoStore binds a connected client to the snapshot collection.
func newMongoStore(ctx context.Context, client *mongo.Client, dbName string, logger *slog.Logger) (*mongoStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	coll := client.Database(dbName).Collection(mongoCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "message_id", Value: 1}},
		Options: options.Index().SetName("idx_chat_message"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot index: %w", err)
	}

	log := logger.With("component", "store", "backend", "mongodb")
	log.Info("MongoDB connected", "database", dbName, "collection", mongoCollection)

	return &mongoStore{client: client, coll: coll, logger: log}, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) InsertSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	if snapshot.MediaKind == "" {
		snapshot.MediaKind = MediaNone
	}
	snapshot.CreatedAt = time.Now().UTC()

	if _, err := s.coll.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert snapshot (chat %d, message %d): %w", snapshot.ChatID, snapshot.MessageID, err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved", "chat_id", snapshot.ChatID, "message_id", snapshot.MessageID)
	return nil
}

func (s *mongoStore) FindSnapshot(ctx context.Context, chatID int64, messageID int) (*Snapshot, error) {
	filter := bson.D{{Key: "chat_id", Value: chatID}, {Key: "message_id", Value: messageID}}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var snapshot Snapshot
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&snapshot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find snapshot (chat %d, message %d): %w", chatID, messageID, err)
	}
	return &snapshot, nil
}

// RunMaintenance is a no-op: MongoDB compacts storage on its own.
func (s *mongoStore) RunMaintenance(ctx context.Context) error {
	s.logger.DebugContext(ctx, "No maintenance required for MongoDB backend")
	return nil
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongodb: %w", err)
	}
	return nil
}

// mongoDatabaseName returns the database named in the URI path, if any.
func mongoDatabaseName(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return mongoDefaultDatabase
	}
	return cs.Database
}
