package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"filtersync/internal/etl"
)

// ── Storage Writer ─────────────────────────────────────────
// One MongoDB collection per endpoint, named <endpoint>_raw.
// Collections are append-only: every run inserts a fresh batch, no
// upsert or dedup keying.

// Store holds the single MongoDB connection for a run.
type Store struct {
	client *mongo.Client
	dbName string
}

// Open connects to MongoDB and verifies the server is reachable.
// Callers treat a failure here as fatal — nothing is fetched before
// the store is known to be live.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Printf("[MONGO] connected, database %q", dbName)
	return &Store{client: client, dbName: dbName}, nil
}

// Write inserts each document into the endpoint's collection. Documents
// are inserted independently: a single failed insert is logged and
// skipped, the rest of the batch still goes in. Returns the number of
// documents stored.
func (s *Store) Write(ctx context.Context, endpoint string, docs []etl.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	coll := s.client.Database(s.dbName).Collection(CollectionName(endpoint))

	stored := 0
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return stored, ctx.Err()
		default:
		}

		if _, err := coll.InsertOne(ctx, doc); err != nil {
			log.Printf("[MONGO] insert %d/%d into %s failed, skipping: %v",
				i+1, len(docs), coll.Name(), err)
			continue
		}
		stored++
	}

	log.Printf("[MONGO] inserted %d/%d documents into %s", stored, len(docs), coll.Name())
	return stored, nil
}

// CollectionName maps an endpoint path to its collection:
// "/languages" → "languages_raw", nested slashes become underscores,
// and the bare root maps to "root_raw".
func CollectionName(endpoint string) string {
	name := strings.ReplaceAll(strings.Trim(endpoint, "/"), "/", "_")
	if name == "" {
		name = "root"
	}
	return name + "_raw"
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
