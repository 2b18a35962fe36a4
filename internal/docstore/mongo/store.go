// Package mongo implements docstore.Store on MongoDB. Every collection of the
// configured database is treated as a backing collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"vapi/internal/docstore"
	"vapi/pkg/logging"
)

// MongoDB server error codes the store reacts to.
const (
	codeNamespaceNotFound = 26
	codeNamespaceExists   = 48
)

const mongoIDField = "_id"

// Store is a docstore.Store backed by one MongoDB database.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

var _ docstore.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and returns a store using database.
// timeout bounds every individual operation, including the initial ping.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetServerSelectionTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docstore.ErrStorageUnavailable, err)
	}

	s := &Store{client: client, db: client.Database(database), timeout: timeout}

	pingCtx, cancel := s.opContext(ctx)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", docstore.ErrStorageUnavailable, err)
	}

	logging.Info("MongoStore", "Connected to database %s", database)
	return s, nil
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver errors onto the docstore taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeNamespaceNotFound:
			return fmt.Errorf("%s: %w", op, docstore.ErrNamespaceNotFound)
		case codeNamespaceExists:
			return fmt.Errorf("%s: %w", op, docstore.ErrNamespaceExists)
		}
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, docstore.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classify("list collections", err)
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *Store) EnsureCollection(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.db.CreateCollection(ctx, name)
	if err == nil {
		return true, nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return false, nil
	}
	return false, classify("create collection "+name, err)
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify("drop collection "+name, s.db.Collection(name).Drop(ctx))
}

func (s *Store) RenameCollection(ctx context.Context, from, to string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	dbName := s.db.Name()
	cmd := bson.D{
		{Key: "renameCollection", Value: dbName + "." + from},
		{Key: "to", Value: dbName + "." + to},
	}
	err := s.client.Database("admin").RunCommand(ctx, cmd).Err()
	return classify(fmt.Sprintf("rename collection %s to %s", from, to), err)
}

func (s *Store) MergeCollection(ctx context.Context, from, to string) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	op := fmt.Sprintf("merge collection %s into %s", from, to)
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: from}})
	if err != nil {
		return 0, classify(op, err)
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("%s: %w", op, docstore.ErrNamespaceNotFound)
	}

	src := s.db.Collection(from)
	n, err := src.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, classify(op, err)
	}

	pipeline := mongo.Pipeline{bson.D{{Key: "$merge", Value: bson.D{
		{Key: "into", Value: to},
		{Key: "on", Value: mongoIDField},
		{Key: "whenMatched", Value: "keepExisting"},
		{Key: "whenNotMatched", Value: "insert"},
	}}}}
	cur, err := src.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, classify(op, err)
	}
	if err := cur.Close(ctx); err != nil {
		return 0, classify(op, err)
	}

	if err := src.Drop(ctx); err != nil {
		return 0, classify(op, err)
	}
	return int(n), nil
}

func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]docstore.Document, error) {
	query, ok := toQuery(filter)
	if !ok {
		return []docstore.Document{}, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := s.db.Collection(collection).Find(ctx, query)
	if err != nil {
		return nil, classify("find in "+collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, classify("read from "+collection, err)
	}

	out := make([]docstore.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, fromBSON(m))
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (docstore.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var m bson.M
	err = s.db.Collection(collection).FindOne(ctx, bson.M{mongoIDField: oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find in "+collection, err)
	}
	return fromBSON(m), nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc docstore.Document) (docstore.Document, error) {
	oid := primitive.NewObjectID()
	record := toBSON(docstore.WithoutID(doc))
	record[mongoIDField] = oid

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.Collection(collection).InsertOne(ctx, record); err != nil {
		return nil, classify("insert into "+collection, err)
	}

	return storedDocument(doc, oid.Hex()), nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document) (docstore.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{mongoIDField: oid}, toBSON(docstore.WithoutID(doc)))
	if err != nil {
		return nil, classify("replace in "+collection, err)
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}

	return storedDocument(doc, id), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{mongoIDField: oid})
	if err != nil {
		return false, classify("delete from "+collection, err)
	}
	return res.DeletedCount > 0, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
