// -------------------------------------------------------------------------------
// Store - MongoDB Song Record Store
//
// Project: KCloud / Author: Alex Freidah
//
// Record store adapter for song metadata, built on the official MongoDB
// driver. Update and delete operations return the affected document so the
// lifecycle manager can reference its blob keys after the record change.
// Driver errors are classified into the fault taxonomy here; a missing
// document is ResourceNotFound, everything else is a connection-class fault
// that feeds the circuit breaker.
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// CollectionSongs is the metadata collection name.
const CollectionSongs = "songs"

// -------------------------------------------------------------------------
// INTERFACE
// -------------------------------------------------------------------------

// SongStore defines the record store operations for song metadata. A nil
// projection returns full documents. FindByIDAndUpdate returns the document
// as it stands after the update; FindByIDAndDelete returns it as it stood
// before removal.
type SongStore interface {
	Find(ctx context.Context, filter bson.M, projection bson.D) ([]Song, error)
	FindByID(ctx context.Context, id primitive.ObjectID, projection bson.D) (*Song, error)
	Insert(ctx context.Context, song *Song) (primitive.ObjectID, error)
	FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M, projection bson.D) (*Song, error)
	FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*Song, error)
	Ping(ctx context.Context) error
}

// -------------------------------------------------------------------------
// MONGO IMPLEMENTATION
// -------------------------------------------------------------------------

// MongoStore implements SongStore on a mongo collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ SongStore = (*MongoStore)(nil)

// NewMongoStore connects to the database and verifies the connection with a
// bounded ping before returning.
func NewMongoStore(ctx context.Context, uri, database string, connectTimeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, faults.Wrap(faults.DBConnection, err, "error connecting to the database")
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, faults.Wrap(faults.DBConnection, err, "error connecting to the database")
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(CollectionSongs),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database reachability.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return faults.Wrap(faults.DBConnection, err, "error connecting to the database")
	}
	return nil
}

// -------------------------------------------------------------------------
// OPERATIONS
// -------------------------------------------------------------------------

// Find returns all documents matching the filter, optionally projected.
func (s *MongoStore) Find(ctx context.Context, filter bson.M, projection bson.D) ([]Song, error) {
	const operation = "Find"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Store "+operation)
	defer span.End()

	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.recordOperation(operation, start, err)
		return nil, classifyStoreError(err, operation, span)
	}

	songs := []Song{}
	err = cursor.All(ctx, &songs)
	s.recordOperation(operation, start, err)
	if err != nil {
		return nil, classifyStoreError(err, operation, span)
	}
	return songs, nil
}

// FindByID returns a single document or a ResourceNotFound fault.
func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID, projection bson.D) (*Song, error) {
	const operation = "FindByID"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Store "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var song Song
	err := s.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&song)
	s.recordOperation(operation, start, err)
	if err != nil {
		return nil, classifyStoreError(err, operation, span)
	}
	return &song, nil
}

// Insert stores a new document, stamping createdAt and updatedAt.
func (s *MongoStore) Insert(ctx context.Context, song *Song) (primitive.ObjectID, error) {
	const operation = "Insert"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Store "+operation)
	defer span.End()

	now := time.Now().UTC()
	song.CreatedAt = now
	song.UpdatedAt = now
	if song.ID.IsZero() {
		song.ID = primitive.NewObjectID()
	}

	_, err := s.collection.InsertOne(ctx, song)
	s.recordOperation(operation, start, err)
	if err != nil {
		return primitive.NilObjectID, classifyStoreError(err, operation, span)
	}

	span.SetAttributes(telemetry.AttrSongID.String(song.ID.Hex()))
	return song.ID, nil
}

// FindByIDAndUpdate applies $set fields and returns the post-update document.
// The updatedAt stamp is refreshed on every call.
func (s *MongoStore) FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M, projection bson.D) (*Song, error) {
	const operation = "FindByIDAndUpdate"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Store "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	if update == nil {
		update = bson.M{}
	}
	update["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if projection != nil {
		opts.SetProjection(projection)
	}

	var song Song
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		opts,
	).Decode(&song)
	s.recordOperation(operation, start, err)
	if err != nil {
		return nil, classifyStoreError(err, operation, span)
	}
	return &song, nil
}

// FindByIDAndDelete removes a document and returns it as it stood, so the
// caller can clean up the blobs it referenced.
func (s *MongoStore) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*Song, error) {
	const operation = "FindByIDAndDelete"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Store "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	var song Song
	err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&song)
	s.recordOperation(operation, start, err)
	if err != nil {
		return nil, classifyStoreError(err, operation, span)
	}
	return &song, nil
}

// -------------------------------------------------------------------------
// ERROR CLASSIFICATION / METRICS
// -------------------------------------------------------------------------

// classifyStoreError maps driver errors into fault kinds. Only ErrNoDocuments
// becomes ResourceNotFound; everything else is treated as a connection-class
// failure so the circuit breaker can react to it.
func classifyStoreError(err error, action string, span interface{ SetStatus(codes.Code, string) }) error {
	var f *faults.Fault
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		f = faults.New(faults.ResourceNotFound, "the resource could not be found").During(action)
	case errors.Is(err, context.DeadlineExceeded):
		f = faults.Wrap(faults.Timeout, err, "database takes too long to respond").During(action)
	default:
		f = faults.Wrap(faults.DBConnection, err, "error accessing the database").During(action)
	}
	span.SetStatus(codes.Error, f.Error())
	return f
}

func (s *MongoStore) recordOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	telemetry.StoreRequestsTotal.WithLabelValues(operation, status).Inc()
	telemetry.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
