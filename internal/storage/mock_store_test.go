// -------------------------------------------------------------------------------
// Mock Store - Test Double for the Record Store
//
// Project: KCloud / Author: Alex Freidah
//
// Function-field mock for SongStore, sharing the call-recording convention
// with the backend mock.
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockStore struct {
	FindFunc              func(ctx context.Context, filter bson.M, projection bson.D) ([]Song, error)
	FindByIDFunc          func(ctx context.Context, id primitive.ObjectID, projection bson.D) (*Song, error)
	InsertFunc            func(ctx context.Context, song *Song) (primitive.ObjectID, error)
	FindByIDAndUpdateFunc func(ctx context.Context, id primitive.ObjectID, update bson.M, projection bson.D) (*Song, error)
	FindByIDAndDeleteFunc func(ctx context.Context, id primitive.ObjectID) (*Song, error)
	PingFunc              func(ctx context.Context) error

	calls []string
}

var _ SongStore = (*mockStore)(nil)

func (m *mockStore) record(op string) {
	m.calls = append(m.calls, op)
}

func (m *mockStore) Find(ctx context.Context, filter bson.M, projection bson.D) ([]Song, error) {
	m.record("Find")
	if m.FindFunc == nil {
		return nil, fmt.Errorf("unexpected Find call")
	}
	return m.FindFunc(ctx, filter, projection)
}

func (m *mockStore) FindByID(ctx context.Context, id primitive.ObjectID, projection bson.D) (*Song, error) {
	m.record("FindByID")
	if m.FindByIDFunc == nil {
		return nil, fmt.Errorf("unexpected FindByID call for %s", id.Hex())
	}
	return m.FindByIDFunc(ctx, id, projection)
}

func (m *mockStore) Insert(ctx context.Context, song *Song) (primitive.ObjectID, error) {
	m.record("Insert")
	if m.InsertFunc == nil {
		return primitive.NilObjectID, fmt.Errorf("unexpected Insert call")
	}
	return m.InsertFunc(ctx, song)
}

func (m *mockStore) FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M, projection bson.D) (*Song, error) {
	m.record("FindByIDAndUpdate")
	if m.FindByIDAndUpdateFunc == nil {
		return nil, fmt.Errorf("unexpected FindByIDAndUpdate call for %s", id.Hex())
	}
	return m.FindByIDAndUpdateFunc(ctx, id, update, projection)
}

func (m *mockStore) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*Song, error) {
	m.record("FindByIDAndDelete")
	if m.FindByIDAndDeleteFunc == nil {
		return nil, fmt.Errorf("unexpected FindByIDAndDelete call for %s", id.Hex())
	}
	return m.FindByIDAndDeleteFunc(ctx, id)
}

func (m *mockStore) Ping(ctx context.Context) error {
	m.record("Ping")
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}
