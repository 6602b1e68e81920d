// Package mongostore implements automation.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowforge/pkg/automation"
	"github.com/matzehuels/flowforge/pkg/wire"
)

const collectionName = "automations"

// Store persists automations in a MongoDB collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New creates a Store on the given database, using the "automations"
// collection.
func New(db *mongo.Database) *Store {
	return &Store{
		coll: db.Collection(collectionName),
		now:  time.Now,
	}
}

// Connect dials MongoDB and returns a Store plus a disconnect function.
func Connect(ctx context.Context, uri, database string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return New(client.Database(database)), client.Disconnect, nil
}

// EnsureIndexes creates the unique name index. Name uniqueness is owned
// by the persistence service, not the editor.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Get retrieves an automation by ID.
func (s *Store) Get(ctx context.Context, id string) (*automation.Automation, error) {
	var a automation.Automation
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, automation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get automation %s: %w", id, err)
	}
	return &a, nil
}

// List returns all automations, most recently updated first.
func (s *Store) List(ctx context.Context) ([]automation.Automation, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list automations: %w", err)
	}
	defer cur.Close(ctx)

	var out []automation.Automation
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode automations: %w", err)
	}
	return out, nil
}

// Create stores a new automation with a fresh ID.
func (s *Store) Create(ctx context.Context, name string, flowData wire.Graph) (*automation.Automation, error) {
	now := s.now()
	a := automation.Automation{
		ID:        uuid.NewString(),
		Name:      name,
		FlowData:  flowData,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, a); err != nil {
		return nil, fmt.Errorf("create automation: %w", err)
	}
	return &a, nil
}

// Update applies a partial update to an existing automation.
func (s *Store) Update(ctx context.Context, id string, upd automation.Update) (*automation.Automation, error) {
	set := bson.M{"updatedAt": s.now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.FlowData != nil {
		set["flowData"] = *upd.FlowData
	}

	var a automation.Automation
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, automation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update automation %s: %w", id, err)
	}
	return &a, nil
}

// Delete removes an automation.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete automation %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return automation.ErrNotFound
	}
	return nil
}

// Ensure Store implements automation.Store.
var _ automation.Store = (*Store)(nil)
