package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InboxRepository stores every inbound message so scans can replay history.
type InboxRepository interface {
	Store(ctx context.Context, msg *RawMessage) error
	ListSince(ctx context.Context, cutoff int64) ([]RawMessage, error)
	CountSince(ctx context.Context, cutoff int64) (int64, error)
}

type MongoDBInboxRepository struct {
	collection *mongo.Collection
}

func NewInboxRepository(db *mongo.Database) InboxRepository {
	return &MongoDBInboxRepository{
		collection: db.Collection("sms_inbox"),
	}
}

func (r *MongoDBInboxRepository) Store(ctx context.Context, msg *RawMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to store inbox message: %w", err)
	}
	return nil
}

func (r *MongoDBInboxRepository) ListSince(ctx context.Context, cutoff int64) ([]RawMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"timestamp": bson.M{"$gte": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []RawMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode inbox messages: %w", err)
	}
	return messages, nil
}

func (r *MongoDBInboxRepository) CountSince(ctx context.Context, cutoff int64) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"timestamp": bson.M{"$gte": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to count inbox messages: %w", err)
	}
	return count, nil
}
