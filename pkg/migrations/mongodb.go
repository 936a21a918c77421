package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes every collection needs. Safe to run on
// every startup; existing indexes are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensureTagIndexes(ctx, db); err != nil {
		return err
	}
	if err := ensureTransactionIndexes(ctx, db); err != nil {
		return err
	}
	if err := ensureInboxIndexes(ctx, db); err != nil {
		return err
	}
	return nil
}

func ensureTagIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetName("idx_tags_name_type").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_tags_type_name"),
		},
	}
	return createIndexes(ctx, db.Collection("tags"), indexes)
}

func ensureTransactionIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_transactions_date"),
		},
		{
			Keys:    bson.D{{Key: "direction", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_transactions_direction_date"),
		},
		{
			Keys:    bson.D{{Key: "category_id", Value: 1}},
			Options: options.Index().SetName("idx_transactions_category"),
		},
		{
			Keys:    bson.D{{Key: "payee_id", Value: 1}},
			Options: options.Index().SetName("idx_transactions_payee"),
		},
	}
	return createIndexes(ctx, db.Collection("transactions"), indexes)
}

func ensureInboxIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_sms_inbox_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "sender", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_sms_inbox_sender_timestamp"),
		},
	}
	return createIndexes(ctx, db.Collection("sms_inbox"), indexes)
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}
