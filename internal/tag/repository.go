package tag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "kosh/pkg/errors"
)

type Repository interface {
	Insert(ctx context.Context, t *Tag) error
	InsertMany(ctx context.Context, tags []Tag) error
	Update(ctx context.Context, t *Tag) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Tag, error)
	List(ctx context.Context) ([]Tag, error)
	ListByType(ctx context.Context, tagType Type) ([]Tag, error)
	Search(ctx context.Context, query string, tagType Type) ([]Tag, error)
	CountByType(ctx context.Context, tagType Type) (int64, error)
	CountDefaults(ctx context.Context) (int64, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection("tags"),
	}
}

func (r *MongoDBRepository) Insert(ctx context.Context, t *Tag) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithDetail("message", fmt.Sprintf("tag '%s' of type '%s' already exists", t.Name, t.Type))
		}
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) InsertMany(ctx context.Context, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, len(tags))
	for i := range tags {
		if tags[i].ID == "" {
			tags[i].ID = uuid.New().String()
		}
		tags[i].CreatedAt = now
		tags[i].UpdatedAt = now
		docs[i] = tags[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert tags: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) Update(ctx context.Context, t *Tag) error {
	t.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithDetail("message", fmt.Sprintf("tag '%s' of type '%s' already exists", t.Name, t.Type))
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}
	if res.MatchedCount == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", t.ID)
	}

	return nil
}

func (r *MongoDBRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if res.DeletedCount == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}

func (r *MongoDBRepository) GetByID(ctx context.Context, id string) (*Tag, error) {
	var t Tag
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

func (r *MongoDBRepository) List(ctx context.Context) ([]Tag, error) {
	opts := options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "name", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *MongoDBRepository) ListByType(ctx context.Context, tagType Type) ([]Tag, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.find(ctx, bson.M{"type": tagType}, opts)
}

func (r *MongoDBRepository) Search(ctx context.Context, query string, tagType Type) ([]Tag, error) {
	filter := bson.M{
		"name": bson.M{"$regex": query, "$options": "i"},
		"type": tagType,
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *MongoDBRepository) CountByType(ctx context.Context, tagType Type) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"type": tagType})
	if err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return count, nil
}

func (r *MongoDBRepository) CountDefaults(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"is_default": true})
	if err != nil {
		return 0, fmt.Errorf("failed to count default tags: %w", err)
	}
	return count, nil
}

func (r *MongoDBRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Tag, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}
