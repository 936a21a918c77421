package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "kosh/pkg/errors"
)

type Repository interface {
	Insert(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	Count(ctx context.Context) (int64, error)
	TotalByDirection(ctx context.Context, direction Direction, from, to *time.Time) (decimal.Decimal, error)
	ExpensesByCategory(ctx context.Context, from, to *time.Time) ([]CategoryTotal, error)
}

// transactionDoc is the persisted shape; amounts are stored as Decimal128
// so Mongo can aggregate them without float drift.
type transactionDoc struct {
	ID              string               `bson:"_id,omitempty"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Description     string               `bson:"description"`
	Date            time.Time            `bson:"date"`
	Direction       Direction            `bson:"direction"`
	PayeeID         *string              `bson:"payee_id,omitempty"`
	CategoryID      *string              `bson:"category_id,omitempty"`
	PaymentMethodID *string              `bson:"payment_method_id,omitempty"`
	StatusID        *string              `bson:"status_id,omitempty"`
	FromSMS         bool                 `bson:"from_sms"`
	SMSBody         string               `bson:"sms_body,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection("transactions"),
	}
}

func (r *MongoDBRepository) Insert(ctx context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	doc, err := toDoc(t)
	if err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) Update(ctx context.Context, t *Transaction) error {
	t.UpdatedAt = time.Now()

	doc, err := toDoc(t)
	if err != nil {
		return err
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", t.ID)
	}
	return nil
}

func (r *MongoDBRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}

func (r *MongoDBRepository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	var doc transactionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return fromDoc(&doc)
}

func (r *MongoDBRepository) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	transactions := make([]Transaction, 0, len(docs))
	for i := range docs {
		t, err := fromDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, nil
}

func (r *MongoDBRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (r *MongoDBRepository) TotalByDirection(ctx context.Context, direction Direction, from, to *time.Time) (decimal.Decimal, error) {
	match := bson.M{"direction": direction}
	if rangeFilter := dateRange(from, to); rangeFilter != nil {
		match["date"] = rangeFilter
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode totals: %w", err)
	}
	if len(results) == 0 {
		return decimal.Zero, nil
	}
	return parseDecimal128(results[0].Total)
}

func (r *MongoDBRepository) ExpensesByCategory(ctx context.Context, from, to *time.Time) ([]CategoryTotal, error) {
	match := bson.M{"direction": DirectionExpense}
	if rangeFilter := dateRange(from, to); rangeFilter != nil {
		match["date"] = rangeFilter
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category_id",
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		CategoryID *string              `bson:"_id"`
		Total      primitive.Decimal128 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode category totals: %w", err)
	}

	totals := make([]CategoryTotal, 0, len(results))
	for _, res := range results {
		total, err := parseDecimal128(res.Total)
		if err != nil {
			return nil, err
		}
		totals = append(totals, CategoryTotal{CategoryID: res.CategoryID, Total: total})
	}
	return totals, nil
}

func buildQuery(filter Filter) bson.M {
	query := bson.M{}

	if filter.Direction != nil {
		query["direction"] = *filter.Direction
	}
	if rangeFilter := dateRange(filter.From, filter.To); rangeFilter != nil {
		query["date"] = rangeFilter
	}
	if filter.PayeeID != nil {
		query["payee_id"] = *filter.PayeeID
	}
	if filter.CategoryID != nil {
		query["category_id"] = *filter.CategoryID
	}
	if filter.PaymentMethodID != nil {
		query["payment_method_id"] = *filter.PaymentMethodID
	}
	if filter.StatusID != nil {
		query["status_id"] = *filter.StatusID
	}

	return query
}

func dateRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	rangeFilter := bson.M{}
	if from != nil {
		rangeFilter["$gte"] = *from
	}
	if to != nil {
		rangeFilter["$lte"] = *to
	}
	return rangeFilter
}

func toDoc(t *Transaction) (*transactionDoc, error) {
	amount, err := primitive.ParseDecimal128(t.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to encode amount %s: %w", t.Amount, err)
	}

	return &transactionDoc{
		ID:              t.ID,
		Amount:          amount,
		Description:     t.Description,
		Date:            t.Date,
		Direction:       t.Direction,
		PayeeID:         t.PayeeID,
		CategoryID:      t.CategoryID,
		PaymentMethodID: t.PaymentMethodID,
		StatusID:        t.StatusID,
		FromSMS:         t.FromSMS,
		SMSBody:         t.SMSBody,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}, nil
}

func fromDoc(doc *transactionDoc) (*Transaction, error) {
	amount, err := parseDecimal128(doc.Amount)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		ID:              doc.ID,
		Amount:          amount,
		Description:     doc.Description,
		Date:            doc.Date,
		Direction:       doc.Direction,
		PayeeID:         doc.PayeeID,
		CategoryID:      doc.CategoryID,
		PaymentMethodID: doc.PaymentMethodID,
		StatusID:        doc.StatusID,
		FromSMS:         doc.FromSMS,
		SMSBody:         doc.SMSBody,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

func parseDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode amount %s: %w", d, err)
	}
	return parsed, nil
}
