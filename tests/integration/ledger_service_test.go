package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosh/internal/tag"
	"kosh/internal/transaction"
	pkgerrors "kosh/pkg/errors"
	"kosh/pkg/migrations"
)

func TestTagStore(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	ctx := context.Background()

	require.NoError(t, migrations.EnsureIndexes(ctx, infra.MongoDB))

	repo := tag.NewRepository(infra.MongoDB)
	svc := tag.NewService(repo, createTestLogger())

	t.Run("seeds defaults once", func(t *testing.T) {
		require.NoError(t, svc.EnsureDefaults(ctx))

		tags, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, tags, len(tag.DefaultTags()))

		// Second run must not duplicate the seed set.
		require.NoError(t, svc.EnsureDefaults(ctx))
		tags, err = svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, tags, len(tag.DefaultTags()))
	})

	t.Run("create and fetch", func(t *testing.T) {
		created, err := svc.Create(ctx, tag.CreateTagRequest{
			Name: "Landlord",
			Type: tag.TypePayee,
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		fetched, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Landlord", fetched.Name)
		assert.False(t, fetched.IsDefault)
	})

	t.Run("duplicate name and type conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, tag.CreateTagRequest{
			Name: "Landlord",
			Type: tag.TypePayee,
		})
		require.Error(t, err)
	})

	t.Run("search by name fragment", func(t *testing.T) {
		results, err := svc.Search(ctx, "land", tag.TypePayee)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Landlord", results[0].Name)
	})

	t.Run("list by type", func(t *testing.T) {
		categories, err := svc.ListByType(ctx, tag.TypeCategory)
		require.NoError(t, err)
		for _, c := range categories {
			assert.Equal(t, tag.TypeCategory, c.Type)
		}
	})
}

func TestTransactionStore(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	ctx := context.Background()

	require.NoError(t, migrations.EnsureIndexes(ctx, infra.MongoDB))

	tagRepo := tag.NewRepository(infra.MongoDB)
	tagSvc := tag.NewService(tagRepo, createTestLogger())
	require.NoError(t, tagSvc.EnsureDefaults(ctx))

	categories, err := tagSvc.ListByType(ctx, tag.TypeCategory)
	require.NoError(t, err)
	require.NotEmpty(t, categories)
	categoryID := categories[0].ID

	repo := transaction.NewRepository(infra.MongoDB)
	hub := transaction.NewHub()
	svc := transaction.NewService(repo, tagRepo, hub, createTestLogger())

	t.Run("create preserves exact amounts", func(t *testing.T) {
		created, err := svc.Create(ctx, transaction.CreateTransactionRequest{
			Amount:      decimal.RequireFromString("1234.56"),
			Description: "Grocery run",
			Date:        time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
			Direction:   transaction.DirectionExpense,
			CategoryID:  &categoryID,
		})
		require.NoError(t, err)

		fetched, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(fetched.Amount))
	})

	t.Run("list newest first", func(t *testing.T) {
		_, err := svc.Create(ctx, transaction.CreateTransactionRequest{
			Amount:      decimal.NewFromInt(5000),
			Description: "Salary",
			Date:        time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Direction:   transaction.DirectionIncome,
		})
		require.NoError(t, err)

		listed, err := svc.List(ctx, transaction.Filter{})
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "Salary", listed[0].Description)
		assert.Equal(t, "Grocery run", listed[1].Description)
	})

	t.Run("filter by direction", func(t *testing.T) {
		direction := transaction.DirectionIncome
		listed, err := svc.List(ctx, transaction.Filter{Direction: &direction})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Salary", listed[0].Description)
	})

	t.Run("summary aggregates with decimal precision", func(t *testing.T) {
		summary, err := svc.Summary(ctx, nil, nil)
		require.NoError(t, err)

		assert.True(t, decimal.RequireFromString("1234.56").Equal(summary.TotalExpenses))
		assert.True(t, decimal.NewFromInt(5000).Equal(summary.TotalIncome))
		assert.True(t, decimal.RequireFromString("3765.44").Equal(summary.Balance))

		require.Len(t, summary.ByCategory, 1)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(summary.ByCategory[0].Total))
		require.NotNil(t, summary.ByCategory[0].CategoryName)
		assert.Equal(t, categories[0].Name, *summary.ByCategory[0].CategoryName)
	})

	t.Run("update and delete", func(t *testing.T) {
		created, err := svc.Create(ctx, transaction.CreateTransactionRequest{
			Amount:      decimal.NewFromInt(200),
			Description: "Coffee",
			Date:        time.Now().UTC(),
			Direction:   transaction.DirectionExpense,
		})
		require.NoError(t, err)

		newDescription := "Coffee with friends"
		updated, err := svc.Update(ctx, created.ID, transaction.UpdateTransactionRequest{
			Description: &newDescription,
		})
		require.NoError(t, err)
		assert.Equal(t, newDescription, updated.Description)

		require.NoError(t, svc.Delete(ctx, created.ID))
		_, err = svc.Get(ctx, created.ID)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("subscription observes writes", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates := svc.Subscribe(subCtx)

		select {
		case snapshot := <-updates:
			assert.Len(t, snapshot, 2)
		case <-time.After(5 * time.Second):
			t.Fatal("no initial snapshot received")
		}

		_, err := svc.Create(ctx, transaction.CreateTransactionRequest{
			Amount:      decimal.NewFromInt(99),
			Description: "Snack",
			Date:        time.Now().UTC(),
			Direction:   transaction.DirectionExpense,
		})
		require.NoError(t, err)

		select {
		case snapshot := <-updates:
			assert.Len(t, snapshot, 3)
		case <-time.After(5 * time.Second):
			t.Fatal("no update received after write")
		}
	})
}
