package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosh/internal/config"
	"kosh/internal/ingest"
	"kosh/internal/smsparser"
	"kosh/internal/tag"
	"kosh/internal/transaction"
	"kosh/pkg/migrations"
	"kosh/pkg/models"
)

func newIngestService(t *testing.T, infra *TestInfra) (*ingest.Service, transaction.Service) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, migrations.EnsureIndexes(ctx, infra.MongoDB))

	tagRepo := tag.NewRepository(infra.MongoDB)
	require.NoError(t, tag.NewService(tagRepo, createTestLogger()).EnsureDefaults(ctx))

	txRepo := transaction.NewRepository(infra.MongoDB)
	txSvc := transaction.NewService(txRepo, tagRepo, transaction.NewHub(), createTestLogger())

	dedupRepo := ingest.NewCircuitBreakerDedupRepository(
		ingest.NewDedupRepository(infra.RedisClient),
		config.CircuitBreakerConfig{Enabled: true},
	)
	dedup := ingest.NewDeduplicator(dedupRepo, createTestDedupConfig(), createTestLogger())

	inboxRepo := ingest.NewInboxRepository(infra.MongoDB)
	svc := ingest.NewService(inboxRepo, dedup, txSvc, tagRepo, createTestIngestConfig(), createTestLogger())
	return svc, txSvc
}

func bankAlert(timestamp int64) models.InboundSMS {
	return models.NewInboundSMS(
		"HDFCBK",
		"Rs. 450.00 debited from A/c XX9876 via UPI to Blue Tokai Coffee on 15-06-24",
		timestamp,
		"device",
	)
}

func TestRedisDedup(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	dedupRepo := ingest.NewCircuitBreakerDedupRepository(
		ingest.NewDedupRepository(infra.RedisClient),
		config.CircuitBreakerConfig{Enabled: true},
	)
	dedup := ingest.NewDeduplicator(dedupRepo, createTestDedupConfig(), createTestLogger())

	timestamp := time.Now().UnixMilli()

	fresh, err := dedup.IsNew(ctx, "HDFCBK", "some alert body", timestamp)
	require.NoError(t, err)
	assert.True(t, fresh)

	repeat, err := dedup.IsNew(ctx, "HDFCBK", "some alert body", timestamp)
	require.NoError(t, err)
	assert.False(t, repeat)

	// A different timestamp yields a different signature.
	other, err := dedup.IsNew(ctx, "HDFCBK", "some alert body", timestamp+1)
	require.NoError(t, err)
	assert.True(t, other)

	key := "sms:dedup:" + ingest.Signature("HDFCBK", "some alert body", timestamp)
	ttl, err := infra.RedisClient.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestInboundPipeline(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	svc, txSvc := newIngestService(t, infra)

	timestamp := time.Now().UnixMilli()
	msg := bankAlert(timestamp)

	require.NoError(t, svc.HandleInbound(ctx, msg))

	transactions, err := txSvc.List(ctx, transaction.Filter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, transaction.DirectionExpense, transactions[0].Direction)
	assert.Equal(t, "450", transactions[0].Amount.String())
	assert.True(t, transactions[0].FromSMS)
	require.NotNil(t, transactions[0].PaymentMethodID, "UPI alert should link the UPI payment method tag")

	// Same alert delivered twice is archived twice but stored once.
	require.NoError(t, svc.HandleInbound(ctx, bankAlert(timestamp)))

	transactions, err = txSvc.List(ctx, transaction.Filter{})
	require.NoError(t, err)
	assert.Len(t, transactions, 1)

	count, err := svc.CountFinancial(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestScanCommitFlow(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	svc, txSvc := newIngestService(t, infra)

	now := time.Now()
	inbox := ingest.NewInboxRepository(infra.MongoDB)

	seed := []ingest.RawMessage{
		{Sender: "HDFCBK", Body: "Rs. 1200.00 debited from A/c XX1234 via UPI to Big Bazaar", Timestamp: now.UnixMilli(), Source: "device"},
		{Sender: "ICICIB", Body: "INR 75000.00 credited to A/c XX5678 by NEFT from ACME CORP", Timestamp: now.Add(-2 * time.Hour).UnixMilli(), Source: "device"},
		{Sender: "FRIEND", Body: "see you at 8 for 500 reasons", Timestamp: now.Add(-1 * time.Hour).UnixMilli(), Source: "device"},
		{Sender: "HDFCBK", Body: "Rs. 60.00 debited from A/c XX1234 via UPI to Chai Point", Timestamp: now.AddDate(0, 0, -45).UnixMilli(), Source: "device"},
	}
	for i := range seed {
		require.NoError(t, inbox.Store(ctx, &seed[i]))
	}

	result, err := svc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Examined)
	require.Len(t, result.Drafts, 2)

	// Messages come back newest first, so the debit leads.
	assert.Equal(t, smsparser.DirectionExpense, result.Drafts[0].Parsed.Direction)

	require.NoError(t, svc.Toggle(1))
	session, err := svc.Session()
	require.NoError(t, err)
	assert.Equal(t, 1, session.SelectedCount())

	commit, err := svc.CommitSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, commit.Committed)
	assert.Equal(t, 1, commit.Remaining)

	transactions, err := txSvc.List(ctx, transaction.Filter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, transaction.DirectionExpense, transactions[0].Direction)

	// Re-selecting and committing the credit works; re-scanning and
	// committing the already-stored debit is refused by dedup.
	require.NoError(t, svc.SelectAll())
	commit, err = svc.CommitSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, commit.Committed)
	assert.Equal(t, 0, commit.Remaining)

	if _, err := svc.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	commit, err = svc.CommitSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, commit.Committed)

	transactions, err = txSvc.List(ctx, transaction.Filter{})
	require.NoError(t, err)
	assert.Len(t, transactions, 2)
}
