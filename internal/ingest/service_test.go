package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosh/internal/config"
	"kosh/internal/logger"
	"kosh/internal/tag"
	"kosh/internal/transaction"
	pkgerrors "kosh/pkg/errors"
	"kosh/pkg/models"
)

type fakeInbox struct {
	mu       sync.Mutex
	messages []RawMessage
}

func (f *fakeInbox) Store(_ context.Context, msg *RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = "msg-" + time.Now().Format("150405.000000000")
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeInbox) ListSince(_ context.Context, cutoff int64) ([]RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RawMessage
	for _, m := range f.messages {
		if m.Timestamp >= cutoff {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeInbox) CountSince(_ context.Context, cutoff int64) (int64, error) {
	msgs, _ := f.ListSince(context.Background(), cutoff)
	return int64(len(msgs)), nil
}

type fakeDedupRepo struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeDedupRepo() *fakeDedupRepo {
	return &fakeDedupRepo{seen: make(map[string]bool)}
}

func (f *fakeDedupRepo) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeTransactionStore struct {
	mu     sync.Mutex
	stored []transaction.Transaction
	err    error
}

func (f *fakeTransactionStore) Store(_ context.Context, t *transaction.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, *t)
	return nil
}

func (f *fakeTransactionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func (f *fakeTransactionStore) Create(context.Context, transaction.CreateTransactionRequest) (*transaction.Transaction, error) {
	return nil, nil
}

func (f *fakeTransactionStore) Update(context.Context, string, transaction.UpdateTransactionRequest) (*transaction.Transaction, error) {
	return nil, nil
}

func (f *fakeTransactionStore) Delete(context.Context, string) error { return nil }

func (f *fakeTransactionStore) Get(context.Context, string) (*transaction.Transaction, error) {
	return nil, nil
}

func (f *fakeTransactionStore) GetWithTags(context.Context, string) (*transaction.WithTags, error) {
	return nil, nil
}

func (f *fakeTransactionStore) List(context.Context, transaction.Filter) ([]transaction.Transaction, error) {
	return nil, nil
}

func (f *fakeTransactionStore) ListWithTags(context.Context, transaction.Filter) ([]transaction.WithTags, error) {
	return nil, nil
}

func (f *fakeTransactionStore) Summary(context.Context, *time.Time, *time.Time) (*transaction.Summary, error) {
	return nil, nil
}

func (f *fakeTransactionStore) Subscribe(context.Context) <-chan []transaction.WithTags {
	return nil
}

type fakeTagRepo struct {
	tags []tag.Tag
}

func (f *fakeTagRepo) Insert(_ context.Context, t *tag.Tag) error {
	f.tags = append(f.tags, *t)
	return nil
}

func (f *fakeTagRepo) InsertMany(_ context.Context, tags []tag.Tag) error {
	f.tags = append(f.tags, tags...)
	return nil
}

func (f *fakeTagRepo) Update(context.Context, *tag.Tag) error { return nil }

func (f *fakeTagRepo) Delete(context.Context, string) error { return nil }

func (f *fakeTagRepo) GetByID(_ context.Context, id string) (*tag.Tag, error) {
	for _, t := range f.tags {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (f *fakeTagRepo) List(context.Context) ([]tag.Tag, error) {
	return f.tags, nil
}

func (f *fakeTagRepo) ListByType(_ context.Context, tagType tag.Type) ([]tag.Tag, error) {
	var out []tag.Tag
	for _, t := range f.tags {
		if t.Type == tagType {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTagRepo) Search(context.Context, string, tag.Type) ([]tag.Tag, error) {
	return nil, nil
}

func (f *fakeTagRepo) CountByType(context.Context, tag.Type) (int64, error) { return 0, nil }

func (f *fakeTagRepo) CountDefaults(context.Context) (int64, error) { return 0, nil }

type fixture struct {
	service *Service
	inbox   *fakeInbox
	dedup   *fakeDedupRepo
	store   *fakeTransactionStore
	tags    *fakeTagRepo
}

func newFixture(cfg config.IngestConfig) *fixture {
	inbox := &fakeInbox{}
	dedupRepo := newFakeDedupRepo()
	store := &fakeTransactionStore{}
	tags := &fakeTagRepo{tags: []tag.Tag{
		{ID: "pm-upi", Name: "UPI", Type: tag.TypePaymentMethod, IsDefault: true},
		{ID: "pm-other", Name: "Other", Type: tag.TypePaymentMethod, IsDefault: true},
	}}

	dedup := NewDeduplicator(dedupRepo, cfg.Dedup, logger.NopLogger())
	svc := NewService(inbox, dedup, store, tags, cfg, logger.NopLogger())

	return &fixture{service: svc, inbox: inbox, dedup: dedupRepo, store: store, tags: tags}
}

func bankSMS(timestamp int64) models.InboundSMS {
	return models.NewInboundSMS(
		"HDFCBK",
		"Rs. 1234.56 debited from A/c XX1234 via UPI to merchant",
		timestamp,
		"device",
	)
}

func TestHandleInbound(t *testing.T) {
	t.Run("stores transaction for bank SMS", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})

		err := f.service.HandleInbound(context.Background(), bankSMS(time.Now().UnixMilli()))
		require.NoError(t, err)
		assert.Equal(t, 1, f.store.count())
		assert.Len(t, f.inbox.messages, 1)
		assert.True(t, f.store.stored[0].FromSMS)
		require.NotNil(t, f.store.stored[0].PaymentMethodID)
		assert.Equal(t, "pm-upi", *f.store.stored[0].PaymentMethodID)
	})

	t.Run("ignores non-financial sender", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})

		msg := models.NewInboundSMS("FRIEND", "Rs. 500 paid at store", time.Now().UnixMilli(), "device")
		err := f.service.HandleInbound(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, 0, f.store.count())
		assert.Len(t, f.inbox.messages, 1)
	})

	t.Run("ignores unparseable message", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})

		msg := models.NewInboundSMS("HDFCBK", "Your OTP is 482913. Do not share it.", time.Now().UnixMilli(), "device")
		err := f.service.HandleInbound(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, 0, f.store.count())
	})

	t.Run("skips duplicate delivery", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})

		msg := bankSMS(time.Now().UnixMilli())
		require.NoError(t, f.service.HandleInbound(context.Background(), msg))
		require.NoError(t, f.service.HandleInbound(context.Background(), msg))
		assert.Equal(t, 1, f.store.count())
	})

	t.Run("store failure surfaces for retry", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})
		f.store.err = errors.New("mongo down")

		err := f.service.HandleInbound(context.Background(), bankSMS(time.Now().UnixMilli()))
		assert.Error(t, err)
	})
}

func TestDeduplicatorFallback(t *testing.T) {
	t.Run("allow on redis error by default", func(t *testing.T) {
		repo := newFakeDedupRepo()
		repo.err = errors.New("redis down")
		dedup := NewDeduplicator(repo, config.DedupConfig{}, logger.NopLogger())

		isNew, err := dedup.IsNew(context.Background(), "HDFCBK", "body", 1)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("deny on redis error when configured", func(t *testing.T) {
		repo := newFakeDedupRepo()
		repo.err = errors.New("redis down")
		dedup := NewDeduplicator(repo, config.DedupConfig{OnRedisError: "deny"}, logger.NopLogger())

		_, err := dedup.IsNew(context.Background(), "HDFCBK", "body", 1)
		assert.Error(t, err)
	})
}

func TestSignature(t *testing.T) {
	a := Signature("HDFCBK", "Rs. 500 debited", 1700000000000)
	b := Signature("HDFCBK", "Rs. 500 debited", 1700000000000)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Signature("ICICIB", "Rs. 500 debited", 1700000000000))
	assert.NotEqual(t, a, Signature("HDFCBK", "Rs. 501 debited", 1700000000000))
	assert.NotEqual(t, a, Signature("HDFCBK", "Rs. 500 debited", 1700000000001))
}

func seedInbox(f *fixture, now time.Time) {
	ctx := context.Background()
	_ = f.inbox.Store(ctx, &RawMessage{
		Sender:    "HDFCBK",
		Body:      "Rs. 1234.56 debited from A/c XX1234 via UPI to merchant",
		Timestamp: now.UnixMilli(),
	})
	_ = f.inbox.Store(ctx, &RawMessage{
		Sender:    "ICICIB",
		Body:      "INR 25000 credited to your account via NEFT",
		Timestamp: now.Add(-time.Hour).UnixMilli(),
	})
	_ = f.inbox.Store(ctx, &RawMessage{
		Sender:    "FRIEND",
		Body:      "Rs. 500 paid at the store yesterday",
		Timestamp: now.UnixMilli(),
	})
	_ = f.inbox.Store(ctx, &RawMessage{
		Sender:    "HDFCBK",
		Body:      "Your OTP is 482913. Do not share it.",
		Timestamp: now.UnixMilli(),
	})
	// Outside the lookback window.
	_ = f.inbox.Store(ctx, &RawMessage{
		Sender:    "HDFCBK",
		Body:      "Rs. 99 debited from A/c XX1234",
		Timestamp: now.AddDate(0, 0, -60).UnixMilli(),
	})
}

func TestScan(t *testing.T) {
	f := newFixture(config.IngestConfig{LookbackDays: 30})
	seedInbox(f, time.Now())

	result, err := f.service.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Examined)
	require.Len(t, result.Drafts, 2)
	for _, d := range result.Drafts {
		assert.True(t, d.Selected)
	}
}

func TestDraftSession(t *testing.T) {
	t.Run("operations without a session return not found", func(t *testing.T) {
		f := newFixture(config.IngestConfig{})

		_, err := f.service.Session()
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.True(t, pkgerrors.IsNotFound(f.service.Toggle(0)))
		assert.True(t, pkgerrors.IsNotFound(f.service.SelectAll()))
		_, err = f.service.CommitSelected(context.Background())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("toggle flips selection", func(t *testing.T) {
		f := newFixture(config.IngestConfig{LookbackDays: 30})
		seedInbox(f, time.Now())

		_, err := f.service.Scan(context.Background())
		require.NoError(t, err)

		require.NoError(t, f.service.Toggle(0))
		session, err := f.service.Session()
		require.NoError(t, err)
		assert.False(t, session.Drafts[0].Selected)
		assert.True(t, session.Drafts[1].Selected)

		assert.True(t, pkgerrors.IsValidation(f.service.Toggle(99)))
	})

	t.Run("select all and deselect all", func(t *testing.T) {
		f := newFixture(config.IngestConfig{LookbackDays: 30})
		seedInbox(f, time.Now())

		_, err := f.service.Scan(context.Background())
		require.NoError(t, err)

		require.NoError(t, f.service.DeselectAll())
		session, err := f.service.Session()
		require.NoError(t, err)
		for _, d := range session.Drafts {
			assert.False(t, d.Selected)
		}

		require.NoError(t, f.service.SelectAll())
		session, err = f.service.Session()
		require.NoError(t, err)
		for _, d := range session.Drafts {
			assert.True(t, d.Selected)
		}
	})

	t.Run("commit stores selected drafts only", func(t *testing.T) {
		f := newFixture(config.IngestConfig{LookbackDays: 30})
		seedInbox(f, time.Now())

		_, err := f.service.Scan(context.Background())
		require.NoError(t, err)

		require.NoError(t, f.service.Toggle(1))

		result, err := f.service.CommitSelected(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Committed)
		assert.Equal(t, 1, result.Remaining)
		assert.Equal(t, 1, f.store.count())

		session, err := f.service.Session()
		require.NoError(t, err)
		require.Len(t, session.Drafts, 1)
		assert.False(t, session.Drafts[0].Selected)
	})

	t.Run("commit skips drafts already ingested", func(t *testing.T) {
		f := newFixture(config.IngestConfig{LookbackDays: 30})
		now := time.Now()
		seedInbox(f, now)

		// Live delivery of the same message happened first.
		live := models.NewInboundSMS(
			"HDFCBK",
			"Rs. 1234.56 debited from A/c XX1234 via UPI to merchant",
			now.UnixMilli(),
			"device",
		)
		require.NoError(t, f.service.HandleInbound(context.Background(), live))
		require.Equal(t, 1, f.store.count())

		_, err := f.service.Scan(context.Background())
		require.NoError(t, err)

		result, err := f.service.CommitSelected(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Committed)
		assert.Equal(t, 2, f.store.count())
	})

	t.Run("clear discards session", func(t *testing.T) {
		f := newFixture(config.IngestConfig{LookbackDays: 30})
		seedInbox(f, time.Now())

		_, err := f.service.Scan(context.Background())
		require.NoError(t, err)

		f.service.Clear()
		_, err = f.service.Session()
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestCountFinancial(t *testing.T) {
	f := newFixture(config.IngestConfig{LookbackDays: 30})
	seedInbox(f, time.Now())

	count, err := f.service.CountFinancial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
