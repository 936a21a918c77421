package ingest

import (
	"context"
	"sync"
	"time"

	"kosh/internal/config"
	"kosh/internal/logger"
	"kosh/internal/smsparser"
	"kosh/internal/tag"
	"kosh/internal/transaction"
	pkgerrors "kosh/pkg/errors"
	"kosh/pkg/metrics"
	"kosh/pkg/models"
)

type Service struct {
	inbox        InboxRepository
	dedup        *Deduplicator
	transactions transaction.Service
	tags         tag.Repository
	cfg          config.IngestConfig
	log          logger.Logger

	sessionMu sync.Mutex
	session   *ScanSession
}

func NewService(
	inbox InboxRepository,
	dedup *Deduplicator,
	transactions transaction.Service,
	tags tag.Repository,
	cfg config.IngestConfig,
	log logger.Logger,
) *Service {
	return &Service{
		inbox:        inbox,
		dedup:        dedup,
		transactions: transactions,
		tags:         tags,
		cfg:          cfg,
		log:          log,
	}
}

// HandleInbound processes a live SMS from the broker: it is archived in the
// inbox, then parsed and stored as a transaction if it is a new bank alert.
// Messages that are not financial or not parseable are dropped silently; only
// infrastructure failures surface as errors so the broker retries them.
func (s *Service) HandleInbound(ctx context.Context, msg models.InboundSMS) error {
	raw := RawMessage{
		Sender:    msg.Sender,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
		Source:    msg.Source,
	}
	if err := s.inbox.Store(ctx, &raw); err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	if !smsparser.IsFinancialSender(msg.Sender) {
		metrics.IngestMessagesTotal.WithLabelValues("ignored_sender").Inc()
		return nil
	}

	parsed := s.parse(msg.Body, msg.Timestamp)
	if parsed == nil {
		metrics.IngestMessagesTotal.WithLabelValues("unparsed").Inc()
		s.log.DebugwCtx(ctx, "Message did not parse as a transaction",
			"sender", msg.Sender,
		)
		return nil
	}

	isNew, err := s.dedup.IsNew(ctx, msg.Sender, msg.Body, msg.Timestamp)
	if err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("error").Inc()
		return err
	}
	if !isNew {
		metrics.IngestMessagesTotal.WithLabelValues("duplicate").Inc()
		s.log.InfowCtx(ctx, "Duplicate message skipped",
			"sender", msg.Sender,
		)
		return nil
	}

	t := s.buildTransaction(ctx, parsed)
	if err := s.transactions.Store(ctx, &t); err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.IngestMessagesTotal.WithLabelValues("stored").Inc()
	metrics.IncTransactionCreated(string(t.Direction), msg.Source)
	s.log.InfowCtx(ctx, "Transaction ingested from SMS",
		"transaction_id", t.ID,
		"sender", msg.Sender,
		"amount", t.Amount.String(),
		"direction", t.Direction,
	)
	return nil
}

// Scan replays the inbox over the configured lookback window and builds a
// draft session. Every parseable bank message becomes a draft, initially
// selected. The session replaces any previous one.
func (s *Service) Scan(ctx context.Context) (*ScanResult, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.LookbackDaysOrDefault()).UnixMilli()

	messages, err := s.inbox.ListSince(ctx, cutoff)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	drafts := make([]Draft, 0)
	for _, msg := range messages {
		if !smsparser.IsFinancialSender(msg.Sender) {
			metrics.ScannedMessagesTotal.WithLabelValues("ignored_sender").Inc()
			continue
		}
		parsed := s.parse(msg.Body, msg.Timestamp)
		if parsed == nil {
			metrics.ScannedMessagesTotal.WithLabelValues("unparsed").Inc()
			continue
		}
		metrics.ScannedMessagesTotal.WithLabelValues("draft").Inc()
		drafts = append(drafts, Draft{
			Parsed:   *parsed,
			Sender:   msg.Sender,
			Selected: true,
		})
	}

	session := &ScanSession{
		Drafts:    drafts,
		ScannedAt: time.Now(),
		Examined:  len(messages),
	}

	s.sessionMu.Lock()
	s.session = session
	s.sessionMu.Unlock()

	s.log.InfowCtx(ctx, "Inbox scan completed",
		"examined", len(messages),
		"drafts", len(drafts),
	)

	return &ScanResult{
		Drafts:    drafts,
		Examined:  len(messages),
		ScannedAt: session.ScannedAt,
	}, nil
}

// Session returns a snapshot of the current draft session.
func (s *Service) Session() (*ScanResult, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.session == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("reason", "no scan session; run a scan first")
	}

	drafts := make([]Draft, len(s.session.Drafts))
	copy(drafts, s.session.Drafts)
	return &ScanResult{
		Drafts:    drafts,
		Examined:  s.session.Examined,
		ScannedAt: s.session.ScannedAt,
	}, nil
}

// Toggle flips the selection of the draft at index.
func (s *Service) Toggle(index int) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.session == nil {
		return pkgerrors.ErrNotFound.WithDetail("reason", "no scan session; run a scan first")
	}
	if index < 0 || index >= len(s.session.Drafts) {
		return pkgerrors.ErrValidation.WithDetail("field", "index").
			WithDetail("reason", "draft index out of range")
	}

	s.session.Drafts[index].Selected = !s.session.Drafts[index].Selected
	return nil
}

func (s *Service) SelectAll() error {
	return s.setAll(true)
}

func (s *Service) DeselectAll() error {
	return s.setAll(false)
}

func (s *Service) setAll(selected bool) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.session == nil {
		return pkgerrors.ErrNotFound.WithDetail("reason", "no scan session; run a scan first")
	}
	for i := range s.session.Drafts {
		s.session.Drafts[i].Selected = selected
	}
	return nil
}

// CommitSelected stores every selected draft as a transaction. Duplicates
// detected at commit time are dropped without counting as committed.
// Unselected drafts survive in the session; committed and duplicate drafts
// are removed.
func (s *Service) CommitSelected(ctx context.Context) (*CommitResult, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.session == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("reason", "no scan session; run a scan first")
	}

	committed := 0
	remaining := make([]Draft, 0)

	for _, draft := range s.session.Drafts {
		if !draft.Selected {
			remaining = append(remaining, draft)
			continue
		}

		isNew, err := s.dedup.IsNew(ctx, draft.Sender, draft.Parsed.SourceText, draft.Parsed.Timestamp)
		if err != nil {
			remaining = append(remaining, draft)
			s.log.ErrorwCtx(ctx, "Dedup check failed during commit",
				"error", err,
				"sender", draft.Sender,
			)
			continue
		}
		if !isNew {
			s.log.InfowCtx(ctx, "Draft already ingested, skipping",
				"sender", draft.Sender,
			)
			continue
		}

		t := s.buildTransaction(ctx, &draft.Parsed)
		if err := s.transactions.Store(ctx, &t); err != nil {
			remaining = append(remaining, draft)
			s.log.ErrorwCtx(ctx, "Failed to store draft transaction",
				"error", err,
				"sender", draft.Sender,
			)
			continue
		}

		committed++
		metrics.IncTransactionCreated(string(t.Direction), "scan")
	}

	s.session.Drafts = remaining

	s.log.InfowCtx(ctx, "Draft commit completed",
		"committed", committed,
		"remaining", len(remaining),
	)

	return &CommitResult{
		Committed: committed,
		Remaining: len(remaining),
	}, nil
}

// Clear discards the current draft session.
func (s *Service) Clear() {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.session = nil
}

// CountFinancial reports how many inbox messages in the lookback window come
// from recognized bank senders.
func (s *Service) CountFinancial(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.LookbackDaysOrDefault()).UnixMilli()

	messages, err := s.inbox.ListSince(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.ErrInternal.WithCause(err)
	}

	var count int64
	for _, msg := range messages {
		if smsparser.IsFinancialSender(msg.Sender) {
			count++
		}
	}
	return count, nil
}

// buildTransaction maps a parse result to a transaction and links the
// detected payment method to its tag when one with that exact name exists.
// A failed lookup degrades to an untagged transaction.
func (s *Service) buildTransaction(ctx context.Context, parsed *smsparser.ParsedTransaction) transaction.Transaction {
	t := transaction.FromParsed(parsed)

	methods, err := s.tags.ListByType(ctx, tag.TypePaymentMethod)
	if err != nil {
		s.log.WarnwCtx(ctx, "Payment method tag lookup failed",
			"error", err,
			"payment_method", parsed.PaymentMethod,
		)
		return t
	}

	for _, m := range methods {
		if m.Name == parsed.PaymentMethod {
			id := m.ID
			t.PaymentMethodID = &id
			break
		}
	}
	return t
}

func (s *Service) parse(body string, timestamp int64) *smsparser.ParsedTransaction {
	start := time.Now()
	parsed := smsparser.Parse(body, timestamp)

	status := "parsed"
	if parsed == nil {
		status = "unparsed"
	}
	metrics.ObserveParseDuration(time.Since(start), status)
	return parsed
}
