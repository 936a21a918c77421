package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/logger"
	"kosh/internal/tag"
	pkgerrors "kosh/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error)
	Update(ctx context.Context, id string, req UpdateTransactionRequest) (*Transaction, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetWithTags(ctx context.Context, id string) (*WithTags, error)
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	ListWithTags(ctx context.Context, filter Filter) ([]WithTags, error)
	Summary(ctx context.Context, from, to *time.Time) (*Summary, error)
	Subscribe(ctx context.Context) <-chan []WithTags
	Store(ctx context.Context, t *Transaction) error
}

type service struct {
	repo    Repository
	tagRepo tag.Repository
	hub     *Hub
	log     logger.Logger
}

func NewService(repo Repository, tagRepo tag.Repository, hub *Hub, log logger.Logger) Service {
	return &service{
		repo:    repo,
		tagRepo: tagRepo,
		hub:     hub,
		log:     log,
	}
}

func (s *service) Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	t := Transaction{
		Amount:          req.Amount,
		Description:     strings.TrimSpace(req.Description),
		Date:            req.Date,
		Direction:       req.Direction,
		PayeeID:         req.PayeeID,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		StatusID:        req.StatusID,
	}
	if err := s.validate(&t); err != nil {
		return nil, err
	}
	if err := s.resolveTagRefs(ctx, &t); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, &t); err != nil {
		s.log.ErrorwCtx(ctx, "failed to create transaction", "error", err)
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	s.log.InfowCtx(ctx, "transaction created",
		"transaction_id", t.ID,
		"amount", t.Amount.String(),
		"direction", t.Direction,
	)
	s.hub.Notify()
	return &t, nil
}

// Store persists an already-built transaction, bypassing request mapping.
// Used by the ingestion path when committing parsed drafts.
func (s *service) Store(ctx context.Context, t *Transaction) error {
	if err := s.validate(t); err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return pkgerrors.ErrInternal.WithCause(err)
	}
	s.hub.Notify()
	return nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateTransactionRequest) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}

	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if req.Direction != nil {
		t.Direction = *req.Direction
	}
	if req.PayeeID != nil {
		t.PayeeID = normalizeRef(req.PayeeID)
	}
	if req.CategoryID != nil {
		t.CategoryID = normalizeRef(req.CategoryID)
	}
	if req.PaymentMethodID != nil {
		t.PaymentMethodID = normalizeRef(req.PaymentMethodID)
	}
	if req.StatusID != nil {
		t.StatusID = normalizeRef(req.StatusID)
	}

	if err := s.validate(t); err != nil {
		return nil, err
	}
	if err := s.resolveTagRefs(ctx, t); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, wrapRepoError(err)
	}

	s.log.InfowCtx(ctx, "transaction updated", "transaction_id", t.ID)
	s.hub.Notify()
	return t, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapRepoError(err)
	}
	s.log.InfowCtx(ctx, "transaction deleted", "transaction_id", id)
	s.hub.Notify()
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}
	return t, nil
}

func (s *service) GetWithTags(ctx context.Context, id string) (*WithTags, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	names, err := s.tagNames(ctx)
	if err != nil {
		return nil, err
	}
	enriched := attachTagNames(*t, names)
	return &enriched, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	transactions, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.ErrorwCtx(ctx, "failed to list transactions", "error", err)
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	return transactions, nil
}

func (s *service) ListWithTags(ctx context.Context, filter Filter) ([]WithTags, error) {
	transactions, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	names, err := s.tagNames(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]WithTags, 0, len(transactions))
	for _, t := range transactions {
		enriched = append(enriched, attachTagNames(t, names))
	}
	return enriched, nil
}

func (s *service) Summary(ctx context.Context, from, to *time.Time) (*Summary, error) {
	expenses, err := s.repo.TotalByDirection(ctx, DirectionExpense, from, to)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	income, err := s.repo.TotalByDirection(ctx, DirectionIncome, from, to)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	byCategory, err := s.repo.ExpensesByCategory(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	names, err := s.tagNames(ctx)
	if err != nil {
		return nil, err
	}
	for i := range byCategory {
		if byCategory[i].CategoryID != nil {
			if name, ok := names[*byCategory[i].CategoryID]; ok {
				byCategory[i].CategoryName = &name
			}
		}
	}

	return &Summary{
		TotalExpenses: expenses,
		TotalIncome:   income,
		Balance:       income.Sub(expenses),
		ByCategory:    byCategory,
	}, nil
}

// Subscribe streams the current transaction list, re-queried on every write.
// The first element arrives immediately; the channel closes when ctx is done.
func (s *service) Subscribe(ctx context.Context) <-chan []WithTags {
	out := make(chan []WithTags)
	ticks := s.hub.Subscribe(ctx)

	go func() {
		defer close(out)
		for range ticks {
			transactions, err := s.ListWithTags(ctx, Filter{})
			if err != nil {
				s.log.WarnwCtx(ctx, "failed to refresh subscription snapshot", "error", err)
				continue
			}
			select {
			case out <- transactions:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (s *service) validate(t *Transaction) error {
	if !t.Amount.GreaterThan(decimal.Zero) {
		return pkgerrors.ErrValidation.WithDetail("field", "amount").
			WithDetail("reason", "amount must be greater than zero")
	}
	if !t.Direction.Valid() {
		return pkgerrors.ErrValidation.WithDetail("field", "direction").
			WithDetail("reason", "direction must be expense or income")
	}
	if t.Date.IsZero() {
		return pkgerrors.ErrValidation.WithDetail("field", "date").
			WithDetail("reason", "date is required")
	}
	return nil
}

// resolveTagRefs verifies that every referenced tag exists and has the
// expected type, so transactions never point at dangling or mistyped tags.
func (s *service) resolveTagRefs(ctx context.Context, t *Transaction) error {
	refs := []struct {
		id    *string
		tType tag.Type
		field string
	}{
		{t.PayeeID, tag.TypePayee, "payee_id"},
		{t.CategoryID, tag.TypeCategory, "category_id"},
		{t.PaymentMethodID, tag.TypePaymentMethod, "payment_method_id"},
		{t.StatusID, tag.TypeStatus, "status_id"},
	}

	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		tg, err := s.tagRepo.GetByID(ctx, *ref.id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				return pkgerrors.ErrValidation.WithDetail("field", ref.field).
					WithDetail("reason", "referenced tag does not exist")
			}
			return pkgerrors.ErrInternal.WithCause(err)
		}
		if tg.Type != ref.tType {
			return pkgerrors.ErrValidation.WithDetail("field", ref.field).
				WithDetail("reason", "referenced tag has wrong type")
		}
	}
	return nil
}

func (s *service) tagNames(ctx context.Context) (map[string]string, error) {
	tags, err := s.tagRepo.List(ctx)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	names := make(map[string]string, len(tags))
	for _, tg := range tags {
		names[tg.ID] = tg.Name
	}
	return names, nil
}

func attachTagNames(t Transaction, names map[string]string) WithTags {
	enriched := WithTags{Transaction: t}
	if t.PayeeID != nil {
		if name, ok := names[*t.PayeeID]; ok {
			enriched.PayeeName = &name
		}
	}
	if t.CategoryID != nil {
		if name, ok := names[*t.CategoryID]; ok {
			enriched.CategoryName = &name
		}
	}
	if t.PaymentMethodID != nil {
		if name, ok := names[*t.PaymentMethodID]; ok {
			enriched.PaymentMethodName = &name
		}
	}
	if t.StatusID != nil {
		if name, ok := names[*t.StatusID]; ok {
			enriched.StatusName = &name
		}
	}
	return enriched
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func wrapRepoError(err error) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return pkgerrors.ErrInternal.WithCause(err)
}
