package order

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/simaogato/splitpay-backend/internal/domain"
	"github.com/simaogato/splitpay-backend/internal/usecase/aggregator"
	"github.com/simaogato/splitpay-backend/internal/usecase/allocator"
)

// UpdateScheduler defers order writes; the persist.Debouncer implements it
type UpdateScheduler interface {
	Schedule(order *domain.Order)
	Pending(id string) (*domain.Order, bool)
	Cancel(id string)
	WriteNow(ctx context.Context, order *domain.Order) error
}

// ItemPatch lists the split item fields to change; nil fields are left alone
type ItemPatch struct {
	Value   *int64
	LinkURL *string
	IsPaid  *bool
}

// OrderService handles the order lifecycle: generation, payment tracking and execution
type OrderService struct {
	OrderRepo     domain.OrderRepository
	Scheduler     UpdateScheduler
	Allocator     *allocator.Allocator
	Aggregator    *aggregator.Aggregator
	DefaultLocale domain.Locale
	Now           func() time.Time

	mu sync.Mutex // Serializes read-modify-write cycles on orders
}

// NewOrderService creates a new OrderService instance
func NewOrderService(
	orderRepo domain.OrderRepository,
	scheduler UpdateScheduler,
	alloc *allocator.Allocator,
	agg *aggregator.Aggregator,
	defaultLocale domain.Locale,
) *OrderService {
	if alloc == nil {
		alloc = allocator.New(nil, allocator.DefaultMaxPasses)
	}
	if agg == nil {
		agg = aggregator.New(aggregator.DefaultSettlementCurrency)
	}
	if defaultLocale == "" {
		defaultLocale = domain.LocaleEN
	}
	return &OrderService{
		OrderRepo:     orderRepo,
		Scheduler:     scheduler,
		Allocator:     alloc,
		Aggregator:    agg,
		DefaultLocale: defaultLocale,
		Now:           time.Now,
	}
}

// GenerateSplit allocates total into draft split items. Nothing is persisted.
func (s *OrderService) GenerateSplit(total, maxPerPart int64) ([]domain.SplitItem, error) {
	values, err := s.Allocator.Allocate(total, maxPerPart)
	if err != nil {
		return nil, err
	}
	return domain.NewSplitItems(values), nil
}

// CreateOrder persists a confirmed batch of split items as a pending order
func (s *OrderService) CreateOrder(ctx context.Context, total int64, items []domain.SplitItem) (*domain.Order, error) {
	now := s.Now().UTC()
	order := &domain.Order{
		ID:          domain.NewID(),
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
		Links:       slices.Clone(items),
	}
	for i := range order.Links {
		if order.Links[i].ID == "" {
			order.Links[i].ID = domain.NewID()
		}
	}
	order.RefreshStatus()

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if err := s.OrderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// GetOrder returns the latest state of an order, including edits not yet written
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if pending, ok := s.Scheduler.Pending(id); ok {
		return pending, nil
	}
	return s.OrderRepo.GetByID(ctx, id)
}

// ListOrders returns every order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.OrderRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	for i, o := range orders {
		if pending, ok := s.Scheduler.Pending(o.ID); ok {
			orders[i] = pending
		}
	}

	slices.SortStableFunc(orders, func(a, b *domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return orders, nil
}

// DeleteOrder removes an order and drops any write still pending for it
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Scheduler.Cancel(id)
	return s.OrderRepo.Delete(ctx, id)
}

// DeleteOrders removes several orders at once. Unknown ids are ignored.
func (s *OrderService) DeleteOrders(ctx context.Context, ids []string) error {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool {
		return strings.TrimSpace(id) == ""
	})
	if len(ids) == 0 {
		return fmt.Errorf("%w: no order ids given", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.Scheduler.Cancel(id)
	}
	return s.OrderRepo.DeleteMany(ctx, ids)
}

// UpdateItem applies patch to one split item and re-derives the order status.
// The write is debounced; the returned order already reflects the change.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID string, patch ItemPatch) (*domain.Order, error) {
	if patch.Value != nil && *patch.Value <= 0 {
		return nil, fmt.Errorf("%w: split item value must be positive", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	idx := order.FindItem(itemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in order %s", domain.ErrItemNotFound, itemID, orderID)
	}

	item := &order.Links[idx]
	if patch.Value != nil {
		item.Value = *patch.Value
	}
	if patch.LinkURL != nil {
		item.LinkURL = strings.TrimSpace(*patch.LinkURL)
	}
	if patch.IsPaid != nil {
		item.IsPaid = *patch.IsPaid
	}

	order.RefreshStatus()
	order.UpdatedAt = s.Now().UTC()
	s.Scheduler.Schedule(order)

	return order, nil
}

// DeleteItem removes one split item. Removing the last item deletes the order,
// in which case the returned order is nil.
func (s *OrderService) DeleteItem(ctx context.Context, orderID, itemID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	idx := order.FindItem(itemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in order %s", domain.ErrItemNotFound, itemID, orderID)
	}

	order.Links = slices.Delete(order.Links, idx, idx+1)
	if len(order.Links) == 0 {
		s.Scheduler.Cancel(orderID)
		if err := s.OrderRepo.Delete(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	order.RefreshStatus()
	order.UpdatedAt = s.Now().UTC()
	if err := s.Scheduler.WriteNow(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// AppendRecords adds extracted records to an order whose execution is not yet registered
func (s *OrderService) AppendRecords(ctx context.Context, orderID string, records []domain.ExtractedRecord) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsExecutionRegistered {
		return nil, fmt.Errorf("%w: order %s", domain.ErrExecutionRegistered, orderID)
	}
	if len(records) == 0 {
		return order, nil
	}

	order.ExtractedRecords = append(order.ExtractedRecords, records...)
	order.UpdatedAt = s.Now().UTC()
	if err := s.Scheduler.WriteNow(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// PreviewTotals aggregates the order's records. Once execution is registered
// the frozen snapshot is returned instead and locale is ignored.
func (s *OrderService) PreviewTotals(ctx context.Context, orderID string, locale domain.Locale) (domain.CurrencyTotals, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.CurrencyTotals{}, err
	}
	if order.IsExecutionRegistered && order.ExecutionTotals != nil {
		return order.ExecutionTotals.Clone(), nil
	}
	return s.Aggregate(order.ExtractedRecords, locale), nil
}

// Aggregate computes totals over records that do not belong to a stored order
func (s *OrderService) Aggregate(records []domain.ExtractedRecord, locale domain.Locale) domain.CurrencyTotals {
	return s.Aggregator.Aggregate(records, s.locale(locale))
}

// RegisterExecution freezes the order's totals. It succeeds exactly once per order.
func (s *OrderService) RegisterExecution(ctx context.Context, orderID string, locale domain.Locale) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsExecutionRegistered {
		return nil, fmt.Errorf("%w: order %s", domain.ErrExecutionRegistered, orderID)
	}

	totals := s.Aggregator.Aggregate(order.ExtractedRecords, s.locale(locale))
	order.ExecutionTotals = &totals
	order.IsExecutionRegistered = true
	order.UpdatedAt = s.Now().UTC()

	if err := s.Scheduler.WriteNow(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) locale(l domain.Locale) domain.Locale {
	if l == "" {
		return s.DefaultLocale
	}
	return l
}
