// Package cached decorates repositories with an in-process read-through cache.
package cached

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

const (
	ckOrder     = "order_%s"
	ckOrderList = "order_list"

	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// orderRepository implements domain.OrderRepository on top of another OrderRepository
type orderRepository struct {
	next  domain.OrderRepository
	cache *cache.Cache
	ttl   time.Duration
}

// NewOrderRepository wraps next with a cache. A non-positive ttl uses DefaultCacheExpiration.
func NewOrderRepository(next domain.OrderRepository, c *cache.Cache, ttl time.Duration) domain.OrderRepository {
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	if c == nil {
		c = cache.New(ttl, CacheCleanupInterval)
	}
	return &orderRepository{next: next, cache: c, ttl: ttl}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := r.next.Create(ctx, order); err != nil {
		return err
	}
	r.cache.Set(fmt.Sprintf(ckOrder, order.ID), order.Clone(), r.ttl)
	r.cache.Delete(ckOrderList)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	key := fmt.Sprintf(ckOrder, id)
	if data, found := r.cache.Get(key); found {
		return data.(*domain.Order).Clone(), nil
	}

	order, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, order.Clone(), r.ttl)
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	if data, found := r.cache.Get(ckOrderList); found {
		return cloneAll(data.([]*domain.Order)), nil
	}

	orders, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ckOrderList, cloneAll(orders), r.ttl)
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	if err := r.next.Update(ctx, order); err != nil {
		r.invalidate(order.ID)
		return err
	}
	r.cache.Set(fmt.Sprintf(ckOrder, order.ID), order.Clone(), r.ttl)
	r.cache.Delete(ckOrderList)
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	defer r.invalidate(id)
	return r.next.Delete(ctx, id)
}

func (r *orderRepository) DeleteMany(ctx context.Context, ids []string) error {
	defer func() {
		for _, id := range ids {
			r.invalidate(id)
		}
	}()
	return r.next.DeleteMany(ctx, ids)
}

func (r *orderRepository) invalidate(id string) {
	r.cache.Delete(fmt.Sprintf(ckOrder, id))
	r.cache.Delete(ckOrderList)
}

func cloneAll(orders []*domain.Order) []*domain.Order {
	out := make([]*domain.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
