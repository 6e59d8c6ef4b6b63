// Package persist coalesces rapid order edits into a single repository write.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// DefaultDelay is how long an order must stay untouched before it is written
const DefaultDelay = time.Second

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks; tests replace it with a manual clock
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc
func RealClock() Clock {
	return realClock{}
}

type pendingWrite struct {
	order *domain.Order
	timer Timer // nil while an immediate write is in flight
	gen   uint64
}

// Debouncer delays order writes and keeps only the latest state per order.
// A snapshot stays visible to Pending until its write has committed, so readers
// never fall back to storage that is about to be overwritten.
// Writes to different orders are independent and carry no ordering guarantee.
type Debouncer struct {
	repo  domain.OrderRepository
	clock Clock
	delay time.Duration
	log   zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[string]*pendingWrite

	writeMu sync.Mutex // Held across take-and-write so an older snapshot never lands last
}

// NewDebouncer creates a Debouncer writing through repo
func NewDebouncer(repo domain.OrderRepository, clock Clock, delay time.Duration, log zerolog.Logger) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		repo:    repo,
		clock:   clock,
		delay:   delay,
		log:     log.With().Str("component", "debouncer").Logger(),
		pending: make(map[string]*pendingWrite),
	}
}

// Schedule records the latest state of order and (re)starts its write timer
func (d *Debouncer) Schedule(order *domain.Order) {
	snapshot := order.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()

	gen := d.replaceLocked(snapshot)
	id := snapshot.ID
	d.pending[id].timer = d.clock.AfterFunc(d.delay, func() { d.fire(id, gen) })
}

// replaceLocked stores snapshot as the newest pending state of its order.
// d.mu must be held.
func (d *Debouncer) replaceLocked(snapshot *domain.Order) uint64 {
	if existing, ok := d.pending[snapshot.ID]; ok && existing.timer != nil {
		existing.timer.Stop()
	}

	d.gen++
	d.pending[snapshot.ID] = &pendingWrite{order: snapshot, gen: d.gen}
	return d.gen
}

// Pending returns a copy of the not-yet-written state of an order
func (d *Debouncer) Pending(id string) (*domain.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[id]
	if !ok {
		return nil, false
	}
	return p.order.Clone(), true
}

// Cancel drops any pending write for an order, e.g. because it was deleted
func (d *Debouncer) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[id]; ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(d.pending, id)
	}
}

// WriteNow replaces any pending write for order and stores it immediately
func (d *Debouncer) WriteNow(ctx context.Context, order *domain.Order) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	snapshot := order.Clone()
	d.mu.Lock()
	gen := d.replaceLocked(snapshot)
	d.mu.Unlock()

	err := d.write(ctx, snapshot)
	d.settle(snapshot.ID, gen)
	return err
}

// Flush writes every pending order now; used on shutdown
func (d *Debouncer) Flush(ctx context.Context) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	writes := make([]pendingWrite, 0, len(d.pending))
	for _, p := range d.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		writes = append(writes, pendingWrite{order: p.order, gen: p.gen})
	}
	d.mu.Unlock()

	var errs []error
	for _, w := range writes {
		if err := d.write(ctx, w.order); err != nil {
			errs = append(errs, err)
		}
		d.settle(w.order.ID, w.gen)
	}
	return errors.Join(errs...)
}

func (d *Debouncer) fire(id string, gen uint64) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	p, ok := d.pending[id]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	order := p.order
	d.mu.Unlock()

	err := d.write(context.Background(), order)
	d.settle(id, gen)
	if err != nil {
		d.log.Error().Err(err).Str("order_id", id).Msg("Debounced order write failed")
	}
}

// settle drops the written snapshot unless a newer edit replaced it meanwhile
func (d *Debouncer) settle(id string, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[id]; ok && p.gen == gen {
		delete(d.pending, id)
	}
}

// write must be called with writeMu held
func (d *Debouncer) write(ctx context.Context, order *domain.Order) error {
	if err := d.repo.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to write order %s: %w", order.ID, err)
	}
	d.log.Debug().Str("order_id", order.ID).Msg("Order written")
	return nil
}
