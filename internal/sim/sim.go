// Package sim drives synthetic trading days against the live catalog.
// Orders that cannot be served from stock are recorded as unsuccessful
// sales, so the ledger reflects lost demand alongside served demand.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"standcore/internal/core"
	"standcore/pkg/domain"
)

// Clock is a controllable time source shared between the simulator and the
// service it drives, so committed sales carry simulated timestamps.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock starts a clock at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{t: start.UTC()}
}

// Now returns the current simulated instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

// Set jumps the clock to a specific instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t.UTC()
}

// Options bounds a simulation run.
type Options struct {
	Days            int
	MinSalesPerDay  int
	MaxSalesPerDay  int
	MaxLinesPerSale int
	MaxQuantity     int
	OpeningHour     int
	ClosingHour     int
	Seed            uint64
}

func (o Options) withDefaults() Options {
	if o.Days <= 0 {
		o.Days = 1
	}
	if o.MinSalesPerDay <= 0 {
		o.MinSalesPerDay = 5
	}
	if o.MaxSalesPerDay < o.MinSalesPerDay {
		o.MaxSalesPerDay = o.MinSalesPerDay + 10
	}
	if o.MaxLinesPerSale <= 0 {
		o.MaxLinesPerSale = 3
	}
	if o.MaxQuantity <= 0 {
		o.MaxQuantity = 4
	}
	if o.OpeningHour <= 0 {
		o.OpeningHour = 9
	}
	if o.ClosingHour <= o.OpeningHour {
		o.ClosingHour = o.OpeningHour + 10
	}
	return o
}

// Result totals one simulation run.
type Result struct {
	Days      int
	Attempted int
	Succeeded int
	Failed    int
}

// Simulator generates synthetic customers and orders.
type Simulator struct {
	svc   *core.Service
	clock *Clock
	faker *gofakeit.Faker
	log   *zap.Logger
	opts  Options
}

// New constructs a simulator over a service whose clock is the given one.
func New(svc *core.Service, clock *Clock, opts Options, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	o := opts.withDefaults()
	return &Simulator{
		svc:   svc,
		clock: clock,
		faker: gofakeit.New(o.Seed),
		log:   log,
		opts:  o,
	}
}

// Run plays the configured number of trading days. Each day spreads a random
// number of orders across opening hours; an order the stock cannot serve is
// recorded as a failed sale and trading continues.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	menu, err := s.svc.MenuItems(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load menu: %w", err)
	}
	if len(menu) == 0 {
		return Result{}, fmt.Errorf("menu is empty, nothing to sell")
	}

	res := Result{Days: s.opts.Days}
	dayStart := s.clock.Now().Truncate(24 * time.Hour).Add(time.Duration(s.opts.OpeningHour) * time.Hour)

	for day := 0; day < s.opts.Days; day++ {
		s.clock.Set(dayStart.AddDate(0, 0, day))
		orders := s.faker.Number(s.opts.MinSalesPerDay, s.opts.MaxSalesPerDay)
		window := time.Duration(s.opts.ClosingHour-s.opts.OpeningHour) * time.Hour
		step := window / time.Duration(orders+1)

		for i := 0; i < orders; i++ {
			s.clock.Advance(step)
			res.Attempted++
			ok, err := s.placeOrder(ctx, menu)
			if err != nil {
				return res, err
			}
			if ok {
				res.Succeeded++
			} else {
				res.Failed++
			}
		}
		s.log.Info("simulated trading day",
			zap.Int("day", day+1),
			zap.Int("orders", orders))
	}
	return res, nil
}

func (s *Simulator) placeOrder(ctx context.Context, menu []domain.MenuItem) (bool, error) {
	customer := s.faker.Name()
	lineCount := s.faker.Number(1, s.opts.MaxLinesPerSale)
	if lineCount > len(menu) {
		lineCount = len(menu)
	}

	draft := s.svc.NewSaleDraft()
	draft.SetCustomer(customer)
	chosen := make(map[int]bool, lineCount)
	for len(chosen) < lineCount {
		chosen[s.faker.Number(0, len(menu)-1)] = true
	}
	indexes := make([]int, 0, len(chosen))
	for idx := range chosen {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		qty := s.faker.Number(1, s.opts.MaxQuantity)
		if err := draft.Add(menu[idx].ID, qty); err != nil {
			return false, fmt.Errorf("add line: %w", err)
		}
	}

	avail, err := draft.Preview(ctx)
	if err != nil {
		return false, fmt.Errorf("preview: %w", err)
	}
	if !avail.OK {
		reason := domain.InsufficientInventoryError{Shortages: avail.Shortages}.Error()
		record := domain.SaleRecord{
			CustomerID: &customer,
			Items:      draft.Lines(),
			OccurredAt: s.clock.Now(),
		}
		if _, _, err := s.svc.RecordFailedSale(ctx, record, reason); err != nil {
			return false, fmt.Errorf("record failed sale: %w", err)
		}
		if err := draft.Cancel(); err != nil {
			return false, err
		}
		return false, nil
	}
	if _, _, err := draft.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
