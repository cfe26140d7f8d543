// Package report computes sales analytics over the committed ledger.
// Aggregations consider successful sales only; failed attempts stay in the
// ledger but carry no sold quantity.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"standcore/pkg/domain"
)

const dayFormat = "2006-01-02"

// ItemCount pairs a menu item name with a sold quantity.
type ItemCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// DateMetrics summarises one day of trading.
type DateMetrics struct {
	Sales   int     `json:"sales"`
	HotDogs int     `json:"hot_dogs"`
	Average float64 `json:"average"`
}

// Stats aggregates the whole ledger.
type Stats struct {
	TotalSales     int     `json:"total_sales"`
	TotalHotDogs   int     `json:"total_hot_dogs"`
	AveragePerSale float64 `json:"average_per_sale"`
	DaysWithSales  int     `json:"days_with_sales"`
	LargestSale    int     `json:"largest_sale"`
	SmallestSale   int     `json:"smallest_sale"`
}

// Engine reads the store and computes aggregations. It never mutates.
type Engine struct {
	store domain.PersistentStore
}

// New constructs a reporting engine over the given store.
func New(store domain.PersistentStore) *Engine {
	return &Engine{store: store}
}

func (e *Engine) successfulSales(ctx context.Context) ([]domain.SaleRecord, error) {
	var sales []domain.SaleRecord
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		sales = lo.Filter(view.ListSales(), func(s domain.SaleRecord, _ int) bool {
			return s.Success
		})
		return nil
	})
	return sales, err
}

// SalesByDate counts successful sales per calendar day.
func (e *Engine) SalesByDate(ctx context.Context) (map[string]int, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return nil, err
	}
	return lo.CountValuesBy(sales, func(s domain.SaleRecord) string {
		return s.OccurredAt.UTC().Format(dayFormat)
	}), nil
}

// HotDogsSoldByDate sums sold quantities per calendar day.
func (e *Engine) HotDogsSoldByDate(ctx context.Context) (map[string]int, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, sale := range sales {
		out[sale.OccurredAt.UTC().Format(dayFormat)] += sale.TotalQuantity()
	}
	return out, nil
}

// TopMenuItems returns the best-selling menu items, largest first, capped at
// limit. A non-positive limit returns the full ranking.
func (e *Engine) TopMenuItems(ctx context.Context, limit int) ([]ItemCount, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, sale := range sales {
		for _, line := range sale.Items {
			counts[line.MenuItemName] += line.Quantity
		}
	}
	ranked := lo.MapToSlice(counts, func(name string, qty int) ItemCount {
		return ItemCount{Name: name, Quantity: qty}
	})
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Name < ranked[j].Name
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// IngredientConsumption totals how many units of each ingredient the sold
// menu items consumed, keyed "category: name". Sales referencing a menu item
// that has since been deleted are skipped.
func (e *Engine) IngredientConsumption(ctx context.Context) (map[string]int, error) {
	consumption := make(map[string]int)
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, sale := range view.ListSales() {
			if !sale.Success {
				continue
			}
			for _, line := range sale.Items {
				item, ok := view.FindMenuItem(line.MenuItemID)
				if !ok {
					continue
				}
				for id, perUnit := range item.Requirements() {
					ing, ok := view.FindIngredient(id)
					if !ok {
						continue
					}
					key := fmt.Sprintf("%s: %s", ing.Category, ing.Name)
					consumption[key] += perUnit * line.Quantity
				}
			}
		}
		return nil
	})
	return consumption, err
}

// SalesByHour distributes successful sales over the 24 hours of the day.
// Every hour is present in the result, zero included.
func (e *Engine) SalesByHour(ctx context.Context) (map[int]int, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, 24)
	for hour := 0; hour < 24; hour++ {
		out[hour] = 0
	}
	for _, sale := range sales {
		out[sale.OccurredAt.UTC().Hour()]++
	}
	return out, nil
}

// SalesInHourRange counts successful sales between startHour and endHour,
// both inclusive.
func (e *Engine) SalesInHourRange(ctx context.Context, startHour, endHour int) (int, error) {
	if startHour < 0 || endHour > 23 || startHour > endHour {
		return 0, fmt.Errorf("invalid hour range %d..%d", startHour, endHour)
	}
	byHour, err := e.SalesByHour(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for hour := startHour; hour <= endHour; hour++ {
		total += byHour[hour]
	}
	return total, nil
}

// CompareDates computes per-day metrics for each requested day
// (format 2006-01-02). Days without sales report zeroes.
func (e *Engine) CompareDates(ctx context.Context, dates []string) (map[string]DateMetrics, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return nil, err
	}
	byDay := lo.GroupBy(sales, func(s domain.SaleRecord) string {
		return s.OccurredAt.UTC().Format(dayFormat)
	})
	out := make(map[string]DateMetrics, len(dates))
	for _, date := range dates {
		day := byDay[date]
		metrics := DateMetrics{Sales: len(day)}
		metrics.HotDogs = lo.SumBy(day, func(s domain.SaleRecord) int {
			return s.TotalQuantity()
		})
		if metrics.Sales > 0 {
			metrics.Average = round2(float64(metrics.HotDogs) / float64(metrics.Sales))
		}
		out[date] = metrics
	}
	return out, nil
}

// GeneralStats summarises the whole ledger. An empty ledger yields zeroes.
func (e *Engine) GeneralStats(ctx context.Context) (Stats, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return Stats{}, err
	}
	if len(sales) == 0 {
		return Stats{}, nil
	}
	perSale := lo.Map(sales, func(s domain.SaleRecord, _ int) int {
		return s.TotalQuantity()
	})
	total := lo.Sum(perSale)
	days := lo.Uniq(lo.Map(sales, func(s domain.SaleRecord, _ int) string {
		return s.OccurredAt.UTC().Format(dayFormat)
	}))
	return Stats{
		TotalSales:     len(sales),
		TotalHotDogs:   total,
		AveragePerSale: round2(float64(total) / float64(len(sales))),
		DaysWithSales:  len(days),
		LargestSale:    lo.Max(perSale),
		SmallestSale:   lo.Min(perSale),
	}, nil
}

// DateRange reports the earliest and latest trading days. Both strings are
// empty when the ledger holds no successful sale.
func (e *Engine) DateRange(ctx context.Context) (string, string, error) {
	sales, err := e.successfulSales(ctx)
	if err != nil {
		return "", "", err
	}
	if len(sales) == 0 {
		return "", "", nil
	}
	days := lo.Map(sales, func(s domain.SaleRecord, _ int) string {
		return s.OccurredAt.UTC().Format(dayFormat)
	})
	return lo.Min(days), lo.Max(days), nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
