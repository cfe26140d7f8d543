package adapt

import (
	"fmt"
	"strings"
)

type stockSeedTransform struct {
	defaultStock int
	byCategory   map[string]int
}

// NewStockSeedTransform injects a default stock value into every ingredient
// record that lacks one. Applies only to the grouped ingredient shape; records
// that already carry a stock field are left alone, keeping the transform
// idempotent and locally-mutated stock intact across reloads.
func NewStockSeedTransform(defaultStock int, byCategory map[string]int) Transform {
	folded := make(map[string]int, len(byCategory))
	for k, v := range byCategory {
		folded[strings.ToLower(k)] = v
	}
	return stockSeedTransform{defaultStock: defaultStock, byCategory: folded}
}

func (stockSeedTransform) Name() string { return "stock_seeding" }

func (t stockSeedTransform) Apply(raw any) (any, bool, error) {
	groups, ok := raw.([]any)
	if !ok {
		return nil, false, fmt.Errorf("stock seeding: expected a list of category groups, got %T", raw)
	}
	changed := false
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		category := strings.ToLower(stringValue(group, "category"))
		stock := t.defaultStock
		if v, ok := t.byCategory[category]; ok {
			stock = v
		}
		optsVal, ok := lookupValue(group, "options")
		if !ok {
			continue
		}
		options, ok := optsVal.([]any)
		if !ok {
			continue
		}
		for _, o := range options {
			record, ok := o.(map[string]any)
			if !ok {
				continue
			}
			if _, exists := lookupValue(record, "stock"); exists {
				continue
			}
			record["stock"] = stock
			changed = true
		}
	}
	return groups, changed, nil
}
