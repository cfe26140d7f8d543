package core

import (
	"context"
	"fmt"

	"standcore/pkg/domain"
)

// NewStockNonNegativeRule returns the in-transaction rule rejecting any
// commit that would leave an ingredient with negative stock. Structural
// validation already guards single-record writes; this rule is the
// whole-state check covering multi-ingredient sale decrements.
func NewStockNonNegativeRule() domain.Rule {
	return stockNonNegativeRule{}
}

type stockNonNegativeRule struct{}

func (stockNonNegativeRule) Name() string { return "stock_non_negative" }

func (stockNonNegativeRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ing := range view.ListIngredients() {
		if ing.Stock < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_non_negative",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s %q stock would drop to %d", ing.Category, ing.Name, ing.Stock),
				Entity:   domain.EntityIngredient,
				EntityID: ing.ID,
			})
		}
	}
	return res, nil
}
