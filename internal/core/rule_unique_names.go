package core

import (
	"context"
	"fmt"
	"strings"

	"standcore/pkg/domain"
)

// NewUniqueNamesRule returns the rule enforcing natural-key uniqueness:
// no two ingredients may share a (category, name) pair and no two menu items
// may share a name. Names compare case-insensitively because stable ids are
// derived from folded keys.
func NewUniqueNamesRule() domain.Rule {
	return uniqueNamesRule{}
}

type uniqueNamesRule struct{}

func (uniqueNamesRule) Name() string { return "unique_names" }

func (uniqueNamesRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	seenIngredients := make(map[string]string)
	for _, ing := range view.ListIngredients() {
		key := string(ing.Category) + ":" + strings.ToLower(ing.Name)
		if otherID, dup := seenIngredients[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "unique_names",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s %q duplicates ingredient %s", ing.Category, ing.Name, otherID),
				Entity:   domain.EntityIngredient,
				EntityID: ing.ID,
			})
			continue
		}
		seenIngredients[key] = ing.ID
	}

	seenItems := make(map[string]string)
	for _, item := range view.ListMenuItems() {
		key := strings.ToLower(item.Name)
		if otherID, dup := seenItems[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "unique_names",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("menu item %q duplicates %s", item.Name, otherID),
				Entity:   domain.EntityMenuItem,
				EntityID: item.ID,
			})
			continue
		}
		seenItems[key] = item.ID
	}
	return res, nil
}
