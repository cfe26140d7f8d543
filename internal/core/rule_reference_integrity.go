package core

import (
	"context"
	"fmt"

	"standcore/pkg/domain"
)

// NewReferenceIntegrityRule returns the rule checking that every menu item
// reference resolves to an existing ingredient, blocking the commit
// otherwise. A cached reference name that no longer matches the ingredient
// (after a rename) is reported as a warning, not a block: the id stays
// authoritative and the stale name surfaces at the next mutating commit.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, item := range view.ListMenuItems() {
		for _, ref := range item.References() {
			ing, ok := view.FindIngredient(ref.ID)
			if !ok {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "reference_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("menu item %q references missing ingredient %s (%q)", item.Name, ref.ID, ref.Name),
					Entity:   domain.EntityMenuItem,
					EntityID: item.ID,
				})
				continue
			}
			if ref.Name != "" && ing.Name != ref.Name {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "reference_integrity",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("menu item %q caches stale name %q for ingredient %q", item.Name, ref.Name, ing.Name),
					Entity:   domain.EntityMenuItem,
					EntityID: item.ID,
				})
			}
		}
	}
	return res, nil
}
