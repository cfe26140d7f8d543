package core

import (
	"context"
	"errors"
	"testing"

	"standcore/internal/infra/persistence/memory"
	"standcore/pkg/domain"
)

func TestStockNonNegativeRuleBlocksCommitOverBadState(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine())
	ctx := context.Background()

	// Seeding bypasses per-mutation validation; the whole-state rule is the
	// backstop that keeps a bad import from being built upon.
	if err := store.Seed(memory.Snapshot{Ingredients: map[string]domain.Ingredient{
		"bread-1": {
			Base:     domain.Base{ID: "bread-1"},
			Category: domain.CategoryBread,
			Name:     "simple",
			Type:     "standard",
			Stock:    -3,
		},
	}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateIngredient(domain.Ingredient{
			Base:     domain.Base{ID: "sausage-1"},
			Category: domain.CategorySausage,
			Name:     "classic",
			Type:     "standard",
			Stock:    5,
		})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	blocked := false
	for _, v := range res.Violations {
		if v.Rule == "stock_non_negative" && v.Severity == domain.SeverityBlock {
			blocked = true
		}
	}
	if !blocked {
		t.Fatalf("violations = %+v", res.Violations)
	}
}

func TestUniqueNamesRuleBlocksDuplicateMenuName(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 10)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 10)
	mustMenuItem(t, svc, "plain dog", bread, sausage)

	_, res, err := svc.CreateMenuItem(context.Background(), domain.MenuItem{
		Name:    "Plain Dog",
		Bread:   domain.IngredientRef{ID: bread.ID, Name: bread.Name},
		Sausage: domain.IngredientRef{ID: sausage.ID, Name: sausage.Name},
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("result should carry a blocking violation")
	}
}

func TestReferenceIntegrityRuleBlocksMissingIngredient(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine())

	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateMenuItem(domain.MenuItem{
			Base:    domain.Base{ID: "menu-1"},
			Name:    "ghost dog",
			Bread:   domain.IngredientRef{ID: "missing-bread", Name: "simple"},
			Sausage: domain.IngredientRef{ID: "missing-sausage", Name: "classic"},
		})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	blocked := false
	for _, v := range res.Violations {
		if v.Rule == "reference_integrity" && v.Severity == domain.SeverityBlock {
			blocked = true
		}
	}
	if !blocked {
		t.Fatalf("violations = %+v", res.Violations)
	}
	if len(store.ListMenuItems()) != 0 {
		t.Fatal("blocked menu item was committed")
	}
}

func TestReferenceIntegrityRuleWarnsOnStaleCachedName(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 10)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 10)
	mustMenuItem(t, svc, "plain dog", bread, sausage)

	// The rename commit itself is the next mutating commit.
	_, res, err := svc.RenameIngredient(context.Background(), bread.ID, "sesame")
	if err != nil {
		t.Fatalf("rename must commit despite the warning: %v", err)
	}
	if res.HasBlocking() {
		t.Fatal("stale cached name must warn, not block")
	}
	found := false
	for _, v := range res.Violations {
		if v.Rule == "reference_integrity" && v.Severity == domain.SeverityWarn {
			found = true
		}
	}
	if !found {
		t.Fatalf("violations = %+v", res.Violations)
	}
}
