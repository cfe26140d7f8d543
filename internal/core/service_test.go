package core

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"standcore/internal/ident"
	"standcore/internal/seed"
	"standcore/pkg/domain"
)

func TestCreateIngredientAssignsTimestamps(t *testing.T) {
	svc := newTestService(t)
	created := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	if created.ID != ident.StableID("bread", "simple") {
		t.Fatalf("unexpected id %s", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestDuplicateIngredientNameBlocked(t *testing.T) {
	svc := newTestService(t)
	mustIngredient(t, svc, domain.CategoryBread, "simple", 100)

	_, res, err := svc.CreateIngredient(context.Background(), domain.Ingredient{
		Category: domain.CategoryBread,
		Name:     "Simple",
		Type:     "standard",
		Stock:    5,
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("result should carry a blocking violation")
	}
	if len(svc.Store().ListIngredients()) != 1 {
		t.Fatal("blocked duplicate was committed")
	}
}

func TestSameNameAcrossCategoriesAllowed(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "classic", 10)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 10)
	if bread.ID == sausage.ID {
		t.Fatal("distinct categories must yield distinct ids")
	}
}

func TestUpdateIngredientStockDelta(t *testing.T) {
	svc := newTestService(t)
	ing := mustIngredient(t, svc, domain.CategoryTopping, "onion", 20)

	updated, _, err := svc.UpdateIngredientStock(context.Background(), ing.ID, -5)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Stock != 15 {
		t.Fatalf("stock = %d, want 15", updated.Stock)
	}

	updated, _, err = svc.SetIngredientStock(context.Background(), ing.ID, 40)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if updated.Stock != 40 {
		t.Fatalf("stock = %d, want 40", updated.Stock)
	}
}

func TestStockCannotGoNegative(t *testing.T) {
	svc := newTestService(t)
	ing := mustIngredient(t, svc, domain.CategoryTopping, "onion", 3)

	_, _, err := svc.UpdateIngredientStock(context.Background(), ing.ID, -4)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, _ := svc.Ingredient(context.Background(), ing.ID)
	if got.Stock != 3 {
		t.Fatalf("stock changed to %d after rejected update", got.Stock)
	}
}

func TestCreateMenuItemResolvesReferencesByName(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "Simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "Classic", 75)

	created, _, err := svc.CreateMenuItem(context.Background(), domain.MenuItem{
		Name:    "plain dog",
		Bread:   domain.IngredientRef{Name: "simple"},
		Sausage: domain.IngredientRef{Name: "classic"},
	})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	if created.Bread.ID != bread.ID || created.Sausage.ID != sausage.ID {
		t.Fatal("references not resolved to catalog ids")
	}
	if created.Bread.Name != "Simple" {
		t.Fatalf("cached name %q, want catalog casing", created.Bread.Name)
	}
}

func TestCreateMenuItemUnknownReferenceFails(t *testing.T) {
	svc := newTestService(t)
	mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	mustIngredient(t, svc, domain.CategorySausage, "classic", 75)

	_, _, err := svc.CreateMenuItem(context.Background(), domain.MenuItem{
		Name:    "mystery dog",
		Bread:   domain.IngredientRef{Name: "simple"},
		Sausage: domain.IngredientRef{Name: "unicorn"},
	})
	var rie domain.ReferenceIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected ReferenceIntegrityError, got %v", err)
	}
	if rie.Category != domain.CategorySausage {
		t.Fatalf("error names category %s, want sausage", rie.Category)
	}
	if len(svc.Store().ListMenuItems()) != 0 {
		t.Fatal("failed create left a menu item behind")
	}
}

func TestRenameSurfacesStaleReferenceWarning(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	renamed, res, err := svc.RenameIngredient(context.Background(), bread.ID, "sesame")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "sesame" {
		t.Fatalf("name = %q", renamed.Name)
	}
	warned := false
	for _, v := range res.Violations {
		if v.Rule == "reference_integrity" && v.Severity == domain.SeverityWarn && v.EntityID == item.ID {
			warned = true
		}
	}
	if !warned {
		t.Fatal("stale cached reference name should warn on the mutating commit")
	}
	got, _ := svc.Store().GetMenuItem(item.ID)
	if got.Bread.ID != bread.ID {
		t.Fatal("reference id must survive the rename")
	}
}

func TestPreviewDeleteIngredientListsDependents(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	mustMenuItem(t, svc, "plain dog", bread, sausage)
	mustMenuItem(t, svc, "double dog", bread, sausage)

	names, err := svc.PreviewDeleteIngredient(context.Background(), bread.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(names) != 2 || names[0] != "double dog" || names[1] != "plain dog" {
		t.Fatalf("dependents = %v", names)
	}
	if len(svc.Store().ListMenuItems()) != 2 {
		t.Fatal("preview mutated the catalog")
	}
}

func TestDeleteIngredientRequiresCascadeConfirmation(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	mustMenuItem(t, svc, "plain dog", bread, sausage)

	_, err := svc.DeleteIngredient(context.Background(), bread.ID, false)
	var cce domain.CascadeConfirmationError
	if !errors.As(err, &cce) {
		t.Fatalf("expected CascadeConfirmationError, got %v", err)
	}
	if len(cce.MenuItems) != 1 || cce.MenuItems[0] != "plain dog" {
		t.Fatalf("confirmation preview = %v", cce.MenuItems)
	}
	if _, ok := svc.Store().GetIngredient(bread.ID); !ok {
		t.Fatal("refused delete removed the ingredient")
	}
}

func TestDeleteIngredientCascadeRemovesDependents(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	crusty := mustIngredient(t, svc, domain.CategoryBread, "crusty", 50)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	plain := mustMenuItem(t, svc, "plain dog", bread, sausage)
	other := mustMenuItem(t, svc, "crusty dog", crusty, sausage)

	if _, err := svc.DeleteIngredient(context.Background(), bread.ID, true); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}
	if _, ok := svc.Store().GetIngredient(bread.ID); ok {
		t.Fatal("ingredient survived cascade delete")
	}
	if _, ok := svc.Store().GetMenuItem(plain.ID); ok {
		t.Fatal("dependent menu item survived cascade delete")
	}
	if _, ok := svc.Store().GetMenuItem(other.ID); !ok {
		t.Fatal("unrelated menu item was removed")
	}
}

func TestDeleteUnreferencedIngredientNeedsNoConfirmation(t *testing.T) {
	svc := newTestService(t)
	onion := mustIngredient(t, svc, domain.CategoryTopping, "onion", 10)
	if _, err := svc.DeleteIngredient(context.Background(), onion.ID, false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := svc.Store().GetIngredient(onion.ID); ok {
		t.Fatal("ingredient not deleted")
	}
}

func TestRecordFailedSaleLeavesStockUntouched(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	recorded, _, err := svc.RecordFailedSale(context.Background(), domain.SaleRecord{
		Items: []domain.SaleLine{{MenuItemID: item.ID, MenuItemName: item.Name, Quantity: 2}},
	}, "card declined")
	if err != nil {
		t.Fatalf("record failed sale: %v", err)
	}
	if recorded.Success {
		t.Fatal("failed sale marked successful")
	}
	if recorded.FailureReason != "card declined" {
		t.Fatalf("reason = %q", recorded.FailureReason)
	}
	got, _ := svc.Ingredient(context.Background(), bread.ID)
	if got.Stock != 100 {
		t.Fatalf("failed sale moved stock to %d", got.Stock)
	}
}

func TestSalesBetweenFiltersHalfOpenRange(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, when := range []time.Time{base.Add(-time.Hour), base, base.Add(30 * time.Minute), base.Add(time.Hour)} {
		_, _, err := svc.RecordFailedSale(context.Background(), domain.SaleRecord{
			Base:       domain.Base{ID: ident.StableID("sale", when.Format(time.RFC3339))},
			Items:      []domain.SaleLine{{MenuItemID: item.ID, MenuItemName: item.Name, Quantity: 1}},
			OccurredAt: when,
		}, "test")
		if err != nil {
			t.Fatalf("record sale %d: %v", i, err)
		}
	}

	sales, err := svc.SalesBetween(context.Background(), base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("sales between: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("got %d sales in range, want 2", len(sales))
	}
}

func TestSeedIsIdempotentAcrossReset(t *testing.T) {
	svc := newTestService(t)
	snap := seed.Snapshot{
		Ingredients: []domain.Ingredient{
			{
				Base:     domain.Base{ID: ident.StableID("bread", "simple")},
				Category: domain.CategoryBread,
				Name:     "simple",
				Type:     "standard",
				Stock:    100,
			},
			{
				Base:     domain.Base{ID: ident.StableID("sausage", "classic")},
				Category: domain.CategorySausage,
				Name:     "classic",
				Type:     "standard",
				Stock:    75,
			},
		},
	}
	if err := svc.SeedFromSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := svc.Store().ListIngredients()

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(svc.Store().ListIngredients()) != 0 {
		t.Fatal("reset left ingredients behind")
	}

	if err := svc.SeedFromSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	after := svc.Store().ListIngredients()
	if len(before) != len(after) {
		t.Fatalf("reseed produced %d ingredients, want %d", len(after), len(before))
	}
	ids := make(map[string]bool, len(before))
	for _, ing := range before {
		ids[ing.ID] = true
	}
	for _, ing := range after {
		if !ids[ing.ID] {
			t.Fatalf("reseed changed id for %s", ing.Name)
		}
	}
}

func TestInventorySnapshotReflectsStock(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	onion := mustIngredient(t, svc, domain.CategoryTopping, "onion", 20)

	stock, err := svc.InventorySnapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stock[bread.ID] != 100 || stock[onion.ID] != 20 {
		t.Fatalf("snapshot = %v", stock)
	}
}

func TestIngredientsByCategorySortsByName(t *testing.T) {
	svc := newTestService(t)
	mustIngredient(t, svc, domain.CategoryTopping, "onion", 10)
	mustIngredient(t, svc, domain.CategoryTopping, "cheese", 10)
	mustIngredient(t, svc, domain.CategoryBread, "simple", 10)

	toppings, err := svc.IngredientsByCategory(context.Background(), domain.CategoryTopping)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(toppings) != 2 || toppings[0].Name != "cheese" || toppings[1].Name != "onion" {
		t.Fatalf("toppings = %+v", toppings)
	}
}

func TestStockStaysNonNegativeUnderRandomSequences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 8)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "frankfurt", 8)
	cheese := mustIngredient(t, svc, domain.CategoryTopping, "cheese", 4)
	item := mustMenuItem(t, svc, "cheese dog", bread, sausage, cheese)
	ids := []string{bread.ID, sausage.ID, cheese.ID}

	assertNonNegative := func(step int) {
		t.Helper()
		stock, err := svc.InventorySnapshot(ctx)
		if err != nil {
			t.Fatalf("step %d: snapshot: %v", step, err)
		}
		for id, qty := range stock {
			if qty < 0 {
				t.Fatalf("step %d: ingredient %s stock went negative: %d", step, id, qty)
			}
		}
	}

	rng := rand.New(rand.NewSource(7))
	for step := 0; step < 300; step++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			delta := rng.Intn(11) - 5
			_, _, err := svc.UpdateIngredientStock(ctx, id, delta)
			if err != nil {
				var verr *domain.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("step %d: adjust by %d: %v", step, delta, err)
				}
			}
		case 1:
			_, _, err := svc.SetIngredientStock(ctx, id, rng.Intn(6))
			if err != nil {
				t.Fatalf("step %d: set stock: %v", step, err)
			}
		default:
			draft := svc.NewSaleDraft()
			if err := draft.Add(item.ID, 1+rng.Intn(3)); err != nil {
				t.Fatalf("step %d: add line: %v", step, err)
			}
			avail, err := draft.Preview(ctx)
			if err != nil {
				t.Fatalf("step %d: preview: %v", step, err)
			}
			if !avail.OK {
				if err := draft.Cancel(); err != nil {
					t.Fatalf("step %d: cancel: %v", step, err)
				}
				break
			}
			if _, _, err := draft.Commit(ctx); err != nil {
				t.Fatalf("step %d: commit: %v", step, err)
			}
		}
		assertNonNegative(step)
	}
}
