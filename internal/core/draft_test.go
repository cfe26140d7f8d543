package core

import (
	"context"
	"errors"
	"testing"

	"standcore/pkg/domain"
)

func TestDraftMergesDuplicateLines(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if draft.State() != DraftEmpty {
		t.Fatalf("state = %s, want empty", draft.State())
	}
	if err := draft.Add(item.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := draft.Add(item.ID, 1); err != nil {
		t.Fatalf("add again: %v", err)
	}
	lines := draft.Lines()
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want merged single line", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", lines[0].Quantity)
	}
	if draft.State() != DraftAccumulating {
		t.Fatalf("state = %s, want accumulating", draft.State())
	}
}

func TestDraftAddRejectsUnknownItemAndBadQuantity(t *testing.T) {
	svc := newTestService(t)
	draft := svc.NewSaleDraft()

	var nfe domain.NotFoundError
	if err := draft.Add("missing", 1); !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	var ve domain.ValidationError
	if err := draft.Add("whatever", 0); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDraftRemoveDropsAndEmpties(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := draft.Remove(item.ID, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if draft.Lines()[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", draft.Lines()[0].Quantity)
	}
	if err := draft.Remove(item.ID, 5); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if len(draft.Lines()) != 0 || draft.State() != DraftEmpty {
		t.Fatalf("draft not emptied: %d lines, state %s", len(draft.Lines()), draft.State())
	}
}

func TestCommitDecrementsEveryIngredientOnce(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	draft.SetCustomer("walk-in")
	if err := draft.Add(item.ID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	avail, err := draft.Preview(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !avail.OK {
		t.Fatalf("preview shortages: %+v", avail.Shortages)
	}
	recorded, _, err := draft.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !recorded.Success {
		t.Fatal("committed sale not marked successful")
	}
	if draft.State() != DraftCommitted {
		t.Fatalf("state = %s, want committed", draft.State())
	}

	gotBread, _ := svc.Ingredient(context.Background(), bread.ID)
	gotSausage, _ := svc.Ingredient(context.Background(), sausage.ID)
	if gotBread.Stock != 97 {
		t.Fatalf("bread stock = %d, want 97", gotBread.Stock)
	}
	if gotSausage.Stock != 72 {
		t.Fatalf("sausage stock = %d, want 72", gotSausage.Stock)
	}
	sales := svc.Store().ListSales()
	if len(sales) != 1 || sales[0].ID != recorded.ID {
		t.Fatalf("ledger holds %d sales", len(sales))
	}
	if recorded.CustomerID == nil || *recorded.CustomerID != "walk-in" {
		t.Fatal("customer id not carried onto the record")
	}
}

func TestCommitAggregatesSharedIngredients(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	spicy := mustIngredient(t, svc, domain.CategorySausage, "spicy", 30)
	plain := mustMenuItem(t, svc, "plain dog", bread, sausage)
	hot := mustMenuItem(t, svc, "hot dog deluxe", bread, spicy)

	draft := svc.NewSaleDraft()
	if err := draft.Add(plain.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := draft.Add(hot.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := draft.Preview(context.Background()); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if _, _, err := draft.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	gotBread, _ := svc.Ingredient(context.Background(), bread.ID)
	if gotBread.Stock != 97 {
		t.Fatalf("bread stock = %d, want 97 after 3 shared units", gotBread.Stock)
	}
}

func TestPreviewReportsShortageWithBlockedItems(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	cheese := mustIngredient(t, svc, domain.CategoryTopping, "cheese", 0)
	item := mustMenuItem(t, svc, "cheese dog", bread, sausage, cheese)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	avail, err := draft.Preview(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if avail.OK {
		t.Fatal("preview should report a shortage")
	}
	if len(avail.Shortages) != 1 {
		t.Fatalf("shortages = %+v", avail.Shortages)
	}
	s := avail.Shortages[0]
	if s.IngredientName != "cheese" || s.Required != 1 || s.Available != 0 {
		t.Fatalf("shortage = %+v", s)
	}
	if len(s.BlockedItems) != 1 || s.BlockedItems[0] != "cheese dog" {
		t.Fatalf("blocked items = %v", s.BlockedItems)
	}
	if draft.State() != DraftAccumulating {
		t.Fatalf("shortage must not advance the draft, state = %s", draft.State())
	}
}

func TestCommitRequiresPreview(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := draft.Commit(context.Background()); err == nil {
		t.Fatal("commit without preview must fail")
	}
}

func TestCommitFailsAtomicallyWhenStockMoved(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := draft.Preview(context.Background()); err != nil {
		t.Fatalf("preview: %v", err)
	}

	// Stock moves between preview and commit.
	if _, _, err := svc.SetIngredientStock(context.Background(), sausage.ID, 1); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	_, _, err := draft.Commit(context.Background())
	var iie domain.InsufficientInventoryError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	gotBread, _ := svc.Ingredient(context.Background(), bread.ID)
	if gotBread.Stock != 100 {
		t.Fatalf("bread stock = %d, commit must not partially decrement", gotBread.Stock)
	}
	if len(svc.Store().ListSales()) != 0 {
		t.Fatal("failed commit appended a sale")
	}
}

func TestCancelBlocksFurtherMutation(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := draft.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if draft.State() != DraftCancelled {
		t.Fatalf("state = %s, want cancelled", draft.State())
	}
	if err := draft.Add(item.ID, 1); err == nil {
		t.Fatal("cancelled draft accepted a new line")
	}
}

func TestCommittedDraftCannotBeCancelled(t *testing.T) {
	svc := newTestService(t)
	bread := mustIngredient(t, svc, domain.CategoryBread, "simple", 100)
	sausage := mustIngredient(t, svc, domain.CategorySausage, "classic", 75)
	item := mustMenuItem(t, svc, "plain dog", bread, sausage)

	draft := svc.NewSaleDraft()
	if err := draft.Add(item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := draft.Preview(context.Background()); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if _, _, err := draft.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := draft.Cancel(); err == nil {
		t.Fatal("committed draft must refuse cancellation")
	}
}

func TestPreviewEmptyDraftFails(t *testing.T) {
	svc := newTestService(t)
	draft := svc.NewSaleDraft()
	var ve domain.ValidationError
	if _, err := draft.Preview(context.Background()); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
