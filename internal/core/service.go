package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"standcore/internal/infra/persistence/memory"
	"standcore/internal/seed"
	"standcore/pkg/domain"
)

// Service exposes higher-level transactional operations over the catalog,
// the inventory, and the sales ledger.
type Service struct {
	store   DurableStore
	log     *zap.Logger
	metrics MetricsRecorder
	nowFn   func() time.Time
}

// ServiceOption customises a Service at construction time.
type ServiceOption func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetricsRecorder attaches a metrics sink to the service.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithNowFunc overrides the service clock.
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store DurableStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		log:     zap.NewNop(),
		metrics: NoopMetricsRecorder{},
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. Intended for tests and ephemeral runs.
func NewInMemoryService(engine *domain.RulesEngine) *Service {
	return NewService(memory.NewStore(engine))
}

// Store returns the underlying storage implementation.
func (s *Service) Store() DurableStore {
	return s.store
}

func (s *Service) observe(ctx context.Context, op string, started time.Time, res domain.Result, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.log.Warn("rule warning",
				zap.String("operation", op),
				zap.String("rule", v.Rule),
				zap.String("entity_id", v.EntityID),
				zap.String("message", v.Message))
		}
	}
	if err != nil {
		s.log.Debug("operation failed", zap.String("operation", op), zap.Error(err))
	}
}

// CreateIngredient persists a new catalog ingredient.
func (s *Service) CreateIngredient(ctx context.Context, ing domain.Ingredient) (domain.Ingredient, domain.Result, error) {
	started := s.nowFn()
	var created domain.Ingredient
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateIngredient(ing)
		return err
	})
	s.observe(ctx, "create_ingredient", started, res, err)
	return created, res, err
}

// UpdateIngredient applies a mutator to an existing ingredient.
func (s *Service) UpdateIngredient(ctx context.Context, id string, mutator func(*domain.Ingredient) error) (domain.Ingredient, domain.Result, error) {
	started := s.nowFn()
	var updated domain.Ingredient
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateIngredient(id, mutator)
		return err
	})
	s.observe(ctx, "update_ingredient", started, res, err)
	return updated, res, err
}

// RenameIngredient changes an ingredient's display name. Its id, and the ids
// cached inside menu item references, stay unchanged; stale cached names are
// surfaced as warnings by the next mutating commit.
func (s *Service) RenameIngredient(ctx context.Context, id, name string) (domain.Ingredient, domain.Result, error) {
	return s.UpdateIngredient(ctx, id, func(ing *domain.Ingredient) error {
		ing.Name = name
		return nil
	})
}

// UpdateIngredientStock applies a signed delta to an ingredient's stock.
// A delta driving stock below zero blocks the commit.
func (s *Service) UpdateIngredientStock(ctx context.Context, id string, delta int) (domain.Ingredient, domain.Result, error) {
	started := s.nowFn()
	var updated domain.Ingredient
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateIngredient(id, func(ing *domain.Ingredient) error {
			ing.Stock += delta
			return nil
		})
		return err
	})
	s.observe(ctx, "update_ingredient_stock", started, res, err)
	return updated, res, err
}

// SetIngredientStock replaces an ingredient's stock with an absolute quantity.
func (s *Service) SetIngredientStock(ctx context.Context, id string, quantity int) (domain.Ingredient, domain.Result, error) {
	started := s.nowFn()
	var updated domain.Ingredient
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateIngredient(id, func(ing *domain.Ingredient) error {
			ing.Stock = quantity
			return nil
		})
		return err
	})
	s.observe(ctx, "set_ingredient_stock", started, res, err)
	return updated, res, err
}

// PreviewDeleteIngredient reports the menu item names that deleting the
// ingredient would cascade to, without mutating anything.
func (s *Service) PreviewDeleteIngredient(ctx context.Context, id string) ([]string, error) {
	var names []string
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindIngredient(id); !ok {
			return domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
		}
		names = referencingMenuItems(view, id)
		return nil
	})
	return names, err
}

// DeleteIngredient removes an ingredient. When menu items still reference it
// the call fails with CascadeConfirmationError unless cascade is set, in
// which case the referencing menu items are deleted in the same transaction.
func (s *Service) DeleteIngredient(ctx context.Context, id string, cascade bool) (domain.Result, error) {
	started := s.nowFn()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		ing, ok := tx.FindIngredient(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
		}
		view := tx.Snapshot()
		dependents := referencingMenuItems(view, id)
		if len(dependents) > 0 && !cascade {
			return domain.CascadeConfirmationError{
				IngredientID:   id,
				IngredientName: ing.Name,
				MenuItems:      dependents,
			}
		}
		for _, item := range view.ListMenuItems() {
			if menuItemReferences(item, id) {
				if err := tx.DeleteMenuItem(item.ID); err != nil {
					return err
				}
			}
		}
		return tx.DeleteIngredient(id)
	})
	s.observe(ctx, "delete_ingredient", started, res, err)
	return res, err
}

// CreateMenuItem persists a new composed menu item. Every reference must
// resolve to an existing ingredient; cached reference names are refreshed
// from the catalog before the commit.
func (s *Service) CreateMenuItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, domain.Result, error) {
	started := s.nowFn()
	var created domain.MenuItem
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		refreshed, err := refreshReferences(tx.Snapshot(), item)
		if err != nil {
			return err
		}
		created, err = tx.CreateMenuItem(refreshed)
		return err
	})
	s.observe(ctx, "create_menu_item", started, res, err)
	return created, res, err
}

// UpdateMenuItem applies a mutator to an existing menu item.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, mutator func(*domain.MenuItem) error) (domain.MenuItem, domain.Result, error) {
	started := s.nowFn()
	var updated domain.MenuItem
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateMenuItem(id, mutator)
		return err
	})
	s.observe(ctx, "update_menu_item", started, res, err)
	return updated, res, err
}

// DeleteMenuItem removes a menu item from the catalog. Historic sales keep
// their recorded lines.
func (s *Service) DeleteMenuItem(ctx context.Context, id string) (domain.Result, error) {
	started := s.nowFn()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteMenuItem(id)
	})
	s.observe(ctx, "delete_menu_item", started, res, err)
	return res, err
}

// RecordFailedSale appends an unsuccessful sale attempt to the ledger.
// Stock is untouched.
func (s *Service) RecordFailedSale(ctx context.Context, sale domain.SaleRecord, reason string) (domain.SaleRecord, domain.Result, error) {
	started := s.nowFn()
	sale.Success = false
	sale.FailureReason = reason
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = s.nowFn().UTC()
	}
	var recorded domain.SaleRecord
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		recorded, err = tx.AppendSale(sale)
		return err
	})
	s.observe(ctx, "record_failed_sale", started, res, err)
	return recorded, res, err
}

// Ingredient fetches one ingredient by id.
func (s *Service) Ingredient(ctx context.Context, id string) (domain.Ingredient, error) {
	var ing domain.Ingredient
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		found, ok := view.FindIngredient(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
		}
		ing = found
		return nil
	})
	return ing, err
}

// IngredientsByCategory lists the ingredients of one category sorted by name.
func (s *Service) IngredientsByCategory(ctx context.Context, category domain.Category) ([]domain.Ingredient, error) {
	var out []domain.Ingredient
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, ing := range view.ListIngredients() {
			if ing.Category == category {
				out = append(out, ing)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MenuItems lists the full menu sorted by name.
func (s *Service) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		out = view.ListMenuItems()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SalesBetween lists the sale records whose occurrence time falls in
// [from, to), in ledger order.
func (s *Service) SalesBetween(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error) {
	var out []domain.SaleRecord
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, sale := range view.ListSales() {
			if sale.OccurredAt.Before(from) || !sale.OccurredAt.Before(to) {
				continue
			}
			out = append(out, sale)
		}
		return nil
	})
	return out, err
}

// InventorySnapshot returns current stock per ingredient id.
func (s *Service) InventorySnapshot(ctx context.Context) (map[string]int, error) {
	stock := make(map[string]int)
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, ing := range view.ListIngredients() {
			stock[ing.ID] = ing.Stock
		}
		return nil
	})
	return stock, err
}

// Empty reports whether the store holds no catalog data yet.
func (s *Service) Empty(ctx context.Context) (bool, error) {
	empty := false
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		empty = len(view.ListIngredients()) == 0 && len(view.ListMenuItems()) == 0
		return nil
	})
	return empty, err
}

// SeedFromSnapshot loads an adapted catalog snapshot into the store.
// Seeding is idempotent: records land under their derived ids, so loading
// the same snapshot twice yields the same state.
func (s *Service) SeedFromSnapshot(ctx context.Context, snap seed.Snapshot) error {
	started := s.nowFn()
	state := memory.Snapshot{
		Ingredients: make(map[string]domain.Ingredient, len(snap.Ingredients)),
		MenuItems:   make(map[string]domain.MenuItem, len(snap.MenuItems)),
	}
	now := s.nowFn().UTC()
	for _, ing := range snap.Ingredients {
		if ing.ID == "" {
			return fmt.Errorf("seed ingredient %q has no id", ing.Name)
		}
		ing.CreatedAt, ing.UpdatedAt = now, now
		state.Ingredients[ing.ID] = ing
	}
	for _, item := range snap.MenuItems {
		if item.ID == "" {
			return fmt.Errorf("seed menu item %q has no id", item.Name)
		}
		item.CreatedAt, item.UpdatedAt = now, now
		state.MenuItems[item.ID] = item
	}
	err := s.store.Seed(state)
	s.observe(ctx, "seed", started, domain.Result{}, err)
	if err == nil {
		s.log.Info("catalog seeded",
			zap.Int("ingredients", len(state.Ingredients)),
			zap.Int("menu_items", len(state.MenuItems)))
	}
	return err
}

// Reset wipes the store back to empty. The next run re-fetches and
// re-adapts the catalog; derived ids make the reload converge on the same
// identifiers.
func (s *Service) Reset(ctx context.Context) error {
	started := s.nowFn()
	err := s.store.Reset()
	s.observe(ctx, "reset", started, domain.Result{}, err)
	if err == nil {
		s.log.Info("store reset")
	}
	return err
}

func menuItemReferences(item domain.MenuItem, ingredientID string) bool {
	for _, ref := range item.References() {
		if ref.ID == ingredientID {
			return true
		}
	}
	return false
}

func referencingMenuItems(view domain.TransactionView, ingredientID string) []string {
	var names []string
	for _, item := range view.ListMenuItems() {
		if menuItemReferences(item, ingredientID) {
			names = append(names, item.Name)
		}
	}
	sort.Strings(names)
	return names
}

// refreshReferences resolves every reference of the item against the current
// catalog. A reference carrying only a name is resolved case-insensitively
// within its slot's category; a reference carrying an id must exist.
func refreshReferences(view domain.TransactionView, item domain.MenuItem) (domain.MenuItem, error) {
	var err error
	if item.Bread, err = resolveRef(view, domain.CategoryBread, item.Bread); err != nil {
		return domain.MenuItem{}, err
	}
	if item.Sausage, err = resolveRef(view, domain.CategorySausage, item.Sausage); err != nil {
		return domain.MenuItem{}, err
	}
	toppings := make([]domain.IngredientRef, len(item.Toppings))
	for i, ref := range item.Toppings {
		if toppings[i], err = resolveRef(view, domain.CategoryTopping, ref); err != nil {
			return domain.MenuItem{}, err
		}
	}
	item.Toppings = toppings
	sauces := make([]domain.IngredientRef, len(item.Sauces))
	for i, ref := range item.Sauces {
		if sauces[i], err = resolveRef(view, domain.CategorySauce, ref); err != nil {
			return domain.MenuItem{}, err
		}
	}
	item.Sauces = sauces
	if item.Side != nil {
		side, err := resolveRef(view, domain.CategorySide, *item.Side)
		if err != nil {
			return domain.MenuItem{}, err
		}
		item.Side = &side
	}
	return item, nil
}

func resolveRef(view domain.TransactionView, category domain.Category, ref domain.IngredientRef) (domain.IngredientRef, error) {
	if ref.ID != "" {
		ing, ok := view.FindIngredient(ref.ID)
		if !ok {
			return domain.IngredientRef{}, domain.ReferenceIntegrityError{Category: category, Name: ref.Name, ID: ref.ID}
		}
		return domain.IngredientRef{ID: ing.ID, Name: ing.Name}, nil
	}
	want := strings.ToLower(strings.TrimSpace(ref.Name))
	for _, ing := range view.ListIngredients() {
		if ing.Category == category && strings.ToLower(ing.Name) == want {
			return domain.IngredientRef{ID: ing.ID, Name: ing.Name}, nil
		}
	}
	return domain.IngredientRef{}, domain.ReferenceIntegrityError{Category: category, Name: ref.Name}
}
