// Package memory provides the in-memory transactional store that every
// durable backend wraps. Transactions run against a cloned state; rules are
// evaluated before the clone replaces the live state.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"standcore/pkg/domain"
)

// Compile-time contract assertion against the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Ingredient aliases domain.Ingredient for in-memory persistence operations.
	Ingredient = domain.Ingredient
	// MenuItem aliases domain.MenuItem.
	MenuItem = domain.MenuItem
	// SaleRecord aliases domain.SaleRecord.
	SaleRecord = domain.SaleRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	ingredients map[string]Ingredient
	menuItems   map[string]MenuItem
	sales       []SaleRecord
}

// Snapshot captures a point-in-time clone of the store state. Sales keep
// insertion order; ingredients and menu items are keyed by id.
type Snapshot struct {
	Ingredients map[string]Ingredient `json:"ingredients"`
	MenuItems   map[string]MenuItem   `json:"menu_items"`
	Sales       []SaleRecord          `json:"sales"`
}

func newMemoryState() memoryState {
	return memoryState{
		ingredients: make(map[string]Ingredient),
		menuItems:   make(map[string]MenuItem),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Ingredients: make(map[string]Ingredient, len(state.ingredients)),
		MenuItems:   make(map[string]MenuItem, len(state.menuItems)),
		Sales:       make([]SaleRecord, 0, len(state.sales)),
	}
	for k, v := range state.ingredients {
		s.Ingredients[k] = cloneIngredient(v)
	}
	for k, v := range state.menuItems {
		s.MenuItems[k] = cloneMenuItem(v)
	}
	for _, sale := range state.sales {
		s.Sales = append(s.Sales, cloneSale(sale))
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Ingredients {
		state.ingredients[k] = cloneIngredient(v)
	}
	for k, v := range s.MenuItems {
		state.menuItems[k] = cloneMenuItem(v)
	}
	for _, sale := range s.Sales {
		state.sales = append(state.sales, cloneSale(sale))
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.ingredients {
		cloned.ingredients[k] = cloneIngredient(v)
	}
	for k, v := range s.menuItems {
		cloned.menuItems[k] = cloneMenuItem(v)
	}
	cloned.sales = make([]SaleRecord, 0, len(s.sales))
	for _, sale := range s.sales {
		cloned.sales = append(cloned.sales, cloneSale(sale))
	}
	return cloned
}

func cloneIngredient(i Ingredient) Ingredient { return i }

func cloneMenuItem(m MenuItem) MenuItem {
	cp := m
	cp.Toppings = append([]domain.IngredientRef(nil), m.Toppings...)
	cp.Sauces = append([]domain.IngredientRef(nil), m.Sauces...)
	if m.Side != nil {
		side := *m.Side
		cp.Side = &side
	}
	return cp
}

func cloneSale(s SaleRecord) SaleRecord {
	cp := s
	cp.Items = append([]domain.SaleLine(nil), s.Items...)
	if s.CustomerID != nil {
		id := *s.CustomerID
		cp.CustomerID = &id
	}
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// Seed replaces the full state with the provided snapshot. The memory
// backend has no durable layer, so this is just an import.
func (s *Store) Seed(snapshot Snapshot) error {
	s.ImportState(snapshot)
	return nil
}

// Reset clears all state.
func (s *Store) Reset() error {
	s.ImportState(Snapshot{})
	return nil
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider. Tests use this to pin timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// migrateSnapshot repairs snapshots loaded from external storage: nil maps
// become empty, and records whose map key disagrees with their id are rekeyed
// by id.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Ingredients == nil {
		snapshot.Ingredients = map[string]Ingredient{}
	}
	if snapshot.MenuItems == nil {
		snapshot.MenuItems = map[string]MenuItem{}
	}
	for key, ing := range snapshot.Ingredients {
		if ing.ID == "" {
			ing.ID = key
		}
		if ing.ID != key {
			delete(snapshot.Ingredients, key)
		}
		snapshot.Ingredients[ing.ID] = ing
	}
	for key, item := range snapshot.MenuItems {
		if item.ID == "" {
			item.ID = key
		}
		if item.ID != key {
			delete(snapshot.MenuItems, key)
		}
		snapshot.MenuItems[item.ID] = item
	}
	return snapshot
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListIngredients returns all ingredients within the transaction snapshot.
func (v transactionView) ListIngredients() []Ingredient {
	out := make([]Ingredient, 0, len(v.state.ingredients))
	for _, i := range v.state.ingredients {
		out = append(out, cloneIngredient(i))
	}
	return out
}

// ListMenuItems returns all menu items within the snapshot.
func (v transactionView) ListMenuItems() []MenuItem {
	out := make([]MenuItem, 0, len(v.state.menuItems))
	for _, m := range v.state.menuItems {
		out = append(out, cloneMenuItem(m))
	}
	return out
}

// ListSales returns all sale records in insertion order.
func (v transactionView) ListSales() []SaleRecord {
	out := make([]SaleRecord, 0, len(v.state.sales))
	for _, s := range v.state.sales {
		out = append(out, cloneSale(s))
	}
	return out
}

// FindIngredient retrieves an ingredient by id from the snapshot.
func (v transactionView) FindIngredient(id string) (Ingredient, bool) {
	i, ok := v.state.ingredients[id]
	if !ok {
		return Ingredient{}, false
	}
	return cloneIngredient(i), true
}

// FindMenuItem retrieves a menu item by id from the snapshot.
func (v transactionView) FindMenuItem(id string) (MenuItem, bool) {
	m, ok := v.state.menuItems[id]
	if !ok {
		return MenuItem{}, false
	}
	return cloneMenuItem(m), true
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The live state is replaced only if fn succeeds and no blocking rule
// violations are found.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindIngredient exposes ingredient lookup within the transaction scope.
func (tx *transaction) FindIngredient(id string) (Ingredient, bool) {
	i, ok := tx.state.ingredients[id]
	if !ok {
		return Ingredient{}, false
	}
	return cloneIngredient(i), true
}

// FindMenuItem exposes menu item lookup within the transaction scope.
func (tx *transaction) FindMenuItem(id string) (MenuItem, bool) {
	m, ok := tx.state.menuItems[id]
	if !ok {
		return MenuItem{}, false
	}
	return cloneMenuItem(m), true
}

func structuralError(entity domain.EntityType, violations []domain.Violation) error {
	if len(violations) == 0 {
		return nil
	}
	v := violations[0]
	return &domain.ValidationError{Entity: entity, Field: v.Rule, Rule: v.Rule, Detail: v.Message}
}

// CreateIngredient stores a new ingredient within the transaction. Structural
// validation runs before anything is staged.
func (tx *transaction) CreateIngredient(i Ingredient) (Ingredient, error) {
	if i.ID == "" {
		i.ID = tx.store.newID()
	}
	if _, exists := tx.state.ingredients[i.ID]; exists {
		return Ingredient{}, &domain.ValidationError{
			Entity: domain.EntityIngredient,
			Field:  "id",
			Rule:   "ingredient_id_unique",
			Detail: "ingredient " + i.ID + " already exists",
		}
	}
	if err := structuralError(domain.EntityIngredient, domain.ValidateIngredient(i)); err != nil {
		return Ingredient{}, err
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.ingredients[i.ID] = cloneIngredient(i)
	tx.recordChange(Change{Entity: domain.EntityIngredient, Action: domain.ActionCreate, After: cloneIngredient(i)})
	return cloneIngredient(i), nil
}

// UpdateIngredient mutates an ingredient using the provided mutator function.
func (tx *transaction) UpdateIngredient(id string, mutator func(*Ingredient) error) (Ingredient, error) {
	current, ok := tx.state.ingredients[id]
	if !ok {
		return Ingredient{}, &domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
	}
	before := cloneIngredient(current)
	if err := mutator(&current); err != nil {
		return Ingredient{}, err
	}
	current.ID = id
	if err := structuralError(domain.EntityIngredient, domain.ValidateIngredient(current)); err != nil {
		return Ingredient{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.ingredients[id] = cloneIngredient(current)
	tx.recordChange(Change{Entity: domain.EntityIngredient, Action: domain.ActionUpdate, Before: before, After: cloneIngredient(current)})
	return cloneIngredient(current), nil
}

// DeleteIngredient removes an ingredient from the transaction state. Callers
// that need cascade semantics remove dependent menu items in the same
// transaction before calling this.
func (tx *transaction) DeleteIngredient(id string) error {
	current, ok := tx.state.ingredients[id]
	if !ok {
		return &domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
	}
	delete(tx.state.ingredients, id)
	tx.recordChange(Change{Entity: domain.EntityIngredient, Action: domain.ActionDelete, Before: cloneIngredient(current)})
	return nil
}

// CreateMenuItem stores a new menu item within the transaction.
func (tx *transaction) CreateMenuItem(m MenuItem) (MenuItem, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.menuItems[m.ID]; exists {
		return MenuItem{}, &domain.ValidationError{
			Entity: domain.EntityMenuItem,
			Field:  "id",
			Rule:   "menu_item_id_unique",
			Detail: "menu item " + m.ID + " already exists",
		}
	}
	if err := structuralError(domain.EntityMenuItem, domain.ValidateMenuItem(m)); err != nil {
		return MenuItem{}, err
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.menuItems[m.ID] = cloneMenuItem(m)
	tx.recordChange(Change{Entity: domain.EntityMenuItem, Action: domain.ActionCreate, After: cloneMenuItem(m)})
	return cloneMenuItem(m), nil
}

// UpdateMenuItem mutates a menu item using the provided mutator function.
func (tx *transaction) UpdateMenuItem(id string, mutator func(*MenuItem) error) (MenuItem, error) {
	current, ok := tx.state.menuItems[id]
	if !ok {
		return MenuItem{}, &domain.NotFoundError{Entity: domain.EntityMenuItem, ID: id}
	}
	before := cloneMenuItem(current)
	if err := mutator(&current); err != nil {
		return MenuItem{}, err
	}
	current.ID = id
	if err := structuralError(domain.EntityMenuItem, domain.ValidateMenuItem(current)); err != nil {
		return MenuItem{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.menuItems[id] = cloneMenuItem(current)
	tx.recordChange(Change{Entity: domain.EntityMenuItem, Action: domain.ActionUpdate, Before: before, After: cloneMenuItem(current)})
	return cloneMenuItem(current), nil
}

// DeleteMenuItem removes a menu item from the transaction state.
func (tx *transaction) DeleteMenuItem(id string) error {
	current, ok := tx.state.menuItems[id]
	if !ok {
		return &domain.NotFoundError{Entity: domain.EntityMenuItem, ID: id}
	}
	delete(tx.state.menuItems, id)
	tx.recordChange(Change{Entity: domain.EntityMenuItem, Action: domain.ActionDelete, Before: cloneMenuItem(current)})
	return nil
}

// AppendSale records a sale. Sales are append-only; committed records carry no
// update or delete path.
func (tx *transaction) AppendSale(s SaleRecord) (SaleRecord, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	for _, existing := range tx.state.sales {
		if existing.ID == s.ID {
			return SaleRecord{}, &domain.ValidationError{
				Entity: domain.EntitySale,
				Field:  "id",
				Rule:   "sale_id_unique",
				Detail: "sale " + s.ID + " already recorded",
			}
		}
	}
	if err := structuralError(domain.EntitySale, domain.ValidateSale(s)); err != nil {
		return SaleRecord{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	if s.OccurredAt.IsZero() {
		s.OccurredAt = tx.now
	}
	tx.state.sales = append(tx.state.sales, cloneSale(s))
	tx.recordChange(Change{Entity: domain.EntitySale, Action: domain.ActionCreate, After: cloneSale(s)})
	return cloneSale(s), nil
}

// GetIngredient reads a single ingredient from the live state.
func (s *Store) GetIngredient(id string) (Ingredient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.ingredients[id]
	if !ok {
		return Ingredient{}, false
	}
	return cloneIngredient(i), true
}

// ListIngredients returns all ingredients from the live state.
func (s *Store) ListIngredients() []Ingredient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ingredient, 0, len(s.state.ingredients))
	for _, i := range s.state.ingredients {
		out = append(out, cloneIngredient(i))
	}
	return out
}

// GetMenuItem reads a single menu item from the live state.
func (s *Store) GetMenuItem(id string) (MenuItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.menuItems[id]
	if !ok {
		return MenuItem{}, false
	}
	return cloneMenuItem(m), true
}

// ListMenuItems returns all menu items from the live state.
func (s *Store) ListMenuItems() []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MenuItem, 0, len(s.state.menuItems))
	for _, m := range s.state.menuItems {
		out = append(out, cloneMenuItem(m))
	}
	return out
}

// ListSales returns all sale records from the live state in insertion order.
func (s *Store) ListSales() []SaleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SaleRecord, 0, len(s.state.sales))
	for _, sale := range s.state.sales {
		out = append(out, cloneSale(sale))
	}
	return out
}
