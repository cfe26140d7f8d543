package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Sales are append-only; they carry no
// update or delete operations and are removed only by a full reset.
type Transaction interface {
	Snapshot() TransactionView
	CreateIngredient(Ingredient) (Ingredient, error)
	UpdateIngredient(id string, mutator func(*Ingredient) error) (Ingredient, error)
	DeleteIngredient(id string) error
	CreateMenuItem(MenuItem) (MenuItem, error)
	UpdateMenuItem(id string, mutator func(*MenuItem) error) (MenuItem, error)
	DeleteMenuItem(id string) error
	AppendSale(SaleRecord) (SaleRecord, error)
	FindIngredient(id string) (Ingredient, bool)
	FindMenuItem(id string) (MenuItem, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// availability checks.
type TransactionView interface {
	ListIngredients() []Ingredient
	ListMenuItems() []MenuItem
	ListSales() []SaleRecord
	FindIngredient(id string) (Ingredient, bool)
	FindMenuItem(id string) (MenuItem, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetIngredient(id string) (Ingredient, bool)
	ListIngredients() []Ingredient
	GetMenuItem(id string) (MenuItem, bool)
	ListMenuItems() []MenuItem
	ListSales() []SaleRecord
}
