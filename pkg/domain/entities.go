// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by standcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityIngredient identifies a stockable catalog item record.
	EntityIngredient EntityType = "ingredient"
	// EntityMenuItem identifies a sellable composed product record.
	EntityMenuItem EntityType = "menu_item"
	// EntitySale identifies a committed sale record.
	EntitySale EntityType = "sale"
)

// Category tags an ingredient with its catalog kind. Category plus name forms
// the natural key an ingredient's stable id is derived from.
type Category string

// Canonical ingredient categories. Two categories may reuse a name; the pair
// is what must be unique.
const (
	CategoryBread   Category = "bread"
	CategorySausage Category = "sausage"
	CategoryTopping Category = "topping"
	CategorySauce   Category = "sauce"
	CategorySide    Category = "side"
)

// Categories lists every known ingredient category in a stable order.
func Categories() []Category {
	return []Category{CategoryBread, CategorySausage, CategoryTopping, CategorySauce, CategorySide}
}

// KnownCategory reports whether c is one of the canonical categories.
func KnownCategory(c Category) bool {
	switch c {
	case CategoryBread, CategorySausage, CategoryTopping, CategorySauce, CategorySide:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. ID and timestamps are
// infrastructure metadata, never part of the catalog schema itself.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ingredient represents a stockable catalog item. A single struct covers all
// categories; category-specific fields are empty where not applicable.
type Ingredient struct {
	Base
	Category     Category `json:"category"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`         // bread, sausage, topping, side
	Size         string   `json:"size,omitempty"`         // bread, sausage, side
	Unit         string   `json:"unit,omitempty"`         // bread, sausage, side
	SauceBase    string   `json:"base,omitempty"`         // sauce
	Color        string   `json:"color,omitempty"`        // sauce
	Presentation string   `json:"presentation,omitempty"` // topping
	Stock        int      `json:"stock"`
}

// IngredientRef is a structured reference from a menu item to an ingredient.
// The id is authoritative for lookup; the name is cached for display.
type IngredientRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MenuItem represents a sellable composed product (a hot dog).
type MenuItem struct {
	Base
	Name     string          `json:"name"`
	Bread    IngredientRef   `json:"bread"`
	Sausage  IngredientRef   `json:"sausage"`
	Toppings []IngredientRef `json:"toppings"`
	Sauces   []IngredientRef `json:"sauces"`
	Side     *IngredientRef  `json:"side,omitempty"`
}

// References returns every ingredient reference held by the menu item,
// including duplicates, in declaration order.
func (m MenuItem) References() []IngredientRef {
	refs := make([]IngredientRef, 0, 3+len(m.Toppings)+len(m.Sauces))
	refs = append(refs, m.Bread, m.Sausage)
	refs = append(refs, m.Toppings...)
	refs = append(refs, m.Sauces...)
	if m.Side != nil {
		refs = append(refs, *m.Side)
	}
	return refs
}

// Requirements returns the ingredient quantities consumed by one unit of the
// menu item, keyed by ingredient id.
func (m MenuItem) Requirements() map[string]int {
	req := make(map[string]int)
	for _, ref := range m.References() {
		if ref.ID != "" {
			req[ref.ID]++
		}
	}
	return req
}

// SaleLine is one (menu item, quantity) pair within a sale.
type SaleLine struct {
	MenuItemID   string `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	Quantity     int    `json:"quantity"`
}

// SaleRecord is an immutable-once-committed record of a completed (or, for
// simulation runs, attempted) transaction. A successful record implies stock
// was already decremented consistently for every line; it is never partially
// applied.
type SaleRecord struct {
	Base
	CustomerID    *string    `json:"customer_id"`
	Items         []SaleLine `json:"items"`
	Success       bool       `json:"success"`
	FailureReason string     `json:"failure_reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// TotalQuantity sums the quantities across all lines.
func (s SaleRecord) TotalQuantity() int {
	total := 0
	for _, line := range s.Items {
		total += line.Quantity
	}
	return total
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
