package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a record failing a domain rule on create or update.
// The operation is rejected before any mutation is staged; callers correct the
// input and retry.
type ValidationError struct {
	Entity EntityType
	Field  string
	Rule   string
	Detail string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s (%s): %s", e.Entity, e.Rule, e.Field, e.Detail)
}

// ReferenceIntegrityError reports a composite record referencing a nonexistent
// ingredient, either during source adaptation or at menu-item creation. Fatal
// to the single operation; existing state is untouched.
type ReferenceIntegrityError struct {
	Category Category
	Name     string
	ID       string
}

func (e ReferenceIntegrityError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("unknown %s ingredient id %q", e.Category, e.ID)
	}
	return fmt.Sprintf("unknown %s ingredient %q", e.Category, e.Name)
}

// Shortage describes one insufficient ingredient discovered by an availability
// check: how much the draft needs, how much is on hand, and which menu items
// the gap blocks.
type Shortage struct {
	IngredientID   string   `json:"ingredient_id"`
	IngredientName string   `json:"ingredient_name"`
	Required       int      `json:"required"`
	Available      int      `json:"available"`
	BlockedItems   []string `json:"blocked_items"`
}

// InsufficientInventoryError reports an availability check failing at sale
// preview or commit. Stock is never partially decremented.
type InsufficientInventoryError struct {
	Shortages []Shortage
}

func (e InsufficientInventoryError) Error() string {
	names := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		names = append(names, fmt.Sprintf("%s (need %d, have %d)", s.IngredientName, s.Required, s.Available))
	}
	return "insufficient inventory: " + strings.Join(names, ", ")
}

// DataUnavailableError reports that neither the local file nor the remote
// source could produce a collection's data.
type DataUnavailableError struct {
	Collection string
	LocalErr   error
	RemoteErr  error
}

func (e DataUnavailableError) Error() string {
	return fmt.Sprintf("collection %q unavailable: local: %v; remote: %v", e.Collection, e.LocalErr, e.RemoteErr)
}

func (e DataUnavailableError) Unwrap() error { return e.RemoteErr }

// TransactionFailure reports a durable commit that failed partway across
// collection files. Rollback of already-flushed collections is best-effort;
// Restored names the collections whose prior contents were put back.
type TransactionFailure struct {
	Flushed  []string
	Restored []string
	Err      error
}

func (e TransactionFailure) Error() string {
	return fmt.Sprintf("commit failed after flushing %v (restored %v): %v", e.Flushed, e.Restored, e.Err)
}

func (e TransactionFailure) Unwrap() error { return e.Err }

// FullyRolledBack reports whether every flushed collection was restored.
func (e TransactionFailure) FullyRolledBack() bool {
	return len(e.Flushed) == len(e.Restored)
}

// CascadeConfirmationError is returned when deleting an ingredient that menu
// items still reference and the caller has not confirmed the cascade. Nothing
// is deleted; MenuItems previews what confirmation would remove.
type CascadeConfirmationError struct {
	IngredientID   string
	IngredientName string
	MenuItems      []string
}

func (e CascadeConfirmationError) Error() string {
	return fmt.Sprintf("ingredient %q is used by %d menu item(s); confirmation required", e.IngredientName, len(e.MenuItems))
}

// NotFoundError is returned when reference validation fails within
// transactional helpers.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
