package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"standcore/internal/ident"
	"standcore/pkg/domain"
)

// DraftState tracks where a sale draft sits in its lifecycle.
type DraftState string

const (
	DraftEmpty        DraftState = "empty"
	DraftAccumulating DraftState = "accumulating"
	DraftPreviewed    DraftState = "previewed"
	DraftCommitted    DraftState = "committed"
	DraftCancelled    DraftState = "cancelled"
)

// Availability is the result of checking a draft against current stock.
type Availability struct {
	OK        bool              `json:"ok"`
	Shortages []domain.Shortage `json:"shortages,omitempty"`
}

// SaleDraft accumulates order lines before an atomic commit. Duplicate menu
// items merge by summing quantities. Any mutation after a preview drops the
// draft back to accumulating, forcing a fresh availability check.
type SaleDraft struct {
	service    *Service
	state      DraftState
	lines      []domain.SaleLine
	customerID *string
}

// NewSaleDraft opens an empty draft against the service's store.
func (s *Service) NewSaleDraft() *SaleDraft {
	return &SaleDraft{service: s, state: DraftEmpty}
}

// State reports the draft's current lifecycle position.
func (d *SaleDraft) State() DraftState {
	return d.state
}

// Lines returns a copy of the accumulated order lines.
func (d *SaleDraft) Lines() []domain.SaleLine {
	out := make([]domain.SaleLine, len(d.lines))
	copy(out, d.lines)
	return out
}

// SetCustomer attaches an optional customer identifier to the draft.
func (d *SaleDraft) SetCustomer(id string) {
	d.customerID = &id
}

// Add appends quantity units of a menu item to the draft. A line for the
// same menu item already present absorbs the quantity instead of creating a
// duplicate.
func (d *SaleDraft) Add(menuItemID string, quantity int) error {
	if err := d.mutable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.ValidationError{
			Entity: domain.EntitySale,
			Field:  "quantity",
			Rule:   "sale_quantity_positive",
			Detail: fmt.Sprintf("quantity must be positive, got %d", quantity),
		}
	}
	item, ok := d.service.store.GetMenuItem(menuItemID)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityMenuItem, ID: menuItemID}
	}
	for i := range d.lines {
		if d.lines[i].MenuItemID == menuItemID {
			d.lines[i].Quantity += quantity
			d.state = DraftAccumulating
			return nil
		}
	}
	d.lines = append(d.lines, domain.SaleLine{
		MenuItemID:   item.ID,
		MenuItemName: item.Name,
		Quantity:     quantity,
	})
	d.state = DraftAccumulating
	return nil
}

// Remove drops quantity units of a menu item from the draft. Removing at
// least the line's quantity deletes the line; an empty draft returns to the
// empty state.
func (d *SaleDraft) Remove(menuItemID string, quantity int) error {
	if err := d.mutable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.ValidationError{
			Entity: domain.EntitySale,
			Field:  "quantity",
			Rule:   "sale_quantity_positive",
			Detail: fmt.Sprintf("quantity must be positive, got %d", quantity),
		}
	}
	for i := range d.lines {
		if d.lines[i].MenuItemID != menuItemID {
			continue
		}
		if d.lines[i].Quantity > quantity {
			d.lines[i].Quantity -= quantity
		} else {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
		}
		if len(d.lines) == 0 {
			d.state = DraftEmpty
		} else {
			d.state = DraftAccumulating
		}
		return nil
	}
	return domain.NotFoundError{Entity: domain.EntityMenuItem, ID: menuItemID}
}

// Preview checks the draft's aggregate ingredient requirements against
// current stock. A clean check advances the draft to previewed; shortages
// keep it accumulating.
func (d *SaleDraft) Preview(ctx context.Context) (Availability, error) {
	switch d.state {
	case DraftCommitted, DraftCancelled:
		return Availability{}, fmt.Errorf("draft is %s", d.state)
	case DraftEmpty:
		return Availability{}, domain.ValidationError{
			Entity: domain.EntitySale,
			Field:  "items",
			Rule:   "sale_items_required",
			Detail: "draft holds no lines",
		}
	}
	var avail Availability
	err := d.service.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		avail, err = checkAvailability(view, d.lines)
		return err
	})
	if err != nil {
		return Availability{}, err
	}
	if avail.OK {
		d.state = DraftPreviewed
	}
	return avail, nil
}

// Commit turns the previewed draft into a successful sale: one transaction
// decrements every required ingredient's stock and appends the record. Stock
// having moved since the preview fails the whole commit with
// InsufficientInventoryError and no state change.
func (d *SaleDraft) Commit(ctx context.Context) (domain.SaleRecord, domain.Result, error) {
	started := d.service.nowFn()
	if d.state != DraftPreviewed {
		return domain.SaleRecord{}, domain.Result{}, fmt.Errorf("commit requires a previewed draft, state is %s", d.state)
	}
	occurred := d.service.nowFn().UTC()
	customer := ""
	if d.customerID != nil {
		customer = *d.customerID
	}
	sale := domain.SaleRecord{
		Base:       domain.Base{ID: ident.StableID("sale", occurred.Format(time.RFC3339Nano)+":"+customer)},
		CustomerID: d.customerID,
		Items:      d.Lines(),
		Success:    true,
		OccurredAt: occurred,
	}
	var recorded domain.SaleRecord
	res, err := d.service.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		avail, err := checkAvailability(tx.Snapshot(), d.lines)
		if err != nil {
			return err
		}
		if !avail.OK {
			return domain.InsufficientInventoryError{Shortages: avail.Shortages}
		}
		required, err := aggregateRequirements(tx.Snapshot(), d.lines)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(required))
		for id := range required {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			need := required[id]
			if _, err := tx.UpdateIngredient(id, func(ing *domain.Ingredient) error {
				ing.Stock -= need
				return nil
			}); err != nil {
				return err
			}
		}
		recorded, err = tx.AppendSale(sale)
		return err
	})
	d.service.observe(ctx, "commit_sale", started, res, err)
	if err != nil {
		return domain.SaleRecord{}, res, err
	}
	d.state = DraftCommitted
	return recorded, res, nil
}

// Cancel abandons the draft. A committed draft cannot be cancelled.
func (d *SaleDraft) Cancel() error {
	if d.state == DraftCommitted {
		return fmt.Errorf("draft already committed")
	}
	d.state = DraftCancelled
	d.lines = nil
	return nil
}

func (d *SaleDraft) mutable() error {
	switch d.state {
	case DraftCommitted, DraftCancelled:
		return fmt.Errorf("draft is %s", d.state)
	}
	return nil
}

// aggregateRequirements expands every line into per-ingredient quantities
// and sums across lines.
func aggregateRequirements(view domain.TransactionView, lines []domain.SaleLine) (map[string]int, error) {
	required := make(map[string]int)
	for _, line := range lines {
		item, ok := view.FindMenuItem(line.MenuItemID)
		if !ok {
			return nil, domain.NotFoundError{Entity: domain.EntityMenuItem, ID: line.MenuItemID}
		}
		for id, perUnit := range item.Requirements() {
			required[id] += perUnit * line.Quantity
		}
	}
	return required, nil
}

// checkAvailability compares the aggregate requirements of the lines with
// current stock and names, per shortage, the menu items it blocks.
func checkAvailability(view domain.TransactionView, lines []domain.SaleLine) (Availability, error) {
	required, err := aggregateRequirements(view, lines)
	if err != nil {
		return Availability{}, err
	}
	blockedBy := make(map[string][]string)
	for _, line := range lines {
		item, _ := view.FindMenuItem(line.MenuItemID)
		for id := range item.Requirements() {
			blockedBy[id] = append(blockedBy[id], item.Name)
		}
	}
	var shortages []domain.Shortage
	for id, need := range required {
		ing, ok := view.FindIngredient(id)
		if !ok {
			return Availability{}, domain.NotFoundError{Entity: domain.EntityIngredient, ID: id}
		}
		if ing.Stock < need {
			blocked := blockedBy[id]
			sort.Strings(blocked)
			shortages = append(shortages, domain.Shortage{
				IngredientID:   id,
				IngredientName: ing.Name,
				Required:       need,
				Available:      ing.Stock,
				BlockedItems:   blocked,
			})
		}
	}
	sort.Slice(shortages, func(i, j int) bool {
		return shortages[i].IngredientName < shortages[j].IngredientName
	})
	return Availability{OK: len(shortages) == 0, Shortages: shortages}, nil
}
