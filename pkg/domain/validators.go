package domain

import "fmt"

// IngredientValidator checks one aspect of an ingredient record and returns
// the violations it finds. Validators never mutate the record and never fail
// with an error; they only report.
type IngredientValidator func(Ingredient) []Violation

// ingredientValidators maps each category to its full validator chain:
// the base chain shared by every kind followed by category-specific checks.
// Built once at package init and never mutated afterwards.
var ingredientValidators map[Category][]IngredientValidator

func init() {
	base := []IngredientValidator{
		ingredientHasName,
		ingredientHasKnownCategory,
		ingredientStockNonNegative,
	}
	specific := map[Category][]IngredientValidator{
		CategoryBread:   {requireIngredientField("type", func(i Ingredient) string { return i.Type })},
		CategorySausage: {requireIngredientField("type", func(i Ingredient) string { return i.Type })},
		CategoryTopping: {requireIngredientField("type", func(i Ingredient) string { return i.Type })},
		CategorySauce:   {requireIngredientField("base", func(i Ingredient) string { return i.SauceBase })},
		CategorySide:    {requireIngredientField("type", func(i Ingredient) string { return i.Type })},
	}
	ingredientValidators = make(map[Category][]IngredientValidator, len(specific))
	for _, cat := range Categories() {
		chain := make([]IngredientValidator, 0, len(base)+len(specific[cat]))
		chain = append(chain, base...)
		chain = append(chain, specific[cat]...)
		ingredientValidators[cat] = chain
	}
}

// ValidateIngredient runs the validator chain for the record's category and
// concatenates all violations. Unknown categories run the base chain only,
// which itself flags the category.
func ValidateIngredient(ing Ingredient) []Violation {
	chain, ok := ingredientValidators[ing.Category]
	if !ok {
		chain = []IngredientValidator{ingredientHasName, ingredientHasKnownCategory, ingredientStockNonNegative}
	}
	var out []Violation
	for _, v := range chain {
		out = append(out, v(ing)...)
	}
	return out
}

func ingredientHasName(ing Ingredient) []Violation {
	if ing.Name != "" {
		return nil
	}
	return []Violation{{
		Rule:     "ingredient_name_required",
		Severity: SeverityBlock,
		Message:  "ingredient name must not be empty",
		Entity:   EntityIngredient,
		EntityID: ing.ID,
	}}
}

func ingredientHasKnownCategory(ing Ingredient) []Violation {
	if KnownCategory(ing.Category) {
		return nil
	}
	return []Violation{{
		Rule:     "ingredient_category_known",
		Severity: SeverityBlock,
		Message:  fmt.Sprintf("unknown ingredient category %q", ing.Category),
		Entity:   EntityIngredient,
		EntityID: ing.ID,
	}}
}

func ingredientStockNonNegative(ing Ingredient) []Violation {
	if ing.Stock >= 0 {
		return nil
	}
	return []Violation{{
		Rule:     "ingredient_stock_nonnegative",
		Severity: SeverityBlock,
		Message:  fmt.Sprintf("ingredient %q stock %d is negative", ing.Name, ing.Stock),
		Entity:   EntityIngredient,
		EntityID: ing.ID,
	}}
}

func requireIngredientField(field string, get func(Ingredient) string) IngredientValidator {
	return func(ing Ingredient) []Violation {
		if get(ing) != "" {
			return nil
		}
		return []Violation{{
			Rule:     "ingredient_" + field + "_required",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("%s ingredient %q missing %s", ing.Category, ing.Name, field),
			Entity:   EntityIngredient,
			EntityID: ing.ID,
		}}
	}
}

// ValidateMenuItem checks the structural rules for a menu item. Reference
// existence is a cross-collection concern checked by the rules engine, not
// here.
func ValidateMenuItem(item MenuItem) []Violation {
	var out []Violation
	if item.Name == "" {
		out = append(out, Violation{
			Rule:     "menu_item_name_required",
			Severity: SeverityBlock,
			Message:  "menu item name must not be empty",
			Entity:   EntityMenuItem,
			EntityID: item.ID,
		})
	}
	if item.Bread.ID == "" {
		out = append(out, Violation{
			Rule:     "menu_item_bread_required",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("menu item %q has no bread reference", item.Name),
			Entity:   EntityMenuItem,
			EntityID: item.ID,
		})
	}
	if item.Sausage.ID == "" {
		out = append(out, Violation{
			Rule:     "menu_item_sausage_required",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("menu item %q has no sausage reference", item.Name),
			Entity:   EntityMenuItem,
			EntityID: item.ID,
		})
	}
	return out
}

// ValidateSale checks the structural rules for a sale record.
func ValidateSale(sale SaleRecord) []Violation {
	var out []Violation
	if len(sale.Items) == 0 {
		out = append(out, Violation{
			Rule:     "sale_items_required",
			Severity: SeverityBlock,
			Message:  "sale must contain at least one line item",
			Entity:   EntitySale,
			EntityID: sale.ID,
		})
	}
	seen := make(map[string]bool, len(sale.Items))
	for _, line := range sale.Items {
		if line.Quantity <= 0 {
			out = append(out, Violation{
				Rule:     "sale_quantity_positive",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("sale line for %q has non-positive quantity %d", line.MenuItemName, line.Quantity),
				Entity:   EntitySale,
				EntityID: sale.ID,
			})
		}
		if seen[line.MenuItemID] {
			out = append(out, Violation{
				Rule:     "sale_lines_merged",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("sale contains duplicate line for menu item %q", line.MenuItemName),
				Entity:   EntitySale,
				EntityID: sale.ID,
			})
		}
		seen[line.MenuItemID] = true
	}
	return out
}
