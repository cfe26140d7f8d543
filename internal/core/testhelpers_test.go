package core

import (
	"context"
	"testing"

	"standcore/internal/ident"
	"standcore/pkg/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService(NewDefaultRulesEngine())
}

func mustIngredient(t *testing.T, svc *Service, category domain.Category, name string, stock int) domain.Ingredient {
	t.Helper()
	ing := domain.Ingredient{
		Base:     domain.Base{ID: ident.StableID(string(category), name)},
		Category: category,
		Name:     name,
		Stock:    stock,
	}
	if category == domain.CategorySauce {
		ing.SauceBase = "tomato"
	} else {
		ing.Type = "standard"
	}
	created, _, err := svc.CreateIngredient(context.Background(), ing)
	if err != nil {
		t.Fatalf("create ingredient %s/%s: %v", category, name, err)
	}
	return created
}

func mustMenuItem(t *testing.T, svc *Service, name string, bread, sausage domain.Ingredient, toppings ...domain.Ingredient) domain.MenuItem {
	t.Helper()
	item := domain.MenuItem{
		Base:    domain.Base{ID: ident.StableID("menu", name)},
		Name:    name,
		Bread:   domain.IngredientRef{ID: bread.ID, Name: bread.Name},
		Sausage: domain.IngredientRef{ID: sausage.ID, Name: sausage.Name},
	}
	for _, top := range toppings {
		item.Toppings = append(item.Toppings, domain.IngredientRef{ID: top.ID, Name: top.Name})
	}
	created, _, err := svc.CreateMenuItem(context.Background(), item)
	if err != nil {
		t.Fatalf("create menu item %s: %v", name, err)
	}
	return created
}
