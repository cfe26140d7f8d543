// Package seed turns raw remote documents into a consistent domain snapshot.
// It runs each collection through its transform chain, then decodes the
// adapted structures into typed entities. Adaptation is deterministic, so
// re-seeding from the same source yields the same ids.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"standcore/internal/adapt"
	"standcore/internal/source"
	"standcore/pkg/domain"
)

// StockDefaults configures the stock quantities injected into ingredients
// that arrive without one.
type StockDefaults struct {
	Default    int
	ByCategory map[string]int
}

// Snapshot is the fully adapted seed state ready to load into a store.
type Snapshot struct {
	Ingredients []domain.Ingredient
	MenuItems   []domain.MenuItem
}

// Seeder fetches the ingredient and menu collections and adapts them.
type Seeder struct {
	fetcher source.Fetcher
	stock   StockDefaults
	log     *zap.Logger
}

// New builds a seeder. A nil logger disables logging.
func New(fetcher source.Fetcher, stock StockDefaults, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{fetcher: fetcher, stock: stock, log: log}
}

// IngredientChain is the transform chain applied to the raw ingredient
// document: stable ids, key normalization, stock seeding.
func (s *Seeder) IngredientChain() *adapt.Chain {
	return adapt.NewChain(
		adapt.NewIdentityTransform(adapt.ShapeGrouped, ""),
		adapt.NewKeyNormalizationTransform(),
		adapt.NewStockSeedTransform(s.stock.Default, s.stock.ByCategory),
	)
}

// MenuChain builds the transform chain for the raw menu document. Reference
// resolution needs the adapted ingredient state, so the lookup is built from
// the ingredient snapshot produced in the same run.
func (s *Seeder) MenuChain(lookup adapt.ReferenceLookup) *adapt.Chain {
	return adapt.NewChain(
		adapt.NewIdentityTransform(adapt.ShapeFlat, ""),
		adapt.NewKeyNormalizationTransform(),
		adapt.NewReferenceResolutionTransform(lookup),
	)
}

// Build fetches both collections and returns the adapted snapshot. The
// ingredient collection is adapted first so menu references can resolve
// against it.
func (s *Seeder) Build(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	rawIngredients, err := s.fetcher.Fetch(ctx, "ingredients")
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch ingredients: %w", err)
	}
	adaptedIngredients, _, err := s.IngredientChain().Apply(rawIngredients)
	if err != nil {
		return Snapshot{}, fmt.Errorf("adapt ingredients: %w", err)
	}
	ingredients, err := DecodeIngredients(adaptedIngredients)
	if err != nil {
		return Snapshot{}, err
	}

	rawMenu, err := s.fetcher.Fetch(ctx, "menu")
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch menu: %w", err)
	}
	lookup, err := adapt.BuildReferenceLookup(adaptedIngredients)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build reference lookup: %w", err)
	}
	adaptedMenu, _, err := s.MenuChain(lookup).Apply(rawMenu)
	if err != nil {
		return Snapshot{}, fmt.Errorf("adapt menu: %w", err)
	}
	menuItems, err := DecodeMenuItems(adaptedMenu)
	if err != nil {
		return Snapshot{}, err
	}

	s.log.Info("seed snapshot built",
		zap.Int("ingredients", len(ingredients)),
		zap.Int("menu_items", len(menuItems)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Snapshot{Ingredients: ingredients, MenuItems: menuItems}, nil
}

type adaptedGroup struct {
	Category string            `json:"category"`
	Options  []json.RawMessage `json:"options"`
}

// DecodeIngredients flattens an adapted grouped document into typed
// ingredients. The group category wins over any category field on the option.
func DecodeIngredients(adapted any) ([]domain.Ingredient, error) {
	buf, err := json.Marshal(adapted)
	if err != nil {
		return nil, fmt.Errorf("encode adapted ingredients: %w", err)
	}
	var groups []adaptedGroup
	if err := json.Unmarshal(buf, &groups); err != nil {
		return nil, fmt.Errorf("decode adapted ingredients: %w", err)
	}
	var out []domain.Ingredient
	for _, group := range groups {
		// Key normalization folds keys only; category values arrive in the
		// source's original casing and fold here.
		category := domain.Category(strings.ToLower(strings.TrimSpace(group.Category)))
		if !domain.KnownCategory(category) {
			return nil, &domain.ValidationError{
				Entity: domain.EntityIngredient,
				Field:  "category",
				Rule:   "known_category",
				Detail: fmt.Sprintf("unknown category %q in source document", group.Category),
			}
		}
		for _, raw := range group.Options {
			var ing domain.Ingredient
			if err := json.Unmarshal(raw, &ing); err != nil {
				return nil, fmt.Errorf("decode %s option: %w", category, err)
			}
			ing.Category = category
			out = append(out, ing)
		}
	}
	return out, nil
}

// DecodeMenuItems decodes an adapted flat menu document into typed items.
func DecodeMenuItems(adapted any) ([]domain.MenuItem, error) {
	buf, err := json.Marshal(adapted)
	if err != nil {
		return nil, fmt.Errorf("encode adapted menu: %w", err)
	}
	var out []domain.MenuItem
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("decode adapted menu: %w", err)
	}
	return out, nil
}
