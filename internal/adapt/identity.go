package adapt

import (
	"fmt"
	"strings"

	"standcore/internal/ident"
)

// Shape selects the raw structure an identity transform walks.
type Shape string

const (
	// ShapeGrouped is a list of category groups, each holding an options list:
	// [{"category": "Bread", "options": [{"name": "simple", ...}, ...]}, ...]
	ShapeGrouped Shape = "grouped"
	// ShapeFlat is a plain list of records: [{"name": "classic", ...}, ...]
	ShapeFlat Shape = "flat"
)

type identityTransform struct {
	shape    Shape
	category string // fixed id namespace for flat records; empty derives from the record itself
}

// NewIdentityTransform injects a stable id into every leaf record lacking one.
// Grouped records derive ids from (group category, record name); flat records
// from (category, record name) with the fixed category given here (may be
// empty, matching sources whose names are globally unique).
func NewIdentityTransform(shape Shape, category string) Transform {
	return identityTransform{shape: shape, category: category}
}

func (identityTransform) Name() string { return "identity_injection" }

func (t identityTransform) Apply(raw any) (any, bool, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, false, fmt.Errorf("identity injection: expected a list, got %T", raw)
	}
	switch t.shape {
	case ShapeGrouped:
		return t.applyGrouped(list)
	case ShapeFlat:
		return t.applyFlat(list)
	default:
		return nil, false, fmt.Errorf("identity injection: unknown shape %q", t.shape)
	}
}

func (t identityTransform) applyGrouped(groups []any) (any, bool, error) {
	changed := false
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("identity injection: group is %T, not an object", g)
		}
		category := stringValue(group, "category")
		if category == "" {
			return nil, false, fmt.Errorf("identity injection: group missing category")
		}
		optsVal, ok := lookupValue(group, "options")
		if !ok {
			return nil, false, fmt.Errorf("identity injection: category %q missing options", category)
		}
		options, ok := optsVal.([]any)
		if !ok {
			return nil, false, fmt.Errorf("identity injection: category %q options is %T, not a list", category, optsVal)
		}
		for _, o := range options {
			record, ok := o.(map[string]any)
			if !ok {
				continue
			}
			modified, err := injectID(record, strings.ToLower(category))
			if err != nil {
				return nil, false, fmt.Errorf("identity injection: category %q: %w", category, err)
			}
			changed = changed || modified
		}
	}
	return groups, changed, nil
}

func (t identityTransform) applyFlat(list []any) (any, bool, error) {
	changed := false
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		modified, err := injectID(record, t.category)
		if err != nil {
			return nil, false, fmt.Errorf("identity injection: %w", err)
		}
		changed = changed || modified
	}
	return list, changed, nil
}

func injectID(record map[string]any, category string) (bool, error) {
	if id := stringValue(record, "id"); id != "" {
		return false, nil
	}
	name := stringValue(record, "name")
	if name == "" {
		return false, fmt.Errorf("record missing name, cannot derive id")
	}
	record["id"] = ident.StableID(category, name)
	return true, nil
}
