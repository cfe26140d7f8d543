package adapt

import (
	"fmt"
	"strings"

	"standcore/pkg/domain"
)

// ReferenceLookup maps category -> ingredient name -> ingredient id. Built
// from the already-adapted ingredient structure of the same load pass.
type ReferenceLookup map[domain.Category]map[string]string

// BuildReferenceLookup walks an adapted (identity-injected, key-normalized)
// grouped ingredient structure and indexes every option by category and name.
func BuildReferenceLookup(adapted any) (ReferenceLookup, error) {
	groups, ok := adapted.([]any)
	if !ok {
		return nil, fmt.Errorf("reference lookup: expected a list of category groups, got %T", adapted)
	}
	lookup := make(ReferenceLookup)
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		category := domain.Category(strings.ToLower(stringValue(group, "category")))
		if category == "" {
			continue
		}
		optsVal, ok := lookupValue(group, "options")
		if !ok {
			continue
		}
		options, ok := optsVal.([]any)
		if !ok {
			continue
		}
		byName, ok := lookup[category]
		if !ok {
			byName = make(map[string]string)
			lookup[category] = byName
		}
		for _, o := range options {
			record, ok := o.(map[string]any)
			if !ok {
				continue
			}
			name := stringValue(record, "name")
			id := stringValue(record, "id")
			if name != "" && id != "" {
				byName[name] = id
			}
		}
	}
	return lookup, nil
}

type referenceResolutionTransform struct {
	lookup ReferenceLookup
}

// NewReferenceResolutionTransform replaces bare ingredient-name references in
// menu records with structured {id, name} pairs, resolved against the
// ingredient set loaded in the same pass. An unresolvable name is a hard
// error, never a silent drop.
func NewReferenceResolutionTransform(lookup ReferenceLookup) Transform {
	return referenceResolutionTransform{lookup: lookup}
}

func (referenceResolutionTransform) Name() string { return "reference_resolution" }

// referenceFields maps menu record keys to the ingredient category each
// references, and whether the field holds a list.
var referenceFields = []struct {
	key      string
	category domain.Category
	list     bool
}{
	{"bread", domain.CategoryBread, false},
	{"sausage", domain.CategorySausage, false},
	{"toppings", domain.CategoryTopping, true},
	{"sauces", domain.CategorySauce, true},
	{"side", domain.CategorySide, false},
}

func (t referenceResolutionTransform) Apply(raw any) (any, bool, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, false, fmt.Errorf("reference resolution: expected a list of menu records, got %T", raw)
	}
	changed := false
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range referenceFields {
			val, exists := lookupValue(record, field.key)
			if !exists || val == nil {
				continue
			}
			if field.list {
				entries, ok := val.([]any)
				if !ok {
					continue
				}
				for i, entry := range entries {
					resolved, modified, err := t.resolve(entry, field.category)
					if err != nil {
						return nil, false, err
					}
					entries[i] = resolved
					changed = changed || modified
				}
				continue
			}
			resolved, modified, err := t.resolve(val, field.category)
			if err != nil {
				return nil, false, err
			}
			record[field.key] = resolved
			changed = changed || modified
		}
	}
	return list, changed, nil
}

// resolve turns a bare name into a {id, name} pair. Already-structured
// references pass through untouched.
func (t referenceResolutionTransform) resolve(val any, category domain.Category) (any, bool, error) {
	name, ok := val.(string)
	if !ok {
		return val, false, nil
	}
	id, found := t.lookup[category][name]
	if !found {
		return nil, false, domain.ReferenceIntegrityError{Category: category, Name: name}
	}
	return map[string]any{"id": id, "name": name}, true, nil
}
