package adapt

import "strings"

type keyNormalizationTransform struct{}

// NewKeyNormalizationTransform lower-cases structural keys throughout the
// structure so downstream code never depends on the external source's exact
// casing. Values are untouched.
func NewKeyNormalizationTransform() Transform {
	return keyNormalizationTransform{}
}

func (keyNormalizationTransform) Name() string { return "key_normalization" }

func (keyNormalizationTransform) Apply(raw any) (any, bool, error) {
	out, changed := normalizeValue(raw)
	return out, changed, nil
}

func normalizeValue(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		changed := false
		out := make(map[string]any, len(val))
		for k, inner := range val {
			nk := foldKey(k)
			ni, innerChanged := normalizeValue(inner)
			if nk != k || innerChanged {
				changed = true
			}
			out[nk] = ni
		}
		return out, changed
	case []any:
		changed := false
		for i, inner := range val {
			ni, innerChanged := normalizeValue(inner)
			if innerChanged {
				changed = true
			}
			val[i] = ni
		}
		return val, changed
	default:
		return v, false
	}
}

// foldKey canonicalizes a structural key: lower-case, spaces to underscores.
func foldKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")
}
