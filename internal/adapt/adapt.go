// Package adapt implements the source adaptation chain: the ordered pipeline
// of transforms applied to raw external records after a fetch and before the
// data enters the local store. Transforms are single-purpose, order-sensitive
// (identity must exist before references can resolve), and idempotent, so that
// reload-from-cache and reload-from-source converge to the same data.
package adapt

// Transform rewrites a raw decoded-JSON structure. It returns the new
// structure, whether anything changed, and an error for structurally invalid
// input. Applying a transform to its own output must be a no-op.
type Transform interface {
	Name() string
	Apply(raw any) (any, bool, error)
}

// Chain applies a fixed sequence of transforms in order.
type Chain struct {
	transforms []Transform
}

// NewChain builds a chain from the given transforms, applied in argument order.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{transforms: transforms}
}

// Apply runs every transform in sequence and reports whether any of them
// changed the structure.
func (c *Chain) Apply(raw any) (any, bool, error) {
	changed := false
	current := raw
	for _, t := range c.transforms {
		next, modified, err := t.Apply(current)
		if err != nil {
			return nil, false, err
		}
		current = next
		changed = changed || modified
	}
	return current, changed, nil
}

// Names lists the transform names in application order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.transforms))
	for _, t := range c.transforms {
		names = append(names, t.Name())
	}
	return names
}

// lookupValue finds a key in a raw object ignoring ASCII case, so transforms
// work both on raw source keys ("Category") and on already-normalized ones.
func lookupValue(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if foldKey(k) == key {
			return v, true
		}
	}
	return nil, false
}

func stringValue(obj map[string]any, key string) string {
	v, ok := lookupValue(obj, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
