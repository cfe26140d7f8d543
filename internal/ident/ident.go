// Package ident derives stable identifiers for catalog records that originate
// from an external, id-less source. The same (category, natural key) pair
// always yields the same id, across process restarts and full data resets.
package ident

import "github.com/google/uuid"

// namespace anchors all standcore ids. Fixed forever; changing it would
// re-identify the entire catalog.
var namespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// StableID returns a deterministic UUID string for the given category and
// natural key. Changing either input changes the id: a renamed or re-categorized
// item is a new identity, and references held under the old id become dangling.
func StableID(category, naturalKey string) string {
	seed := naturalKey
	if category != "" {
		seed = category + ":" + naturalKey
	}
	return uuid.NewMD5(namespace, []byte(seed)).String()
}
