// internal/extract/registry.go
package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Registry holds the run's brand names, split into the monitored brands
// ("mine") and their competitors. It is built once per run by the
// orchestrator and is read-only for the duration of extraction.
type Registry struct {
	entries []registryEntry
	byKey   map[string]registryEntry
}

type registryEntry struct {
	raw        string // configured form, trimmed
	normalized string // registry key
	isMine     bool
}

// Normalize produces the registry comparison key for a brand name: trim,
// lower-case, drop punctuation-only tokens, collapse internal whitespace.
func Normalize(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	kept := fields[:0]
	for _, f := range fields {
		if !punctuationOnly(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func punctuationOnly(token string) bool {
	for _, r := range token {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// NewRegistry validates and indexes the two brand lists. Names that
// normalize to the empty string are skipped. A name appearing in both lists
// (after normalization) or two empty lists is a ConfigurationError.
func NewRegistry(mine, competitors []string) (*Registry, error) {
	r := &Registry{byKey: make(map[string]registryEntry)}

	add := func(names []string, isMine bool) error {
		for _, name := range names {
			key := Normalize(name)
			if key == "" {
				continue
			}
			if prev, ok := r.byKey[key]; ok {
				if prev.isMine != isMine {
					return &ConfigurationError{
						Field:  "brands",
						Reason: fmt.Sprintf("%q appears in both mine and competitors", name),
					}
				}
				continue // duplicate within the same list, keep the first
			}
			entry := registryEntry{raw: strings.TrimSpace(name), normalized: key, isMine: isMine}
			r.byKey[key] = entry
			r.entries = append(r.entries, entry)
		}
		return nil
	}

	if err := add(mine, true); err != nil {
		return nil, err
	}
	if err := add(competitors, false); err != nil {
		return nil, err
	}

	if len(r.entries) == 0 {
		return nil, &ConfigurationError{Field: "brands", Reason: "registry is empty"}
	}

	// Longest configured form first so the detector prefers "Salesforce"
	// over "Sales" at the same text position.
	sort.SliceStable(r.entries, func(i, j int) bool {
		return len(r.entries[i].raw) > len(r.entries[j].raw)
	})

	return r, nil
}

// Len returns the number of distinct registered brands.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the registry key and ownership for a name, matching by the
// normalized form.
func (r *Registry) Lookup(name string) (normalized string, isMine bool, ok bool) {
	entry, ok := r.byKey[Normalize(name)]
	if !ok {
		return "", false, false
	}
	return entry.normalized, entry.isMine, true
}

// Names returns the configured brand forms, longest first.
func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.raw
	}
	return out
}

// MineNames returns the configured forms of the monitored brands.
func (r *Registry) MineNames() []string {
	var out []string
	for _, e := range r.entries {
		if e.isMine {
			out = append(out, e.raw)
		}
	}
	return out
}

// CompetitorNames returns the configured forms of the competitor brands.
func (r *Registry) CompetitorNames() []string {
	var out []string
	for _, e := range r.entries {
		if !e.isMine {
			out = append(out, e.raw)
		}
	}
	return out
}
