// Package i18n resolves localized messages from per-locale catalogs.
//
// A Catalog maps a locale tag to a nested message tree. Leaves are message
// strings; inner nodes are maps keyed by path segment. Keys are dotted
// paths into the tree ("url.title").
package i18n

import (
	"fmt"
	"io"
	"os"
	"sort"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Catalog maps locale tags to message trees.
type Catalog map[string]map[string]any

// Locales returns the catalog's locale tags in sorted order.
func (c Catalog) Locales() []string {
	out := make([]string, 0, len(c))
	for l := range c {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for l, tree := range c {
		out[l] = cloneTree(tree)
	}
	return out
}

// Merge deep-merges src into dst per locale. Nested maps merge
// recursively; any other value in src replaces the one in dst.
// src is copied so later merges into dst never alias it.
func Merge(dst Catalog, src Catalog) error {
	for locale, tree := range src {
		if tree == nil {
			continue
		}
		existing, ok := dst[locale]
		if !ok || existing == nil {
			dst[locale] = cloneTree(tree)
			continue
		}
		if err := mergo.Merge(&existing, cloneTree(tree), mergo.WithOverride); err != nil {
			return fmt.Errorf("merge locale %q: %w", locale, err)
		}
		dst[locale] = existing
	}
	return nil
}

func cloneTree(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneTree(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// LoadYAML decodes a catalog from YAML: a mapping of locale to message tree.
func LoadYAML(r io.Reader) (Catalog, error) {
	var raw map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Catalog{}, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := make(Catalog, len(raw))
	for locale, tree := range raw {
		out[locale] = normalizeTree(tree)
	}
	return out, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// normalizeTree converts YAML mappings with non-string keys into
// map[string]any so lookups see one shape.
func normalizeTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return normalizeTree(x)
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = normalizeValue(e)
		}
		return m
	case []any:
		for i, e := range x {
			x[i] = normalizeValue(e)
		}
		return x
	}
	return v
}
