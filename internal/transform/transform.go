// Package transform turns raw tabular records into numerically encoded ones.
//
// Each dataset variant is a Transformer that rewrites a dataset.Table in
// place. Transforms are fail-fast: the first malformed value aborts the run
// with a *ParseError or *SchemaError, and no row is ever skipped or reordered.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// Options tighten the default, lenient handling of questionable values.
type Options struct {
	// StrictCategories fails on values outside a remap vocabulary instead of
	// passing them through.
	StrictCategories bool
	// StrictTimes fails on unreadable clock values instead of bucketing them
	// as Midnight.
	StrictTimes bool
}

// Transformer encodes one dataset variant.
type Transformer interface {
	// Name is the variant name used on the command line and in config.
	Name() string
	// Columns lists the input columns the variant requires.
	Columns() []string
	// Transform rewrites t in place and reports what it did.
	Transform(t *dataset.Table) (*Report, error)
}

var variants = map[string]func(Options) Transformer{
	HousingVariant: func(o Options) Transformer { return NewHousing(o) },
	AirlineVariant: func(o Options) Transformer { return NewAirline(o) },
}

// Lookup returns the transformer registered under name.
func Lookup(name string, opts Options) (Transformer, error) {
	build, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q (valid: %s)", name, strings.Join(Variants(), ", "))
	}
	return build(opts), nil
}

// Variants returns the registered variant names, sorted.
func Variants() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
