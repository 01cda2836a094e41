package layering

import (
	"fmt"
	"slices"
	"strings"
)

// Level identifies the precedence of a configuration document. Higher
// levels override lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelBase holds the defaults shipped with the application.
	LevelBase
	// LevelEnvironment holds per deployment settings.
	LevelEnvironment
	// LevelTenant holds per tenant overrides.
	LevelTenant
	// LevelOverride is the strongest layer, used for local or operator edits.
	LevelOverride
)

func (l Level) String() string {
	switch l {
	case LevelBase:
		return "base"
	case LevelEnvironment:
		return "environment"
	case LevelTenant:
		return "tenant"
	case LevelOverride:
		return "override"
	default:
		return "unknown"
	}
}

// ParseLevel converts a case-insensitive name into a Level. Unrecognised
// values map to LevelUnknown.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "base":
		return LevelBase
	case "environment", "env":
		return LevelEnvironment
	case "tenant":
		return LevelTenant
	case "override":
		return LevelOverride
	default:
		return LevelUnknown
	}
}

// Layer names one document within a layering chain.
type Layer struct {
	Level  Level
	Name   string // document name within the level, e.g. "production"
	Tenant string // tenant identifier when Level == LevelTenant
}

// Identifier returns a stable slug usable as a storage key prefix, such as
// "base/default" or "tenant/acme/default".
func (l Layer) Identifier() string {
	name := l.Name
	if name == "" {
		name = "default"
	}
	if l.Level == LevelTenant {
		return fmt.Sprintf("tenant/%s/%s", l.Tenant, name)
	}
	return fmt.Sprintf("%s/%s", l.Level, name)
}

// Validate reports layers that cannot be keyed.
func (l Layer) Validate() error {
	switch {
	case l.Level == LevelUnknown:
		return fmt.Errorf("layering: unknown level for layer %q", l.Name)
	case l.Level == LevelTenant && strings.TrimSpace(l.Tenant) == "":
		return fmt.Errorf("layering: tenant layer %q requires a tenant id", l.Name)
	}
	return nil
}

// Chain describes the ordered layering sequence from strongest to weakest.
type Chain struct {
	ordered []Layer
}

// NewChain constructs a chain, dropping unknown levels and duplicate
// identifiers. Stronger levels come first; peers keep their relative order.
func NewChain(layers ...Layer) Chain {
	filtered := make([]Layer, 0, len(layers))
	seen := map[string]struct{}{}

	for _, layer := range layers {
		if layer.Level == LevelUnknown {
			continue
		}
		id := layer.Identifier()
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, layer)
	}

	slices.SortStableFunc(filtered, func(a, b Layer) int {
		return int(b.Level) - int(a.Level)
	})

	return Chain{ordered: filtered}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Layer {
	return slices.Clone(c.ordered)
}

// Len returns the number of layers in the chain.
func (c Chain) Len() int {
	return len(c.ordered)
}

// Strongest returns the first layer in the chain (zero layer if empty).
func (c Chain) Strongest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[0]
}

// Weakest returns the final layer in the chain (zero layer if empty).
func (c Chain) Weakest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[len(c.ordered)-1]
}

// Entry pairs a value with the layer it was loaded from.
type Entry[T any] struct {
	Layer Layer
	Value T
}

// Merge orders entries by their layers and merges the values. Entries whose
// layer is unknown or duplicated are ignored. It returns the chain that was
// applied.
func Merge[T any](entries ...Entry[T]) (T, Chain) {
	layers := make([]Layer, len(entries))
	byID := make(map[string]T, len(entries))
	for i, entry := range entries {
		layers[i] = entry.Layer
		if _, exists := byID[entry.Layer.Identifier()]; !exists {
			byID[entry.Layer.Identifier()] = entry.Value
		}
	}
	chain := NewChain(layers...)
	values := make([]T, 0, chain.Len())
	for _, layer := range chain.ordered {
		values = append(values, byID[layer.Identifier()])
	}
	return MergeLayers(values...), chain
}
