package admin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-admin/introspect"
)

// Function is a helper callable from expression rules, for example
// titleize(label) or call("titleize", label).
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("admin: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("admin: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("admin: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("admin: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("admin: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes registry functions to the default evaluator,
// replacing the DefaultFunctions helpers.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *registryConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator,
// next to the DefaultFunctions helpers.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *registryConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// DefaultFunctions returns the string helpers available to label and help
// expressions: humanize, upcase, downcase and truncate.
func DefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("humanize", stringFunction(introspect.Humanize))
	_ = registry.Register("upcase", stringFunction(strings.ToUpper))
	_ = registry.Register("downcase", stringFunction(strings.ToLower))
	_ = registry.Register("truncate", truncateFunction)
	return registry
}

func stringFunction(fn func(string) string) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("admin: expected 1 argument, got %d", len(args))
		}
		value, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("admin: expected string argument, got %T", args[0])
		}
		return fn(value), nil
	}
}

func truncateFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("admin: truncate expects 2 arguments, got %d", len(args))
	}
	value, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("admin: truncate expects string, got %T", args[0])
	}
	var limit int
	switch n := args[1].(type) {
	case int:
		limit = n
	case int64:
		limit = int(n)
	case float64:
		limit = int(n)
	default:
		return nil, fmt.Errorf("admin: truncate limit must be numeric, got %T", args[1])
	}
	runes := []rune(value)
	if limit < 0 || len(runes) <= limit {
		return value, nil
	}
	return string(runes[:limit]), nil
}
