package admin

import (
	"strings"
	"time"

	"github.com/goliatone/go-admin/pkg/activity"
)

// ModelID identifies a persistent model by name (for example "Team").
type ModelID string

// SectionKind names a configurable view context of a model.
type SectionKind string

const (
	// SectionBase holds model level configuration every other section inherits.
	SectionBase       SectionKind = "base"
	SectionNavigation SectionKind = "navigation"
	SectionList       SectionKind = "list"
	SectionShow       SectionKind = "show"
	SectionExport     SectionKind = "export"
	SectionEdit       SectionKind = "edit"
	SectionCreate     SectionKind = "create"
	SectionUpdate     SectionKind = "update"
)

var sectionParents = map[SectionKind]SectionKind{
	SectionNavigation: SectionBase,
	SectionList:       SectionBase,
	SectionShow:       SectionBase,
	SectionExport:     SectionBase,
	SectionEdit:       SectionBase,
	SectionCreate:     SectionEdit,
	SectionUpdate:     SectionEdit,
}

// Sections lists every section kind in declaration order.
func Sections() []SectionKind {
	return []SectionKind{
		SectionBase, SectionNavigation, SectionList, SectionShow,
		SectionExport, SectionEdit, SectionCreate, SectionUpdate,
	}
}

// ParseSectionKind converts a case-insensitive name into a SectionKind.
func ParseSectionKind(value string) (SectionKind, error) {
	kind := SectionKind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", errUnknownSection(SectionKind(value))
	}
	return kind, nil
}

// Valid reports whether k is a known section kind.
func (k SectionKind) Valid() bool {
	if k == SectionBase {
		return true
	}
	_, ok := sectionParents[k]
	return ok
}

// ancestry returns the inheritance chain ending at k, weakest first
// (base, edit, create for SectionCreate).
func (k SectionKind) ancestry() []SectionKind {
	if !k.Valid() {
		return nil
	}
	var chain []SectionKind
	for current := k; ; {
		chain = append([]SectionKind{current}, chain...)
		parent, ok := sectionParents[current]
		if !ok {
			return chain
		}
		current = parent
	}
}

// ScopeKind distinguishes global configuration from per-model configuration.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota + 1
	ScopeModel
)

const (
	// Priorities used when reporting provenance. Higher numbers win.
	ScopePriorityGlobal = 100
	ScopePriorityModel  = 200
)

// Scope names the owner of a configuration layer.
type Scope struct {
	Kind  ScopeKind `json:"kind"`
	Model ModelID   `json:"model,omitempty"`
}

// GlobalScope returns the scope shared by every model.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// ModelScope returns the scope owned by model.
func ModelScope(model ModelID) Scope {
	return Scope{Kind: ScopeModel, Model: model}
}

// Name returns a stable identifier such as "global" or "model/Team".
func (s Scope) Name() string {
	switch s.Kind {
	case ScopeGlobal:
		return "global"
	case ScopeModel:
		return "model/" + string(s.Model)
	default:
		return "unknown"
	}
}

// Priority returns the precedence of the scope.
func (s Scope) Priority() int {
	switch s.Kind {
	case ScopeGlobal:
		return ScopePriorityGlobal
	case ScopeModel:
		return ScopePriorityModel
	default:
		return 0
	}
}

func (s Scope) isZero() bool {
	return s.Kind == 0 && s.Model == ""
}

// RuleContext carries the inputs visible to a rule while it is applied.
type RuleContext struct {
	Scope     Scope
	Model     ModelID
	Section   SectionKind
	Attribute string
	// Current is the running value produced by the previous layer.
	Current any
	// Facts describes the field under resolution (name, type, nullable,
	// max_length). Nil for section and group rules.
	Facts map[string]any
	Args  map[string]any
	Now   *time.Time
}

// ruleVariables are the names every evaluator binds for an expression rule.
var ruleVariables = []string{
	"value", "label", "help", "visible", "required",
	"model", "section", "name", "type", "field_type", "nullable", "max_length",
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Facts == nil {
		ctx.Facts = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.isZero() {
		return "unknown"
	}
	return ctx.Scope.Name()
}

// bindings returns the variables shared by all evaluators. The attribute
// under resolution is bound both as "value" and under its own name.
func (ctx RuleContext) bindings() map[string]any {
	env := map[string]any{
		"now":        ctx.timestamp(),
		"args":       ctx.Args,
		"model":      string(ctx.Model),
		"section":    string(ctx.Section),
		"value":      ctx.Current,
		"label":      "",
		"help":       "",
		"visible":    false,
		"required":   false,
		"name":       "",
		"type":       "",
		"nullable":   false,
		"max_length": 0,
	}
	for key, value := range ctx.Facts {
		env[key] = value
	}
	env["field_type"] = env["type"]
	if ctx.Attribute != "" {
		env[ctx.Attribute] = ctx.Current
	}
	if ctx.Scope.Kind != 0 {
		env["scope"] = map[string]any{
			"name":     ctx.Scope.Name(),
			"priority": ctx.Scope.Priority(),
		}
	}
	return env
}

// Evaluator executes string expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Logger receives operational messages from the registry. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Authorizer decides whether a principal may reach a model's admin views.
type Authorizer interface {
	CanAccess(principal string, model ModelID) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(principal string, model ModelID) (bool, error)

// CanAccess implements Authorizer.
func (f AuthorizerFunc) CanAccess(principal string, model ModelID) (bool, error) {
	if f == nil {
		return true, nil
	}
	return f(principal, model)
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	evaluator      Evaluator
	programCache   ProgramCache
	functions      *FunctionRegistry
	evalLogger     EvaluatorLogger
	logger         Logger
	authorizer     Authorizer
	activityHooks  activity.Hooks
	activityConfig activity.Config
	maxVisibleTabs int
}

func applyOptions(opts []Option) registryConfig {
	cfg := registryConfig{
		maxVisibleTabs: DefaultMaxVisibleTabs,
		functions:      DefaultFunctions(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg registryConfig) evaluatorLogger() EvaluatorLogger {
	if cfg.evalLogger != nil {
		return cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}

func (cfg registryConfig) log() Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopLogger{}
}

// WithEvaluator replaces the default expr evaluator used for expression rules.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *registryConfig) {
		cfg.evaluator = evaluator
	}
}

// WithLogger routes registry messages to logger.
func WithLogger(logger Logger) Option {
	return func(cfg *registryConfig) {
		cfg.logger = logger
	}
}

// WithAuthorizer gates navigation entries by principal.
func WithAuthorizer(authorizer Authorizer) Option {
	return func(cfg *registryConfig) {
		cfg.authorizer = authorizer
	}
}

// WithMaxVisibleTabs sets the initial navigation tab cap.
func WithMaxVisibleTabs(n int) Option {
	return func(cfg *registryConfig) {
		if n > 0 {
			cfg.maxVisibleTabs = n
		}
	}
}
