package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-admin/introspect"
	"github.com/goliatone/go-admin/pkg/activity"
)

// Registry holds the admin configuration of every model. Readers work on an
// immutable snapshot loaded atomically; writers serialise on a mutex, mutate
// a clone of the current snapshot and publish it only when the mutation
// succeeds.
type Registry struct {
	source    introspect.Source
	cfg       registryConfig
	evaluator Evaluator
	emitter   *activity.Emitter

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewRegistry builds an empty registry over source.
func NewRegistry(source introspect.Source, opts ...Option) *Registry {
	cfg := applyOptions(opts)
	r := &Registry{
		source:    source,
		cfg:       cfg,
		evaluator: resolveEvaluator(cfg),
		emitter:   activity.NewEmitter(cfg.activityHooks, cfg.activityEmitterConfig()),
	}
	initial := newSnapshot(cfg.maxVisibleTabs)
	initial.id = uuid.NewString()
	initial.publishedAt = time.Now()
	r.current.Store(initial)
	return r
}

// Source returns the schema source the registry introspects.
func (r *Registry) Source() introspect.Source {
	return r.source
}

// Evaluator returns the evaluator used for expression rules.
func (r *Registry) Evaluator() Evaluator {
	return r.evaluator
}

// Snapshot describes the currently published state.
func (r *Registry) Snapshot() SnapshotInfo {
	return r.current.Load().info()
}

// Models returns every model known to the source, in source order,
// including excluded ones.
func (r *Registry) Models() []ModelID {
	names := r.source.Models()
	out := make([]ModelID, len(names))
	for i, name := range names {
		out[i] = ModelID(name)
	}
	return out
}

// Configure applies fn to the model's configuration. Unknown fields and
// invalid expressions are reported here and leave the published state
// untouched.
func (r *Registry) Configure(model ModelID, fn func(*ModelBuilder)) error {
	fields, err := r.modelFields(model)
	if err != nil {
		return err
	}
	published, err := r.mutate(func(next *snapshot) error {
		ctx := r.newBuildContext(ModelScope(model), fields)
		builder := newModelBuilder(ctx, next.model(model))
		if fn != nil {
			fn(builder)
		}
		return ctx.err()
	})
	if err != nil {
		return fmt.Errorf("admin: configure %s: %w", model, err)
	}
	r.emit(activity.BuildModelConfiguredEvent(r.eventInput(published, string(model))))
	return nil
}

// ConfigureGlobal applies fn to the configuration shared by every model.
func (r *Registry) ConfigureGlobal(fn func(*GlobalBuilder)) error {
	published, err := r.mutate(func(next *snapshot) error {
		ctx := r.newBuildContext(GlobalScope(), nil)
		builder := newGlobalBuilder(ctx, next.global)
		if fn != nil {
			fn(builder)
		}
		return ctx.err()
	})
	if err != nil {
		return fmt.Errorf("admin: configure global: %w", err)
	}
	r.emit(activity.BuildGlobalConfiguredEvent(r.eventInput(published)))
	return nil
}

// SetExcludedModels replaces the excluded model set.
func (r *Registry) SetExcludedModels(models ...ModelID) {
	published, _ := r.mutate(func(next *snapshot) error {
		next.excluded = make(map[ModelID]struct{}, len(models))
		for _, model := range models {
			next.excluded[model] = struct{}{}
		}
		return nil
	})
	names := make([]string, len(models))
	for i, model := range models {
		names[i] = string(model)
	}
	r.emit(activity.BuildModelsExcludedEvent(r.eventInput(published, names...)))
}

// IsExcluded reports whether model is excluded from every admin view.
func (r *Registry) IsExcluded(model ModelID) bool {
	return r.current.Load().isExcluded(model)
}

// ExcludedModels returns the excluded set in source order followed by any
// names the source does not know.
func (r *Registry) ExcludedModels() []ModelID {
	snap := r.current.Load()
	var out []ModelID
	for _, model := range r.Models() {
		if snap.isExcluded(model) {
			out = append(out, model)
		}
	}
	var unknown []ModelID
	for model := range snap.excluded {
		if !slices.Contains(out, model) {
			unknown = append(unknown, model)
		}
	}
	slices.Sort(unknown)
	return append(out, unknown...)
}

// SetMaxVisibleTabs caps the number of navigation tabs before overflow.
func (r *Registry) SetMaxVisibleTabs(n int) error {
	if n < 1 {
		return fmt.Errorf("admin: max visible tabs must be positive, got %d", n)
	}
	published, _ := r.mutate(func(next *snapshot) error {
		next.maxVisibleTabs = n
		return nil
	})
	input := r.eventInput(published)
	input.Metadata = map[string]any{"max_visible_tabs": n}
	r.emit(activity.BuildNavigationUpdatedEvent(input))
	return nil
}

// MaxVisibleTabs returns the current navigation tab cap.
func (r *Registry) MaxVisibleTabs() int {
	return r.current.Load().maxVisibleTabs
}

// Reset restores the named models to defaults. With no arguments every
// piece of configuration is cleared, including global rules, exclusions
// and the tab cap.
func (r *Registry) Reset(models ...ModelID) {
	published, _ := r.mutate(func(next *snapshot) error {
		if len(models) == 0 {
			fresh := newSnapshot(r.cfg.maxVisibleTabs)
			*next = *fresh
			return nil
		}
		for _, model := range models {
			delete(next.models, model)
		}
		return nil
	})
	names := make([]string, len(models))
	for i, model := range models {
		names[i] = string(model)
	}
	r.emit(activity.BuildConfigResetEvent(r.eventInput(published, names...)))
}

// Lookup pins the current snapshot for one model section. It does no
// resolution work; the returned view resolves on demand.
func (r *Registry) Lookup(model ModelID, section SectionKind) SectionView {
	return SectionView{registry: r, snap: r.current.Load(), model: model, section: section}
}

// Resolve is shorthand for Lookup(model, section).Resolve(field).
func (r *Registry) Resolve(model ModelID, section SectionKind, field string) (ResolvedField, error) {
	return r.Lookup(model, section).Resolve(field)
}

func (r *Registry) mutate(fn func(*snapshot) error) (*snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.current.Load()
	next := previous.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.version = previous.version + 1
	next.id = uuid.NewString()
	next.publishedAt = time.Now()
	r.current.Store(next)
	r.cfg.log().Printf("admin: published snapshot %s (version %d)", next.id, next.version)
	return next, nil
}

func (r *Registry) orderedFields(model ModelID) ([]introspect.Field, error) {
	fields, err := r.source.Fields(string(model))
	if err != nil {
		if errors.Is(err, introspect.ErrUnknownModel) {
			return nil, &UnknownModelError{Model: model}
		}
		return nil, fmt.Errorf("admin: introspect %s: %w", model, err)
	}
	return fields, nil
}

func (r *Registry) modelFields(model ModelID) (map[string]introspect.Field, error) {
	fields, err := r.orderedFields(model)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]introspect.Field, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}
	return byName, nil
}

func (r *Registry) eventInput(snap *snapshot, models ...string) activity.ConfigEventInput {
	input := activity.ConfigEventInput{Models: models}
	if snap != nil {
		input.SnapshotID = snap.id
		input.Version = snap.version
		input.OccurredAt = snap.publishedAt
	}
	return input
}

func (r *Registry) emit(event activity.Event) {
	if !r.emitter.Enabled() {
		return
	}
	if err := r.emitter.Emit(context.Background(), event); err != nil {
		r.cfg.log().Printf("admin: activity hook failed for %s: %v", event.Verb, err)
	}
}
