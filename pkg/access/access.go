// Package access gates admin models per principal with casbin policies.
//
// Policies grant an action on a model to a subject; principals inherit
// grants through role assignments:
//
//	p, role:editor, Team, view
//	p, role:admin, *, view
//	g, alice, role:editor
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	admin "github.com/goliatone/go-admin"
)

// Mode selects how decisions are applied.
type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

// ParseMode converts a case-insensitive name into a Mode. Empty selects
// ModeEnforce.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeEnforce, nil
	case ModeEnforce, ModeShadow, ModeDisabled:
		return mode, nil
	default:
		return "", fmt.Errorf("access: invalid mode %q (expected enforce|shadow|disabled)", raw)
	}
}

const (
	// ActionView is checked before a model is listed in navigation or
	// served by the HTTP surface.
	ActionView = "view"
	// Anonymous is the subject used for an empty principal.
	Anonymous = "anonymous"
	// Wildcard matches every model in a policy.
	Wildcard = "*"
)

// DefaultModel is the casbin model used when no model file is given.
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && r.act == p.act
`

// Authorizer answers admin.Authorizer questions from casbin policies.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
	mode     Mode
	action   string
	logger   admin.Logger
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithAction changes the action checked by CanAccess.
func WithAction(action string) Option {
	return func(a *Authorizer) {
		if action != "" {
			a.action = action
		}
	}
}

// WithLogger receives shadow mode denials.
func WithLogger(logger admin.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// New builds an authorizer over DefaultModel. policyPath may be empty to
// start without policies and add them with Grant and Assign.
func New(policyPath string, mode Mode, opts ...Option) (*Authorizer, error) {
	m, err := model.NewModelFromString(DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("access: default model: %w", err)
	}
	var enforcer *casbin.SyncedEnforcer
	if policyPath == "" {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	}
	if err != nil {
		return nil, fmt.Errorf("access: load policy: %w", err)
	}
	return newAuthorizer(enforcer, mode, opts)
}

// NewFromFiles builds an authorizer from a casbin model file and a CSV
// policy file.
func NewFromFiles(modelPath, policyPath string, mode Mode, opts ...Option) (*Authorizer, error) {
	enforcer, err := casbin.NewSyncedEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("access: load %s: %w", modelPath, err)
	}
	return newAuthorizer(enforcer, mode, opts)
}

func newAuthorizer(enforcer *casbin.SyncedEnforcer, mode Mode, opts []Option) (*Authorizer, error) {
	switch mode {
	case ModeEnforce, ModeShadow, ModeDisabled:
	default:
		return nil, fmt.Errorf("access: invalid mode %q", mode)
	}
	a := &Authorizer{enforcer: enforcer, mode: mode, action: ActionView}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Mode reports the configured mode.
func (a *Authorizer) Mode() Mode {
	return a.mode
}

// Grant allows subject to view each model. Use Wildcard for every model.
func (a *Authorizer) Grant(subject string, models ...string) error {
	var errs []error
	for _, m := range models {
		if _, err := a.enforcer.AddPolicy(Subject(subject), m, a.action); err != nil {
			errs = append(errs, fmt.Errorf("access: grant %s to %s: %w", m, subject, err))
		}
	}
	return errors.Join(errs...)
}

// Assign gives principal the grants of role.
func (a *Authorizer) Assign(principal, role string) error {
	if _, err := a.enforcer.AddGroupingPolicy(Subject(principal), role); err != nil {
		return fmt.Errorf("access: assign %s to %s: %w", role, principal, err)
	}
	return nil
}

// Authorize evaluates a raw request. enforced is false when the decision
// is not applied (shadow and disabled modes).
func (a *Authorizer) Authorize(subject, object, action string) (allowed bool, enforced bool, err error) {
	switch a.mode {
	case ModeDisabled:
		return true, false, nil
	case ModeShadow:
		ok, err := a.enforcer.Enforce(Subject(subject), object, action)
		if err != nil {
			return false, false, err
		}
		return ok, false, nil
	case ModeEnforce:
		ok, err := a.enforcer.Enforce(Subject(subject), object, action)
		if err != nil {
			return false, true, err
		}
		return ok, true, nil
	default:
		return false, false, fmt.Errorf("access: unknown mode %q", a.mode)
	}
}

// CanAccess implements admin.Authorizer. Shadow mode always allows and
// logs what enforcement would have denied.
func (a *Authorizer) CanAccess(principal string, m admin.ModelID) (bool, error) {
	allowed, enforced, err := a.Authorize(principal, string(m), a.action)
	if err != nil {
		return false, err
	}
	if enforced {
		return allowed, nil
	}
	if !allowed && a.logger != nil {
		a.logger.Printf("access: shadow deny %s %s for %q", a.action, m, Subject(principal))
	}
	return true, nil
}

// Subject normalises a principal, mapping empty to Anonymous.
func Subject(principal string) string {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return Anonymous
	}
	return principal
}

var _ admin.Authorizer = (*Authorizer)(nil)
