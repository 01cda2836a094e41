package admin

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField marks a field name absent from the introspected schema.
	ErrUnknownField = errors.New("admin: unknown field")
	// ErrUnknownModel marks a model the introspector does not know about.
	ErrUnknownModel = errors.New("admin: unknown model")
	// ErrExcludedModel marks a view request against an excluded model.
	ErrExcludedModel = errors.New("admin: excluded model")
	// ErrRuleType marks an expression rule that produced a value of the wrong type.
	ErrRuleType = errors.New("admin: rule produced unexpected type")
	// ErrGlobalField marks a field declaration made in global scope.
	ErrGlobalField = errors.New("admin: fields cannot be declared in global scope")
	// ErrNoEvaluator is returned when an expression rule is declared and no
	// evaluator is available.
	ErrNoEvaluator = errors.New("admin: evaluator not configured")
)

// UnknownFieldError reports a field declaration or lookup that does not
// exist on the model.
type UnknownFieldError struct {
	Model   ModelID
	Section SectionKind
	Field   string
}

func (e *UnknownFieldError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("admin: unknown field %q on model %s", e.Field, e.Model)
	}
	return fmt.Sprintf("admin: unknown field %q on model %s (section %s)", e.Field, e.Model, e.Section)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// UnknownModelError reports a model the schema source does not define.
type UnknownModelError struct {
	Model ModelID
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("admin: unknown model %s", e.Model)
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// ExcludedModelError reports a view request for an excluded model.
type ExcludedModelError struct {
	Model ModelID
}

func (e *ExcludedModelError) Error() string {
	return fmt.Sprintf("admin: model %s is excluded", e.Model)
}

func (e *ExcludedModelError) Is(target error) bool {
	return target == ErrExcludedModel
}

// IsNotFound reports whether err should surface as a not-found result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExcludedModel) || errors.Is(err, ErrUnknownModel)
}

func errUnknownSection(kind SectionKind) error {
	return fmt.Errorf("admin: unknown section %q", string(kind))
}
