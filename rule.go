package admin

import (
	"fmt"
	"time"
)

type ruleKind uint8

const (
	ruleUnset ruleKind = iota
	ruleLiteral
	ruleCompute
	ruleExpression
)

func (k ruleKind) String() string {
	switch k {
	case ruleLiteral:
		return "literal"
	case ruleCompute:
		return "compute"
	case ruleExpression:
		return "expression"
	default:
		return "unset"
	}
}

// Rule is a lazily evaluated attribute value. A literal replaces the running
// value; a computed or expression rule receives the running value of the
// previous layer and returns the next one. The zero Rule is unset and leaves
// the running value untouched.
type Rule[T any] struct {
	kind    ruleKind
	literal T
	compute func(current T) T
	source  string
	engine  string
	program CompiledRule
}

// Literal returns a rule that always yields v.
func Literal[T any](v T) Rule[T] {
	return Rule[T]{kind: ruleLiteral, literal: v}
}

// Compute returns a rule that derives its value from the running value.
// A nil fn yields an unset rule.
func Compute[T any](fn func(current T) T) Rule[T] {
	if fn == nil {
		return Rule[T]{}
	}
	return Rule[T]{kind: ruleCompute, compute: fn}
}

// Expression compiles src with evaluator. The running value is bound as
// "value" and under the attribute name ("label", "help", "visible",
// "required").
func Expression[T any](evaluator Evaluator, src string) (Rule[T], error) {
	if evaluator == nil {
		return Rule[T]{}, ErrNoEvaluator
	}
	if src == "" {
		return Rule[T]{}, wrapEvaluatorError(evaluatorEngineName(evaluator), fmt.Errorf("expression must not be empty"))
	}
	engine := evaluatorEngineName(evaluator)
	program, err := evaluator.Compile(src)
	if err != nil {
		return Rule[T]{}, wrapEvaluationError(engine, src, "", err)
	}
	return Rule[T]{kind: ruleExpression, source: src, engine: engine, program: program}, nil
}

// IsSet reports whether the rule contributes a value.
func (r Rule[T]) IsSet() bool {
	return r.kind != ruleUnset
}

// Kind returns "literal", "compute", "expression" or "unset".
func (r Rule[T]) Kind() string {
	return r.kind.String()
}

// Source returns the expression text of an expression rule.
func (r Rule[T]) Source() string {
	return r.source
}

func (r Rule[T]) apply(ctx RuleContext, current T, logger EvaluatorLogger) (T, error) {
	switch r.kind {
	case ruleLiteral:
		return r.literal, nil
	case ruleCompute:
		return r.compute(current), nil
	case ruleExpression:
		return r.evaluate(ctx, current, logger)
	default:
		return current, nil
	}
}

func (r Rule[T]) evaluate(ctx RuleContext, current T, logger EvaluatorLogger) (T, error) {
	ctx.Current = current
	ctx = ctx.withDefaults()
	start := time.Now()
	raw, err := r.program.Evaluate(ctx)
	if err == nil {
		err = coerceInto(raw, &current)
	}
	if err != nil {
		err = wrapEvaluationError(r.engine, r.source, ctx.scopeLabel(), err)
		if evalErr, ok := err.(*EvaluationError); ok && evalErr.Attribute == "" {
			evalErr.Attribute = ctx.Attribute
		}
	}
	if logger != nil {
		logger.LogEvaluation(EvaluatorLogEvent{
			Engine:    r.engine,
			Expr:      r.source,
			Scope:     ctx.scopeLabel(),
			Model:     ctx.Model,
			Section:   ctx.Section,
			Attribute: ctx.Attribute,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return current, err
}

func coerceInto[T any](raw any, out *T) error {
	if value, ok := raw.(T); ok {
		*out = value
		return nil
	}
	return fmt.Errorf("%w: got %T, want %T", ErrRuleType, raw, *out)
}
