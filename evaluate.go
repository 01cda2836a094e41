package admin

import (
	"fmt"
	"time"
)

// Evaluate runs an ad hoc expression with the registry's evaluator. It is
// used by tooling to preview expression rules before declaring them.
func (r *Registry) Evaluate(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if r.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(r.evaluator)
	start := time.Now()
	value, evalErr := r.evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.scopeLabel(), evalErr)
	r.cfg.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:    engine,
		Expr:      expr,
		Scope:     ctx.scopeLabel(),
		Model:     ctx.Model,
		Section:   ctx.Section,
		Attribute: ctx.Attribute,
		Duration:  duration,
		Err:       evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func resolveEvaluator(cfg registryConfig) Evaluator {
	if cfg.evaluator != nil {
		return cfg.evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	return NewExprEvaluator(exprOpts...)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*admin.exprEvaluator":
		return "expr"
	case "*admin.celEvaluator":
		return "cel"
	case "*admin.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
