package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// CELConditionEvaluator evaluates Disabled conditions as CEL expressions with the
// document bound to the variable "data". Compiled programs are cached per expression.
type CELConditionEvaluator struct {
	env      *cel.Env
	prgCache map[string]cel.Program
	mu       sync.RWMutex
}

func NewCELConditionEvaluator() (*CELConditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("data", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return &CELConditionEvaluator{env: env, prgCache: make(map[string]cel.Program)}, nil
}

func (e *CELConditionEvaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expression]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expression]; hit {
		return prg, nil
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expression, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program condition %q: %w", expression, err)
	}
	e.prgCache[expression] = prg
	return prg, nil
}

// Evaluate returns the boolean result of expression. Non-boolean results are errors.
func (e *CELConditionEvaluator) Evaluate(expression string, doc domain.Document) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}
	data, err := celInput(doc)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{"data": data})
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", expression, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %s, want bool", expression, out.Type().TypeName())
	}
	return result, nil
}

// celInput re-decodes the document without json.Number, which CEL cannot convert.
func celInput(doc domain.Document) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}

var _ port.ConditionEvaluator = (*CELConditionEvaluator)(nil)

// Compile checks that expression is valid CEL and caches its program.
func (e *CELConditionEvaluator) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

// CheckConditions compiles every Disabled condition in layout and reports all that
// fail, keyed by node path.
func (e *CELConditionEvaluator) CheckConditions(layout domain.Layout) error {
	var errs []error
	_ = domain.Walk(layout.Nodes, func(path string, node domain.Node) error {
		var disabled *domain.Disabled
		switch n := node.(type) {
		case domain.Button:
			disabled = n.Disabled
		case domain.BoolButton:
			disabled = n.Disabled
		}
		if disabled == nil {
			return nil
		}
		if expr, ok := disabled.Condition(); ok {
			if err := e.Compile(expr); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
			}
		}
		return nil
	})
	return errors.Join(errs...)
}
