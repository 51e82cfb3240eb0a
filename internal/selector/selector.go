// Package selector extracts values from decoded JSON payloads using
// JavaScript expressions, e.g. "payload[0]" or "payload.rates.BRL".
package selector

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

var errUndefined = errors.New("result is undefined")

// EvalError is returned when an expression fails against a payload.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("select %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Selector is a compiled expression.
type Selector struct {
	expr    string
	program *goja.Program
}

// Compile parses expr once so it can be evaluated against many payloads.
func Compile(expr string) (*Selector, error) {
	program, err := goja.Compile("select", expr, true)
	if err != nil {
		return nil, fmt.Errorf("invalid select expression %q: %w", expr, err)
	}
	return &Selector{expr: expr, program: program}, nil
}

// String returns the source expression.
func (s *Selector) String() string {
	return s.expr
}

// Eval runs the expression with payload bound to the name "payload".
// The result is normalized through JSON so it has the same shape as a
// decoded payload.
func (s *Selector) Eval(payload any) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := vm.Set("payload", payload); err != nil {
		return nil, &EvalError{Expr: s.expr, Err: fmt.Errorf("bind payload: %w", err)}
	}

	v, err := vm.RunProgram(s.program)
	if err != nil {
		return nil, &EvalError{Expr: s.expr, Err: err}
	}
	if goja.IsUndefined(v) {
		return nil, &EvalError{Expr: s.expr, Err: errUndefined}
	}

	data, err := json.Marshal(v.Export())
	if err != nil {
		return nil, &EvalError{Expr: s.expr, Err: err}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &EvalError{Expr: s.expr, Err: err}
	}
	return out, nil
}
