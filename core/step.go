package core

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"slices"
	"time"
)

// StepMode tells whether a step resolves on return or via its continuation
type StepMode int

const (
	StepModeSync StepMode = iota
	StepModeAsync
)

func (m StepMode) String() string {
	if m == StepModeAsync {
		return "async"
	}
	return "sync"
}

// step is one registered function with its bound arguments. The slot
// position of an async step holds the zero reflect.Value until call time
type step struct {
	index int
	name  string
	fn    reflect.Value
	args  []reflect.Value
	async AsyncInfo
}

func newStep(name string, fn any, args []any) (*step, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: expected a function, got nil",
			ErrWrongParameterType)
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: expected a function, got %T",
			ErrWrongParameterType, fn)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("%w: nil %T", ErrWrongParameterType, fn)
	}

	info, err := InspectSignature(v.Type())
	if err != nil {
		return nil, err
	}
	if err := checkSlot(info, args); err != nil {
		return nil, err
	}
	if info.Async && len(slotPositions(args)) == 0 {
		args = append(slices.Clone(args), ContinuationSlot)
	}

	bound, err := bindArgs(v.Type(), args)
	if err != nil {
		return nil, err
	}
	return &step{
		name:  resolveStepName(fn, name),
		fn:    v,
		args:  bound,
		async: info,
	}, nil
}

// resolveStepName prefers the explicit name, then the function symbol
func resolveStepName(fn any, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil && f.Name() != "" {
		return f.Name()
	}
	return "anonymous"
}

// Mode reports how the step resolves
func (s *step) Mode() StepMode {
	if s.async.Async {
		return StepModeAsync
	}
	return StepModeSync
}

func bindArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	n := t.NumIn()
	if t.IsVariadic() && len(args) < n-1 ||
		!t.IsVariadic() && len(args) != n {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrArgumentMismatch, t, n, len(args))
	}

	res := make([]reflect.Value, len(args))
	for i, a := range args {
		if isSlot(a) {
			continue
		}
		pt := paramType(t, i)
		v, ok := bindArg(pt, a)
		if !ok {
			return nil, fmt.Errorf("%w: argument %d: %T is not assignable to %s",
				ErrArgumentMismatch, i, a, pt)
		}
		res[i] = v
	}
	return res, nil
}

func paramType(t reflect.Type, i int) reflect.Type {
	if last := t.NumIn() - 1; t.IsVariadic() && i >= last {
		return t.In(last).Elem()
	}
	return t.In(i)
}

func bindArg(pt reflect.Type, a any) (reflect.Value, bool) {
	if a == nil {
		switch pt.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
			reflect.Pointer, reflect.Slice:
			return reflect.Zero(pt), true
		default:
			return reflect.Value{}, false
		}
	}
	v := reflect.ValueOf(a)
	if !v.Type().AssignableTo(pt) {
		return reflect.Value{}, false
	}
	return v, true
}

// invoke runs the step for the given run generation. Sync steps feed their
// result straight back into the engine, async steps get a continuation
func (s *step) invoke(e *Engine, gen uint64, input any) {
	started := time.Now()

	if s.async.Async {
		c := newContinuation(e, s, gen, input, started)
		e.track(c)
		if _, err := s.call(s.callArgs(c)); err != nil {
			c.Fail(err)
		}
		return
	}

	res, err := s.call(s.callArgs(nil))
	e.finishStep(s, gen, started, err)
	if err != nil {
		e.fail(gen, err)
		return
	}
	e.resume(gen, res)
}

func (s *step) callArgs(c *Continuation) []reflect.Value {
	in := slices.Clone(s.args)
	if c != nil {
		in[s.async.Position] = reflect.ValueOf(c)
	}
	return in
}

func (s *step) call(in []reflect.Value) (res any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return splitResults(s.fn.Call(in))
}

// splitResults strips a trailing error return and collapses the rest:
// nothing is nil, a single value is itself, several become []any
func splitResults(out []reflect.Value) (any, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		vals := make([]any, len(out))
		for i, o := range out {
			vals[i] = o.Interface()
		}
		return vals, err
	}
}
