package scripting

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/joeycumines/snipbox/internal/inspect"
)

// Evaluator runs snippet source and returns the value it produced. It is the
// seam between the execution controller and the JavaScript backend; calls
// happen on the event loop goroutine.
type Evaluator interface {
	Evaluate(vm *goja.Runtime, source string) (goja.Value, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(vm *goja.Runtime, source string) (goja.Value, error)

func (f EvaluatorFunc) Evaluate(vm *goja.Runtime, source string) (goja.Value, error) {
	return f(vm, source)
}

// FunctionEvaluator evaluates source as the body of a freestanding function,
// equivalent to new Function(source)(): top-level return statements are
// allowed and the body sees only the global scope.
type FunctionEvaluator struct{}

func (FunctionEvaluator) Evaluate(vm *goja.Runtime, source string) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &ExecutionError{Kind: ErrExecution, Message: fmt.Sprint(r)}
		}
	}()
	fn, err := vm.New(vm.Get("Function"), vm.ToValue(source))
	if err != nil {
		return nil, executionError(err)
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, &ExecutionError{Kind: ErrExecution, Message: "Function constructor did not return a function"}
	}
	result, err = call(goja.Undefined())
	if err != nil {
		return nil, executionError(err)
	}
	return result, nil
}

// executionError converts an error from goja into an ExecutionError whose
// message is what the thrown value would print as its message.
func executionError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &ExecutionError{Kind: ErrCanceled, Message: "execution interrupted: " + fmt.Sprint(interrupted.Value()), Err: err}
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &ExecutionError{Kind: ErrExecution, Message: thrownMessage(exc.Value()), Err: err}
	}
	return &ExecutionError{Kind: ErrExecution, Message: err.Error(), Err: err}
}

// thrownMessage is error.message for Error objects and the serialized value
// for anything else thrown or rejected.
func thrownMessage(v goja.Value) (msg string) {
	defer func() {
		if recover() != nil {
			msg = "uncaught exception"
		}
	}()
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if o, ok := v.(*goja.Object); ok && o.ClassName() == "Error" {
		if m := o.Get("message"); m != nil && !goja.IsUndefined(m) {
			return m.String()
		}
	}
	return inspect.Serialize(v)
}
