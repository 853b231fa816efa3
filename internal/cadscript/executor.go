// Package cadscript executes generated modeling scripts in a sandboxed
// interpreter. The only symbols visible to a script are the cad kernel
// entry points and a pre-declared result placeholder; the script must
// leave its final workplane in result.
package cadscript

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"automodel/internal/cad"
)

type Kind int

const (
	KindSyntax Kind = iota + 1
	KindRuntime
	KindInvalidResult
)

// Error is a typed execution failure. It always carries the full script
// text so the user can inspect what was attempted.
type Error struct {
	Kind   Kind
	Script string
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindSyntax:
		return fmt.Sprintf("syntax error in generated script: %s\nGenerated code:\n%s", e.Detail, e.Script)
	case KindRuntime:
		return fmt.Sprintf("error executing generated script: %s\nGenerated code:\n%s", e.Detail, e.Script)
	default:
		return fmt.Sprintf("generated script did not produce a valid model assigned to 'result'.\nGenerated code:\n%s", e.Script)
	}
}

// resultBinding is the well-known name the script must assign its final
// workplane to.
const resultBinding = "result"

// solidBuilder is the capability the result value must expose.
type solidBuilder interface {
	Solid() (*cad.Solid, error)
}

// Symbols returns the kernel bindings injected into the script namespace.
// Scripts see exactly two constructors: cad.Workplane and cad.Sketch.
func Symbols() interp.Exports {
	return interp.Exports{
		"cad/cad": {
			"Workplane": reflect.ValueOf(cad.NewWorkplane),
			"Sketch":    reflect.ValueOf(cad.NewSketch),
		},
	}
}

type Executor struct{}

func New() *Executor {
	return &Executor{}
}

// Execute runs the script in a fresh interpreter and returns the solid
// bound to result. Every failure path is converted to a typed *Error; no
// panic escapes this boundary.
func (e *Executor) Execute(code string) (solid *cad.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			solid = nil
			err = &Error{Kind: KindRuntime, Script: code, Detail: fmt.Sprint(r)}
		}
	}()

	if perr := checkSyntax(code); perr != nil {
		return nil, &Error{Kind: KindSyntax, Script: code, Detail: perr.Error()}
	}

	i := interp.New(interp.Options{})
	if uerr := i.Use(Symbols()); uerr != nil {
		return nil, &Error{Kind: KindRuntime, Script: code, Detail: uerr.Error()}
	}
	if _, ierr := i.Eval(`import "cad"`); ierr != nil {
		return nil, &Error{Kind: KindRuntime, Script: code, Detail: ierr.Error()}
	}
	if _, derr := i.Eval("var " + resultBinding + " interface{}"); derr != nil {
		return nil, &Error{Kind: KindRuntime, Script: code, Detail: derr.Error()}
	}

	if _, everr := i.Eval(code); everr != nil {
		var p interp.Panic
		if errors.As(everr, &p) {
			// a kernel panic raised while the script ran
			return nil, &Error{Kind: KindRuntime, Script: code, Detail: fmt.Sprint(p.Value)}
		}
		// compile-stage failures (undefined names, type mismatches)
		return nil, &Error{Kind: KindSyntax, Script: code, Detail: everr.Error()}
	}

	v, rerr := i.Eval(resultBinding)
	if rerr != nil || !v.IsValid() {
		return nil, &Error{Kind: KindInvalidResult, Script: code}
	}
	builder, ok := v.Interface().(solidBuilder)
	if !ok || builder == nil {
		return nil, &Error{Kind: KindInvalidResult, Script: code}
	}
	s, serr := builder.Solid()
	if serr != nil {
		return nil, &Error{Kind: KindInvalidResult, Script: code, Detail: serr.Error()}
	}
	return s, nil
}

// checkSyntax parses the script as a function body so plain statement
// sequences are accepted. Import declarations are rejected here, which
// matches the prompt contract.
func checkSyntax(code string) error {
	src := "package main\nfunc main() {\n" + code + "\n}\n"
	_, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, 0)
	return err
}
