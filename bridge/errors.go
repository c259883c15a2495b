package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrEnvironmentNotReady = errors.New("no foreign-runtime functionality can be used until the host runtime is initialized")
	ErrSymbolResolution    = errors.New("foreign symbol could not be resolved")
	ErrArity               = errors.New("wrong number of arguments")
	ErrTypeCoercion        = errors.New("argument cannot be converted")
)

// SymbolError reports a symbol the foreign runtime does not know.
type SymbolError struct {
	Name string
	Err  error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Name, e.Err)
}

func (e *SymbolError) Unwrap() []error { return []error{ErrSymbolResolution, e.Err} }

// ArityError reports a call with an unsupported number of arguments.
type ArityError struct {
	Op  string
	Got int
	Msg string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s (got %d)", e.Op, e.Msg, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArity }

func notEnough(op string, got int) error {
	return &ArityError{Op: op, Got: got, Msg: "not enough arguments"}
}

func tooMany(op string, got int) error {
	return &ArityError{Op: op, Got: got, Msg: "too many arguments"}
}

// CoercionError reports an argument whose shape has no conversion.
type CoercionError struct {
	Op  string
	Arg string
	Msg string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Arg, e.Msg)
}

func (e *CoercionError) Unwrap() error { return ErrTypeCoercion }

func coercion(op, arg, format string, a ...any) error {
	return &CoercionError{Op: op, Arg: arg, Msg: fmt.Sprintf(format, a...)}
}
