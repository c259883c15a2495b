package kafka

import (
	"fmt"
	"slices"

	"tablebridge/foreign"
)

func arity(method string, args []any, allowed ...int) error {
	if slices.Contains(allowed, len(args)) {
		return nil
	}
	return fmt.Errorf("%s: got %d arguments, want %v", method, len(args), allowed)
}

func argError(method string, i int, want string, got any) error {
	return fmt.Errorf("%s: argument %d: want %s, got %T", method, i, want, got)
}

func arrayArg(method string, args []any, i int, elem foreign.ElemType) (foreign.Array, error) {
	a, ok := args[i].(foreign.Array)
	if !ok || a.Elem != elem {
		return foreign.Array{}, argError(method, i, string(elem)+" array", args[i])
	}
	return a, nil
}

func int32sArg(method string, args []any, i int) ([]int32, error) {
	a, err := arrayArg(method, args, i, foreign.ElemInt32)
	if err != nil {
		return nil, err
	}
	return a.Int32s()
}

func int64sArg(method string, args []any, i int) ([]int64, error) {
	a, err := arrayArg(method, args, i, foreign.ElemInt64)
	if err != nil {
		return nil, err
	}
	return a.Int64s()
}

func stringsArg(method string, args []any, i int) ([]string, error) {
	a, err := arrayArg(method, args, i, foreign.ElemString)
	if err != nil {
		return nil, err
	}
	return a.Strings()
}
