package core

import (
	"fmt"
	"reflect"
)

// AsyncInfo describes where a function expects its continuation
type AsyncInfo struct {
	Async    bool
	Position int
	IsLast   bool
}

// slotMarker is the type of ContinuationSlot
type slotMarker struct{}

// ContinuationSlot marks, in a bound argument list, the position where the
// step's *Continuation is substituted at call time
var ContinuationSlot = slotMarker{}

var (
	continuationType = reflect.TypeOf((*Continuation)(nil))
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
)

// InspectSignature reports whether a function type declares a
// continuation parameter. Only the declared parameter types are examined
func InspectSignature(fnType reflect.Type) (AsyncInfo, error) {
	if fnType == nil || fnType.Kind() != reflect.Func {
		return AsyncInfo{}, fmt.Errorf("%w: %v is not a function",
			ErrWrongParameterType, fnType)
	}

	info := AsyncInfo{Position: -1}
	for i := range fnType.NumIn() {
		if fnType.In(i) != continuationType {
			continue
		}
		if info.Async {
			return AsyncInfo{}, fmt.Errorf("%w: positions %d and %d",
				ErrWrongParameterFormat, info.Position, i)
		}
		info.Async = true
		info.Position = i
		info.IsLast = i == fnType.NumIn()-1
	}
	return info, nil
}

func isSlot(arg any) bool {
	_, ok := arg.(slotMarker)
	return ok
}

func slotPositions(args []any) []int {
	var res []int
	for i, a := range args {
		if isSlot(a) {
			res = append(res, i)
		}
	}
	return res
}

// checkSlot validates the placeholder position against the declared one.
// When the continuation is the last parameter the slot may be omitted
func checkSlot(info AsyncInfo, args []any) error {
	pos := slotPositions(args)
	switch {
	case !info.Async && len(pos) == 0:
		return nil
	case !info.Async:
		return fmt.Errorf(
			"%w: slot at %d but function takes no continuation",
			ErrWrongParameterPosition, pos[0])
	case len(pos) > 1:
		return fmt.Errorf("%w: slot supplied %d times",
			ErrWrongParameterPosition, len(pos))
	case len(pos) == 0 && info.IsLast:
		return nil
	case len(pos) == 0:
		return fmt.Errorf("%w: slot missing, expected at %d",
			ErrWrongParameterPosition, info.Position)
	case pos[0] != info.Position:
		return fmt.Errorf("%w: slot at %d, expected at %d",
			ErrWrongParameterPosition, pos[0], info.Position)
	}
	return nil
}
