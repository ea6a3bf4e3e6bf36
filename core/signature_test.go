package core

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInspectSignature verifies continuation detection from declared types
// Given: Functions with zero, one, and two continuation parameters
// When: InspectSignature is called on their types
// Then: Position and IsLast are reported, duplicates are rejected
func TestInspectSignature(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want AsyncInfo
		err  error
	}{
		{
			name: "sync",
			fn:   func(a, b int) int { return a + b },
			want: AsyncInfo{Position: -1},
		},
		{
			name: "no params",
			fn:   func() {},
			want: AsyncInfo{Position: -1},
		},
		{
			name: "last",
			fn:   func(a, b int, c *Continuation) {},
			want: AsyncInfo{Async: true, Position: 2, IsLast: true},
		},
		{
			name: "first",
			fn:   func(c *Continuation, a int) {},
			want: AsyncInfo{Async: true, Position: 0},
		},
		{
			name: "only",
			fn:   func(c *Continuation) {},
			want: AsyncInfo{Async: true, Position: 0, IsLast: true},
		},
		{
			name: "twice",
			fn:   func(a, b int, c1, c2 *Continuation) {},
			err:  ErrWrongParameterFormat,
		},
		{
			name: "double pointer is not a continuation",
			fn:   func(c **Continuation) {},
			want: AsyncInfo{Position: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InspectSignature(reflect.TypeOf(tt.fn))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInspectSignature_NotAFunction(t *testing.T) {
	_, err := InspectSignature(reflect.TypeOf(42))
	assert.ErrorIs(t, err, ErrWrongParameterType)

	_, err = InspectSignature(nil)
	assert.ErrorIs(t, err, ErrWrongParameterType)
}

// TestCheckSlot verifies placeholder placement rules
// Given: Declared continuation positions and bound argument lists
// When: checkSlot is called
// Then: Only matching positions (or an omitted trailing slot) pass
func TestCheckSlot(t *testing.T) {
	last := AsyncInfo{Async: true, Position: 2, IsLast: true}
	middle := AsyncInfo{Async: true, Position: 1}
	sync := AsyncInfo{Position: -1}

	tests := []struct {
		name string
		info AsyncInfo
		args []any
		ok   bool
	}{
		{"last omitted", last, []any{1, 2}, true},
		{"last present", last, []any{1, 2, ContinuationSlot}, true},
		{"last misplaced", last, []any{1, ContinuationSlot, 2}, false},
		{"middle present", middle, []any{1, ContinuationSlot, 3}, true},
		{"middle omitted", middle, []any{1, 3}, false},
		{"middle misplaced", middle, []any{ContinuationSlot, 1, 3}, false},
		{"twice", last, []any{1, ContinuationSlot, ContinuationSlot}, false},
		{"sync without slot", sync, []any{1, 2}, true},
		{"sync with slot", sync, []any{1, ContinuationSlot}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSlot(tt.info, tt.args)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWrongParameterPosition)
			}
		})
	}
}
