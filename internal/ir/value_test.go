package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check via assignment
	var _ Value = Null{}
	var _ Value = Number(0.05)
	var _ Value = Text("gs4")
	var _ Value = Bool(true)
	var _ Value = Opaque{V: struct{}{}}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		val  Value
		want Kind
	}{
		{nil, KindNull},
		{Null{}, KindNull},
		{Number(1), KindNumber},
		{Text("a"), KindText},
		{Bool(false), KindBool},
		{Opaque{V: 3}, KindOpaque},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.val))
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Number(0.05), Number(0.05)))
	assert.True(t, Equal(Text("ratio"), Text("ratio")))
	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(Number(math.NaN()), Number(math.NaN())))
	assert.True(t, Equal(Opaque{V: []int{1, 2}}, Opaque{V: []int{1, 2}}))

	assert.False(t, Equal(Number(1), Text("1")), "variants must match")
	assert.False(t, Equal(Bool(true), Bool(false)))
	assert.False(t, Equal(Text("ratio"), Text("degrees")))
	assert.False(t, Equal(Null{}, Number(0)))
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"float", 0.05, Number(0.05)},
		{"int", 3, Number(3)},
		{"int64", int64(-7), Number(-7)},
		{"string", "gs4", Text("gs4")},
		{"bool", true, Bool(true)},
		{"nil", nil, Null{}},
		{"value passthrough", Text("x"), Text("x")},
		{"json number", json.Number("1.5"), Number(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	_, err := FromAny([]int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	assert.Panics(t, func() { MustFromAny(map[string]int{}) })
}

func TestToAnyRoundTrip(t *testing.T) {
	for _, in := range []any{0.25, "catalog", false} {
		v := MustFromAny(in)
		assert.Equal(t, in, ToAny(v))
	}
	assert.Nil(t, ToAny(Null{}))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.05", Format(Number(0.05)))
	assert.Equal(t, "880", Format(Number(880)))
	assert.Equal(t, "atMidflame", Format(Text("atMidflame")))
	assert.Equal(t, "true", Format(Bool(true)))
	assert.Equal(t, "null", Format(nil))
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal([]Value{Null{}, Number(1.5), Text("a"), Bool(true), Opaque{V: map[string]int{"n": 1}}})
	require.NoError(t, err)
	assert.Equal(t, `[null,1.5,"a",true,{"n":1}]`, string(data))
}
