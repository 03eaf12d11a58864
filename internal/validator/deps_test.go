package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputedDepsResolve(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<State name="price" type="number" default="10"/>
		<State name="qty" type="number" default="1"/>
		<Computed name="total" value="$state.price * $state.qty"/>
		<Computed name="label" value="$computed.total" deps="price"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestComputedUnknownDeclaredDep(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<State name="count"/>
		<Computed name="total" value="1" deps="count, missing"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	assert.True(t, result.Valid, "unresolved deps warn, they do not reject")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Computed 'total' depends on unknown names: missing", result.Warnings[0].Message)
	assert.Equal(t, "Dependencies must name a declared state or computed variable", result.Warnings[0].Hint)
}

func TestComputedUnknownExpressionRef(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<Computed name="total" value="$state.ghost + 1"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "unknown names: ghost")
}

func TestComputedSelfReference(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<Computed name="total" value="$computed.total + 1"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Circular computed dependency: total -> total", result.Errors[0].Message)
}

func TestComputedCycle(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<Computed name="a" value="$computed.b + 1"/>
		<Computed name="b" value="$computed.a + 1"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Circular computed dependency: a -> b -> a", result.Errors[0].Message)
}

func TestComputedChainHasNoCycle(t *testing.T) {
	panel := mustParse(t, `<NexusPanel id="p"><Data>
		<State name="base" type="number" default="0"/>
		<Computed name="double" value="$state.base * 2"/>
		<Computed name="quad" value="$computed.double * 2"/>
		<Computed name="label" value="$computed.quad" deps="quad"/>
	</Data></NexusPanel>`)

	result := New().Validate(panel)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestExtractComputedRefs(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"state ref", "$state.count + 1", []string{"count"}},
		{"computed ref", "$computed.total * 2", []string{"total"}},
		{"mixed", "$state.a + $computed.b - $state.c", []string{"a", "b", "c"}},
		{"deduplicated", "$state.x + $state.x", []string{"x"}},
		{"no refs", "1 + 2", []string{}},
		{"bare dollar ignored", "$other.thing", []string{}},
		{"underscore names", "$state._private1", []string{"_private1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractComputedRefs(tt.expr))
		})
	}
}

func TestFindCyclesReportsEachCycleOnce(t *testing.T) {
	graph := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {"d"},
		"d": {},
		"e": {"e"},
	}

	cycles := findCycles(graph)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0])
	assert.Equal(t, []string{"e", "e"}, cycles[1])
}
