package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOperator(t *testing.T) {
	cases := map[string]Operator{
		">":            GreaterThan,
		" < ":          LessThan,
		"greater_than": GreaterThan,
		"LESS_THAN":    LessThan,
	}
	for in, want := range cases {
		got, ok := ParseOperator(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", ">=", "eq", "above"} {
		_, ok := ParseOperator(in)
		assert.False(t, ok, in)
	}
}

func TestOperatorMatchesIsStrict(t *testing.T) {
	assert.True(t, GreaterThan.Matches(61000, 60000))
	assert.False(t, GreaterThan.Matches(60000, 60000))
	assert.True(t, LessThan.Matches(49000, 50000))
	assert.False(t, LessThan.Matches(50000, 50000))
	assert.False(t, Operator("eq").Matches(1, 1))
}
