package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperator_Valid(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operator("like").Valid())
}

func TestOperator_MatchesMissing(t *testing.T) {
	assert.True(t, OpNe.MatchesMissing("x"))
	assert.True(t, OpNin.MatchesMissing([]any{"x"}))
	assert.True(t, OpExists.MatchesMissing(false))
	assert.False(t, OpExists.MatchesMissing(true))
	assert.False(t, OpEq.MatchesMissing("x"))
	assert.False(t, OpLt.MatchesMissing(1))
}

func TestCondition_String(t *testing.T) {
	c := Condition{
		Path:     []string{"fields", "slug"},
		Op:       OpEq,
		Expected: "home",
		Locales:  []string{"es-MX", "en-US"},
	}
	assert.Equal(t, `fields.slug[eq]="home"@es-MX,en-US`, c.String())
}

func TestNewFindOptions(t *testing.T) {
	o := NewFindOptions(WithLocale("de-DE"), WithInclude(-1), nil)
	assert.Equal(t, "de-DE", o.Locale)
	assert.Equal(t, 0, o.Include)

	again := NewFindOptions(NewFindOptions(WithInclude(2)).Options()...)
	assert.Equal(t, 2, again.Include)
}
