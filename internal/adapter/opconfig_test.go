package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfiguration(t *testing.T) {
	mc, err := ParseConfiguration(`
global {
    verifyMutants=true
    defaultEnabled=false
}
AOP {
    selective=true
    properties:
    opcodeRange=all
}
ROP:off {
}
AFC {
}
`)
	require.NoError(t, err)

	assert.Equal(t, "true", mc.Global["verifyMutants"])
	assert.Equal(t, []string{"AOP", "AFC"}, mc.EnabledOperators())

	ops := mc.Operators()
	require.Len(t, ops, 3)

	aop := ops[0]
	assert.Equal(t, "AOP", aop.Name)
	assert.True(t, aop.Enabled)
	// Keys before the properties: marker are settings, the rest are
	// properties.
	assert.Equal(t, map[string]string{"selective": "true"}, aop.Settings)
	assert.Equal(t, map[string]string{"opcodeRange": "all"}, aop.Properties)

	rop := ops[1]
	assert.Equal(t, "ROP", rop.Name)
	assert.False(t, rop.Enabled)

	afc := ops[2]
	assert.Nil(t, afc.Settings)
	assert.Empty(t, afc.Properties)
}

func TestParseConfigurationDefaults(t *testing.T) {
	mc, err := ParseConfiguration(`
global {
}
ROP:off {
}
`)
	require.NoError(t, err)

	// Unmentioned default operators are enabled; the disabled one is
	// not resurrected by the default list.
	assert.Equal(t, []string{"AOP", "AFC", "AOC"}, mc.EnabledOperators())
}

func TestParseConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing global", "AOP {\n}\n"},
		{"missing open brace", "global\nkey=value\n}\n"},
		{"unterminated block", "global {\nkey=value\n"},
		{"bare word in block", "global {\nnotakeyvalue\n}\n"},
		{"no operators enabled", "global {\ndefaultEnabled=false\n}\nAOP:off {\n}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfiguration(tc.src)
			assert.Error(t, err)
		})
	}
}
