package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSlots(t *testing.T) {
	cases := []struct {
		desc string
		want int
	}{
		{"I", 1},
		{"Z", 1},
		{"J", 2},
		{"D", 2},
		{"V", 0},
		{"Ljava/lang/String;", 1},
		{"[D", 1},
		{"[[J", 1},
	}
	for _, tc := range cases {
		got, err := TypeSlots(tc.desc)
		require.NoError(t, err, tc.desc)
		assert.Equal(t, tc.want, got, tc.desc)
	}

	_, err := TypeSlots("")
	assert.Error(t, err)
	_, err = TypeSlots("Q")
	assert.Error(t, err)
}

func TestMethodArgTypes(t *testing.T) {
	args, ret, err := MethodArgTypes("(IJLjava/lang/String;[D)V")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "J", "Ljava/lang/String;", "[D"}, args)
	assert.Equal(t, "V", ret)

	args, ret, err = MethodArgTypes("()Ljava/lang/Object;")
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t, "Ljava/lang/Object;", ret)

	for _, bad := range []string{"", "I", "(I", "(X)V", "(I)", "(Ljava/lang/String)V"} {
		_, _, err := MethodArgTypes(bad)
		assert.Error(t, err, bad)
	}
}

func TestMethodDescriptorSlots(t *testing.T) {
	argSlots, retSlots, err := MethodDescriptorSlots("(IJLjava/lang/String;[D)V")
	require.NoError(t, err)
	assert.Equal(t, 5, argSlots)
	assert.Equal(t, 0, retSlots)

	argSlots, retSlots, err = MethodDescriptorSlots("()J")
	require.NoError(t, err)
	assert.Equal(t, 0, argSlots)
	assert.Equal(t, 2, retSlots)
}
