package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompareHeights(t *testing.T) {
	testCases := []struct {
		name        string
		height1     Height
		height2     Height
		compareSign int64
	}{
		{"revision number 1 is lesser", NewHeight(1, 3), NewHeight(3, 4), -1},
		{"revision number 1 is greater", NewHeight(7, 5), NewHeight(4, 5), 1},
		{"revision height 1 is lesser", NewHeight(3, 4), NewHeight(3, 9), -1},
		{"revision height 1 is greater", NewHeight(3, 8), NewHeight(3, 3), 1},
		{"revision number is MaxUint64", NewHeight(math.MaxUint64, 1), NewHeight(0, 1), 1},
		{"revision height is MaxUint64", NewHeight(1, math.MaxUint64), NewHeight(1, 0), 1},
		{"height is equal", NewHeight(4, 4), NewHeight(4, 4), 0},
	}

	for i, tc := range testCases {
		compare := tc.height1.Compare(tc.height2)

		switch tc.compareSign {
		case -1:
			require.True(t, compare == -1, "case %d: %s should return negative value on comparison, got: %d",
				i, tc.name, compare)
		case 0:
			require.True(t, compare == 0, "case %d: %s should return zero on comparison, got: %d",
				i, tc.name, compare)
		case 1:
			require.True(t, compare == 1, "case %d: %s should return positive value on comparison, got: %d",
				i, tc.name, compare)
		}
	}
}

func TestDecrement(t *testing.T) {
	validDecrement := NewHeight(3, 3)
	expected := NewHeight(3, 2)

	actual, success := validDecrement.Decrement()
	require.Equal(t, expected, actual, "decrementing %s did not return expected height: %s. got %s",
		validDecrement, expected, actual)
	require.True(t, success, "decrement failed unexpectedly")

	invalidDecrement := NewHeight(3, 0)
	actual, success = invalidDecrement.Decrement()

	require.Equal(t, Height{}, actual, "invalid decrement returned non-zero height: %s", actual)
	require.False(t, success, "invalid decrement passed")
}

func TestString(t *testing.T) {
	_, err := ParseHeight("height")
	require.Error(t, err, "invalid height string passed")

	_, err = ParseHeight("revision-10")
	require.Error(t, err, "invalid revision string passed")

	_, err = ParseHeight("3-height")
	require.Error(t, err, "invalid revision-height string passed")

	height := NewHeight(3, 4)
	recovered, err := ParseHeight(height.String())

	require.NoError(t, err, "valid height string could not be parsed")
	require.Equal(t, height, recovered, "recovered height not equal to original height")

	parse, err := ParseHeight("3-10")
	require.NoError(t, err, "parse err")
	require.Equal(t, NewHeight(3, 10), parse, "parse height returns wrong height")
}

func TestParseChainID(t *testing.T) {
	cases := []struct {
		chainID   string
		revision  uint64
		formatted bool
	}{
		{"gaiamainnet-3", 3, true},
		{"a-1", 1, true},
		{"gaia-mainnet-40", 40, true},
		{"gaiamainnet-3-39", 39, true},
		{"gaiamainnet--", 0, false},
		{"gaiamainnet-03", 0, false},
		{"gaiamainnet--4", 0, false},
		{"gaiamainnet-3.4", 0, false},
		{"gaiamainnet", 0, false},
		{"a--1", 0, false},
		{"-1", 0, false},
		{"--1", 0, false},
	}

	for i, tc := range cases {
		require.Equal(t, tc.formatted, IsRevisionFormat(tc.chainID), "id %s does not match expected format", tc.chainID)

		revision := ParseChainID(tc.chainID)
		require.Equal(t, tc.revision, revision, "case %d returns incorrect revision", i)
	}
}

func TestHeightOrderingProperty(t *testing.T) {
	genHeight := func(t *rapid.T, label string) Height {
		return NewHeight(
			rapid.Uint64Range(0, 3).Draw(t, label+"_rev").(uint64),
			rapid.Uint64Range(0, 10).Draw(t, label+"_height").(uint64),
		)
	}

	rapid.Check(t, func(t *rapid.T) {
		a := genHeight(t, "a")
		b := genHeight(t, "b")
		c := genHeight(t, "c")

		// antisymmetry
		require.Equal(t, a.Compare(b), -b.Compare(a))
		// totality
		require.True(t, a.LTE(b) || b.LTE(a))
		// transitivity
		if a.LTE(b) && b.LTE(c) {
			require.True(t, a.LTE(c))
		}
		// increment strictly advances
		require.True(t, a.Increment().GT(a))
		require.Equal(t, a.EQ(b), a == b)
	})
}
