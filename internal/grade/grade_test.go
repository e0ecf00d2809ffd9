package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	s := Scale()
	require.Len(t, s, 31)
	assert.Equal(t, Grade("4"), s[0])
	assert.Equal(t, Grade("9c"), s[30])

	s[0] = "mutated"
	assert.Equal(t, Grade("4"), Scale()[0], "Scale must return a copy")
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 0, IndexOf("4"))
	assert.Equal(t, 8, IndexOf("6a"))
	assert.Equal(t, 30, IndexOf("9c"))
	assert.Equal(t, -1, IndexOf("10a"))
	assert.Equal(t, -1, IndexOf(""))
}

func TestCompareUsesScaleNotStrings(t *testing.T) {
	tests := []struct {
		a, b Grade
		want int
	}{
		{"9a", "6a+", 1},
		{"6a+", "6a", 1},
		{"5c+", "6a", -1},
		{"9a", "9b", -1},
		{"7b", "7b", 0},
		{"bogus", "4", -1},
		{"bogus", "other", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.a)+"_vs_"+string(tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	all := append(Scale(), "unknown")
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, Compare(a, b), -Compare(b, a), "%s vs %s", a, b)
		}
	}
}

func TestToUIAA(t *testing.T) {
	assert.Equal(t, "IV", ToUIAA("4"))
	assert.Equal(t, "VI+", ToUIAA("5c+"))
	assert.Equal(t, "VI+", ToUIAA("6a"))
	assert.Equal(t, "VIII+", ToUIAA("7a+"))
	assert.Equal(t, "XII+", ToUIAA("9c"))
	assert.Equal(t, "legacy", ToUIAA("legacy"))
}

func TestToFrenchPicksEasiestRepresentative(t *testing.T) {
	assert.Equal(t, Grade("5c+"), ToFrench("VI+"))
	assert.Equal(t, Grade("7a"), ToFrench("VIII+"))
	assert.Equal(t, Grade("7c"), ToFrench("IX+"))
	assert.Equal(t, Grade("9b"), ToFrench("XII+"))
	assert.Equal(t, Grade("XIII"), ToFrench("XIII"))
}

func TestRoundTripStableFromUIAASide(t *testing.T) {
	for _, g := range Scale() {
		u := ToUIAA(g)
		assert.Equal(t, u, ToUIAA(ToFrench(u)), "grade %s", g)
	}
	assert.NotEqual(t, Grade("7a+"), ToFrench(ToUIAA("7a+")))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("8b+"))
	assert.False(t, IsValid("8d"))
	assert.True(t, Harder("8b+", "8b"))
	assert.False(t, Harder("8b", "8b"))
}

func TestParse(t *testing.T) {
	g, ok := Parse(" 6A+ ")
	assert.True(t, ok)
	assert.Equal(t, Grade("6a+"), g)

	_, ok = Parse("V+")
	assert.False(t, ok)
}
