// Package grade holds the French sport-climbing scale and its UIAA equivalents.
package grade

import "strings"

// Grade is a French sport-climbing grade such as "6a+".
type Grade string

// scale is the canonical French order, easiest first.
var scale = []Grade{
	"4", "4+",
	"5a", "5a+", "5b", "5b+", "5c", "5c+",
	"6a", "6a+", "6b", "6b+", "6c", "6c+",
	"7a", "7a+", "7b", "7b+", "7c", "7c+",
	"8a", "8a+", "8b", "8b+", "8c", "8c+",
	"9a", "9a+", "9b", "9b+", "9c",
}

var frenchToUIAA = map[Grade]string{
	"4":   "IV",
	"4+":  "IV+",
	"5a":  "V-",
	"5a+": "V",
	"5b":  "V+",
	"5b+": "VI-",
	"5c":  "VI",
	"5c+": "VI+",
	"6a":  "VI+",
	"6a+": "VII-",
	"6b":  "VII",
	"6b+": "VII+",
	"6c":  "VIII-",
	"6c+": "VIII",
	"7a":  "VIII+",
	"7a+": "VIII+",
	"7b":  "IX-",
	"7b+": "IX",
	"7c":  "IX+",
	"7c+": "IX+",
	"8a":  "X-",
	"8a+": "X",
	"8b":  "X+",
	"8b+": "XI-",
	"8c":  "XI",
	"8c+": "XI+",
	"9a":  "XII-",
	"9a+": "XII",
	"9b":  "XII+",
	"9b+": "XII+",
	"9c":  "XII+",
}

var (
	indexOf      = make(map[Grade]int, len(scale))
	uiaaToFrench = make(map[string]Grade, len(frenchToUIAA))
)

func init() {
	for i, g := range scale {
		indexOf[g] = i
	}
	// Walk hardest to easiest so the easiest French grade of each UIAA band wins.
	for i := len(scale) - 1; i >= 0; i-- {
		uiaaToFrench[frenchToUIAA[scale[i]]] = scale[i]
	}
}

// Scale returns a copy of the French scale, easiest first.
func Scale() []Grade {
	out := make([]Grade, len(scale))
	copy(out, scale)
	return out
}

// IndexOf returns the position of g in the scale, or -1 if g is not a known grade.
func IndexOf(g Grade) int {
	if i, ok := indexOf[g]; ok {
		return i
	}
	return -1
}

// IsValid reports whether g belongs to the scale.
func IsValid(g Grade) bool {
	_, ok := indexOf[g]
	return ok
}

// Compare orders two grades by scale position. Unknown grades sort below every known grade.
func Compare(a, b Grade) int {
	ia, ib := IndexOf(a), IndexOf(b)
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// Harder reports whether a is strictly harder than b.
func Harder(a, b Grade) bool {
	return Compare(a, b) > 0
}

// ToUIAA converts a French grade to UIAA. Unknown grades are returned unchanged.
func ToUIAA(g Grade) string {
	if u, ok := frenchToUIAA[g]; ok {
		return u
	}
	return string(g)
}

// ToFrench converts a UIAA grade to the easiest French grade in that band.
// The mapping is lossy: ToFrench(ToUIAA("7a+")) is "7a". Unknown grades are returned unchanged.
func ToFrench(uiaa string) Grade {
	if g, ok := uiaaToFrench[uiaa]; ok {
		return g
	}
	return Grade(uiaa)
}

// Parse normalises user input such as " 6A+ " and reports whether it is a known grade.
func Parse(s string) (Grade, bool) {
	g := Grade(strings.ToLower(strings.TrimSpace(s)))
	return g, IsValid(g)
}
