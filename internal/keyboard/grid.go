package keyboard

import "strings"

// Class describes what a grid slot may hold: a scrambled digit, a
// scrambled letter, or a fixed control/punctuation label.
type Class int

const (
	ClassFixed Class = iota
	ClassDigit
	ClassLetter
)

type Slot struct {
	Label string
	Class Class
}

// Grid is the fixed key skeleton shared by every generated layout.
type Grid [][]Slot

// Alphabets in canonical order. Generation consumes permutations of
// these; the order here is only the unscrambled "home" order.
const (
	Digits  = "1234567890"
	Letters = "QWERTYUIOPASDFGHJKLZXCVBNM"
)

// Control-key labels referenced by the input service.
const (
	KeyBackspace = "⌫"
	KeySpace     = "Space"
	KeyShift     = "Shift"
	KeyCaps      = "Caps"
	KeyEnter     = "Enter"
)

// Standard PC layout, 15 units wide per row. 10 digit slots and 26
// letter slots; everything else is fixed.
var structure = [][]string{
	{"Esc", "1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "-", "=", KeyBackspace},
	{"Tab", "Q", "W", "E", "R", "T", "Y", "U", "I", "O", "P", "[", "]", `\`},
	{KeyCaps, "A", "S", "D", "F", "G", "H", "J", "K", "L", ";", "'", KeyEnter},
	{KeyShift, "Z", "X", "C", "V", "B", "N", "M", ",", ".", "/", KeyShift},
	{"Ctrl", "Alt", KeySpace, "Alt", "Ctrl", "←", "↑", "↓", "→"},
}

// Keys is the process-wide key grid.
var Keys = buildGrid(structure)

func buildGrid(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for r, row := range rows {
		g[r] = make([]Slot, len(row))
		for c, label := range row {
			g[r][c] = Slot{Label: label, Class: classify(label)}
		}
	}
	return g
}

func classify(label string) Class {
	switch {
	case len(label) == 1 && strings.Contains(Digits, label):
		return ClassDigit
	case len(label) == 1 && strings.Contains(Letters, label):
		return ClassLetter
	default:
		return ClassFixed
	}
}

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int { return len(g) }

// Count returns how many slots of the given class the grid has.
func (g Grid) Count(class Class) int {
	n := 0
	for _, row := range g {
		for _, slot := range row {
			if slot.Class == class {
				n++
			}
		}
	}
	return n
}
