package keyboard

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Layout is one full assignment of glyphs to grid positions. It is
// immutable once generated; each alphanumeric keystroke swaps in a
// freshly generated value rather than mutating the old one.
type Layout [][]string

// Generate produces a layout for the process grid. With scramble set,
// each alphabet is assigned by an independent uniform permutation;
// otherwise slots are filled in canonical order (the "home" layout,
// used for resets and tests). The uppercase flag lower-cases letter
// glyphs only; digits and fixed labels are never touched.
func Generate(scramble, uppercase bool) Layout {
	nums := strings.Split(Digits, "")
	alphas := strings.Split(Letters, "")
	if scramble {
		shuffle(nums)
		shuffle(alphas)
	}

	numIdx, alphaIdx := 0, 0
	layout := make(Layout, len(Keys))
	for r, row := range Keys {
		layout[r] = make([]string, len(row))
		for c, slot := range row {
			switch slot.Class {
			case ClassDigit:
				layout[r][c] = nums[numIdx]
				numIdx++
			case ClassLetter:
				glyph := alphas[alphaIdx]
				alphaIdx++
				if !uppercase {
					glyph = strings.ToLower(glyph)
				}
				layout[r][c] = glyph
			default:
				layout[r][c] = slot.Label
			}
		}
	}
	return layout
}

// Glyph returns the glyph at a resolved cell.
func (l Layout) Glyph(row, col int) string {
	return l[row][col]
}

// shuffle is an unbiased Fisher-Yates permutation over crypto/rand.
func shuffle(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
