package games

import "strings"

const reels = 3

func (e *Engine) playSlots(s *stream) Outcome {
	t := e.tables.Slots
	symbols := append(append([]string{}, t.Symbols...), t.SuperSymbol)

	spin := make([]string, reels)
	for i := range spin {
		spin[i] = symbols[s.intn(len(symbols))]
	}

	return Outcome{
		Game:       GameSlots,
		Multiplier: slotsMultiplier(spin, t.SuperSymbol),
		Detail:     strings.Join(spin, " | "),
	}
}

// slotsMultiplier pays 5x for three super symbols, 3x for any other three of
// a kind and 2x for a pair
func slotsMultiplier(spin []string, super string) int64 {
	a, b, c := spin[0], spin[1], spin[2]
	switch {
	case a == b && b == c && a == super:
		return 5
	case a == b && b == c:
		return 3
	case a == b || b == c || a == c:
		return 2
	}
	return 0
}
