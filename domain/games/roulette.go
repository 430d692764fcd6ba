package games

import "fmt"

// European wheel, pockets 0-36
const roulettePockets = 37

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

func pocketColor(pocket int) string {
	switch {
	case pocket == 0:
		return "green"
	case redPockets[pocket]:
		return "red"
	}
	return "black"
}

func (e *Engine) playRoulette(s *stream) Outcome {
	pocket := s.intn(roulettePockets)
	color := pocketColor(pocket)

	var multiplier int64
	if color == "red" {
		multiplier = e.tables.Roulette.RedMultiplier
	}

	return Outcome{
		Game:       GameRoulette,
		Multiplier: multiplier,
		Detail:     fmt.Sprintf("landed on %d %s", pocket, color),
	}
}
