package games

import "fmt"

func (e *Engine) playGamble(s *stream) Outcome {
	t := e.tables.Gamble
	roll := s.intn(100) + 1

	var multiplier int64
	switch {
	case roll <= t.LoseChance:
		multiplier = 0
	case roll <= t.LoseChance+t.DoubleChance:
		multiplier = 2
	default:
		multiplier = 3
	}

	return Outcome{
		Game:       GameGamble,
		Multiplier: multiplier,
		Detail:     fmt.Sprintf("rolled %d", roll),
	}
}
