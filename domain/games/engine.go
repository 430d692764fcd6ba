package games

import (
	"fmt"

	"happyfool/domain/entities"
)

// Game identifies a built-in game
type Game string

const (
	GameGamble   Game = "gamble"
	GameRoulette Game = "roulette"
	GameSlots    Game = "slots"
)

// Outcome is the result of one play. Multiplier 0 loses the stake,
// multiplier m >= 1 pays stake*m back (net stake*(m-1)).
type Outcome struct {
	Game       Game
	Multiplier int64
	Detail     string
}

// Net returns the balance change for a stake
func (o Outcome) Net(stake int64) int64 {
	if o.Multiplier == 0 {
		return -stake
	}
	return stake * (o.Multiplier - 1)
}

// Won returns true if the player ends up ahead
func (o Outcome) Won() bool {
	return o.Multiplier > 1
}

// GambleTable holds the d100 odds of the gamble game, in percent
type GambleTable struct {
	LoseChance   int
	DoubleChance int
	TripleChance int
}

// DefaultGambleTable is 50% lose, 45% double, 5% triple
var DefaultGambleTable = GambleTable{LoseChance: 50, DoubleChance: 45, TripleChance: 5}

// Valid returns true if the chances are non-negative and sum to 100
func (t GambleTable) Valid() bool {
	return t.LoseChance >= 0 && t.DoubleChance >= 0 && t.TripleChance >= 0 &&
		t.LoseChance+t.DoubleChance+t.TripleChance == 100
}

// RouletteTable configures the roulette payout for red pockets
type RouletteTable struct {
	RedMultiplier int64
}

// SlotsTable configures the slot reels
type SlotsTable struct {
	Symbols     []string
	SuperSymbol string
}

// Tables groups every payout table
type Tables struct {
	Gamble   GambleTable
	Roulette RouletteTable
	Slots    SlotsTable
}

// Engine plays games. It holds no mutable state and every call is pure.
type Engine struct {
	tables Tables
}

// NewEngine creates an engine, replacing invalid tables with defaults
func NewEngine(tables Tables) *Engine {
	if !tables.Gamble.Valid() {
		tables.Gamble = DefaultGambleTable
	}
	if tables.Roulette.RedMultiplier < 1 {
		tables.Roulette.RedMultiplier = 2
	}
	if len(tables.Slots.Symbols) == 0 {
		tables.Slots.Symbols = []string{"Kappa", "PogChamp", "LUL"}
	}
	if tables.Slots.SuperSymbol == "" {
		tables.Slots.SuperSymbol = "HappyFool"
	}
	return &Engine{tables: tables}
}

// Play resolves one game for stake using seed. The same inputs always give
// the same outcome.
func (e *Engine) Play(game Game, stake int64, seed uint64) (Outcome, error) {
	if stake <= 0 {
		return Outcome{}, &entities.InvalidStakeError{Stake: stake, Reason: "stake must be positive"}
	}

	s := newStream(seed)
	switch game {
	case GameGamble:
		return e.playGamble(s), nil
	case GameRoulette:
		return e.playRoulette(s), nil
	case GameSlots:
		return e.playSlots(s), nil
	}
	return Outcome{}, fmt.Errorf("unknown game %q", game)
}
