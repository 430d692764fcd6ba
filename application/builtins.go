package application

import (
	"fmt"
	"time"

	"happyfool/config"
	"happyfool/domain/entities"
	"happyfool/domain/games"
	"happyfool/domain/services"
)

// BuiltinConfig configures the system, points and game handlers
type BuiltinConfig struct {
	AdminPermission entities.Role
	DefaultCooldown time.Duration
	PointsName      string
	Ranks           *services.RankTable
	Engine          *games.Engine
	Games           map[string]games.Game
	Salt            []byte
	MinimumBet      int64
	AllInWord       string
	GameCooldown    time.Duration
}

// NewBuiltinConfig derives the handler configuration from the process config
func NewBuiltinConfig(cfg *config.Config) (BuiltinConfig, error) {
	admin, err := entities.ParseRole(cfg.AdminPermission)
	if err != nil {
		return BuiltinConfig{}, fmt.Errorf("ADMIN_PERMISSION: %w", err)
	}
	salt, err := cfg.SeedSalt()
	if err != nil {
		return BuiltinConfig{}, err
	}

	engine := games.NewEngine(games.Tables{
		Gamble: games.GambleTable{
			LoseChance:   cfg.GambleLoseChance,
			DoubleChance: cfg.GambleDoubleChance,
			TripleChance: cfg.GambleTripleChance,
		},
		Roulette: games.RouletteTable{RedMultiplier: cfg.RouletteRedMultiplier},
		Slots: games.SlotsTable{
			Symbols:     cfg.SlotsSymbols,
			SuperSymbol: cfg.SlotsSuperSymbol,
		},
	})

	return BuiltinConfig{
		AdminPermission: admin,
		DefaultCooldown: cfg.DefaultCommandCooldown,
		PointsName:      cfg.PointsName,
		Ranks:           services.NewRankTable(cfg.PointsRanks),
		Engine:          engine,
		Games: map[string]games.Game{
			cfg.GambleCommand:   games.GameGamble,
			cfg.RouletteCommand: games.GameRoulette,
			cfg.SlotsCommand:    games.GameSlots,
		},
		Salt:         salt,
		MinimumBet:   cfg.GambleMinimumBet,
		AllInWord:    cfg.GambleAllInWord,
		GameCooldown: cfg.GameUserCooldown,
	}, nil
}

// RegisterBuiltins installs the system, points and game handlers
func (d *Dispatcher) RegisterBuiltins(cfg BuiltinConfig) {
	d.Register("add", &addCommandHandler{registry: d.registry, permission: cfg.AdminPermission, defaultCooldown: cfg.DefaultCooldown})
	d.Register("edit", &editCommandHandler{registry: d.registry, permission: cfg.AdminPermission})
	d.Register("delete", &deleteCommandHandler{registry: d.registry, permission: cfg.AdminPermission})
	d.Register("stat", &statCommandHandler{registry: d.registry, permission: cfg.AdminPermission, pointsName: cfg.PointsName})
	d.Register("commands", &listCommandsHandler{registry: d.registry})

	d.raffle = NewRaffle(cfg.Salt)
	d.Register("raffle", &raffleHandler{raffle: d.raffle, permission: entities.RoleBroadcaster})

	ranks := cfg.Ranks
	if ranks == nil {
		ranks = services.NewRankTable(nil)
	}
	d.Register(cfg.PointsName, &pointsHandler{
		ledger:     d.ledger,
		executor:   d.executor,
		ranks:      ranks,
		pointsName: cfg.PointsName,
	})

	cooldowns := newGameCooldowns(cfg.GameCooldown)
	for name, game := range cfg.Games {
		if name == "" {
			continue
		}
		d.Register(name, &gameHandler{
			game:       game,
			engine:     cfg.Engine,
			executor:   d.executor,
			salt:       cfg.Salt,
			minimumBet: cfg.MinimumBet,
			allInWord:  cfg.AllInWord,
			pointsName: cfg.PointsName,
			cooldowns:  cooldowns,
		})
	}
}
