package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"happyfool/database"

	"github.com/caarlos0/env/v11"
)

// Chat transports
const (
	TransportDiscord = "discord"
	TransportNATS    = "nats"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Chat transport configuration
	ChatTransport     string   `env:"CHAT_TRANSPORT" envDefault:"discord"`
	DiscordToken      string   `env:"DISCORD_TOKEN"`
	GuildID           string   `env:"DISCORD_GUILD_ID"`
	ModeratorRoleIDs  []string `env:"MODERATOR_ROLE_IDS" envSeparator:","`
	SubscriberRoleIDs []string `env:"SUBSCRIBER_ROLE_IDS" envSeparator:","`

	// Storage configuration
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"happyfool.db"`

	// NATS configuration
	NATSEnabled               bool   `env:"NATS_ENABLED" envDefault:"false"`
	NATSServers               string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`
	ChatIngestSubject         string `env:"CHAT_INGEST_SUBJECT" envDefault:"chat.inbound"`
	ChatOutboundSubjectPrefix string `env:"CHAT_OUTBOUND_SUBJECT_PREFIX" envDefault:"chat.outbound"`

	// Command configuration
	CommandPrefix          string        `env:"COMMAND_PREFIX" envDefault:"!"`
	DefaultCommandCooldown time.Duration `env:"DEFAULT_COMMAND_COOLDOWN" envDefault:"5s"`
	AdminPermission        string        `env:"ADMIN_PERMISSION" envDefault:"moderator"`

	// Points configuration
	PointsName      string           `env:"POINTS_NAME" envDefault:"points"`
	StartingBalance int64            `env:"STARTING_BALANCE" envDefault:"0"`
	PointsRanks     map[string]int64 `env:"POINTS_RANKS" envDefault:"Newcomer:0,Regular:500,Veteran:2500,Legend:10000" envKeyValSeparator:":"`

	// Accrual configuration
	AccrualEnabled  bool          `env:"ACCRUAL_ENABLED" envDefault:"true"`
	AccrualInterval time.Duration `env:"ACCRUAL_INTERVAL" envDefault:"10m"`
	AccrualAmount   int64         `env:"ACCRUAL_AMOUNT" envDefault:"10"`

	// Game configuration
	GambleCommand         string        `env:"GAMBLE_COMMAND" envDefault:"gamble"`
	RouletteCommand       string        `env:"ROULETTE_COMMAND" envDefault:"roulette"`
	SlotsCommand          string        `env:"SLOTS_COMMAND" envDefault:"slots"`
	GambleMinimumBet      int64         `env:"GAMBLE_MINIMUM_BET" envDefault:"10"`
	GambleAllInWord       string        `env:"GAMBLE_ALL_IN_WORD" envDefault:"all"`
	GambleLoseChance      int           `env:"GAMBLE_LOSE_CHANCE" envDefault:"50"`
	GambleDoubleChance    int           `env:"GAMBLE_DOUBLE_CHANCE" envDefault:"45"`
	GambleTripleChance    int           `env:"GAMBLE_TRIPLE_CHANCE" envDefault:"5"`
	RouletteRedMultiplier int64         `env:"ROULETTE_RED_MULTIPLIER" envDefault:"2"`
	SlotsSymbols          []string      `env:"SLOTS_SYMBOLS" envSeparator:"," envDefault:"Kappa,PogChamp,LUL,BibleThump"`
	SlotsSuperSymbol      string        `env:"SLOTS_SUPER_SYMBOL" envDefault:"HappyFool"`
	GameSeedSalt          string        `env:"GAME_SEED_SALT"`
	GameUserCooldown      time.Duration `env:"GAME_USER_COOLDOWN" envDefault:"30s"`

	// Event intake configuration
	DedupWindowSize   int           `env:"DEDUP_WINDOW_SIZE" envDefault:"10000"`
	DedupWindowTTL    time.Duration `env:"DEDUP_WINDOW_TTL" envDefault:"5m"`
	DispatchWorkers   int           `env:"DISPATCH_WORKERS" envDefault:"8"`
	DispatchQueueSize int           `env:"DISPATCH_QUEUE_SIZE" envDefault:"1024"`

	// Health and observability
	HealthAddr               string `env:"HEALTH_ADDR" envDefault:":9090"`
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"happyfool"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"60000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// minSeedSaltBytes is the shortest accepted game seed salt
const minSeedSaltBytes = 16

// SeedSalt decodes the game seed salt. The salt keys every game seed, so it
// must be present and long enough to keep outcomes unpredictable.
func (c *Config) SeedSalt() ([]byte, error) {
	if c.GameSeedSalt == "" {
		return nil, fmt.Errorf("GAME_SEED_SALT is required")
	}
	salt, err := hex.DecodeString(c.GameSeedSalt)
	if err != nil {
		return nil, fmt.Errorf("GAME_SEED_SALT must be hex encoded: %w", err)
	}
	if len(salt) < minSeedSaltBytes {
		return nil, fmt.Errorf("GAME_SEED_SALT must be at least %d bytes, got %d", minSeedSaltBytes, len(salt))
	}
	return salt, nil
}

// Load parses configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ChatTransport = strings.ToLower(strings.TrimSpace(cfg.ChatTransport))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if cfg.Environment != "test" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks that the settings required by the selected transport and store are present
func (c *Config) Validate() error {
	switch c.ChatTransport {
	case TransportDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required when CHAT_TRANSPORT=discord")
		}
	case TransportNATS:
		if !c.NATSEnabled {
			return fmt.Errorf("NATS_ENABLED must be true when CHAT_TRANSPORT=nats")
		}
	default:
		return fmt.Errorf("unknown CHAT_TRANSPORT: %s", c.ChatTransport)
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %s", c.StoreDriver)
	}

	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX cannot be empty")
	}
	if c.AccrualEnabled && (c.AccrualInterval <= 0 || c.AccrualAmount <= 0) {
		return fmt.Errorf("ACCRUAL_INTERVAL and ACCRUAL_AMOUNT must be positive when accrual is enabled")
	}
	if c.GameUserCooldown < 0 {
		return fmt.Errorf("GAME_USER_COOLDOWN cannot be negative")
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be positive")
	}
	if _, err := c.SeedSalt(); err != nil {
		return err
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		ChatTransport:          TransportNATS,
		StoreDriver:            StoreDriverSQLite,
		CommandPrefix:          "!",
		DefaultCommandCooldown: 5 * time.Second,
		AdminPermission:        "moderator",
		PointsName:             "points",
		PointsRanks:            map[string]int64{"Newcomer": 0, "Regular": 500, "Veteran": 2500},
		AccrualInterval:        10 * time.Minute,
		AccrualAmount:          10,
		GambleCommand:          "gamble",
		RouletteCommand:        "roulette",
		SlotsCommand:           "slots",
		GambleMinimumBet:       1,
		GambleAllInWord:        "all",
		GambleLoseChance:       50,
		GambleDoubleChance:     45,
		GambleTripleChance:     5,
		RouletteRedMultiplier:  2,
		SlotsSymbols:           []string{"Kappa", "PogChamp", "LUL"},
		SlotsSuperSymbol:       "HappyFool",
		GameSeedSalt:           "00112233445566778899aabbccddeeff",
		GameUserCooldown:       30 * time.Second,
		DedupWindowSize:        1000,
		DedupWindowTTL:         5 * time.Minute,
		DispatchWorkers:        2,
		DispatchQueueSize:      16,
		LogLevel:               "debug",
		LogFormat:              "text",
	}
}
