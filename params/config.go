package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Server struct {
	Addr string
}

type Log struct {
	File string // empty disables the file sink
}

type Storage struct {
	Enabled bool
	Path    string
}

type Events struct {
	// Buffer is the dispatcher queue depth. Overflow drops events rather
	// than blocking the matching path.
	Buffer int
}

type Maker struct {
	Enabled      bool
	UserID       int64
	InitialPrice int64 // cents
	Spread       decimal.Decimal
	Levels       int
	LevelQty     int64
	PriceStep    int64 // cents
}

type Config struct {
	Server  Server
	Log     Log
	Storage Storage
	Events  Events
	Maker   Maker

	// SeedMarkets lists instruments created at startup as "event:option"
	// pairs, e.g. "1:1,1:2,2:1".
	SeedMarkets []string
}

func Default() Config {
	return Config{
		Server:  Server{Addr: ":8080"},
		Log:     Log{File: ""},
		Storage: Storage{Enabled: true, Path: "data/eventbook"},
		Events:  Events{Buffer: 1024},
		Maker: Maker{
			Enabled:      false,
			UserID:       1,
			InitialPrice: 5000,
			Spread:       decimal.NewFromFloat(0.02),
			Levels:       5,
			LevelQty:     100,
			PriceStep:    100,
		},
		SeedMarkets: []string{"1:1", "1:2"},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Storage.Path = getEnv("STORAGE_PATH", cfg.Storage.Path)

	if v := os.Getenv("STORAGE_ENABLED"); v != "" {
		cfg.Storage.Enabled = v == "true"
	}
	if v := os.Getenv("EVENT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Events.Buffer = n
		}
	}
	if v := os.Getenv("SEED_MARKETS"); v != "" {
		cfg.SeedMarkets = strings.Split(v, ",")
	}

	if v := os.Getenv("MAKER_ENABLED"); v != "" {
		cfg.Maker.Enabled = v == "true"
	}
	if v := os.Getenv("MAKER_USER_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Maker.UserID = n
		}
	}
	if v := os.Getenv("MAKER_INITIAL_PRICE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Maker.InitialPrice = n
		}
	}
	if v := os.Getenv("MAKER_SPREAD"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			cfg.Maker.Spread = d
		}
	}
	if v := os.Getenv("MAKER_LEVELS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Maker.Levels = n
		}
	}
	if v := os.Getenv("MAKER_LEVEL_QTY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Maker.LevelQty = n
		}
	}
	if v := os.Getenv("MAKER_PRICE_STEP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Maker.PriceStep = n
		}
	}

	return cfg
}

// ParseInstrument parses one "event:option" seed entry.
func ParseInstrument(s string) (eventID, optionID int64, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, strconv.ErrSyntax
	}
	eventID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	optionID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return eventID, optionID, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
