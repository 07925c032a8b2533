package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the server configuration.
type Config struct {
	HTTPAddr          string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath            string     `env:"DB_PATH" envDefault:"data/typerace.db"`
	LogLevel          slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisURL          string     `env:"REDIS_URL"`
	RedisPrefix       string     `env:"REDIS_PREFIX" envDefault:"typerace:"`
	JWTSecret         string     `env:"JWT_SECRET,required"`
	AdminPasswordHash string     `env:"ADMIN_PASSWORD_HASH"`
	CountdownMS       int        `env:"COUNTDOWN_MS" envDefault:"5000"`
	MaxPlayers        int        `env:"MAX_PLAYERS" envDefault:"10"`
}

// Countdown is the lobby-to-race delay applied by StartRace.
func (c *Config) Countdown() time.Duration {
	return time.Duration(c.CountdownMS) * time.Millisecond
}

// Bot configures cmd/racebot.
type Bot struct {
	ServerURL string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	JWTSecret string        `env:"JWT_SECRET,required"`
	RoomID    string        `env:"ROOM_ID"`
	Bots      int           `env:"BOTS" envDefault:"3"`
	WPM       int           `env:"BOT_WPM" envDefault:"70"`
	Passage   string        `env:"PASSAGE_LENGTH" envDefault:"short"`
	Countdown time.Duration `env:"COUNTDOWN" envDefault:"3s"`
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`

	// Mode is "race" for a shared room or "solo" for timed tests.
	Mode        string `env:"BOT_MODE" envDefault:"race"`
	SoloSeconds int    `env:"SOLO_SECONDS" envDefault:"15"`
	Attempts    int    `env:"ATTEMPTS" envDefault:"1"`
}

// Maintenance configures cmd/maintenance.
type Maintenance struct {
	DBPath    string     `env:"DB_PATH" envDefault:"data/typerace.db"`
	BatchSize int        `env:"BATCH_SIZE" envDefault:"500"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func Load() (*Config, error) { return parse[Config]() }

func LoadBot() (*Bot, error) { return parse[Bot]() }

func LoadMaintenance() (*Maintenance, error) { return parse[Maintenance]() }

func parse[T any]() (*T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
