package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"

	"concept-memory/internal/engine"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`

	// Memory
	MemoryMaxSize    int      `env:"MEMORY_MAX_SIZE" envDefault:"1000" validate:"gte=1"`
	LearningRate     float64  `env:"LEARNING_RATE" envDefault:"1.24" validate:"gt=0"`
	StrengthGain     float64  `env:"STRENGTH_GAIN" envDefault:"0.1" validate:"gt=0"`
	AdaptiveLearning bool     `env:"ADAPTIVE_LEARNING" envDefault:"false"`
	StopWords        []string `env:"STOP_WORDS" envSeparator:","`
	SeedConcepts     []string `env:"SEED_CONCEPTS" envSeparator:","`
	SeedWeight       float64  `env:"SEED_WEIGHT" envDefault:"0.5" validate:"gt=0"`

	// Storage
	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"file" validate:"oneof=file redis none"`
	SnapshotDir     string `env:"SNAPSHOT_DIR" envDefault:"data/snapshots" validate:"required_if=SnapshotBackend file"`
	SnapshotFormat  string `env:"SNAPSHOT_FORMAT" envDefault:"json" validate:"oneof=json yaml"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"required_if=SnapshotBackend redis"`
	RedisPrefix     string `env:"REDIS_PREFIX" envDefault:"concept-memory:"`
	JournalPath     string `env:"JOURNAL_PATH" envDefault:"logs/journal.jsonl"`

	// Schedules, empty disables
	AutosaveSpec string `env:"AUTOSAVE_SPEC" envDefault:"@every 5m"`
	ReportSpec   string `env:"REPORT_SPEC" envDefault:"0 21 * * *"`

	LogMode string `env:"LOG_MODE" envDefault:"development" validate:"oneof=development dev production prod"`
}

var validate = validator.New()

// New reads the configuration from the environment and validates it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}
	return cfg, nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required when %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", e.Field(), e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

// EngineOptions maps the memory settings onto engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		MaxSize:      c.MemoryMaxSize,
		LearningRate: c.LearningRate,
		StrengthGain: c.StrengthGain,
		Adaptive:     c.AdaptiveLearning,
		StopWords:    c.StopWords,
		SeedConcepts: c.SeedConcepts,
		SeedWeight:   c.SeedWeight,
	}
}
