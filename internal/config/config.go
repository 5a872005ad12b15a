package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Review    ReviewConfig    `yaml:"review" mapstructure:"review"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Spots     SpotsConfig     `yaml:"spots" mapstructure:"spots"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Lock      LockConfig      `yaml:"lock" mapstructure:"lock"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings. The key is injected into
// the client from here; nothing deeper in the pipeline touches the
// environment.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// ReviewConfig configures the LLM review batcher.
type ReviewConfig struct {
	Model              string  `yaml:"model" mapstructure:"model"`
	BatchSize          int     `yaml:"batch_size" mapstructure:"batch_size"`
	Workers            int     `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PaceMillis         int     `yaml:"pace_millis" mapstructure:"pace_millis"`
	AutoApplyThreshold float64 `yaml:"auto_apply_threshold" mapstructure:"auto_apply_threshold"`
}

// MatchConfig configures venue linkage.
type MatchConfig struct {
	BoxHalfWidthMeters float64 `yaml:"box_half_width_meters" mapstructure:"box_half_width_meters"`
	MaxDistanceMeters  float64 `yaml:"max_distance_meters" mapstructure:"max_distance_meters"`
	MinNameScore       float64 `yaml:"min_name_score" mapstructure:"min_name_score"`
	MaxCandidates      int     `yaml:"max_candidates" mapstructure:"max_candidates"`
}

// SpotsConfig configures spot assembly.
type SpotsConfig struct {
	PhotoDir string `yaml:"photo_dir" mapstructure:"photo_dir"`
}

// RulesConfig points at an optional YAML override for the confidence
// keyword tables.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LockConfig configures the advisory run lock.
type LockConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	StaleAfterM int    `yaml:"stale_after_minutes" mapstructure:"stale_after_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "promo.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("review.model", "claude-haiku-4-5-20251001")
	v.SetDefault("review.batch_size", 10)
	v.SetDefault("review.workers", 1)
	v.SetDefault("review.timeout_secs", 60)
	v.SetDefault("review.pace_millis", 500)
	v.SetDefault("review.auto_apply_threshold", 85)
	v.SetDefault("match.box_half_width_meters", 550)
	v.SetDefault("match.max_distance_meters", 50)
	v.SetDefault("match.min_name_score", 0.5)
	v.SetDefault("match.max_candidates", 5)
	v.SetDefault("spots.photo_dir", "photos")
	v.SetDefault("lock.path", "promo.lock")
	v.SetDefault("lock.stale_after_minutes", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
