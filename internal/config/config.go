package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evidex/trialqa/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig         `yaml:"store" mapstructure:"store"`
	Server    ServerConfig        `yaml:"server" mapstructure:"server"`
	Log       LogConfig           `yaml:"log" mapstructure:"log"`
	Criteria  model.MatchCriteria `yaml:"criteria" mapstructure:"criteria"`
	Relevance RelevanceConfig     `yaml:"relevance" mapstructure:"relevance"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RelevanceConfig holds the relevance scorer's weights and thresholds. Each
// component score is capped by its weight; the four caps sum to 1.0 so the
// total match score stays in [0, 1].
type RelevanceConfig struct {
	ConditionWeight    float64 `yaml:"condition_weight" mapstructure:"condition_weight"`
	InterventionWeight float64 `yaml:"intervention_weight" mapstructure:"intervention_weight"`
	OutcomeWeight      float64 `yaml:"outcome_weight" mapstructure:"outcome_weight"`
	PopulationWeight   float64 `yaml:"population_weight" mapstructure:"population_weight"`

	// Condition match tiers.
	FilenameScore float64 `yaml:"filename_score" mapstructure:"filename_score"`
	AbstractScore float64 `yaml:"abstract_score" mapstructure:"abstract_score"`
	BodyScore     float64 `yaml:"body_score" mapstructure:"body_score"`
	AbstractChars int     `yaml:"abstract_chars" mapstructure:"abstract_chars"`

	// Per-term scores.
	PerDrugScore    float64 `yaml:"per_drug_score" mapstructure:"per_drug_score"`
	PerOutcomeScore float64 `yaml:"per_outcome_score" mapstructure:"per_outcome_score"`

	// Population split.
	AgeContainedScore     float64 `yaml:"age_contained_score" mapstructure:"age_contained_score"`
	AgeOverlapScore       float64 `yaml:"age_overlap_score" mapstructure:"age_overlap_score"`
	SeverityExactScore    float64 `yaml:"severity_exact_score" mapstructure:"severity_exact_score"`
	SeverityAdjacentScore float64 `yaml:"severity_adjacent_score" mapstructure:"severity_adjacent_score"`

	// Decision-tree thresholds.
	HighThreshold     float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	ModerateThreshold float64 `yaml:"moderate_threshold" mapstructure:"moderate_threshold"`
	LowThreshold      float64 `yaml:"low_threshold" mapstructure:"low_threshold"`

	// Minimum viable component scores below which a specific mismatch and
	// suggestion are emitted.
	MinCondition    float64 `yaml:"min_condition" mapstructure:"min_condition"`
	MinIntervention float64 `yaml:"min_intervention" mapstructure:"min_intervention"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRIALQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trialqa.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("relevance.condition_weight", 0.4)
	v.SetDefault("relevance.intervention_weight", 0.3)
	v.SetDefault("relevance.outcome_weight", 0.15)
	v.SetDefault("relevance.population_weight", 0.15)
	v.SetDefault("relevance.filename_score", 0.4)
	v.SetDefault("relevance.abstract_score", 0.3)
	v.SetDefault("relevance.body_score", 0.1)
	v.SetDefault("relevance.abstract_chars", 500)
	v.SetDefault("relevance.per_drug_score", 0.15)
	v.SetDefault("relevance.per_outcome_score", 0.05)
	v.SetDefault("relevance.age_contained_score", 0.08)
	v.SetDefault("relevance.age_overlap_score", 0.04)
	v.SetDefault("relevance.severity_exact_score", 0.07)
	v.SetDefault("relevance.severity_adjacent_score", 0.03)
	v.SetDefault("relevance.high_threshold", 0.7)
	v.SetDefault("relevance.moderate_threshold", 0.4)
	v.SetDefault("relevance.low_threshold", 0.2)
	v.SetDefault("relevance.min_condition", 0.2)
	v.SetDefault("relevance.min_intervention", 0.15)

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
