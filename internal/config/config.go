package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"ENV"`
	Source          string `mapstructure:"SOURCE"` // csv or postgres
	Sink            string `mapstructure:"SINK"`   // csv or postgres
	InputGlob       string `mapstructure:"INPUT_GLOB"`
	UnitLookupFile  string `mapstructure:"UNIT_LOOKUP_FILE"`
	CodeListFile    string `mapstructure:"CODE_LIST_FILE"`
	PatientListFile string `mapstructure:"PATIENT_LIST_FILE"`
	OutputFile      string `mapstructure:"OUTPUT_FILE"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32  `mapstructure:"DB_MIN_CONNS"`
	CohortFilter    bool   `mapstructure:"COHORT_FILTER"` // postgres source: restrict to the cohort table
	Workers         int    `mapstructure:"WORKERS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("SOURCE", "csv")
	v.SetDefault("SINK", "csv")
	v.SetDefault("OUTPUT_FILE", "hba1c_readings.csv")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("WORKERS", 4)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("SOURCE")
	v.BindEnv("SINK")
	v.BindEnv("INPUT_GLOB")
	v.BindEnv("UNIT_LOOKUP_FILE")
	v.BindEnv("CODE_LIST_FILE")
	v.BindEnv("PATIENT_LIST_FILE")
	v.BindEnv("OUTPUT_FILE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("COHORT_FILTER")
	v.BindEnv("WORKERS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.Source {
	case "csv":
		if cfg.InputGlob == "" {
			return nil, fmt.Errorf("INPUT_GLOB is required for the csv source")
		}
		if cfg.CodeListFile == "" {
			return nil, fmt.Errorf("CODE_LIST_FILE is required for the csv source")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres source")
		}
	default:
		return nil, fmt.Errorf("unsupported SOURCE %q (want csv or postgres)", cfg.Source)
	}

	switch cfg.Sink {
	case "csv":
		if cfg.OutputFile == "" {
			return nil, fmt.Errorf("OUTPUT_FILE is required for the csv sink")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres sink")
		}
	default:
		return nil, fmt.Errorf("unsupported SINK %q (want csv or postgres)", cfg.Sink)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesDatabase reports whether the run needs a connection pool, either
// as the observation source or as the result sink.
func (c *Config) UsesDatabase() bool {
	return c.Source == "postgres" || c.Sink == "postgres"
}
