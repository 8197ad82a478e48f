// Package config maps environment variables into typed configuration
// for the Lambda entry points. Missing required values fail fast during
// cold start instead of surfacing mid-request.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Loads a .env file into the process environment when present,
	// which keeps local runs of the handlers and the importer simple.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config carries every environment-sourced setting of the backend.
// Table names are validated per entry point via the For* loaders, since
// each Lambda only needs its own table.
type Config struct {
	ExercisesTableName string `koanf:"exercises_table_name"`
	ProgressTableName  string `koanf:"progress_table_name"`

	CORSAllowOrigin  string `koanf:"cors_allow_origin"`
	CORSAllowMethods string `koanf:"cors_allow_methods"`
	CORSAllowHeaders string `koanf:"cors_allow_headers"`

	DefaultLanguage string `koanf:"default_language"`
	DefaultVoice    string `koanf:"default_voice"`
	MaxTextLength   int    `koanf:"max_text_length"`
}

type requiredTable struct {
	Name string `validate:"required"`
}

// Load reads the process environment into a Config and applies the
// speech defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// No prefix: the deployment sets the plain variable names
	// (EXERCISES_TABLE_NAME, CORS_ALLOW_ORIGIN, ...).
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "de-DE"
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "Vicki"
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 1500
	}

	return cfg, nil
}

var validate = validator.New()

// ForExercises loads the config and requires the catalog table name.
func ForExercises() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(requiredTable{Name: cfg.ExercisesTableName}); err != nil {
		return nil, fmt.Errorf("EXERCISES_TABLE_NAME ist nicht konfiguriert: %w", err)
	}
	return cfg, nil
}

// ForProgress loads the config and requires the progress table name.
func ForProgress() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(requiredTable{Name: cfg.ProgressTableName}); err != nil {
		return nil, fmt.Errorf("PROGRESS_TABLE_NAME ist nicht konfiguriert: %w", err)
	}
	return cfg, nil
}
