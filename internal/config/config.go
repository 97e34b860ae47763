package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"simcheck/internal/workspace"
)

const EnvPrefix = "SIMCHECK_"

type Config struct {
	ChunkSize        int     `koanf:"chunk_size" validate:"min=1"`
	PartialThreshold float64 `koanf:"partial_threshold" validate:"gt=0,lte=1"`
	AlertThreshold   int     `koanf:"alert_threshold" validate:"min=0,max=100"`
	Workspace        string  `koanf:"workspace" validate:"required"`
	DBPath           string  `koanf:"db_path"`
	ReportFormat     string  `koanf:"report_format" validate:"oneof=html pdf json"`
	PDFFont          string  `koanf:"pdf_font" validate:"omitempty,file"`
	Workers          int     `koanf:"workers" validate:"min=0"`
	LogLevel         string  `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogJSON          bool    `koanf:"log_json"`
}

func Default() Config {
	return Config{
		ChunkSize:        5,
		PartialThreshold: 0.6,
		AlertThreshold:   50,
		Workspace:        "./" + workspace.BaseDirName,
		ReportFormat:     "html",
		LogLevel:         "info",
	}
}

// Load resolves configuration from defaults, then the given .env files, then
// SIMCHECK_* environment variables. Missing .env files are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = workspace.DatabasePath(cfg.Workspace)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
