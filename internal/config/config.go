// Package config holds flame's process-wide settings, loaded from an
// optional YAML file and from environment variables, then overlaid by the
// CLI flags in cmd/flame.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type cfg_db struct {
	Verbosity int `yaml:"verbosity" env:"FLAME_VERBOSITY" env-default:"1"`
}

var Cfg cfg_db

// Load_config overlays Cfg with the contents of a YAML config file.
func Load_config(config_path string) error {
	if err := cleanenv.ReadConfig(config_path, &Cfg); err != nil {
		return fmt.Errorf("loading config %s: %w", config_path, err)
	}
	return nil
}

// Load_env overlays Cfg from environment variables (FLAME_*), independent
// of whether a config file was given.
func Load_env() error {
	return cleanenv.ReadEnv(&Cfg)
}
