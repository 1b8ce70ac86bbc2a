package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Physics PhysicsConfig `yaml:"physics"`
	Log     LogConfig     `yaml:"log"`
	Prefabs PrefabsConfig `yaml:"prefabs"`
}

type PhysicsConfig struct {
	GravityX   float64 `yaml:"gravity_x"`
	GravityY   float64 `yaml:"gravity_y"`
	Iterations int     `yaml:"iterations"`
	TimeStep   float64 `yaml:"time_step"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type PrefabsConfig struct {
	// Dir overrides embedded templates with files from disk when set.
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

func Default() Config {
	return Config{
		Physics: PhysicsConfig{
			GravityY:   -9.81,
			Iterations: 20,
			TimeStep:   1.0 / 60.0,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads a YAML config file. Fields missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Physics.Iterations <= 0 {
		return fmt.Errorf("%w: physics.iterations must be positive, got %d", ErrInvalidConfig, c.Physics.Iterations)
	}
	if c.Physics.TimeStep <= 0 {
		return fmt.Errorf("%w: physics.time_step must be positive, got %v", ErrInvalidConfig, c.Physics.TimeStep)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	return nil
}
