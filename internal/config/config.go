// Package config provides Viper-based configuration loading for the block stacker.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WorldConfig holds the default world geometry used when building scenarios.
type WorldConfig struct {
	// Width is the number of grid columns along the X axis.
	Width int `mapstructure:"width"`
	// Depth is the number of grid columns along the Z axis.
	Depth int `mapstructure:"depth"`
	// BlockSize is the edge length of one block in world units.
	BlockSize float64 `mapstructure:"block_size"`
	// MaxClimb is the largest height difference, in blocks, the agent can step.
	MaxClimb int `mapstructure:"max_climb"`
	// Reach is how many blocks above its stance the agent can set a block down.
	Reach int `mapstructure:"reach"`
}

// PlannerConfig holds task planner settings.
type PlannerConfig struct {
	// Domain is the HTN domain ID used for planning.
	Domain string `mapstructure:"domain"`
	// DomainDir is an optional directory of additional HTN domain YAML files.
	DomainDir string `mapstructure:"domain_dir"`
	// ScriptDir is an optional directory of Lua precondition scripts.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// MaxIterations bounds the planning loop.
	MaxIterations int `mapstructure:"max_iterations"`
	// GoalTolerance is the per-axis goal tolerance as a fraction of BlockSize.
	GoalTolerance float64 `mapstructure:"goal_tolerance"`
}

// SceneConfig holds interactive scene pacing.
type SceneConfig struct {
	// FrameInterval is the period between animation frames.
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	// Speed is the agent's travel speed in blocks per second.
	Speed float64 `mapstructure:"speed"`
	// ActionDelay is the pause before a pick or place is committed.
	ActionDelay time.Duration `mapstructure:"action_delay"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	World   WorldConfig   `mapstructure:"world"`
	Planner PlannerConfig `mapstructure:"planner"`
	Scene   SceneConfig   `mapstructure:"scene"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePlanner(c.Planner); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScene(c.Scene); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	if w.Width < 1 {
		errs = append(errs, fmt.Sprintf("world.width must be >= 1, got %d", w.Width))
	}
	if w.Depth < 1 {
		errs = append(errs, fmt.Sprintf("world.depth must be >= 1, got %d", w.Depth))
	}
	if w.BlockSize <= 0 {
		errs = append(errs, fmt.Sprintf("world.block_size must be > 0, got %g", w.BlockSize))
	}
	if w.MaxClimb < 1 {
		errs = append(errs, fmt.Sprintf("world.max_climb must be >= 1, got %d", w.MaxClimb))
	}
	if w.Reach < 0 {
		errs = append(errs, fmt.Sprintf("world.reach must be >= 0, got %d", w.Reach))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePlanner(p PlannerConfig) error {
	var errs []string
	if p.Domain == "" {
		errs = append(errs, "planner.domain must not be empty")
	}
	if p.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("planner.instruction_limit must be >= 0, got %d", p.InstructionLimit))
	}
	if p.MaxIterations < 1 {
		errs = append(errs, fmt.Sprintf("planner.max_iterations must be >= 1, got %d", p.MaxIterations))
	}
	if p.GoalTolerance <= 0 || p.GoalTolerance >= 0.5 {
		errs = append(errs, fmt.Sprintf("planner.goal_tolerance must be in (0, 0.5), got %g", p.GoalTolerance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScene(s SceneConfig) error {
	var errs []string
	if s.FrameInterval <= 0 {
		errs = append(errs, "scene.frame_interval must be positive")
	}
	if s.Speed <= 0 {
		errs = append(errs, fmt.Sprintf("scene.speed must be > 0, got %g", s.Speed))
	}
	if s.ActionDelay < 0 {
		errs = append(errs, "scene.action_delay must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with STACKER_ prefix
	v.SetEnvPrefix("STACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
//
// Postcondition: the returned Config passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("config.Default: built-in defaults are invalid: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("world.width", 10)
	v.SetDefault("world.depth", 10)
	v.SetDefault("world.block_size", 1.0)
	v.SetDefault("world.max_climb", 1)
	v.SetDefault("world.reach", 1)

	v.SetDefault("planner.domain", "block_stacker")
	v.SetDefault("planner.domain_dir", "")
	v.SetDefault("planner.script_dir", "")
	v.SetDefault("planner.instruction_limit", 0)
	v.SetDefault("planner.max_iterations", 1000)
	v.SetDefault("planner.goal_tolerance", 0.25)

	v.SetDefault("scene.frame_interval", "16ms")
	v.SetDefault("scene.speed", 4.0)
	v.SetDefault("scene.action_delay", "300ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
