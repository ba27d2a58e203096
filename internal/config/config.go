// Package config loads application settings from defaults, an optional YAML
// file, a .env file, KNOLDECK_ environment variables and command line flags,
// in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/admission"
	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/queue"
	"github.com/conorfennell/knoldeck/internal/storage"
)

const envPrefix = "KNOLDECK_"

// DriverMemory keeps everything in process. Nothing survives a restart.
const DriverMemory = "memory"

type Config struct {
	Env       string    `koanf:"env" validate:"oneof=development production"`
	User      string    `koanf:"user" validate:"required"`
	ReposDir  string    `koanf:"repos_dir" validate:"required"`
	DB        DB        `koanf:"db"`
	Scheduler Scheduler `koanf:"scheduler"`
	Admission Admission `koanf:"admission"`
	Queue     Queue     `koanf:"queue"`
}

type DB struct {
	Driver       string `koanf:"driver" validate:"oneof=sqlite postgres memory"`
	DSN          string `koanf:"dsn" validate:"required_unless=Driver memory"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
}

type Scheduler struct {
	DesiredRetention float64         `koanf:"desired_retention" validate:"gt=0,lte=1"`
	MaximumInterval  int             `koanf:"maximum_interval" validate:"gte=1,lte=36500"`
	EnableFuzz       bool            `koanf:"enable_fuzz"`
	LearningSteps    []time.Duration `koanf:"learning_steps" validate:"min=1,dive,gt=0"`
	RelearningSteps  []time.Duration `koanf:"relearning_steps" validate:"min=1,dive,gt=0"`
}

type Admission struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	// Timezone is an IANA name. Empty means the host's local zone.
	Timezone string `koanf:"timezone" validate:"omitempty,timezone"`
}

type Queue struct {
	Lookahead time.Duration `koanf:"lookahead" validate:"gte=0"`
}

func defaults() map[string]any {
	sched := fsrs.DefaultConfig()
	return map[string]any{
		"env":                         "development",
		"user":                        "local",
		"repos_dir":                   "repos",
		"db.driver":                   storage.DriverSQLite,
		"db.dsn":                      "knoldeck.db",
		"db.max_open_conns":           0,
		"scheduler.desired_retention": sched.DesiredRetention,
		"scheduler.maximum_interval":  sched.MaximumInterval,
		"scheduler.enable_fuzz":       sched.EnableFuzz,
		"scheduler.learning_steps":    sched.LearningSteps,
		"scheduler.relearning_steps":  sched.RelearningSteps,
		"admission.interval":          admission.DefaultInterval,
		"admission.timezone":          "",
		"queue.lookahead":             queue.DefaultLookahead,
	}
}

// flagKeys maps the flags registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"env":       "env",
	"user":      "user",
	"repos-dir": "repos_dir",
	"db-driver": "db.driver",
	"db-dsn":    "db.dsn",
	"timezone":  "admission.timezone",
}

// RegisterFlags adds the overridable settings to flags. Their defaults are
// empty so an unset flag never masks a file or environment value.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a YAML config file")
	flags.String("env", "", "development or production")
	flags.String("user", "", "user whose decks are managed")
	flags.String("repos-dir", "", "directory git decks are cloned into")
	flags.String("db-driver", "", "sqlite, postgres or memory")
	flags.String("db-dsn", "", "database file or connection string")
	flags.String("timezone", "", "IANA zone reset times are read in")
}

// Load builds the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return Config{}, fmt.Errorf("failed to read flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns KNOLDECK_DB__DSN into db.dsn. Step lists are comma separated.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.HasSuffix(key, "_steps") {
		return key, strings.Split(value, ",")
	}
	return key, value
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FSRS returns the scheduler settings. Weights are always the defaults.
func (s Scheduler) FSRS() fsrs.Config {
	return fsrs.Config{
		Weights:          fsrs.DefaultWeights,
		DesiredRetention: s.DesiredRetention,
		LearningSteps:    s.LearningSteps,
		RelearningSteps:  s.RelearningSteps,
		MaximumInterval:  s.MaximumInterval,
		EnableFuzz:       s.EnableFuzz,
	}
}

// Controller resolves the timezone and returns the admission settings.
func (a Admission) Controller() (admission.Config, error) {
	loc := time.Local
	if a.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(a.Timezone); err != nil {
			return admission.Config{}, fmt.Errorf("failed to load timezone %q: %w", a.Timezone, err)
		}
	}
	return admission.Config{Interval: a.Interval, Location: loc}, nil
}

func (d DB) Options() storage.Options {
	return storage.Options{Driver: d.Driver, DSN: d.DSN, MaxOpenConns: d.MaxOpenConns}
}
