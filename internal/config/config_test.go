package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/queue"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knoldeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "local", cfg.User)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "knoldeck.db", cfg.DB.DSN)
	assert.Equal(t, 0.9, cfg.Scheduler.DesiredRetention)
	assert.Equal(t, 36500, cfg.Scheduler.MaximumInterval)
	assert.True(t, cfg.Scheduler.EnableFuzz)
	assert.Equal(t, []time.Duration{time.Minute, 10 * time.Minute}, cfg.Scheduler.LearningSteps)
	assert.Equal(t, []time.Duration{10 * time.Minute}, cfg.Scheduler.RelearningSteps)
	assert.Equal(t, time.Minute, cfg.Admission.Interval)
	assert.Equal(t, queue.DefaultLookahead, cfg.Queue.Lookahead)

	_, err = fsrs.NewScheduler(cfg.Scheduler.FSRS())
	assert.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
env: production
db:
  driver: postgres
  dsn: postgres://localhost/knoldeck?sslmode=disable
  max_open_conns: 4
scheduler:
  desired_retention: 0.85
  learning_steps: ["30s", "5m", "20m"]
admission:
  interval: 30s
  timezone: Asia/Tokyo
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 4, cfg.DB.MaxOpenConns)
	assert.Equal(t, 0.85, cfg.Scheduler.DesiredRetention)
	assert.Equal(t, []time.Duration{30 * time.Second, 5 * time.Minute, 20 * time.Minute}, cfg.Scheduler.LearningSteps)
	assert.Equal(t, []time.Duration{10 * time.Minute}, cfg.Scheduler.RelearningSteps, "unset keys keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Admission.Interval)

	ac, err := cfg.Admission.Controller()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", ac.Location.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "user: alice\ndb:\n  dsn: from-file.db\n")
	t.Setenv("KNOLDECK_DB__DSN", "from-env.db")
	t.Setenv("KNOLDECK_SCHEDULER__RELEARNING_STEPS", "5m,15m")
	t.Setenv("KNOLDECK_SCHEDULER__ENABLE_FUZZ", "false")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "from-env.db", cfg.DB.DSN)
	assert.Equal(t, []time.Duration{5 * time.Minute, 15 * time.Minute}, cfg.Scheduler.RelearningSteps)
	assert.False(t, cfg.Scheduler.EnableFuzz)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("KNOLDECK_USER", "from-env")
	t.Setenv("KNOLDECK_DB__DRIVER", "postgres")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--user", "bob", "--db-driver", "memory"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.User)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
	assert.Equal(t, "knoldeck.db", cfg.DB.DSN, "unchanged flags do not clear values")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"KNOLDECK_DB__DRIVER": "mysql"}},
		{name: "retention above one", env: map[string]string{"KNOLDECK_SCHEDULER__DESIRED_RETENTION": "1.5"}},
		{name: "negative step", env: map[string]string{"KNOLDECK_SCHEDULER__LEARNING_STEPS": "1m,-2m"}},
		{name: "maximum interval past a century", env: map[string]string{"KNOLDECK_SCHEDULER__MAXIMUM_INTERVAL": "200000"}},
		{name: "unknown timezone", env: map[string]string{"KNOLDECK_ADMISSION__TIMEZONE": "Mars/Olympus"}},
		{name: "unknown env", env: map[string]string{"KNOLDECK_ENV": "staging"}},
		{name: "sql driver without dsn", env: map[string]string{"KNOLDECK_DB__DSN": "", "KNOLDECK_DB__DRIVER": "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", nil)
			assert.Error(t, err)
		})
	}
}

func TestMemoryDriverNeedsNoDSN(t *testing.T) {
	t.Setenv("KNOLDECK_DB__DRIVER", "memory")
	t.Setenv("KNOLDECK_DB__DSN", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
}

func TestAdmissionLocalTimezone(t *testing.T) {
	ac, err := Admission{Interval: time.Minute}.Controller()
	require.NoError(t, err)
	assert.Equal(t, time.Local, ac.Location)
	assert.Equal(t, time.Minute, ac.Interval)
}
