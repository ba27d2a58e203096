package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conorfennell/knoldeck/internal/admission"
	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/importer"
	"github.com/conorfennell/knoldeck/internal/logging"
	"github.com/conorfennell/knoldeck/internal/storage"
	"github.com/conorfennell/knoldeck/internal/study"
)

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	store      storage.Store
	closeStore func() error
	scheduler  *fsrs.Scheduler
	service    *study.Service
	controller *admission.Controller
	importer   *importer.Importer
}

var rt *app

var rootCmd = &cobra.Command{
	Use:   "knoldeck",
	Short: "Spaced-repetition flashcards scheduled with FSRS",
	Long: `knoldeck keeps flashcard decks, schedules reviews with FSRS and lets a
bounded number of new cards into each deck's rotation every day.

Settings come from --config, a .env file, KNOLDECK_ environment variables
and the flags below.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path, cmd.Flags())
		if err != nil {
			return err
		}
		rt, err = newApp(cmd.Context(), cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rt == nil {
			return nil
		}
		return rt.close()
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logging.New(cfg.Env)
	if err != nil {
		return nil, err
	}

	scheduler, err := fsrs.NewScheduler(cfg.Scheduler.FSRS())
	if err != nil {
		return nil, err
	}
	admissionCfg, err := cfg.Admission.Controller()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, scheduler: scheduler, closeStore: func() error { return nil }}
	if cfg.DB.Driver == config.DriverMemory {
		a.store = storage.NewMemory()
	} else {
		db, err := storage.Open(ctx, cfg.DB.Options())
		if err != nil {
			return nil, err
		}
		a.store = db
		a.closeStore = db.Close
	}

	clk := clock.Real{}
	a.clock = clk
	a.controller = admission.New(admissionCfg, clk, log)
	a.controller.Bind(a.store, cfg.User)
	a.service = study.NewService(a.store, scheduler, clk, cfg.Queue.Lookahead, log)
	a.importer = importer.New(a.store, a.controller, clk, log)

	log.Debug("knoldeck ready",
		zap.String("user", cfg.User),
		zap.String("driver", cfg.DB.Driver),
	)
	return a, nil
}

func (a *app) close() error {
	a.controller.Stop()
	err := a.closeStore()
	// Sync fails on terminals; nothing to do about it.
	_ = a.log.Sync()
	return err
}
