package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one admission cycle for every deck that is due a reset",
	RunE: func(cmd *cobra.Command, args []string) error {
		effects, err := rt.controller.RunOnce(cmd.Context())
		for _, e := range effects {
			if e.Applied {
				fmt.Printf("%s admitted %d (boundary %s)\n", e.DeckID, len(e.Admitted), e.Boundary.Local())
			}
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admission job until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := rt.controller.RunOnce(ctx); err != nil {
			rt.log.Warn("initial admission cycle failed", zap.Error(err))
		}
		if err := rt.controller.Start(rt.store, rt.cfg.User); err != nil {
			return err
		}
		<-ctx.Done()
		rt.controller.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tickCmd, serveCmd)
}
