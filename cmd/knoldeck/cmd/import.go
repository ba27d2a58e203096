package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <deck-id> <source>",
	Short: "Import cards from a file, directory or git repository",
	Long: `Import reads Q:/A: markdown files, .csv and .xlsx sheets (front, back and
optional context columns after a header row) or a git repository of markdown
files. Cards already in the deck are skipped. The deck then gets one
admission cycle so the new cards can be studied right away.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prune, _ := cmd.Flags().GetBool("prune")
		sheet, _ := cmd.Flags().GetString("sheet")
		res, err := rt.importer.Import(cmd.Context(), args[0], args[1], importer.Options{
			Prune:    prune,
			ReposDir: rt.cfg.ReposDir,
			Sheet:    sheet,
		})
		if err != nil {
			return err
		}
		fmt.Printf("parsed %d, added %d, removed %d, admitted %d\n",
			res.Parsed, res.Added, res.Removed, len(res.Admission.Admitted))
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("prune", false, "delete cards the source no longer contains")
	importCmd.Flags().String("sheet", "", "worksheet to read from a spreadsheet, default first")
	rootCmd.AddCommand(importCmd)
}
