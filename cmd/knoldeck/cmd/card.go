package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/study"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage cards",
}

var cardAddCmd = &cobra.Command{
	Use:   "add <deck-id>",
	Short: "Add a card to a deck",
	Long: `Add a New card. It waits for the deck's next admission cycle before it
shows up in the review queue.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		front, _ := cmd.Flags().GetString("front")
		back, _ := cmd.Flags().GetString("back")
		hint, _ := cmd.Flags().GetString("context")
		card, err := rt.service.AddCard(cmd.Context(), study.CardInput{
			DeckID:  args[0],
			Front:   front,
			Back:    back,
			Context: hint,
		})
		if err != nil {
			return err
		}
		fmt.Println(card.ID)
		return nil
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:   "delete <card-id>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.service.DeleteCard(cmd.Context(), args[0])
	},
}

func init() {
	cardAddCmd.Flags().String("front", "", "question side")
	cardAddCmd.Flags().String("back", "", "answer side")
	cardAddCmd.Flags().String("context", "", "optional hint shown with the question")
	_ = cardAddCmd.MarkFlagRequired("front")

	cardCmd.AddCommand(cardAddCmd, cardDeleteCmd)
	rootCmd.AddCommand(cardCmd)
}
