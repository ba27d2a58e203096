package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Manage decks",
}

var deckCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		patch, err := policyPatch(cmd)
		if err != nil {
			return err
		}
		if err := domain.DefaultResetPolicy().Apply(patch).Validate(); err != nil {
			return err
		}

		description, _ := cmd.Flags().GetString("description")
		deck, err := rt.service.CreateDeck(ctx, rt.cfg.User, args[0], description)
		if err != nil {
			return err
		}
		if patch != (domain.DeckPatch{}) {
			if deck, err = rt.service.UpdateDeck(ctx, deck.ID, patch); err != nil {
				return err
			}
		}
		printDeck(deck)
		return nil
	},
}

var deckUpdateCmd = &cobra.Command{
	Use:   "update <deck-id>",
	Short: "Change a deck's name or admission policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := policyPatch(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			patch.Description = &description
		}
		deck, err := rt.service.UpdateDeck(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		printDeck(deck)
		return nil
	},
}

var deckListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user's decks",
	RunE: func(cmd *cobra.Command, args []string) error {
		decks, err := rt.service.Decks(cmd.Context(), rt.cfg.User)
		if err != nil {
			return err
		}
		for _, d := range decks {
			printDeck(d)
		}
		return nil
	},
}

var deckDeleteCmd = &cobra.Command{
	Use:   "delete <deck-id>",
	Short: "Delete a deck and all of its cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.service.DeleteDeck(cmd.Context(), args[0])
	},
}

var deckResetCmd = &cobra.Command{
	Use:   "reset <deck-id>",
	Short: "Make the deck eligible for a fresh admission cycle",
	Long: `Reset clears the deck's last reset time so the next admission cycle
runs immediately. With --cards every card also returns to New.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cards, _ := cmd.Flags().GetBool("cards"); cards {
			if err := rt.service.ResetCards(ctx, args[0]); err != nil {
				return err
			}
		}
		return rt.service.ResetDeck(ctx, args[0])
	},
}

func addPolicyFlags(c *cobra.Command) {
	c.Flags().Int("per-day", 0, "new cards admitted per day")
	c.Flags().Bool("limit", true, "cap the new cards admitted each day")
	c.Flags().String("reset-at", "", "local time of day the deck resets, HH:MM")
}

// policyPatch collects the admission policy flags the user set.
func policyPatch(cmd *cobra.Command) (domain.DeckPatch, error) {
	var patch domain.DeckPatch
	flags := cmd.Flags()
	if flags.Changed("per-day") {
		n, _ := flags.GetInt("per-day")
		patch.NewCardsPerDay = &n
	}
	if flags.Changed("limit") {
		limit, _ := flags.GetBool("limit")
		patch.LimitNewCardsToDaily = &limit
	}
	if flags.Changed("reset-at") {
		s, _ := flags.GetString("reset-at")
		t, err := time.Parse("15:04", s)
		if err != nil {
			return patch, fmt.Errorf("invalid --reset-at %q, want HH:MM: %w", s, err)
		}
		patch.ResetTime = &domain.ResetTime{Hour: t.Hour(), Minute: t.Minute()}
	}
	return patch, nil
}

func printDeck(d domain.Deck) {
	limit := "unlimited"
	if d.Policy.LimitNewCardsToDaily {
		limit = fmt.Sprintf("%d/day", d.Policy.NewCardsPerDay)
	}
	fmt.Printf("%s %s (new: %s, resets %s)\n", d.ID, d.Name, limit, d.Policy.ResetTime)
}

func init() {
	for _, c := range []*cobra.Command{deckCreateCmd, deckUpdateCmd} {
		c.Flags().String("description", "", "deck description")
		addPolicyFlags(c)
	}
	deckUpdateCmd.Flags().String("name", "", "new deck name")
	deckResetCmd.Flags().Bool("cards", false, "also return every card to New")

	deckCmd.AddCommand(deckCreateCmd, deckUpdateCmd, deckListCmd, deckDeleteCmd, deckResetCmd)
	rootCmd.AddCommand(deckCmd)
}
