package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/fsrs"
)

var dueCmd = &cobra.Command{
	Use:   "due <deck-id>",
	Short: "List the cards that are ready for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Opening a deck catches up a reset boundary the background job missed.
		deck, err := rt.store.QueryDeck(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := rt.controller.ProcessDeckIfResetNeeded(ctx, deck, rt.clock.Now()); err != nil {
			return err
		}

		cards, err := rt.service.Due(ctx, args[0])
		if err != nil {
			return err
		}
		for _, c := range cards {
			fmt.Printf("%s [%s] %s\n", c.ID, c.State, c.Front)
		}
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <card-id> <again|hard|good|easy>",
	Short: "Record a review and reschedule the card",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := fsrs.ParseRating(args[1])
		if err != nil {
			return err
		}
		card, err := rt.service.Review(cmd.Context(), args[0], rating)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s, due in %s\n", card.ID, card.State, fsrs.FormatInterval(rt.clock.Now(), card.Due))
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict <card-id>",
	Short: "Show when the card would be due for each rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := rt.service.Predict(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		now := rt.clock.Now()
		for _, r := range fsrs.Ratings {
			fmt.Printf("%-5s %s\n", r, fsrs.FormatInterval(now, p.For(r)))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <deck-id>",
	Short: "Count a deck's cards by state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := rt.service.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("new %d, learning %d, review %d, relearning %d\n",
			st.Counts.New, st.Counts.Learning, st.Counts.Review, st.Counts.Relearning)
		fmt.Printf("due now %d, admitted %d\n", st.Due, st.Admitted)
		if st.NextDue != nil {
			fmt.Printf("next due %s\n", st.NextDue.Local().Format(time.DateTime))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dueCmd, reviewCmd, predictCmd, statsCmd)
}
