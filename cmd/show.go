package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [session]",
	Short: "Show the summary stored in a session",
	Long: `Print the summary, sentiment and top comments of an existing session
without fetching anything from YouTube or OpenAI.

Examples:
  ytqa show 3f1c...`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Reopen(ctx, args[0])
	if err != nil {
		return failure(err)
	}
	fmt.Print(renderSummary(res))
	return nil
}
