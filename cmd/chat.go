package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/orchestrator"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session]",
	Short: "Ask several questions about one session interactively",
	Long: `Start an interactive question loop over a session created by "ytqa summarize".

Type a question and press enter. Type "exit" or "quit", or press Ctrl-D, to leave.

Examples:
  ytqa chat 3f1c...
  ytqa chat 3f1c... --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&verbose, "verbose", false, "Show the retrieval plan and agent steps")
}

func runChat(cmd *cobra.Command, args []string) error {
	token := args[0]
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Reopen(ctx, token)
	if err != nil {
		return failure(err)
	}
	fmt.Println(titleStyle.Render(res.VideoInfo.Title))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d comments fetched · type \"exit\" to leave", res.TotalComments)))

	return chatLoop(ctx, a.orch, token, os.Stdin, os.Stdout)
}

// chatLoop answers one question per input line until EOF or an exit command.
// A failed question is reported and the loop continues, unless the session
// is gone.
func chatLoop(ctx context.Context, orch *orchestrator.Orchestrator, token string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n"+headerStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result, err := orch.Ask(ctx, token, question)
		if err != nil {
			if errors.Is(err, session.ErrSessionExpired) || ctx.Err() != nil {
				return failure(err)
			}
			fmt.Fprintln(out, errorStyle.Render("Error:")+" "+orchestrator.UserMessage(err))
			continue
		}
		fmt.Fprint(out, "\n"+renderAnswer(result, verbose))
	}
}
