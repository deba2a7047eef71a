package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/orchestrator"
)

var verbose bool

var askCmd = &cobra.Command{
	Use:   "ask [session] [question]",
	Short: "Ask a question about a summarized video's comments",
	Long: `Ask a natural language question against a session created by "ytqa summarize".

This command:
1. Loads the session (summary, comments and sentiment)
2. Plans retrieval and rewrites the question into search queries
3. Retrieves similar comments, optionally reranking them
4. Checks whether the comments cover the question, searching again if needed
5. Generates an answer grounded in the summary and selected comments

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and answers

Examples:
  ytqa ask 3f1c... "What do viewers think of the ending?"
  ytqa ask 3f1c... "Did anyone mention the audio?" --verbose`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show the retrieval plan and agent steps")
}

func runAsk(cmd *cobra.Command, args []string) error {
	token := args[0]
	question := args[1]
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	if verbose {
		fmt.Println(mutedStyle.Render("→ Retrieving relevant comments and generating answer..."))
	}
	result, err := a.orch.Ask(ctx, token, question)
	if err != nil {
		return failure(err)
	}

	fmt.Print(renderAnswer(result, verbose))
	return nil
}

// renderAnswer formats an agent result; verbose adds the plan and trace.
func renderAnswer(result *orchestrator.Result, verbose bool) string {
	var b strings.Builder

	if verbose {
		plan := result.Plan
		b.WriteString(headerStyle.Render("Plan:") + "\n")
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf(
			"need_comments=%t rerank=%t top_k=%d per_query_k=%d",
			plan.NeedComments, plan.Rerank, plan.TopK, plan.PerQueryK)))
		if len(plan.QueryRewrites) > 0 {
			fmt.Fprintf(&b, "%s\n", mutedStyle.Render("queries: "+strings.Join(plan.QueryRewrites, " | ")))
		}
		if plan.Rationale != "" {
			fmt.Fprintf(&b, "%s\n", mutedStyle.Render("rationale: "+plan.Rationale))
		}
		steps := make([]string, len(result.Trace))
		for i, s := range result.Trace {
			steps[i] = s.String()
		}
		fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(fmt.Sprintf("steps: %s (%d coverage checks)",
			strings.Join(steps, " → "), result.Loops)))
	}

	b.WriteString(headerStyle.Render("Answer:") + "\n\n")
	b.WriteString(textStyle.Render(strings.TrimSpace(result.Answer)) + "\n\n")

	if len(result.UsedComments) > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Based on %d comments:", len(result.UsedComments))) + "\n")
		b.WriteString(renderComments(result.UsedComments))
	}
	return b.String()
}
