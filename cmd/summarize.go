package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/orchestrator"
)

var (
	exportFile string
	warm       bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [youtube-url]",
	Short: "Summarize a video's comments and start a question session",
	Long: `Fetch the comments of a YouTube video, summarize them, score their sentiment
and store the result as a session you can ask questions about.

Accepted URLs include watch?v=, youtu.be/, shorts/, embed/ and live/ links,
or a bare 11-character video id.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for summaries and embeddings
  YOUTUBE_API_KEY    - YouTube Data API v3 key

Examples:
  ytqa summarize https://www.youtube.com/watch?v=dQw4w9WgXcQ
  ytqa summarize https://youtu.be/dQw4w9WgXcQ --export session.json
  ytqa summarize dQw4w9WgXcQ --warm`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&exportFile, "export", "", "Export the summary to a JSON file: --export <filename>")
	summarizeCmd.Flags().BoolVar(&warm, "warm", false, "Compute comment embeddings now instead of on the first question")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return failure(err)
	}
	if warm {
		cfg.Session.WarmEmbeddings = true
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return failure(err)
	}
	defer a.Close()

	fmt.Println(mutedStyle.Render("→ Fetching and summarizing comments..."))
	res, err := a.orch.Summarize(ctx, args[0])
	if err != nil {
		return failure(err)
	}

	if exportFile != "" {
		if err := writeExport(exportFile, res); err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Exported summary to %s", exportFile)))
	}

	fmt.Println()
	fmt.Print(renderSummary(res))
	return nil
}

// writeExport writes res as indented JSON to filename.
func writeExport(filename string, res *orchestrator.SummaryResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	return nil
}
