package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ytqa",
	Short: "ytqa - Ask questions about the comments on a YouTube video",
	Long: `ytqa summarizes the comment section of a YouTube video and answers
questions about it.

Summarizing a video fetches its comments, writes a summary, scores comment
sentiment and stores everything as a session. Questions are answered against
a session by an agent that plans retrieval, searches comments by similarity,
checks whether the evidence is sufficient and writes a grounded answer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ytqa.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level: debug, info, warn or error")
}
