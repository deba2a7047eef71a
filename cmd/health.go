package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/session"
)

const healthTimeout = 5 * time.Second

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the session store and API credentials",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return failure(err)
	}

	store, err := session.Open(cfg.Session.Store)
	if err != nil {
		return failure(err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()
	pingErr := store.Ping(ctx)

	fmt.Println(headerStyle.Render("Health:"))
	fmt.Println(check("session store ("+cfg.Session.Store.Type+")", pingErr == nil))
	fmt.Println(check("OPENAI_API_KEY configured", cfg.OpenAI.APIKey != ""))
	fmt.Println(check("YOUTUBE_API_KEY configured", cfg.YouTube.APIKey != ""))

	if pingErr != nil {
		return failure(pingErr)
	}
	return nil
}

func check(label string, ok bool) string {
	if ok {
		return successStyle.Render("✓ ") + textStyle.Render(label)
	}
	return errorStyle.Render("✗ ") + textStyle.Render(label)
}
