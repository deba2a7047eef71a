package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/config"
)

var force bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long: `Write the default configuration as YAML. API keys are read from the
environment and never written to the file.

Examples:
  ytqa init
  ytqa init ./configs/ytqa.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
}

func runInit(_ *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := writeDefaultConfig(path, force); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote default config to %s", path)))
	return nil
}

var errConfigExists = errors.New("config file already exists, use --force to overwrite")

func writeDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", errConfigExists, path)
		}
	}
	return config.Save(path, config.DefaultConfig())
}
