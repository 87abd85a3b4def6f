// DevGenie - AI code analysis server and CLI
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/devgenie/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "devgenie",
	Short: "DevGenie - AI code analysis",
	Long: `DevGenie explains, refactors, debugs, optimizes and security-reviews code
using a large language model.

  devgenie serve                                  Start the web server
  devgenie analyze main.py --mode debug           Analyze a file once
  cat app.js | devgenie analyze - --mode explain  Analyze stdin
  devgenie options                                List modes and languages`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env if present and then the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return config.Load()
}

func setupLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
