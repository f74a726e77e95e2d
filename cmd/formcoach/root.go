package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/config"
)

// globals holds what the persistent pre-run prepares for every command.
type globals struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "formcoach",
		Short: "Real-time exercise form feedback from body pose landmarks",
		Long: `formcoach watches you train through a camera, counts repetitions and
scores your form for squats, push-ups, arm curls, side raises and shoulder
presses.

Sessions are saved locally and can be browsed from the CLI or the local
HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level, err := parseLevel(g.logLevel)
			if err != nil {
				return err
			}
			g.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(g.logger)

			g.cfg, err = config.Load(resolveConfigPath(g.configPath))
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default ~/.formcoach/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newTrainCmd(g),
		newReplayCmd(g),
		newRecordCmd(g),
		newHistoryCmd(g),
		newExercisesCmd(),
		newPluginsCmd(g),
		newServeCmd(g),
	)

	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// resolveConfigPath prefers the flag, then FORMCOACH_CONFIG, then the
// default file when it exists.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("FORMCOACH_CONFIG"); env != "" {
		return env
	}
	path := filepath.Join(config.DataDir(), "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

// findWebDir searches for a dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.formcoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
