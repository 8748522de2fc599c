package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/docverify/internal/common"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docverify",
		Short: "Classify identity documents, extract their fields and verify them",
		Long: `docverify matches a document against a library of reference templates,
extracts its text (OCR for images and scanned pages), pulls structured fields
with per-category patterns and decides whether the document is accepted.

Configuration is read from docverify.yaml, DOCVERIFY_* environment variables
and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a config file (default ./docverify.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newVerifyCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newTemplatesCmd(opts),
	)
	return cmd
}

// loadConfig reads and validates configuration, applying flag overrides.
func (o *rootOptions) loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// exitCode derives the process status from the error taxonomy.
func exitCode(err error) int {
	var ae *common.AppError
	if errors.As(err, &ae) && ae.Code == common.CodeConfig {
		return 78
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 130
	}
	switch common.StatusCode(err) {
	case codes.OK:
		return 0
	case codes.InvalidArgument:
		return 2
	case codes.FailedPrecondition:
		return 3
	default:
		return 1
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
