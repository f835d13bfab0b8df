package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NivBraz/wordindex/internal/app"
	"github.com/NivBraz/wordindex/internal/config"
)

type rootOptions struct {
	configPath string
	baseURL    string
	source     string
	logLevel   string
	quiet      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	// Create context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wordindex",
		Short: "Load a published word list and validate words against it",
		Long: `wordindex fetches a small seed list (words.txt) and a large dictionary
(words_dictionary.json) published next to a page, merges them into one
index, and answers whether words are recognized.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("WORDINDEX_CONFIG"), "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Page or directory URL the word lists are published next to")
	cmd.PersistentFlags().StringVar(&opts.source, "source", "", "Override location of the bulk dictionary")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the load progress spinner")

	cmd.AddCommand(newLoadCmd(opts), newCheckCmd(opts), newScanCmd(opts))
	return cmd
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the word lists and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}

			result := application.Load(cmd.Context(), opts.source)
			if dump {
				for _, w := range application.Index().Words() {
					fmt.Fprintln(cmd.OutOrStdout(), w)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print every indexed word instead of the summary")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check WORD...",
		Short: "Report whether each word is recognized",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}

			if result := application.Load(cmd.Context(), opts.source); !result.Ready {
				return fmt.Errorf("dictionary is not available")
			}

			results := application.Check(args)
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Known {
					return fmt.Errorf("unrecognized word: %q", r.Word)
				}
			}
			return nil
		},
	}
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan URL",
		Short: "List the words of an HTML page that are not recognized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}

			if result := application.Load(cmd.Context(), opts.source); !result.Ready {
				return fmt.Errorf("dictionary is not available")
			}

			result, err := application.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

// newApp loads the configuration, applies flag overrides and builds the
// application.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	var progress io.Writer = cmd.ErrOrStderr()
	if o.quiet {
		progress = io.Discard
	}

	application, err := app.New(cfg, app.WithLogger(logger), app.WithProgressOutput(progress))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
