package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"doujin-resolver/extractor"
	"doujin-resolver/internal/config"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configPath     string
	verbose        bool
	workers        int
	concurrent     int
	timeout        time.Duration
	delay          time.Duration
	outputEncoding string
	jsonOutput     string
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{})
}

func buildRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "doujin-resolver <url|file>",
		Short: "Reconcile doujin product metadata across storefronts",
		Long: `Resolves a product URL, or every line of an input file (product URLs or titles),
into one tab-separated row: circle, author, title, date, event and the product URL
on DLsite, FANZA, Booth, Toranoana and Melonbooks.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	flags.IntVar(&opts.workers, "workers", 1, "Items processed in parallel")
	flags.IntVar(&opts.concurrent, "concurrent", 5, "Maximum concurrent storefront requests per item")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.DurationVar(&opts.delay, "delay", 200*time.Millisecond, "Minimum interval between requests")
	flags.StringVar(&opts.outputEncoding, "output-encoding", "utf-8", "Encoding of rows written to stdout")
	root.Flags().StringVar(&opts.jsonOutput, "json", "", "Also write rows to this JSON file")

	root.AddCommand(newProbeCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

func runResolve(cmd *cobra.Command, opts *options, arg string) error {
	logger := newLogger(opts.verbose)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(arg)
	if err != nil {
		logger.Errorf("%v", err)
		return err
	}

	sink, err := utils.NewConsoleWriter(cmd.OutOrStdout(), cfg.OutputEncoding)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	ex := extractor.NewExtractor(cfg, logger)
	defer ex.Close()

	var rows []*types.Row
	summary, err := ex.Run(ctx, inputs, func(input string, row *types.Row) error {
		if row == nil {
			return nil
		}
		rows = append(rows, row)
		return sink.WriteLine(extractor.FormatRow(row, cfg))
	})
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}

	if opts.jsonOutput != "" {
		if err := extractor.WriteJSON(opts.jsonOutput, rows); err != nil {
			return err
		}
		logger.Infof("Results written to: %s", opts.jsonOutput)
	}

	logger.Infof("Total items processed: %d", summary.Total)
	logger.Infof("Resolved: %d, failed: %d", summary.Resolved, summary.Failed)
	return nil
}

// newLogger sets up logrus the same way for every command
func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// loadConfig layers explicitly set flags over the file and environment config
func loadConfig(cmd *cobra.Command, opts *options) (*types.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("concurrent") {
		cfg.MaxConcurrentRequests = opts.concurrent
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("delay") {
		cfg.RequestDelay = opts.delay
	}
	if flags.Changed("output-encoding") {
		cfg.OutputEncoding = opts.outputEncoding
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collectInputs treats a URL argument as a single item and anything else as a path to
// a file with one item per line.
func collectInputs(arg string) ([]string, error) {
	arg = strings.TrimSpace(arg)
	if extractor.IsURL(arg) {
		return []string{arg}, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()
	return extractor.ReadInputs(f)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
