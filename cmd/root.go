package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrotrace/bfsa-extractor/internal/client"
	"github.com/agrotrace/bfsa-extractor/internal/config"
	"github.com/agrotrace/bfsa-extractor/internal/driver"
	"github.com/agrotrace/bfsa-extractor/internal/extractor"
	"github.com/agrotrace/bfsa-extractor/internal/logging"
	"github.com/agrotrace/bfsa-extractor/internal/models"
	"github.com/agrotrace/bfsa-extractor/internal/spreadsheet"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bfsa",
	Short: "BFSA events to Excel extractor",
	Long: `bfsa exports agricultural treatment events from the BFSA portal
(epord.bfsa.bg) into an Excel workbook.

It asks for the portal bearer token and a period, downloads the events in
60-day batches and writes one row per applied product.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bfsa.yaml or $HOME/.bfsa/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.Flags().String("output", "table", "summary format: table, json")
	rootCmd.Flags().String("write-config", "", "write the effective configuration to this path and exit")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

func newLogger(cmd *cobra.Command) (*zap.Logger, string, error) {
	level := cfg.Log.Level
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	log, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	log, runID := logging.WithRun(log)
	return log, runID, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	out := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	if path, _ := cmd.Flags().GetString("write-config"); path != "" {
		if err := cfg.SaveAs(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		out.Success("Configuration written to %s", path)
		return nil
	}

	format, _ := cmd.Flags().GetString("output")
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported output format %q", format)
	}

	log, runID, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := extractor.ParsePolicy(cfg.FailurePolicy)
	if err != nil {
		return err
	}
	log.Debug("starting session",
		zap.String("config", cfg.Path()),
		logging.URL(cfg.BaseURL),
		zap.String("timezone", loc.String()))

	out.Rule()
	out.Plain("BFSA Excel Екстрактор")
	out.Rule()

	run := func(ctx context.Context, token string, r models.DateRange) error {
		events := client.NewEventsClient(cfg.BaseURL, token,
			client.WithTimeout(cfg.Timeout),
			client.WithUserAgent(cfg.UserAgent),
			client.WithPageSize(cfg.PageSize))

		x := extractor.New(events,
			extractor.WithLocation(loc),
			extractor.WithBatchDays(cfg.BatchDays),
			extractor.WithBatchDelay(cfg.BatchDelay),
			extractor.WithPolicy(policy),
			extractor.WithSheetWriter(spreadsheet.Writer{Options: spreadsheet.Options{
				SheetName:      cfg.SheetName,
				MaxColumnWidth: cfg.MaxColumnWidth,
			}}),
			extractor.WithOutput(cfg.OutputDir, cfg.FileLabel),
			extractor.WithFormat(format),
			extractor.WithLogger(log),
			extractor.WithPrinter(out))

		rep, err := x.CreateReport(ctx, r)
		if err != nil {
			return err
		}
		log.Info("session finished",
			zap.Bool("written", rep.Written),
			logging.Rows(rep.Summary.Rows),
			zap.Int("failed_batches", rep.FailedBatches))
		return nil
	}

	d := driver.New(cmd.InOrStdin(), out, run,
		driver.WithLocation(loc),
		driver.WithLogger(log))
	if err := d.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}
