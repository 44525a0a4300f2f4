// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pan-scan/internal/cloud"
	"pan-scan/internal/config"
	"pan-scan/internal/core"
	"pan-scan/internal/database"
	"pan-scan/internal/formatters"
	_ "pan-scan/internal/formatters/csv"
	_ "pan-scan/internal/formatters/json"
	_ "pan-scan/internal/formatters/parquet"
	_ "pan-scan/internal/formatters/text"
	_ "pan-scan/internal/formatters/yaml"
	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
	"pan-scan/internal/suppressions"
)

type targetFunc func(cmd *cobra.Command, args []string) ([]core.Target, error)

// scanCommand builds a command whose RunE scans the targets it returns.
func (a *app) scanCommand(cmd *cobra.Command, targets targetFunc) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ts, err := targets(cmd, args)
		if err != nil {
			return err
		}
		return a.runScan(cmd.Context(), ts...)
	}
	cmd.Flags().Bool("no-suppressions", false, "ignore suppression rules and report every finding")
	return cmd
}

func pathTargets(kind, as string) targetFunc {
	return func(_ *cobra.Command, args []string) ([]core.Target, error) {
		ts := make([]core.Target, 0, len(args))
		for _, p := range args {
			ts = append(ts, core.Target{Kind: kind, Path: p, As: as})
		}
		return ts, nil
	}
}

func (a *app) fileCommand() *cobra.Command {
	return a.scanCommand(&cobra.Command{
		Use:   "file <path>...",
		Short: "Scan files, picking the adapter by extension",
		Long: `Scan one or more files. The adapter is picked by extension; files with an
unknown extension are scanned as text when they look like text.`,
		Args: cobra.MinimumNArgs(1),
	}, pathTargets(core.TargetFile, ""))
}

func (a *app) dirCommand() *cobra.Command {
	return a.scanCommand(&cobra.Command{
		Use:   "dir <path>...",
		Short: "Scan every supported file under a directory, recursively",
		Args:  cobra.MinimumNArgs(1),
	}, pathTargets(core.TargetDir, ""))
}

func (a *app) csvCommand() *cobra.Command {
	cmd := a.scanCommand(&cobra.Command{
		Use:   "csv <path>...",
		Short: "Scan delimited text files cell by cell",
		Args:  cobra.MinimumNArgs(1),
	}, func(cmd *cobra.Command, args []string) ([]core.Target, error) {
		if a.v.IsSet("delimiter") {
			a.cfg.Sources.CSV.Delimiter = a.v.GetString("delimiter")
			if err := config.ValidateConfig(a.cfg); err != nil {
				return nil, asConfigError(err)
			}
		}
		return pathTargets(core.TargetFile, "csv")(cmd, args)
	})
	cmd.Flags().StringP("delimiter", "d", "", `field delimiter, one character or \t (default ",")`)
	return cmd
}

func (a *app) pdfCommand() *cobra.Command {
	cmd := a.scanCommand(&cobra.Command{
		Use:   "pdf <path>...",
		Short: "Scan PDF page text and document info",
		Args:  cobra.MinimumNArgs(1),
	}, func(cmd *cobra.Command, args []string) ([]core.Target, error) {
		if a.v.IsSet("max-pages") {
			a.cfg.Sources.PDF.MaxPages = a.v.GetInt("max-pages")
			if err := config.ValidateConfig(a.cfg); err != nil {
				return nil, asConfigError(err)
			}
		}
		return pathTargets(core.TargetFile, "pdf")(cmd, args)
	})
	cmd.Flags().Int("max-pages", 0, "stop after this many pages (0 reads all)")
	return cmd
}

func (a *app) excelCommand() *cobra.Command {
	return a.scanCommand(&cobra.Command{
		Use:   "excel <path>...",
		Short: "Scan every cell of Excel workbooks",
		Args:  cobra.MinimumNArgs(1),
	}, pathTargets(core.TargetFile, "excel"))
}

func addDatabaseLimitFlags(cmd *cobra.Command) {
	cmd.Flags().Int("row-limit", 0, "rows read per table (default from config, 10000)")
	cmd.Flags().Duration("timeout", 0, "connection timeout (default from config, 30s)")
}

func (a *app) sqliteCommand() *cobra.Command {
	cmd := a.scanCommand(&cobra.Command{
		Use:   "sqlite <path>",
		Short: "Scan the tables of a SQLite database file",
		Args:  cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) ([]core.Target, error) {
		return []core.Target{{
			Kind: core.TargetDatabase,
			Database: database.Config{
				Kind:     database.KindSQLite,
				Path:     args[0],
				RowLimit: a.v.GetInt("row-limit"),
				Timeout:  a.v.GetDuration("timeout"),
			},
		}}, nil
	})
	addDatabaseLimitFlags(cmd)
	return cmd
}

func (a *app) serverDatabaseCommand(kind, short string) *cobra.Command {
	cmd := a.scanCommand(&cobra.Command{
		Use:   kind,
		Short: short,
		Long: short + `.

The password may also be given in ` + EnvPrefix + `_DB_PASSWORD, which keeps it out of the
process list and shell history.`,
		Args: cobra.NoArgs,
	}, func(_ *cobra.Command, _ []string) ([]core.Target, error) {
		return []core.Target{{
			Kind: core.TargetDatabase,
			Database: database.Config{
				Kind:     kind,
				Host:     a.v.GetString("host"),
				Port:     a.v.GetInt("port"),
				Database: a.v.GetString("database"),
				User:     a.v.GetString("user"),
				Password: a.v.GetString("password"),
				Schema:   a.v.GetString("schema"),
				SSLMode:  a.v.GetString("sslmode"),
				RowLimit: a.v.GetInt("row-limit"),
				Timeout:  a.v.GetDuration("timeout"),
			},
		}}, nil
	})

	f := cmd.Flags()
	f.String("host", "", "server host name")
	f.Int("port", 0, "server port (default: the driver's standard port)")
	f.String("database", "", "database name")
	f.String("user", "", "user name")
	f.String("password", "", "password (prefer "+EnvPrefix+"_DB_PASSWORD)")
	if kind == database.KindPostgres {
		f.String("schema", "", "schema to scan (default from config, public)")
		f.String("sslmode", "", "disable, require, verify-ca, verify-full or prefer")
	} else {
		f.String("schema", "", "must be empty or equal to --database")
	}
	addDatabaseLimitFlags(cmd)
	return cmd
}

var cloudSchemes = map[string]string{
	cloud.CapabilityS3:    "s3",
	cloud.CapabilityGCS:   "gs",
	cloud.CapabilityAzure: "azure",
}

func (a *app) cloudCommand(capability, example, short string) *cobra.Command {
	cmd := a.scanCommand(&cobra.Command{
		Use:   capability + " <" + example + ">",
		Short: short,
		Args:  cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) ([]core.Target, error) {
		uri, err := cloud.ParseURI(args[0])
		if err != nil {
			return nil, err
		}
		if uri.Capability() != capability {
			return nil, resilience.NewConfigError("%s expects a %s:// URI, got %s", capability, cloudSchemes[capability], args[0])
		}
		return []core.Target{{
			Kind: core.TargetCloud,
			URI:  args[0],
			Cloud: cloud.Settings{
				Region:           a.v.GetString("region"),
				ConnectionString: a.v.GetString("connection-string"),
				Options:          cloud.Options{RequestsPerSecond: a.v.GetFloat64("rate")},
			},
		}}, nil
	})

	f := cmd.Flags()
	f.Float64("rate", 0, "API requests per second (default from config, 10)")
	switch capability {
	case cloud.CapabilityS3:
		f.String("region", "", "AWS region (default from the AWS config chain)")
	case cloud.CapabilityAzure:
		f.String("connection-string", "", "storage account connection string (default $"+cloud.AzureConnectionStringEnv+")")
	}
	return cmd
}

// runScan scans targets, writes the report and records the exit code.
func (a *app) runScan(ctx context.Context, targets ...core.Target) error {
	a.started = true
	cfg := a.cfg
	logger := observability.L()

	format := cfg.Defaults.Format
	if format == "parquet" && cfg.Defaults.Output == "" && isTerminal(a.opts.Stdout) {
		return resilience.NewConfigError("parquet output is binary; use --output to write it to a file")
	}

	sm, err := suppressions.NewSuppressionManager(cfg.Suppressions)
	if err != nil {
		return err
	}
	sm.SetEnabled(!a.v.GetBool("no-suppressions"))

	progress, finishProgress := a.progress()
	scanner, err := core.NewScanner(core.ScanConfig{
		Config:             cfg,
		SuppressionManager: sm,
		Progress:           progress,
		OpenStore:          a.opts.OpenStore,
	})
	if err != nil {
		return err
	}

	report, err := scanner.Run(ctx, targets...)
	finishProgress()
	if err != nil {
		return err
	}

	data, err := formatters.Export(format, report, formatters.FormatterOptions{
		Verbose: cfg.Defaults.Verbose,
		NoColor: a.noColor(),
	})
	if err != nil {
		return err
	}
	if err := a.writeReport(data); err != nil {
		return err
	}

	if len(report.Entries) > 0 {
		a.exitCode = ExitFindings
	}
	logger.Debug("report written",
		zap.String("run_id", report.RunID),
		zap.String("format", format),
		zap.Int("findings", len(report.Entries)),
		zap.Int("warnings", len(report.Warnings)))
	return nil
}

func (a *app) writeReport(data []byte) error {
	path := a.cfg.Defaults.Output
	if path == "" {
		_, err := a.opts.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
