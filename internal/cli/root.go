// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"pan-scan/internal/cloud"
	"pan-scan/internal/config"
	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
	"pan-scan/internal/version"
)

// Exit codes returned by Execute.
const (
	ExitOK       = 0
	ExitFindings = 1
	ExitConfig   = 2
	ExitFailure  = 3
)

// EnvPrefix prefixes every environment override, e.g. PANSCAN_FORMAT.
const EnvPrefix = "PANSCAN"

// Options wires the command tree to its environment.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// OpenStore replaces the cloud SDK clients when set
	OpenStore cloud.StoreFactory
}

type app struct {
	opts Options
	v    *viper.Viper
	cfg  *config.Config

	// started is set once a command begins real work; errors before
	// that are usage errors.
	started  bool
	exitCode int
}

// Execute runs the command line args and returns the process exit code:
// ExitFindings when the report holds unsuppressed findings, ExitConfig for
// usage and configuration errors, ExitFailure when a run could not finish.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	a := &app{opts: opts, v: newViper()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	err := root.ExecuteContext(ctx)
	observability.Sync()
	if err == nil {
		return a.exitCode
	}

	fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
	if !a.started {
		fmt.Fprintln(opts.Stderr, "Run 'pan-scan --help' for usage.")
		return ExitConfig
	}
	if resilience.IsConfigError(err) {
		return ExitConfig
	}
	return ExitFailure
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("password", EnvPrefix+"_DB_PASSWORD")
	_ = v.BindEnv("connection-string", cloud.AzureConnectionStringEnv)
	return v
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pan-scan",
		Short: "Find payment card numbers in files, databases and cloud storage",
		Long: `pan-scan looks for primary account numbers (credit and debit card numbers)
in flat files, documents, relational databases and object storage.

Every candidate is checked with the Luhn algorithm and classified by brand.
Reports only ever contain masked numbers (first six and last four digits).`,
		Version:           version.Short(),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default: pan-scan.yaml, .pan-scan.yaml or the user config dir)")
	pf.StringP("profile", "p", "", "named profile from the config file")
	pf.StringP("format", "f", "", "report format: "+strings.Join(config.Formats, ", "))
	pf.StringP("output", "o", "", "write the report to a file instead of stdout")
	pf.Bool("no-color", false, "disable colored output")
	pf.IntP("workers", "w", 0, "sources scanned concurrently (default: CPUs, at most 8)")
	pf.Bool("debug", false, "debug logging and per-step timing")
	pf.BoolP("verbose", "v", false, "include masked context and suppressed findings in the report")
	pf.String("log-file", "", "also write JSON logs to this file, rotated")
	pf.String("suppressions", "", "suppression rules file")

	root.AddCommand(
		a.fileCommand(),
		a.dirCommand(),
		a.csvCommand(),
		a.pdfCommand(),
		a.excelCommand(),
		a.sqliteCommand(),
		a.serverDatabaseCommand("postgres", "Scan the tables of a PostgreSQL schema"),
		a.serverDatabaseCommand("mysql", "Scan the tables of a MySQL database"),
		a.cloudCommand(cloud.CapabilityS3, "s3://bucket/prefix", "Scan the objects under an S3 prefix"),
		a.cloudCommand(cloud.CapabilityGCS, "gs://bucket/prefix", "Scan the objects under a Cloud Storage prefix"),
		a.cloudCommand(cloud.CapabilityAzure, "azure://container/prefix", "Scan the blobs under an Azure container prefix"),
		a.capabilitiesCommand(),
		a.formatsCommand(),
		a.suppressCommand(),
		a.versionCommand(),
	)
	return root
}

// setup resolves the configuration for every command: defaults, config
// file, profile, environment and flags, in increasing precedence.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations["config"] == "none" {
		return nil
	}

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.LoadConfigOrDefault(a.v.GetString("config"))
	if err != nil {
		return asConfigError(err)
	}
	if err := cfg.ApplyProfile(a.v.GetString("profile")); err != nil {
		return asConfigError(err)
	}
	a.overlay(cfg)
	if err := config.ValidateConfig(cfg); err != nil {
		return asConfigError(err)
	}

	logging := cfg.Logging
	if cfg.Defaults.Debug {
		logging.Level = "debug"
	}
	observability.Initialize(logging, zapcore.AddSync(a.opts.Stderr))

	a.cfg = cfg
	return nil
}

// overlay applies environment variables and flags that were set.
func (a *app) overlay(cfg *config.Config) {
	d := &cfg.Defaults
	if a.v.IsSet("format") {
		d.Format = a.v.GetString("format")
	}
	if a.v.IsSet("output") {
		d.Output = a.v.GetString("output")
	}
	if a.v.IsSet("no-color") {
		d.NoColor = a.v.GetBool("no-color")
	}
	if a.v.IsSet("workers") {
		d.Workers = a.v.GetInt("workers")
	}
	if a.v.IsSet("debug") {
		d.Debug = a.v.GetBool("debug")
	}
	if a.v.IsSet("verbose") {
		d.Verbose = a.v.GetBool("verbose")
	}
	if a.v.IsSet("log-file") {
		cfg.Logging.File = a.v.GetString("log-file")
	}
	if a.v.IsSet("suppressions") {
		cfg.Suppressions = a.v.GetString("suppressions")
	}
}

func asConfigError(err error) error {
	if resilience.IsConfigError(err) {
		return err
	}
	return resilience.NewConfigError("%v", err)
}

func (a *app) versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "none"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			short, _ := cmd.Flags().GetBool("short")
			if short {
				fmt.Fprintln(a.opts.Stdout, version.Short())
				return nil
			}
			fmt.Fprintln(a.opts.Stdout, version.Info())
			return nil
		},
	}
	cmd.Flags().Bool("short", false, "print only the version number")
	return cmd
}
