package main

import (
	"github.com/spf13/cobra"

	"github.com/dropbox/sqldsl/dlog"
	"github.com/dropbox/sqldsl/internal/cli"
)

var (
	// Set during PersistentPreRunE.
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sqldsl",
	Short: "Render and run query documents",
	Long: `sqldsl - render and run query documents

A query document is a yaml file declaring tables and named queries whose
where clauses are trees of and/or criteria.  sqldsl renders a query into
parameterized sql for a dialect, or runs it against a database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile, envFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		logOpts := cfg.Logging()
		if verbose {
			logOpts.Level = "debug"
		}
		if err := dlog.Init(logOpts); err != nil {
			return cli.ConfigError("configuring logging", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return dlog.Close()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default: auto-discover sqldsl.yaml)")
	f.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading SQLDSL_* variables")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every statement")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_ = dlog.Close()
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
