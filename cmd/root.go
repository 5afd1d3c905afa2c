// Package cmd implements the fintechbi command line.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fintechbi/internal/config"
	"fintechbi/internal/observability"
	"fintechbi/internal/security"
	"fintechbi/internal/ui"
	"fintechbi/internal/warehouse"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logLevel string
	logOut   io.Writer
	ask      ui.AskFunc

	// credentials opens the password store; replaced in tests.
	credentials func() (credentialStore, error)
}

type credentialStore interface {
	warehouse.CredentialSource
	Set(name, value string) error
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		logOut: os.Stderr,
		credentials: func() (credentialStore, error) {
			store, err := security.NewCredentialStore("")
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fintechbi",
		Short: "Fintech ETL and BI demo",
		Long: "fintechbi generates synthetic fintech data, loads it into a star schema " +
			"warehouse, builds KPI views and renders them as a terminal dashboard.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Out = cmd.OutOrStdout()
			config.Configure(a.v, a.cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./config.yaml or ~/.fintechbi/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newGenerateCmd(a),
		newRunCmd(a),
		newDashboardCmd(a),
		newSetupCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		ui.Out = rootCmd.ErrOrStderr()
		ui.ShowError(err)
		os.Exit(1)
	}
}

// bindFlags ties flags to configuration keys so a set flag overrides the
// file and environment. Commands bind when they run since several commands
// share keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if f := flags.Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	return cfg, nil
}

func (a *app) newLogger(cfg *config.Config) *observability.Logger {
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LogLevelFromString(cfg.Log.Level),
		Output:  a.logOut,
		Service: "fintechbi",
		Version: Version,
		Encoder: observability.NewJSONEncoder(cfg.Log.Pretty),
	})
	observability.SetDefaultLogger(logger)
	return logger
}

// credentialSource opens the store only when the config names a credential.
func (a *app) credentialSource(cfg *config.Config) (warehouse.CredentialSource, error) {
	if cfg.Warehouse.Credential == "" {
		return nil, nil
	}
	store, err := a.credentials()
	if err != nil {
		return nil, err
	}
	return store, nil
}
