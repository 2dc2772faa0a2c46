// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/logtag/internal/config"
	"github.com/xkilldash9x/logtag/internal/logfilter"
	"github.com/xkilldash9x/logtag/internal/observability"
	"github.com/xkilldash9x/logtag/internal/session"
)

type contextKey string

// configKey stores the validated *config.Config on the command context.
const configKey contextKey = "config"

// NewRootCommand builds a fresh logtag command tree reading log files from disk.
func NewRootCommand() *cobra.Command {
	return newRootCommand(afero.NewOsFs())
}

// newRootCommand builds the command tree over fs so tests can use an in-memory filesystem.
func newRootCommand(fs afero.Fs) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "logtag",
		Short: "Print the log lines tagged with a number, e.g. (3).",
		Long: `logtag asks for a numeric tag, then prints every line of the log file
that starts with that tag in parentheses, in file order.`,
		Version: Version,
		Args:    cobra.NoArgs,
		// Errors are reported once by main; usage text would drown the platform error.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting logtag", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}

			filter := logfilter.New(fs, observability.GetLogger())
			s := session.New(cfg.Filter, filter, observability.Component("session"))
			return s.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.Flags().StringP("file", "f", config.DefaultLogPath, "log file to filter")
	rootCmd.Flags().Int("max-attempts", 0, "give up after this many invalid keys (0 retries forever)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs a fresh root command with the given signal-aware context.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	return NewRootCommand().ExecuteContext(ctx)
}

// initializeConfig reads the config file and environment into v and binds the
// root flags so that flag > env > file > default.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// Only the implicit ./config.yaml is optional.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	flags := cmd.Root().Flags()
	if err := v.BindPFlag("filter.log_path", flags.Lookup("file")); err != nil {
		return err
	}
	return v.BindPFlag("filter.max_attempts", flags.Lookup("max-attempts"))
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}
