// Package cli builds the catalogd command tree on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/migrate"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/version"
)

// LoadFunc resolves configuration for a command and builds its logger.
type LoadFunc func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: server startup logic.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: migration logic. direction is up, down or status.
	RunMigrations func(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, steps int) error

	// Optional: dependency health checks.
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: validation on top of config.Config.Validate.
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional commands, given the shared config loader.
	CustomCommands func(load LoadFunc) []*cobra.Command

	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

// NewServiceCommand creates the CLI with serve, migrate, version,
// healthcheck and config subcommands. serve also runs when no subcommand
// is given.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(opts.Out)

	var cfgPath string
	var secretFilePath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file (sets <PREFIX>_SECRETS_FILE)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	newLoader := func(flags *pflag.FlagSet) (*config.ViperLoader, error) {
		if err := applySecretFileFlag(opts.EnvPrefix, secretFilePath); err != nil {
			return nil, err
		}
		return config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(flags), nil
	}
	loadConfig := func(flags *pflag.FlagSet) (*config.Config, error) {
		loader, err := newLoader(flags)
		if err != nil {
			return nil, err
		}
		cfg, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if opts.ValidateConfig != nil {
			if err := opts.ValidateConfig(cfg); err != nil {
				return nil, fmt.Errorf("custom validation failed: %w", err)
			}
		}
		return cfg, nil
	}
	load := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		cfg, err := loadConfig(flags)
		if err != nil {
			return nil, nil, err
		}
		log, err := NewLogger(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current(opts.Name).String())
		},
	})

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the public API and management servers",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				return opts.RunServer(cmd.Context(), cfg, log)
			},
		}
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.RunMigrations != nil {
		rootCmd.AddCommand(newMigrateCommand(load, opts.RunMigrations))
	}

	if opts.CheckDependencies != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to dependencies",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				return opts.CheckDependencies(cmd.Context(), cfg, log)
			},
		})
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd.Flags()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newLoader(cmd.Flags())
			if err != nil {
				return err
			}
			if _, err := loader.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			formatted, err := formatSettings(loader.Settings(showSecrets))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)

	if opts.CustomCommands != nil {
		for _, customCmd := range opts.CustomCommands(load) {
			rootCmd.AddCommand(customCmd)
		}
	}

	return rootCmd
}

func newMigrateCommand(load LoadFunc, run func(context.Context, *config.Config, logger.Logger, string, int) error) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "SQL order store migrations",
	}
	sub := func(use, short string, maxArgs int) *cobra.Command {
		direction := strings.Fields(use)[0]
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.MaximumNArgs(maxArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, steps, err := migrate.ParseArgs(append([]string{direction}, args...))
				if err != nil {
					return err
				}
				cfg, log, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				return run(cmd.Context(), cfg, log, direction, steps)
			},
		}
	}
	migrateCmd.AddCommand(
		sub("up", "Apply pending migrations", 0),
		sub("down [steps]", "Revert the last migrations (default 1)", 1),
		sub("status", "Show applied and pending migrations", 0),
	)
	return migrateCmd
}

// NewLogger builds the zap logger described by cfg.Observability.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", secretFilePath)
	}
	return os.Setenv(strings.ToUpper(strings.TrimSpace(envPrefix))+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

func formatSettings(settings map[string]interface{}) (string, error) {
	if len(settings) == 0 {
		return "{}\n", nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// Execute runs the command tree until SIGINT or SIGTERM and exits non-zero
// on error.
func Execute(ctx context.Context, cmd *cobra.Command) {
	if err := cmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
