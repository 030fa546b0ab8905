// Package cmd wires the CLI surface of the scraper.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/internal/config"
	"github.com/manjain15/propwealth-scraper/internal/observability"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "propwealth-scraper",
	Short:   "Scrapes suburb market statistics and property records from upstream providers.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting propwealth-scraper", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command with the context passed from main.go so
// signals propagate into in-flight scrapes.
func Execute(ctx context.Context) error {
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPropertyCmd())
	rootCmd.AddCommand(newCompsCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			if ctx.Err() == nil {
				logger.Error("Command execution failed", zap.Error(err))
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
}

// initializeConfig layers defaults, an optional yaml file, a local .env and
// PROPWEALTH_* environment variables.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Credentials typically live in a gitignored .env next to the binary.
	// A missing file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix("PROPWEALTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind the secrets so they resolve without a config file.
	_ = viper.BindEnv("postgres.url", "PROPWEALTH_POSTGRES_URL")
	_ = viper.BindEnv("providers.dsrdata.email", "PROPWEALTH_DSRDATA_EMAIL")
	_ = viper.BindEnv("providers.dsrdata.password", "PROPWEALTH_DSRDATA_PASSWORD")
	_ = viper.BindEnv("providers.pricefinder.email", "PROPWEALTH_PRICEFINDER_EMAIL")
	_ = viper.BindEnv("providers.pricefinder.password", "PROPWEALTH_PRICEFINDER_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
