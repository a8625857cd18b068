package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foxzi/postq/internal/app"
	"github.com/foxzi/postq/internal/config"
	"github.com/foxzi/postq/internal/postfix"
	"github.com/foxzi/postq/internal/queue"
	"github.com/foxzi/postq/internal/source"
)

var (
	cfgFile     string
	listingFile string
	version     = "dev"
	commit      = "unknown"
	buildTime   = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "postq",
	Short: "Postq - Postfix queue administration",
	Long:  `Postq inspects and manages the Postfix mail queue: list and select queued messages, load their headers, and hold, release, requeue or delete them in bulk.`,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("postq version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&listingFile, "file", "f", "", "read the queue listing from a captured file instead of postqueue")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}

// loadConfig loads the configuration, falling back to defaults when no
// file is given. The --file flag overrides the configured listing
// source.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if listingFile != "" {
		cfg.Store.ListingFile = listingFile
	}
	return cfg, nil
}

// openStore builds a store over the configured listing source. The
// store auto-loads on the first query, so commands do not need an
// explicit load step.
func openStore(cfg *config.Config, logger *slog.Logger) *queue.Store {
	var src source.Listing
	if cfg.Store.ListingFile != "" {
		src = source.NewFile(cfg.Store.ListingFile)
	} else {
		src = source.NewCommand(cfg.Postfix.Postqueue, postfix.ExecRunner{})
	}
	return queue.NewStore(src, queue.WithAutoLoad(), queue.WithLogger(logger))
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Postqueue: %s\n", cfg.Postfix.Postqueue)
	fmt.Printf("  Postcat:   %s\n", cfg.Postfix.Postcat)
	fmt.Printf("  Postsuper: %s\n", cfg.Postfix.Postsuper)
	fmt.Printf("  Watch:     %s every %s\n", cfg.Watch.ListenAddr, cfg.Watch.Interval)

	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the watch daemon",
	Long:  `Reload the queue snapshot on an interval and serve queue metrics and a read-only JSON view over HTTP.`,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create watch daemon: %w", err)
	}

	return application.Run(cmd.Context())
}
