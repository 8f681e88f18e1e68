// File: cmd/escrowadmin/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/escrow-admin/internal/config"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "escrowadmin",
	Short:         "Escrow admin panel",
	Long:          `Operator console for escrow deals: browse and create deals, drive the on-chain lifecycle from a local wallet and trigger backend-signed release and refund.`,
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig loads the configuration named by --config and applies the
// --log-level override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = viper.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads configuration and wires the application.
func newApp(cmd *cobra.Command) (*Application, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return NewApplication(cfg)
}

// serveCmd runs the panel API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

		if err := app.Serve(); err != nil {
			app.Stop()
			return err
		}

		<-signalChan
		fmt.Println("\nReceived shutdown signal, stopping...")
		app.Stop()
		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Escrow Admin %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		summary := cfg.Summary()
		fmt.Fprintln(out, "Configuration is valid!")
		fmt.Fprintf(out, "Environment: %s\n", cfg.App.Environment)
		fmt.Fprintf(out, "API: %v\n", summary["api_url"])
		fmt.Fprintf(out, "Chain id: %d\n", cfg.Chain.ChainID)
		fmt.Fprintf(out, "Escrow: %s\n", orMissing(cfg.Chain.EscrowAddress))
		fmt.Fprintf(out, "Token: %s\n", orMissing(cfg.Chain.TokenAddress))
		fmt.Fprintf(out, "Wallet: %t\n", cfg.Wallet.Present())
		fmt.Fprintf(out, "Journal: %s\n", cfg.Storage.Type)
		return nil
	},
}

func orMissing(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(newDealsCmd())
	rootCmd.AddCommand(newWalletCmd())
	configCmd.AddCommand(validateConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
