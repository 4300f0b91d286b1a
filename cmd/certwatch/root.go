package main

import (
	"fmt"

	"github.com/sensiblebit/certwatch/internal"
	"github.com/spf13/cobra"
)

var (
	logLevel          string
	configPath        string
	dbPath            string
	almostExpiredDays int
	trustStore        string
	anchorFiles       []string
	passwordFile      string

	// cfg is the effective configuration: the config file with flag
	// overrides applied. Set before any subcommand runs.
	cfg internal.Config
)

var rootCmd = &cobra.Command{
	Use:   "certwatch",
	Short: "Certificate expiry indicator for browser tabs",
	Long: `Watch the TLS certificate chains observed on browser tabs and reduce them to
one indicator per tab: green when healthy, orange with the days left when a
certificate expires soon, red when a certificate is expired or not yet valid.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&logLevel, "log-level", "l", "", "Log level: debug, info, warn, error (default from config, else info)")
	flags.StringVarP(&configPath, "config", "c", "", "Path to certwatch YAML config")
	flags.StringVarP(&dbPath, "db", "d", "", "SQLite database for hidden common names (default: certwatch/certwatch.db in the user config dir; :memory: to not persist)")
	flags.IntVar(&almostExpiredDays, "almost-expired-days", 0, "Warn this many days before expiry (default 28)")
	flags.StringVar(&trustStore, "trust-store", "", "Built-in roots: mozilla, system or none (default mozilla)")
	flags.StringSliceVar(&anchorFiles, "anchor", nil, "Additional anchor file (PEM, DER, P7B, JKS or PKCS#12); repeatable")
	flags.StringVar(&passwordFile, "password-file", "", "File containing anchor store passwords, one per line")

	registerCompletion(rootCmd, completionInput{flagName: "log-level", completeFunc: fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{flagName: "config", completeFunc: fileCompletion})
	registerCompletion(rootCmd, completionInput{flagName: "db", completeFunc: fileCompletion})
	registerCompletion(rootCmd, completionInput{flagName: "trust-store", completeFunc: fixedCompletion(internal.TrustStoreMozilla, internal.TrustStoreSystem, internal.TrustStoreNone)})
	registerCompletion(rootCmd, completionInput{flagName: "anchor", completeFunc: fileCompletion})
	registerCompletion(rootCmd, completionInput{flagName: "password-file", completeFunc: fileCompletion})

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(hiddenCmd)
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if flags.Changed("db") {
		loaded.Database = dbPath
	}
	if flags.Changed("almost-expired-days") {
		loaded.AlmostExpiredDays = almostExpiredDays
	}
	if flags.Changed("trust-store") {
		loaded.TrustStore = trustStore
	}
	loaded.Anchors = append(loaded.Anchors, anchorFiles...)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	internal.SetupLogger(loaded.LogLevel)
	cfg = loaded
	return nil
}

// loadAnchors builds the anchor set from the configured trust store and
// anchor files.
func loadAnchors() (*internal.AnchorSet, []string, error) {
	passwords, err := internal.ProcessPasswords(cfg.Passwords, passwordFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading passwords: %w", err)
	}
	anchors, err := internal.NewAnchorSet(cfg.TrustStore)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range cfg.Anchors {
		if err := anchors.AddFile(path, passwords); err != nil {
			return nil, nil, err
		}
	}
	return anchors, passwords, nil
}
