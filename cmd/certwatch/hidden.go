package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sensiblebit/certwatch/internal/certstore"
	"github.com/spf13/cobra"
)

var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "Manage hidden common names",
	Long:  "List, add or remove the common names whose certificates are ignored when computing tab indicators.",
}

var hiddenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hidden common names",
	Args:  cobra.NoArgs,
	RunE:  runHiddenList,
}

var hiddenAddCmd = &cobra.Command{
	Use:     "add <common-name>...",
	Short:   "Hide common names",
	Example: `  certwatch hidden add legacy.intranet.example.com --db ~/.certwatch.db`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runHiddenAdd,
}

var hiddenRemoveCmd = &cobra.Command{
	Use:               "remove <common-name>...",
	Aliases:           []string{"rm"},
	Short:             "Unhide common names",
	Args:              cobra.MinimumNArgs(1),
	RunE:              runHiddenRemove,
	ValidArgsFunction: hiddenNameCompletion,
}

func init() {
	hiddenCmd.AddCommand(hiddenListCmd)
	hiddenCmd.AddCommand(hiddenAddCmd)
	hiddenCmd.AddCommand(hiddenRemoveCmd)
}

// openHiddenNames opens the configured database and loads the hidden set.
// The caller must close the returned store.
func openHiddenNames(ctx context.Context) (*certstore.HiddenNames, *certstore.SQLiteNameStore, error) {
	store, err := certstore.OpenSQLiteNameStore(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	hidden := certstore.NewHiddenNames(store)
	if err := hidden.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return hidden, store, nil
}

func runHiddenList(cmd *cobra.Command, _ []string) error {
	hidden, store, err := openHiddenNames(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range hidden.Names() {
		fmt.Fprintln(cmd.OutOrStdout(), certstore.DisplayName(name))
	}
	return nil
}

func runHiddenAdd(cmd *cobra.Command, args []string) error {
	hidden, store, err := openHiddenNames(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range args {
		added, err := hidden.Add(cmd.Context(), name)
		if err != nil {
			return err
		}
		if !added {
			slog.Info("common name already hidden", "cn", name)
		}
	}
	return nil
}

func runHiddenRemove(cmd *cobra.Command, args []string) error {
	hidden, store, err := openHiddenNames(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range args {
		removed, err := hidden.Remove(cmd.Context(), name)
		if err != nil {
			return err
		}
		if !removed {
			slog.Warn("common name was not hidden", "cn", name)
		}
	}
	return nil
}
