package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sensiblebit/certwatch/internal"
	"github.com/sensiblebit/certwatch/internal/certstore"
	"github.com/sensiblebit/certwatch/internal/monitor"
	"github.com/spf13/cobra"
)

var runChainDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the host event loop on stdin/stdout",
	Long: `Read host events as JSON lines from stdin and write indicator updates and
command responses as JSON lines to stdout. Certificate chains are read from
the chain directory, one file per request ID.

Events:
  {"event":"completed","tabId":1,"requestId":"r1","timeStamp":1767225600000}
  {"event":"removed","tabId":1}
  {"event":"message","id":"m1","request":{"type":"getCerts","tabId":1}}`,
	Args: cobra.NoArgs,
	RunE: runHostLoop,
}

func init() {
	runCmd.Flags().StringVar(&runChainDir, "chain-dir", "", "Directory with one chain file per request ID (default from config)")
	registerCompletion(runCmd, completionInput{flagName: "chain-dir", completeFunc: directoryCompletion})
}

func runHostLoop(cmd *cobra.Command, _ []string) error {
	chainDir := cfg.ChainDir
	if cmd.Flags().Changed("chain-dir") {
		chainDir = runChainDir
	}
	if chainDir == "" {
		return fmt.Errorf("no chain directory configured (use --chain-dir or chainDir in the config)")
	}

	store, err := certstore.OpenSQLiteNameStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	hidden := certstore.NewHiddenNames(store)
	// Load logs its own failure; run on with the empty set.
	_ = hidden.Load(cmd.Context())

	anchors, passwords, err := loadAnchors()
	if err != nil {
		return err
	}

	tabs := certstore.NewTabStore()
	out := internal.NewHostWriter(os.Stdout)
	mon := monitor.New(monitor.Config{
		Tabs:   tabs,
		Hidden: hidden,
		Inspector: &internal.ChainDirInspector{
			Dir:       chainDir,
			Passwords: passwords,
			Anchors:   anchors,
		},
		Indicator: out,
		Policy:    cfg.Policy(),
	})

	slog.Info("serving host events", "chain_dir", chainDir, "anchors", anchors.Len(), "hidden", hidden.Len())
	err = internal.RunHost(cmd.Context(), os.Stdin, out, mon)
	// RunHost has waited for every observation; the store is quiescent.
	tabs.DumpDebug()
	return err
}
