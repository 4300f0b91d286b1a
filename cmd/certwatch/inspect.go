package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal"
	"github.com/sensiblebit/certwatch/internal/certstore"
	"github.com/spf13/cobra"
)

var (
	inspectFormat string
	inspectAt     string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <chain-file>",
	Short: "Classify the certificates of a chain file",
	Long:  "Classify every certificate of a chain file (PEM, DER or PKCS#7) and print the detail view and the resulting indicator.",
	Example: `  certwatch inspect chain.pem
  certwatch inspect chain.p7b --at 2026-12-01T00:00:00Z
  certwatch inspect chain.pem --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "", "Output format: table or json (default: table on a terminal, json otherwise)")
	inspectCmd.Flags().StringVar(&inspectAt, "at", "", "Classify as of this RFC 3339 time instead of now")
	registerCompletion(inspectCmd, completionInput{flagName: "format", completeFunc: fixedCompletion(internal.FormatTable, internal.FormatJSON)})
}

func runInspect(cmd *cobra.Command, args []string) error {
	now := time.Now()
	if inspectAt != "" {
		t, err := time.Parse(time.RFC3339, inspectAt)
		if err != nil {
			return fmt.Errorf("parsing --at: %w", err)
		}
		now = t
	}

	format := inspectFormat
	if format == "" {
		format = internal.FormatJSON
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			format = internal.FormatTable
		}
	}

	anchors, passwords, err := loadAnchors()
	if err != nil {
		return err
	}
	hidden, store, err := openHiddenNames(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	set, err := internal.InspectChainFile(args[0], passwords, anchors, now, cfg.Policy())
	if err != nil {
		return err
	}

	output, err := internal.FormatDetail(set, hidden, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)

	if format == internal.FormatTable {
		summary := certstore.Summarize(set, hidden)
		state := certwatch.Aggregate(set, hidden, cfg.Policy())
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d certificate(s)%s\nIndicator: %s %s\n", summary.Total, internal.SummaryAnnotation(summary), state.Icon, state.Badge)
	}
	return nil
}
