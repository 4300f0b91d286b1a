package internal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
)

// Output formats accepted by FormatDetail.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// DetailRow is one line of the detail view.
type DetailRow struct {
	Status      string `json:"status"`
	CommonName  string `json:"common_name"`
	Note        string `json:"note"`
	Subject     string `json:"subject"`
	ValidTo     string `json:"valid_to"`
	Fingerprint string `json:"sha256_fingerprint"`
	Hidden      bool   `json:"hidden"`
}

// DetailRows builds the detail view rows in display order.
func DetailRows(set certwatch.TabCertificateSet, hidden certwatch.HiddenSet) []DetailRow {
	records := certwatch.SortedRecords(set)
	rows := make([]DetailRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, DetailRow{
			Status:      rec.Status(),
			CommonName:  rec.CommonName,
			Note:        rec.Label(),
			Subject:     rec.Subject,
			ValidTo:     rec.ValidTo.UTC().Format("2006-01-02 15:04 MST"),
			Fingerprint: rec.Fingerprint,
			Hidden:      hidden != nil && hidden.Contains(rec.CommonName),
		})
	}
	return rows
}

// FormatDetail renders the records of a tab as a markdown table or JSON.
func FormatDetail(set certwatch.TabCertificateSet, hidden certwatch.HiddenSet, format string) (string, error) {
	rows := DetailRows(set, hidden)
	switch format {
	case FormatTable:
		return formatDetailTable(rows)
	case FormatJSON:
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table or json)", format)
	}
}

func formatDetailTable(rows []DetailRow) (string, error) {
	if len(rows) == 0 {
		return "No certificates to display\n", nil
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"Status", "Common Name", "Note", "Valid Until", "SHA-256"})

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cn := certstore.DisplayName(r.CommonName)
		if r.Hidden {
			cn += " (hidden)"
		}
		data = append(data, []string{r.Status, cn, r.Note, r.ValidTo, r.Fingerprint})
	}
	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("building table: %w", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return buf.String(), nil
}

// SummaryAnnotation returns a parenthetical annotation like
// " (1 expired, 2 almost expired)" for the non-zero counts of a summary, or
// an empty string if there is nothing to report.
func SummaryAnnotation(s certstore.TabSummary) string {
	var parts []string
	if s.Early > 0 {
		parts = append(parts, fmt.Sprintf("%d early", s.Early))
	}
	if s.Expired > 0 {
		parts = append(parts, fmt.Sprintf("%d expired", s.Expired))
	}
	if s.AlmostExpired > 0 {
		parts = append(parts, fmt.Sprintf("%d almost expired", s.AlmostExpired))
	}
	if s.Hidden > 0 {
		parts = append(parts, fmt.Sprintf("%d hidden", s.Hidden))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
