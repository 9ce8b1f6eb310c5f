package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/anvil/internal/clone"
)

// TableFormatter formats a clone summary as a human-readable table.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatResult formats a completed clone run as a two-column table, one
// row per created or reused resource.
func (f *TableFormatter) FormatResult(r *clone.Result) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "RESOURCE\tVALUE")
	}

	rows := [][2]string{
		{"vm", fmt.Sprintf("%s (%s, %s)", r.VMName, r.Size, r.OSType)},
		{"resource-group", r.ResourceGroup},
		{"source-vm", r.SourceVM},
		{"os-disk", fmt.Sprintf("%s (%s)", r.DiskName, r.DiskSKU)},
		{"snapshot", snapshotCell(r)},
		{"nic", r.NICName},
		{"nsg", nsgCell(r)},
		{"boot-diagnostics", diagCell(r)},
		{"run-id", r.RunID},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}

	_ = w.Flush()
	return buf.String(), nil
}

func snapshotCell(r *clone.Result) string {
	if r.SnapshotDeleted {
		return r.SnapshotName + " (deleted)"
	}
	return r.SnapshotName + " (kept)"
}

func nsgCell(r *clone.Result) string {
	if r.NSGName == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", r.NSGName, r.NSGMode)
}

func diagCell(r *clone.Result) string {
	if r.DiagAccount == "" {
		return "-"
	}
	if r.DiagCreated {
		return r.DiagAccount + " (created)"
	}
	return r.DiagAccount + " (reused)"
}
