package check

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Render writes the report in a doctor-style listing, one line per check,
// followed by an overall verdict.
func Render(w io.Writer, r *Report) {
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s  %-18s %s\n", statusLabel(res.Status), res.Name, res.Message)
	}

	fmt.Fprintln(w)
	if r.OK {
		fmt.Fprintf(w, "%s environment is ready\n", passLabel("✓"))
	} else {
		fmt.Fprintf(w, "%s environment is not ready\n", failLabel("✗"))
	}
}

func statusLabel(s Status) string {
	switch s {
	case StatusPass:
		return passLabel("PASS")
	case StatusWarn:
		return warnLabel("WARN")
	default:
		return failLabel("FAIL")
	}
}
