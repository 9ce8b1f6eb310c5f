// Package console implements the line-oriented prompts used by the clone
// workflow: free-text input with defaults, yes/no confirmation, and
// numbered selection. Reader and writer are injected so tests can drive
// prompts from strings.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Console prompts on w and reads answers line by line from r.
type Console struct {
	r *bufio.Reader
	w io.Writer
}

// New returns a Console reading from r and writing prompts to w.
func New(r io.Reader, w io.Writer) *Console {
	return &Console{r: bufio.NewReader(r), w: w}
}

// Input prompts for a line of text. An empty answer yields def. When
// required is set and both the answer and def are empty, the prompt
// repeats until a non-empty answer arrives.
func (c *Console) Input(label, def string, required bool) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(c.w, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(c.w, "%s: ", label)
		}

		answer, err := c.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = def
		}
		if answer == "" && required {
			fmt.Fprintln(c.w, "A value is required.")
			continue
		}
		return answer, nil
	}
}

// Confirm prompts for a yes/no answer. An empty answer yields def.
// Accepts y/yes/n/no in any case; anything else repeats the prompt.
func (c *Console) Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		fmt.Fprintf(c.w, "%s [%s]: ", label, hint)

		answer, err := c.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(c.w, "Please answer y or n.")
		}
	}
}

// Select prompts for a choice among numbered options and returns the
// chosen index. An empty answer yields def. Out-of-range or non-numeric
// answers repeat the prompt.
func (c *Console) Select(label string, options []string, def int) (int, error) {
	if def < 0 || def >= len(options) {
		return 0, fmt.Errorf("default index %d out of range for %d options", def, len(options))
	}

	fmt.Fprintln(c.w, label)
	for i, opt := range options {
		fmt.Fprintf(c.w, "  %d) %s\n", i+1, opt)
	}

	for {
		fmt.Fprintf(c.w, "Choice [%d]: ", def+1)

		answer, err := c.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}

		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintf(c.w, "Please enter a number between 1 and %d.\n", len(options))
			continue
		}
		return n - 1, nil
	}
}

// readLine reads one trimmed line. EOF with a partial line still returns
// the line; bare EOF is an error so callers never loop forever on a
// closed input.
func (c *Console) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", fmt.Errorf("input closed")
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
