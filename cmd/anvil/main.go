package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Anvil - Azure VM cloning tool",
	Long: `Anvil clones an existing Azure VM into a new one without touching the
source: snapshot the OS disk, rebuild the disk, network interface, security
group, and boot diagnostics, then create the VM. A failed run removes
everything it created.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(checkCmd)
}
