package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jbweber/anvil/internal/azure"
	"github.com/jbweber/anvil/internal/clone"
	"github.com/jbweber/anvil/internal/console"
	"github.com/jbweber/anvil/internal/output"
)

var (
	cloneResourceGroup string
	cloneTargetName    string
	cloneTargetSize    string
	cloneNSGPolicy     string
	cloneAssumeYes     bool
	cloneSubscription  string
	cloneOutputFormat  string
)

var cloneCmd = &cobra.Command{
	Use:   "clone <source-vm>",
	Short: "Clone an Azure VM from a snapshot of its OS disk",
	Long: `Clone an existing Azure VM into a new VM in the same resource group.

The source VM is never modified or stopped. The workflow snapshots the
source OS disk, creates a managed disk from the snapshot, provisions a
network interface and security group on the source subnet, resolves a
boot-diagnostics storage account, and creates the new VM. If any step
fails, everything created by the run is deleted again.

Target name, size, and NSG policy are prompted for interactively unless
preset with flags.

Example:
  anvil clone web01 -g production-rg --name web01-dev --nsg-policy hardened`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceName := args[0]

		if err := output.ValidateFormat(cloneOutputFormat); err != nil {
			return err
		}

		var policy *clone.NSGPolicy
		if cloneNSGPolicy != "" {
			p, err := clone.ParseNSGPolicy(cloneNSGPolicy)
			if err != nil {
				return err
			}
			policy = &p
		}

		subscriptionID, err := azure.ResolveSubscriptionID(cloneSubscription)
		if err != nil {
			return err
		}

		ctx := context.Background()
		fmt.Printf("Connecting to subscription %s...\n", subscriptionID)
		client, err := azure.Connect(ctx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		cons := console.New(os.Stdin, os.Stdout)

		result, err := clone.Execute(ctx, client, cons, clone.Options{
			ResourceGroup: cloneResourceGroup,
			SourceName:    sourceName,
			TargetName:    cloneTargetName,
			TargetSize:    cloneTargetSize,
			NSGPolicy:     policy,
			AssumeYes:     cloneAssumeYes,
		})
		if err != nil {
			return fmt.Errorf("failed to clone VM: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(cloneOutputFormat)})
		if err != nil {
			return err
		}
		summary, err := formatter.FormatResult(result)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(summary)
		fmt.Printf("\n%s VM %s cloned successfully!\n", color.GreenString("✓"), result.VMName)
		return nil
	},
}

func init() {
	cloneCmd.Flags().StringVarP(&cloneResourceGroup, "resource-group", "g", "", "resource group of the source VM (required)")
	cloneCmd.Flags().StringVar(&cloneTargetName, "name", "", "name for the new VM (prompted if omitted)")
	cloneCmd.Flags().StringVar(&cloneTargetSize, "size", "", "size for the new VM (defaults to the source size)")
	cloneCmd.Flags().StringVar(&cloneNSGPolicy, "nsg-policy", "", "NSG policy: reuse, hardened, or copy (prompted if omitted)")
	cloneCmd.Flags().BoolVarP(&cloneAssumeYes, "yes", "y", false, "answer every confirmation with its default")
	cloneCmd.Flags().StringVar(&cloneSubscription, "subscription", "", "subscription ID (defaults to $"+azure.SubscriptionEnvVar+")")
	cloneCmd.Flags().StringVarP(&cloneOutputFormat, "output", "o", "table", "summary format: table, yaml, or json")
	_ = cloneCmd.MarkFlagRequired("resource-group")
}
