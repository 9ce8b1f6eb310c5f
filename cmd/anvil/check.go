package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/anvil/internal/azure"
	"github.com/jbweber/anvil/internal/check"
)

var (
	checkResourceGroup string
	checkSubscription  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the environment is ready for cloning",
	Long: `Check credentials, subscription access, and resource visibility.

Runs a read-only series of probes: acquire a management token, list the
subscription's resource groups, and verify that VMs, snapshots, and
virtual networks in the given resource group are listable. Nothing is
created or modified.

Example:
  anvil check -g production-rg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subscriptionID, err := azure.ResolveSubscriptionID(checkSubscription)
		if err != nil {
			return err
		}

		ctx := context.Background()
		fmt.Printf("Checking subscription %s...\n\n", subscriptionID)
		client, err := azure.Connect(ctx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		report := check.Run(ctx, client, checkResourceGroup)
		check.Render(os.Stdout, report)

		if !report.OK {
			cmd.SilenceUsage = true
			return fmt.Errorf("environment checks failed")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkResourceGroup, "resource-group", "g", "", "resource group to check")
	checkCmd.Flags().StringVar(&checkSubscription, "subscription", "", "subscription ID (defaults to $"+azure.SubscriptionEnvVar+")")
}
