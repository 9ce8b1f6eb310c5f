// Package check validates that the local environment and Azure access are
// ready for cloning: credentials resolve, the subscription answers, and
// the target resource group's resources are listable. Every check is
// read-only.
package check

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/v2"

	"github.com/jbweber/anvil/internal/azure"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the outcome of one named check.
type Result struct {
	Name    string
	Status  Status
	Message string
}

// Report collects every check result for one run.
type Report struct {
	Results []Result
	// OK is true when no check failed. Warnings do not clear it.
	OK bool
}

// environment is the read-only client surface the checks exercise.
type environment interface {
	Token(ctx context.Context) (azcore.AccessToken, error)
	ListResourceGroups(ctx context.Context) ([]*armresources.ResourceGroup, error)
	GetResourceGroup(ctx context.Context, name string) (armresources.ResourceGroup, error)
	ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error)
	ListSnapshots(ctx context.Context, resourceGroup string) ([]*armcompute.Snapshot, error)
	ListVNets(ctx context.Context, resourceGroup string) ([]*armnetwork.VirtualNetwork, error)
}

// Run executes the environment checks against a connected client. When
// resourceGroup is empty only the subscription-level checks run.
func Run(ctx context.Context, client *azure.Client, resourceGroup string) *Report {
	return run(ctx, client, resourceGroup)
}

// run is Run with an injected environment, for testing.
func run(ctx context.Context, env environment, resourceGroup string) *Report {
	r := &Report{OK: true}

	if !r.add(checkCredentials(ctx, env)) {
		// Nothing else can succeed without a token.
		return r
	}
	r.add(checkSubscription(ctx, env))

	if resourceGroup == "" {
		r.add(Result{
			Name:    "resource-group",
			Status:  StatusWarn,
			Message: "no resource group given; pass -g to check one",
		})
		return r
	}

	if !r.add(checkResourceGroup(ctx, env, resourceGroup)) {
		return r
	}
	r.add(checkListing(resourceGroup, "virtual-machines", func() (int, error) {
		vms, err := env.ListVMs(ctx, resourceGroup)
		return len(vms), err
	}))
	r.add(checkListing(resourceGroup, "snapshots", func() (int, error) {
		snaps, err := env.ListSnapshots(ctx, resourceGroup)
		return len(snaps), err
	}))
	r.add(checkListing(resourceGroup, "virtual-networks", func() (int, error) {
		vnets, err := env.ListVNets(ctx, resourceGroup)
		return len(vnets), err
	}))

	return r
}

// add records a result and reports whether the check passed or warned.
func (r *Report) add(res Result) bool {
	r.Results = append(r.Results, res)
	if res.Status == StatusFail {
		r.OK = false
		return false
	}
	return true
}

func checkCredentials(ctx context.Context, env environment) Result {
	if _, err := env.Token(ctx); err != nil {
		return Result{
			Name:    "credentials",
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot obtain a management token: %v", err),
		}
	}
	return Result{
		Name:    "credentials",
		Status:  StatusPass,
		Message: "management token acquired",
	}
}

func checkSubscription(ctx context.Context, env environment) Result {
	groups, err := env.ListResourceGroups(ctx)
	if err != nil {
		return Result{
			Name:    "subscription",
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot list resource groups: %v", err),
		}
	}
	if len(groups) == 0 {
		return Result{
			Name:    "subscription",
			Status:  StatusWarn,
			Message: "subscription reachable but contains no resource groups",
		}
	}
	return Result{
		Name:    "subscription",
		Status:  StatusPass,
		Message: fmt.Sprintf("subscription reachable, %d resource group(s)", len(groups)),
	}
}

func checkResourceGroup(ctx context.Context, env environment, name string) Result {
	if _, err := env.GetResourceGroup(ctx, name); err != nil {
		status := StatusFail
		msg := fmt.Sprintf("cannot read resource group %q: %v", name, err)
		if azure.IsNotFound(err) {
			msg = fmt.Sprintf("resource group %q not found", name)
		}
		return Result{Name: "resource-group", Status: status, Message: msg}
	}
	return Result{
		Name:    "resource-group",
		Status:  StatusPass,
		Message: fmt.Sprintf("resource group %q readable", name),
	}
}

func checkListing(resourceGroup, name string, list func() (int, error)) Result {
	n, err := list()
	if err != nil {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot list %s in %q: %v", name, resourceGroup, err),
		}
	}
	return Result{
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("%d found", n),
	}
}
