// Package azure wraps the ARM SDK clients used by the clone workflow behind
// a single connection object with classified errors.
package azure

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// managementScope is the token scope probed at connect time to verify an
// authenticated session exists before anything else runs.
const managementScope = "https://management.azure.com/.default"

// SubscriptionEnvVar is the environment fallback for the subscription ID
// when the --subscription flag is not set.
const SubscriptionEnvVar = "AZURE_SUBSCRIPTION_ID"

// Client bundles the ARM management clients for one subscription.
//
// All methods classify errors via Classify, so callers can branch on
// Kind (NotFound, Conflict, PermissionDenied, ...) with errors.As.
type Client struct {
	SubscriptionID string

	cred *azidentity.DefaultAzureCredential

	vms       *armcompute.VirtualMachinesClient
	disks     *armcompute.DisksClient
	snapshots *armcompute.SnapshotsClient
	nics      *armnetwork.InterfacesClient
	nsgs      *armnetwork.SecurityGroupsClient
	subnets   *armnetwork.SubnetsClient
	vnets     *armnetwork.VirtualNetworksClient
	groups    *armresources.ResourceGroupsClient
	accounts  *armstorage.AccountsClient
}

// ResolveSubscriptionID returns the explicit value if non-empty, otherwise
// the AZURE_SUBSCRIPTION_ID environment variable.
func ResolveSubscriptionID(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(SubscriptionEnvVar); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no subscription ID: pass --subscription or set %s", SubscriptionEnvVar)
}

// Connect builds a credential via the default Azure credential chain,
// verifies a management-scope token can be acquired, and constructs the
// ARM clients for the subscription.
//
// A failed token probe is reported as Unauthenticated; no management call
// has been made at that point.
func Connect(ctx context.Context, subscriptionID string) (*Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, NewError(KindUnauthenticated, fmt.Errorf("building credential: %w", err))
	}

	if _, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}}); err != nil {
		return nil, NewError(KindUnauthenticated, fmt.Errorf("no active session (run `az login` or configure a service principal): %w", err))
	}

	c := &Client{SubscriptionID: subscriptionID, cred: cred}

	if c.vms, err = armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating virtual machines client: %w", err)
	}
	if c.disks, err = armcompute.NewDisksClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating disks client: %w", err)
	}
	if c.snapshots, err = armcompute.NewSnapshotsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating snapshots client: %w", err)
	}
	if c.nics, err = armnetwork.NewInterfacesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating network interfaces client: %w", err)
	}
	if c.nsgs, err = armnetwork.NewSecurityGroupsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating security groups client: %w", err)
	}
	if c.subnets, err = armnetwork.NewSubnetsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating subnets client: %w", err)
	}
	if c.vnets, err = armnetwork.NewVirtualNetworksClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating virtual networks client: %w", err)
	}
	if c.groups, err = armresources.NewResourceGroupsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating resource groups client: %w", err)
	}
	if c.accounts, err = armstorage.NewAccountsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("creating storage accounts client: %w", err)
	}

	return c, nil
}

// Token returns a fresh management-scope token. Used by the environment
// check to re-verify the session.
func (c *Client) Token(ctx context.Context) (azcore.AccessToken, error) {
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}})
	if err != nil {
		return azcore.AccessToken{}, NewError(KindUnauthenticated, err)
	}
	return tok, nil
}

// GetResourceGroup fetches a resource group, primarily as a readability
// probe for cross-resource-group network scenarios.
func (c *Client) GetResourceGroup(ctx context.Context, name string) (armresources.ResourceGroup, error) {
	resp, err := c.groups.Get(ctx, name, nil)
	if err != nil {
		return armresources.ResourceGroup{}, Classify(err)
	}
	return resp.ResourceGroup, nil
}

// ListResourceGroups lists every resource group visible in the subscription.
func (c *Client) ListResourceGroups(ctx context.Context) ([]*armresources.ResourceGroup, error) {
	var out []*armresources.ResourceGroup
	pager := c.groups.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, page.Value...)
	}
	return out, nil
}

// GetVM fetches a virtual machine by resource group and name.
func (c *Client) GetVM(ctx context.Context, resourceGroup, name string) (armcompute.VirtualMachine, error) {
	resp, err := c.vms.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, Classify(err)
	}
	return resp.VirtualMachine, nil
}

// ListVMs lists the virtual machines in a resource group.
func (c *Client) ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error) {
	var out []*armcompute.VirtualMachine
	pager := c.vms.NewListPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, page.Value...)
	}
	return out, nil
}

// CreateVM creates a virtual machine and blocks until provisioning finishes.
func (c *Client) CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error) {
	poller, err := c.vms.BeginCreateOrUpdate(ctx, resourceGroup, name, vm, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, Classify(err)
	}
	return resp.VirtualMachine, nil
}

// DeleteVM deletes a virtual machine and blocks until the deletion finishes.
func (c *Client) DeleteVM(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.vms.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return Classify(err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return Classify(err)
	}
	return nil
}

// GetDisk fetches a managed disk by resource group and name.
func (c *Client) GetDisk(ctx context.Context, resourceGroup, name string) (armcompute.Disk, error) {
	resp, err := c.disks.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return armcompute.Disk{}, Classify(err)
	}
	return resp.Disk, nil
}

// CreateDisk creates a managed disk and blocks until it is provisioned.
func (c *Client) CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (armcompute.Disk, error) {
	poller, err := c.disks.BeginCreateOrUpdate(ctx, resourceGroup, name, disk, nil)
	if err != nil {
		return armcompute.Disk{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armcompute.Disk{}, Classify(err)
	}
	return resp.Disk, nil
}

// DeleteDisk deletes a managed disk.
func (c *Client) DeleteDisk(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.disks.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return Classify(err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return Classify(err)
	}
	return nil
}

// CreateSnapshot creates a disk snapshot and blocks until it is provisioned.
func (c *Client) CreateSnapshot(ctx context.Context, resourceGroup, name string, snap armcompute.Snapshot) (armcompute.Snapshot, error) {
	poller, err := c.snapshots.BeginCreateOrUpdate(ctx, resourceGroup, name, snap, nil)
	if err != nil {
		return armcompute.Snapshot{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armcompute.Snapshot{}, Classify(err)
	}
	return resp.Snapshot, nil
}

// DeleteSnapshot deletes a disk snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.snapshots.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return Classify(err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return Classify(err)
	}
	return nil
}

// ListSnapshots lists the snapshots in a resource group.
func (c *Client) ListSnapshots(ctx context.Context, resourceGroup string) ([]*armcompute.Snapshot, error) {
	var out []*armcompute.Snapshot
	pager := c.snapshots.NewListByResourceGroupPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, page.Value...)
	}
	return out, nil
}

// GetNIC fetches a network interface by resource group and name.
func (c *Client) GetNIC(ctx context.Context, resourceGroup, name string) (armnetwork.Interface, error) {
	resp, err := c.nics.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return armnetwork.Interface{}, Classify(err)
	}
	return resp.Interface, nil
}

// CreateNIC creates a network interface and blocks until it is provisioned.
func (c *Client) CreateNIC(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error) {
	poller, err := c.nics.BeginCreateOrUpdate(ctx, resourceGroup, name, nic, nil)
	if err != nil {
		return armnetwork.Interface{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armnetwork.Interface{}, Classify(err)
	}
	return resp.Interface, nil
}

// DeleteNIC deletes a network interface.
func (c *Client) DeleteNIC(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.nics.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return Classify(err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return Classify(err)
	}
	return nil
}

// GetNSG fetches a network security group by resource group and name.
func (c *Client) GetNSG(ctx context.Context, resourceGroup, name string) (armnetwork.SecurityGroup, error) {
	resp, err := c.nsgs.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return armnetwork.SecurityGroup{}, Classify(err)
	}
	return resp.SecurityGroup, nil
}

// CreateNSG creates a network security group and blocks until provisioned.
func (c *Client) CreateNSG(ctx context.Context, resourceGroup, name string, nsg armnetwork.SecurityGroup) (armnetwork.SecurityGroup, error) {
	poller, err := c.nsgs.BeginCreateOrUpdate(ctx, resourceGroup, name, nsg, nil)
	if err != nil {
		return armnetwork.SecurityGroup{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armnetwork.SecurityGroup{}, Classify(err)
	}
	return resp.SecurityGroup, nil
}

// GetSubnet fetches a subnet, including its NSG association if any.
func (c *Client) GetSubnet(ctx context.Context, resourceGroup, vnetName, subnetName string) (armnetwork.Subnet, error) {
	resp, err := c.subnets.Get(ctx, resourceGroup, vnetName, subnetName, nil)
	if err != nil {
		return armnetwork.Subnet{}, Classify(err)
	}
	return resp.Subnet, nil
}

// ListVNets lists the virtual networks in a resource group.
func (c *Client) ListVNets(ctx context.Context, resourceGroup string) ([]*armnetwork.VirtualNetwork, error) {
	var out []*armnetwork.VirtualNetwork
	pager := c.vnets.NewListPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, page.Value...)
	}
	return out, nil
}

// ListStorageAccounts lists the storage accounts in a resource group.
func (c *Client) ListStorageAccounts(ctx context.Context, resourceGroup string) ([]*armstorage.Account, error) {
	var out []*armstorage.Account
	pager := c.accounts.NewListByResourceGroupPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, page.Value...)
	}
	return out, nil
}

// CreateStorageAccount creates a storage account and blocks until ready.
func (c *Client) CreateStorageAccount(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error) {
	poller, err := c.accounts.BeginCreate(ctx, resourceGroup, name, params, nil)
	if err != nil {
		return armstorage.Account{}, Classify(err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armstorage.Account{}, Classify(err)
	}
	return resp.Account, nil
}

// DeleteStorageAccount deletes a storage account. The operation is
// synchronous on the service side.
func (c *Client) DeleteStorageAccount(ctx context.Context, resourceGroup, name string) error {
	if _, err := c.accounts.Delete(ctx, resourceGroup, name, nil); err != nil {
		return Classify(err)
	}
	return nil
}
