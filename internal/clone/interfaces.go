package clone

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// cloudClient defines the management-plane operations the clone workflow
// needs. All create operations block until provisioning completes and all
// errors carry an azure.Kind.
//
// In production, this is satisfied by *azure.Client.
// In tests, this is satisfied by mock implementations.
type cloudClient interface {
	// GetResourceGroup fetches a resource group (readability probe).
	GetResourceGroup(ctx context.Context, name string) (armresources.ResourceGroup, error)

	// GetVM fetches a virtual machine.
	GetVM(ctx context.Context, resourceGroup, name string) (armcompute.VirtualMachine, error)

	// CreateVM creates a virtual machine.
	CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error)

	// DeleteVM deletes a virtual machine.
	DeleteVM(ctx context.Context, resourceGroup, name string) error

	// GetDisk fetches a managed disk.
	GetDisk(ctx context.Context, resourceGroup, name string) (armcompute.Disk, error)

	// CreateDisk creates a managed disk.
	CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (armcompute.Disk, error)

	// DeleteDisk deletes a managed disk.
	DeleteDisk(ctx context.Context, resourceGroup, name string) error

	// CreateSnapshot creates a disk snapshot.
	CreateSnapshot(ctx context.Context, resourceGroup, name string, snap armcompute.Snapshot) (armcompute.Snapshot, error)

	// DeleteSnapshot deletes a disk snapshot.
	DeleteSnapshot(ctx context.Context, resourceGroup, name string) error

	// GetNIC fetches a network interface.
	GetNIC(ctx context.Context, resourceGroup, name string) (armnetwork.Interface, error)

	// CreateNIC creates a network interface.
	CreateNIC(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error)

	// DeleteNIC deletes a network interface.
	DeleteNIC(ctx context.Context, resourceGroup, name string) error

	// GetNSG fetches a network security group.
	GetNSG(ctx context.Context, resourceGroup, name string) (armnetwork.SecurityGroup, error)

	// CreateNSG creates a network security group.
	CreateNSG(ctx context.Context, resourceGroup, name string, nsg armnetwork.SecurityGroup) (armnetwork.SecurityGroup, error)

	// GetSubnet fetches a subnet, including its NSG association.
	GetSubnet(ctx context.Context, resourceGroup, vnetName, subnetName string) (armnetwork.Subnet, error)

	// ListStorageAccounts lists the storage accounts in a resource group.
	ListStorageAccounts(ctx context.Context, resourceGroup string) ([]*armstorage.Account, error)

	// CreateStorageAccount creates a storage account.
	CreateStorageAccount(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error)

	// DeleteStorageAccount deletes a storage account.
	DeleteStorageAccount(ctx context.Context, resourceGroup, name string) error
}

// prompter defines the console interactions the workflow needs.
//
// In production, this is satisfied by *console.Console.
// In tests, this is satisfied by a scripted prompter.
type prompter interface {
	// Input prompts for a line of text with an optional default.
	Input(label, def string, required bool) (string, error)

	// Confirm prompts for a yes/no answer with a default.
	Confirm(label string, def bool) (bool, error)

	// Select prompts for a choice among options and returns its index.
	Select(label string, options []string, def int) (int, error)
}
