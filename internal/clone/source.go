package clone

import (
	"context"
	"fmt"
	"log"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"k8s.io/utils/ptr"

	"github.com/jbweber/anvil/internal/azure"
)

// ResolveSource resolves the source VM, its managed OS disk, and its
// primary network interface. It is read-only and idempotent: resolving the
// same inputs twice returns identical data.
//
// A VM with no network interfaces, or one whose OS disk is not a managed
// disk, is a precondition failure surfaced before anything is created.
func ResolveSource(ctx context.Context, c cloudClient, resourceGroup, name string) (*SourceVM, error) {
	log.Printf("Resolving source VM '%s' in resource group '%s'...", name, resourceGroup)

	vm, err := c.GetVM(ctx, resourceGroup, name)
	if err != nil {
		if azure.IsNotFound(err) {
			return nil, azure.Errorf(azure.KindNotFound, "source VM %q not found in resource group %q", name, resourceGroup)
		}
		return nil, fmt.Errorf("resolving source VM %q: %w", name, err)
	}

	if vm.Properties == nil || vm.Properties.StorageProfile == nil ||
		vm.Properties.StorageProfile.OSDisk == nil ||
		vm.Properties.StorageProfile.OSDisk.ManagedDisk == nil ||
		vm.Properties.StorageProfile.OSDisk.ManagedDisk.ID == nil {
		return nil, azure.Errorf(azure.KindNotFound, "source VM %q has no managed OS disk", name)
	}

	src := &SourceVM{
		ResourceGroup: resourceGroup,
		Name:          name,
		Location:      ptr.Deref(vm.Location, ""),
		OSDiskID:      *vm.Properties.StorageProfile.OSDisk.ManagedDisk.ID,
	}

	if vm.Properties.HardwareProfile != nil && vm.Properties.HardwareProfile.VMSize != nil {
		src.Size = string(*vm.Properties.HardwareProfile.VMSize)
	}
	if vm.Properties.StorageProfile.OSDisk.OSType != nil {
		src.OSType = *vm.Properties.StorageProfile.OSDisk.OSType
	}

	// OS disk. The disk may live in a different resource group than the
	// VM, so both segments come from its identifier.
	diskName, err := azure.ResourceName(src.OSDiskID)
	if err != nil {
		return nil, fmt.Errorf("resolving OS disk: %w", err)
	}
	diskRG, err := azure.ResourceGroupOf(src.OSDiskID)
	if err != nil {
		return nil, fmt.Errorf("resolving OS disk: %w", err)
	}
	src.OSDiskName = diskName

	log.Printf("Resolving OS disk '%s'...", diskName)
	disk, err := c.GetDisk(ctx, diskRG, diskName)
	if err != nil {
		if azure.IsNotFound(err) {
			return nil, azure.Errorf(azure.KindNotFound, "OS disk %q of source VM %q not found", diskName, name)
		}
		return nil, fmt.Errorf("resolving OS disk %q: %w", diskName, err)
	}
	src.OSDisk = disk

	// Primary NIC. A reference explicitly marked Primary wins; with a
	// single NIC that reference is used regardless of markers.
	nicID, err := primaryNICID(&vm)
	if err != nil {
		return nil, err
	}
	src.NICID = nicID

	nicName, err := azure.ResourceName(nicID)
	if err != nil {
		return nil, fmt.Errorf("resolving network interface: %w", err)
	}
	nicRG, err := azure.ResourceGroupOf(nicID)
	if err != nil {
		return nil, fmt.Errorf("resolving network interface: %w", err)
	}
	src.NICName = nicName

	log.Printf("Resolving network interface '%s'...", nicName)
	nic, err := c.GetNIC(ctx, nicRG, nicName)
	if err != nil {
		if azure.IsNotFound(err) {
			return nil, azure.Errorf(azure.KindNotFound, "network interface %q of source VM %q not found", nicName, name)
		}
		return nil, fmt.Errorf("resolving network interface %q: %w", nicName, err)
	}
	src.NIC = nic

	return src, nil
}

// primaryNICID selects the NIC reference to clone network settings from.
func primaryNICID(vm *armcompute.VirtualMachine) (string, error) {
	if vm.Properties.NetworkProfile == nil || len(vm.Properties.NetworkProfile.NetworkInterfaces) == 0 {
		return "", azure.Errorf(azure.KindNotFound, "source VM %q has no network interfaces", ptr.Deref(vm.Name, ""))
	}

	refs := vm.Properties.NetworkProfile.NetworkInterfaces

	if len(refs) == 1 {
		if refs[0].ID == nil {
			return "", azure.Errorf(azure.KindNotFound, "source VM %q has a network interface reference without an ID", ptr.Deref(vm.Name, ""))
		}
		return *refs[0].ID, nil
	}

	for _, ref := range refs {
		if ref.Properties != nil && ptr.Deref(ref.Properties.Primary, false) && ref.ID != nil {
			return *ref.ID, nil
		}
	}

	// No reference is marked primary: fall back to the first one, loudly.
	if refs[0].ID == nil {
		return "", azure.Errorf(azure.KindNotFound, "source VM %q has a network interface reference without an ID", ptr.Deref(vm.Name, ""))
	}
	log.Printf("Warning: source VM has %d network interfaces and none marked primary; using %s", len(refs), *refs[0].ID)
	return *refs[0].ID, nil
}
