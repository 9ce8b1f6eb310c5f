package clone

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"k8s.io/utils/ptr"

	"github.com/jbweber/anvil/internal/azure"
)

// Shared test identifiers. All fixtures live in resource group rg1 unless
// a test overrides them.
const (
	testSubID    = "00000000-0000-0000-0000-000000000000"
	testDiskID   = "/subscriptions/" + testSubID + "/resourceGroups/rg1/providers/Microsoft.Compute/disks/osdisk-web01"
	testNICID    = "/subscriptions/" + testSubID + "/resourceGroups/rg1/providers/Microsoft.Network/networkInterfaces/web01-nic"
	testNSGID    = "/subscriptions/" + testSubID + "/resourceGroups/rg1/providers/Microsoft.Network/networkSecurityGroups/web01-nsg"
	testSubnetID = "/subscriptions/" + testSubID + "/resourceGroups/rg1/providers/Microsoft.Network/virtualNetworks/vnet1/subnets/default"

	// A subnet in a different resource group than the source VM.
	testCrossRGSubnetID = "/subscriptions/" + testSubID + "/resourceGroups/net-rg/providers/Microsoft.Network/virtualNetworks/vnet1/subnets/default"
)

// notFoundErr mimics what the azure package returns for a missing resource.
func notFoundErr(what string) error {
	return azure.Errorf(azure.KindNotFound, "%s not found", what)
}

// mockCloudClient is a mock implementation of the cloudClient interface.
// Defaults: every lookup misses, every create succeeds echoing its
// payload with a fabricated ID, every delete succeeds. Tests override the
// function fields they care about.
type mockCloudClient struct {
	mu sync.Mutex

	getResourceGroupFunc     func(ctx context.Context, name string) (armresources.ResourceGroup, error)
	getVMFunc                func(ctx context.Context, rg, name string) (armcompute.VirtualMachine, error)
	createVMFunc             func(ctx context.Context, rg, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error)
	deleteVMFunc             func(ctx context.Context, rg, name string) error
	getDiskFunc              func(ctx context.Context, rg, name string) (armcompute.Disk, error)
	createDiskFunc           func(ctx context.Context, rg, name string, disk armcompute.Disk) (armcompute.Disk, error)
	deleteDiskFunc           func(ctx context.Context, rg, name string) error
	createSnapshotFunc       func(ctx context.Context, rg, name string, snap armcompute.Snapshot) (armcompute.Snapshot, error)
	deleteSnapshotFunc       func(ctx context.Context, rg, name string) error
	getNICFunc               func(ctx context.Context, rg, name string) (armnetwork.Interface, error)
	createNICFunc            func(ctx context.Context, rg, name string, nic armnetwork.Interface) (armnetwork.Interface, error)
	deleteNICFunc            func(ctx context.Context, rg, name string) error
	getNSGFunc               func(ctx context.Context, rg, name string) (armnetwork.SecurityGroup, error)
	createNSGFunc            func(ctx context.Context, rg, name string, nsg armnetwork.SecurityGroup) (armnetwork.SecurityGroup, error)
	getSubnetFunc            func(ctx context.Context, rg, vnet, subnet string) (armnetwork.Subnet, error)
	listStorageAccountsFunc  func(ctx context.Context, rg string) ([]*armstorage.Account, error)
	createStorageAccountFunc func(ctx context.Context, rg, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error)
	deleteStorageAccountFunc func(ctx context.Context, rg, name string) error

	// Call tracking.
	createdSnapshots []armcompute.Snapshot
	snapshotNames    []string
	createdDisks     []armcompute.Disk
	diskNames        []string
	createdNSGs      []armnetwork.SecurityGroup
	nsgNames         []string
	createdNICs      []armnetwork.Interface
	nicNames         []string
	createdAccounts  []armstorage.AccountCreateParameters
	accountNames     []string
	createdVMs       []armcompute.VirtualMachine
	vmNames          []string

	// deletions records every delete across kinds, in call order, as
	// "<kind> <name>". Rollback-order assertions read this.
	deletions []string
}

func newMockCloudClient() *mockCloudClient {
	return &mockCloudClient{}
}

func fabricatedID(rg, provider, typ, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s", testSubID, rg, provider, typ, name)
}

func (m *mockCloudClient) GetResourceGroup(ctx context.Context, name string) (armresources.ResourceGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getResourceGroupFunc != nil {
		return m.getResourceGroupFunc(ctx, name)
	}
	return armresources.ResourceGroup{Name: ptr.To(name)}, nil
}

func (m *mockCloudClient) GetVM(ctx context.Context, rg, name string) (armcompute.VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getVMFunc != nil {
		return m.getVMFunc(ctx, rg, name)
	}
	return armcompute.VirtualMachine{}, notFoundErr("VM " + name)
}

func (m *mockCloudClient) CreateVM(ctx context.Context, rg, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdVMs = append(m.createdVMs, vm)
	m.vmNames = append(m.vmNames, name)
	if m.createVMFunc != nil {
		return m.createVMFunc(ctx, rg, name, vm)
	}
	vm.ID = ptr.To(fabricatedID(rg, "Microsoft.Compute", "virtualMachines", name))
	vm.Name = ptr.To(name)
	return vm, nil
}

func (m *mockCloudClient) DeleteVM(ctx context.Context, rg, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, "vm "+name)
	if m.deleteVMFunc != nil {
		return m.deleteVMFunc(ctx, rg, name)
	}
	return nil
}

func (m *mockCloudClient) GetDisk(ctx context.Context, rg, name string) (armcompute.Disk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getDiskFunc != nil {
		return m.getDiskFunc(ctx, rg, name)
	}
	return armcompute.Disk{}, notFoundErr("disk " + name)
}

func (m *mockCloudClient) CreateDisk(ctx context.Context, rg, name string, disk armcompute.Disk) (armcompute.Disk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdDisks = append(m.createdDisks, disk)
	m.diskNames = append(m.diskNames, name)
	if m.createDiskFunc != nil {
		return m.createDiskFunc(ctx, rg, name, disk)
	}
	disk.ID = ptr.To(fabricatedID(rg, "Microsoft.Compute", "disks", name))
	disk.Name = ptr.To(name)
	return disk, nil
}

func (m *mockCloudClient) DeleteDisk(ctx context.Context, rg, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, "disk "+name)
	if m.deleteDiskFunc != nil {
		return m.deleteDiskFunc(ctx, rg, name)
	}
	return nil
}

func (m *mockCloudClient) CreateSnapshot(ctx context.Context, rg, name string, snap armcompute.Snapshot) (armcompute.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdSnapshots = append(m.createdSnapshots, snap)
	m.snapshotNames = append(m.snapshotNames, name)
	if m.createSnapshotFunc != nil {
		return m.createSnapshotFunc(ctx, rg, name, snap)
	}
	snap.ID = ptr.To(fabricatedID(rg, "Microsoft.Compute", "snapshots", name))
	snap.Name = ptr.To(name)
	return snap, nil
}

func (m *mockCloudClient) DeleteSnapshot(ctx context.Context, rg, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, "snapshot "+name)
	if m.deleteSnapshotFunc != nil {
		return m.deleteSnapshotFunc(ctx, rg, name)
	}
	return nil
}

func (m *mockCloudClient) GetNIC(ctx context.Context, rg, name string) (armnetwork.Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getNICFunc != nil {
		return m.getNICFunc(ctx, rg, name)
	}
	return armnetwork.Interface{}, notFoundErr("NIC " + name)
}

func (m *mockCloudClient) CreateNIC(ctx context.Context, rg, name string, nic armnetwork.Interface) (armnetwork.Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdNICs = append(m.createdNICs, nic)
	m.nicNames = append(m.nicNames, name)
	if m.createNICFunc != nil {
		return m.createNICFunc(ctx, rg, name, nic)
	}
	nic.ID = ptr.To(fabricatedID(rg, "Microsoft.Network", "networkInterfaces", name))
	nic.Name = ptr.To(name)
	return nic, nil
}

func (m *mockCloudClient) DeleteNIC(ctx context.Context, rg, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, "nic "+name)
	if m.deleteNICFunc != nil {
		return m.deleteNICFunc(ctx, rg, name)
	}
	return nil
}

func (m *mockCloudClient) GetNSG(ctx context.Context, rg, name string) (armnetwork.SecurityGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getNSGFunc != nil {
		return m.getNSGFunc(ctx, rg, name)
	}
	return armnetwork.SecurityGroup{}, notFoundErr("NSG " + name)
}

func (m *mockCloudClient) CreateNSG(ctx context.Context, rg, name string, nsg armnetwork.SecurityGroup) (armnetwork.SecurityGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdNSGs = append(m.createdNSGs, nsg)
	m.nsgNames = append(m.nsgNames, name)
	if m.createNSGFunc != nil {
		return m.createNSGFunc(ctx, rg, name, nsg)
	}
	nsg.ID = ptr.To(fabricatedID(rg, "Microsoft.Network", "networkSecurityGroups", name))
	nsg.Name = ptr.To(name)
	return nsg, nil
}

func (m *mockCloudClient) GetSubnet(ctx context.Context, rg, vnet, subnet string) (armnetwork.Subnet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getSubnetFunc != nil {
		return m.getSubnetFunc(ctx, rg, vnet, subnet)
	}
	id := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Network/virtualNetworks/%s/subnets/%s", testSubID, rg, vnet, subnet)
	return armnetwork.Subnet{ID: ptr.To(id), Name: ptr.To(subnet)}, nil
}

func (m *mockCloudClient) ListStorageAccounts(ctx context.Context, rg string) ([]*armstorage.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listStorageAccountsFunc != nil {
		return m.listStorageAccountsFunc(ctx, rg)
	}
	return nil, nil
}

func (m *mockCloudClient) CreateStorageAccount(ctx context.Context, rg, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdAccounts = append(m.createdAccounts, params)
	m.accountNames = append(m.accountNames, name)
	if m.createStorageAccountFunc != nil {
		return m.createStorageAccountFunc(ctx, rg, name, params)
	}
	return armstorage.Account{
		ID:   ptr.To(fabricatedID(rg, "Microsoft.Storage", "storageAccounts", name)),
		Name: ptr.To(name),
		Properties: &armstorage.AccountProperties{
			PrimaryEndpoints: &armstorage.Endpoints{
				Blob: ptr.To(fmt.Sprintf("https://%s.blob.core.windows.net/", name)),
			},
		},
	}, nil
}

func (m *mockCloudClient) DeleteStorageAccount(ctx context.Context, rg, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, "storage-account "+name)
	if m.deleteStorageAccountFunc != nil {
		return m.deleteStorageAccountFunc(ctx, rg, name)
	}
	return nil
}

// scriptedPrompter answers prompts from queues; an exhausted queue yields
// the prompt's default, so most tests only script the answers they care
// about.
type scriptedPrompter struct {
	inputs   []string
	confirms []*bool
	selects  []*int

	inputLabels   []string
	confirmLabels []string
	selectLabels  []string
}

func (s *scriptedPrompter) Input(label, def string, required bool) (string, error) {
	s.inputLabels = append(s.inputLabels, label)
	if len(s.inputs) > 0 {
		answer := s.inputs[0]
		s.inputs = s.inputs[1:]
		return answer, nil
	}
	if def == "" && required {
		return "", fmt.Errorf("unscripted required prompt: %s", label)
	}
	return def, nil
}

func (s *scriptedPrompter) Confirm(label string, def bool) (bool, error) {
	s.confirmLabels = append(s.confirmLabels, label)
	if len(s.confirms) > 0 {
		answer := s.confirms[0]
		s.confirms = s.confirms[1:]
		if answer != nil {
			return *answer, nil
		}
	}
	return def, nil
}

func (s *scriptedPrompter) Select(label string, options []string, def int) (int, error) {
	s.selectLabels = append(s.selectLabels, label)
	if len(s.selects) > 0 {
		answer := s.selects[0]
		s.selects = s.selects[1:]
		if answer != nil {
			return *answer, nil
		}
	}
	return def, nil
}

// testVMResource builds the armcompute fixture for source VM web01: Linux,
// Standard_B2s, one managed OS disk, one NIC.
func testVMResource() armcompute.VirtualMachine {
	return armcompute.VirtualMachine{
		Name:     ptr.To("web01"),
		Location: ptr.To("eastus2"),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: ptr.To(armcompute.VirtualMachineSizeTypes("Standard_B2s")),
			},
			StorageProfile: &armcompute.StorageProfile{
				OSDisk: &armcompute.OSDisk{
					OSType: ptr.To(armcompute.OperatingSystemTypesLinux),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						ID: ptr.To(testDiskID),
					},
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{
					{ID: ptr.To(testNICID)},
				},
			},
		},
	}
}

// testNICResource builds the source NIC fixture bound to testSubnetID.
// When withNSG is set the NIC carries a NIC-level NSG association.
func testNICResource(withNSG bool) armnetwork.Interface {
	nic := armnetwork.Interface{
		ID:   ptr.To(testNICID),
		Name: ptr.To("web01-nic"),
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{
				{
					Name: ptr.To("ipconfig1"),
					Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
						Primary: ptr.To(true),
						Subnet:  &armnetwork.Subnet{ID: ptr.To(testSubnetID)},
					},
				},
			},
		},
	}
	if withNSG {
		nic.Properties.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: ptr.To(testNSGID)}
	}
	return nic
}

// testDiskResource builds the source OS disk fixture with the given SKU.
func testDiskResource(sku armcompute.DiskStorageAccountTypes) armcompute.Disk {
	return armcompute.Disk{
		ID:   ptr.To(testDiskID),
		Name: ptr.To("osdisk-web01"),
		SKU:  &armcompute.DiskSKU{Name: ptr.To(sku)},
	}
}

// testSource builds a resolved SourceVM directly, bypassing ResolveSource,
// for pipeline-level tests.
func testSource(withNSG bool) *SourceVM {
	return &SourceVM{
		ResourceGroup: "rg1",
		Name:          "web01",
		Location:      "eastus2",
		Size:          "Standard_B2s",
		OSType:        armcompute.OperatingSystemTypesLinux,
		OSDiskName:    "osdisk-web01",
		OSDiskID:      testDiskID,
		OSDisk:        testDiskResource(armcompute.DiskStorageAccountTypesStandardLRS),
		NICName:       "web01-nic",
		NICID:         testNICID,
		NIC:           testNICResource(withNSG),
	}
}

// sourceAwareClient wires a mock that can fully resolve web01 in rg1.
func sourceAwareClient(withNSG bool) *mockCloudClient {
	m := newMockCloudClient()
	m.getVMFunc = func(_ context.Context, rg, name string) (armcompute.VirtualMachine, error) {
		if rg == "rg1" && name == "web01" {
			return testVMResource(), nil
		}
		return armcompute.VirtualMachine{}, notFoundErr("VM " + name)
	}
	m.getDiskFunc = func(_ context.Context, rg, name string) (armcompute.Disk, error) {
		if rg == "rg1" && name == "osdisk-web01" {
			return testDiskResource(armcompute.DiskStorageAccountTypesStandardLRS), nil
		}
		return armcompute.Disk{}, notFoundErr("disk " + name)
	}
	m.getNICFunc = func(_ context.Context, rg, name string) (armnetwork.Interface, error) {
		if rg == "rg1" && name == "web01-nic" {
			return testNICResource(withNSG), nil
		}
		return armnetwork.Interface{}, notFoundErr("NIC " + name)
	}
	return m
}
