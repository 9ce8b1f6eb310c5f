package clone

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"github.com/google/uuid"
	"k8s.io/utils/ptr"

	"github.com/jbweber/anvil/internal/azure"
	"github.com/jbweber/anvil/internal/naming"
)

// Options configures a clone run.
type Options struct {
	// ResourceGroup and SourceName identify the VM to clone.
	ResourceGroup string
	SourceName    string

	// TargetName and TargetSize preseed the target prompts when set.
	TargetName string
	TargetSize string

	// NSGPolicy preseeds the NSG policy choice when non-nil.
	NSGPolicy *NSGPolicy

	// AssumeYes answers every mid-run confirmation with its default.
	AssumeYes bool

	// Creator is recorded in the provenance tags of every created
	// resource.
	Creator string

	// Now and Rand exist for deterministic tests; nil selects the real
	// clock and a time-seeded source.
	Now  func() time.Time
	Rand *rand.Rand
}

// Result summarizes a completed clone run.
type Result struct {
	RunID string `json:"runId" yaml:"runId"`

	SourceVM      string `json:"sourceVm" yaml:"sourceVm"`
	ResourceGroup string `json:"resourceGroup" yaml:"resourceGroup"`
	Location      string `json:"location" yaml:"location"`

	VMName string `json:"vmName" yaml:"vmName"`
	VMID   string `json:"vmId" yaml:"vmId"`
	Size   string `json:"size" yaml:"size"`
	OSType string `json:"osType" yaml:"osType"`

	SnapshotName    string `json:"snapshotName" yaml:"snapshotName"`
	SnapshotID      string `json:"snapshotId" yaml:"snapshotId"`
	SnapshotDeleted bool   `json:"snapshotDeleted" yaml:"snapshotDeleted"`

	DiskName string `json:"diskName" yaml:"diskName"`
	DiskSKU  string `json:"diskSku" yaml:"diskSku"`

	NICName string `json:"nicName" yaml:"nicName"`

	NSGName string `json:"nsgName" yaml:"nsgName"`
	NSGMode string `json:"nsgMode" yaml:"nsgMode"`

	DiagAccount string `json:"diagAccount" yaml:"diagAccount"`
	DiagCreated bool   `json:"diagCreated" yaml:"diagCreated"`
}

// pipeline holds the forward-flowing state of one provisioning run. Each
// stage reads what earlier stages produced and appends to the ledger when
// it creates something.
type pipeline struct {
	c cloudClient
	p prompter

	src    *SourceVM
	target Target
	opts   Options

	now   func() time.Time
	rng   *rand.Rand
	runID string

	ledger *Ledger

	// Stage outputs, in pipeline order.
	snapshotName string
	snapshotID   string
	diskName     string
	diskID       string
	diskSKU      armcompute.DiskStorageAccountTypes
	subnetID     azure.SubnetID
	subnet       armnetwork.Subnet
	nsg          nsgOutcome
	nicName      string
	nicID        string
	diag         diagOutcome
	vmDef        armcompute.VirtualMachine
	vmID         string
}

func newPipeline(c cloudClient, p prompter, src *SourceVM, target Target, opts Options) *pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}

	return &pipeline{
		c:      c,
		p:      p,
		src:    src,
		target: target,
		opts:   opts,
		now:    now,
		rng:    rng,
		runID:  uuid.NewString(),
		ledger: &Ledger{},
	}
}

// run executes the provisioning stages in order. The first stage error
// aborts the run; if anything was created by then, rollback removes it
// best-effort and the triggering error is returned unchanged underneath
// the stage wrapper.
func (p *pipeline) run(ctx context.Context) (*Result, error) {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"snapshot", p.stageSnapshot},
		{"disk", p.stageDisk},
		{"network-resolution", p.stageNetwork},
		{"nsg", p.stageNSG},
		{"nic", p.stageNIC},
		{"diagnostics-storage", p.stageDiagStorage},
		{"vm-assembly", p.stageAssembleVM},
		{"vm-creation", p.stageCreateVM},
	}

	for _, s := range stages {
		if err := s.fn(ctx); err != nil {
			if p.ledger.Len() > 0 {
				log.Printf("Pipeline failed at %s stage: %v", s.name, err)
				p.rollback(ctx)
			}
			return nil, fmt.Errorf("%s stage: %w", s.name, err)
		}
	}

	return p.result(), nil
}

// tags returns the provenance tags stamped on every created resource.
// The snapshot tag appears once the snapshot stage has run.
func (p *pipeline) tags() map[string]*string {
	tags := map[string]*string{
		"source-vm":    ptr.To(p.src.Name),
		"created-by":   ptr.To(p.opts.Creator),
		"created-at":   ptr.To(p.now().UTC().Format(time.RFC3339)),
		"clone-run-id": ptr.To(p.runID),
	}
	if p.snapshotName != "" {
		tags["source-snapshot"] = ptr.To(p.snapshotName)
	}
	return tags
}

// stageSnapshot takes a copy-mode snapshot of the source OS disk. The
// source VM keeps running; the snapshot is taken against the live disk.
func (p *pipeline) stageSnapshot(ctx context.Context) error {
	p.snapshotName = naming.Snapshot(p.src.OSDiskName, p.now())
	log.Printf("Creating snapshot '%s' of disk '%s'...", p.snapshotName, p.src.OSDiskName)

	snap, err := p.c.CreateSnapshot(ctx, p.src.ResourceGroup, p.snapshotName, armcompute.Snapshot{
		Location: ptr.To(p.src.Location),
		SKU: &armcompute.SnapshotSKU{
			Name: ptr.To(armcompute.SnapshotStorageAccountTypesStandardLRS),
		},
		Tags: p.tags(),
		Properties: &armcompute.SnapshotProperties{
			CreationData: &armcompute.CreationData{
				CreateOption:     ptr.To(armcompute.DiskCreateOptionCopy),
				SourceResourceID: ptr.To(p.src.OSDiskID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating snapshot %q: %w", p.snapshotName, err)
	}
	p.snapshotID = ptr.Deref(snap.ID, "")

	p.ledger.Record(CreatedResource{
		Kind:          KindSnapshot,
		ResourceGroup: p.src.ResourceGroup,
		Name:          p.snapshotName,
		ID:            p.snapshotID,
	})
	return nil
}

// stageDisk creates the new VM's OS disk from the snapshot. The SKU
// matches the source disk; a Standard_LRS source may be upgraded to
// Premium_LRS on explicit confirmation — the only yes/no decision taken
// mid-pipeline.
func (p *pipeline) stageDisk(ctx context.Context) error {
	p.diskName = naming.OSDisk(p.target.Name)
	p.diskSKU = p.sourceDiskSKU()

	if p.diskSKU == armcompute.DiskStorageAccountTypesStandardLRS && !p.opts.AssumeYes {
		upgrade, err := p.p.Confirm("Source disk uses Standard_LRS. Upgrade the clone to Premium_LRS?", false)
		if err != nil {
			return err
		}
		if upgrade {
			p.diskSKU = armcompute.DiskStorageAccountTypesPremiumLRS
		}
	}

	log.Printf("Creating managed disk '%s' (%s) from snapshot '%s'...", p.diskName, p.diskSKU, p.snapshotName)

	disk, err := p.c.CreateDisk(ctx, p.src.ResourceGroup, p.diskName, armcompute.Disk{
		Location: ptr.To(p.src.Location),
		SKU: &armcompute.DiskSKU{
			Name: ptr.To(p.diskSKU),
		},
		Tags: p.tags(),
		Properties: &armcompute.DiskProperties{
			CreationData: &armcompute.CreationData{
				CreateOption:     ptr.To(armcompute.DiskCreateOptionCopy),
				SourceResourceID: ptr.To(p.snapshotID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating disk %q: %w", p.diskName, err)
	}
	p.diskID = ptr.Deref(disk.ID, "")

	p.ledger.Record(CreatedResource{
		Kind:          KindDisk,
		ResourceGroup: p.src.ResourceGroup,
		Name:          p.diskName,
		ID:            p.diskID,
	})
	return nil
}

func (p *pipeline) sourceDiskSKU() armcompute.DiskStorageAccountTypes {
	if p.src.OSDisk.SKU != nil && p.src.OSDisk.SKU.Name != nil {
		return *p.src.OSDisk.SKU.Name
	}
	return armcompute.DiskStorageAccountTypesStandardLRS
}

// stageNetwork decomposes the source NIC's subnet identifier and verifies
// cross-resource-group access when the VNet lives outside the source VM's
// resource group. The new VM is always created in the source VM's resource
// group even when its VNet lives elsewhere.
func (p *pipeline) stageNetwork(ctx context.Context) error {
	rawSubnetID, err := primarySubnetID(&p.src.NIC)
	if err != nil {
		return err
	}

	p.subnetID, err = azure.ParseSubnetID(rawSubnetID)
	if err != nil {
		return fmt.Errorf("resolving source subnet: %w", err)
	}
	log.Printf("Source subnet: vnet '%s', subnet '%s' (resource group '%s')", p.subnetID.VNetName, p.subnetID.SubnetName, p.subnetID.ResourceGroup)

	if p.subnetID.ResourceGroup != p.src.ResourceGroup {
		log.Printf("VNet lives in resource group '%s', not '%s'; verifying read access...", p.subnetID.ResourceGroup, p.src.ResourceGroup)
		if _, err := p.c.GetResourceGroup(ctx, p.subnetID.ResourceGroup); err != nil {
			return azure.NewError(azure.KindPermissionDenied,
				fmt.Errorf("cannot read resource group %q containing VNet %q: %w", p.subnetID.ResourceGroup, p.subnetID.VNetName, err))
		}
	}

	p.subnet, err = p.c.GetSubnet(ctx, p.subnetID.ResourceGroup, p.subnetID.VNetName, p.subnetID.SubnetName)
	if err != nil {
		if azure.IsNotFound(err) {
			return azure.Errorf(azure.KindNotFound, "subnet %q in VNet %q not found", p.subnetID.SubnetName, p.subnetID.VNetName)
		}
		return fmt.Errorf("reading subnet %q: %w", p.subnetID.SubnetName, err)
	}
	return nil
}

// primarySubnetID returns the subnet ID of the NIC's primary IP
// configuration (or the sole configuration).
func primarySubnetID(nic *armnetwork.Interface) (string, error) {
	if nic.Properties == nil || len(nic.Properties.IPConfigurations) == 0 {
		return "", azure.Errorf(azure.KindNotFound, "source network interface has no IP configurations")
	}

	cfgs := nic.Properties.IPConfigurations
	chosen := cfgs[0]
	for _, cfg := range cfgs {
		if cfg.Properties != nil && ptr.Deref(cfg.Properties.Primary, false) {
			chosen = cfg
			break
		}
	}

	if chosen.Properties == nil || chosen.Properties.Subnet == nil || chosen.Properties.Subnet.ID == nil {
		return "", azure.Errorf(azure.KindNotFound, "source network interface has no subnet bound")
	}
	return *chosen.Properties.Subnet.ID, nil
}

// stageNSG applies the selected NSG policy. Created or reused, the NSG is
// never ledgered: rollback must not delete a possibly shared NSG.
func (p *pipeline) stageNSG(ctx context.Context) error {
	outcome, err := resolveNSG(ctx, p.c, p.p, p.src, p.subnet, p.target, p.tags(), p.opts.NSGPolicy)
	if err != nil {
		return err
	}
	p.nsg = outcome
	return nil
}

// stageNIC creates the new VM's network interface on the source subnet.
func (p *pipeline) stageNIC(ctx context.Context) error {
	p.nicName = naming.NIC(p.target.Name)
	log.Printf("Creating network interface '%s'...", p.nicName)

	iface := armnetwork.Interface{
		Location: ptr.To(p.src.Location),
		Tags:     p.tags(),
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{
				{
					Name: ptr.To("ipconfig1"),
					Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
						Subnet:                    &armnetwork.Subnet{ID: ptr.To(p.subnetID.String())},
						PrivateIPAllocationMethod: ptr.To(armnetwork.IPAllocationMethodDynamic),
					},
				},
			},
		},
	}
	if p.nsg.AttachID != "" {
		iface.Properties.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: ptr.To(p.nsg.AttachID)}
	}

	created, err := p.c.CreateNIC(ctx, p.src.ResourceGroup, p.nicName, iface)
	if err != nil {
		return fmt.Errorf("creating network interface %q: %w", p.nicName, err)
	}
	p.nicID = ptr.Deref(created.ID, "")

	p.ledger.Record(CreatedResource{
		Kind:          KindNIC,
		ResourceGroup: p.src.ResourceGroup,
		Name:          p.nicName,
		ID:            p.nicID,
	})
	return nil
}

// stageDiagStorage resolves or creates the boot-diagnostics storage
// account. Only a freshly created account enters the ledger.
func (p *pipeline) stageDiagStorage(ctx context.Context) error {
	outcome, err := resolveDiagStorage(ctx, p.c, p.p, p.src, p.target, p.tags(), p.rng, p.opts.AssumeYes)
	if err != nil {
		return err
	}
	p.diag = outcome

	if outcome.CreatedNew {
		p.ledger.Record(CreatedResource{
			Kind:          KindStorageAccount,
			ResourceGroup: p.src.ResourceGroup,
			Name:          outcome.AccountName,
		})
	}
	return nil
}

// stageAssembleVM builds the VM definition: attach-mode OS disk, the new
// NIC, and boot diagnostics at the resolved storage account.
func (p *pipeline) stageAssembleVM(context.Context) error {
	log.Printf("Assembling VM definition for '%s' (%s, %s)...", p.target.Name, p.target.Size, p.src.OSType)

	p.vmDef = armcompute.VirtualMachine{
		Location: ptr.To(p.src.Location),
		Tags:     p.tags(),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: ptr.To(armcompute.VirtualMachineSizeTypes(p.target.Size)),
			},
			StorageProfile: &armcompute.StorageProfile{
				OSDisk: &armcompute.OSDisk{
					Name:         ptr.To(p.diskName),
					CreateOption: ptr.To(armcompute.DiskCreateOptionTypesAttach),
					OSType:       ptr.To(p.src.OSType),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						ID: ptr.To(p.diskID),
					},
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{
					{
						ID: ptr.To(p.nicID),
						Properties: &armcompute.NetworkInterfaceReferenceProperties{
							Primary: ptr.To(true),
						},
					},
				},
			},
			DiagnosticsProfile: &armcompute.DiagnosticsProfile{
				BootDiagnostics: &armcompute.BootDiagnostics{
					Enabled:    ptr.To(true),
					StorageURI: ptr.To(p.diag.BlobEndpoint),
				},
			},
		},
	}
	return nil
}

// stageCreateVM submits the assembled definition.
func (p *pipeline) stageCreateVM(ctx context.Context) error {
	log.Printf("Creating VM '%s'...", p.target.Name)

	vm, err := p.c.CreateVM(ctx, p.src.ResourceGroup, p.target.Name, p.vmDef)
	if err != nil {
		return fmt.Errorf("creating VM %q: %w", p.target.Name, err)
	}
	p.vmID = ptr.Deref(vm.ID, "")

	p.ledger.Record(CreatedResource{
		Kind:          KindVM,
		ResourceGroup: p.src.ResourceGroup,
		Name:          p.target.Name,
		ID:            p.vmID,
	})

	log.Printf("VM '%s' created successfully", p.target.Name)
	return nil
}

func (p *pipeline) result() *Result {
	return &Result{
		RunID:         p.runID,
		SourceVM:      p.src.Name,
		ResourceGroup: p.src.ResourceGroup,
		Location:      p.src.Location,
		VMName:        p.target.Name,
		VMID:          p.vmID,
		Size:          p.target.Size,
		OSType:        string(p.src.OSType),
		SnapshotName:  p.snapshotName,
		SnapshotID:    p.snapshotID,
		DiskName:      p.diskName,
		DiskSKU:       string(p.diskSKU),
		NICName:       p.nicName,
		NSGName:       p.nsg.Name,
		NSGMode:       p.nsg.Mode,
		DiagAccount:   p.diag.AccountName,
		DiagCreated:   p.diag.CreatedNew,
	}
}
