// Package clone implements the VM clone workflow: source resolution,
// target configuration, the ordered provisioning pipeline, and best-effort
// rollback of partially created resources.
package clone

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v7"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
)

// SourceVM is the fully resolved source of a clone run: the VM plus its
// managed OS disk and primary network interface. It is read-only input;
// nothing in the workflow mutates the source.
type SourceVM struct {
	ResourceGroup string
	Name          string
	Location      string
	Size          string
	OSType        armcompute.OperatingSystemTypes

	OSDiskName string
	OSDiskID   string
	OSDisk     armcompute.Disk

	NICName string
	NICID   string
	NIC     armnetwork.Interface
}

// IsWindows reports whether the source runs the Windows OS kind, which
// selects the remote-management port (3389 vs 22) for hardened NSG rules.
func (s *SourceVM) IsWindows() bool {
	return s.OSType == armcompute.OperatingSystemTypesWindows
}

// Target holds the validated configuration for the VM to be created.
type Target struct {
	Name string
	Size string
}

// ResourceKind identifies a kind of created resource in the ledger.
type ResourceKind string

const (
	KindSnapshot       ResourceKind = "snapshot"
	KindDisk           ResourceKind = "disk"
	KindNIC            ResourceKind = "nic"
	KindStorageAccount ResourceKind = "storage-account"
	KindVM             ResourceKind = "vm"
)

// CreatedResource is one ledger entry: a resource this run created and is
// responsible for removing if the run fails.
type CreatedResource struct {
	Kind          ResourceKind
	ResourceGroup string
	Name          string
	ID            string
}

func (r CreatedResource) String() string {
	return fmt.Sprintf("%s %s/%s", r.Kind, r.ResourceGroup, r.Name)
}

// Ledger records every resource created by the pipeline, in creation
// order. On failure the ledger, not re-derivation, drives rollback.
//
// Network security groups are never recorded: an NSG may be pre-existing
// or shared, so rollback must not delete one.
type Ledger struct {
	entries []CreatedResource
}

// Record appends a created resource.
func (l *Ledger) Record(r CreatedResource) {
	l.entries = append(l.entries, r)
}

// Len returns the number of recorded resources.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns the recorded resources in creation order.
func (l *Ledger) Entries() []CreatedResource {
	out := make([]CreatedResource, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reversed returns the recorded resources in reverse creation order.
func (l *Ledger) Reversed() []CreatedResource {
	out := make([]CreatedResource, len(l.entries))
	for i, r := range l.entries {
		out[len(l.entries)-1-i] = r
	}
	return out
}
