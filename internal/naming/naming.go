// Package naming provides the naming conventions for resources derived
// during a clone run. Every name is a pure function of its inputs so the
// same run inputs always produce the same resource names.
package naming

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SnapshotTimestampLayout is second-precision, which keeps snapshot names
// unique under normal operating cadence. Two runs starting within the same
// second against the same disk would collide.
const SnapshotTimestampLayout = "20060102150405"

// DiagPrefix is the fixed prefix for freshly created boot-diagnostics
// storage accounts.
const DiagPrefix = "bootdiag"

// storageAccountMaxLen is the Azure limit for storage account names
// (3-24 lowercase alphanumerics).
const storageAccountMaxLen = 24

// Snapshot returns the snapshot name for an OS disk at a point in time.
// Format: {osDiskName}-snapshot-{yyyyMMddHHmmss}
//
// Example: disk osdisk-web01 at 2026-08-27 10:30:00 → osdisk-web01-snapshot-20260827103000
func Snapshot(osDiskName string, at time.Time) string {
	return fmt.Sprintf("%s-snapshot-%s", osDiskName, at.Format(SnapshotTimestampLayout))
}

// OSDisk returns the OS disk name for a new VM.
// Format: {vmName}-osdisk
func OSDisk(vmName string) string {
	return fmt.Sprintf("%s-osdisk", vmName)
}

// NIC returns the network interface name for a new VM.
// Format: {vmName}-nic
func NIC(vmName string) string {
	return fmt.Sprintf("%s-nic", vmName)
}

// NSG returns the network security group name for a new VM.
// Format: {vmName}-nsg
func NSG(vmName string) string {
	return fmt.Sprintf("%s-nsg", vmName)
}

// DiagStorageAccount returns a boot-diagnostics storage account name with a
// randomized numeric suffix, clamped to the Azure 24-character limit.
// Storage account names are globally unique, so the suffix avoids collisions
// with accounts outside this subscription.
func DiagStorageAccount(rng *rand.Rand) string {
	name := fmt.Sprintf("%s%08d", DiagPrefix, rng.Intn(100000000))
	if len(name) > storageAccountMaxLen {
		name = name[:storageAccountMaxLen]
	}
	return name
}

// IsDiagStorageAccount reports whether an existing storage account name
// looks like a boot-diagnostics account. Matches *bootdiag* or *diag*.
func IsDiagStorageAccount(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bootdiag") || strings.Contains(lower, "diag")
}
