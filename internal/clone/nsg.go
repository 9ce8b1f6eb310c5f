package clone

import (
	"context"
	"fmt"
	"log"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v8"
	"k8s.io/utils/ptr"

	"github.com/jbweber/anvil/internal/azure"
	"github.com/jbweber/anvil/internal/naming"
)

// NSGPolicy selects how the new VM's network security group is obtained.
type NSGPolicy string

const (
	// NSGPolicyReuse attaches the source NIC's existing NSG directly.
	NSGPolicyReuse NSGPolicy = "reuse"
	// NSGPolicyHardened creates a new NSG with a VirtualNetwork-only
	// management allow rule and an Internet management-port deny rule.
	// This is the default.
	NSGPolicyHardened NSGPolicy = "hardened"
	// NSGPolicyCopy creates a new NSG replicating every rule of the
	// source NSG verbatim.
	NSGPolicyCopy NSGPolicy = "copy"
)

// ParseNSGPolicy parses a --nsg-policy flag value.
func ParseNSGPolicy(s string) (NSGPolicy, error) {
	switch NSGPolicy(s) {
	case NSGPolicyReuse, NSGPolicyHardened, NSGPolicyCopy:
		return NSGPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid NSG policy %q (valid: reuse, hardened, copy)", s)
	}
}

// Rule priorities and ports for the hardened policy.
const (
	allowRulePriority int32 = 1000
	denyRulePriority  int32 = 4000
)

// managementPorts are the ports blocked from Internet-origin traffic by
// the hardened deny rule.
var managementPorts = []string{"22", "3389", "5985", "5986"}

// nsgOutcome is the result of the NSG stage.
type nsgOutcome struct {
	// AttachID is the NSG to attach to the new NIC; empty means none
	// (the subnet's NSG applies by inheritance, or there is no NSG).
	AttachID string
	// Name of the NSG involved, for reporting. Empty if none.
	Name string
	// Mode describes the provenance for the run summary.
	Mode string
	// CreatedNew reports whether this run created the NSG. Created or
	// not, NSGs are never recorded in the rollback ledger.
	CreatedNew bool
}

// resolveNSG applies the selected NSG policy. When policy is nil the user
// picks one interactively, defaulting to hardened.
func resolveNSG(ctx context.Context, c cloudClient, p prompter, src *SourceVM, subnet armnetwork.Subnet, target Target, tags map[string]*string, policy *NSGPolicy) (nsgOutcome, error) {
	chosen, err := chooseNSGPolicy(p, policy)
	if err != nil {
		return nsgOutcome{}, err
	}

	nicNSG := sourceNICNSG(src)
	subnetNSG := subnetNSGID(subnet)

	switch chosen {
	case NSGPolicyReuse:
		if nicNSG != "" {
			name, err := azure.ResourceName(nicNSG)
			if err != nil {
				return nsgOutcome{}, fmt.Errorf("resolving source NSG: %w", err)
			}
			log.Printf("Reusing source NSG '%s'", name)
			return nsgOutcome{AttachID: nicNSG, Name: name, Mode: "reused-from-source"}, nil
		}
		if subnetNSG != "" {
			// The source's NSG association is subnet-level; the new NIC
			// inherits it by landing on the same subnet.
			name, err := azure.ResourceName(subnetNSG)
			if err != nil {
				return nsgOutcome{}, fmt.Errorf("resolving subnet NSG: %w", err)
			}
			log.Printf("Source NSG '%s' is subnet-level; the new NIC inherits it from the subnet", name)
			return nsgOutcome{Name: name, Mode: "inherited-from-subnet"}, nil
		}
		log.Printf("Warning: source VM has no NSG to reuse; creating a hardened NSG instead")
		return createHardenedNSG(ctx, c, src, target, tags)

	case NSGPolicyCopy:
		sourceID := nicNSG
		if sourceID == "" {
			sourceID = subnetNSG
		}
		if sourceID == "" {
			log.Printf("Warning: source VM has no NSG to copy; creating a hardened NSG instead")
			return createHardenedNSG(ctx, c, src, target, tags)
		}
		return copySourceNSG(ctx, c, src, target, sourceID, tags)

	default:
		return createHardenedNSG(ctx, c, src, target, tags)
	}
}

func chooseNSGPolicy(p prompter, preset *NSGPolicy) (NSGPolicy, error) {
	if preset != nil {
		return *preset, nil
	}

	options := []string{
		"Reuse the source VM's NSG",
		"Create a new hardened NSG (recommended)",
		"Copy all rules from the source NSG",
	}
	idx, err := p.Select("NSG policy for the new VM", options, 1)
	if err != nil {
		return "", err
	}
	return [...]NSGPolicy{NSGPolicyReuse, NSGPolicyHardened, NSGPolicyCopy}[idx], nil
}

// sourceNICNSG returns the ID of the NSG attached directly to the source
// NIC, or empty.
func sourceNICNSG(src *SourceVM) string {
	if src.NIC.Properties != nil && src.NIC.Properties.NetworkSecurityGroup != nil {
		return ptr.Deref(src.NIC.Properties.NetworkSecurityGroup.ID, "")
	}
	return ""
}

// subnetNSGID returns the ID of the NSG attached to the subnet, or empty.
func subnetNSGID(subnet armnetwork.Subnet) string {
	if subnet.Properties != nil && subnet.Properties.NetworkSecurityGroup != nil {
		return ptr.Deref(subnet.Properties.NetworkSecurityGroup.ID, "")
	}
	return ""
}

// createHardenedNSG creates {target}-nsg with exactly two rules: allow the
// OS-appropriate remote-management port from VirtualNetwork traffic, and
// deny the management port set from Internet traffic.
func createHardenedNSG(ctx context.Context, c cloudClient, src *SourceVM, target Target, tags map[string]*string) (nsgOutcome, error) {
	allowPort := "22"
	if src.IsWindows() {
		allowPort = "3389"
	}

	rules := []*armnetwork.SecurityRule{
		{
			Name: ptr.To("allow-mgmt-from-vnet"),
			Properties: &armnetwork.SecurityRulePropertiesFormat{
				Description:              ptr.To("Allow remote management from within the virtual network"),
				Priority:                 ptr.To(allowRulePriority),
				Direction:                ptr.To(armnetwork.SecurityRuleDirectionInbound),
				Access:                   ptr.To(armnetwork.SecurityRuleAccessAllow),
				Protocol:                 ptr.To(armnetwork.SecurityRuleProtocolTCP),
				SourceAddressPrefix:      ptr.To("VirtualNetwork"),
				SourcePortRange:          ptr.To("*"),
				DestinationAddressPrefix: ptr.To("*"),
				DestinationPortRange:     ptr.To(allowPort),
			},
		},
		{
			Name: ptr.To("deny-mgmt-from-internet"),
			Properties: &armnetwork.SecurityRulePropertiesFormat{
				Description:              ptr.To("Deny management ports from the Internet"),
				Priority:                 ptr.To(denyRulePriority),
				Direction:                ptr.To(armnetwork.SecurityRuleDirectionInbound),
				Access:                   ptr.To(armnetwork.SecurityRuleAccessDeny),
				Protocol:                 ptr.To(armnetwork.SecurityRuleProtocolAsterisk),
				SourceAddressPrefix:      ptr.To("Internet"),
				SourcePortRange:          ptr.To("*"),
				DestinationAddressPrefix: ptr.To("*"),
				DestinationPortRanges:    toPtrSlice(managementPorts),
			},
		},
	}

	return createNSGNamed(ctx, c, src, target, rules, tags, "hardened-new")
}

// copySourceNSG creates {target}-nsg replicating every custom rule of the
// source NSG.
func copySourceNSG(ctx context.Context, c cloudClient, src *SourceVM, target Target, sourceID string, tags map[string]*string) (nsgOutcome, error) {
	srcName, err := azure.ResourceName(sourceID)
	if err != nil {
		return nsgOutcome{}, fmt.Errorf("resolving source NSG: %w", err)
	}
	srcRG, err := azure.ResourceGroupOf(sourceID)
	if err != nil {
		return nsgOutcome{}, fmt.Errorf("resolving source NSG: %w", err)
	}

	log.Printf("Reading rules from source NSG '%s'...", srcName)
	sourceNSG, err := c.GetNSG(ctx, srcRG, srcName)
	if err != nil {
		if azure.IsNotFound(err) {
			return nsgOutcome{}, azure.Errorf(azure.KindNotFound, "source NSG %q not found", srcName)
		}
		return nsgOutcome{}, fmt.Errorf("reading source NSG %q: %w", srcName, err)
	}

	var rules []*armnetwork.SecurityRule
	if sourceNSG.Properties != nil {
		for _, r := range sourceNSG.Properties.SecurityRules {
			rules = append(rules, copySecurityRule(r))
		}
	}
	log.Printf("Copying %d rule(s) from '%s'", len(rules), srcName)

	return createNSGNamed(ctx, c, src, target, rules, tags, "copied-from-source")
}

// createNSGNamed creates the derived-name NSG with the given rules. A
// pre-existing NSG of that name is reused rather than duplicated or failed
// on; its rules may be stale from a previous run, so the reuse is loud.
func createNSGNamed(ctx context.Context, c cloudClient, src *SourceVM, target Target, rules []*armnetwork.SecurityRule, tags map[string]*string, mode string) (nsgOutcome, error) {
	name := naming.NSG(target.Name)

	existing, err := c.GetNSG(ctx, src.ResourceGroup, name)
	switch {
	case err == nil:
		log.Printf("Warning: NSG '%s' already exists; reusing it. Its rules may differ from this run's policy.", name)
		return nsgOutcome{
			AttachID: ptr.Deref(existing.ID, ""),
			Name:     name,
			Mode:     "reused-existing",
		}, nil
	case azure.IsNotFound(err):
		// Free to create.
	default:
		return nsgOutcome{}, fmt.Errorf("checking for existing NSG %q: %w", name, err)
	}

	log.Printf("Creating NSG '%s'...", name)
	created, err := c.CreateNSG(ctx, src.ResourceGroup, name, armnetwork.SecurityGroup{
		Location: ptr.To(src.Location),
		Tags:     tags,
		Properties: &armnetwork.SecurityGroupPropertiesFormat{
			SecurityRules: rules,
		},
	})
	if err != nil {
		return nsgOutcome{}, fmt.Errorf("creating NSG %q: %w", name, err)
	}

	return nsgOutcome{
		AttachID:   ptr.Deref(created.ID, ""),
		Name:       name,
		Mode:       mode,
		CreatedNew: true,
	}, nil
}

// copySecurityRule replicates a security rule for the new NSG, carrying
// over name, description, access, protocol, direction, priority, and the
// source/destination prefixes and ports (singular and plural forms).
func copySecurityRule(r *armnetwork.SecurityRule) *armnetwork.SecurityRule {
	if r == nil || r.Properties == nil {
		return r
	}
	p := r.Properties
	return &armnetwork.SecurityRule{
		Name: r.Name,
		Properties: &armnetwork.SecurityRulePropertiesFormat{
			Description:                p.Description,
			Access:                     p.Access,
			Protocol:                   p.Protocol,
			Direction:                  p.Direction,
			Priority:                   p.Priority,
			SourceAddressPrefix:        p.SourceAddressPrefix,
			SourceAddressPrefixes:      p.SourceAddressPrefixes,
			SourcePortRange:            p.SourcePortRange,
			SourcePortRanges:           p.SourcePortRanges,
			DestinationAddressPrefix:   p.DestinationAddressPrefix,
			DestinationAddressPrefixes: p.DestinationAddressPrefixes,
			DestinationPortRange:       p.DestinationPortRange,
			DestinationPortRanges:      p.DestinationPortRanges,
		},
	}
}

func toPtrSlice(in []string) []*string {
	out := make([]*string, len(in))
	for i := range in {
		out[i] = ptr.To(in[i])
	}
	return out
}
