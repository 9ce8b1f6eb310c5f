package azure

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

// SubnetID is the decomposed form of a subnet resource identifier.
//
// A subnet ID has the shape:
//
//	/subscriptions/{sub}/resourceGroups/{rg}/providers/Microsoft.Network/virtualNetworks/{vnet}/subnets/{subnet}
type SubnetID struct {
	SubscriptionID string
	ResourceGroup  string
	VNetName       string
	SubnetName     string
}

// String reassembles the canonical resource identifier.
func (s SubnetID) String() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Network/virtualNetworks/%s/subnets/%s",
		s.SubscriptionID, s.ResourceGroup, s.VNetName, s.SubnetName)
}

// ParseSubnetID parses and validates a subnet resource identifier.
//
// Unlike positional segment splitting, this validates the provider and
// resource-type segments and fails with a descriptive error on any other
// identifier shape, rather than returning wrong components silently.
func ParseSubnetID(id string) (SubnetID, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return SubnetID{}, fmt.Errorf("malformed resource identifier %q: %w", id, err)
	}

	if !strings.EqualFold(rid.ResourceType.Namespace, "Microsoft.Network") ||
		!strings.EqualFold(rid.ResourceType.Type, "virtualNetworks/subnets") {
		return SubnetID{}, fmt.Errorf("identifier %q is a %s/%s, expected Microsoft.Network/virtualNetworks/subnets",
			id, rid.ResourceType.Namespace, rid.ResourceType.Type)
	}

	if rid.Parent == nil || rid.Parent.Name == "" {
		return SubnetID{}, fmt.Errorf("identifier %q has no parent virtual network", id)
	}

	return SubnetID{
		SubscriptionID: rid.SubscriptionID,
		ResourceGroup:  rid.ResourceGroupName,
		VNetName:       rid.Parent.Name,
		SubnetName:     rid.Name,
	}, nil
}

// ResourceName extracts the trailing name segment from any ARM resource
// identifier, validating the overall identifier shape first.
func ResourceName(id string) (string, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return "", fmt.Errorf("malformed resource identifier %q: %w", id, err)
	}
	return rid.Name, nil
}

// ResourceGroupOf extracts the resource-group segment from any ARM resource
// identifier.
func ResourceGroupOf(id string) (string, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return "", fmt.Errorf("malformed resource identifier %q: %w", id, err)
	}
	return rid.ResourceGroupName, nil
}
