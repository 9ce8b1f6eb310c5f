package clone

import (
	"context"
	"fmt"
	"log"

	"github.com/jbweber/anvil/internal/azure"
)

// ConfigureTarget collects and validates the configuration for the new VM.
//
// The name must not collide with an existing VM in the source's resource
// group; a collision is a Conflict and aborts before anything is created.
// The size defaults to the source VM's size and is not validated against
// regional availability — an invalid size fails at VM creation time.
func ConfigureTarget(ctx context.Context, c cloudClient, p prompter, src *SourceVM, presetName, presetSize string) (Target, error) {
	name := presetName
	if name == "" {
		var err error
		name, err = p.Input("New VM name", "", true)
		if err != nil {
			return Target{}, err
		}
	}

	log.Printf("Checking name '%s' for collisions in resource group '%s'...", name, src.ResourceGroup)
	_, err := c.GetVM(ctx, src.ResourceGroup, name)
	switch {
	case err == nil:
		return Target{}, azure.Errorf(azure.KindConflict, "a VM named %q already exists in resource group %q", name, src.ResourceGroup)
	case azure.IsNotFound(err):
		// Name is free.
	default:
		return Target{}, fmt.Errorf("checking for VM name collision: %w", err)
	}

	size := presetSize
	if size == "" {
		size, err = p.Input("VM size", src.Size, true)
		if err != nil {
			return Target{}, err
		}
	}

	return Target{Name: name, Size: size}, nil
}
