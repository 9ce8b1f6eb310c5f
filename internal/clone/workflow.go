package clone

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jbweber/anvil/internal/azure"
	"github.com/jbweber/anvil/internal/console"
)

// Execute runs the full clone workflow against a connected client:
//
//  1. Resolve the source VM, its OS disk, and its primary NIC
//  2. Collect and validate the target name and size
//  3. Run the provisioning pipeline (snapshot → disk → network → NSG →
//     NIC → diagnostics storage → VM)
//  4. Offer to delete the intermediate snapshot
//
// Steps 1-2 are read-only; a failure there aborts with no rollback
// needed. Any failure inside step 3 triggers best-effort rollback of
// everything the run created, and the triggering error is returned.
func Execute(ctx context.Context, client *azure.Client, cons *console.Console, opts Options) (*Result, error) {
	return execute(ctx, client, cons, opts)
}

// execute is Execute with injected dependencies, for testing.
func execute(ctx context.Context, c cloudClient, p prompter, opts Options) (*Result, error) {
	if opts.Creator == "" {
		opts.Creator = defaultCreator()
	}

	src, err := ResolveSource(ctx, c, opts.ResourceGroup, opts.SourceName)
	if err != nil {
		return nil, err
	}
	log.Printf("Source resolved: %s (%s, %s) in %s", src.Name, src.OSType, src.Size, src.Location)

	target, err := ConfigureTarget(ctx, c, p, src, opts.TargetName, opts.TargetSize)
	if err != nil {
		return nil, err
	}

	pl := newPipeline(c, p, src, target, opts)
	result, err := pl.run(ctx)
	if err != nil {
		return nil, err
	}

	offerSnapshotCleanup(ctx, c, p, result, opts.AssumeYes)
	return result, nil
}

// offerSnapshotCleanup asks whether to remove the intermediate snapshot
// now that the clone exists. Declining, or a failed deletion, never turns
// a successful run into a failure.
func offerSnapshotCleanup(ctx context.Context, c cloudClient, p prompter, result *Result, assumeYes bool) {
	if assumeYes {
		// The default answer is to keep the snapshot.
		return
	}

	del, err := p.Confirm(fmt.Sprintf("Delete intermediate snapshot %q?", result.SnapshotName), false)
	if err != nil || !del {
		return
	}

	log.Printf("Deleting snapshot '%s'...", result.SnapshotName)
	if err := c.DeleteSnapshot(ctx, result.ResourceGroup, result.SnapshotName); err != nil {
		log.Printf("Warning: failed to delete snapshot %q: %v", result.SnapshotName, err)
		return
	}
	result.SnapshotDeleted = true
}

func defaultCreator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anvil"
}
