package clone

import (
	"context"
	"log"
)

// rollback removes every ledgered resource, best-effort: a failed deletion
// is logged and the walk continues. Resources go in reverse creation
// order, except storage accounts, which are removed last because boot
// diagnostics references them until the VM is gone.
//
// NSGs never appear in the ledger, so rollback never deletes one. The
// error that triggered the rollback is the caller's to surface; nothing
// here escalates.
func (p *pipeline) rollback(ctx context.Context) {
	log.Printf("Rolling back %d created resource(s)...", p.ledger.Len())

	var deferred []CreatedResource
	for _, r := range p.ledger.Reversed() {
		if r.Kind == KindStorageAccount {
			deferred = append(deferred, r)
			continue
		}
		p.deleteCreated(ctx, r)
	}
	for _, r := range deferred {
		p.deleteCreated(ctx, r)
	}

	log.Printf("Rollback complete")
}

func (p *pipeline) deleteCreated(ctx context.Context, r CreatedResource) {
	log.Printf("Deleting %s...", r)

	var err error
	switch r.Kind {
	case KindVM:
		err = p.c.DeleteVM(ctx, r.ResourceGroup, r.Name)
	case KindNIC:
		err = p.c.DeleteNIC(ctx, r.ResourceGroup, r.Name)
	case KindDisk:
		err = p.c.DeleteDisk(ctx, r.ResourceGroup, r.Name)
	case KindSnapshot:
		err = p.c.DeleteSnapshot(ctx, r.ResourceGroup, r.Name)
	case KindStorageAccount:
		err = p.c.DeleteStorageAccount(ctx, r.ResourceGroup, r.Name)
	default:
		log.Printf("Warning: unknown resource kind %q in ledger, skipping", r.Kind)
		return
	}

	if err != nil {
		log.Printf("Warning: failed to delete %s: %v", r, err)
	}
}
