package clone

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"k8s.io/utils/ptr"

	"github.com/jbweber/anvil/internal/naming"
)

// diagOutcome is the result of the diagnostics-storage stage.
type diagOutcome struct {
	AccountName  string
	BlobEndpoint string
	// CreatedNew reports whether this run created the account. Reused
	// accounts are never rolled back.
	CreatedNew bool
}

// resolveDiagStorage finds or creates the boot-diagnostics storage account
// for the new VM.
//
// An existing account in the resource group whose name matches the
// diagnostics pattern is offered for reuse (default yes). Declined or
// absent, a new Standard_LRS StorageV2 account is created with a
// randomized numeric suffix.
func resolveDiagStorage(ctx context.Context, c cloudClient, p prompter, src *SourceVM, target Target, tags map[string]*string, rng *rand.Rand, assumeYes bool) (diagOutcome, error) {
	log.Printf("Searching resource group '%s' for a diagnostics storage account...", src.ResourceGroup)

	accounts, err := c.ListStorageAccounts(ctx, src.ResourceGroup)
	if err != nil {
		return diagOutcome{}, fmt.Errorf("listing storage accounts: %w", err)
	}

	for _, acct := range accounts {
		name := ptr.Deref(acct.Name, "")
		if name == "" || !naming.IsDiagStorageAccount(name) {
			continue
		}

		reuse := true
		if !assumeYes {
			reuse, err = p.Confirm(fmt.Sprintf("Reuse existing diagnostics storage account %q?", name), true)
			if err != nil {
				return diagOutcome{}, err
			}
		}
		if !reuse {
			break
		}

		log.Printf("Reusing diagnostics storage account '%s'", name)
		return diagOutcome{
			AccountName:  name,
			BlobEndpoint: blobEndpoint(acct),
		}, nil
	}

	name := naming.DiagStorageAccount(rng)
	log.Printf("Creating diagnostics storage account '%s'...", name)

	created, err := c.CreateStorageAccount(ctx, src.ResourceGroup, name, armstorage.AccountCreateParameters{
		Location: ptr.To(src.Location),
		Kind:     ptr.To(armstorage.KindStorageV2),
		SKU:      &armstorage.SKU{Name: ptr.To(armstorage.SKUNameStandardLRS)},
		Tags:     diagTags(tags, target.Name),
	})
	if err != nil {
		return diagOutcome{}, fmt.Errorf("creating storage account %q: %w", name, err)
	}

	return diagOutcome{
		AccountName:  name,
		BlobEndpoint: blobEndpoint(&created),
		CreatedNew:   true,
	}, nil
}

// diagTags extends the run's provenance tags with the account's purpose
// and target VM.
func diagTags(base map[string]*string, targetVM string) map[string]*string {
	tags := make(map[string]*string, len(base)+2)
	for k, v := range base {
		tags[k] = v
	}
	tags["purpose"] = ptr.To("boot-diagnostics")
	tags["target-vm"] = ptr.To(targetVM)
	return tags
}

func blobEndpoint(acct *armstorage.Account) string {
	if acct == nil || acct.Properties == nil || acct.Properties.PrimaryEndpoints == nil {
		return ""
	}
	return ptr.Deref(acct.Properties.PrimaryEndpoints.Blob, "")
}
