package interfaces

import (
	"context"

	"github.com/relocato/mailbridge/internal/errs"
)

type ReconcileResult struct {
	Written int              `json:"written"`
	Skipped int              `json:"skipped"`
	Errors  []errs.ItemError `json:"errors,omitempty"`
}

// SyncService persists fetched messages for an owner. Reconciliation is
// idempotent under identical input; repeated or overlapping calls converge
// on the same stored state.
type SyncService interface {
	// Reconcile upserts the given messages under (ownerId, folder, uid).
	// forceResync replaces stored records outright instead of merging.
	Reconcile(ctx context.Context, ownerID, folder string, messages []MessageDetail, forceResync bool) (*ReconcileResult, error)

	// SyncFolder lists the folder page by page starting after the last
	// synced UID and reconciles what it fetched.
	SyncFolder(ctx context.Context, ownerID, folder string, forceResync bool) (*ReconcileResult, error)
}
