package risk

import (
	"context"
)

// ProfileSource supplies the lagging violation counts for a user
type ProfileSource interface {
	// ProfileCounts returns the live counts feeding a risk snapshot
	ProfileCounts(ctx context.Context, userID int64) (ProfileCounts, error)
}

// GuarantorLookup reports whether a user holds an assigned guarantor request
type GuarantorLookup interface {
	// HasAssigned reports whether the user has a guarantor request in
	// ASSIGNED status no older than maxAgeDays. maxAgeDays <= 0 disables
	// the age check.
	HasAssigned(ctx context.Context, userID int64, maxAgeDays int) (bool, error)
}
