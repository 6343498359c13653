// Package source defines the event source the feed reads from and publishes
// to, and its Nostr relay implementation.
package source

import (
	"context"

	"github.com/tOgg1/nostrfeed/internal/models"
)

// Event kinds the feed uses.
const (
	KindMetadata    = 0
	KindTextNote    = 1
	KindContactList = 3
)

// Filter selects events from the source.
type Filter struct {
	Author models.Identity
	Kind   int
	Since  int64 // unix seconds; 0 means no lower bound
	Limit  int   // 0 means source default
}

// RawEvent is an event as delivered by the source, before thread resolution.
type RawEvent struct {
	ID        string
	Author    models.Identity
	Kind      int
	CreatedAt int64
	Content   string
	Tags      []models.RawTag
}

// EventSource is the remote collaborator. Implementations must be safe for
// concurrent use by many simultaneous queries.
type EventSource interface {
	// FetchEvents runs one query under the source's own time budget.
	FetchEvents(ctx context.Context, filter Filter) ([]RawEvent, error)
	// Publish signs and sends a text note with optional tags, returning its id.
	Publish(ctx context.Context, content string, tags []models.RawTag) (string, error)
	// Self is the identity the source signs with.
	Self() models.Identity
}
