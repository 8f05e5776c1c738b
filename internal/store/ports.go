// Package store defines the contract every record backend satisfies:
// subscribe to an owner's live record set, and create, update or delete
// records within that owner's partition. Backends live in the local and
// remote subpackages; selection happens once per owner in internal/backend.
package store

import (
	"context"

	"flowledger/internal/core"
)

type (
	// Store is the uniform record backend contract. Writes clean their
	// input before persisting; reads arrive through Subscribe as full
	// snapshots sorted date-descending.
	Store interface {
		// Subscribe opens a live view of the owner's record set. The
		// first snapshot is delivered immediately; subsequent ones
		// follow every change until Cancel is called.
		Subscribe(ctx context.Context, ownerID string) (*Subscription, error)

		// Create adds a new record from cleaned input and returns it.
		Create(ctx context.Context, ownerID string, in core.Input) (core.Transaction, error)

		// Update replaces all user-editable fields of an existing record.
		Update(ctx context.Context, ownerID, id string, in core.Input) error

		// Delete removes a record.
		Delete(ctx context.Context, ownerID, id string) error

		// Close releases backend resources.
		Close() error
	}

	// Snapshot is one delivery on a subscription: either the full
	// record set or a store-level error with an empty set. Consumers
	// treat an error as "reset to empty, show the message, stop loading".
	Snapshot struct {
		Records []core.Transaction
		Err     error
	}
)

// Mode names the selected backend for an owner.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// SelectMode resolves the backend for an owner. The demo identity and any
// session without a configured remote stack stay local; everyone else goes
// remote. Pure function: resolved once per owner change, never mixed
// mid-session.
func SelectMode(remoteAvailable bool, ownerID string) Mode {
	if !remoteAvailable || ownerID == core.DemoOwnerID {
		return ModeLocal
	}
	return ModeRemote
}
