package profiles

import (
	"context"

	"zentry/engine/library"
)

// Backend persists whole profiles. Load returns library.ErrNotFound for unknown addresses.
// Callers serialize writes per address, so implementations only need to be safe for concurrent
// use across addresses.
type Backend interface {
	Load(ctx context.Context, address library.Account) (Profile, error)
	Save(ctx context.Context, profile Profile) error
	Addresses(ctx context.Context) ([]library.Account, error)
	Close() error
}
