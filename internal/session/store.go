// Package session owns the per-account conversation state lifecycle.
//
// The state machine never touches a map directly; it goes through Store
// so the memory backend (single instance) can be swapped for redis when
// running more than one process.
package session

import (
	"context"

	"orderhub-bot/internal/model"
)

// Store is a keyed session store with explicit create/read/delete
// lifecycle. Get returns (nil, nil) when the account has no live
// session, which the state machine treats as Idle.
type Store interface {
	Get(ctx context.Context, accountID int64) (*model.Session, error)
	Put(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, accountID int64) error

	// Close releases backend resources.
	Close() error
}
