package interviews

import (
	"context"
	"time"
)

// Store persists sessions by id. Get returns ErrNotFound for unknown or
// expired sessions. Lock serialises mutations of one session; the returned
// func releases it.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
	Lock(ctx context.Context, id string) (func(), error)
}
