package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/ropsim/pkg/remote"
)

// Names of the simulator's readiness checks.
const (
	CheckRemoteStore = "remote_store"
	CheckBootstrap   = "bootstrap"
)

var (
	ErrRemoteDisconnected = errors.New("remote store not connected")
	ErrBootstrapPending   = errors.New("bootstrap not complete")
)

// RemoteStoreCheck fails while the store has no usable session.
func RemoteStoreCheck(store remote.Store) CheckFunc {
	return func(ctx context.Context) error {
		if !store.Connected(ctx) {
			return ErrRemoteDisconnected
		}
		return nil
	}
}

// Progress is what BootstrapCheck needs from the engine.
type Progress interface {
	IsComplete() bool
	Live() int
	Expected() int
}

// BootstrapCheck fails until the live set reaches its expected size.
func BootstrapCheck(p Progress) CheckFunc {
	return func(context.Context) error {
		if !p.IsComplete() {
			return fmt.Errorf("%w: %d of %d live", ErrBootstrapPending, p.Live(), p.Expected())
		}
		return nil
	}
}
