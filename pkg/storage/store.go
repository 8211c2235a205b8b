package storage

import (
	"errors"

	"github.com/stonegrid/quarry/pkg/types"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the interface for region state storage.
// Implemented by BoltDB-backed storage; the raft FSM is the only writer.
type Store interface {
	// Rack controllers
	CreateRack(rack *types.RackController) error
	GetRack(ident string) (*types.RackController, error)
	ListRacks() ([]*types.RackController, error)
	UpdateRack(rack *types.RackController) error
	DeleteRack(ident string) error

	// Utility
	Close() error
}
