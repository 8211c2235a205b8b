package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
	"github.com/stonegrid/quarry/pkg/storage"
	"github.com/stonegrid/quarry/pkg/types"
)

// RegionFSM implements the Raft finite state machine for the region's
// replicated state. It applies committed log entries to the local store
// and handles snapshots.
type RegionFSM struct {
	mu    sync.RWMutex
	store storage.Store
}

// NewRegionFSM creates a new FSM instance
func NewRegionFSM(store storage.Store) *RegionFSM {
	return &RegionFSM{
		store: store,
	}
}

// Command represents a state change operation in the Raft log
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Apply applies a Raft log entry to the FSM
// This is called by Raft when a log entry is committed
func (f *RegionFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case "create_rack":
		var rack types.RackController
		if err := json.Unmarshal(cmd.Data, &rack); err != nil {
			return err
		}
		return f.store.CreateRack(&rack)

	case "update_rack":
		var rack types.RackController
		if err := json.Unmarshal(cmd.Data, &rack); err != nil {
			return err
		}
		return f.store.UpdateRack(&rack)

	case "delete_rack":
		var ident string
		if err := json.Unmarshal(cmd.Data, &ident); err != nil {
			return err
		}
		return f.store.DeleteRack(ident)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot creates a point-in-time snapshot of the FSM
// This is called periodically by Raft to compact the log
func (f *RegionFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	racks, err := f.store.ListRacks()
	if err != nil {
		return nil, fmt.Errorf("failed to list racks: %w", err)
	}

	return &regionSnapshot{Racks: racks}, nil
}

// Restore restores the FSM from a snapshot
// This is called when a node restarts or joins the cluster
func (f *RegionFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot regionSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rack := range snapshot.Racks {
		if err := f.store.CreateRack(rack); err != nil {
			return fmt.Errorf("failed to restore rack: %w", err)
		}
	}

	return nil
}

// regionSnapshot represents a point-in-time snapshot of region state
type regionSnapshot struct {
	Racks []*types.RackController
}

// Persist writes the snapshot to the given SnapshotSink
func (s *regionSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
	}

	return err
}

// Release releases the snapshot resources
func (s *regionSnapshot) Release() {}
