package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/stonegrid/quarry/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRacks = []byte("racks")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "quarry.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRacks); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRacks, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Rack controller operations

func (s *BoltStore) CreateRack(rack *types.RackController) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRacks)
		data, err := json.Marshal(rack)
		if err != nil {
			return err
		}
		return b.Put([]byte(rack.Ident), data)
	})
}

func (s *BoltStore) GetRack(ident string) (*types.RackController, error) {
	var rack types.RackController
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRacks)
		data := b.Get([]byte(ident))
		if data == nil {
			return fmt.Errorf("rack controller %s: %w", ident, ErrNotFound)
		}
		return json.Unmarshal(data, &rack)
	})
	if err != nil {
		return nil, err
	}
	return &rack, nil
}

func (s *BoltStore) ListRacks() ([]*types.RackController, error) {
	var racks []*types.RackController
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRacks)
		return b.ForEach(func(k, v []byte) error {
			var rack types.RackController
			if err := json.Unmarshal(v, &rack); err != nil {
				return err
			}
			racks = append(racks, &rack)
			return nil
		})
	})
	return racks, err
}

func (s *BoltStore) UpdateRack(rack *types.RackController) error {
	return s.CreateRack(rack) // Same as create (upsert)
}

func (s *BoltStore) DeleteRack(ident string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRacks)
		return b.Delete([]byte(ident))
	})
}
