package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes   = []byte("nodes")
	bucketNetwork = []byte("network")
	keyNetState   = []byte("state")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketNetwork} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func putNode(b *bolt.Bucket, node *NodeRecord) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return b.Put([]byte(node.Key()), data)
}

func (s *BoltStore) SaveNode(node *NodeRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		return putNode(b, node)
	})
}

func (s *BoltStore) GetNode(homeID uint32, nodeID uint8) (*NodeRecord, error) {
	var node NodeRecord
	key := NodeKey(homeID, nodeID)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("node %s: %w", key, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) DeleteNode(homeID uint32, nodeID uint8) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		return b.Delete([]byte(NodeKey(homeID, nodeID)))
	})
}

func (s *BoltStore) ListNodes() ([]*NodeRecord, error) {
	var nodes []*NodeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return nil // no bucket = no nodes
		}
		nodes = make([]*NodeRecord, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var node NodeRecord
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(homeID uint32, nodeID uint8, fn func(node *NodeRecord) error) error {
	key := NodeKey(homeID, nodeID)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("node %s: %w", key, ErrNotFound)
		}
		var node NodeRecord
		if err := json.Unmarshal(data, &node); err != nil {
			return err
		}
		if err := fn(&node); err != nil {
			return err
		}
		// The key is fixed; fn may not move the record.
		node.HomeID, node.NodeID = homeID, nodeID
		return putNode(b, &node)
	})
}

func (s *BoltStore) SaveNetworkState(state *NetworkState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return b.Put(keyNetState, data)
	})
}

func (s *BoltStore) GetNetworkState() (*NetworkState, error) {
	var state NetworkState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data := b.Get(keyNetState)
		if data == nil {
			return fmt.Errorf("network state: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
