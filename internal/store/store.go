package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Node operations
	SaveNode(node *NodeRecord) error
	GetNode(homeID uint32, nodeID uint8) (*NodeRecord, error)
	DeleteNode(homeID uint32, nodeID uint8) error
	ListNodes() ([]*NodeRecord, error)

	// UpdateNode atomically reads, modifies, and saves a node in a single
	// transaction. Returns ErrNotFound if the node does not exist.
	UpdateNode(homeID uint32, nodeID uint8, fn func(node *NodeRecord) error) error

	// Network state
	SaveNetworkState(state *NetworkState) error
	GetNetworkState() (*NetworkState, error)

	// Close the store
	Close() error
}
