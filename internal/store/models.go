package store

import (
	"fmt"
	"time"
)

// NodeRecord is the persisted snapshot of a Z-Wave node. It lets the service
// list nodes seen in earlier sessions before the manager has reported them.
type NodeRecord struct {
	HomeID           uint32    `json:"home_id"`
	NodeID           uint8     `json:"node_id"`
	Name             string    `json:"name,omitempty"`
	Location         string    `json:"location,omitempty"`
	ProductName      string    `json:"product_name,omitempty"`
	ProductType      string    `json:"product_type,omitempty"`
	ProductID        string    `json:"product_id,omitempty"`
	ManufacturerName string    `json:"manufacturer_name,omitempty"`
	ManufacturerID   string    `json:"manufacturer_id,omitempty"`
	Type             string    `json:"type,omitempty"`
	CommandClasses   []int     `json:"command_classes,omitempty"`
	Ready            bool      `json:"ready"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
}

// Key returns the record's storage key.
func (n *NodeRecord) Key() string {
	return NodeKey(n.HomeID, n.NodeID)
}

// NodeKey formats the storage key of a node: home ID in hex, node ID in
// zero-padded decimal. Keys sort by network, then node.
func NodeKey(homeID uint32, nodeID uint8) string {
	return fmt.Sprintf("%08X-%03d", homeID, nodeID)
}

// NetworkState holds the last network the service was attached to.
type NetworkState struct {
	HomeID           uint32    `json:"home_id"`
	ControllerNodeID uint8     `json:"controller_node_id"`
	Device           string    `json:"device"`
	LibraryVersion   string    `json:"library_version,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}
