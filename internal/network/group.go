package network

import (
	"fmt"

	"zwave-go-home/internal/manager"
)

// Group is an association group of a node. Every accessor reads through to
// the manager; membership changes are queued and confirmed by a group event.
type Group struct {
	node  *Node
	index uint8
}

// Index is the 1-based group number.
func (g *Group) Index() uint8 { return g.index }

// NodeID is the node owning the group.
func (g *Group) NodeID() uint8 { return g.node.id }

func (g *Group) Label() string {
	return manager.Decode(g.node.mgr.GetGroupLabel(g.node.homeID(), g.node.id, g.index))
}

func (g *Group) MaxAssociations() uint8 {
	return g.node.mgr.GetMaxAssociations(g.node.homeID(), g.node.id, g.index)
}

// Associations returns the node IDs currently in the group.
func (g *Group) Associations() []uint8 {
	return g.node.mgr.GetAssociations(g.node.homeID(), g.node.id, g.index)
}

func (g *Group) AddAssociation(target uint8) error {
	g.node.logger.Debug("add association", "group", g.index, "target", target)
	return g.node.mgr.AddAssociation(g.node.homeID(), g.node.id, g.index, target)
}

func (g *Group) RemoveAssociation(target uint8) error {
	g.node.logger.Debug("remove association", "group", g.index, "target", target)
	return g.node.mgr.RemoveAssociation(g.node.homeID(), g.node.id, g.index, target)
}

func (g *Group) String() string {
	return fmt.Sprintf("index: [%d] label: [%s]", g.index, g.Label())
}

// GroupInfo is a point-in-time view of a group.
type GroupInfo struct {
	Index           uint8  `json:"index"`
	Label           string `json:"label"`
	MaxAssociations uint8  `json:"max_associations"`
	Associations    []int  `json:"associations"`
}

// Info returns a snapshot of the group.
func (g *Group) Info() GroupInfo {
	return GroupInfo{
		Index:           g.index,
		Label:           g.Label(),
		MaxAssociations: g.MaxAssociations(),
		Associations:    toInts(g.Associations()),
	}
}
