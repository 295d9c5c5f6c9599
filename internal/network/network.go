package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/store"
)

// Network states reported by State.
const (
	StateStopped     = "stopped"
	StateStarting    = "starting"
	StateDriverReady = "driver_ready"
	StateReady       = "ready"
	StateFailed      = "failed"
)

// ErrDriverFailed is returned by Start when the manager could not open the
// controller.
var ErrDriverFailed = errors.New("driver failed")

// Config holds network configuration.
type Config struct {
	Device string
	// RefreshConcurrency bounds RefreshAllNodes. 0 means 4.
	RefreshConcurrency int
}

// NodeEventData is the payload of node events.
type NodeEventData struct {
	NodeID uint8     `json:"node_id"`
	Node   *NodeInfo `json:"node,omitempty"`
	Event  uint8     `json:"event,omitempty"`
	Group  uint8     `json:"group,omitempty"`
}

// ValueEventData is the payload of value events.
type ValueEventData struct {
	NodeID uint8  `json:"node_id"`
	Value  *Value `json:"value"`
}

// Network tracks the nodes of one Z-Wave network and keeps them in sync with
// manager notifications.
type Network struct {
	mgr    manager.Manager
	store  store.Store
	events *EventBus
	logger *slog.Logger
	config Config

	homeID atomic.Uint32
	state  atomic.Value // string

	mu    sync.RWMutex
	nodes map[uint8]*Node

	driverOnce sync.Once
	driverDone chan struct{}
	driverErr  error

	readyOnce sync.Once
	ready     chan struct{}

	controller *Controller
}

// New creates a Network and subscribes it to mgr's notifications. st may be
// nil to disable persistence.
func New(mgr manager.Manager, st store.Store, events *EventBus, cfg Config, logger *slog.Logger) *Network {
	if cfg.RefreshConcurrency <= 0 {
		cfg.RefreshConcurrency = 4
	}
	n := &Network{
		mgr:        mgr,
		store:      st,
		events:     events,
		logger:     logger.With("component", "network"),
		config:     cfg,
		nodes:      make(map[uint8]*Node),
		driverDone: make(chan struct{}),
		ready:      make(chan struct{}),
	}
	n.state.Store(StateStopped)
	n.controller = &Controller{net: n}
	mgr.OnNotification(n.handleNotification)
	return n
}

// Start attaches the manager to the configured device and waits until the
// driver reports ready or ctx is done. Node discovery continues in the
// background; use WaitReady to wait for it.
func (n *Network) Start(ctx context.Context) error {
	n.state.Store(StateStarting)
	n.logger.Info("starting driver", "device", n.config.Device)
	if err := n.mgr.AddDriver(manager.Encode(n.config.Device)); err != nil {
		n.state.Store(StateFailed)
		return fmt.Errorf("add driver %s: %w", n.config.Device, err)
	}
	// Managers may report ready before AddDriver returns.
	select {
	case <-n.driverDone:
		return n.driverErr
	default:
	}
	select {
	case <-n.driverDone:
		return n.driverErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitReady blocks until every awake node has been queried.
func (n *Network) WaitReady(ctx context.Context) error {
	select {
	case <-n.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop detaches the manager from the device.
func (n *Network) Stop() error {
	n.state.Store(StateStopped)
	if err := n.mgr.RemoveDriver(manager.Encode(n.config.Device)); err != nil {
		return fmt.Errorf("remove driver %s: %w", n.config.Device, err)
	}
	return nil
}

// HomeID returns the network's home ID, or 0 before the driver is ready.
func (n *Network) HomeID() uint32 { return n.homeID.Load() }

// HomeIDString formats the home ID as 0x-prefixed hex.
func (n *Network) HomeIDString() string {
	return fmt.Sprintf("0x%08x", n.HomeID())
}

// State returns the lifecycle state.
func (n *Network) State() string { return n.state.Load().(string) }

func (n *Network) Controller() *Controller { return n.controller }

func (n *Network) Manager() manager.Manager { return n.mgr }

func (n *Network) Events() *EventBus { return n.events }

func (n *Network) Store() store.Store { return n.store }

// Node returns a node by ID.
func (n *Network) Node(id uint8) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[id]
	return node, ok
}

// Nodes returns all nodes ordered by ID.
func (n *Network) Nodes() []*Node {
	n.mu.RLock()
	out := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		out = append(out, node)
	}
	n.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Node) int { return int(a.id) - int(b.id) })
	return out
}

// NodeCount returns the number of known nodes.
func (n *Network) NodeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// KnownNodes returns the persisted records of this network, including nodes
// not reported in the current session.
func (n *Network) KnownNodes() ([]*store.NodeRecord, error) {
	if n.store == nil {
		return nil, nil
	}
	all, err := n.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	home := n.HomeID()
	out := all[:0]
	for _, rec := range all {
		if home == 0 || rec.HomeID == home {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RefreshAllNodes asks the manager to re-query every node, with at most
// Config.RefreshConcurrency requests in flight.
func (n *Network) RefreshAllNodes(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.config.RefreshConcurrency)
	for _, node := range n.Nodes() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := node.RefreshInfo(); err != nil {
				return fmt.Errorf("refresh node %d: %w", node.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Info is a point-in-time view of the network.
type Info struct {
	HomeID     string         `json:"home_id"`
	State      string         `json:"state"`
	NodeCount  int            `json:"node_count"`
	Controller ControllerInfo `json:"controller"`
}

func (n *Network) Info() Info {
	return Info{
		HomeID:     n.HomeIDString(),
		State:      n.State(),
		NodeCount:  n.NodeCount(),
		Controller: n.controller.Info(),
	}
}

func (n *Network) handleNotification(note manager.Notification) {
	if home := n.HomeID(); home != 0 && note.HomeID != 0 && note.HomeID != home {
		n.logger.Debug("notification for other network", "home_id", fmt.Sprintf("0x%08x", note.HomeID))
		return
	}

	switch note.Type {
	case manager.NotificationDriverReady:
		n.homeID.Store(note.HomeID)
		n.state.Store(StateDriverReady)
		n.logger.Info("driver ready", "home_id", n.HomeIDString(), "controller", note.NodeID)
		n.saveNetworkState()
		n.driverOnce.Do(func() { close(n.driverDone) })
		n.events.Emit(Event{Type: EventDriverReady, Data: n.HomeIDString()})

	case manager.NotificationDriverFailed:
		n.state.Store(StateFailed)
		n.logger.Error("driver failed", "device", n.config.Device)
		n.driverOnce.Do(func() {
			n.driverErr = fmt.Errorf("%s: %w", n.config.Device, ErrDriverFailed)
			close(n.driverDone)
		})

	case manager.NotificationDriverReset:
		n.mu.Lock()
		dropped := make([]uint8, 0, len(n.nodes))
		for id := range n.nodes {
			dropped = append(dropped, id)
		}
		clear(n.nodes)
		n.mu.Unlock()
		slices.Sort(dropped)
		n.state.Store(StateStarting)
		n.logger.Warn("driver reset, dropping nodes", "nodes", len(dropped))
		for _, id := range dropped {
			n.events.Emit(Event{Type: EventNodeRemoved, Data: NodeEventData{NodeID: id}})
		}
		n.events.Emit(Event{Type: EventDriverReset, Data: n.HomeIDString()})

	case manager.NotificationNodeAdded, manager.NotificationNodeNew:
		node := n.ensureNode(note.NodeID)
		n.persistNode(node)
		info := node.Snapshot()
		n.events.Emit(Event{Type: EventNodeAdded, Data: NodeEventData{NodeID: note.NodeID, Node: &info}})

	case manager.NotificationNodeRemoved:
		n.mu.Lock()
		_, ok := n.nodes[note.NodeID]
		delete(n.nodes, note.NodeID)
		n.mu.Unlock()
		if !ok {
			return
		}
		n.logger.Info("node removed", "node", note.NodeID)
		if n.store != nil {
			if err := n.store.DeleteNode(n.HomeID(), note.NodeID); err != nil && !errors.Is(err, store.ErrNotFound) {
				n.logger.Error("delete node", "node", note.NodeID, "err", err)
			}
		}
		n.events.Emit(Event{Type: EventNodeRemoved, Data: NodeEventData{NodeID: note.NodeID}})

	case manager.NotificationNodeNaming, manager.NotificationNodeProtocolInfo:
		node, ok := n.Node(note.NodeID)
		if !ok {
			return
		}
		n.persistNode(node)
		info := node.Snapshot()
		n.events.Emit(Event{Type: EventNodeNaming, Data: NodeEventData{NodeID: note.NodeID, Node: &info}})

	case manager.NotificationNodeQueriesComplete:
		node, ok := n.Node(note.NodeID)
		if !ok {
			return
		}
		node.SetReady(true)
		n.logger.Info("node ready", "node", note.NodeID, "name", node.Name())
		n.persistNode(node)
		info := node.Snapshot()
		n.events.Emit(Event{Type: EventNodeReady, Data: NodeEventData{NodeID: note.NodeID, Node: &info}})

	case manager.NotificationNodeEvent:
		n.events.Emit(Event{Type: EventNodeEvent, Data: NodeEventData{NodeID: note.NodeID, Event: note.Event}})

	case manager.NotificationValueAdded, manager.NotificationValueChanged, manager.NotificationValueRefreshed:
		if note.Value == nil {
			return
		}
		node := n.ensureNode(note.NodeID)
		v := NewValue(note.Value)
		node.AddValue(v)
		typ := EventValueChanged
		if note.Type == manager.NotificationValueAdded {
			typ = EventValueAdded
		}
		n.events.Emit(Event{Type: typ, Data: ValueEventData{NodeID: note.NodeID, Value: v}})

	case manager.NotificationValueRemoved:
		if note.Value == nil {
			return
		}
		node, ok := n.Node(note.NodeID)
		if !ok || !node.RemoveValue(note.Value.ID) {
			return
		}
		n.events.Emit(Event{Type: EventValueRemoved, Data: ValueEventData{NodeID: note.NodeID, Value: NewValue(note.Value)}})

	case manager.NotificationGroup:
		n.events.Emit(Event{Type: EventGroupChanged, Data: NodeEventData{NodeID: note.NodeID, Group: note.GroupIdx}})

	case manager.NotificationAwakeNodesQueried, manager.NotificationAllNodesQueried:
		n.state.Store(StateReady)
		n.logger.Info("network ready", "nodes", n.NodeCount(), "all", note.Type == manager.NotificationAllNodesQueried)
		n.readyOnce.Do(func() { close(n.ready) })
		n.events.Emit(Event{Type: EventNetworkReady, Data: n.HomeIDString()})

	default:
		n.logger.Debug("unhandled notification", "type", note.Type.String(), "node", note.NodeID)
	}
}

// ensureNode returns the node, creating it if a value arrives before the
// node was announced.
func (n *Network) ensureNode(id uint8) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	node, ok := n.nodes[id]
	if !ok {
		node = newNode(n, id)
		n.nodes[id] = node
		n.logger.Debug("node created", "node", id)
	}
	return node
}

func (n *Network) persistNode(node *Node) {
	if n.store == nil {
		return
	}
	home := n.HomeID()
	now := time.Now()
	apply := func(rec *store.NodeRecord) {
		rec.Name = node.Name()
		rec.Location = node.Location()
		rec.ProductName = node.ProductName()
		rec.ProductType = node.ProductType()
		rec.ProductID = node.ProductID()
		rec.ManufacturerName = node.ManufacturerName()
		rec.ManufacturerID = node.ManufacturerID()
		rec.Type = node.Type()
		rec.CommandClasses = toInts(node.CommandClasses())
		rec.Ready = node.IsReady()
		rec.LastSeen = now
	}
	err := n.store.UpdateNode(home, node.id, func(rec *store.NodeRecord) error {
		apply(rec)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		rec := &store.NodeRecord{HomeID: home, NodeID: node.id, FirstSeen: now}
		apply(rec)
		err = n.store.SaveNode(rec)
	}
	if err != nil {
		n.logger.Error("persist node", "node", node.id, "err", err)
	}
}

func (n *Network) saveNetworkState() {
	if n.store == nil {
		return
	}
	if err := n.store.SaveNetworkState(&store.NetworkState{
		HomeID:           n.HomeID(),
		ControllerNodeID: n.controller.NodeID(),
		Device:           n.config.Device,
		LibraryVersion:   n.controller.LibraryDescription(),
		StartedAt:        time.Now(),
	}); err != nil {
		n.logger.Error("save network state", "err", err)
	}
}
