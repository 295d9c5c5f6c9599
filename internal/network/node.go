package network

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync/atomic"

	"zwave-go-home/internal/manager"
)

// DefaultConfigParamSize is the parameter width used when SetConfigParam is
// called with size 0.
const DefaultConfigParamSize uint8 = 2

// Node is one device on the Z-Wave network. Properties are read from the
// manager on every call; only the value index and the ready flag are held
// locally.
type Node struct {
	id     uint8
	net    *Network
	mgr    manager.Manager
	values *ValueIndex
	ready  atomic.Bool
	logger *slog.Logger

	basic    *BasicHandler
	switches *SwitchHandler
	sensor   *SensorHandler
	security *SecurityHandler
}

func newNode(net *Network, id uint8) *Node {
	n := &Node{
		id:     id,
		net:    net,
		mgr:    net.mgr,
		values: NewValueIndex(),
		logger: net.logger.With("node", id),
	}
	n.basic = &BasicHandler{node: n}
	n.switches = &SwitchHandler{node: n}
	n.sensor = &SensorHandler{node: n}
	n.security = &SecurityHandler{node: n}
	return n
}

func (n *Node) homeID() uint32 { return n.net.HomeID() }

// ID returns the node ID.
func (n *Node) ID() uint8 { return n.id }

func (n *Node) String() string {
	return fmt.Sprintf("home_id: [%s] id: [%d] name: [%s] model: [%s]",
		n.net.HomeIDString(), n.id, n.Name(), n.ProductName())
}

func (n *Node) Name() string {
	return manager.Decode(n.mgr.GetNodeName(n.homeID(), n.id))
}

func (n *Node) SetName(value string) error {
	return n.mgr.SetNodeName(n.homeID(), n.id, manager.Encode(value))
}

func (n *Node) Location() string {
	return manager.Decode(n.mgr.GetNodeLocation(n.homeID(), n.id))
}

func (n *Node) SetLocation(value string) error {
	return n.mgr.SetNodeLocation(n.homeID(), n.id, manager.Encode(value))
}

func (n *Node) ProductName() string {
	return manager.Decode(n.mgr.GetNodeProductName(n.homeID(), n.id))
}

func (n *Node) SetProductName(value string) error {
	return n.mgr.SetNodeProductName(n.homeID(), n.id, manager.Encode(value))
}

func (n *Node) ProductType() string {
	return manager.Decode(n.mgr.GetNodeProductType(n.homeID(), n.id))
}

func (n *Node) ProductID() string {
	return manager.Decode(n.mgr.GetNodeProductID(n.homeID(), n.id))
}

func (n *Node) ManufacturerName() string {
	return manager.Decode(n.mgr.GetNodeManufacturerName(n.homeID(), n.id))
}

func (n *Node) SetManufacturerName(value string) error {
	return n.mgr.SetNodeManufacturerName(n.homeID(), n.id, manager.Encode(value))
}

func (n *Node) ManufacturerID() string {
	return manager.Decode(n.mgr.GetNodeManufacturerID(n.homeID(), n.id))
}

// Type is the device type label, e.g. "Binary Power Switch".
func (n *Node) Type() string {
	return manager.Decode(n.mgr.GetNodeType(n.homeID(), n.id))
}

func (n *Node) QueryStage() string {
	return manager.Decode(n.mgr.GetNodeQueryStage(n.homeID(), n.id))
}

func (n *Node) Generic() uint8  { return n.mgr.GetNodeGeneric(n.homeID(), n.id) }
func (n *Node) Basic() uint8    { return n.mgr.GetNodeBasic(n.homeID(), n.id) }
func (n *Node) Specific() uint8 { return n.mgr.GetNodeSpecific(n.homeID(), n.id) }
func (n *Node) Security() uint8 { return n.mgr.GetNodeSecurity(n.homeID(), n.id) }
func (n *Node) Version() uint8  { return n.mgr.GetNodeVersion(n.homeID(), n.id) }

func (n *Node) MaxBaudRate() uint32 {
	return n.mgr.GetNodeMaxBaudRate(n.homeID(), n.id)
}

func (n *Node) Neighbors() []uint8 {
	return n.mgr.GetNodeNeighbors(n.homeID(), n.id)
}

func (n *Node) IsListeningDevice() bool {
	return n.mgr.IsNodeListeningDevice(n.homeID(), n.id)
}

func (n *Node) IsFrequentListeningDevice() bool {
	return n.mgr.IsNodeFrequentListeningDevice(n.homeID(), n.id)
}

func (n *Node) IsBeamingDevice() bool {
	return n.mgr.IsNodeBeamingDevice(n.homeID(), n.id)
}

func (n *Node) IsRoutingDevice() bool {
	return n.mgr.IsNodeRoutingDevice(n.homeID(), n.id)
}

func (n *Node) IsSecurityDevice() bool {
	return n.mgr.IsNodeSecurityDevice(n.homeID(), n.id)
}

func (n *Node) IsAwake() bool {
	return n.mgr.IsNodeAwake(n.homeID(), n.id)
}

// IsSleeping is the negation of IsAwake.
func (n *Node) IsSleeping() bool {
	return !n.IsAwake()
}

func (n *Node) IsFailed() bool {
	return n.mgr.IsNodeFailed(n.homeID(), n.id)
}

func (n *Node) IsInfoReceived() bool {
	return n.mgr.IsNodeInfoReceived(n.homeID(), n.id)
}

// IsReady reports whether the manager finished querying the node.
func (n *Node) IsReady() bool { return n.ready.Load() }

func (n *Node) SetReady(ready bool) { n.ready.Store(ready) }

// IsLocked reports whether local protection is active on the device.
func (n *Node) IsLocked() bool { return n.security.Locked() }

// Capabilities lists the node's protocol capabilities. The controller node
// also reports the controller's own capabilities.
func (n *Node) Capabilities() []string {
	var caps []string
	if n.IsRoutingDevice() {
		caps = append(caps, "routing")
	}
	if n.IsListeningDevice() {
		caps = append(caps, "listening")
	}
	if n.IsFrequentListeningDevice() {
		caps = append(caps, "frequent")
	}
	if n.IsSecurityDevice() {
		caps = append(caps, "security")
	}
	if n.IsBeamingDevice() {
		caps = append(caps, "beaming")
	}
	if n.id != 0 && n.id == n.net.Controller().NodeID() {
		caps = append(caps, n.net.Controller().Capabilities()...)
	}
	return caps
}

// NumGroups returns the number of association groups.
func (n *Node) NumGroups() uint8 {
	return n.mgr.GetNumGroups(n.homeID(), n.id)
}

// Groups returns the node's association groups, numbered from 1.
func (n *Node) Groups() []*Group {
	count := n.NumGroups()
	groups := make([]*Group, 0, count)
	for i := 1; i <= int(count); i++ {
		groups = append(groups, &Group{node: n, index: uint8(i)})
	}
	return groups
}

// Group returns the group with the given index.
func (n *Node) Group(index uint8) (*Group, bool) {
	if index == 0 || index > n.NumGroups() {
		return nil, false
	}
	return &Group{node: n, index: index}, true
}

// Test sends count no-op frames to the node. A count of 0 sends one.
func (n *Node) Test(count uint32) error {
	if count == 0 {
		count = 1
	}
	return n.mgr.TestNetworkNode(n.homeID(), n.id, count)
}

// CommandClasses returns the IDs of the command classes the node supports,
// ascending.
func (n *Node) CommandClasses() []uint8 {
	desc := n.mgr.CommandClassDesc()
	ids := make([]uint8, 0, len(desc))
	for id := range desc {
		if n.mgr.GetNodeClassInformation(n.homeID(), n.id, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// CommandClassesAsString returns the names of the supported command classes.
func (n *Node) CommandClassesAsString() []string {
	desc := n.mgr.CommandClassDesc()
	var names []string
	for _, id := range n.CommandClasses() {
		names = append(names, manager.Decode(desc[id]))
	}
	sort.Strings(names)
	return names
}

// CommandClassAsString returns the name of a command class.
func (n *Node) CommandClassAsString(id uint8) string {
	if name, ok := n.mgr.CommandClassDesc()[id]; ok {
		return manager.Decode(name)
	}
	return fmt.Sprintf("0x%02X", id)
}

// HasCommandClass reports whether the manager lists id as supported by the
// node. The local value index is not consulted.
func (n *Node) HasCommandClass(id uint8) bool {
	if _, known := n.mgr.CommandClassDesc()[id]; !known {
		return false
	}
	return n.mgr.GetNodeClassInformation(n.homeID(), n.id, id)
}

// CommandClassGenres returns the genre names values can be filtered by.
func (n *Node) CommandClassGenres() []string {
	return []string{
		manager.GenreUser.String(),
		manager.GenreBasic.String(),
		manager.GenreConfig.String(),
		manager.GenreSystem.String(),
	}
}

// Values returns the node's values matching every option.
func (n *Node) Values(opts ...FilterOption) map[ValueID]*Value {
	return n.values.Values(opts...)
}

// ValuesByCommandClass returns matching values grouped by command class.
func (n *Node) ValuesByCommandClass(opts ...FilterOption) map[uint8]map[ValueID]*Value {
	return n.values.ValuesByCommandClass(opts...)
}

// ValuesForCommandClass is shorthand for Values(ByCommandClass(id)).
func (n *Node) ValuesForCommandClass(id uint8) map[ValueID]*Value {
	return n.values.Values(ByCommandClass(id))
}

// Value returns a single value.
func (n *Node) Value(id ValueID) (*Value, bool) {
	return n.values.Get(id)
}

// FindValue returns the value with the given label, or nil.
func (n *Node) FindValue(label string, opts ...FilterOption) *Value {
	return n.values.Find(label, opts...)
}

// AddValue inserts or replaces a value.
func (n *Node) AddValue(v *Value) {
	n.values.Add(v)
}

// RemoveValue deletes a value and reports whether it existed.
func (n *Node) RemoveValue(id ValueID) bool {
	if n.values.Remove(id) {
		n.logger.Debug("value removed", "value", id)
		return true
	}
	return false
}

// RefreshValue asks the manager to re-read a value from the device.
func (n *Node) RefreshValue(id ValueID) error {
	return n.mgr.RefreshValue(id)
}

// SetValue writes data to a value. The local copy is updated at once and
// replaced again when the manager confirms the change.
func (n *Node) SetValue(id ValueID, data any) error {
	prev, ok := n.values.Get(id)
	if !ok {
		return fmt.Errorf("node %d value %d: %w", n.id, id, manager.ErrUnknownValue)
	}
	if prev.ReadOnly {
		return fmt.Errorf("node %d value %d: read-only", n.id, id)
	}
	optimistic := prev.WithData(data)
	n.values.Add(optimistic)
	if err := n.mgr.SetValue(id, data); err != nil {
		n.values.restore(id, optimistic, prev)
		return err
	}
	return nil
}

// SetField sets one writable text field: name, location, product_name or
// manufacturer_name. Other fields are ignored and nil is returned.
func (n *Node) SetField(field, value string) error {
	switch field {
	case "name":
		return n.SetName(value)
	case "location":
		return n.SetLocation(value)
	case "product_name":
		return n.SetProductName(value)
	case "manufacturer_name":
		return n.SetManufacturerName(value)
	}
	n.logger.Debug("set field ignored", "field", field)
	return nil
}

// RefreshInfo asks the manager to query the node again.
func (n *Node) RefreshInfo() error {
	n.logger.Debug("refresh node info")
	return n.mgr.RefreshNodeInfo(n.homeID(), n.id)
}

func (n *Node) RequestAllConfigParams() error {
	return n.mgr.RequestAllConfigParams(n.homeID(), n.id)
}

func (n *Node) RequestConfigParam(param uint8) error {
	return n.mgr.RequestConfigParam(n.homeID(), n.id, param)
}

// SetConfigParam writes a configuration parameter. size is the parameter
// width in bytes (1, 2 or 4); 0 selects DefaultConfigParamSize.
func (n *Node) SetConfigParam(param uint8, value int32, size uint8) error {
	if size == 0 {
		size = DefaultConfigParamSize
	}
	return n.mgr.SetConfigParam(n.homeID(), n.id, param, value, size)
}

// BasicCommands returns the Basic command class handler.
func (n *Node) BasicCommands() *BasicHandler { return n.basic }

// Switch returns the switch handler.
func (n *Node) Switch() *SwitchHandler { return n.switches }

// Sensor returns the sensor handler.
func (n *Node) Sensor() *SensorHandler { return n.sensor }

// SecurityInfo returns the security/protection handler.
func (n *Node) SecurityInfo() *SecurityHandler { return n.security }

// Features returns the names of the handlers the node supports.
func (n *Node) Features() []string {
	var out []string
	for _, c := range []Capability{n.basic, n.switches, n.sensor, n.security} {
		if c.Supported() {
			out = append(out, c.Name())
		}
	}
	return out
}

// Snapshot returns a serializable view of the node.
func (n *Node) Snapshot() NodeInfo {
	return NodeInfo{
		ID:               n.id,
		Name:             n.Name(),
		Location:         n.Location(),
		ProductName:      n.ProductName(),
		ProductType:      n.ProductType(),
		ProductID:        n.ProductID(),
		ManufacturerName: n.ManufacturerName(),
		ManufacturerID:   n.ManufacturerID(),
		Type:             n.Type(),
		QueryStage:       n.QueryStage(),
		Generic:          n.Generic(),
		Basic:            n.Basic(),
		Specific:         n.Specific(),
		Security:         n.Security(),
		Version:          n.Version(),
		MaxBaudRate:      n.MaxBaudRate(),
		Neighbors:        toInts(n.Neighbors()),
		Capabilities:     n.Capabilities(),
		CommandClasses:   toInts(n.CommandClasses()),
		Features:         n.Features(),
		NumGroups:        n.NumGroups(),
		ValueCount:       n.values.Len(),
		Awake:            n.IsAwake(),
		Failed:           n.IsFailed(),
		Ready:            n.IsReady(),
		Locked:           n.IsLocked(),
	}
}

// NodeInfo is a point-in-time view of a node.
type NodeInfo struct {
	ID               uint8    `json:"id"`
	Name             string   `json:"name"`
	Location         string   `json:"location"`
	ProductName      string   `json:"product_name"`
	ProductType      string   `json:"product_type"`
	ProductID        string   `json:"product_id"`
	ManufacturerName string   `json:"manufacturer_name"`
	ManufacturerID   string   `json:"manufacturer_id"`
	Type             string   `json:"type"`
	QueryStage       string   `json:"query_stage"`
	Generic          uint8    `json:"generic"`
	Basic            uint8    `json:"basic"`
	Specific         uint8    `json:"specific"`
	Security         uint8    `json:"security"`
	Version          uint8    `json:"version"`
	MaxBaudRate      uint32   `json:"max_baud_rate"`
	Neighbors        []int    `json:"neighbors"`
	Capabilities     []string `json:"capabilities"`
	CommandClasses   []int    `json:"command_classes"`
	Features         []string `json:"features"`
	NumGroups        uint8    `json:"num_groups"`
	ValueCount       int      `json:"value_count"`
	Awake            bool     `json:"awake"`
	Failed           bool     `json:"failed"`
	Ready            bool     `json:"ready"`
	Locked           bool     `json:"locked"`
}

// toInts widens IDs so they encode as JSON numbers rather than base64.
func toInts(ids []uint8) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
