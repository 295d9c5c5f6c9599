package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"sync"
)

// Memory is an in-process Manager that simulates a Z-Wave network described
// by a Fixture. Mutations are applied immediately and confirmed through the
// same notifications a real manager would send.
//
// Notifications are delivered synchronously on the calling goroutine, after
// the internal lock has been released, so handlers may call back into the
// Memory.
type Memory struct {
	mu        sync.Mutex
	homeID    uint32
	ctrl      ControllerFixture
	classDesc map[uint8]string
	nodes     map[uint8]*memNode
	values    map[ValueID]*ValueData
	handlers  []func(Notification)
	drivers   map[string]bool
	refuse    error
	stats     map[string]uint64
	logger    *slog.Logger
}

type memNode struct {
	NodeFixture
	classes map[uint8]bool
	groups  map[uint8]*GroupFixture
	config  map[uint8]int32
}

var _ Manager = (*Memory)(nil)

// NewMemory creates a simulated manager. f may be nil for an empty network.
// classDesc is the table returned by CommandClassDesc.
func NewMemory(f *Fixture, classDesc map[uint8]string, logger *slog.Logger) *Memory {
	if f == nil {
		f = &Fixture{}
	}
	m := &Memory{
		homeID:    f.HomeID,
		ctrl:      f.Controller,
		classDesc: make(map[uint8]string, len(classDesc)),
		nodes:     make(map[uint8]*memNode),
		values:    make(map[ValueID]*ValueData),
		drivers:   make(map[string]bool),
		stats:     make(map[string]uint64),
		logger:    logger.With("component", "memory_manager"),
	}
	for id, name := range classDesc {
		m.classDesc[id] = name
	}
	for _, nf := range f.Nodes {
		m.addNodeLocked(nf)
	}
	return m
}

func (m *Memory) addNodeLocked(nf NodeFixture) {
	n := &memNode{
		NodeFixture: nf,
		classes:     make(map[uint8]bool, len(nf.CommandClasses)),
		groups:      make(map[uint8]*GroupFixture, len(nf.Groups)),
		config:      make(map[uint8]int32),
	}
	n.Neighbors = slices.Clone(nf.Neighbors)
	for _, c := range nf.CommandClasses {
		n.classes[c] = true
	}
	for _, g := range nf.Groups {
		g.Associations = slices.Clone(g.Associations)
		n.groups[g.Index] = &g
	}
	n.Values = nil
	m.nodes[nf.ID] = n
	for _, vf := range nf.Values {
		vd := m.valueFromFixture(nf.ID, vf)
		m.values[vd.ID] = vd
		n.classes[vd.CommandClass] = true
	}
}

func (m *Memory) valueFromFixture(nodeID uint8, vf ValueFixture) *ValueData {
	genre, _ := vf.genre()
	vt, _ := vf.valueType()
	id := ValueID(vf.ID)
	if id == 0 {
		id = makeValueID(m.homeID, nodeID, vf.CommandClass, vf.Instance, vf.Index)
	}
	data, err := coerce(vt, vf.Data)
	if err != nil {
		m.logger.Warn("fixture value kept as is", "node", nodeID, "value", id, "err", err)
		data = vf.Data
	}
	return &ValueData{
		ID:           id,
		HomeID:       m.homeID,
		NodeID:       nodeID,
		CommandClass: vf.CommandClass,
		Genre:        genre,
		Type:         vt,
		Index:        vf.Index,
		Instance:     vf.Instance,
		Label:        Encode(vf.Label),
		Units:        Encode(vf.Units),
		Help:         Encode(vf.Help),
		ReadOnly:     vf.ReadOnly,
		WriteOnly:    vf.WriteOnly,
		Data:         data,
	}
}

func makeValueID(homeID uint32, nodeID, class, instance, index uint8) ValueID {
	return ValueID(uint64(homeID)<<32 | uint64(nodeID)<<24 | uint64(class)<<16 | uint64(instance)<<8 | uint64(index))
}

func (m *Memory) node(homeID uint32, nodeID uint8) *memNode {
	if homeID != m.homeID {
		return nil
	}
	return m.nodes[nodeID]
}

func (m *Memory) nodeString(homeID uint32, nodeID uint8, get func(n *memNode) string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.node(homeID, nodeID)
	if n == nil {
		return nil
	}
	return Encode(get(n))
}

func (m *Memory) nodeByte(homeID uint32, nodeID uint8, get func(n *memNode) uint8) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.node(homeID, nodeID)
	if n == nil {
		return 0
	}
	return get(n)
}

func (m *Memory) nodeFlag(homeID uint32, nodeID uint8, get func(n *memNode) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.node(homeID, nodeID)
	if n == nil {
		return false
	}
	return get(n)
}

func (m *Memory) GetNodeName(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.Name })
}

func (m *Memory) GetNodeLocation(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.Location })
}

func (m *Memory) GetNodeProductName(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.ProductName })
}

func (m *Memory) GetNodeProductType(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.ProductType })
}

func (m *Memory) GetNodeProductID(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.ProductID })
}

func (m *Memory) GetNodeManufacturerName(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.ManufacturerName })
}

func (m *Memory) GetNodeManufacturerID(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.ManufacturerID })
}

func (m *Memory) GetNodeType(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string { return n.Type })
}

func (m *Memory) GetNodeQueryStage(homeID uint32, nodeID uint8) []byte {
	return m.nodeString(homeID, nodeID, func(n *memNode) string {
		if n.Asleep {
			return "WakeUp"
		}
		return "Complete"
	})
}

func (m *Memory) GetNodeGeneric(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return n.Generic })
}

func (m *Memory) GetNodeBasic(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return n.Basic })
}

func (m *Memory) GetNodeSpecific(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return n.Specific })
}

func (m *Memory) GetNodeSecurity(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return n.Security })
}

func (m *Memory) GetNodeVersion(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return n.Version })
}

func (m *Memory) GetNodeMaxBaudRate(homeID uint32, nodeID uint8) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.node(homeID, nodeID); n != nil {
		return n.MaxBaudRate
	}
	return 0
}

func (m *Memory) GetNodeNeighbors(homeID uint32, nodeID uint8) []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.node(homeID, nodeID); n != nil {
		return slices.Clone(n.Neighbors)
	}
	return nil
}

func (m *Memory) IsNodeListeningDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.Listening })
}

func (m *Memory) IsNodeFrequentListeningDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.FrequentListening })
}

func (m *Memory) IsNodeBeamingDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.Beaming })
}

func (m *Memory) IsNodeRoutingDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.Routing })
}

func (m *Memory) IsNodeSecurityDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.SecurityDevice })
}

func (m *Memory) IsNodeAwake(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return !n.Asleep })
}

func (m *Memory) IsNodeFailed(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.Failed })
}

func (m *Memory) IsNodeInfoReceived(homeID uint32, nodeID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return len(n.classes) > 0 })
}

func (m *Memory) GetNodeClassInformation(homeID uint32, nodeID uint8, classID uint8) bool {
	return m.nodeFlag(homeID, nodeID, func(n *memNode) bool { return n.classes[classID] })
}

func (m *Memory) CommandClassDesc() map[uint8][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint8][]byte, len(m.classDesc))
	for id, name := range m.classDesc {
		out[id] = Encode(name)
	}
	return out
}

func (m *Memory) GetNumGroups(homeID uint32, nodeID uint8) uint8 {
	return m.nodeByte(homeID, nodeID, func(n *memNode) uint8 { return uint8(len(n.groups)) })
}

func (m *Memory) group(homeID uint32, nodeID, groupIdx uint8) *GroupFixture {
	n := m.node(homeID, nodeID)
	if n == nil {
		return nil
	}
	return n.groups[groupIdx]
}

func (m *Memory) GetGroupLabel(homeID uint32, nodeID uint8, groupIdx uint8) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.group(homeID, nodeID, groupIdx); g != nil {
		return Encode(g.Label)
	}
	return nil
}

func (m *Memory) GetMaxAssociations(homeID uint32, nodeID uint8, groupIdx uint8) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.group(homeID, nodeID, groupIdx); g != nil {
		return g.MaxAssociations
	}
	return 0
}

func (m *Memory) GetAssociations(homeID uint32, nodeID uint8, groupIdx uint8) []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.group(homeID, nodeID, groupIdx); g != nil {
		return slices.Clone(g.Associations)
	}
	return nil
}

func (m *Memory) GetControllerNodeID(homeID uint32) uint8 {
	if homeID != m.homeID {
		return 0
	}
	return m.ctrl.NodeID
}

func (m *Memory) IsPrimaryController(homeID uint32) bool {
	return homeID == m.homeID && m.ctrl.Primary
}

func (m *Memory) IsStaticUpdateController(homeID uint32) bool {
	return homeID == m.homeID && m.ctrl.StaticUpdate
}

func (m *Memory) IsBridgeController(homeID uint32) bool {
	return homeID == m.homeID && m.ctrl.Bridge
}

func (m *Memory) GetLibraryVersion(homeID uint32) []byte {
	if homeID != m.homeID {
		return nil
	}
	return Encode(m.ctrl.LibraryVersion)
}

func (m *Memory) GetLibraryTypeName(homeID uint32) []byte {
	if homeID != m.homeID {
		return nil
	}
	return Encode(m.ctrl.LibraryTypeName)
}

// GetSendQueueCount is always zero: mutations complete synchronously.
func (m *Memory) GetSendQueueCount(homeID uint32) int {
	return 0
}

func (m *Memory) GetDriverStatistics(homeID uint32) map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

// mutate runs fn under the lock against an existing node and dispatches the
// notifications it returns.
func (m *Memory) mutate(homeID uint32, nodeID uint8, fn func(n *memNode) ([]Notification, error)) error {
	m.mu.Lock()
	if m.refuse != nil {
		err := m.refuse
		m.mu.Unlock()
		return err
	}
	n := m.node(homeID, nodeID)
	if n == nil {
		m.mu.Unlock()
		return fmt.Errorf("node %d: %w", nodeID, ErrUnknownNode)
	}
	notes, err := fn(n)
	if err == nil {
		m.stats["writeCnt"]++
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.dispatch(notes)
	return nil
}

func (m *Memory) setNodeString(homeID uint32, nodeID uint8, value []byte, set func(n *memNode, v string)) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		set(n, Decode(value))
		return []Notification{{Type: NotificationNodeNaming, HomeID: homeID, NodeID: nodeID}}, nil
	})
}

func (m *Memory) SetNodeName(homeID uint32, nodeID uint8, value []byte) error {
	return m.setNodeString(homeID, nodeID, value, func(n *memNode, v string) { n.Name = v })
}

func (m *Memory) SetNodeLocation(homeID uint32, nodeID uint8, value []byte) error {
	return m.setNodeString(homeID, nodeID, value, func(n *memNode, v string) { n.Location = v })
}

func (m *Memory) SetNodeProductName(homeID uint32, nodeID uint8, value []byte) error {
	return m.setNodeString(homeID, nodeID, value, func(n *memNode, v string) { n.ProductName = v })
}

func (m *Memory) SetNodeManufacturerName(homeID uint32, nodeID uint8, value []byte) error {
	return m.setNodeString(homeID, nodeID, value, func(n *memNode, v string) { n.ManufacturerName = v })
}

func (m *Memory) AddAssociation(homeID uint32, nodeID uint8, groupIdx uint8, targetNodeID uint8) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		g := n.groups[groupIdx]
		if g == nil {
			return nil, fmt.Errorf("node %d: unknown group %d", nodeID, groupIdx)
		}
		if slices.Contains(g.Associations, targetNodeID) {
			return nil, nil
		}
		if g.MaxAssociations > 0 && len(g.Associations) >= int(g.MaxAssociations) {
			return nil, fmt.Errorf("node %d group %d: full (%d associations)", nodeID, groupIdx, g.MaxAssociations)
		}
		g.Associations = append(g.Associations, targetNodeID)
		slices.Sort(g.Associations)
		return []Notification{{Type: NotificationGroup, HomeID: homeID, NodeID: nodeID, GroupIdx: groupIdx}}, nil
	})
}

func (m *Memory) RemoveAssociation(homeID uint32, nodeID uint8, groupIdx uint8, targetNodeID uint8) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		g := n.groups[groupIdx]
		if g == nil {
			return nil, fmt.Errorf("node %d: unknown group %d", nodeID, groupIdx)
		}
		i := slices.Index(g.Associations, targetNodeID)
		if i < 0 {
			return nil, nil
		}
		g.Associations = slices.Delete(g.Associations, i, i+1)
		return []Notification{{Type: NotificationGroup, HomeID: homeID, NodeID: nodeID, GroupIdx: groupIdx}}, nil
	})
}

// configValue finds the Configuration class value for param. Caller holds mu.
func (m *Memory) configValue(nodeID, param uint8) *ValueData {
	for _, v := range m.values {
		if v.NodeID == nodeID && v.CommandClass == 0x70 && v.Index == param {
			return v
		}
	}
	return nil
}

func (m *Memory) SetConfigParam(homeID uint32, nodeID uint8, param uint8, value int32, size uint8) error {
	if size != 1 && size != 2 && size != 4 {
		return fmt.Errorf("config param size must be 1, 2 or 4, got %d", size)
	}
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		n.config[param] = value
		v := m.configValue(nodeID, param)
		if v == nil {
			return nil, nil
		}
		next := *v
		if data, err := coerce(v.Type, value); err == nil {
			next.Data = data
		} else {
			next.Data = value
		}
		m.values[next.ID] = &next
		return []Notification{valueNote(NotificationValueChanged, &next)}, nil
	})
}

func (m *Memory) RequestConfigParam(homeID uint32, nodeID uint8, param uint8) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		if v := m.configValue(nodeID, param); v != nil {
			return []Notification{valueNote(NotificationValueRefreshed, v)}, nil
		}
		return nil, nil
	})
}

func (m *Memory) RequestAllConfigParams(homeID uint32, nodeID uint8) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		var notes []Notification
		for _, v := range m.sortedValues(nodeID) {
			if v.CommandClass == 0x70 {
				notes = append(notes, valueNote(NotificationValueRefreshed, v))
			}
		}
		return notes, nil
	})
}

func (m *Memory) RefreshNodeInfo(homeID uint32, nodeID uint8) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		notes := []Notification{{Type: NotificationNodeProtocolInfo, HomeID: homeID, NodeID: nodeID}}
		if !n.Asleep {
			notes = append(notes, Notification{Type: NotificationNodeQueriesComplete, HomeID: homeID, NodeID: nodeID})
		}
		return notes, nil
	})
}

func (m *Memory) TestNetworkNode(homeID uint32, nodeID uint8, count uint32) error {
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		m.stats["testFrameCnt"] += uint64(count)
		return nil, nil
	})
}

func (m *Memory) RefreshValue(id ValueID) error {
	m.mu.Lock()
	v, ok := m.values[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("value %d: %w", id, ErrUnknownValue)
	}
	homeID, nodeID := v.HomeID, v.NodeID
	m.mu.Unlock()
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		v, ok := m.values[id]
		if !ok {
			return nil, fmt.Errorf("value %d: %w", id, ErrUnknownValue)
		}
		return []Notification{valueNote(NotificationValueRefreshed, v)}, nil
	})
}

func (m *Memory) SetValue(id ValueID, data any) error {
	m.mu.Lock()
	v, ok := m.values[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("value %d: %w", id, ErrUnknownValue)
	}
	homeID, nodeID := v.HomeID, v.NodeID
	m.mu.Unlock()
	return m.mutate(homeID, nodeID, func(n *memNode) ([]Notification, error) {
		v, ok := m.values[id]
		if !ok {
			return nil, fmt.Errorf("value %d: %w", id, ErrUnknownValue)
		}
		if v.ReadOnly {
			return nil, fmt.Errorf("value %d is read-only", id)
		}
		coerced, err := coerce(v.Type, data)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", id, err)
		}
		// Values are replaced, never edited, so earlier notifications keep
		// their own copy.
		next := *v
		next.Data = coerced
		m.values[id] = &next
		return []Notification{valueNote(NotificationValueChanged, &next)}, nil
	})
}

func (m *Memory) AddDriver(device []byte) error {
	dev := Decode(device)
	m.mu.Lock()
	if m.refuse != nil {
		err := m.refuse
		m.mu.Unlock()
		return err
	}
	if m.drivers[dev] {
		m.mu.Unlock()
		return fmt.Errorf("driver %s already added", dev)
	}
	m.drivers[dev] = true
	m.logger.Info("driver added", "device", dev, "home_id", fmt.Sprintf("0x%08x", m.homeID))

	notes := []Notification{{Type: NotificationDriverReady, HomeID: m.homeID, NodeID: m.ctrl.NodeID}}
	ids := m.sortedNodeIDs()
	asleep := false
	for _, id := range ids {
		notes = append(notes, Notification{Type: NotificationNodeAdded, HomeID: m.homeID, NodeID: id})
		for _, v := range m.sortedValues(id) {
			notes = append(notes, valueNote(NotificationValueAdded, v))
		}
	}
	for _, id := range ids {
		if m.nodes[id].Asleep {
			asleep = true
			continue
		}
		notes = append(notes, Notification{Type: NotificationNodeQueriesComplete, HomeID: m.homeID, NodeID: id})
	}
	done := NotificationAllNodesQueried
	if asleep {
		done = NotificationAwakeNodesQueried
	}
	notes = append(notes, Notification{Type: done, HomeID: m.homeID})
	m.mu.Unlock()

	m.dispatch(notes)
	return nil
}

func (m *Memory) RemoveDriver(device []byte) error {
	dev := Decode(device)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.drivers[dev] {
		return fmt.Errorf("driver %s not found", dev)
	}
	delete(m.drivers, dev)
	m.logger.Info("driver removed", "device", dev)
	return nil
}

func (m *Memory) OnNotification(handler func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = nil
	clear(m.drivers)
	return nil
}

// Refuse makes every later mutation fail with err. A nil err restores normal
// operation.
func (m *Memory) Refuse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuse = err
}

// AddNode simulates a node joining the network.
func (m *Memory) AddNode(nf NodeFixture) error {
	if nf.ID == 0 {
		return errors.New("node id 0 is reserved")
	}
	m.mu.Lock()
	if _, exists := m.nodes[nf.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("node %d already exists", nf.ID)
	}
	m.addNodeLocked(nf)
	notes := []Notification{{Type: NotificationNodeAdded, HomeID: m.homeID, NodeID: nf.ID}}
	for _, v := range m.sortedValues(nf.ID) {
		notes = append(notes, valueNote(NotificationValueAdded, v))
	}
	if !nf.Asleep {
		notes = append(notes, Notification{Type: NotificationNodeQueriesComplete, HomeID: m.homeID, NodeID: nf.ID})
	}
	m.mu.Unlock()
	m.dispatch(notes)
	return nil
}

// RemoveNode simulates a node leaving the network.
func (m *Memory) RemoveNode(nodeID uint8) error {
	m.mu.Lock()
	if _, ok := m.nodes[nodeID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("node %d: %w", nodeID, ErrUnknownNode)
	}
	delete(m.nodes, nodeID)
	for id, v := range m.values {
		if v.NodeID == nodeID {
			delete(m.values, id)
		}
	}
	m.mu.Unlock()
	m.dispatch([]Notification{{Type: NotificationNodeRemoved, HomeID: m.homeID, NodeID: nodeID}})
	return nil
}

// PutValue adds or replaces a value on a node, as a device report would.
func (m *Memory) PutValue(nodeID uint8, vf ValueFixture) (ValueID, error) {
	m.mu.Lock()
	n, ok := m.nodes[nodeID]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("node %d: %w", nodeID, ErrUnknownNode)
	}
	v := m.valueFromFixture(nodeID, vf)
	typ := NotificationValueAdded
	if _, exists := m.values[v.ID]; exists {
		typ = NotificationValueChanged
	}
	m.values[v.ID] = v
	n.classes[v.CommandClass] = true
	note := valueNote(typ, v)
	m.mu.Unlock()
	m.dispatch([]Notification{note})
	return v.ID, nil
}

// DropValue removes a value, as a device reconfiguration would.
func (m *Memory) DropValue(id ValueID) error {
	m.mu.Lock()
	v, ok := m.values[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("value %d: %w", id, ErrUnknownValue)
	}
	delete(m.values, id)
	note := valueNote(NotificationValueRemoved, v)
	m.mu.Unlock()
	m.dispatch([]Notification{note})
	return nil
}

// SetAsleep changes a node's awake state.
func (m *Memory) SetAsleep(nodeID uint8, asleep bool) {
	m.mu.Lock()
	n, ok := m.nodes[nodeID]
	if ok {
		n.Asleep = asleep
	}
	m.mu.Unlock()
	if ok && !asleep {
		m.dispatch([]Notification{{Type: NotificationNodeQueriesComplete, HomeID: m.homeID, NodeID: nodeID}})
	}
}

// ConfigParam returns the last value written to a configuration parameter.
func (m *Memory) ConfigParam(nodeID, param uint8) (int32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok {
		return 0, false
	}
	v, ok := n.config[param]
	return v, ok
}

// HomeID returns the simulated network's home ID.
func (m *Memory) HomeID() uint32 {
	return m.homeID
}

func (m *Memory) sortedNodeIDs() []uint8 {
	ids := make([]uint8, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Memory) sortedValues(nodeID uint8) []*ValueData {
	var out []*ValueData
	for _, v := range m.values {
		if v.NodeID == nodeID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) dispatch(notes []Notification) {
	if len(notes) == 0 {
		return
	}
	m.mu.Lock()
	handlers := slices.Clone(m.handlers)
	m.mu.Unlock()
	for _, n := range notes {
		for _, h := range handlers {
			h(n)
		}
	}
}

func valueNote(t NotificationType, v *ValueData) Notification {
	cp := *v
	cp.Label = slices.Clone(v.Label)
	cp.Units = slices.Clone(v.Units)
	cp.Help = slices.Clone(v.Help)
	return Notification{Type: t, HomeID: v.HomeID, NodeID: v.NodeID, Value: &cp}
}

// coerce converts loosely typed input (JSON numbers, Lua numbers, YAML
// scalars) into the Go type used for a value type.
func coerce(t ValueType, data any) (any, error) {
	switch t {
	case TypeBool, TypeButton:
		switch d := data.(type) {
		case bool:
			return d, nil
		case nil:
			return false, nil
		}
		if f, ok := toFloat(data); ok {
			return f != 0, nil
		}
	case TypeByte:
		if f, ok := toFloat(data); ok {
			if f < 0 || f > math.MaxUint8 || f != math.Trunc(f) {
				return nil, fmt.Errorf("%v out of range for Byte", data)
			}
			return uint8(f), nil
		}
		if data == nil {
			return uint8(0), nil
		}
	case TypeShort:
		if f, ok := toFloat(data); ok {
			if f < math.MinInt16 || f > math.MaxInt16 || f != math.Trunc(f) {
				return nil, fmt.Errorf("%v out of range for Short", data)
			}
			return int16(f), nil
		}
		if data == nil {
			return int16(0), nil
		}
	case TypeInt:
		if f, ok := toFloat(data); ok {
			if f < math.MinInt32 || f > math.MaxInt32 || f != math.Trunc(f) {
				return nil, fmt.Errorf("%v out of range for Int", data)
			}
			return int32(f), nil
		}
		if data == nil {
			return int32(0), nil
		}
	case TypeDecimal:
		if f, ok := toFloat(data); ok {
			return f, nil
		}
		if data == nil {
			return float64(0), nil
		}
	case TypeString, TypeList:
		switch d := data.(type) {
		case string:
			return d, nil
		case []byte:
			return Decode(d), nil
		case nil:
			return "", nil
		}
	case TypeRaw:
		switch d := data.(type) {
		case []byte:
			return slices.Clone(d), nil
		case string:
			return []byte(d), nil
		case nil:
			return []byte(nil), nil
		}
	case TypeSchedule:
		return data, nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", data, t)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
