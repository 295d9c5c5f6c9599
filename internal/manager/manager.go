// Package manager defines the interface to the native Z-Wave manager library.
// The manager owns the serial driver, the protocol state machines and the
// device configuration database; this package only describes the calls the
// rest of the service makes into it and the notifications it sends back.
//
// Strings cross this boundary as raw bytes (see Encode and Decode).
package manager

import "errors"

// ErrUnknownNode is returned by mutations addressed to a node the manager does
// not know about.
var ErrUnknownNode = errors.New("unknown node")

// ErrUnknownValue is returned by value operations on an unknown ValueID.
var ErrUnknownValue = errors.New("unknown value")

// ValueID is the manager's opaque handle for a single value. It is unique
// within a node.
type ValueID uint64

// Manager is the abstract interface for the native Z-Wave manager.
//
// Getters never fail: an unknown node yields zero values. Mutations return an
// error only when the request is refused; success means the request was
// queued, and the outcome arrives later as a Notification.
type Manager interface {
	// Node properties
	GetNodeName(homeID uint32, nodeID uint8) []byte
	GetNodeLocation(homeID uint32, nodeID uint8) []byte
	GetNodeProductName(homeID uint32, nodeID uint8) []byte
	GetNodeProductType(homeID uint32, nodeID uint8) []byte
	GetNodeProductID(homeID uint32, nodeID uint8) []byte
	GetNodeManufacturerName(homeID uint32, nodeID uint8) []byte
	GetNodeManufacturerID(homeID uint32, nodeID uint8) []byte
	GetNodeType(homeID uint32, nodeID uint8) []byte
	GetNodeQueryStage(homeID uint32, nodeID uint8) []byte
	GetNodeGeneric(homeID uint32, nodeID uint8) uint8
	GetNodeBasic(homeID uint32, nodeID uint8) uint8
	GetNodeSpecific(homeID uint32, nodeID uint8) uint8
	GetNodeSecurity(homeID uint32, nodeID uint8) uint8
	GetNodeVersion(homeID uint32, nodeID uint8) uint8
	GetNodeMaxBaudRate(homeID uint32, nodeID uint8) uint32
	GetNodeNeighbors(homeID uint32, nodeID uint8) []uint8

	// Node capability flags
	IsNodeListeningDevice(homeID uint32, nodeID uint8) bool
	IsNodeFrequentListeningDevice(homeID uint32, nodeID uint8) bool
	IsNodeBeamingDevice(homeID uint32, nodeID uint8) bool
	IsNodeRoutingDevice(homeID uint32, nodeID uint8) bool
	IsNodeSecurityDevice(homeID uint32, nodeID uint8) bool
	IsNodeAwake(homeID uint32, nodeID uint8) bool
	IsNodeFailed(homeID uint32, nodeID uint8) bool
	IsNodeInfoReceived(homeID uint32, nodeID uint8) bool

	// Command classes
	GetNodeClassInformation(homeID uint32, nodeID uint8, classID uint8) bool
	CommandClassDesc() map[uint8][]byte

	// Association groups
	GetNumGroups(homeID uint32, nodeID uint8) uint8
	GetGroupLabel(homeID uint32, nodeID uint8, groupIdx uint8) []byte
	GetMaxAssociations(homeID uint32, nodeID uint8, groupIdx uint8) uint8
	GetAssociations(homeID uint32, nodeID uint8, groupIdx uint8) []uint8

	// Controller
	GetControllerNodeID(homeID uint32) uint8
	IsPrimaryController(homeID uint32) bool
	IsStaticUpdateController(homeID uint32) bool
	IsBridgeController(homeID uint32) bool
	GetLibraryVersion(homeID uint32) []byte
	GetLibraryTypeName(homeID uint32) []byte
	GetSendQueueCount(homeID uint32) int
	GetDriverStatistics(homeID uint32) map[string]uint64

	// Mutations
	SetNodeName(homeID uint32, nodeID uint8, value []byte) error
	SetNodeLocation(homeID uint32, nodeID uint8, value []byte) error
	SetNodeProductName(homeID uint32, nodeID uint8, value []byte) error
	SetNodeManufacturerName(homeID uint32, nodeID uint8, value []byte) error
	AddAssociation(homeID uint32, nodeID uint8, groupIdx uint8, targetNodeID uint8) error
	RemoveAssociation(homeID uint32, nodeID uint8, groupIdx uint8, targetNodeID uint8) error
	SetConfigParam(homeID uint32, nodeID uint8, param uint8, value int32, size uint8) error
	RequestConfigParam(homeID uint32, nodeID uint8, param uint8) error
	RequestAllConfigParams(homeID uint32, nodeID uint8) error
	RefreshNodeInfo(homeID uint32, nodeID uint8) error
	TestNetworkNode(homeID uint32, nodeID uint8, count uint32) error
	RefreshValue(id ValueID) error
	SetValue(id ValueID, data any) error

	// Lifecycle
	AddDriver(device []byte) error
	RemoveDriver(device []byte) error
	OnNotification(handler func(Notification))
	Close() error
}

// ValueData is the manager's description of one value, carried by value
// notifications.
type ValueData struct {
	ID           ValueID
	HomeID       uint32
	NodeID       uint8
	CommandClass uint8
	Genre        Genre
	Type         ValueType
	Index        uint8
	Instance     uint8
	Label        []byte
	Units        []byte
	Help         []byte
	ReadOnly     bool
	WriteOnly    bool
	Data         any
}

// NotificationType identifies what a Notification reports.
type NotificationType uint8

const (
	NotificationValueAdded NotificationType = iota
	NotificationValueRemoved
	NotificationValueChanged
	NotificationValueRefreshed
	NotificationGroup
	NotificationNodeNew
	NotificationNodeAdded
	NotificationNodeRemoved
	NotificationNodeProtocolInfo
	NotificationNodeNaming
	NotificationNodeEvent
	NotificationDriverReady
	NotificationDriverFailed
	NotificationDriverReset
	NotificationNodeQueriesComplete
	NotificationAwakeNodesQueried
	NotificationAllNodesQueried
)

var notificationNames = [...]string{
	"ValueAdded", "ValueRemoved", "ValueChanged", "ValueRefreshed", "Group",
	"NodeNew", "NodeAdded", "NodeRemoved", "NodeProtocolInfo", "NodeNaming",
	"NodeEvent", "DriverReady", "DriverFailed", "DriverReset",
	"NodeQueriesComplete", "AwakeNodesQueried", "AllNodesQueried",
}

func (t NotificationType) String() string {
	if int(t) < len(notificationNames) {
		return notificationNames[t]
	}
	return "Unknown"
}

// Notification is an asynchronous report from the manager.
type Notification struct {
	Type     NotificationType
	HomeID   uint32
	NodeID   uint8
	GroupIdx uint8
	// Event carries the basic set level for NodeEvent.
	Event uint8
	// Value is set for the Value* notification types.
	Value *ValueData
}
