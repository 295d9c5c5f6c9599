package network

import (
	"fmt"

	"zwave-go-home/internal/manager"
)

// statLabels describes the driver statistics reported by the manager.
var statLabels = map[string]string{
	"SOFCnt":             "Number of SOF bytes received",
	"ACKWaiting":         "Number of unsolicited messages while waiting for an ACK",
	"readAborts":         "Number of times read were aborted due to timeouts",
	"badChecksum":        "Number of bad checksums",
	"readCnt":            "Number of messages successfully read",
	"writeCnt":           "Number of messages successfully sent",
	"CANCnt":             "Number of CAN bytes received",
	"NAKCnt":             "Number of NAK bytes received",
	"ACKCnt":             "Number of ACK bytes received",
	"OOFCnt":             "Number of bytes out of framing",
	"dropped":            "Number of messages dropped & not delivered",
	"retries":            "Number of messages retransmitted",
	"controllerReadCnt":  "Number of controller messages read",
	"controllerWriteCnt": "Number of controller messages sent",
	"testFrameCnt":       "Number of test frames sent",
}

// Controller is the Z-Wave controller the driver is attached to.
type Controller struct {
	net *Network
}

func (c *Controller) mgr() manager.Manager { return c.net.mgr }

// NodeID returns the controller's node ID, or 0 before the driver is ready.
func (c *Controller) NodeID() uint8 {
	return c.mgr().GetControllerNodeID(c.net.HomeID())
}

// Node returns the controller's node.
func (c *Controller) Node() (*Node, bool) {
	return c.net.Node(c.NodeID())
}

// Name returns the controller node's name.
func (c *Controller) Name() string {
	if n, ok := c.Node(); ok {
		return n.Name()
	}
	return ""
}

func (c *Controller) LibraryVersion() string {
	return manager.Decode(c.mgr().GetLibraryVersion(c.net.HomeID()))
}

func (c *Controller) LibraryTypeName() string {
	return manager.Decode(c.mgr().GetLibraryTypeName(c.net.HomeID()))
}

// LibraryDescription combines type name and version.
func (c *Controller) LibraryDescription() string {
	return fmt.Sprintf("%s version %s", c.LibraryTypeName(), c.LibraryVersion())
}

func (c *Controller) IsPrimaryController() bool {
	return c.mgr().IsPrimaryController(c.net.HomeID())
}

func (c *Controller) IsStaticUpdateController() bool {
	return c.mgr().IsStaticUpdateController(c.net.HomeID())
}

func (c *Controller) IsBridgeController() bool {
	return c.mgr().IsBridgeController(c.net.HomeID())
}

// Capabilities lists the controller roles.
func (c *Controller) Capabilities() []string {
	var caps []string
	if c.IsPrimaryController() {
		caps = append(caps, "primaryController")
	}
	if c.IsStaticUpdateController() {
		caps = append(caps, "staticUpdateController")
	}
	if c.IsBridgeController() {
		caps = append(caps, "bridgeController")
	}
	return caps
}

// SendQueueCount is the number of messages waiting to be sent.
func (c *Controller) SendQueueCount() int {
	return c.mgr().GetSendQueueCount(c.net.HomeID())
}

// Stats returns the driver statistics.
func (c *Controller) Stats() map[string]uint64 {
	return c.mgr().GetDriverStatistics(c.net.HomeID())
}

// StatLabel describes a statistic key. Unknown keys are returned unchanged.
func StatLabel(key string) string {
	if l, ok := statLabels[key]; ok {
		return l
	}
	return key
}

// Device is the serial device the driver was started on.
func (c *Controller) Device() string {
	return c.net.config.Device
}

func (c *Controller) String() string {
	return fmt.Sprintf("home_id: [%s] id: [%d] name: [%s] capabilities: %v library: [%s]",
		c.net.HomeIDString(), c.NodeID(), c.Name(), c.Capabilities(), c.LibraryDescription())
}

// ControllerInfo is a point-in-time view of the controller.
type ControllerInfo struct {
	NodeID          uint8             `json:"node_id"`
	Name            string            `json:"name"`
	Device          string            `json:"device"`
	LibraryVersion  string            `json:"library_version"`
	LibraryTypeName string            `json:"library_type_name"`
	Capabilities    []string          `json:"capabilities"`
	SendQueueCount  int               `json:"send_queue_count"`
	Stats           map[string]uint64 `json:"stats"`
}

// Info returns a snapshot of the controller.
func (c *Controller) Info() ControllerInfo {
	return ControllerInfo{
		NodeID:          c.NodeID(),
		Name:            c.Name(),
		Device:          c.Device(),
		LibraryVersion:  c.LibraryVersion(),
		LibraryTypeName: c.LibraryTypeName(),
		Capabilities:    c.Capabilities(),
		SendQueueCount:  c.SendQueueCount(),
		Stats:           c.Stats(),
	}
}
