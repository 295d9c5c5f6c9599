package network

import (
	"fmt"
	"strings"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
)

// MaxLevel is the highest level a multilevel device accepts.
const MaxLevel uint8 = 99

// Capability is a command-class handler attached to every node.
type Capability interface {
	Name() string
	Supported() bool
}

// BasicHandler drives the Basic command class.
type BasicHandler struct {
	node *Node
}

func (h *BasicHandler) Name() string { return "basic" }

func (h *BasicHandler) Supported() bool {
	return h.node.HasCommandClass(commandclass.Basic)
}

func (h *BasicHandler) value() *Value {
	return h.node.values.First(ByCommandClass(commandclass.Basic), ByReadOnly(false))
}

// Level returns the current Basic level.
func (h *BasicHandler) Level() (uint8, bool) {
	v := h.value()
	if v == nil {
		return 0, false
	}
	f, ok := asFloat(v.Data)
	if !ok {
		return 0, false
	}
	return uint8(f), true
}

func (h *BasicHandler) SetLevel(level uint8) error {
	v := h.value()
	if v == nil {
		return fmt.Errorf("node %d: no basic value", h.node.id)
	}
	return h.node.SetValue(v.ID, level)
}

// SwitchHandler drives binary and multilevel switches.
type SwitchHandler struct {
	node *Node
}

func (h *SwitchHandler) Name() string { return "switch" }

func (h *SwitchHandler) Supported() bool {
	return h.node.HasCommandClass(commandclass.SwitchBinary) ||
		h.node.HasCommandClass(commandclass.SwitchMultilevel)
}

func (h *SwitchHandler) binary() *Value {
	return h.node.values.First(
		ByCommandClass(commandclass.SwitchBinary),
		ByGenre(manager.GenreUser),
		ByType(manager.TypeBool),
	)
}

func (h *SwitchHandler) multilevel() *Value {
	return h.node.values.First(
		ByCommandClass(commandclass.SwitchMultilevel),
		ByGenre(manager.GenreUser),
		ByType(manager.TypeByte),
	)
}

// Dimmable reports whether the node has a multilevel switch value.
func (h *SwitchHandler) Dimmable() bool {
	return h.multilevel() != nil
}

// IsOn reports the switch state. A multilevel switch is on at any level
// above zero.
func (h *SwitchHandler) IsOn() (bool, bool) {
	if v := h.binary(); v != nil {
		on, ok := v.Data.(bool)
		return on, ok
	}
	if v := h.multilevel(); v != nil {
		f, ok := asFloat(v.Data)
		return f > 0, ok
	}
	return false, false
}

func (h *SwitchHandler) On() error  { return h.set(true) }
func (h *SwitchHandler) Off() error { return h.set(false) }

// Toggle inverts the current state. An unknown state switches on.
func (h *SwitchHandler) Toggle() error {
	on, _ := h.IsOn()
	return h.set(!on)
}

func (h *SwitchHandler) set(on bool) error {
	if v := h.binary(); v != nil {
		return h.node.SetValue(v.ID, on)
	}
	if v := h.multilevel(); v != nil {
		level := uint8(0)
		if on {
			level = MaxLevel
		}
		return h.node.SetValue(v.ID, level)
	}
	return fmt.Errorf("node %d: no switch value", h.node.id)
}

// Level returns the multilevel switch level.
func (h *SwitchHandler) Level() (uint8, bool) {
	v := h.multilevel()
	if v == nil {
		return 0, false
	}
	f, ok := asFloat(v.Data)
	if !ok {
		return 0, false
	}
	return uint8(f), true
}

// SetLevel sets the multilevel level, clamped to MaxLevel.
func (h *SwitchHandler) SetLevel(level uint8) error {
	v := h.multilevel()
	if v == nil {
		return fmt.Errorf("node %d: not dimmable", h.node.id)
	}
	return h.node.SetValue(v.ID, min(level, MaxLevel))
}

var sensorClasses = []uint8{
	commandclass.SensorBinary,
	commandclass.SensorMultilevel,
	commandclass.Meter,
}

// SensorHandler reads sensor, meter and battery values.
type SensorHandler struct {
	node *Node
}

func (h *SensorHandler) Name() string { return "sensor" }

func (h *SensorHandler) Supported() bool {
	for _, cc := range sensorClasses {
		if h.node.HasCommandClass(cc) {
			return true
		}
	}
	return h.node.HasCommandClass(commandclass.Battery)
}

// Readings returns the user values of sensor and meter classes keyed by label.
func (h *SensorHandler) Readings() map[string]*Value {
	out := make(map[string]*Value)
	for _, cc := range sensorClasses {
		for _, v := range h.node.values.Values(ByCommandClass(cc), ByGenre(manager.GenreUser)) {
			if prev, ok := out[v.Label]; ok && prev.ID < v.ID {
				continue
			}
			out[v.Label] = v
		}
	}
	return out
}

// BatteryLevel returns the battery percentage.
func (h *SensorHandler) BatteryLevel() (uint8, bool) {
	v := h.node.values.First(ByCommandClass(commandclass.Battery), ByGenre(manager.GenreUser))
	if v == nil {
		return 0, false
	}
	f, ok := asFloat(v.Data)
	if !ok {
		return 0, false
	}
	return uint8(f), true
}

// SecurityHandler reports security and local protection state.
type SecurityHandler struct {
	node *Node
}

func (h *SecurityHandler) Name() string { return "security" }

func (h *SecurityHandler) Supported() bool {
	return h.node.HasCommandClass(commandclass.Security) ||
		h.node.HasCommandClass(commandclass.Protection)
}

// Secured reports whether the node communicates using the Security class.
func (h *SecurityHandler) Secured() bool {
	return h.node.IsSecurityDevice() || h.node.HasCommandClass(commandclass.Security)
}

func (h *SecurityHandler) protection() *Value {
	return h.node.values.First(ByCommandClass(commandclass.Protection), ByReadOnly(false))
}

// Protection returns the current protection mode.
func (h *SecurityHandler) Protection() (string, bool) {
	v := h.protection()
	if v == nil {
		return "", false
	}
	return fmt.Sprint(v.Data), true
}

func (h *SecurityHandler) SetProtection(mode string) error {
	v := h.protection()
	if v == nil {
		return fmt.Errorf("node %d: no protection value", h.node.id)
	}
	return h.node.SetValue(v.ID, mode)
}

// Locked reports whether any protection mode other than unprotected is set.
func (h *SecurityHandler) Locked() bool {
	v := h.protection()
	if v == nil {
		return false
	}
	if f, ok := asFloat(v.Data); ok {
		return f != 0
	}
	s, ok := v.Data.(string)
	return ok && s != "" && !strings.EqualFold(s, "unprotected")
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case uint8:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
