//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"sort"
	"strings"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/zwave_014d0ef5_2/power/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic,omitempty"`
	AvailabilityTopic   string   `json:"availability_topic"`
	ValueTemplate       string   `json:"value_template,omitempty"`
	UnitOfMeasurement   string   `json:"unit_of_measurement,omitempty"`
	DeviceClass         string   `json:"device_class,omitempty"`
	StateClass          string   `json:"state_class,omitempty"`
	PayloadOn           string   `json:"payload_on,omitempty"`
	PayloadOff          string   `json:"payload_off,omitempty"`
	BrightnessScale     int      `json:"brightness_scale,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes,omitempty"`
	Schema              string   `json:"schema,omitempty"`
	Device              haDevice `json:"device"`
}

// sensorDesc is one read-out value exposed as an HA entity.
type sensorDesc struct {
	Key          string
	Label        string
	Units        string
	CommandClass uint8
	Binary       bool
}

// nodeDescriptor is everything discovery needs to know about a node.
type nodeDescriptor struct {
	NodeID       uint8
	Identifier   string
	Topic        string
	Name         string
	Manufacturer string
	Model        string
	Switch       bool
	Dimmable     bool
	Sensors      []sensorDesc
}

var sensorClasses = []uint8{
	commandclass.SensorBinary,
	commandclass.SensorMultilevel,
	commandclass.Meter,
	commandclass.Battery,
}

// describe reads the discovery view of a node.
func describe(n *network.Node, homeID string) nodeDescriptor {
	d := nodeDescriptor{
		NodeID:       n.ID(),
		Identifier:   fmt.Sprintf("zwave_%s_%d", strings.TrimPrefix(homeID, "0x"), n.ID()),
		Topic:        nodeTopicName(n),
		Name:         nodeDisplayName(n),
		Manufacturer: n.ManufacturerName(),
		Model:        n.ProductName(),
		Switch:       n.Switch().Supported(),
		Dimmable:     n.Switch().Dimmable(),
	}
	for _, cc := range sensorClasses {
		values := n.Values(network.ByCommandClass(cc), network.ByGenre(manager.GenreUser))
		ids := make([]network.ValueID, 0, len(values))
		for id := range values {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			v := values[id]
			d.Sensors = append(d.Sensors, sensorDesc{
				Key:          valueKey(v.Label),
				Label:        v.Label,
				Units:        v.Units,
				CommandClass: cc,
				Binary:       v.Type == manager.TypeBool,
			})
		}
	}
	return d
}

// nodeDisplayName returns a display name for the node.
func nodeDisplayName(n *network.Node) string {
	if name := n.Name(); name != "" {
		return name
	}
	manufacturer, product := n.ManufacturerName(), n.ProductName()
	if manufacturer != "" && product != "" {
		return manufacturer + " " + product
	}
	if product != "" {
		return product
	}
	return fmt.Sprintf("Node %d", n.ID())
}

// nodeTopicName returns the topic name for a node (name or node_<id>).
func nodeTopicName(n *network.Node) string {
	if name := n.Name(); name != "" {
		return sanitize(name)
	}
	return fmt.Sprintf("node_%d", n.ID())
}

// sanitize lowercases s and keeps only safe chars for MQTT topics and JSON keys.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(strings.TrimSpace(s)))
}

// valueKey is the state JSON key of a value label.
func valueKey(label string) string {
	return sanitize(label)
}

// buildDiscovery generates HA discovery messages for a node based on its
// command classes.
func buildDiscovery(d nodeDescriptor, prefix string) []discoveryMsg {
	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + d.Topic
	cmdTopic := stateTopic + "/set"

	haDev := haDevice{
		Identifiers:  []string{d.Identifier},
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
		Name:         d.Name,
	}

	var msgs []discoveryMsg

	// A multilevel switch is a light, a binary one a switch.
	if d.Dimmable {
		msgs = append(msgs, buildLight(d, stateTopic, cmdTopic, avail, haDev))
	} else if d.Switch {
		msgs = append(msgs, buildSwitch(d, stateTopic, cmdTopic, avail, haDev))
	}

	seen := make(map[string]bool)
	for _, s := range d.Sensors {
		if seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		if s.Binary {
			msgs = append(msgs, buildBinarySensor(d, stateTopic, avail, haDev, s))
		} else {
			msgs = append(msgs, buildSensor(d, stateTopic, avail, haDev, s))
		}
	}
	return msgs
}

// sensorClass maps a value to an HA device class, state class and unit.
func sensorClass(s sensorDesc) (deviceClass, stateClass, unit string) {
	unit = s.Units
	label := strings.ToLower(s.Label)
	switch {
	case s.CommandClass == commandclass.Battery:
		return "battery", "measurement", "%"
	case unit == "C" || unit == "F":
		return "temperature", "measurement", "°" + unit
	case strings.Contains(label, "humidity"):
		return "humidity", "measurement", unit
	case strings.Contains(label, "luminance") || unit == "lux":
		return "illuminance", "measurement", "lx"
	case unit == "W":
		return "power", "measurement", unit
	case unit == "kWh":
		return "energy", "total_increasing", unit
	case unit == "V":
		return "voltage", "measurement", unit
	case unit == "A":
		return "current", "measurement", unit
	}
	return "", "measurement", unit
}

func binarySensorClass(s sensorDesc) string {
	label := strings.ToLower(s.Label)
	switch {
	case strings.Contains(label, "motion"):
		return "motion"
	case strings.Contains(label, "door") || strings.Contains(label, "window"):
		return "opening"
	case strings.Contains(label, "flood") || strings.Contains(label, "water"):
		return "moisture"
	case strings.Contains(label, "smoke"):
		return "smoke"
	}
	return ""
}

func buildSensor(d nodeDescriptor, stateTopic, avail string, haDev haDevice, s sensorDesc) discoveryMsg {
	deviceClass, stateClass, unit := sensorClass(s)
	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", d.Identifier, s.Key)
	payload := haDiscovery{
		Name:              d.Name + " " + s.Label,
		UniqueID:          d.Identifier + "_" + s.Key,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", s.Key),
		UnitOfMeasurement: unit,
		DeviceClass:       deviceClass,
		StateClass:        stateClass,
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildBinarySensor(d nodeDescriptor, stateTopic, avail string, haDev haDevice, s sensorDesc) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/config", d.Identifier, s.Key)
	payload := haDiscovery{
		Name:              d.Name + " " + s.Label,
		UniqueID:          d.Identifier + "_" + s.Key,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     fmt.Sprintf("{{ 'ON' if value_json.%s else 'OFF' }}", s.Key),
		DeviceClass:       binarySensorClass(s),
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildLight(d nodeDescriptor, stateTopic, cmdTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/light/%s/light/config", d.Identifier)
	payload := haDiscovery{
		Name:                d.Name,
		UniqueID:            d.Identifier + "_light",
		StateTopic:          stateTopic,
		CommandTopic:        cmdTopic,
		AvailabilityTopic:   avail,
		SupportedColorModes: []string{"brightness"},
		BrightnessScale:     int(network.MaxLevel),
		Schema:              "json",
		Device:              haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildSwitch(d nodeDescriptor, stateTopic, cmdTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/switch/%s/switch/config", d.Identifier)
	payload := haDiscovery{
		Name:              d.Name,
		UniqueID:          d.Identifier + "_switch",
		StateTopic:        stateTopic,
		CommandTopic:      cmdTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     "{{ value_json.state }}",
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages to remove entities
// from HA.
func buildRemoveDiscovery(topics []string) []discoveryMsg {
	msgs := make([]discoveryMsg, 0, len(topics))
	for _, t := range topics {
		msgs = append(msgs, discoveryMsg{Topic: t, Payload: nil})
	}
	return msgs
}
