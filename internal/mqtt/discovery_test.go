//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"testing"

	"zwave-go-home/internal/commandclass"
)

func TestDiscoverySwitchWithMeter(t *testing.T) {
	d := nodeDescriptor{
		NodeID:       2,
		Identifier:   "zwave_014d0ef5_2",
		Topic:        "hall_switch",
		Name:         "Hall Switch",
		Manufacturer: "Aeotec",
		Model:        "Smart Switch 6",
		Switch:       true,
		Sensors: []sensorDesc{
			{Key: "power", Label: "Power", Units: "W", CommandClass: commandclass.Meter},
			{Key: "energy", Label: "Energy", Units: "kWh", CommandClass: commandclass.Meter},
		},
	}

	msgs := buildDiscovery(d, "zwave")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}

	var sw haDiscovery
	if err := json.Unmarshal(msgs[0].Payload, &sw); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if msgs[0].Topic != "homeassistant/switch/zwave_014d0ef5_2/switch/config" {
		t.Errorf("topic = %q", msgs[0].Topic)
	}
	if sw.CommandTopic != "zwave/hall_switch/set" {
		t.Errorf("command_topic = %q", sw.CommandTopic)
	}
	if sw.StateTopic != "zwave/hall_switch" {
		t.Errorf("state_topic = %q", sw.StateTopic)
	}
	if sw.AvailabilityTopic != "zwave/bridge/state" {
		t.Errorf("availability_topic = %q", sw.AvailabilityTopic)
	}
	if sw.Device.Manufacturer != "Aeotec" || sw.Device.Model != "Smart Switch 6" {
		t.Errorf("device = %+v", sw.Device)
	}

	var energy haDiscovery
	if err := json.Unmarshal(msgs[2].Payload, &energy); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if energy.DeviceClass != "energy" || energy.StateClass != "total_increasing" {
		t.Errorf("energy classes = %q/%q", energy.DeviceClass, energy.StateClass)
	}
	if energy.ValueTemplate != "{{ value_json.energy }}" {
		t.Errorf("value_template = %q", energy.ValueTemplate)
	}
}

func TestDiscoveryDimmerIsLight(t *testing.T) {
	d := nodeDescriptor{Identifier: "zwave_1_9", Topic: "lamp", Name: "Lamp", Switch: true, Dimmable: true}

	msgs := buildDiscovery(d, "zwave")
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Topic != "homeassistant/light/zwave_1_9/light/config" {
		t.Errorf("topic = %q", msgs[0].Topic)
	}
}

func TestDiscoveryDuplicateLabels(t *testing.T) {
	d := nodeDescriptor{
		Identifier: "zwave_1_4",
		Topic:      "node_4",
		Name:       "Node 4",
		Sensors: []sensorDesc{
			{Key: "temperature", Label: "Temperature", Units: "C", CommandClass: commandclass.SensorMultilevel},
			{Key: "temperature", Label: "Temperature", Units: "C", CommandClass: commandclass.SensorMultilevel},
		},
	}
	if msgs := buildDiscovery(d, "zwave"); len(msgs) != 1 {
		t.Errorf("got %d messages, want 1", len(msgs))
	}
}

func TestSensorClass(t *testing.T) {
	cases := []struct {
		s                   sensorDesc
		device, state, unit string
	}{
		{sensorDesc{Label: "Temperature", Units: "C"}, "temperature", "measurement", "°C"},
		{sensorDesc{Label: "Temperature", Units: "F"}, "temperature", "measurement", "°F"},
		{sensorDesc{Label: "Relative Humidity", Units: "%"}, "humidity", "measurement", "%"},
		{sensorDesc{Label: "Luminance", Units: "lux"}, "illuminance", "measurement", "lx"},
		{sensorDesc{Label: "Battery Level", Units: "%", CommandClass: commandclass.Battery}, "battery", "measurement", "%"},
		{sensorDesc{Label: "Voltage", Units: "V"}, "voltage", "measurement", "V"},
		{sensorDesc{Label: "Ultraviolet", Units: ""}, "", "measurement", ""},
	}
	for _, tc := range cases {
		device, state, unit := sensorClass(tc.s)
		if device != tc.device || state != tc.state || unit != tc.unit {
			t.Errorf("sensorClass(%q) = %q/%q/%q, want %q/%q/%q",
				tc.s.Label, device, state, unit, tc.device, tc.state, tc.unit)
		}
	}
}

func TestBinarySensorClass(t *testing.T) {
	if got := binarySensorClass(sensorDesc{Label: "Motion Sensor"}); got != "motion" {
		t.Errorf("motion = %q", got)
	}
	if got := binarySensorClass(sensorDesc{Label: "Door/Window"}); got != "opening" {
		t.Errorf("door = %q", got)
	}
	if got := binarySensorClass(sensorDesc{Label: "Sensor"}); got != "" {
		t.Errorf("generic = %q", got)
	}
}

func TestRemoveDiscovery(t *testing.T) {
	msgs := buildRemoveDiscovery([]string{"a/config", "b/config"})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	for _, m := range msgs {
		if len(m.Payload) != 0 {
			t.Errorf("%s payload = %q, want empty", m.Topic, m.Payload)
		}
	}
}

func TestStaleTopics(t *testing.T) {
	stale := staleTopics([]string{"a", "b", "c"}, []string{"b"})
	if len(stale) != 2 || stale[0] != "a" || stale[1] != "c" {
		t.Errorf("stale = %v", stale)
	}
	if stale := staleTopics(nil, []string{"a"}); len(stale) != 0 {
		t.Errorf("stale = %v, want none", stale)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Hall Switch":    "hall_switch",
		" Battery Level": "battery_level",
		"Door/Window":    "door_window",
		"kWh-meter_2":    "kwh-meter_2",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
