//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
	"zwave-go-home/internal/store"
)

// fakeTransport records what the bridge sends.
type fakeTransport struct {
	mu           sync.Mutex
	retained     map[string][]byte
	published    []string
	subs         map[string]func([]byte)
	unsubscribed []string
	disconnected bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		retained: make(map[string][]byte),
		subs:     make(map[string]func([]byte)),
	}
}

func (f *fakeTransport) Publish(topic string, payload []byte, retained bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic)
	if retained {
		f.retained[topic] = payload
	}
}

func (f *fakeTransport) Subscribe(topic string, handler func([]byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = handler
}

func (f *fakeTransport) Unsubscribe(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, topic)
	f.unsubscribed = append(f.unsubscribed, topic)
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeTransport) payload(topic string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.retained[topic]
	return p, ok
}

func (f *fakeTransport) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[topic]
	return ok
}

// deliver simulates a broker message on topic.
func (f *fakeTransport) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", topic)
	}
	h([]byte(payload))
}

func (f *fakeTransport) state(t *testing.T, topic string) map[string]any {
	t.Helper()
	p, ok := f.payload(topic)
	if !ok {
		t.Fatalf("nothing published on %s", topic)
	}
	var state map[string]any
	if err := json.Unmarshal(p, &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return state
}

type testBridge struct {
	bridge *Bridge
	fake   *fakeTransport
	mem    *manager.Memory
	net    *network.Network
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	f, err := manager.LoadFixture("../manager/testdata/network.yaml")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	mem := manager.NewMemory(f, commandclass.NewStandardRegistry(logger).Descriptions(), logger)

	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	net := network.New(mem, st, network.NewEventBus(logger), network.Config{Device: "/dev/ttyACM0"}, logger)
	if err := net.Start(context.Background()); err != nil {
		t.Fatalf("start network: %v", err)
	}
	if err := net.WaitReady(context.Background()); err != nil {
		t.Fatalf("wait ready: %v", err)
	}

	fake := newFakeTransport()
	b := newBridge(net, "zwave", logger)
	b.client = fake
	b.Start()
	b.onConnect()
	t.Cleanup(b.Stop)
	return &testBridge{bridge: b, fake: fake, mem: mem, net: net}
}

func (tb *testBridge) node(t *testing.T, id uint8) *network.Node {
	t.Helper()
	n, ok := tb.net.Node(id)
	if !ok {
		t.Fatalf("node %d not found", id)
	}
	return n
}

func TestBridgeOnConnect(t *testing.T) {
	tb := newTestBridge(t)

	if p, _ := tb.fake.payload("zwave/bridge/state"); string(p) != "online" {
		t.Errorf("bridge state = %q, want online", p)
	}
	if _, ok := tb.fake.payload("homeassistant/switch/zwave_014d0ef5_2/switch/config"); !ok {
		t.Error("switch discovery missing")
	}
	if _, ok := tb.fake.payload("homeassistant/sensor/zwave_014d0ef5_2/power/config"); !ok {
		t.Error("power discovery missing")
	}
	if _, ok := tb.fake.payload("homeassistant/sensor/zwave_014d0ef5_3/temperature/config"); ok {
		t.Error("sleeping node should not be discovered before it is ready")
	}
	if !tb.fake.subscribed("zwave/hall_switch/set") {
		t.Error("command topic not subscribed")
	}

	state := tb.fake.state(t, "zwave/hall_switch")
	if state["state"] != "OFF" {
		t.Errorf("state = %v, want OFF", state["state"])
	}
	if state["power"] != float64(0) {
		t.Errorf("power = %v, want 0", state["power"])
	}
	if state["name"] != "Hall Switch" {
		t.Errorf("name = %v", state["name"])
	}
	if _, ok := state["send_notifications"]; ok {
		t.Error("config values must not appear in state")
	}
}

func TestBridgeStop(t *testing.T) {
	tb := newTestBridge(t)
	tb.bridge.Stop()

	if p, _ := tb.fake.payload("zwave/bridge/state"); string(p) != "offline" {
		t.Errorf("bridge state = %q, want offline", p)
	}
	if !tb.fake.disconnected {
		t.Error("client not disconnected")
	}
}

func TestBridgeSwitchCommand(t *testing.T) {
	tb := newTestBridge(t)

	tb.fake.deliver(t, "zwave/hall_switch/set", `{"state":"ON"}`)

	v, ok := tb.node(t, 2).Value(1001)
	if !ok {
		t.Fatal("switch value missing")
	}
	if v.Data != true {
		t.Errorf("switch value = %v, want true", v.Data)
	}
	if state := tb.fake.state(t, "zwave/hall_switch"); state["state"] != "ON" {
		t.Errorf("state = %v, want ON", state["state"])
	}

	tb.fake.deliver(t, "zwave/hall_switch/set", `{"state":"TOGGLE"}`)
	if state := tb.fake.state(t, "zwave/hall_switch"); state["state"] != "OFF" {
		t.Errorf("state after toggle = %v, want OFF", state["state"])
	}
}

func TestBridgeInvalidCommand(t *testing.T) {
	tb := newTestBridge(t)

	tb.fake.deliver(t, "zwave/hall_switch/set", `not json`)
	tb.fake.deliver(t, "zwave/hall_switch/set", `{"state":"BLINK"}`)

	if state := tb.fake.state(t, "zwave/hall_switch"); state["state"] != "OFF" {
		t.Errorf("state = %v, want OFF", state["state"])
	}
}

func TestBridgeRenameMovesTopics(t *testing.T) {
	tb := newTestBridge(t)

	tb.fake.deliver(t, "zwave/hall_switch/set", `{"name":"Kitchen Light","location":"Kitchen"}`)

	if got := tb.node(t, 2).Name(); got != "Kitchen Light" {
		t.Fatalf("name = %q", got)
	}
	if !tb.fake.subscribed("zwave/kitchen_light/set") {
		t.Error("new command topic not subscribed")
	}
	if tb.fake.subscribed("zwave/hall_switch/set") {
		t.Error("old command topic still subscribed")
	}
	if p, _ := tb.fake.payload("zwave/hall_switch"); len(p) != 0 {
		t.Errorf("old state topic not cleared: %s", p)
	}
	state := tb.fake.state(t, "zwave/kitchen_light")
	if state["location"] != "Kitchen" {
		t.Errorf("location = %v", state["location"])
	}
}

func TestBridgeValueChangePublishesState(t *testing.T) {
	tb := newTestBridge(t)

	_, err := tb.mem.PutValue(2, manager.ValueFixture{
		ID: 1002, CommandClass: 0x32, Genre: "User", Type: "Decimal",
		Label: "Power", Units: "W", ReadOnly: true, Data: 12.5,
	})
	if err != nil {
		t.Fatalf("put value: %v", err)
	}

	if state := tb.fake.state(t, "zwave/hall_switch"); state["power"] != 12.5 {
		t.Errorf("power = %v, want 12.5", state["power"])
	}
}

func TestBridgeWakeUpPublishesDiscovery(t *testing.T) {
	tb := newTestBridge(t)

	tb.mem.SetAsleep(3, false)

	for _, topic := range []string{
		"homeassistant/binary_sensor/zwave_014d0ef5_3/sensor/config",
		"homeassistant/sensor/zwave_014d0ef5_3/temperature/config",
		"homeassistant/sensor/zwave_014d0ef5_3/battery_level/config",
	} {
		if _, ok := tb.fake.payload(topic); !ok {
			t.Errorf("%s missing", topic)
		}
	}
	state := tb.fake.state(t, "zwave/bedroom_sensor")
	if state["temperature"] != 21.5 {
		t.Errorf("temperature = %v", state["temperature"])
	}
	if state["battery_level"] != float64(87) {
		t.Errorf("battery_level = %v", state["battery_level"])
	}
}

func TestBridgeNodeRemoved(t *testing.T) {
	tb := newTestBridge(t)

	if err := tb.mem.RemoveNode(2); err != nil {
		t.Fatalf("remove node: %v", err)
	}

	for _, topic := range []string{
		"homeassistant/switch/zwave_014d0ef5_2/switch/config",
		"homeassistant/sensor/zwave_014d0ef5_2/power/config",
		"zwave/hall_switch",
	} {
		p, ok := tb.fake.payload(topic)
		if !ok {
			t.Errorf("%s never published", topic)
		} else if len(p) != 0 {
			t.Errorf("%s not cleared: %s", topic, p)
		}
	}
	if tb.fake.subscribed("zwave/hall_switch/set") {
		t.Error("command topic still subscribed")
	}
}

func TestBridgeDimmer(t *testing.T) {
	tb := newTestBridge(t)

	err := tb.mem.AddNode(manager.NodeFixture{
		ID:             9,
		Name:           "Desk Lamp",
		ProductName:    "Dimmer 2",
		Listening:      true,
		CommandClasses: []uint8{0x20, 0x26},
		Values: []manager.ValueFixture{
			{ID: 9001, CommandClass: 0x26, Genre: "User", Type: "Byte", Label: "Level", Data: 0},
		},
	})
	if err != nil {
		t.Fatalf("add node: %v", err)
	}

	p, ok := tb.fake.payload("homeassistant/light/zwave_014d0ef5_9/light/config")
	if !ok {
		t.Fatal("light discovery missing")
	}
	var disc haDiscovery
	if err := json.Unmarshal(p, &disc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if disc.BrightnessScale != 99 {
		t.Errorf("brightness_scale = %d, want 99", disc.BrightnessScale)
	}
	if disc.CommandTopic != "zwave/desk_lamp/set" {
		t.Errorf("command_topic = %q", disc.CommandTopic)
	}

	tb.fake.deliver(t, "zwave/desk_lamp/set", `{"brightness":150}`)
	state := tb.fake.state(t, "zwave/desk_lamp")
	if state["brightness"] != float64(99) {
		t.Errorf("brightness = %v, want 99", state["brightness"])
	}
	if state["state"] != "ON" {
		t.Errorf("state = %v, want ON", state["state"])
	}

	tb.fake.deliver(t, "zwave/desk_lamp/set", `{"state":"OFF"}`)
	if state := tb.fake.state(t, "zwave/desk_lamp"); state["brightness"] != float64(0) {
		t.Errorf("brightness after off = %v, want 0", state["brightness"])
	}
}

func TestBridgeReconnectResubscribes(t *testing.T) {
	tb := newTestBridge(t)

	tb.fake.mu.Lock()
	tb.fake.subs = make(map[string]func([]byte))
	tb.fake.mu.Unlock()

	tb.bridge.onConnect()
	if !tb.fake.subscribed("zwave/hall_switch/set") {
		t.Error("command topic not resubscribed after reconnect")
	}
}

func TestBuildStateLowestIDWins(t *testing.T) {
	tb := newTestBridge(t)

	_, err := tb.mem.PutValue(2, manager.ValueFixture{
		ID: 1500, CommandClass: 0x32, Genre: "User", Type: "Decimal",
		Label: "Power", Units: "W", ReadOnly: true, Data: 99.0,
	})
	if err != nil {
		t.Fatalf("put value: %v", err)
	}

	state := buildState(tb.node(t, 2))
	if state["power"] != 0.0 {
		t.Errorf("power = %v, want value 1002's 0", state["power"])
	}
}
