//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// Bridge connects the Z-Wave network to MQTT with HA autodiscovery.
type Bridge struct {
	client transport
	net    *network.Network
	prefix string
	logger *slog.Logger
	unsub  func()

	mu         sync.Mutex
	discovery  map[uint8][]string // node -> published discovery topics
	stateTopic map[uint8]string   // node -> state topic
	commands   map[uint8]string   // node -> subscribed command topic
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(net *network.Network, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := newBridge(net, cfg.TopicPrefix, logger)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "zwave-go-home"
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.onConnect()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	// The connect handler may fire before Connect returns.
	b.client = &pahoTransport{client: client, logger: b.logger}
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newBridge(net *network.Network, prefix string, logger *slog.Logger) *Bridge {
	return &Bridge{
		net:        net,
		prefix:     prefix,
		logger:     logger.With("component", "mqtt"),
		discovery:  make(map[uint8][]string),
		stateTopic: make(map[uint8]string),
		commands:   make(map[uint8]string),
	}
}

// Start subscribes to network events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.net.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect()
	b.logger.Info("MQTT bridge stopped")
}

// onConnect runs on every (re)connect. Subscriptions do not survive a clean
// session, so they are rebuilt from scratch.
func (b *Bridge) onConnect() {
	b.mu.Lock()
	b.commands = make(map[uint8]string)
	b.mu.Unlock()

	b.publishBridgeState("online")
	b.publishAll()
}

func (b *Bridge) handleEvent(event network.Event) {
	switch event.Type {
	case network.EventNodeReady, network.EventNodeNaming:
		data, ok := event.Data.(network.NodeEventData)
		if !ok {
			return
		}
		if node, ok := b.net.Node(data.NodeID); ok && node.IsReady() {
			b.publishNode(node)
		}
	case network.EventValueAdded, network.EventValueChanged, network.EventValueRemoved:
		data, ok := event.Data.(network.ValueEventData)
		if !ok {
			return
		}
		if node, ok := b.net.Node(data.NodeID); ok {
			b.publishState(node)
		}
	case network.EventNodeRemoved:
		data, ok := event.Data.(network.NodeEventData)
		if !ok {
			return
		}
		b.removeNode(data.NodeID)
	case network.EventNetworkReady:
		b.publishAll()
	}
}

func (b *Bridge) publishBridgeState(state string) {
	b.client.Publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishAll() {
	for _, node := range b.net.Nodes() {
		if node.IsReady() {
			b.publishNode(node)
		}
	}
}

// publishNode sends discovery, state and the command subscription for a node.
// Entities that disappeared since the last publication are removed.
func (b *Bridge) publishNode(node *network.Node) {
	desc := describe(node, b.net.HomeIDString())
	msgs := buildDiscovery(desc, b.prefix)

	topics := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		b.client.Publish(msg.Topic, msg.Payload, true)
		topics = append(topics, msg.Topic)
	}

	b.mu.Lock()
	stale := staleTopics(b.discovery[node.ID()], topics)
	b.discovery[node.ID()] = topics
	b.mu.Unlock()

	for _, msg := range buildRemoveDiscovery(stale) {
		b.client.Publish(msg.Topic, msg.Payload, true)
	}

	b.subscribeCommands(node.ID(), b.prefix+"/"+desc.Topic+"/set")
	b.publishState(node)
	b.logger.Info("published HA discovery", "node", node.ID(), "name", desc.Name, "entities", len(msgs))
}

func staleTopics(prev, next []string) []string {
	keep := make(map[string]bool, len(next))
	for _, t := range next {
		keep[t] = true
	}
	var stale []string
	for _, t := range prev {
		if !keep[t] {
			stale = append(stale, t)
		}
	}
	return stale
}

func (b *Bridge) subscribeCommands(nodeID uint8, topic string) {
	b.mu.Lock()
	prev, ok := b.commands[nodeID]
	if ok && prev == topic {
		b.mu.Unlock()
		return
	}
	b.commands[nodeID] = topic
	b.mu.Unlock()

	if ok {
		b.client.Unsubscribe(prev)
	}
	b.client.Subscribe(topic, func(payload []byte) {
		b.handleCommand(nodeID, payload)
	})
}

// publishState publishes the node's state JSON. A renamed node moves to a new
// topic and the old retained state is cleared.
func (b *Bridge) publishState(node *network.Node) {
	topic := b.prefix + "/" + nodeTopicName(node)
	payload := mustJSON(buildState(node))

	b.mu.Lock()
	prev := b.stateTopic[node.ID()]
	b.stateTopic[node.ID()] = topic
	b.mu.Unlock()

	if prev != "" && prev != topic {
		b.client.Publish(prev, nil, true)
	}
	b.client.Publish(topic, payload, true)
}

func (b *Bridge) removeNode(nodeID uint8) {
	b.mu.Lock()
	topics := b.discovery[nodeID]
	state := b.stateTopic[nodeID]
	cmd, subscribed := b.commands[nodeID]
	delete(b.discovery, nodeID)
	delete(b.stateTopic, nodeID)
	delete(b.commands, nodeID)
	b.mu.Unlock()

	for _, msg := range buildRemoveDiscovery(topics) {
		b.client.Publish(msg.Topic, msg.Payload, true)
	}
	if state != "" {
		b.client.Publish(state, nil, true)
	}
	if subscribed {
		b.client.Unsubscribe(cmd)
	}
	b.logger.Info("removed HA discovery", "node", nodeID, "entities", len(topics))
}

// buildState renders the node's user values plus switch and naming fields.
// When two values share a label the lowest value ID wins.
func buildState(node *network.Node) map[string]any {
	state := make(map[string]any)

	values := node.Values(network.ByGenre(manager.GenreUser))
	ids := make([]network.ValueID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		v := values[id]
		if v.WriteOnly {
			continue
		}
		key := valueKey(v.Label)
		if _, exists := state[key]; !exists {
			state[key] = v.Data
		}
	}

	sw := node.Switch()
	if on, ok := sw.IsOn(); ok {
		if on {
			state["state"] = "ON"
		} else {
			state["state"] = "OFF"
		}
	}
	if sw.Dimmable() {
		if level, ok := sw.Level(); ok {
			state["brightness"] = level
		}
	}
	state["node_id"] = node.ID()
	state["name"] = node.Name()
	state["location"] = node.Location()
	state["ready"] = node.IsReady()
	state["awake"] = node.IsAwake()
	return state
}

func (b *Bridge) handleCommand(nodeID uint8, payload []byte) {
	node, ok := b.net.Node(nodeID)
	if !ok {
		b.logger.Warn("command for unknown node", "node", nodeID)
		return
	}

	var cmd map[string]any
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("invalid command JSON", "node", nodeID, "err", err)
		return
	}

	sw := node.Switch()

	// Handle state command (ON/OFF/TOGGLE).
	if state, ok := cmd["state"].(string); ok {
		var err error
		switch strings.ToUpper(state) {
		case "ON":
			err = sw.On()
		case "OFF":
			err = sw.Off()
		case "TOGGLE":
			err = sw.Toggle()
		default:
			err = fmt.Errorf("unknown state %q", state)
		}
		if err != nil {
			b.logger.Warn("state command failed", "node", nodeID, "state", state, "err", err)
		}
	}

	// Handle brightness command.
	if brightness, ok := toFloat64(cmd["brightness"]); ok {
		level := network.MaxLevel
		if brightness < 0 {
			level = 0
		} else if brightness < float64(network.MaxLevel) {
			level = uint8(brightness)
		}
		if err := sw.SetLevel(level); err != nil {
			b.logger.Warn("brightness command failed", "node", nodeID, "err", err)
		}
	}

	// Handle naming fields.
	for _, field := range []string{"name", "location"} {
		if v, ok := cmd[field].(string); ok {
			if err := node.SetField(field, v); err != nil {
				b.logger.Warn("set field failed", "node", nodeID, "field", field, "err", err)
			}
		}
	}

	b.publishState(node)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	default:
		return 0, false
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
