//go:build no_mqtt

package main

import (
	"log/slog"

	"zwave-go-home/internal/network"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *network.Network, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
