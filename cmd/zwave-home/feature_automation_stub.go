//go:build no_automation

package main

import (
	"log/slog"

	"zwave-go-home/internal/network"
	"zwave-go-home/internal/web"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *network.Network, _ *Config, _ *slog.Logger) (*autoStopper, []web.ServerOption) {
	return &autoStopper{}, nil
}
