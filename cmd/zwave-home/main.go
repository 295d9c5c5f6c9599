package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
	"zwave-go-home/internal/option"
	"zwave-go-home/internal/store"
	"zwave-go-home/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// defaultConfigPath holds the device database shipped with the in-process
// manager.
const defaultConfigPath = "ozw-config"

type Config struct {
	ZWave struct {
		Device     string          `yaml:"device"` // path or "auto"
		ConfigPath string          `yaml:"config_path"`
		UserPath   string          `yaml:"user_path"`
		CmdLine    string          `yaml:"cmd_line"`
		Options    option.Settings `yaml:"options"`
	} `yaml:"zwave"`
	Manager struct {
		Type    string `yaml:"type"` // "memory"
		Fixture string `yaml:"fixture"`
		HomeID  uint32 `yaml:"home_id"`
	} `yaml:"manager"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	ScriptsDir string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	if c.ZWave.Device == "" {
		return fmt.Errorf("zwave.device is required")
	}
	switch c.Manager.Type {
	case "memory":
		if c.Manager.Fixture == "" {
			return fmt.Errorf("manager.fixture is required for the memory manager")
		}
	default:
		return fmt.Errorf("unknown manager type: %q (supported: memory)", c.Manager.Type)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func main() {
	listPorts := flag.Bool("list-ports", false, "print the serial ports found on this host and exit")
	flag.Parse()

	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *listPorts {
		ports, err := option.ListPorts()
		if err != nil {
			bootLogger.Error("list ports", "err", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfgPath := "config.yaml"
	if flag.NArg() > 0 {
		cfgPath = flag.Arg(0)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// Create configured logger.
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zwave-go-home starting", "version", version)

	classes := commandclass.NewStandardRegistry(logger)
	logger.Info("command class registry initialized", "classes", len(classes.All()))

	// Options must be created, applied and locked before the manager starts.
	opts, err := option.New(manager.NewMemoryOptions(defaultConfigPath), cfg.ZWave.Device,
		cfg.ZWave.ConfigPath, cfg.ZWave.UserPath, cfg.ZWave.CmdLine)
	if err != nil {
		logger.Error("zwave options", "err", err)
		os.Exit(1)
	}
	if err := cfg.ZWave.Options.Apply(opts); err != nil {
		logger.Error("apply zwave options", "err", err)
		os.Exit(1)
	}
	if err := opts.Lock(); err != nil {
		logger.Error("lock zwave options", "err", err)
		os.Exit(1)
	}
	logger.Info("zwave options locked", "device", opts.Device(), "config", opts.ConfigPath(), "user", opts.UserPath())

	mgr, err := createManager(cfg, classes, logger)
	if err != nil {
		logger.Error("create manager", "err", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// Open store
	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	net := network.New(mgr, db, network.NewEventBus(logger), network.Config{
		Device: opts.Device(),
	}, logger)

	// Start network
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := net.Start(ctx); err != nil {
		logger.Error("start network", "err", err)
		cancel()
		os.Exit(1)
	}
	if err := net.WaitReady(ctx); err != nil {
		logger.Warn("network not ready yet, continuing", "err", err)
	}
	cancel()
	info := net.Info()
	logger.Info("network started", "home_id", net.HomeIDString(), "nodes", info.NodeCount)

	// Start automation engine (no-op when built with no_automation tag).
	auto, autoWebOpts := initAutomation(net, cfg, logger)

	// Start web server
	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))
	webOpts = append(webOpts, autoWebOpts...)

	webServer := web.NewServer(net, classes, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(net, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	if err := net.Stop(); err != nil {
		logger.Error("stop network", "err", err)
	}

	logger.Info("goodbye")
}

func createManager(cfg *Config, classes *commandclass.Registry, logger *slog.Logger) (*manager.Memory, error) {
	switch cfg.Manager.Type {
	case "memory":
		fixture, err := manager.LoadFixture(cfg.Manager.Fixture)
		if err != nil {
			return nil, err
		}
		if cfg.Manager.HomeID != 0 {
			fixture.HomeID = cfg.Manager.HomeID
		}
		logger.Info("using in-process manager", "fixture", cfg.Manager.Fixture, "nodes", len(fixture.Nodes))
		return manager.NewMemory(fixture, classes.Descriptions(), logger), nil
	default:
		return nil, fmt.Errorf("unknown manager type: %q (supported: memory)", cfg.Manager.Type)
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Manager.Type == "" {
		cfg.Manager.Type = "memory"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zwave-home.db"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zwave2mqtt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
