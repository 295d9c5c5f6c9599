// Package option validates the paths the native manager is started with and
// writes typed options into its option store.
package option

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"zwave-go-home/internal/manager"
)

// ErrConfig is returned when the device, config or user path is unusable.
// The underlying OS error is not wrapped.
var ErrConfig = errors.New("zwave config")

// AutoDevice selects the first serial port found on the host.
const AutoDevice = "auto"

// SchemaFile must be present in the manager's config directory.
const SchemaFile = "zwcfg.xsd"

// Option is a validated option set bound to a manager option store.
type Option struct {
	sink       manager.Options
	device     string
	configPath string
	userPath   string
	cmdLine    string
}

// New checks the paths and creates the option store. An empty configPath
// selects the manager's default; an empty userPath means the working
// directory.
func New(sink manager.Options, device, configPath, userPath, cmdLine string) (*Option, error) {
	if device == AutoDevice {
		found, err := DetectDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no serial device found", ErrConfig)
		}
		device = found
	}
	if _, err := os.Stat(device); err != nil {
		return nil, fmt.Errorf("%w: can't find device %s", ErrConfig, device)
	}
	if !readable(device) {
		return nil, fmt.Errorf("%w: can't read device %s", ErrConfig, device)
	}

	if configPath == "" {
		configPath = manager.Decode(sink.DefaultConfigPath())
	}
	if fi, err := os.Stat(configPath); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: can't retrieve config from %s", ErrConfig, configPath)
	}
	if _, err := os.Stat(filepath.Join(configPath, SchemaFile)); err != nil {
		return nil, fmt.Errorf("%w: can't retrieve %s from %s", ErrConfig, SchemaFile, configPath)
	}

	if userPath == "" {
		userPath = "."
	}
	if fi, err := os.Stat(userPath); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: can't find user directory %s", ErrConfig, userPath)
	}
	if !writable(userPath) {
		return nil, fmt.Errorf("%w: can't write in user directory %s", ErrConfig, userPath)
	}

	if err := sink.Create(manager.Encode(configPath), manager.Encode(userPath), manager.Encode(cmdLine)); err != nil {
		return nil, fmt.Errorf("create options: %w", err)
	}
	return &Option{
		sink:       sink,
		device:     device,
		configPath: configPath,
		userPath:   userPath,
		cmdLine:    cmdLine,
	}, nil
}

// Device is the resolved controller device.
func (o *Option) Device() string { return o.device }

func (o *Option) ConfigPath() string { return o.configPath }

func (o *Option) UserPath() string { return o.userPath }

func (o *Option) CmdLine() string { return o.cmdLine }

func (o *Option) addInt(name string, v int32) error {
	return o.sink.AddOptionInt(manager.Encode(name), v)
}

func (o *Option) addBool(name string, v bool) error {
	return o.sink.AddOptionBool(manager.Encode(name), v)
}

func (o *Option) addString(name, v string, appendValue bool) error {
	return o.sink.AddOptionString(manager.Encode(name), manager.Encode(v), appendValue)
}

// SetLogFile sets the manager's log file name.
func (o *Option) SetLogFile(path string) error {
	return o.addString("LogFileName", path, false)
}

func (o *Option) SetLogging(enabled bool) error {
	return o.addBool("Logging", enabled)
}

// SetAppendLogFile appends to the log file instead of overwriting it.
func (o *Option) SetAppendLogFile(enabled bool) error {
	return o.addBool("AppendLogFile", enabled)
}

// SetConsoleOutput mirrors the manager log on the console.
func (o *Option) SetConsoleOutput(enabled bool) error {
	return o.addBool("ConsoleOutput", enabled)
}

// SetSaveLogLevel sets the lowest level written to the log file.
func (o *Option) SetSaveLogLevel(level LogLevel) error {
	return o.addInt("SaveLogLevel", int32(level))
}

// SetQueueLogLevel sets the lowest level kept in memory.
func (o *Option) SetQueueLogLevel(level LogLevel) error {
	return o.addInt("QueueLogLevel", int32(level))
}

// SetDumpTriggerLevel sets the level that dumps the in-memory log.
func (o *Option) SetDumpTriggerLevel(level LogLevel) error {
	return o.addInt("DumpTriggerLevel", int32(level))
}

// SetAssociate associates the controller with group 1 of every device.
func (o *Option) SetAssociate(enabled bool) error {
	return o.addBool("Associate", enabled)
}

// SetExclude disables a command class. Repeated calls accumulate.
func (o *Option) SetExclude(commandClass string) error {
	return o.addString("Exclude", commandClass, true)
}

// SetInclude restricts the manager to the given command classes. Repeated
// calls accumulate; when set, Exclude is ignored.
func (o *Option) SetInclude(commandClass string) error {
	return o.addString("Include", commandClass, true)
}

func (o *Option) SetNotifyTransactions(enabled bool) error {
	return o.addBool("NotifyTransactions", enabled)
}

// SetInterface adds a serial port for the manager to open.
func (o *Option) SetInterface(port string) error {
	return o.addString("Interface", port, true)
}

// SetSaveConfiguration saves the network XML when the driver closes.
func (o *Option) SetSaveConfiguration(enabled bool) error {
	return o.addBool("SaveConfiguration", enabled)
}

func (o *Option) SetDriverMaxAttempts(attempts int32) error {
	return o.addInt("DriverMaxAttempts", attempts)
}

// SetPollInterval sets the poll cycle length in seconds.
func (o *Option) SetPollInterval(seconds int32) error {
	return o.addInt("PollInterval", seconds)
}

// SetIntervalBetweenPolls waits PollInterval between single polls instead of
// spreading the whole poll set over it.
func (o *Option) SetIntervalBetweenPolls(enabled bool) error {
	return o.addBool("IntervalBetweenPolls", enabled)
}

// SetSuppressValueRefresh drops notifications for refreshed but unchanged
// values.
func (o *Option) SetSuppressValueRefresh(enabled bool) error {
	return o.addBool("SuppressValueRefresh", enabled)
}

// Lock freezes the option store. The manager can be started afterwards.
func (o *Option) Lock() error {
	return o.sink.Lock()
}
