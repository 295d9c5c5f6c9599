package manager

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOptionsLocked is returned when options are changed after Lock.
var ErrOptionsLocked = errors.New("options locked")

// Options is the native manager's process-wide option store. It must be
// created and locked before the Manager is started.
type Options interface {
	Create(configPath, userPath, cmdLine []byte) error
	AddOptionInt(name []byte, value int32) error
	AddOptionBool(name []byte, value bool) error
	AddOptionString(name []byte, value []byte, appendValue bool) error
	DefaultConfigPath() []byte
	Lock() error
}

// MemoryOptions is an Options implementation that records every option in
// memory. It backs the in-process manager and tests.
type MemoryOptions struct {
	mu            sync.Mutex
	defaultConfig string
	created       bool
	locked        bool
	configPath    string
	userPath      string
	cmdLine       string
	ints          map[string]int32
	bools         map[string]bool
	strs          map[string]string
}

// NewMemoryOptions returns an empty option store whose DefaultConfigPath is
// defaultConfig.
func NewMemoryOptions(defaultConfig string) *MemoryOptions {
	return &MemoryOptions{
		defaultConfig: defaultConfig,
		ints:          make(map[string]int32),
		bools:         make(map[string]bool),
		strs:          make(map[string]string),
	}
}

func (o *MemoryOptions) Create(configPath, userPath, cmdLine []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.created {
		return fmt.Errorf("options already created")
	}
	o.created = true
	o.configPath = Decode(configPath)
	o.userPath = Decode(userPath)
	o.cmdLine = Decode(cmdLine)
	return nil
}

func (o *MemoryOptions) AddOptionInt(name []byte, value int32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkWritable(); err != nil {
		return err
	}
	o.ints[Decode(name)] = value
	return nil
}

func (o *MemoryOptions) AddOptionBool(name []byte, value bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkWritable(); err != nil {
		return err
	}
	o.bools[Decode(name)] = value
	return nil
}

func (o *MemoryOptions) AddOptionString(name []byte, value []byte, appendValue bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkWritable(); err != nil {
		return err
	}
	key := Decode(name)
	v := Decode(value)
	if prev, ok := o.strs[key]; ok && appendValue && prev != "" {
		v = prev + "," + v
	}
	o.strs[key] = v
	return nil
}

func (o *MemoryOptions) DefaultConfigPath() []byte {
	return Encode(o.defaultConfig)
}

func (o *MemoryOptions) Lock() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.created {
		return fmt.Errorf("options not created")
	}
	o.locked = true
	return nil
}

func (o *MemoryOptions) checkWritable() error {
	if !o.created {
		return fmt.Errorf("options not created")
	}
	if o.locked {
		return ErrOptionsLocked
	}
	return nil
}

// Locked reports whether Lock was called.
func (o *MemoryOptions) Locked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.locked
}

// Paths returns the paths passed to Create.
func (o *MemoryOptions) Paths() (configPath, userPath, cmdLine string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.configPath, o.userPath, o.cmdLine
}

// IntOption returns a recorded integer option.
func (o *MemoryOptions) IntOption(name string) (int32, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.ints[name]
	return v, ok
}

// BoolOption returns a recorded boolean option.
func (o *MemoryOptions) BoolOption(name string) (bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.bools[name]
	return v, ok
}

// StringOption returns a recorded string option.
func (o *MemoryOptions) StringOption(name string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.strs[name]
	return v, ok
}
