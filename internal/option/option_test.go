package option

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"zwave-go-home/internal/manager"
)

type paths struct {
	device string
	config string
	user   string
}

func newTestPaths(t *testing.T) paths {
	t.Helper()
	dir := t.TempDir()
	p := paths{
		device: filepath.Join(dir, "ttyACM0"),
		config: filepath.Join(dir, "config"),
		user:   filepath.Join(dir, "user"),
	}
	require.NoError(t, os.WriteFile(p.device, nil, 0o644))
	require.NoError(t, os.Mkdir(p.config, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.config, SchemaFile), []byte("<xsd/>"), 0o644))
	require.NoError(t, os.Mkdir(p.user, 0o755))
	return p
}

func newTestOption(t *testing.T) (*Option, *manager.MemoryOptions) {
	t.Helper()
	p := newTestPaths(t)
	sink := manager.NewMemoryOptions("")
	o, err := New(sink, p.device, p.config, p.user, "--verbose")
	require.NoError(t, err)
	return o, sink
}

func TestNewCreatesOptions(t *testing.T) {
	p := newTestPaths(t)
	sink := manager.NewMemoryOptions("")

	o, err := New(sink, p.device, p.config, p.user, "--verbose")
	require.NoError(t, err)

	assert.Equal(t, p.device, o.Device())
	assert.Equal(t, p.config, o.ConfigPath())
	assert.Equal(t, p.user, o.UserPath())
	assert.Equal(t, "--verbose", o.CmdLine())

	config, user, cmd := sink.Paths()
	assert.Equal(t, p.config, config)
	assert.Equal(t, p.user, user)
	assert.Equal(t, "--verbose", cmd)
}

func TestNewDefaultConfigPath(t *testing.T) {
	p := newTestPaths(t)
	sink := manager.NewMemoryOptions(p.config)

	o, err := New(sink, p.device, "", p.user, "")
	require.NoError(t, err)
	assert.Equal(t, p.config, o.ConfigPath())
}

func TestNewValidation(t *testing.T) {
	p := newTestPaths(t)
	noSchema := t.TempDir()

	cases := []struct {
		name                 string
		device, config, user string
		msg                  string
	}{
		{"missing device", filepath.Join(p.user, "nope"), p.config, p.user, "can't find device"},
		{"missing config", p.device, filepath.Join(p.user, "nope"), p.user, "can't retrieve config"},
		{"config is a file", p.device, p.device, p.user, "can't retrieve config"},
		{"no schema", p.device, noSchema, p.user, "can't retrieve zwcfg.xsd"},
		{"missing user dir", p.device, p.config, filepath.Join(p.user, "nope"), "can't find user directory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := manager.NewMemoryOptions("")
			_, err := New(sink, tc.device, tc.config, tc.user, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.ErrorContains(t, err, tc.msg)
			assert.Equal(t, ErrConfig, errors.Unwrap(err), "cause is not wrapped")
			_, _, cmd := sink.Paths()
			assert.Empty(t, cmd)
		})
	}
}

func TestNewReadOnlyUserDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	p := newTestPaths(t)
	require.NoError(t, os.Chmod(p.user, 0o555))
	t.Cleanup(func() { os.Chmod(p.user, 0o755) })

	_, err := New(manager.NewMemoryOptions(""), p.device, p.config, p.user, "")
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "can't write in user directory")
}

func TestNewCreateTwice(t *testing.T) {
	p := newTestPaths(t)
	sink := manager.NewMemoryOptions("")
	_, err := New(sink, p.device, p.config, p.user, "")
	require.NoError(t, err)

	_, err = New(sink, p.device, p.config, p.user, "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfig)
}

func TestSetters(t *testing.T) {
	o, sink := newTestOption(t)

	require.NoError(t, o.SetLogFile("OZW.log"))
	require.NoError(t, o.SetLogging(true))
	require.NoError(t, o.SetAppendLogFile(false))
	require.NoError(t, o.SetConsoleOutput(true))
	require.NoError(t, o.SetSaveLogLevel(LogDetail))
	require.NoError(t, o.SetQueueLogLevel(LogDebug))
	require.NoError(t, o.SetDumpTriggerLevel(LogError))
	require.NoError(t, o.SetAssociate(true))
	require.NoError(t, o.SetNotifyTransactions(true))
	require.NoError(t, o.SetSaveConfiguration(true))
	require.NoError(t, o.SetDriverMaxAttempts(5))
	require.NoError(t, o.SetPollInterval(30))
	require.NoError(t, o.SetIntervalBetweenPolls(true))
	require.NoError(t, o.SetSuppressValueRefresh(true))

	s, _ := sink.StringOption("LogFileName")
	assert.Equal(t, "OZW.log", s)
	b, _ := sink.BoolOption("Logging")
	assert.True(t, b)
	b, ok := sink.BoolOption("AppendLogFile")
	assert.True(t, ok)
	assert.False(t, b)
	i, _ := sink.IntOption("SaveLogLevel")
	assert.Equal(t, int32(8), i)
	i, _ = sink.IntOption("QueueLogLevel")
	assert.Equal(t, int32(9), i)
	i, _ = sink.IntOption("DumpTriggerLevel")
	assert.Equal(t, int32(4), i)
	i, _ = sink.IntOption("PollInterval")
	assert.Equal(t, int32(30), i)
	i, _ = sink.IntOption("DriverMaxAttempts")
	assert.Equal(t, int32(5), i)
	b, _ = sink.BoolOption("SuppressValueRefresh")
	assert.True(t, b)
}

func TestIncludeExcludeAccumulate(t *testing.T) {
	o, sink := newTestOption(t)

	require.NoError(t, o.SetExclude("COMMAND_CLASS_BASIC"))
	require.NoError(t, o.SetExclude("COMMAND_CLASS_METER"))
	require.NoError(t, o.SetInclude("COMMAND_CLASS_SWITCH_BINARY"))
	require.NoError(t, o.SetInterface("/dev/ttyUSB0"))
	require.NoError(t, o.SetInterface("/dev/ttyUSB1"))

	s, _ := sink.StringOption("Exclude")
	assert.Equal(t, "COMMAND_CLASS_BASIC,COMMAND_CLASS_METER", s)
	s, _ = sink.StringOption("Include")
	assert.Equal(t, "COMMAND_CLASS_SWITCH_BINARY", s)
	s, _ = sink.StringOption("Interface")
	assert.Equal(t, "/dev/ttyUSB0,/dev/ttyUSB1", s)

	require.NoError(t, o.SetLogFile("a.log"))
	require.NoError(t, o.SetLogFile("b.log"))
	s, _ = sink.StringOption("LogFileName")
	assert.Equal(t, "b.log", s)
}

func TestLock(t *testing.T) {
	o, sink := newTestOption(t)

	require.NoError(t, o.Lock())
	assert.True(t, sink.Locked())
	assert.ErrorIs(t, o.SetLogging(false), manager.ErrOptionsLocked)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("detail")
	require.NoError(t, err)
	assert.Equal(t, LogDetail, l)
	assert.Equal(t, "StreamDetail", LogStreamDetail.String())
	assert.Equal(t, LogLevel(1), LogNone)
	assert.Equal(t, LogLevel(11), LogInternal)
	assert.Equal(t, "LogLevel(42)", LogLevel(42).String())

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestSettingsApply(t *testing.T) {
	o, sink := newTestOption(t)

	var s Settings
	require.NoError(t, yaml.Unmarshal([]byte(`
log_file: OZW.log
logging: true
save_log_level: Detail
poll_interval: 60
associate: false
exclude: [COMMAND_CLASS_BASIC, COMMAND_CLASS_METER]
interfaces: [/dev/ttyUSB0]
`), &s))
	require.NoError(t, s.Apply(o))

	str, _ := sink.StringOption("LogFileName")
	assert.Equal(t, "OZW.log", str)
	i, _ := sink.IntOption("SaveLogLevel")
	assert.Equal(t, int32(LogDetail), i)
	i, _ = sink.IntOption("PollInterval")
	assert.Equal(t, int32(60), i)
	b, ok := sink.BoolOption("Associate")
	assert.True(t, ok)
	assert.False(t, b)
	_, ok = sink.BoolOption("ConsoleOutput")
	assert.False(t, ok, "unset fields are not written")
	str, _ = sink.StringOption("Exclude")
	assert.Equal(t, "COMMAND_CLASS_BASIC,COMMAND_CLASS_METER", str)
}

func TestSettingsBadLevel(t *testing.T) {
	var s Settings
	err := yaml.Unmarshal([]byte("save_log_level: loud\n"), &s)
	assert.Error(t, err)
}

func TestSettingsApplyLocked(t *testing.T) {
	o, _ := newTestOption(t)
	require.NoError(t, o.Lock())

	on := true
	s := Settings{Logging: &on}
	err := s.Apply(o)
	assert.ErrorIs(t, err, manager.ErrOptionsLocked)
	assert.ErrorContains(t, err, "set logging")
}
