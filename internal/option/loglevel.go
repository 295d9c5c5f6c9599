package option

import (
	"fmt"
	"strings"
)

// LogLevel is a manager log level.
type LogLevel int32

const (
	LogNone LogLevel = iota + 1
	LogAlways
	LogFatal
	LogError
	LogWarning
	LogAlert
	LogInfo
	LogDetail
	LogDebug
	LogStreamDetail
	LogInternal
)

var logLevelNames = map[LogLevel]string{
	LogNone:         "None",
	LogAlways:       "Always",
	LogFatal:        "Fatal",
	LogError:        "Error",
	LogWarning:      "Warning",
	LogAlert:        "Alert",
	LogInfo:         "Info",
	LogDetail:       "Detail",
	LogDebug:        "Debug",
	LogStreamDetail: "StreamDetail",
	LogInternal:     "Internal",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int32(l))
}

// ParseLogLevel parses a level name, case-insensitive.
func ParseLogLevel(s string) (LogLevel, error) {
	for l, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogLevel) UnmarshalText(b []byte) error {
	v, err := ParseLogLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
