package option

import "fmt"

// Settings is the YAML form of the manager options. Unset fields keep the
// manager's defaults.
type Settings struct {
	LogFile              string    `yaml:"log_file"`
	Logging              *bool     `yaml:"logging"`
	AppendLogFile        *bool     `yaml:"append_log_file"`
	ConsoleOutput        *bool     `yaml:"console_output"`
	SaveLogLevel         *LogLevel `yaml:"save_log_level"`
	QueueLogLevel        *LogLevel `yaml:"queue_log_level"`
	DumpTriggerLevel     *LogLevel `yaml:"dump_trigger_level"`
	Associate            *bool     `yaml:"associate"`
	Exclude              []string  `yaml:"exclude"`
	Include              []string  `yaml:"include"`
	NotifyTransactions   *bool     `yaml:"notify_transactions"`
	Interfaces           []string  `yaml:"interfaces"`
	SaveConfiguration    *bool     `yaml:"save_configuration"`
	DriverMaxAttempts    *int32    `yaml:"driver_max_attempts"`
	PollInterval         *int32    `yaml:"poll_interval"`
	IntervalBetweenPolls *bool     `yaml:"interval_between_polls"`
	SuppressValueRefresh *bool     `yaml:"suppress_value_refresh"`
}

// Apply writes every set field to o. It stops at the first refused option.
func (s *Settings) Apply(o *Option) error {
	type step struct {
		name string
		set  bool
		fn   func() error
	}
	steps := []step{
		{"log_file", s.LogFile != "", func() error { return o.SetLogFile(s.LogFile) }},
		{"logging", s.Logging != nil, func() error { return o.SetLogging(*s.Logging) }},
		{"append_log_file", s.AppendLogFile != nil, func() error { return o.SetAppendLogFile(*s.AppendLogFile) }},
		{"console_output", s.ConsoleOutput != nil, func() error { return o.SetConsoleOutput(*s.ConsoleOutput) }},
		{"save_log_level", s.SaveLogLevel != nil, func() error { return o.SetSaveLogLevel(*s.SaveLogLevel) }},
		{"queue_log_level", s.QueueLogLevel != nil, func() error { return o.SetQueueLogLevel(*s.QueueLogLevel) }},
		{"dump_trigger_level", s.DumpTriggerLevel != nil, func() error { return o.SetDumpTriggerLevel(*s.DumpTriggerLevel) }},
		{"associate", s.Associate != nil, func() error { return o.SetAssociate(*s.Associate) }},
		{"notify_transactions", s.NotifyTransactions != nil, func() error { return o.SetNotifyTransactions(*s.NotifyTransactions) }},
		{"save_configuration", s.SaveConfiguration != nil, func() error { return o.SetSaveConfiguration(*s.SaveConfiguration) }},
		{"driver_max_attempts", s.DriverMaxAttempts != nil, func() error { return o.SetDriverMaxAttempts(*s.DriverMaxAttempts) }},
		{"poll_interval", s.PollInterval != nil, func() error { return o.SetPollInterval(*s.PollInterval) }},
		{"interval_between_polls", s.IntervalBetweenPolls != nil, func() error { return o.SetIntervalBetweenPolls(*s.IntervalBetweenPolls) }},
		{"suppress_value_refresh", s.SuppressValueRefresh != nil, func() error { return o.SetSuppressValueRefresh(*s.SuppressValueRefresh) }},
	}
	for _, st := range steps {
		if !st.set {
			continue
		}
		if err := st.fn(); err != nil {
			return fmt.Errorf("set %s: %w", st.name, err)
		}
	}
	for _, cc := range s.Exclude {
		if err := o.SetExclude(cc); err != nil {
			return fmt.Errorf("set exclude: %w", err)
		}
	}
	for _, cc := range s.Include {
		if err := o.SetInclude(cc); err != nil {
			return fmt.Errorf("set include: %w", err)
		}
	}
	for _, port := range s.Interfaces {
		if err := o.SetInterface(port); err != nil {
			return fmt.Errorf("set interface: %w", err)
		}
	}
	return nil
}
