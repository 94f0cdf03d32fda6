// Package config loads the optional YAML configuration of a collection run.
package config

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"livecollect/collectors"
	"livecollect/collectors/platform"
	"livecollect/collectors/runner"
)

const (
	DefaultOutput         = "."
	DefaultCommandTimeout = 2 * time.Minute
	DefaultHistoryLimit   = 25
	DefaultLogonEvents    = 200
)

// StepConfig is one command of a section override.
type StepConfig struct {
	Header string `yaml:"header"`
	Run    string `yaml:"run"`
}

type Config struct {
	Output         string                  `yaml:"output"`
	CommandTimeout string                  `yaml:"command_timeout"`
	HistoryLimit   int                     `yaml:"history_limit"`
	LogonEvents    int                     `yaml:"logon_events"`
	Commands       map[string][]StepConfig `yaml:"commands"`
}

func Default() *Config {
	return &Config{
		Output:         DefaultOutput,
		CommandTimeout: DefaultCommandTimeout.String(),
		HistoryLimit:   DefaultHistoryLimit,
		LogonEvents:    DefaultLogonEvents,
	}
}

// Load reads and validates the file at path. Keys absent from the file keep
// their defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %q", path)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output must not be empty")
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.HistoryLimit < 1 {
		return errors.Errorf("history_limit must be at least 1, got %d", c.HistoryLimit)
	}
	if c.LogonEvents < 1 {
		return errors.Errorf("logon_events must be at least 1, got %d", c.LogonEvents)
	}

	valid := map[string]bool{}
	for _, s := range platform.Sections() {
		valid[s] = true
	}
	for _, section := range c.sectionKeys() {
		if !valid[section] {
			return errors.Errorf("unknown section %q under 'commands' (want one of %s)", section, strings.Join(platform.Sections(), ", "))
		}
		for i, s := range c.Commands[section] {
			if strings.TrimSpace(s.Run) == "" {
				return errors.Errorf("commands.%s step #%d is missing 'run'", section, i+1)
			}
		}
	}
	return nil
}

// Timeout is the per-command timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "command_timeout %q", c.CommandTimeout)
	}
	if d <= 0 {
		return 0, errors.Errorf("command_timeout must be positive, got %s", d)
	}
	return d, nil
}

// Apply replaces the plan's steps for every section listed under commands.
func (c *Config) Apply(p *platform.Plan) error {
	for _, section := range c.sectionKeys() {
		var steps []collectors.Step
		for _, s := range c.Commands[section] {
			header := s.Header
			if header == "" {
				header = s.Run
			}
			steps = append(steps, collectors.Step{Header: header, Cmd: runner.Line(s.Run)})
		}
		if err := p.Override(section, steps); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) sectionKeys() []string {
	keys := make([]string, 0, len(c.Commands))
	for k := range c.Commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
