// Package config loads the instrument layout from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sweeney/harp-strings/internal/gpio"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is omitted.
const (
	DefaultSamplePeriodMs = 5
	DefaultSustainMs      = 2000
	DefaultThreshold      = 5000
	DefaultVelocity       = 100
	DefaultChannel        = 1
	DefaultBaud           = 115200
	DefaultTimeoutMs      = 20
)

// Config describes the whole instrument.
type Config struct {
	SamplePeriodMs int64 `yaml:"sample_period_ms"`
	SustainMs      int64 `yaml:"sustain_ms"`
	Threshold      int   `yaml:"threshold"`
	Velocity       int   `yaml:"velocity"`
	Channel        int   `yaml:"channel"` // 1-based MIDI channel

	ADC  ADCConfig  `yaml:"adc"`
	Mux  MuxConfig  `yaml:"mux"`
	MIDI MIDIConfig `yaml:"midi"`

	Strings []StringConfig `yaml:"strings"`
}

// ADCConfig is the serial link to the touch front-end.
type ADCConfig struct {
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int64  `yaml:"timeout_ms"`
}

// MuxConfig is the multiplexer select line wiring.
type MuxConfig struct {
	Chip string `yaml:"chip"`
	Pins []int  `yaml:"pins"`
}

// MIDIConfig selects the output port. An empty Port disables MIDI output.
type MIDIConfig struct {
	Port string `yaml:"port"`
}

// StringConfig is one harp string. SustainMs and Threshold inherit the
// instrument-wide setting when omitted or zero, so a single string cannot be
// given a zero sustain or a zero threshold; set the instrument-wide value for
// that.
type StringConfig struct {
	Name      string `yaml:"name"`
	Input     int    `yaml:"input"`         // analog channel on the front-end
	Mux       *int   `yaml:"mux,omitempty"` // multiplexer input, nil when wired directly
	Note      int    `yaml:"note"`
	SustainMs int64  `yaml:"sustain_ms,omitempty"`
	Threshold int    `yaml:"threshold,omitempty"`
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SamplePeriodMs == 0 {
		c.SamplePeriodMs = DefaultSamplePeriodMs
	}
	if c.SustainMs == 0 {
		c.SustainMs = DefaultSustainMs
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Velocity == 0 {
		c.Velocity = DefaultVelocity
	}
	if c.Channel == 0 {
		c.Channel = DefaultChannel
	}
	if c.ADC.Baud == 0 {
		c.ADC.Baud = DefaultBaud
	}
	if c.ADC.TimeoutMs == 0 {
		c.ADC.TimeoutMs = DefaultTimeoutMs
	}
	if c.Mux.Chip == "" {
		c.Mux.Chip = gpio.DefaultChip
	}
	if len(c.Mux.Pins) == 0 {
		c.Mux.Pins = append([]int(nil), gpio.DefaultSelectPins[:]...)
	}
	for i := range c.Strings {
		s := &c.Strings[i]
		if s.SustainMs == 0 {
			s.SustainMs = c.SustainMs
		}
		if s.Threshold == 0 {
			s.Threshold = c.Threshold
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("string-%d", i)
		}
	}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.SamplePeriodMs < 0 {
		errs = append(errs, fmt.Errorf("sample_period_ms must not be negative"))
	}
	if c.Velocity < 1 || c.Velocity > 127 {
		errs = append(errs, fmt.Errorf("velocity %d out of range 1-127", c.Velocity))
	}
	if c.Channel < 1 || c.Channel > 16 {
		errs = append(errs, fmt.Errorf("channel %d out of range 1-16", c.Channel))
	}
	if len(c.Mux.Pins) != gpio.SelectLines {
		errs = append(errs, fmt.Errorf("mux needs exactly %d select pins, got %d", gpio.SelectLines, len(c.Mux.Pins)))
	}
	if len(c.Strings) == 0 {
		errs = append(errs, errors.New("no strings configured"))
	}

	names := make(map[string]bool)
	for i, s := range c.Strings {
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("string %d: duplicate name %q", i, s.Name))
		}
		names[s.Name] = true

		if s.Input < 0 || s.Input > 255 {
			errs = append(errs, fmt.Errorf("string %q: input %d out of range 0-255", s.Name, s.Input))
		}
		if s.Mux != nil && (*s.Mux < 0 || *s.Mux > gpio.MaxInput) {
			errs = append(errs, fmt.Errorf("string %q: mux %d out of range 0-%d", s.Name, *s.Mux, gpio.MaxInput))
		}
		if s.Note < 0 || s.Note > 127 {
			errs = append(errs, fmt.Errorf("string %q: note %d out of range 0-127", s.Name, s.Note))
		}
		if s.SustainMs < 0 {
			errs = append(errs, fmt.Errorf("string %q: sustain_ms must not be negative", s.Name))
		}
		if s.Threshold < 0 || s.Threshold > 65535 {
			errs = append(errs, fmt.Errorf("string %q: threshold %d out of range", s.Name, s.Threshold))
		}
	}

	return errors.Join(errs...)
}

// Multiplexed reports whether any string sits behind the multiplexer.
func (c *Config) Multiplexed() bool {
	for _, s := range c.Strings {
		if s.Mux != nil {
			return true
		}
	}
	return false
}
