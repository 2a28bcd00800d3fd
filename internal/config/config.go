package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dpu414-print/internal/escp"
	"dpu414-print/internal/imaging"
	"dpu414-print/internal/printer"
)

// DefaultMaxFrames is the image length, in raster lines, above which a job
// is logged as unusually tall. Nothing is refused.
const DefaultMaxFrames = 4096

// Config holds CLI configuration for dpu414-print.
type Config struct {
	Port         string
	Baud         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Pace         time.Duration

	CodePage string

	Width     int
	Threshold int
	Dither    bool
	Invert    bool
	Resample  string
	FontSize  float64

	MaxFrames int
	LogLevel  string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Baud:         printer.DefaultBaud,
		ReadTimeout:  printer.DefaultReadTimeout,
		WriteTimeout: printer.DefaultWriteTimeout,
		Pace:         printer.DefaultPace,
		CodePage:     escp.DefaultCodePage,
		Width:        imaging.DefaultWidth,
		Threshold:    imaging.DefaultThreshold,
		Resample:     "nearest",
		FontSize:     imaging.DefaultTextOptions().FontSize,
		MaxFrames:    DefaultMaxFrames,
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors. The port is checked
// separately by RequirePort since not every command talks to the printer.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Baud)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout must not be negative")
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace must not be negative")
	}
	if c.Width <= 0 || c.Width > imaging.MaxWidth {
		return fmt.Errorf("width must be within 1-%d dots, got %d", imaging.MaxWidth, c.Width)
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be within 0-255, got %d", c.Threshold)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font size must be positive")
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("max frames must not be negative")
	}
	if _, err := escp.LookupCodePage(c.CodePage); err != nil {
		return err
	}
	if _, err := imaging.LookupResample(c.Resample); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// RequirePort fails when no serial port is configured.
func (c *Config) RequirePort() error {
	if c.Port == "" {
		return fmt.Errorf("port is required (--port, DPU414_PORT or port in the config file)")
	}
	return nil
}

// PrinterOptions converts the configuration for printer.Run.
func (c *Config) PrinterOptions(logger *zerolog.Logger) printer.Options {
	return printer.Options{
		Port:         c.Port,
		Baud:         c.Baud,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		Pace:         c.Pace,
		CodePage:     c.CodePage,
		MaxFrames:    c.MaxFrames,
		Logger:       logger,
	}
}

// ImageOptions converts the configuration for imaging.Monochrome.
func (c *Config) ImageOptions() imaging.Options {
	return imaging.Options{
		Width:     c.Width,
		Threshold: uint8(c.Threshold),
		Dither:    c.Dither,
		Invert:    c.Invert,
		Resample:  c.Resample,
	}
}

// TextOptions converts the configuration for imaging.RenderText.
func (c *Config) TextOptions() imaging.TextOptions {
	opts := imaging.DefaultTextOptions()
	opts.FontSize = c.FontSize
	return opts
}

// configSetter applies values only if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt and setFloat apply any value that is present, zero and negative
// included; Validate rejects the ones out of range.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses a duration string; "0" is accepted to disable pacing
// or timeouts.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
