package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Numbers and booleans are pointers so an explicit 0 or false is kept.
type FileConfig struct {
	Port         string   `toml:"port"`
	Baud         *int     `toml:"baud"`
	ReadTimeout  string   `toml:"read_timeout"`
	WriteTimeout string   `toml:"write_timeout"`
	Pace         string   `toml:"pace"`
	CodePage     string   `toml:"codepage"`
	Width        *int     `toml:"width"`
	Threshold    *int     `toml:"threshold"`
	Dither       *bool    `toml:"dither"`
	Invert       *bool    `toml:"invert"`
	Resample     string   `toml:"resample"`
	FontSize     *float64 `toml:"font_size"`
	MaxFrames    *int     `toml:"max_frames"`
	LogLevel     string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.dpu414/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".dpu414", "config.toml")
	}
	return ""
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setString("codepage", fc.CodePage, &cfg.CodePage)
	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("threshold", fc.Threshold, &cfg.Threshold)
	s.setBool("dither", fc.Dither, &cfg.Dither)
	s.setBool("invert", fc.Invert, &cfg.Invert)
	s.setString("resample", fc.Resample, &cfg.Resample)
	s.setFloat("font-size", fc.FontSize, &cfg.FontSize)
	s.setInt("max-frames", fc.MaxFrames, &cfg.MaxFrames)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("pace", fc.Pace, &cfg.Pace); err != nil {
		return err
	}
	return nil
}
