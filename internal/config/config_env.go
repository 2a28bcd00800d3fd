package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DPU414_PORT.
const EnvPrefix = "DPU414"

// ApplyEnvConfig applies DPU414_* environment variables to cfg. They
// override file config but are overridden by flags (checked via changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	s := newConfigSetter(changed)

	s.setString("port", v.GetString("port"), &cfg.Port)
	s.setString("codepage", v.GetString("codepage"), &cfg.CodePage)
	s.setString("resample", v.GetString("resample"), &cfg.Resample)
	s.setString("log-level", v.GetString("log_level"), &cfg.LogLevel)

	ints := []struct {
		flag, key string
		dst       *int
	}{
		{"baud", "baud", &cfg.Baud},
		{"width", "width", &cfg.Width},
		{"threshold", "threshold", &cfg.Threshold},
		{"max-frames", "max_frames", &cfg.MaxFrames},
	}
	for _, i := range ints {
		raw := v.GetString(i.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envName(i.key), err)
		}
		s.setInt(i.flag, &n, i.dst)
	}

	if raw := v.GetString("font_size"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envName("font_size"), err)
		}
		s.setFloat("font-size", &f, &cfg.FontSize)
	}

	durations := []struct {
		flag, key string
		dst       *time.Duration
	}{
		{"read-timeout", "read_timeout", &cfg.ReadTimeout},
		{"write-timeout", "write_timeout", &cfg.WriteTimeout},
		{"pace", "pace", &cfg.Pace},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, v.GetString(d.key), d.dst); err != nil {
			return err
		}
	}

	for _, b := range []struct {
		flag, key string
		dst       *bool
	}{
		{"dither", "dither", &cfg.Dither},
		{"invert", "invert", &cfg.Invert},
	} {
		raw := v.GetString(b.key)
		if raw == "" {
			continue
		}
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envName(b.key), err)
		}
		s.setBool(b.flag, &val, b.dst)
	}

	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
