package config

import (
	"sort"
	"time"
)

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"smooth": {
		Address: DefaultAddress, ReconnectBackoff: Duration(DefaultBackoff),
		RenderRate: 120, PacingMs: 3, MaxGeometries: 20000,
		Log: LogConfig{Level: DefaultLogLevel},
	},
	"lowcpu": {
		Address: DefaultAddress, ReconnectBackoff: Duration(DefaultBackoff),
		RenderRate: 15, PacingMs: 50, MaxGeometries: 5000,
		Log: LogConfig{Level: DefaultLogLevel},
	},
	"remote": {
		Address: DefaultAddress, ReconnectBackoff: Duration(5 * time.Second),
		RenderRate: 30, PacingMs: 100, MaxGeometries: 10000,
		Log: LogConfig{Level: DefaultLogLevel},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
