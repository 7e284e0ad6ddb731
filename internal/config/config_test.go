package config

import "testing"

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.Addr != DefaultAddr {
		t.Errorf("addr = %q", c.Addr)
	}
	if c.Reserved != DefaultReserved {
		t.Errorf("reserved = %q", c.Reserved)
	}
	if c.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("maxUploadBytes = %d", c.MaxUploadBytes)
	}
	if c.LogLevel != "info" || c.LogFormat != "json" {
		t.Errorf("log defaults = %q/%q", c.LogLevel, c.LogFormat)
	}
}

func TestApplyDefaultsKeepsExplicit(t *testing.T) {
	c := Config{
		Addr:           "127.0.0.1:9000",
		Reserved:       ".internal",
		MaxUploadBytes: 1024,
		LogLevel:       "debug",
		LogFormat:      "console",
	}
	c.ApplyDefaults()

	if c.Addr != "127.0.0.1:9000" || c.Reserved != ".internal" || c.MaxUploadBytes != 1024 {
		t.Errorf("explicit values overwritten: %+v", c)
	}
	if c.LogLevel != "debug" || c.LogFormat != "console" {
		t.Errorf("log settings overwritten: %+v", c)
	}
}
