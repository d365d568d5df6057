package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should validate, got %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"data dir", func(c *Config) { c.DataDir = "" }},
		{"rpc addr", func(c *Config) { c.RPCAddr = "" }},
		{"keystore path", func(c *Config) { c.KeystorePath = "" }},
		{"batch cap", func(c *Config) { c.SigNumBatchCap = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateRejectsPartialTLS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLS = &TLSConfig{CACert: "ca.pem"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for partially-specified TLS config")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPCAuthToken = "secret"
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RPCAuthToken != "secret" {
		t.Errorf("loaded rpc_auth_token = %q, want %q", loaded.RPCAuthToken, "secret")
	}
}
