// Package config loads and validates host daemon configuration: where its
// data lives, what address it serves RPC on, and the signature-number
// batch cap it records.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TLSConfig holds paths to the PEM files needed for mTLS on the RPC
// listener. When nil or all paths empty, the host falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // host certificate PEM path
	NodeKey  string `json:"node_key"`  // host private key PEM path
}

// Config holds all host daemon configuration.
type Config struct {
	DataDir        string     `json:"data_dir"`
	RPCAddr        string     `json:"rpc_addr"`
	RPCAuthToken   string     `json:"rpc_auth_token,omitempty"` // empty → no auth
	KeystorePath   string     `json:"keystore_path"`
	SigNumBatchCap int        `json:"sig_num_batch_cap"` // per-request sig-number cap; absent → 100, must be > 0; the rpc handler does not apply it
	TLS            *TLSConfig `json:"tls,omitempty"`     // nil → plain TCP
}

// DefaultConfig returns a single-host development configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        "./data",
		RPCAddr:        "127.0.0.1:8787",
		KeystorePath:   "./data/host.keystore.json",
		SigNumBatchCap: 100,
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc_addr must not be empty")
	}
	if c.KeystorePath == "" {
		return fmt.Errorf("keystore_path must not be empty")
	}
	if c.SigNumBatchCap <= 0 {
		return fmt.Errorf("sig_num_batch_cap must be positive, got %d", c.SigNumBatchCap)
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
