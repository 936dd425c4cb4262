/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SnapshotInterval != 100 {
		t.Errorf("SnapshotInterval = %d, want 100", cfg.SnapshotInterval)
	}
	if cfg.WALMaxFiles != 8 {
		t.Errorf("WALMaxFiles = %d, want 8", cfg.WALMaxFiles)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogJSON {
		t.Error("LogJSON should default to false")
	}
	if cfg.PeerDiscoveryEnv != EnvPeers {
		t.Errorf("PeerDiscoveryEnv = %q, want %q", cfg.PeerDiscoveryEnv, EnvPeers)
	}
}

func TestConfigValidation(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.ReplicaID = "r1"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"missing replica id", func(c *Config) { c.ReplicaID = "" }, true},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, true},
		{"zero snapshot interval", func(c *Config) { c.SnapshotInterval = 0 }, true},
		{"negative wal max file size", func(c *Config) { c.WALMaxFileSize = -1 }, true},
		{"zero wal max files", func(c *Config) { c.WALMaxFiles = 0 }, true},
		{"negative causal timeout", func(c *Config) { c.CausalWaitTimeout = -time.Second }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "bogus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "crdtstore.conf")
	content := `# test config
replica_id = "r1"
data_dir = "/tmp/data"
snapshot_interval = 50
wal_max_file_size = 1048576
wal_max_files = 4
causal_wait_timeout_ms = 2000
log_level = "debug"
log_json = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	cfg := mgr.Get()

	if cfg.ReplicaID != "r1" {
		t.Errorf("ReplicaID = %q, want r1", cfg.ReplicaID)
	}
	if cfg.DataDir != "/tmp/data" {
		t.Errorf("DataDir = %q, want /tmp/data", cfg.DataDir)
	}
	if cfg.SnapshotInterval != 50 {
		t.Errorf("SnapshotInterval = %d, want 50", cfg.SnapshotInterval)
	}
	if cfg.WALMaxFileSize != 1048576 {
		t.Errorf("WALMaxFileSize = %d, want 1048576", cfg.WALMaxFileSize)
	}
	if cfg.CausalWaitTimeout != 2*time.Second {
		t.Errorf("CausalWaitTimeout = %v, want 2s", cfg.CausalWaitTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON = false, want true")
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, configPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	for k, v := range map[string]string{
		EnvReplicaID: "r-env",
		EnvLogLevel:  "warn",
		EnvLogJSON:   "true",
	} {
		old := os.Getenv(k)
		os.Setenv(k, v)
		defer os.Setenv(k, old)
	}

	mgr := NewManager()
	mgr.LoadFromEnv()
	cfg := mgr.Get()

	if cfg.ReplicaID != "r-env" {
		t.Errorf("ReplicaID = %q, want r-env", cfg.ReplicaID)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON = false, want true")
	}
}

func TestConfigPrecedenceEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "crdtstore.conf")
	content := "replica_id = \"from-file\"\ndata_dir = \"/tmp\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	old := os.Getenv(EnvReplicaID)
	os.Setenv(EnvReplicaID, "from-env")
	defer os.Setenv(EnvReplicaID, old)

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	mgr.LoadFromEnv()

	if got := mgr.Get().ReplicaID; got != "from-env" {
		t.Errorf("ReplicaID = %q, want from-env (env overrides file)", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "crdtstore.conf")

	cfg := DefaultConfig()
	cfg.ReplicaID = "r1"
	cfg.LogLevel = "debug"
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	reloaded := false
	mgr.OnReload(func(*Config) { reloaded = true })

	updated := "replica_id = \"r1\"\ndata_dir = \"./data\"\nsnapshot_interval = 1\nwal_max_file_size = 1\nwal_max_files = 1\nlog_level = \"error\"\n"
	if err := os.WriteFile(configPath, []byte(updated), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !reloaded {
		t.Error("OnReload callback was not invoked")
	}
	if got := mgr.Get().LogLevel; got != "error" {
		t.Errorf("LogLevel after reload = %q, want error", got)
	}
}

func TestToConfRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReplicaID = "r1"
	out := cfg.ToConf()
	if !strings.Contains(out, `replica_id = "r1"`) {
		t.Errorf("ToConf output missing replica_id: %s", out)
	}
	if !strings.Contains(out, "snapshot_interval = 100") {
		t.Errorf("ToConf output missing snapshot_interval: %s", out)
	}
}

func TestPeerList(t *testing.T) {
	cfg := DefaultConfig()
	old := os.Getenv(cfg.PeerDiscoveryEnv)
	os.Setenv(cfg.PeerDiscoveryEnv, "r2:7001, r3:7001 ,")
	defer os.Setenv(cfg.PeerDiscoveryEnv, old)

	peers := cfg.PeerList()
	if len(peers) != 2 || peers[0] != "r2:7001" || peers[1] != "r3:7001" {
		t.Errorf("PeerList() = %v, want [r2:7001 r3:7001]", peers)
	}
}

func TestGlobalManager(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}
