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

/*
Package config loads and validates replica configuration.

Precedence, lowest to highest: DefaultConfig() < config file < environment
variables. A Manager holds the active Config and can Reload() it from the
same sources, notifying subscribers registered with OnReload — for a
long-running replica process that wants to pick up a config file edited
on disk without restarting. cmd/crdtstore-discover and cmd/crdtstore-dump
are short-lived, so they only need the Manager's env-derived defaults
(replica id, data dir, static peer list), not Reload.

The on-disk format is a minimal hand-rolled "key = value" text file, not
a general TOML document — the same deliberately small serialization
this package has always used rather than pulling in a parsing library
for a handful of scalar fields.
*/
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variable names consulted by LoadFromEnv.
const (
	EnvReplicaID        = "CRDTSTORE_REPLICA_ID"
	EnvDataDir          = "CRDTSTORE_DATA_DIR"
	EnvSnapshotInterval = "CRDTSTORE_SNAPSHOT_INTERVAL"
	EnvWALMaxFileSize   = "CRDTSTORE_WAL_MAX_FILE_SIZE"
	EnvWALMaxFiles      = "CRDTSTORE_WAL_MAX_FILES"
	EnvPeers            = "CRDTSTORE_PEERS"
	EnvCausalTimeout    = "CRDTSTORE_CAUSAL_TIMEOUT"
	EnvLogLevel         = "CRDTSTORE_LOG_LEVEL"
	EnvLogJSON          = "CRDTSTORE_LOG_JSON"
)

// Config is a replica's full configuration.
type Config struct {
	// ReplicaID identifies this replica in vector clocks and minted
	// tokens. Must be unique across the cluster.
	ReplicaID string
	// DataDir holds the WAL segment files and the snapshot file.
	DataDir string
	// SnapshotInterval is how many committed local batches elapse
	// between automatic snapshots (§4.5).
	SnapshotInterval int
	// WALMaxFileSize is the size, in bytes, at which the WAL rolls over
	// to the next file in its wrap-around set.
	WALMaxFileSize int64
	// WALMaxFiles bounds how many WAL files the wrap-around set keeps
	// before reusing the oldest.
	WALMaxFiles int
	// PeerDiscoveryEnv names the environment variable holding a
	// comma-separated static peer list, read by Config.PeerList
	// (cmd/crdtstore-discover prints it when mDNS finds no peers).
	PeerDiscoveryEnv string
	// CausalWaitTimeout bounds how long a causally-gated request waits
	// before failing with crdterrors.CausalTimeout. Zero disables the
	// bound.
	CausalWaitTimeout time.Duration
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogJSON selects JSON-line log output over text.
	LogJSON bool

	// ConfigFile records the path Config was loaded from, if any.
	ConfigFile string
}

// DefaultConfig returns the baseline configuration before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		ReplicaID:         "",
		DataDir:           "./data",
		SnapshotInterval:  100,
		WALMaxFileSize:    64 * 1024 * 1024,
		WALMaxFiles:       8,
		PeerDiscoveryEnv:  EnvPeers,
		CausalWaitTimeout: 0,
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReplicaID) == "" {
		return fmt.Errorf("replica_id must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot_interval must be positive, got %d", c.SnapshotInterval)
	}
	if c.WALMaxFileSize <= 0 {
		return fmt.Errorf("wal_max_file_size must be positive, got %d", c.WALMaxFileSize)
	}
	if c.WALMaxFiles <= 0 {
		return fmt.Errorf("wal_max_files must be positive, got %d", c.WALMaxFiles)
	}
	if c.CausalWaitTimeout < 0 {
		return fmt.Errorf("causal_wait_timeout must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// String renders a human-readable summary, used in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ReplicaID: %s, DataDir: %s, SnapshotInterval: %d, LogLevel: %s, LogJSON: %v}",
		c.ReplicaID, c.DataDir, c.SnapshotInterval, c.LogLevel, c.LogJSON,
	)
}

// ToConf renders c in the on-disk "key = value" format.
func (c *Config) ToConf() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replica_id = %q\n", c.ReplicaID)
	fmt.Fprintf(&b, "data_dir = %q\n", c.DataDir)
	fmt.Fprintf(&b, "snapshot_interval = %d\n", c.SnapshotInterval)
	fmt.Fprintf(&b, "wal_max_file_size = %d\n", c.WALMaxFileSize)
	fmt.Fprintf(&b, "wal_max_files = %d\n", c.WALMaxFiles)
	fmt.Fprintf(&b, "causal_wait_timeout_ms = %d\n", c.CausalWaitTimeout.Milliseconds())
	fmt.Fprintf(&b, "log_level = %q\n", c.LogLevel)
	fmt.Fprintf(&b, "log_json = %v\n", c.LogJSON)
	return b.String()
}

// SaveToFile writes c to path in ToConf format, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, []byte(c.ToConf()), 0o644)
}

// parseConfLine splits a "key = value" line, unquoting value if
// quoted. Blank lines and lines starting with # are ignored by the
// caller.
func parseConfLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = unquoted
	}
	return key, value, true
}

func applyConfLine(c *Config, key, value string) error {
	switch key {
	case "replica_id":
		c.ReplicaID = value
	case "data_dir":
		c.DataDir = value
	case "snapshot_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("snapshot_interval: %w", err)
		}
		c.SnapshotInterval = n
	case "wal_max_file_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("wal_max_file_size: %w", err)
		}
		c.WALMaxFileSize = n
	case "wal_max_files":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("wal_max_files: %w", err)
		}
		c.WALMaxFiles = n
	case "causal_wait_timeout_ms":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("causal_wait_timeout_ms: %w", err)
		}
		c.CausalWaitTimeout = time.Duration(n) * time.Millisecond
	case "log_level":
		c.LogLevel = value
	case "log_json":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("log_json: %w", err)
		}
		c.LogJSON = b
	}
	return nil
}

// Manager holds the active Config, applies file/env overrides, and
// notifies subscribers on Reload.
type Manager struct {
	mu        sync.RWMutex
	cfg       *Config
	listeners []func(*Config)
}

// NewManager returns a Manager seeded with DefaultConfig.
func NewManager() *Manager {
	return &Manager{cfg: DefaultConfig()}
}

// Get returns the current Config. Callers must not mutate it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// LoadFromFile reads path and overlays its values onto the current
// Config.
func (m *Manager) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := parseConfLine(line)
		if !ok {
			continue
		}
		if err := applyConfLine(&cfg, key, value); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	cfg.ConfigFile = path
	m.cfg = &cfg
	return nil
}

// LoadFromEnv overlays any set environment variables onto the current
// Config. Unset variables leave existing values untouched.
func (m *Manager) LoadFromEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	if v := os.Getenv(EnvReplicaID); v != "" {
		cfg.ReplicaID = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvSnapshotInterval); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SnapshotInterval = n
		}
	}
	if v := os.Getenv(EnvWALMaxFileSize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.WALMaxFileSize = n
		}
	}
	if v := os.Getenv(EnvWALMaxFiles); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WALMaxFiles = n
		}
	}
	if v := os.Getenv(EnvCausalTimeout); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.CausalWaitTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	m.cfg = &cfg
}

// PeerList reads the static peer list named by Config.PeerDiscoveryEnv,
// splitting on commas and trimming whitespace. Returns nil if unset.
func (c *Config) PeerList() []string {
	raw := os.Getenv(c.PeerDiscoveryEnv)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OnReload registers fn to be called, with the newly-active Config,
// every time Reload succeeds.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Reload re-applies the config file (if one was loaded) and environment
// overrides, then notifies OnReload subscribers.
func (m *Manager) Reload() error {
	m.mu.RLock()
	path := m.cfg.ConfigFile
	m.mu.RUnlock()

	if path != "" {
		if err := m.LoadFromFile(path); err != nil {
			return err
		}
	}
	m.LoadFromEnv()

	m.mu.RLock()
	cfg := m.cfg
	listeners := append([]func(*Config){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

var (
	globalOnce sync.Once
	globalMgr  *Manager
)

// Global returns the process-wide Manager singleton, constructing it
// with NewManager on first use.
func Global() *Manager {
	globalOnce.Do(func() { globalMgr = NewManager() })
	return globalMgr
}
