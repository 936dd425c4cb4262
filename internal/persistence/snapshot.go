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

package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crdtstore/internal/compression"
	"crdtstore/internal/engine"
	"crdtstore/internal/logging"
)

// SnapshotStore manages the single overwriting snapshot record (§4.5
// "Snapshot", §6 "Snapshot record"). The write path is
// write-to-temp-then-rename so a crash mid-write never corrupts the
// previous, still-valid snapshot — the rename is atomic on every
// platform this runs on.
type SnapshotStore struct {
	mu         sync.Mutex
	path       string
	compressor *compression.Compressor
	log        *logging.Logger
}

// NewSnapshotStore returns a SnapshotStore writing to path.
func NewSnapshotStore(path string, compConfig compression.Config) *SnapshotStore {
	return &SnapshotStore{
		path:       path,
		compressor: compression.NewCompressor(compConfig),
		log:        logging.NewLogger("snapshot"),
	}
}

// Write durably overwrites the snapshot with data.
func (s *SnapshotStore) Write(data engine.SnapshotData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("snapshot: encoding: %w", err)
	}
	compressed, err := s.compressor.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("snapshot: compressing: %w", err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: opening temp file: %w", err)
	}
	if _, err := writeFrame(f, compressed); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: writing: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("snapshot: renaming into place: %w", err)
	}
	return syncDir(filepath.Dir(s.path))
}

// Load reads the current snapshot, if one exists. ok is false if no
// snapshot has ever been written.
func (s *SnapshotStore) Load() (engine.SnapshotData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDONLY, 0o644)
	if os.IsNotExist(err) {
		return engine.SnapshotData{}, false, nil
	}
	if err != nil {
		return engine.SnapshotData{}, false, fmt.Errorf("snapshot: opening: %w", err)
	}
	defer f.Close()

	payload, err := readFrame(f)
	if err != nil {
		return engine.SnapshotData{}, false, fmt.Errorf("snapshot: reading: %w", err)
	}
	raw, err := decompressPayload(s.compressor, payload)
	if err != nil {
		return engine.SnapshotData{}, false, fmt.Errorf("snapshot: decompressing: %w", err)
	}
	var data engine.SnapshotData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return engine.SnapshotData{}, false, fmt.Errorf("snapshot: decoding: %w", err)
	}
	return data, true, nil
}

// syncDir fsyncs a directory so a rename into it survives a crash, not
// just the renamed file's own contents.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
