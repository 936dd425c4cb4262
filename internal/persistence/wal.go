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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"crdtstore/internal/clock"
	"crdtstore/internal/compression"
	"crdtstore/internal/engine"
	"crdtstore/internal/logging"
)

// segmentMeta tracks what a wrap-around WAL file currently holds, so
// rotation knows whether reusing (truncating) it would throw away a
// batch no snapshot has covered yet.
type segmentMeta struct {
	index    int
	path     string
	firstSeq uint64
	lastSeq  uint64
	size     int64
}

// WAL is the wrap-around, multi-file operation log (§4.5 "Operation
// log"). It holds at most MaxFiles segment files of at most
// MaxFileSize bytes each; once all MaxFiles exist, appending rolls over
// to the oldest segment rather than growing without bound.
type WAL struct {
	mu          sync.Mutex
	dir         string
	maxFileSize int64
	maxFiles    int
	compressor  *compression.Compressor
	aio         *AsyncIO
	log         *logging.Logger

	segments         []*segmentMeta
	activeIdx        int
	activeFile       *os.File
	activeSize       int64
	snapshotBoundary uint64
}

// decompressPayload unwraps a WAL frame's payload using the algorithm
// tag compression.Compress already embedded in its first byte, so the
// reader never needs to know ahead of time which algorithm wrote it.
func decompressPayload(c *compression.Compressor, payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, errShortFrame
	}
	return c.Decompress(payload, compression.Algorithm(payload[0]))
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%04d.wal", index))
}

// OpenWAL opens (or creates) the WAL directory dir, repairing any
// segment whose tail was truncated mid-write (§4.5 recovery step 1).
func OpenWAL(dir string, maxFileSize int64, maxFiles int, compConfig compression.Config, aio *AsyncIO) (*WAL, error) {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: creating dir: %w", err)
	}

	w := &WAL{
		dir:         dir,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
		compressor:  compression.NewCompressor(compConfig),
		aio:         aio,
		log:         logging.NewLogger("wal"),
		segments:    make([]*segmentMeta, maxFiles),
	}

	bestIdx, bestLastSeq := 0, uint64(0)
	haveAny := false
	for i := 0; i < maxFiles; i++ {
		path := segmentPath(dir, i)
		meta, err := w.scanAndRepair(i, path)
		if err != nil {
			return nil, err
		}
		w.segments[i] = meta
		if meta.size > 0 {
			haveAny = true
		}
		if meta.lastSeq >= bestLastSeq {
			bestLastSeq = meta.lastSeq
			bestIdx = i
		}
	}
	if !haveAny {
		bestIdx = 0
	}

	if err := w.openActive(bestIdx); err != nil {
		return nil, err
	}
	return w, nil
}

// scanAndRepair reads every valid frame in the segment at path (which
// may not exist yet), truncating at the first sign of a partial
// trailing write.
func (w *WAL) scanAndRepair(index int, path string) (*segmentMeta, error) {
	meta := &segmentMeta{index: index, path: path}

	f, err := os.OpenFile(path, os.O_RDONLY, 0o644)
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wal: opening segment %d: %w", index, err)
	}
	defer f.Close()

	var validSize int64
	first := true
	for {
		payload, err := readFrame(f)
		if err != nil {
			break // clean EOF or a truncated tail frame: stop here either way
		}
		n := int64(frameHeaderSize + len(payload))
		raw, derr := decompressPayload(w.compressor, payload)
		if derr != nil {
			break
		}
		rec, derr := decodeRecord(raw)
		if derr != nil {
			break
		}
		if first {
			meta.firstSeq = rec.Sequence
			first = false
		}
		meta.lastSeq = rec.Sequence
		validSize += n
	}

	if info, statErr := f.Stat(); statErr == nil && info.Size() != validSize {
		w.logRepair(index, info.Size(), validSize)
		if err := os.Truncate(path, validSize); err != nil {
			return nil, fmt.Errorf("wal: repairing segment %d: %w", index, err)
		}
	}
	meta.size = validSize
	return meta, nil
}

func (w *WAL) logRepair(index int, onDisk, valid int64) {
	w.log.Warn("repairing truncated wal segment", "segment", index, "on_disk_bytes", onDisk, "valid_bytes", valid)
}

func (w *WAL) openActive(index int) error {
	path := segmentPath(w.dir, index)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("wal: opening active segment %d: %w", index, err)
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return fmt.Errorf("wal: seeking active segment %d: %w", index, err)
	}
	w.activeFile = f
	w.activeIdx = index
	w.activeSize = w.segments[index].size
	return nil
}

// SetSnapshotBoundary tells the WAL that every record with Sequence <=
// seq is now covered by a durable snapshot, so segments entirely below
// it are safe to recycle on the next rotation.
func (w *WAL) SetSnapshotBoundary(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshotBoundary = seq
}

// append writes one record to the active segment, rotating to the next
// segment first if the active one would exceed maxFileSize. The byte
// write is synchronous (satisfying write-ahead ordering: this returns
// before the caller broadcasts the same batch); the trailing fsync is
// hereafter handed to the async worker pool so a slow disk doesn't hold
// the replica actor for the full round trip (§5).
func (w *WAL) append(env engine.Envelope, resultClock clock.Clock, seq uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := encodeRecord(record{Sequence: seq, Envelope: env, ClockAfter: resultClock})
	if err != nil {
		return err
	}
	compressed, err := w.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("wal: compressing record: %w", err)
	}
	frameSize := int64(frameHeaderSize + len(compressed))

	if w.activeFile == nil || w.activeSize+frameSize > w.maxFileSize {
		if err := w.rotateLocked(); err != nil {
			return err
		}
	}

	if _, err := writeFrame(w.activeFile, compressed); err != nil {
		return fmt.Errorf("wal: writing record: %w", err)
	}
	w.activeSize += frameSize
	meta := w.segments[w.activeIdx]
	if meta.firstSeq == 0 {
		meta.firstSeq = seq
	}
	meta.lastSeq = seq
	meta.size = w.activeSize

	submitErr := w.aio.Submit(&IORequest{
		Type: IOSync,
		File: w.activeFile,
		Callback: func(err error) {
			if err != nil {
				w.log.Error("background wal fsync failed", "segment", w.activeIdx, "error", err)
			}
		},
	})
	if submitErr != nil {
		// Queue is saturated: fall back to a synchronous fsync rather
		// than silently degrading durability further.
		return w.activeFile.Sync()
	}
	return nil
}

// rotateLocked advances to the next segment index, recycling (O_TRUNC)
// it if a snapshot already covers everything it holds, or simply
// creating it if it's unused. If the target segment holds records a
// snapshot hasn't covered yet, they are recycled anyway to honor the
// hard MaxFileSize/MaxFiles bound (§4.5 "bounded maximum size") — this
// is logged loudly since it means recovery will be missing those
// records; operators are expected to size SnapshotInterval so this
// never triggers in steady state.
func (w *WAL) rotateLocked() error {
	if w.activeFile != nil {
		w.activeFile.Close()
	}
	nextIdx := (w.activeIdx + 1) % w.maxFiles
	meta := w.segments[nextIdx]
	if meta.size > 0 && meta.lastSeq > w.snapshotBoundary {
		w.log.Warn("recycling wal segment with un-snapshotted records",
			"segment", nextIdx, "last_sequence", meta.lastSeq, "snapshot_boundary", w.snapshotBoundary)
	}

	path := segmentPath(w.dir, nextIdx)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("wal: rotating to segment %d: %w", nextIdx, err)
	}
	w.activeFile = f
	w.activeIdx = nextIdx
	w.activeSize = 0
	w.segments[nextIdx] = &segmentMeta{index: nextIdx, path: path}
	return nil
}

// ReadAll returns every valid record across all segments, in ascending
// Sequence order regardless of which physical file currently holds
// them — wrap-around means file order and log order diverge once a
// low-index segment has been recycled with newer records.
func (w *WAL) ReadAll() ([]record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var all []record
	for i := 0; i < w.maxFiles; i++ {
		path := segmentPath(w.dir, i)
		f, err := os.OpenFile(path, os.O_RDONLY, 0o644)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("wal: reading segment %d: %w", i, err)
		}
		for {
			payload, err := readFrame(f)
			if err != nil {
				break
			}
			raw, derr := decompressPayload(w.compressor, payload)
			if derr != nil {
				break
			}
			rec, derr := decodeRecord(raw)
			if derr != nil {
				break
			}
			all = append(all, rec)
		}
		f.Close()
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Sequence < all[j].Sequence })
	return all, nil
}

// Close flushes and closes the active segment.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeFile == nil {
		return nil
	}
	if err := w.activeFile.Sync(); err != nil {
		w.log.Error("final wal sync failed", "error", err)
	}
	return w.activeFile.Close()
}
