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
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"crdtstore/internal/clock"
	"crdtstore/internal/engine"
)

var (
	errQueueFull     = errors.New("persistence: async i/o queue full")
	errShortFrame    = errors.New("persistence: truncated record frame")
	errChecksum      = errors.New("persistence: record checksum mismatch")
)

// frameHeaderSize is the fixed prefix on every WAL record: a 4-byte
// payload length followed by a 4-byte CRC32 of the payload, both
// big-endian.
const frameHeaderSize = 8

// record is one operation-log entry (§6 "Operation log record"):
// Sequence is this replica's WAL sequence number, Envelope is the batch
// that was applied, and ClockAfter is the local clock immediately after
// applying it.
type record struct {
	Sequence   uint64
	Envelope   engine.Envelope
	ClockAfter clock.Clock
}

func encodeRecord(r record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (record, error) {
	var r record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// writeFrame writes payload to w as [len:4][crc32:4][payload].
func writeFrame(w io.Writer, payload []byte) (int, error) {
	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(payload))
	n1, err := w.Write(header[:])
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(payload)
	return n1 + n2, err
}

// readFrame reads one frame from r. io.EOF with zero bytes consumed
// means a clean end of file; an error wrapping errShortFrame means
// the file's tail was truncated mid-write (§4.5 recovery step 1), which
// callers treat as "stop reading, repair by truncating here" rather
// than a fatal error.
func readFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", errShortFrame, err)
	}
	length := binary.BigEndian.Uint32(header[0:4])
	wantCRC := binary.BigEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errShortFrame, err)
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, errChecksum
	}
	return payload, nil
}
