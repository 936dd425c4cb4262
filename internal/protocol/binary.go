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

package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned by BinaryDecoder reads that run past the
// end of the underlying buffer.
var ErrShortBuffer = errors.New("protocol: short buffer")

// BinaryEncoder builds a flat byte slice out of primitive fields, used
// for small, fixed-shape messages (AckMessage) where the cost of a
// general-purpose encoding isn't worth paying on every send.
type BinaryEncoder struct {
	buf []byte
}

// NewBinaryEncoder returns an empty encoder.
func NewBinaryEncoder() *BinaryEncoder {
	return &BinaryEncoder{}
}

// Bytes returns the encoded buffer.
func (e *BinaryEncoder) Bytes() []byte {
	return e.buf
}

// WriteString appends a length-prefixed string.
func (e *BinaryEncoder) WriteString(s string) {
	e.WriteBytes([]byte(s))
}

// WriteBytes appends a length-prefixed byte slice.
func (e *BinaryEncoder) WriteBytes(b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	e.buf = append(e.buf, lenBuf[:]...)
	e.buf = append(e.buf, b...)
}

// WriteInt64 appends a big-endian int64.
func (e *BinaryEncoder) WriteInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

// WriteFloat64 appends a big-endian IEEE-754 float64.
func (e *BinaryEncoder) WriteFloat64(v float64) {
	e.WriteInt64(int64(math.Float64bits(v)))
}

// WriteBool appends a single-byte bool.
func (e *BinaryEncoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// BinaryDecoder reads primitive fields back out of a buffer written by
// BinaryEncoder, in the same order they were written.
type BinaryDecoder struct {
	buf []byte
	pos int
}

// NewBinaryDecoder wraps data for sequential reads.
func NewBinaryDecoder(data []byte) *BinaryDecoder {
	return &BinaryDecoder{buf: data}
}

// ReadString reads a length-prefixed string.
func (d *BinaryDecoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte slice.
func (d *BinaryDecoder) ReadBytes() ([]byte, error) {
	if d.pos+4 > len(d.buf) {
		return nil, ErrShortBuffer
	}
	n := int(binary.BigEndian.Uint32(d.buf[d.pos:]))
	d.pos += 4
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrShortBuffer
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadInt64 reads a big-endian int64.
func (d *BinaryDecoder) ReadInt64() (int64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, ErrShortBuffer
	}
	v := int64(binary.BigEndian.Uint64(d.buf[d.pos:]))
	d.pos += 8
	return v, nil
}

// ReadFloat64 reads a big-endian IEEE-754 float64.
func (d *BinaryDecoder) ReadFloat64() (float64, error) {
	bits, err := d.ReadInt64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(bits)), nil
}

// ReadBool reads a single-byte bool.
func (d *BinaryDecoder) ReadBool() (bool, error) {
	if d.pos+1 > len(d.buf) {
		return false, ErrShortBuffer
	}
	v := d.buf[d.pos] != 0
	d.pos++
	return v, nil
}
