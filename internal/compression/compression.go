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
Package compression provides configurable compression for WAL records
and replicated envelopes.

Compression Overview:
=====================

This module implements configurable compression for:
- WAL entries to reduce disk I/O
- Replication traffic to reduce network bandwidth
- Batch operations for better compression ratios

Supported Algorithms:
=====================

1. LZ4: Fast compression/decompression, moderate ratio
2. Snappy: Very fast, lower ratio, good for real-time
3. Zstd: Best ratio, configurable speed/ratio tradeoff

Batch Compression:
==================

Batching multiple entries before compression improves ratios:
1. Collect entries into a batch
2. Compress the entire batch
3. Store/transmit compressed batch
4. Decompress and split on read
*/
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmLZ4
	AlgorithmSnappy
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a compression algorithm from string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip":
		return AlgorithmGzip, nil
	case "lz4":
		return AlgorithmLZ4, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "zstd":
		return AlgorithmZstd, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown compression algorithm: %s", s)
	}
}

// Level represents compression level
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 5
	LevelBest    Level = 9
)

// Config holds compression configuration
type Config struct {
	Algorithm        Algorithm `json:"algorithm"`
	Level            Level     `json:"level"`
	MinSize          int       `json:"min_size"`           // Minimum size to compress
	BatchSize        int       `json:"batch_size"`         // Number of entries per batch
	BatchTimeout     int       `json:"batch_timeout_ms"`   // Max wait time for batch (ms)
	DictionaryEnable bool      `json:"dictionary_enable"`  // Use dictionary compression
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmGzip,
		Level:            LevelDefault,
		MinSize:          256,
		BatchSize:        100,
		BatchTimeout:     10,
		DictionaryEnable: false,
	}
}

// Errors
var (
	ErrDataTooSmall     = errors.New("data too small to compress")
	ErrInvalidHeader    = errors.New("invalid compression header")
	ErrUnsupportedAlgo  = errors.New("unsupported compression algorithm")
	ErrDecompressFailed = errors.New("decompression failed")
)

// Compressor provides compression/decompression operations. A single
// byte prefixed onto every compressed payload records the algorithm
// actually used (which may be AlgorithmNone even when Config.Algorithm
// isn't, for inputs under MinSize), so Decompress never has to trust a
// caller-supplied algorithm that might not match how the bytes were
// produced.
type Compressor struct {
	config     Config
	gzipPool   sync.Pool
	zstdEnc    *zstd.Encoder
	zstdDec    *zstd.Decoder
	bufferPool sync.Pool
}

// NewCompressor creates a new compressor
func NewCompressor(config Config) *Compressor {
	zstdEnc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(config.Level)))
	if err != nil {
		// Only returns an error for invalid options, never at runtime.
		panic(fmt.Sprintf("compression: building zstd encoder: %v", err))
	}
	zstdDec, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("compression: building zstd decoder: %v", err))
	}
	return &Compressor{
		config:  config,
		zstdEnc: zstdEnc,
		zstdDec: zstdDec,
		gzipPool: sync.Pool{
			New: func() interface{} {
				return gzip.NewWriter(nil)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// zstdLevel maps our three-speed Level onto zstd's own encoder levels.
func zstdLevel(l Level) zstd.EncoderLevel {
	switch {
	case l <= LevelFastest:
		return zstd.SpeedFastest
	case l >= LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Compress encodes data with the configured algorithm, prefixing a
// one-byte algorithm tag. Inputs shorter than Config.MinSize are
// stored with the AlgorithmNone tag instead of paying compression
// overhead for no benefit.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	algo := c.config.Algorithm
	if len(data) < c.config.MinSize {
		algo = AlgorithmNone
	}

	var payload []byte
	var err error
	switch algo {
	case AlgorithmNone:
		payload = data
	case AlgorithmGzip:
		payload, err = c.compressGzip(data)
	case AlgorithmLZ4:
		payload, err = c.compressLZ4(data)
	case AlgorithmSnappy:
		payload = snappy.Encode(nil, data)
	case AlgorithmZstd:
		payload = c.zstdEnc.EncodeAll(data, nil)
	default:
		return nil, ErrUnsupportedAlgo
	}
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	out := make([]byte, 1+len(payload))
	out[0] = byte(algo)
	copy(out[1:], payload)
	return out, nil
}

// Decompress decodes data produced by Compress. The algo parameter is
// validated against the header byte embedded by Compress rather than
// trusted blindly, since a mismatch usually means the caller is
// decoding the wrong record.
func (c *Compressor) Decompress(data []byte, algo Algorithm) ([]byte, error) {
	if len(data) < 1 {
		return nil, ErrInvalidHeader
	}
	tag := Algorithm(data[0])
	if tag != algo {
		return nil, fmt.Errorf("%w: header says %s, caller expected %s", ErrInvalidHeader, tag, algo)
	}
	payload := data[1:]

	switch tag {
	case AlgorithmNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case AlgorithmGzip:
		return c.decompressGzip(payload)
	case AlgorithmLZ4:
		return c.decompressLZ4(payload)
	case AlgorithmSnappy:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmZstd:
		out, err := c.zstdDec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedAlgo
	}
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	w := c.gzipPool.Get().(*gzip.Writer)
	defer c.gzipPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func (c *Compressor) decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}
	return out, nil
}

func (c *Compressor) compressLZ4(data []byte) ([]byte, error) {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4CompressionLevel(c.config.Level))); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func (c *Compressor) decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}
	return out, nil
}

func lz4CompressionLevel(l Level) lz4.CompressionLevel {
	switch {
	case l <= LevelFastest:
		return lz4.Fast
	case l >= LevelBest:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

// BatchCompressor accumulates several small entries (e.g. WAL records
// written in quick succession) and compresses them together, since
// compressing one small entry at a time rarely finds enough redundancy
// to pay for the header overhead.
type BatchCompressor struct {
	mu         sync.Mutex
	config     Config
	compressor *Compressor
	entries    [][]byte
}

// NewBatchCompressor returns a BatchCompressor using config for the
// underlying Compressor.
func NewBatchCompressor(config Config) *BatchCompressor {
	return &BatchCompressor{
		config:     config,
		compressor: NewCompressor(config),
	}
}

// Add appends entry to the pending batch.
func (b *BatchCompressor) Add(entry []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(entry))
	copy(cp, entry)
	b.entries = append(b.entries, cp)
}

// Flush concatenates every pending entry as a length-prefixed frame
// and compresses the result as a single unit, then clears the batch.
func (b *BatchCompressor) Flush() ([]byte, error) {
	b.mu.Lock()
	entries := b.entries
	b.entries = nil
	b.mu.Unlock()

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, e := range entries {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e)))
		buf.Write(lenBuf[:])
		buf.Write(e)
	}

	saved := b.compressor.config.MinSize
	b.compressor.config.MinSize = 0 // a flushed batch is always worth compressing
	compressed, err := b.compressor.Compress(buf.Bytes())
	b.compressor.config.MinSize = saved
	if err != nil {
		return nil, fmt.Errorf("batch compress: %w", err)
	}
	return compressed, nil
}

// DecompressBatch reverses Flush, splitting the decompressed framed
// buffer back into individual entries.
func (b *BatchCompressor) DecompressBatch(data []byte, algo Algorithm) ([][]byte, error) {
	raw, err := b.compressor.Decompress(data, algo)
	if err != nil {
		return nil, fmt.Errorf("batch decompress: %w", err)
	}

	var entries [][]byte
	for len(raw) > 0 {
		if len(raw) < 4 {
			return nil, fmt.Errorf("%w: truncated batch frame", ErrDecompressFailed)
		}
		n := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint64(len(raw)) < uint64(n) {
			return nil, fmt.Errorf("%w: truncated batch entry", ErrDecompressFailed)
		}
		entries = append(entries, raw[:n])
		raw = raw[n:]
	}
	return entries, nil
}

