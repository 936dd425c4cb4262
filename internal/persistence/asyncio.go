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
Package persistence implements the two on-disk artefacts a replica
needs for crash recovery (§4.5): a wrap-around, multi-file
write-ahead log of applied batches, and a single overwriting snapshot
record. Log appends are synchronous enough to satisfy write-ahead
ordering (a record is durable before its batch is broadcast); the
subsequent fsync is handed off to a small async I/O worker pool so a
slow disk never blocks the replica actor for the full round trip.
*/
package persistence

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"crdtstore/internal/logging"
)

// IOOpType distinguishes the two operations the worker pool performs.
// The WAL submits only IOSync.
type IOOpType int

const (
	IOWrite IOOpType = iota
	IOSync
)

// IORequest is one unit of background I/O work.
type IORequest struct {
	Type     IOOpType
	File     *os.File
	Data     []byte
	Callback func(error)

	submittedAt time.Time
}

// AsyncIOConfig controls the worker pool.
type AsyncIOConfig struct {
	NumWorkers int
	QueueSize  int
}

// DefaultAsyncIOConfig returns sensible defaults for a single replica's
// WAL traffic.
func DefaultAsyncIOConfig() AsyncIOConfig {
	return AsyncIOConfig{
		NumWorkers: 2,
		QueueSize:  256,
	}
}

// AsyncIOStats is a point-in-time snapshot of worker pool activity.
type AsyncIOStats struct {
	Writes       uint64
	Syncs        uint64
	Pending      int64
	AvgLatency   time.Duration
}

// AsyncIO runs a small worker pool that performs writes and fsyncs off
// the caller's goroutine, so the replica actor issuing a WAL append
// never has to wait for the disk itself to catch up (§5 "must not hold
// indefinitely").
type AsyncIO struct {
	config AsyncIOConfig
	log    *logging.Logger

	requestCh chan *IORequest
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stopOnce  sync.Once

	writes       atomic.Uint64
	syncs        atomic.Uint64
	pending      atomic.Int64
	totalLatency atomic.Uint64
	completed    atomic.Uint64
}

// NewAsyncIO starts config.NumWorkers background workers draining a
// shared request queue.
func NewAsyncIO(config AsyncIOConfig) *AsyncIO {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	aio := &AsyncIO{
		config:    config,
		log:       logging.NewLogger("asyncio"),
		requestCh: make(chan *IORequest, config.QueueSize),
		stopCh:    make(chan struct{}),
	}
	for i := 0; i < config.NumWorkers; i++ {
		aio.wg.Add(1)
		go aio.worker(i)
	}
	return aio
}

func (aio *AsyncIO) worker(id int) {
	defer aio.wg.Done()
	for {
		select {
		case req := <-aio.requestCh:
			aio.run(req)
		case <-aio.stopCh:
			// Drain whatever is already queued before exiting so a Close
			// immediately after a burst of Submits doesn't silently drop
			// fsyncs that were already accepted.
			for {
				select {
				case req := <-aio.requestCh:
					aio.run(req)
				default:
					return
				}
			}
		}
	}
}

func (aio *AsyncIO) run(req *IORequest) {
	start := time.Now()
	var err error
	switch req.Type {
	case IOWrite:
		_, err = req.File.Write(req.Data)
		aio.writes.Add(1)
	case IOSync:
		err = req.File.Sync()
		aio.syncs.Add(1)
	}
	aio.pending.Add(-1)
	aio.completed.Add(1)
	aio.totalLatency.Add(uint64(time.Since(start)))
	if req.Callback != nil {
		req.Callback(err)
	}
}

// Submit enqueues req for background processing. Returns an error
// (queue full) without blocking, so a caller on the actor goroutine can
// fall back to doing the I/O synchronously rather than stalling.
func (aio *AsyncIO) Submit(req *IORequest) error {
	req.submittedAt = time.Now()
	aio.pending.Add(1)
	select {
	case aio.requestCh <- req:
		return nil
	default:
		aio.pending.Add(-1)
		return errQueueFull
	}
}

// Stats reports current worker pool activity.
func (aio *AsyncIO) Stats() AsyncIOStats {
	completed := aio.completed.Load()
	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(aio.totalLatency.Load() / completed)
	}
	return AsyncIOStats{
		Writes:     aio.writes.Load(),
		Syncs:      aio.syncs.Load(),
		Pending:    aio.pending.Load(),
		AvgLatency: avg,
	}
}

// Close stops accepting new work once already-queued requests drain.
func (aio *AsyncIO) Close() error {
	aio.stopOnce.Do(func() { close(aio.stopCh) })
	aio.wg.Wait()
	return nil
}
