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
Package engine implements the replica engine (§4.4): the single-threaded
cooperative actor that owns a replica's object store and local vector
clock. Every public method submits a closure onto an internal command
channel drained by one goroutine, so object state, the clock, and the
waiting-request queue are never touched concurrently — callers get
normal blocking method calls, the actor gets the sequential-execution
model its invariants (P1-P3, I1-I3) depend on.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"crdtstore/internal/clock"
	"crdtstore/internal/crdt"
	"crdtstore/internal/crdterrors"
	"crdtstore/internal/logging"
	"crdtstore/internal/objectkey"
)

// Broadcaster fans an Envelope out to the other replicas in the cluster.
// Implementations are fire-and-forget and best-effort (§4.3 B3): a
// Broadcast error is logged, never returned to the client whose batch
// produced the envelope.
type Broadcaster interface {
	Broadcast(ctx context.Context, env Envelope) error
}

// noopBroadcaster is used when an Engine is built without a Broadcaster,
// e.g. in single-replica tests.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, Envelope) error { return nil }

// Config controls engine behaviour not implied by its inputs.
type Config struct {
	// ReplicaID identifies this replica in the vector clock and in
	// minted tokens/versions.
	ReplicaID string
	// CausalTimeout bounds how long ReadObjects/UpdateObjects wait for a
	// causal dependency to become ready before failing with
	// crdterrors.CausalTimeout. Zero disables the bound (there is no
	// default timeout).
	CausalTimeout time.Duration
}

// objectRecord is one key's live state plus the per-origin dedup
// watermark needed to satisfy I3 (apply each remote effect at most
// once) even for CRDTs whose Apply is not naturally idempotent, e.g.
// the state-based PN-Counter's additive bucket update.
type objectRecord struct {
	key        objectkey.Key
	typeTag    string
	state      crdt.State
	lastOrigin map[string]uint64
}

func newObjectRecord(key objectkey.Key, typeTag string, typ crdt.Type) *objectRecord {
	return &objectRecord{key: key, typeTag: typeTag, state: typ.New(), lastOrigin: map[string]uint64{}}
}

// Recorder observes every envelope the engine applies, in application
// order, so a durability layer (internal/persistence) can append it to
// a write-ahead log without the engine needing to know anything about
// disk I/O. Record runs synchronously on the actor goroutine — it must
// not call back into the Engine.
type Recorder interface {
	Record(env Envelope, resultClock clock.Clock, logSequence uint64)
}

// waitingEntry is one envelope parked in the FIFO waiting-requests queue
// because its causal dependencies weren't yet satisfied (§4.4.2).
type waitingEntry struct {
	env    Envelope
	queued time.Time
}

// command is a closure dispatched onto the actor's single goroutine.
type command func()

// Engine is a single replica's object store, clock, and causal-delivery
// machinery.
type Engine struct {
	cfg         Config
	minter      crdt.MintContext
	broadcaster Broadcaster
	log         *logging.Logger

	objects map[string]*objectRecord
	local   clock.Clock
	waiting []waitingEntry
	logSeq  uint64

	lastSnapshotClock clock.Clock
	recorder          Recorder

	cmds chan command
	done chan struct{}
}

// New constructs an Engine for replicaID. If broadcaster is nil, remote
// delivery is disabled (useful for standalone/test replicas).
func New(cfg Config, broadcaster Broadcaster) *Engine {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	e := &Engine{
		cfg:               cfg,
		minter:            crdt.NewMinter(cfg.ReplicaID),
		broadcaster:       broadcaster,
		log:               logging.NewLogger("engine").With("replica", cfg.ReplicaID),
		objects:           map[string]*objectRecord{},
		local:             clock.New(),
		lastSnapshotClock: clock.New(),
		cmds:              make(chan command, 64),
		done:              make(chan struct{}),
	}
	go e.loop()
	return e
}

// SetRecorder installs r as the engine's durability hook. Must be
// called before the engine starts taking traffic (typically right
// after New, before recovery replay or any client request) since it is
// not synchronized with the actor goroutine.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Close stops the actor loop. It does not wait for in-flight calls to
// settle; callers should stop issuing requests first.
func (e *Engine) Close() {
	close(e.done)
}

func (e *Engine) loop() {
	for {
		select {
		case cmd := <-e.cmds:
			cmd()
		case <-e.done:
			return
		}
	}
}

// submit runs fn on the actor goroutine and blocks until it returns, or
// ctx is cancelled first.
func (e *Engine) submit(ctx context.Context, fn func()) error {
	result := make(chan struct{})
	e.cmds <- func() {
		fn()
		close(result)
	}
	select {
	case <-result:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return fmt.Errorf("engine closed")
	}
}

func (e *Engine) getOrCreate(key objectkey.Key, typeTag string) (*objectRecord, crdt.Type, error) {
	typ, ok := crdt.Lookup(typeTag)
	if !ok {
		return nil, nil, crdterrors.UnknownType(typeTag)
	}
	cacheKey := key.CacheKey()
	rec, ok := e.objects[cacheKey]
	if !ok {
		rec = newObjectRecord(key, typeTag, typ)
		e.objects[cacheKey] = rec
	} else if rec.typeTag != typeTag {
		return nil, nil, crdterrors.UnknownType(typeTag).WithDetail(
			fmt.Sprintf("key %s was first created with type %q", key, rec.typeTag))
	}
	return rec, typ, nil
}

// waitReady blocks the calling goroutine (not the actor) until deps is
// causally satisfied by the engine's local clock, consulting it on the
// actor goroutine each poll. Used by ReadObjects for read-your-writes
// causal contexts (§4.4.2, §6).
func (e *Engine) waitReady(ctx context.Context, deps clock.Clock) error {
	deadline := time.Time{}
	if e.cfg.CausalTimeout > 0 {
		deadline = time.Now().Add(e.cfg.CausalTimeout)
	}
	for {
		var ready bool
		if err := e.submit(ctx, func() {
			ready = clock.LessOrEqual(deps, e.local)
		}); err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return crdterrors.CausalTimeout()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// LocalClock returns a snapshot of the engine's current vector clock.
func (e *Engine) LocalClock(ctx context.Context) (clock.Clock, error) {
	var out clock.Clock
	err := e.submit(ctx, func() { out = e.local })
	return out, err
}
