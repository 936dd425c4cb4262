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

package engine

import (
	"context"

	"crdtstore/internal/clock"
	"crdtstore/internal/crdt"
	"crdtstore/internal/objectkey"
)

// SnapshotObject is one key's durable state as captured by Snapshot.
// LastOrigin must be carried along with State: it is the I3 dedup
// watermark (§4.4.4) for this object, and without it a post-recovery
// duplicate delivery of an envelope already reflected in State would be
// re-applied, corrupting any CRDT whose Apply isn't naturally
// idempotent (e.g. the state-based PN-Counter's additive bucket update).
type SnapshotObject struct {
	Key        objectkey.Key
	TypeTag    string
	State      crdt.State
	LastOrigin map[string]uint64
}

// SnapshotData is everything internal/persistence needs to write (or
// restore) a full point-in-time snapshot (§4.5.2): every object's
// state, the clock at that point, and the WAL sequence up to which the
// snapshot already accounts for every effect.
type SnapshotData struct {
	Objects     []SnapshotObject
	Clock       clock.Clock
	LogSequence uint64
}

// Snapshot captures the engine's current object store, clock, and log
// sequence. Safe to call concurrently with live traffic: it runs as one
// atomic step on the actor goroutine, so the result is a consistent
// point-in-time view, never a partial one.
func (e *Engine) Snapshot(ctx context.Context) (SnapshotData, error) {
	var out SnapshotData
	err := e.submit(ctx, func() {
		objs := make([]SnapshotObject, 0, len(e.objects))
		for _, rec := range e.objects {
			lastOrigin := make(map[string]uint64, len(rec.lastOrigin))
			for origin, seq := range rec.lastOrigin {
				lastOrigin[origin] = seq
			}
			objs = append(objs, SnapshotObject{Key: rec.key, TypeTag: rec.typeTag, State: rec.state, LastOrigin: lastOrigin})
		}
		out = SnapshotData{Objects: objs, Clock: e.local, LogSequence: e.logSeq}
		e.lastSnapshotClock = e.local
	})
	return out, err
}

// Restore loads data as the engine's entire state, discarding whatever
// was there before. Intended to run once, before the engine starts
// taking client or remote-delivery traffic (recovery step 1, §4.5.3).
func (e *Engine) Restore(ctx context.Context, data SnapshotData) error {
	return e.submit(ctx, func() {
		objects := make(map[string]*objectRecord, len(data.Objects))
		for _, obj := range data.Objects {
			lastOrigin := obj.LastOrigin
			if lastOrigin == nil {
				lastOrigin = map[string]uint64{}
			}
			objects[obj.Key.CacheKey()] = &objectRecord{
				key:        obj.Key,
				typeTag:    obj.TypeTag,
				state:      obj.State,
				lastOrigin: lastOrigin,
			}
		}
		e.objects = objects
		e.local = data.Clock
		e.logSeq = data.LogSequence
		e.lastSnapshotClock = data.Clock
	})
}

// Replay re-applies an envelope already durably recorded in the WAL
// (recovery step 2, §4.5.3). Unlike ApplyRemote it never parks env in
// the waiting-requests queue and never re-invokes the Recorder: replay
// assumes envelopes are fed back in the exact order they were recorded,
// which already guarantees each one's Deps are satisfied, and replaying
// must not write the WAL record a second time.
func (e *Engine) Replay(ctx context.Context, env Envelope) error {
	return e.submit(ctx, func() {
		recorder := e.recorder
		e.recorder = nil
		e.applyEnvelopeLocked(env)
		e.recorder = recorder
	})
}

// LogSequence returns the engine's log sequence: the number of
// envelopes applied since the engine started, counted on top of the
// LogSequence installed by the last Restore, if any.
func (e *Engine) LogSequence(ctx context.Context) (uint64, error) {
	var out uint64
	err := e.submit(ctx, func() { out = e.logSeq })
	return out, err
}
