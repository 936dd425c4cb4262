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
	"crdtstore/internal/crdterrors"
	"crdtstore/internal/objectkey"
)

// KeyOp is one operation within a client batch.
type KeyOp struct {
	Key     objectkey.Key
	TypeTag string
	OpName  string
	Arg     any
}

// UpdateResult is the outcome of a successful UpdateObjects batch.
type UpdateResult struct {
	Values map[objectkey.Key]any
	Clock  clock.Clock
}

// UpdateObjects executes ops as a single local batch (§4.4.3, §6).
// clientClock is the caller's dependency clock (§4.4.2): if it is not
// ⊑ the engine's local clock, the call blocks (up to Config.CausalTimeout,
// if set) until the engine has caught up, the same causal gate
// ReadObjects applies to reads. Once ready, clientClock is merged into
// the local clock (step 1 of §4.4.3) before any op is processed — that
// merge survives even if the batch is later rejected, since it is not
// part of the batch's own effects.
//
// The batch itself is all-or-nothing: the first op whose downstream()
// rejects aborts the whole batch with no state change and no clock
// increment beyond the step-1 dependency merge (P3), and no broadcast.
// On success every op's effect is applied locally, the local clock is
// incremented once for the whole batch, and the resulting envelope is
// broadcast fire-and-forget.
func (e *Engine) UpdateObjects(ctx context.Context, ops []KeyOp, clientClock clock.Clock) (UpdateResult, error) {
	if !clientClock.IsZero() {
		if err := e.waitReady(ctx, clientClock); err != nil {
			return UpdateResult{}, err
		}
	}

	var result UpdateResult
	var opErr error

	err := e.submit(ctx, func() {
		if !clientClock.IsZero() {
			e.local = clock.Merge(e.local, clientClock)
		}

		writes := make([]KeyWrite, 0, len(ops))
		for _, op := range ops {
			rec, typ, err := e.getOrCreate(op.Key, op.TypeTag)
			if err != nil {
				opErr = err
				return
			}
			effect, err := typ.Downstream(crdt.Op{Name: op.OpName, Arg: op.Arg}, rec.state, e.minter)
			if err != nil {
				if _, ok := err.(*crdt.InvalidOpError); ok {
					opErr = crdterrors.InvalidOp(op.OpName, op.TypeTag)
				} else {
					opErr = crdterrors.DownstreamFailed(err.Error())
				}
				return
			}
			writes = append(writes, KeyWrite{Key: op.Key, TypeTag: op.TypeTag, Effect: effect})
		}

		deps := e.local
		env := Envelope{Origin: e.cfg.ReplicaID, Deps: deps, Writes: writes}
		e.applyEnvelopeLocked(env)

		values := make(map[objectkey.Key]any, len(writes))
		for _, w := range writes {
			typ, _ := crdt.Lookup(w.TypeTag)
			values[w.Key] = typ.Value(e.objects[w.Key.CacheKey()].state)
		}
		result = UpdateResult{Values: values, Clock: e.local}

		if err := e.broadcaster.Broadcast(context.Background(), env); err != nil {
			e.log.Warn("broadcast failed", "error", err)
		}
	})
	if err != nil {
		return UpdateResult{}, err
	}
	if opErr != nil {
		return UpdateResult{}, opErr
	}
	return result, nil
}

// ReadObjects returns the current value of each key (§6). If causal is
// non-zero, the read blocks (up to Config.CausalTimeout, if set) until
// the local clock has caught up to causal — the read-your-writes
// contract for a client that last wrote through a different replica.
func (e *Engine) ReadObjects(ctx context.Context, keys []objectkey.Key, causal clock.Clock) (map[objectkey.Key]any, clock.Clock, error) {
	if !causal.IsZero() {
		if err := e.waitReady(ctx, causal); err != nil {
			return nil, clock.Clock{}, err
		}
	}

	values := make(map[objectkey.Key]any, len(keys))
	var snapshot clock.Clock
	var readErr error

	err := e.submit(ctx, func() {
		snapshot = e.local
		for _, key := range keys {
			rec, ok := e.objects[key.CacheKey()]
			if !ok {
				values[key] = nil
				continue
			}
			typ, ok := crdt.Lookup(rec.typeTag)
			if !ok {
				readErr = crdterrors.UnknownType(rec.typeTag)
				return
			}
			values[key] = typ.Value(rec.state)
		}
	})
	if err != nil {
		return nil, clock.Clock{}, err
	}
	if readErr != nil {
		return nil, clock.Clock{}, readErr
	}
	return values, snapshot, nil
}
