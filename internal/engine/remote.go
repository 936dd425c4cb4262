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
	"time"

	"crdtstore/internal/clock"
	"crdtstore/internal/crdt"
)

// applyEnvelopeLocked incorporates env into the object store and local
// clock. Must only run on the actor goroutine. Each write is applied at
// most once per (key, origin, originSeq) — the I3 guarantee — which
// matters even for CRDTs whose Apply is not naturally idempotent (the
// state-based PN-Counter's bucket update is a plain addition).
func (e *Engine) applyEnvelopeLocked(env Envelope) {
	seq := env.originSeq()
	for _, w := range env.Writes {
		typ, ok := crdt.Lookup(w.TypeTag)
		if !ok {
			e.log.Warn("dropping write for unregistered type", "key", w.Key.String(), "type", w.TypeTag)
			continue
		}
		cacheKey := w.Key.CacheKey()
		rec, ok := e.objects[cacheKey]
		if !ok {
			rec = newObjectRecord(w.Key, w.TypeTag, typ)
			e.objects[cacheKey] = rec
		}
		if rec.lastOrigin[env.Origin] >= seq {
			continue // already applied this or a later batch from this origin
		}
		rec.state = typ.Apply(w.Effect, rec.state)
		rec.lastOrigin[env.Origin] = seq
	}
	e.local = clock.Merge(e.local, env.resultClock())
	e.logSeq++
	if e.recorder != nil {
		e.recorder.Record(env, e.local, e.logSeq)
	}
}

// ApplyRemote delivers an envelope received from another replica (§4.3,
// §4.4.4). It is fire-and-forget from the caller's perspective: delivery
// order across origins is not guaranteed, duplicates are tolerated (I3),
// and an envelope whose dependencies aren't yet satisfied is parked in
// the waiting-requests queue until they are (strict delivery, §9 Open
// Question: option (b) chosen over eagerly applying and relying on
// commutativity alone).
func (e *Engine) ApplyRemote(env Envelope) {
	e.cmds <- func() { e.handleRemoteLocked(env) }
}

// depsSatisfied reports whether every entry of deps is ≤ the matching
// entry of local. Unlike clock.LessOrEqual, it does not count deps that
// are concurrent with local as satisfied.
func depsSatisfied(deps, local clock.Clock) bool {
	rel := clock.Compare(deps, local)
	return rel == clock.Equal || rel == clock.Before
}

func (e *Engine) handleRemoteLocked(env Envelope) {
	if !depsSatisfied(env.Deps, e.local) {
		e.waiting = append(e.waiting, waitingEntry{env: env, queued: time.Now()})
		e.log.Debug("parked envelope pending causal dependency", "origin", env.Origin, "waiting", len(e.waiting))
		return
	}
	e.applyEnvelopeLocked(env)
	e.drainWaitingLocked()
}

// drainWaitingLocked repeatedly scans the waiting queue for entries
// whose dependencies are now satisfied, applying them until a full pass
// makes no progress. FIFO order is not required for correctness: an
// envelope's Deps already encode the sender's necessary predecessors
// (including, for same-origin envelopes, the previous one), so
// readiness alone determines a safe application order.
func (e *Engine) drainWaitingLocked() {
	for {
		progressed := false
		remaining := e.waiting[:0]
		for _, entry := range e.waiting {
			if depsSatisfied(entry.env.Deps, e.local) {
				e.applyEnvelopeLocked(entry.env)
				progressed = true
				continue
			}
			remaining = append(remaining, entry)
		}
		e.waiting = remaining
		if !progressed {
			return
		}
	}
}

// WaitingCount reports how many envelopes are currently parked awaiting
// causal dependencies. Exposed for tests and diagnostics.
func (e *Engine) WaitingCount() int {
	done := make(chan int, 1)
	e.cmds <- func() { done <- len(e.waiting) }
	return <-done
}
