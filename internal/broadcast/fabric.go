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
Package broadcast implements the causal broadcast fabric (§4.3): a
fire-and-forget, best-effort fan-out of envelopes to every other
registered replica. There is no retransmission and no anti-entropy
(both explicit non-goals, §1) — an envelope a receiver misses stays
missed, and any later envelope that causally depends on it stays
parked in that receiver's engine-level waiting queue.
*/
package broadcast

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"crdtstore/internal/engine"
	"crdtstore/internal/logging"
)

// Receiver is a replica's delivery entrypoint, ordinarily
// (*engine.Engine).ApplyRemote.
type Receiver func(engine.Envelope)

// Fabric fans an envelope out to every registered receiver except its
// origin. One Fabric serves an entire in-process cluster (e.g. a test
// harness); a real deployment would back this
// with transport to remote processes instead, registering one local
// Receiver per open connection.
type Fabric struct {
	log *logging.Logger

	mu        sync.RWMutex
	receivers map[string]Receiver
}

// New returns an empty Fabric.
func New() *Fabric {
	return &Fabric{
		log:       logging.NewLogger("broadcast"),
		receivers: map[string]Receiver{},
	}
}

// RegisterReceiver adds or replaces the receiver for replicaID.
func (f *Fabric) RegisterReceiver(replicaID string, r Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receivers[replicaID] = r
}

// Deregister removes replicaID's receiver, e.g. when a replica leaves
// the cluster.
func (f *Fabric) Deregister(replicaID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.receivers, replicaID)
}

// Members returns the currently-registered replica ids, in no
// particular order.
func (f *Fabric) Members() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.receivers))
	for id := range f.receivers {
		out = append(out, id)
	}
	return out
}

// Broadcast delivers env to every registered receiver except origin,
// concurrently. Per B3 (best-effort, no partial-failure propagation), a
// panicking receiver is logged and skipped rather than failing the
// whole broadcast or the caller's batch.
func (f *Fabric) Broadcast(ctx context.Context, origin string, env engine.Envelope) error {
	f.mu.RLock()
	targets := make(map[string]Receiver, len(f.receivers))
	for id, r := range f.receivers {
		if id == origin {
			continue
		}
		targets[id] = r
	}
	f.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for id, r := range targets {
		id, r := id, r
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					f.log.Error("receiver panicked", "replica", id, "panic", p)
				}
			}()
			r(env)
			return nil
		})
	}
	return g.Wait()
}

// ReplicaBroadcaster adapts a Fabric into the per-origin
// engine.Broadcaster the engine package expects.
type ReplicaBroadcaster struct {
	fabric    *Fabric
	replicaID string
}

// For returns a Broadcaster that fans out on behalf of replicaID.
func (f *Fabric) For(replicaID string) *ReplicaBroadcaster {
	return &ReplicaBroadcaster{fabric: f, replicaID: replicaID}
}

func (b *ReplicaBroadcaster) Broadcast(ctx context.Context, env engine.Envelope) error {
	return b.fabric.Broadcast(ctx, b.replicaID, env)
}
