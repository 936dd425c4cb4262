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

package broadcast

import (
	"context"
	"sync"
	"testing"

	"crdtstore/internal/clock"
	"crdtstore/internal/engine"
)

func TestBroadcastSkipsOrigin(t *testing.T) {
	f := New()
	var mu sync.Mutex
	received := map[string]int{}

	for _, id := range []string{"r1", "r2", "r3"} {
		id := id
		f.RegisterReceiver(id, func(engine.Envelope) {
			mu.Lock()
			received[id]++
			mu.Unlock()
		})
	}

	env := engine.Envelope{Origin: "r1", Deps: clock.New()}
	if err := f.Broadcast(context.Background(), "r1", env); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received["r1"] != 0 {
		t.Fatal("origin should not receive its own broadcast")
	}
	if received["r2"] != 1 || received["r3"] != 1 {
		t.Fatalf("expected r2 and r3 to receive once each, got %v", received)
	}
}

func TestBroadcastToleratesPanickingReceiver(t *testing.T) {
	f := New()
	f.RegisterReceiver("bad", func(engine.Envelope) { panic("boom") })

	delivered := false
	f.RegisterReceiver("good", func(engine.Envelope) { delivered = true })

	env := engine.Envelope{Origin: "origin", Deps: clock.New()}
	if err := f.Broadcast(context.Background(), "origin", env); err != nil {
		t.Fatalf("Broadcast should tolerate a panicking receiver, got error: %v", err)
	}
	if !delivered {
		t.Fatal("good receiver should still have been delivered to")
	}
}

func TestMembersExcludesNothing(t *testing.T) {
	f := New()
	f.RegisterReceiver("r1", func(engine.Envelope) {})
	f.RegisterReceiver("r2", func(engine.Envelope) {})
	if got := len(f.Members()); got != 2 {
		t.Fatalf("Members() len = %d, want 2", got)
	}
	f.Deregister("r1")
	if got := len(f.Members()); got != 1 {
		t.Fatalf("after Deregister, Members() len = %d, want 1", got)
	}
}

func TestReplicaBroadcasterFor(t *testing.T) {
	f := New()
	var got string
	f.RegisterReceiver("r2", func(env engine.Envelope) { got = env.Origin })

	b := f.For("r1")
	env := engine.Envelope{Origin: "r1", Deps: clock.New()}
	if err := b.Broadcast(context.Background(), env); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if got != "r1" {
		t.Fatalf("receiver got origin %q, want r1", got)
	}
}
