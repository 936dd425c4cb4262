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

package membership

import "testing"

func TestStaticResolverMembers(t *testing.T) {
	r := NewStaticResolver([]string{"r1=10.0.0.1:7946", "r2=10.0.0.2:7946", "malformed", "=nohost"})
	peers := r.Members()
	if len(peers) != 2 {
		t.Fatalf("Members() len = %d, want 2 (malformed entries skipped)", len(peers))
	}
	if peers[0].ReplicaID != "r1" || peers[0].Addr != "10.0.0.1:7946" {
		t.Errorf("peers[0] = %+v", peers[0])
	}
	if peers[1].ReplicaID != "r2" || peers[1].Addr != "10.0.0.2:7946" {
		t.Errorf("peers[1] = %+v", peers[1])
	}
}

func TestStaticResolverEmpty(t *testing.T) {
	r := NewStaticResolver(nil)
	if peers := r.Members(); len(peers) != 0 {
		t.Fatalf("Members() = %v, want empty", peers)
	}
}

func TestPeerString(t *testing.T) {
	p := Peer{ReplicaID: "r1", Addr: "10.0.0.1:7946"}
	if got, want := p.String(), "r1@10.0.0.1:7946"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
