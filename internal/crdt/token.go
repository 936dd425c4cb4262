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

package crdt

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Token is a globally-unique opaque identifier minted at an origin
// replica to tag an add (AWSet) or an enable (EWFlag), so a later
// remove/disable can precisely identify what it observed and is
// cancelling (§9 GLOSSARY "Token").
//
// Uniqueness rests on (ReplicaID, Counter): Counter is monotonic per
// replica and never reused, which alone is sufficient (§9 "Token
// freshness"). Nonce is an additional fixed-width fingerprint derived
// from an unkeyed BLAKE2b hash of the same inputs plus a nanosecond
// timestamp, so a Token serializes to a fixed-size value regardless of
// ReplicaID's length — useful for compact WAL/wire encoding.
type Token struct {
	ReplicaID string
	Counter   uint64
	Nonce     [8]byte
}

// Equal reports token identity. Nonce is derived from (ReplicaID,
// Counter) and the mint time, so separately minted tokens almost surely
// differ in it; comparing the full value keeps Equal exact even if two
// Tokens were built by hand.
func (t Token) Equal(other Token) bool {
	return t.ReplicaID == other.ReplicaID && t.Counter == other.Counter && t.Nonce == other.Nonce
}

func (t Token) String() string {
	return fmt.Sprintf("%s#%d", t.ReplicaID, t.Counter)
}

// Version identifies a single assignment to a multi-value register
// (§4.2.5): a replica id paired with a monotonic per-replica counter.
type Version struct {
	ReplicaID string
	Counter   uint64
}

func (v Version) Equal(other Version) bool {
	return v.ReplicaID == other.ReplicaID && v.Counter == other.Counter
}

func (v Version) String() string {
	return fmt.Sprintf("%s#%d", v.ReplicaID, v.Counter)
}

// minter is the concrete MintContext used by the replica engine. One
// minter is created per Engine and threaded through every batch it
// executes locally.
type minter struct {
	replicaID string
	counter   atomic.Uint64
}

// NewMinter returns a MintContext that mints unique tokens and versions
// on behalf of replicaID.
func NewMinter(replicaID string) MintContext {
	return &minter{replicaID: replicaID}
}

func (m *minter) OriginID() string { return m.replicaID }

func (m *minter) NextToken() Token {
	n := m.counter.Add(1)
	return Token{
		ReplicaID: m.replicaID,
		Counter:   n,
		Nonce:     fingerprint(m.replicaID, n),
	}
}

func (m *minter) NextVersion() Version {
	n := m.counter.Add(1)
	return Version{ReplicaID: m.replicaID, Counter: n}
}

// fingerprint hashes (replicaID, counter, current nanosecond clock)
// with an unkeyed BLAKE2b-256 and truncates to 8 bytes. The nanosecond
// clock is pure entropy here, not a uniqueness guarantee — Counter
// alone already guarantees that (§9: "do not rely on wall-clock
// uniqueness alone").
func fingerprint(replicaID string, counter uint64) [8]byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, counter)

	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on an oversized key, which never
		// happens with a nil key.
		panic(err)
	}
	h.Write([]byte(replicaID))
	h.Write(key)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(time.Now().UnixNano()))
	h.Write(tsBuf[:])

	sum := h.Sum(nil)
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
