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
	"crdtstore/internal/clock"
	"crdtstore/internal/crdt"
	"crdtstore/internal/objectkey"
)

// KeyWrite is one key's effect within a batch.
type KeyWrite struct {
	Key     objectkey.Key
	TypeTag string
	Effect  crdt.Effect
}

// Envelope is the unit of causal broadcast (§4.3): every effect produced
// by one local batch, plus Deps — the origin's vector clock immediately
// before the batch, i.e. everything the batch's effects causally
// depend on. The batch's own position in the origin's history is
// implied: Deps.Get(Origin)+1.
type Envelope struct {
	Origin string
	Deps   clock.Clock
	Writes []KeyWrite
}

// originSeq is this envelope's sequence number in Origin's own history.
func (env Envelope) originSeq() uint64 {
	return env.Deps.Get(env.Origin) + 1
}

// resultClock is the vector clock a replica has after applying env to a
// local clock exactly equal to Deps.
func (env Envelope) resultClock() clock.Clock {
	return env.Deps.Increment(env.Origin)
}
