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

import "encoding/gob"

// State and Effect are opaque `any` outside this package, which means
// the WAL and snapshot encoders in internal/persistence — which only
// ever see them boxed behind those two interfaces — can't name the
// concrete types they need to register with encoding/gob themselves.
// Registering here, in the one package that can see the unexported
// struct types, is what lets gob.Encode/Decode round-trip a State or
// Effect value without the caller knowing which CRDT produced it.
func init() {
	gob.Register(awSetState{})
	gob.Register(awEffect{})
	gob.Register(tpSetState{})
	gob.Register(tpEffect{})
	gob.Register(pnCounterOpState(0))
	gob.Register(pnCounterOpEffect(0))
	gob.Register(pnCounterStateState{})
	gob.Register(pnCounterStateEffect{})
	gob.Register(mvRegisterState{})
	gob.Register(mvWrite{})
	gob.Register(ewFlagState{})
	gob.Register(ewEffect{})

	// mvPair.Value and mvWrite.Value (and Op.Arg) hold caller-supplied
	// register values as `any`; only the JSON-primitive shapes below
	// are supported for durable persistence (§4.2.5 Open Question).
	gob.Register("")
	gob.Register(float64(0))
	gob.Register(int64(0))
	gob.Register(false)
	gob.Register([]byte(nil))
}
