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
The registry maps a key's type-tag to the Type that implements it (§4.4.5
"sealed tagged union" dispatch). The engine never switches on a concrete
Go type; it looks up the tag once per operation and calls through the
Type interface.
*/
package crdt

import "sync"

var (
	registryMu sync.RWMutex
	registry   = map[string]Type{
		PNCounterOpTag:    PNCounterOp{},
		PNCounterStateTag: PNCounterState{},
		AWSetTag:          AWSet{},
		TPSetTag:          TPSet{},
		MVRegisterTag:     MVRegister{},
		EWFlagTag:         EWFlag{},
	}
)

// Lookup returns the Type registered under tag, or false if tag is
// unrecognized (the engine surfaces this as an unknown-type error, §7).
func Lookup(tag string) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[tag]
	return t, ok
}

// Register adds or replaces the Type for tag. Exposed so tests and
// embedders can register additional types without modifying this
// package; the six built-in types above are always present unless
// explicitly overwritten.
func Register(tag string, t Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = t
}

// Tags returns every currently-registered type-tag.
func Tags() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	return tags
}
