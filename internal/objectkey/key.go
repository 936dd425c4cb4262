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
Package objectkey defines the object key that identifies a replicated
CRDT instance, plus a total order over keys and replica identifiers used
wherever deterministic iteration is required (snapshot serialization, WAL
dump output, tie-breaking in display order).

Ordering is built on a root-locale collator rather than raw byte
comparison so that namespaces and ids entered as human text sort the way
an operator expects, while remaining a total, stable order for machine
purposes (it is never used to decide causal order — only display and
serialization order).
*/
package objectkey

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Key is the unique identity of a replicated object: a namespace, the
// CRDT type-tag, and an id. Namespace and id are opaque byte strings;
// type-tag is held as a Go string.
type Key struct {
	Namespace []byte
	TypeTag   string
	ID        []byte
}

// New constructs a Key from convenient string arguments.
func New(namespace, typeTag, id string) Key {
	return Key{Namespace: []byte(namespace), TypeTag: typeTag, ID: []byte(id)}
}

// String renders the key for logging and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Namespace, k.TypeTag, k.ID)
}

// Equal reports whether two keys denote the same object. Keys differing
// only in TypeTag are different objects (§3).
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k.Namespace, other.Namespace) &&
		k.TypeTag == other.TypeTag &&
		bytes.Equal(k.ID, other.ID)
}

// CacheKey renders k as a string suitable for use as a Go map key (Key
// itself holds []byte fields and so isn't comparable). Fields are
// length-prefixed so that, e.g., Namespace="a", ID="b/c" can never
// collide with Namespace="a/b", ID="c".
func (k Key) CacheKey() string {
	return fmt.Sprintf("%d:%s|%s|%d:%s", len(k.Namespace), k.Namespace, k.TypeTag, len(k.ID), k.ID)
}

// collator provides a stable, locale-aware total order. Root locale is
// used since object keys are operator-chosen identifiers, not natural
// language text in a particular language. collate.Collator keeps
// internal scratch buffers and isn't safe for concurrent CompareString
// calls, so access is serialized with collatorMu.
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Und, collate.Loose)
)

// Compare returns -1, 0, or 1 ordering a before, equal to, or after b.
// Namespace is compared first, then type-tag, then id.
func Compare(a, b Key) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	if c := collator.CompareString(string(a.Namespace), string(b.Namespace)); c != 0 {
		return c
	}
	if c := collator.CompareString(a.TypeTag, b.TypeTag); c != 0 {
		return c
	}
	if c := collator.CompareString(string(a.ID), string(b.ID)); c != 0 {
		return c
	}
	// The Loose collator ties case/accent/width variants; byte order
	// breaks those ties so distinct keys never compare equal.
	if c := bytes.Compare(a.Namespace, b.Namespace); c != 0 {
		return c
	}
	if c := strings.Compare(a.TypeTag, b.TypeTag); c != 0 {
		return c
	}
	return bytes.Compare(a.ID, b.ID)
}

// CompareReplicaIDs imposes the total order over replica identifiers
// required for tie-breaking (§3: "never for defining causal order").
func CompareReplicaIDs(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	if c := collator.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Sort orders keys in place using Compare.
func Sort(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })
}
