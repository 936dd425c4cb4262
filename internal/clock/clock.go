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
Package clock implements vector clocks: a per-replica logical counter
map and the partial order they induce.

A Clock is immutable from the caller's point of view — Increment and
Merge return a new Clock rather than mutating the receiver, so a client
can safely hold on to a clock value across calls into the engine.
*/
package clock

import (
	"bytes"
	"encoding/gob"
)

// Clock maps replica-id to a non-negative counter. A missing entry is
// semantically equal to zero.
type Clock struct {
	counters map[string]uint64
}

// GobEncode/GobDecode let a Clock round-trip through the WAL and
// snapshot encoders in internal/persistence even though counters is
// unexported — gob silently drops unexported fields otherwise, which
// would decode every persisted clock back as empty.
func (c Clock) GobEncode() ([]byte, error) {
	return gobEncode(c.counters)
}

func (c *Clock) GobDecode(data []byte) error {
	var counters map[string]uint64
	if err := gobDecode(data, &counters); err != nil {
		return err
	}
	c.counters = counters
	return nil
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// New returns an empty clock.
func New() Clock {
	return Clock{}
}

// Get returns the counter for id, or 0 if absent.
func (c Clock) Get(id string) uint64 {
	if c.counters == nil {
		return 0
	}
	return c.counters[id]
}

// Increment returns a new clock equal to c with id's entry incremented
// by one (starting from 0 if id was absent).
func (c Clock) Increment(id string) Clock {
	out := c.clone()
	out.counters[id] = out.counters[id] + 1
	return out
}

// Merge returns the elementwise maximum of a and b over the union of
// their keys.
func Merge(a, b Clock) Clock {
	out := a.clone()
	for id, v := range b.counters {
		if v > out.counters[id] {
			out.counters[id] = v
		}
	}
	return out
}

// Merge is the method form of Merge(c, other).
func (c Clock) Merge(other Clock) Clock {
	return Merge(c, other)
}

// Keys returns the set of replica ids with a non-zero entry, in no
// particular order. Callers that need determinism should sort with
// objectkey.CompareReplicaIDs.
func (c Clock) Keys() []string {
	keys := make([]string, 0, len(c.counters))
	for id := range c.counters {
		keys = append(keys, id)
	}
	return keys
}

// IsZero reports whether the clock has no non-zero entries.
func (c Clock) IsZero() bool {
	return len(c.counters) == 0
}

func (c Clock) clone() Clock {
	out := Clock{counters: make(map[string]uint64, len(c.counters)+1)}
	for id, v := range c.counters {
		out.counters[id] = v
	}
	return out
}

// Relation describes the partial-order relationship between two clocks.
type Relation int

const (
	Equal Relation = iota
	Before
	After
	Concurrent
)

func (r Relation) String() string {
	switch r {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Compare computes, over the union of a's and b's keys, whether a is
// equal to, strictly before, strictly after, or concurrent with b.
//
// Empty clocks compare Equal to each other and Before any non-empty
// clock.
func Compare(a, b Clock) Relation {
	less, greater := false, false

	seen := make(map[string]struct{}, len(a.counters)+len(b.counters))
	for id := range a.counters {
		seen[id] = struct{}{}
	}
	for id := range b.counters {
		seen[id] = struct{}{}
	}

	for id := range seen {
		av, bv := a.Get(id), b.Get(id)
		switch {
		case av < bv:
			less = true
		case av > bv:
			greater = true
		}
	}

	switch {
	case !less && !greater:
		return Equal
	case less && !greater:
		return Before
	case greater && !less:
		return After
	default:
		return Concurrent
	}
}

// LessOrEqual reports whether a is causally ready with respect to b,
// i.e. a does not strictly dominate b (a ⊑ b: equal, before, or
// concurrent — see §4.4.2).
func LessOrEqual(a, b Clock) bool {
	return Compare(a, b) != After
}

// Normalize interprets legacy sentinel values (nil, an untyped zero, or
// anything that isn't already a Clock) as the empty clock (§9).
func Normalize(v any) Clock {
	if v == nil {
		return New()
	}
	if c, ok := v.(Clock); ok {
		return c
	}
	return New()
}
