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
PNCounterState is the state-based PN-Counter (§4.2.2): two per-replica
bucket maps, one for all increments ever observed and one for all
decrements, each keyed by the replica that issued them. The counter's
value is the sum of the positive buckets minus the sum of the negative
buckets — a replica's own bucket only ever grows, so the value is
monotone in each bucket independent of delivery order.
*/
package crdt

// PNCounterStateTag is this type's type-tag.
const PNCounterStateTag = "pn-counter-sb"

// pnCounterStateState is State for PNCounterState.
type pnCounterStateState struct {
	Positive map[string]uint64
	Negative map[string]uint64
}

func newPNCounterStateState() pnCounterStateState {
	return pnCounterStateState{Positive: map[string]uint64{}, Negative: map[string]uint64{}}
}

func (s pnCounterStateState) clone() pnCounterStateState {
	out := newPNCounterStateState()
	for k, v := range s.Positive {
		out.Positive[k] = v
	}
	for k, v := range s.Negative {
		out.Negative[k] = v
	}
	return out
}

// pnCounterStateKind distinguishes increment from decrement effects.
type pnCounterStateKind int

const (
	pnCounterIncrement pnCounterStateKind = iota
	pnCounterDecrement
)

// pnCounterStateEffect is Effect for PNCounterState.
type pnCounterStateEffect struct {
	Kind   pnCounterStateKind
	Origin string
	N      uint64
}

// PNCounterState implements Type for the state-based PN-Counter.
type PNCounterState struct{}

var (
	_ Type        = PNCounterState{}
	_ StateMerger = PNCounterState{}
)

func (PNCounterState) Tag() string { return PNCounterStateTag }

func (PNCounterState) New() State { return newPNCounterStateState() }

func (t PNCounterState) Downstream(op Op, _ State, ctx MintContext) (Effect, error) {
	n := uint64(argOrDefault(op.Arg, 1))
	switch op.Name {
	case "increment":
		return pnCounterStateEffect{Kind: pnCounterIncrement, Origin: ctx.OriginID(), N: n}, nil
	case "decrement":
		return pnCounterStateEffect{Kind: pnCounterDecrement, Origin: ctx.OriginID(), N: n}, nil
	default:
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
}

func (PNCounterState) Apply(effect Effect, state State) State {
	s := state.(pnCounterStateState).clone()
	e := effect.(pnCounterStateEffect)
	switch e.Kind {
	case pnCounterIncrement:
		s.Positive[e.Origin] += e.N
	case pnCounterDecrement:
		s.Negative[e.Origin] += e.N
	}
	return s
}

// Merge computes the elementwise maximum of each bucket (§4.2.2). Not
// called by the engine (anti-entropy is a non-goal, §1) but available
// for direct use and tests.
func (PNCounterState) Merge(a, b State) State {
	as, bs := a.(pnCounterStateState), b.(pnCounterStateState)
	out := newPNCounterStateState()
	for _, id := range unionKeys(as.Positive, bs.Positive) {
		out.Positive[id] = max64(as.Positive[id], bs.Positive[id])
	}
	for _, id := range unionKeys(as.Negative, bs.Negative) {
		out.Negative[id] = max64(as.Negative[id], bs.Negative[id])
	}
	return out
}

func (PNCounterState) Value(state State) any {
	s := state.(pnCounterStateState)
	var total int64
	for _, v := range s.Positive {
		total += int64(v)
	}
	for _, v := range s.Negative {
		total -= int64(v)
	}
	return total
}

func (PNCounterState) Equal(a, b State) bool {
	as, bs := a.(pnCounterStateState), b.(pnCounterStateState)
	return bucketsEqual(as.Positive, bs.Positive) && bucketsEqual(as.Negative, bs.Negative)
}

func (PNCounterState) RequiresStateForDownstream(string) bool {
	return false
}

func bucketsEqual(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func unionKeys(a, b map[string]uint64) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
