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
PNCounterOp is the operation-based PN-Counter (§4.2.1).

State is a single signed integer. An increment or decrement produces a
signed delta as its effect; applying a delta is integer addition, which
is exactly what "commutes under concurrent application" (C1) means for
this type: the final sum doesn't depend on delivery order.
*/
package crdt

// PNCounterOpTag is this type's type-tag.
const PNCounterOpTag = "pn-counter-ob"

// pnCounterOpState is State for PNCounterOp: the running total.
type pnCounterOpState int64

// pnCounterOpEffect is Effect for PNCounterOp: a signed delta.
type pnCounterOpEffect int64

// PNCounterOp implements Type for the operation-based PN-Counter.
type PNCounterOp struct{}

var _ Type = PNCounterOp{}

func (PNCounterOp) Tag() string { return PNCounterOpTag }

func (PNCounterOp) New() State { return pnCounterOpState(0) }

func (t PNCounterOp) Downstream(op Op, _ State, _ MintContext) (Effect, error) {
	n := argOrDefault(op.Arg, 1)
	switch op.Name {
	case "increment":
		return pnCounterOpEffect(n), nil
	case "decrement":
		return pnCounterOpEffect(-n), nil
	default:
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
}

func (PNCounterOp) Apply(effect Effect, state State) State {
	return state.(pnCounterOpState) + pnCounterOpState(effect.(pnCounterOpEffect))
}

func (PNCounterOp) Value(state State) any {
	return int64(state.(pnCounterOpState))
}

func (PNCounterOp) Equal(a, b State) bool {
	return a.(pnCounterOpState) == b.(pnCounterOpState)
}

func (PNCounterOp) RequiresStateForDownstream(string) bool {
	return false
}

// argOrDefault interprets a client-supplied op argument as a count,
// defaulting to def when no argument was given or when it is not an
// int, int64 or uint64. An explicit
// zero is a valid count (increment(n=0) mints and applies a zero-delta
// effect) and is returned as-is, not treated as "absent".
func argOrDefault(arg any, def int64) int64 {
	switch v := arg.(type) {
	case nil:
		return def
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	default:
		return def
	}
}
