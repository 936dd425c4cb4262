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

import "testing"

func TestPNCounterStateBucketsPerOrigin(t *testing.T) {
	typ := PNCounterState{}
	state := typ.New()

	r1 := NewMinter("r1")
	r2 := NewMinter("r2")

	e1, err := typ.Downstream(Op{Name: "increment", Arg: 10}, state, r1)
	if err != nil {
		t.Fatalf("Downstream r1: %v", err)
	}
	e2, err := typ.Downstream(Op{Name: "decrement", Arg: 3}, state, r2)
	if err != nil {
		t.Fatalf("Downstream r2: %v", err)
	}

	state = typ.Apply(e1, state)
	state = typ.Apply(e2, state)

	if got := typ.Value(state); got != int64(7) {
		t.Fatalf("Value = %v, want 7", got)
	}
}

func TestPNCounterStateMergeIsElementwiseMax(t *testing.T) {
	typ := PNCounterState{}
	a := typ.New()
	b := typ.New()

	a = typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r1", N: 5}, a)
	b = typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r1", N: 9}, b)
	b = typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r2", N: 2}, b)

	merged := typ.Merge(a, b)
	ms := merged.(pnCounterStateState)
	if ms.Positive["r1"] != 9 {
		t.Fatalf("Positive[r1] = %d, want 9 (max)", ms.Positive["r1"])
	}
	if ms.Positive["r2"] != 2 {
		t.Fatalf("Positive[r2] = %d, want 2", ms.Positive["r2"])
	}
}

func TestPNCounterStateEqual(t *testing.T) {
	typ := PNCounterState{}
	a := typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r1", N: 4}, typ.New())
	b := typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r1", N: 4}, typ.New())
	if !typ.Equal(a, b) {
		t.Fatal("expected equal states")
	}
	c := typ.Apply(pnCounterStateEffect{Kind: pnCounterIncrement, Origin: "r1", N: 5}, typ.New())
	if typ.Equal(a, c) {
		t.Fatal("expected unequal states")
	}
}

func TestPNCounterStateInvalidOp(t *testing.T) {
	typ := PNCounterState{}
	_, err := typ.Downstream(Op{Name: "bogus"}, typ.New(), NewMinter("r1"))
	if _, ok := err.(*InvalidOpError); !ok {
		t.Fatalf("expected *InvalidOpError, got %T", err)
	}
}
