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

func TestPNCounterOpIncrementDecrement(t *testing.T) {
	typ := PNCounterOp{}
	state := typ.New()
	ctx := NewMinter("r1")

	for _, op := range []Op{
		{Name: "increment", Arg: 5},
		{Name: "decrement", Arg: 2},
		{Name: "increment", Arg: nil}, // defaults to 1
	} {
		effect, err := typ.Downstream(op, state, ctx)
		if err != nil {
			t.Fatalf("Downstream(%v): %v", op, err)
		}
		state = typ.Apply(effect, state)
	}

	if got := typ.Value(state); got != int64(4) {
		t.Fatalf("Value = %v, want 4", got)
	}
}

func TestPNCounterOpCommutesUnderReordering(t *testing.T) {
	typ := PNCounterOp{}
	ctx := NewMinter("r1")

	mint := func(name string, n int) Effect {
		e, err := typ.Downstream(Op{Name: name, Arg: n}, typ.New(), ctx)
		if err != nil {
			t.Fatalf("Downstream: %v", err)
		}
		return e
	}

	e1 := mint("increment", 3)
	e2 := mint("decrement", 1)
	e3 := mint("increment", 7)

	forward := typ.Apply(e3, typ.Apply(e2, typ.Apply(e1, typ.New())))
	backward := typ.Apply(e1, typ.Apply(e3, typ.Apply(e2, typ.New())))

	if !typ.Equal(forward, backward) {
		t.Fatalf("apply order changed result: %v vs %v", typ.Value(forward), typ.Value(backward))
	}
}

func TestPNCounterOpInvalidOp(t *testing.T) {
	typ := PNCounterOp{}
	_, err := typ.Downstream(Op{Name: "bogus"}, typ.New(), NewMinter("r1"))
	if _, ok := err.(*InvalidOpError); !ok {
		t.Fatalf("expected *InvalidOpError, got %T (%v)", err, err)
	}
}

func TestPNCounterOpDoesNotRequireState(t *testing.T) {
	typ := PNCounterOp{}
	if typ.RequiresStateForDownstream("increment") {
		t.Fatal("increment should not require state")
	}
}
