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
	"reflect"
	"sort"
	"testing"
)

func awValues(t *testing.T, typ AWSet, state State) []string {
	t.Helper()
	out := typ.Value(state).([]string)
	sort.Strings(out)
	return out
}

func TestAWSetAddThenRemove(t *testing.T) {
	typ := AWSet{}
	ctx := NewMinter("r1")
	state := typ.New()

	addEffect, err := typ.Downstream(Op{Name: "add", Arg: "apple"}, state, ctx)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	state = typ.Apply(addEffect, state)
	if got := awValues(t, typ, state); !reflect.DeepEqual(got, []string{"apple"}) {
		t.Fatalf("Value after add = %v", got)
	}

	removeEffect, err := typ.Downstream(Op{Name: "remove", Arg: "apple"}, state, ctx)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	state = typ.Apply(removeEffect, state)
	if got := awValues(t, typ, state); len(got) != 0 {
		t.Fatalf("Value after remove = %v, want empty", got)
	}
}

func TestAWSetConcurrentAddWins(t *testing.T) {
	typ := AWSet{}

	// Replica A adds "apple".
	aCtx := NewMinter("a")
	aState := typ.New()
	addEffect, err := typ.Downstream(Op{Name: "add", Arg: "apple"}, aState, aCtx)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	aState = typ.Apply(addEffect, aState)

	// Replica B, concurrently and without having seen the add, removes
	// "apple". Its remove only observes whatever tokens it has locally —
	// none — so the remove effect cancels nothing.
	bCtx := NewMinter("b")
	bState := typ.New()
	removeEffect, err := typ.Downstream(Op{Name: "remove", Arg: "apple"}, bState, bCtx)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Both effects delivered to a third replica, in either order.
	merged := typ.Apply(removeEffect, typ.Apply(addEffect, typ.New()))
	if got := awValues(t, typ, merged); !reflect.DeepEqual(got, []string{"apple"}) {
		t.Fatalf("concurrent add/remove should resolve add-wins, got %v", got)
	}
}

func TestAWSetAddAllRemoveAll(t *testing.T) {
	typ := AWSet{}
	ctx := NewMinter("r1")
	state := typ.New()

	addAll, err := typ.Downstream(Op{Name: "add_all", Arg: []string{"a", "b", "c"}}, state, ctx)
	if err != nil {
		t.Fatalf("add_all: %v", err)
	}
	state = typ.Apply(addAll, state)
	if got := awValues(t, typ, state); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Value after add_all = %v", got)
	}

	removeAll, err := typ.Downstream(Op{Name: "remove_all", Arg: []string{"a", "c"}}, state, ctx)
	if err != nil {
		t.Fatalf("remove_all: %v", err)
	}
	state = typ.Apply(removeAll, state)
	if got := awValues(t, typ, state); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Value after remove_all = %v", got)
	}
}

func TestAWSetReset(t *testing.T) {
	typ := AWSet{}
	ctx := NewMinter("r1")
	state := typ.New()

	addAll, _ := typ.Downstream(Op{Name: "add_all", Arg: []string{"a", "b"}}, state, ctx)
	state = typ.Apply(addAll, state)

	reset, err := typ.Downstream(Op{Name: "reset"}, state, ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	state = typ.Apply(reset, state)
	if got := awValues(t, typ, state); len(got) != 0 {
		t.Fatalf("Value after reset = %v, want empty", got)
	}
}

func TestAWSetRequiresStateForDownstream(t *testing.T) {
	typ := AWSet{}
	cases := map[string]bool{"add": false, "add_all": false, "remove": true, "remove_all": true, "reset": true}
	for op, want := range cases {
		if got := typ.RequiresStateForDownstream(op); got != want {
			t.Errorf("RequiresStateForDownstream(%q) = %v, want %v", op, got, want)
		}
	}
}

func TestAWSetInvalidOp(t *testing.T) {
	typ := AWSet{}
	_, err := typ.Downstream(Op{Name: "bogus"}, typ.New(), NewMinter("r1"))
	if _, ok := err.(*InvalidOpError); !ok {
		t.Fatalf("expected *InvalidOpError, got %T", err)
	}
}
