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

func mvValues(t *testing.T, typ MVRegister, state State) []string {
	t.Helper()
	raw := typ.Value(state).([]any)
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = v.(string)
	}
	sort.Strings(out)
	return out
}

func TestMVRegisterSingleAssign(t *testing.T) {
	typ := MVRegister{}
	ctx := NewMinter("r1")
	state := typ.New()

	w, err := typ.Downstream(Op{Name: "assign", Arg: "a"}, state, ctx)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	state = typ.Apply(w, state)

	if got := mvValues(t, typ, state); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Value = %v, want [a]", got)
	}
}

func TestMVRegisterConcurrentAssignsBothSurvive(t *testing.T) {
	typ := MVRegister{}

	aWrite, err := typ.Downstream(Op{Name: "assign", Arg: "a"}, typ.New(), NewMinter("r1"))
	if err != nil {
		t.Fatalf("assign a: %v", err)
	}
	// Replica 2 assigns concurrently, from an empty state that has not
	// observed r1's write.
	bWrite, err := typ.Downstream(Op{Name: "assign", Arg: "b"}, typ.New(), NewMinter("r2"))
	if err != nil {
		t.Fatalf("assign b: %v", err)
	}

	merged := typ.Apply(bWrite, typ.Apply(aWrite, typ.New()))
	if got := mvValues(t, typ, merged); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Value = %v, want [a b] (both concurrent assigns survive)", got)
	}
}

func TestMVRegisterLaterAssignObservesBothAndWins(t *testing.T) {
	typ := MVRegister{}
	ctx := NewMinter("r3")

	aWrite, _ := typ.Downstream(Op{Name: "assign", Arg: "a"}, typ.New(), NewMinter("r1"))
	bWrite, _ := typ.Downstream(Op{Name: "assign", Arg: "b"}, typ.New(), NewMinter("r2"))
	merged := typ.Apply(bWrite, typ.Apply(aWrite, typ.New()))

	cWrite, err := typ.Downstream(Op{Name: "assign", Arg: "c"}, merged, ctx)
	if err != nil {
		t.Fatalf("assign c: %v", err)
	}
	merged = typ.Apply(cWrite, merged)

	if got := mvValues(t, typ, merged); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("Value = %v, want [c] (observed both prior assigns)", got)
	}
}

func TestMVRegisterInvalidOp(t *testing.T) {
	typ := MVRegister{}
	_, err := typ.Downstream(Op{Name: "bogus"}, typ.New(), NewMinter("r1"))
	if _, ok := err.(*InvalidOpError); !ok {
		t.Fatalf("expected *InvalidOpError, got %T", err)
	}
}
