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

func tpValues(t *testing.T, typ TPSet, state State) []string {
	t.Helper()
	out := typ.Value(state).([]string)
	sort.Strings(out)
	return out
}

func TestTPSetAddThenRemove(t *testing.T) {
	typ := TPSet{}
	state := typ.New()

	addEffect, err := typ.Downstream(Op{Name: "add", Arg: "x"}, state, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	state = typ.Apply(addEffect, state)

	removeEffect, err := typ.Downstream(Op{Name: "remove", Arg: "x"}, state, nil)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	state = typ.Apply(removeEffect, state)

	if got := tpValues(t, typ, state); len(got) != 0 {
		t.Fatalf("Value = %v, want empty", got)
	}
}

func TestTPSetReAddFailsAtOrigin(t *testing.T) {
	typ := TPSet{}
	state := typ.New()

	addEffect, _ := typ.Downstream(Op{Name: "add", Arg: "x"}, state, nil)
	state = typ.Apply(addEffect, state)
	removeEffect, _ := typ.Downstream(Op{Name: "remove", Arg: "x"}, state, nil)
	state = typ.Apply(removeEffect, state)

	if _, err := typ.Downstream(Op{Name: "add", Arg: "x"}, state, nil); err == nil {
		t.Fatal("expected re-add of a removed element to fail at origin")
	}
}

func TestTPSetRemoveNeverAddedFailsAtOrigin(t *testing.T) {
	typ := TPSet{}
	state := typ.New()
	if _, err := typ.Downstream(Op{Name: "remove", Arg: "ghost"}, state, nil); err == nil {
		t.Fatal("expected remove of a never-added element to fail at origin")
	}
}

func TestTPSetAddAllSilentlyDropsRemoved(t *testing.T) {
	typ := TPSet{}
	state := typ.New()

	addEffect, _ := typ.Downstream(Op{Name: "add", Arg: "x"}, state, nil)
	state = typ.Apply(addEffect, state)
	removeEffect, _ := typ.Downstream(Op{Name: "remove", Arg: "x"}, state, nil)
	state = typ.Apply(removeEffect, state)

	addAll, err := typ.Downstream(Op{Name: "add_all", Arg: []string{"x", "y"}}, state, nil)
	if err != nil {
		t.Fatalf("add_all should not error: %v", err)
	}
	state = typ.Apply(addAll, state)

	if got := tpValues(t, typ, state); !reflect.DeepEqual(got, []string{"y"}) {
		t.Fatalf("Value = %v, want [y] (x silently dropped)", got)
	}
}

func TestTPSetRemoveAllSilentlyDropsNeverAdded(t *testing.T) {
	typ := TPSet{}
	state := typ.New()

	addAll, _ := typ.Downstream(Op{Name: "add_all", Arg: []string{"x"}}, state, nil)
	state = typ.Apply(addAll, state)

	removeAll, err := typ.Downstream(Op{Name: "remove_all", Arg: []string{"x", "ghost"}}, state, nil)
	if err != nil {
		t.Fatalf("remove_all should not error: %v", err)
	}
	state = typ.Apply(removeAll, state)

	if got := tpValues(t, typ, state); len(got) != 0 {
		t.Fatalf("Value = %v, want empty", got)
	}
}

func TestTPSetInvalidOp(t *testing.T) {
	typ := TPSet{}
	_, err := typ.Downstream(Op{Name: "bogus"}, typ.New(), nil)
	if _, ok := err.(*InvalidOpError); !ok {
		t.Fatalf("expected *InvalidOpError, got %T", err)
	}
}
