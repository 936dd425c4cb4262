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
TPSet is the two-phase set (§4.2.4): an element may be added then
removed, but never re-added — once removed, it is gone for good. This
is the one type whose single-element ops can fail at origin: add(e)
when e was already removed, and remove(e) when e was never added.
*/
package crdt

import "errors"

// TPSetTag is this type's type-tag.
const TPSetTag = "tp-set"

// tpSetState is State for TPSet.
type tpSetState struct {
	Added   map[string]struct{}
	Removed map[string]struct{}
}

func newTPSetState() tpSetState {
	return tpSetState{Added: map[string]struct{}{}, Removed: map[string]struct{}{}}
}

func (s tpSetState) clone() tpSetState {
	out := newTPSetState()
	for e := range s.Added {
		out.Added[e] = struct{}{}
	}
	for e := range s.Removed {
		out.Removed[e] = struct{}{}
	}
	return out
}

// tpKind distinguishes an add effect from a remove effect.
type tpKind int

const (
	tpAdd tpKind = iota
	tpRemove
)

// tpEffect is Effect for TPSet: a batch of elements to union into
// Added (tpAdd) or Removed (tpRemove).
type tpEffect struct {
	Kind  tpKind
	Elems []string
}

// TPSet implements Type for the two-phase set.
type TPSet struct{}

var _ Type = TPSet{}

func (TPSet) Tag() string { return TPSetTag }

func (TPSet) New() State { return newTPSetState() }

func (t TPSet) Downstream(op Op, state State, _ MintContext) (Effect, error) {
	s := state.(tpSetState)
	switch op.Name {
	case "add":
		elem := op.Arg.(string)
		if _, removed := s.Removed[elem]; removed {
			return nil, errors.New("element already removed, cannot be re-added")
		}
		return tpEffect{Kind: tpAdd, Elems: []string{elem}}, nil

	case "remove":
		elem := op.Arg.(string)
		if _, added := s.Added[elem]; !added {
			return nil, errors.New("element was never added")
		}
		return tpEffect{Kind: tpRemove, Elems: []string{elem}}, nil

	case "add_all":
		elems := op.Arg.([]string)
		var ok []string
		for _, elem := range elems {
			if _, removed := s.Removed[elem]; !removed {
				ok = append(ok, elem)
			}
		}
		return tpEffect{Kind: tpAdd, Elems: ok}, nil

	case "remove_all":
		elems := op.Arg.([]string)
		var ok []string
		for _, elem := range elems {
			if _, added := s.Added[elem]; added {
				ok = append(ok, elem)
			}
		}
		return tpEffect{Kind: tpRemove, Elems: ok}, nil

	default:
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
}

func (TPSet) Apply(effect Effect, state State) State {
	s := state.(tpSetState).clone()
	e := effect.(tpEffect)
	target := s.Added
	if e.Kind == tpRemove {
		target = s.Removed
	}
	for _, elem := range e.Elems {
		target[elem] = struct{}{}
	}
	return s
}

func (TPSet) Value(state State) any {
	s := state.(tpSetState)
	out := make([]string, 0, len(s.Added))
	for elem := range s.Added {
		if _, removed := s.Removed[elem]; !removed {
			out = append(out, elem)
		}
	}
	return out
}

func (TPSet) Equal(a, b State) bool {
	as, bs := a.(tpSetState), b.(tpSetState)
	return setEqual(as.Added, bs.Added) && setEqual(as.Removed, bs.Removed)
}

func (TPSet) RequiresStateForDownstream(string) bool {
	return true
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for e := range a {
		if _, ok := b[e]; !ok {
			return false
		}
	}
	return true
}
