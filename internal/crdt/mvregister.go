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
MVRegister is the multi-value register (§4.2.5). State is a list of
(value, version-set) pairs. An assign mints a fresh version and records
everything the origin had observed (the union of all version-sets
currently in state); applying a write drops any pair whose whole
version-set is now observed, shrinks the rest, and inserts the new
value. Concurrent assigns of different values are never dropped by each
other — each only observes versions that causally preceded it — so both
survive until a later assign observes both.
*/
package crdt

import "reflect"

// MVRegisterTag is this type's type-tag.
const MVRegisterTag = "mv-register"

// mvPair is one surviving value together with the versions that wrote
// it (a value can accumulate more than one version when an apply merges
// a write into an existing equal-valued pair).
type mvPair struct {
	Value    any
	Versions map[Version]struct{}
}

func (p mvPair) versionSubsetOf(o map[Version]struct{}) bool {
	for v := range p.Versions {
		if _, ok := o[v]; !ok {
			return false
		}
	}
	return true
}

func (p mvPair) clone() mvPair {
	versions := make(map[Version]struct{}, len(p.Versions))
	for v := range p.Versions {
		versions[v] = struct{}{}
	}
	return mvPair{Value: p.Value, Versions: versions}
}

// mvRegisterState is State for MVRegister.
type mvRegisterState []mvPair

// mvWrite is Effect for MVRegister.
type mvWrite struct {
	Value    any
	Version  Version
	Observed map[Version]struct{}
}

// MVRegister implements Type for the multi-value register.
type MVRegister struct{}

var _ Type = MVRegister{}

func (MVRegister) Tag() string { return MVRegisterTag }

func (MVRegister) New() State { return mvRegisterState(nil) }

func (t MVRegister) Downstream(op Op, state State, ctx MintContext) (Effect, error) {
	if op.Name != "assign" {
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
	s := state.(mvRegisterState)

	observed := make(map[Version]struct{})
	for _, pair := range s {
		for v := range pair.Versions {
			observed[v] = struct{}{}
		}
	}

	return mvWrite{Value: op.Arg, Version: ctx.NextVersion(), Observed: observed}, nil
}

func (MVRegister) Apply(effect Effect, state State) State {
	s := state.(mvRegisterState)
	w := effect.(mvWrite)

	out := make(mvRegisterState, 0, len(s)+1)
	merged := false
	for _, pair := range s {
		if pair.versionSubsetOf(w.Observed) {
			continue // fully observed by this write — superseded
		}
		shrunk := pair.clone()
		for v := range w.Observed {
			delete(shrunk.Versions, v)
		}
		if reflect.DeepEqual(shrunk.Value, w.Value) {
			shrunk.Versions[w.Version] = struct{}{}
			merged = true
		}
		out = append(out, shrunk)
	}
	if !merged {
		out = append(out, mvPair{Value: w.Value, Versions: map[Version]struct{}{w.Version: {}}})
	}
	return out
}

func (MVRegister) Value(state State) any {
	s := state.(mvRegisterState)
	out := make([]any, 0, len(s))
	for _, pair := range s {
		out = append(out, pair.Value)
	}
	return out
}

func (MVRegister) Equal(a, b State) bool {
	as, bs := a.(mvRegisterState), b.(mvRegisterState)
	if len(as) != len(bs) {
		return false
	}
	used := make([]bool, len(bs))
	for _, pa := range as {
		found := false
		for i, pb := range bs {
			if used[i] {
				continue
			}
			if reflect.DeepEqual(pa.Value, pb.Value) && versionSetEqual(pa.Versions, pb.Versions) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (MVRegister) RequiresStateForDownstream(string) bool {
	return true
}

func versionSetEqual(a, b map[Version]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}
