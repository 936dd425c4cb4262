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
AWSet is the add-wins (observed-remove) set (§4.2.3). Each element maps
to a pair of token sets: tokens minted by adds, and tokens a remove has
observed and is cancelling. An element is present when some add-token
has not been cancelled by any remove that observed it — which is why a
concurrent add and remove of the same element resolve to "present": the
add's fresh token was never in the remove's observed set.
*/
package crdt

// AWSetTag is this type's type-tag.
const AWSetTag = "aw-set"

// awRecord is the per-element (add-tokens, remove-tokens) pair.
type awRecord struct {
	Add    tokenSet
	Remove tokenSet
}

func newAWRecord() awRecord {
	return awRecord{Add: newTokenSet(), Remove: newTokenSet()}
}

// awSetState is State for AWSet.
type awSetState map[string]awRecord

func (s awSetState) clone() awSetState {
	out := make(awSetState, len(s))
	for elem, rec := range s {
		out[elem] = awRecord{Add: rec.Add.clone(), Remove: rec.Remove.clone()}
	}
	return out
}

// awEntryKind distinguishes an add instruction from a remove
// instruction within an effect.
type awEntryKind int

const (
	awAdd awEntryKind = iota
	awRemove
)

// awEntry is one per-element instruction. Add carries the single fresh
// token minted for Elem; Remove carries the tokens the origin observed
// for Elem at the time of the remove.
type awEntry struct {
	Kind   awEntryKind
	Elem   string
	Token  Token
	Tokens []Token
}

// awEffect is Effect for AWSet: add/add_all/remove/remove_all/reset all
// reduce to a list of per-element entries.
type awEffect struct {
	Entries []awEntry
}

// AWSet implements Type for the add-wins set.
type AWSet struct{}

var _ Type = AWSet{}

func (AWSet) Tag() string { return AWSetTag }

func (AWSet) New() State { return awSetState{} }

func (t AWSet) Downstream(op Op, state State, ctx MintContext) (Effect, error) {
	s := state.(awSetState)
	switch op.Name {
	case "add":
		elem := op.Arg.(string)
		return awEffect{Entries: []awEntry{{Kind: awAdd, Elem: elem, Token: ctx.NextToken()}}}, nil

	case "add_all":
		elems := op.Arg.([]string)
		entries := make([]awEntry, len(elems))
		for i, elem := range elems {
			entries[i] = awEntry{Kind: awAdd, Elem: elem, Token: ctx.NextToken()}
		}
		return awEffect{Entries: entries}, nil

	case "remove":
		elem := op.Arg.(string)
		return awEffect{Entries: []awEntry{{Kind: awRemove, Elem: elem, Tokens: tokensOf(s[elem].Add)}}}, nil

	case "remove_all":
		elems := op.Arg.([]string)
		entries := make([]awEntry, len(elems))
		for i, elem := range elems {
			entries[i] = awEntry{Kind: awRemove, Elem: elem, Tokens: tokensOf(s[elem].Add)}
		}
		return awEffect{Entries: entries}, nil

	case "reset":
		var entries []awEntry
		for elem, rec := range s {
			if len(rec.Add.difference(rec.Remove)) == 0 {
				continue // not currently present at origin
			}
			entries = append(entries, awEntry{Kind: awRemove, Elem: elem, Tokens: tokensOf(rec.Add)})
		}
		return awEffect{Entries: entries}, nil

	default:
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
}

func (AWSet) Apply(effect Effect, state State) State {
	s := state.(awSetState).clone()
	for _, entry := range effect.(awEffect).Entries {
		rec, ok := s[entry.Elem]
		if !ok {
			rec = newAWRecord()
		}
		switch entry.Kind {
		case awAdd:
			rec.Add.add(entry.Token)
		case awRemove:
			for _, tok := range entry.Tokens {
				rec.Remove.add(tok)
			}
		}
		s[entry.Elem] = rec
	}
	return s
}

func (AWSet) Value(state State) any {
	s := state.(awSetState)
	present := make([]string, 0, len(s))
	for elem, rec := range s {
		if len(rec.Add.difference(rec.Remove)) > 0 {
			present = append(present, elem)
		}
	}
	return present
}

func (AWSet) Equal(a, b State) bool {
	as, bs := a.(awSetState), b.(awSetState)
	if len(as) != len(bs) {
		return false
	}
	for elem, rec := range as {
		other, ok := bs[elem]
		if !ok || !rec.Add.equal(other.Add) || !rec.Remove.equal(other.Remove) {
			return false
		}
	}
	return true
}

func (AWSet) RequiresStateForDownstream(opName string) bool {
	switch opName {
	case "remove", "remove_all", "reset":
		return true
	default:
		return false
	}
}

func tokensOf(s tokenSet) []Token {
	out := make([]Token, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}
