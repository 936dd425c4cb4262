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
EWFlag is the enable-wins flag (§4.2.6): the boolean twin of AWSet. State
is a pair of token sets, one per enable and one per disable. The flag
reads true when some enable-token has not been cancelled by a disable
that observed it, so a concurrent enable and disable resolve to true.
*/
package crdt

// EWFlagTag is this type's type-tag.
const EWFlagTag = "ew-flag"

// ewFlagState is State for EWFlag.
type ewFlagState struct {
	Enable  tokenSet
	Disable tokenSet
}

func newEWFlagState() ewFlagState {
	return ewFlagState{Enable: newTokenSet(), Disable: newTokenSet()}
}

func (s ewFlagState) clone() ewFlagState {
	return ewFlagState{Enable: s.Enable.clone(), Disable: s.Disable.clone()}
}

// ewEntryKind distinguishes an enable instruction from a disable
// instruction within an effect.
type ewEntryKind int

const (
	ewEnable ewEntryKind = iota
	ewDisable
)

// ewEffect is Effect for EWFlag. Enable carries the single fresh token
// minted for this enable; Disable carries the enable-tokens observed at
// origin at the time of the disable.
type ewEffect struct {
	Kind   ewEntryKind
	Token  Token
	Tokens []Token
}

// EWFlag implements Type for the enable-wins flag.
type EWFlag struct{}

var _ Type = EWFlag{}

func (EWFlag) Tag() string { return EWFlagTag }

func (EWFlag) New() State { return newEWFlagState() }

func (t EWFlag) Downstream(op Op, state State, ctx MintContext) (Effect, error) {
	s := state.(ewFlagState)
	switch op.Name {
	case "enable":
		return ewEffect{Kind: ewEnable, Token: ctx.NextToken()}, nil
	case "disable":
		return ewEffect{Kind: ewDisable, Tokens: tokensOf(s.Enable)}, nil
	default:
		return nil, errInvalidOp(t.Tag(), op.Name)
	}
}

func (EWFlag) Apply(effect Effect, state State) State {
	s := state.(ewFlagState).clone()
	e := effect.(ewEffect)
	switch e.Kind {
	case ewEnable:
		s.Enable.add(e.Token)
	case ewDisable:
		for _, tok := range e.Tokens {
			s.Disable.add(tok)
		}
	}
	return s
}

func (EWFlag) Value(state State) any {
	s := state.(ewFlagState)
	return len(s.Enable.difference(s.Disable)) > 0
}

func (EWFlag) Equal(a, b State) bool {
	as, bs := a.(ewFlagState), b.(ewFlagState)
	return as.Enable.equal(bs.Enable) && as.Disable.equal(bs.Disable)
}

func (EWFlag) RequiresStateForDownstream(opName string) bool {
	return opName == "disable"
}
