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

package protocol

import (
	"bytes"
	"encoding/gob"

	"crdtstore/internal/engine"
)

// EffectMessage is the wire form of a causal broadcast envelope (§6).
// It carries arbitrary CRDT effect payloads, so it leans on gob (via
// the type registrations in internal/crdt/gob.go) rather than
// hand-rolled field encoding: a new CRDT type only needs a gob
// registration, not a change to this wire format.
type EffectMessage struct {
	Envelope engine.Envelope
}

// Encode serializes m for transmission as a MsgEffect frame's payload.
func (m *EffectMessage) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m.Envelope); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEffectMessage parses a MsgEffect frame's payload.
func DecodeEffectMessage(data []byte) (*EffectMessage, error) {
	var env engine.Envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, err
	}
	return &EffectMessage{Envelope: env}, nil
}

// AckMessage lets a receiving replica report the vector clock it has
// applied up to, for diagnostics and flow-control tooling (§4.3 leaves
// acknowledgment optional — broadcast itself stays fire-and-forget).
// Unlike EffectMessage it has a small, fixed shape and is expected to
// be sent far more often, so it is hand-encoded with BinaryEncoder
// instead of paying gob's overhead on every heartbeat.
type AckMessage struct {
	ReplicaID string
	Counters  map[string]uint64
}

// Encode serializes m for transmission as a MsgAck frame's payload.
func (m *AckMessage) Encode() ([]byte, error) {
	enc := NewBinaryEncoder()
	enc.WriteString(m.ReplicaID)
	enc.WriteInt64(int64(len(m.Counters)))
	for replica, seq := range m.Counters {
		enc.WriteString(replica)
		enc.WriteInt64(int64(seq))
	}
	return enc.Bytes(), nil
}

// DecodeAckMessage parses a MsgAck frame's payload.
func DecodeAckMessage(data []byte) (*AckMessage, error) {
	dec := NewBinaryDecoder(data)
	replicaID, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	n, err := dec.ReadInt64()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > MaxMessageSize {
		return nil, ErrInvalidMessage
	}
	counters := make(map[string]uint64, n)
	for i := int64(0); i < n; i++ {
		replica, err := dec.ReadString()
		if err != nil {
			return nil, err
		}
		seq, err := dec.ReadInt64()
		if err != nil {
			return nil, err
		}
		counters[replica] = uint64(seq)
	}
	return &AckMessage{ReplicaID: replicaID, Counters: counters}, nil
}
